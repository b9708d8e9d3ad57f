// Command ocx-reap runs one Reaper sweep, intended to be invoked on a
// ~2-minute external cron cadence per spec.md §4.5.
package main

import (
	"context"
	"database/sql"
	"flag"
	"log/slog"
	"os"
	"time"

	_ "github.com/lib/pq"

	"github.com/ocx/ledger-intake/internal/intakequeue"
	"github.com/ocx/ledger-intake/internal/reaper"
	"github.com/ocx/ledger-intake/internal/slotstore"
)

func main() {
	var (
		dsn       = flag.String("dsn", os.Getenv("DATABASE_DSN"), "Postgres DSN")
		threshold = flag.Duration("threshold", 20*time.Minute, "reservation age beyond which a slot is considered orphaned")
	)
	flag.Parse()

	db, err := sql.Open("postgres", *dsn)
	if err != nil {
		slog.Error("ocx-reap: open db", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	r := reaper.New(slotstore.NewPostgresStore(db), intakequeue.NewPostgresQueue(db), *threshold)
	n, err := r.Run(context.Background())
	if err != nil {
		slog.Error("ocx-reap: sweep failed", "error", err)
		os.Exit(1)
	}
	slog.Info("ocx-reap: sweep completed", "released", n)
}
