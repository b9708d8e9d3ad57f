// Command ocx-snapshot runs one pass of the periodic per-pool snapshot job,
// intended to be invoked on its own external cron cadence alongside the
// Reaper and the Bridge worker trigger.
package main

import (
	"context"
	"database/sql"
	"flag"
	"log/slog"
	"os"
	"strings"

	_ "github.com/lib/pq"

	"github.com/ocx/ledger-intake/internal/intakequeue"
	"github.com/ocx/ledger-intake/internal/slotstore"
	"github.com/ocx/ledger-intake/internal/snapshot"
)

func main() {
	var (
		dsn     = flag.String("dsn", os.Getenv("DATABASE_DSN"), "Postgres DSN")
		poolCSV = flag.String("pools", "", "comma-separated pool ids to snapshot")
	)
	flag.Parse()

	pools := splitCSV(*poolCSV)
	if len(pools) == 0 {
		slog.Error("ocx-snapshot: -pools is required")
		os.Exit(1)
	}

	db, err := sql.Open("postgres", *dsn)
	if err != nil {
		slog.Error("ocx-snapshot: open db", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	job := snapshot.New(db, slotstore.NewPostgresStore(db), intakequeue.NewPostgresQueue(db))
	if err := job.Run(context.Background(), pools); err != nil {
		slog.Error("ocx-snapshot: run failed", "error", err)
		os.Exit(1)
	}
	slog.Info("ocx-snapshot: completed", "pools", len(pools))
}

func splitCSV(s string) []string {
	out := make([]string, 0)
	for _, p := range strings.Split(s, ",") {
		trimmed := strings.TrimSpace(p)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
