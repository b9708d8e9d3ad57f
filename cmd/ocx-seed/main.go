// Command ocx-seed is the operator entry point for provisioning inventory
// and per-pool config ahead of traffic: "operator seeding of inventory and
// config" named as an external collaborator in spec.md §1.
package main

import (
	"context"
	"database/sql"
	"flag"
	"log/slog"
	"os"
	"time"

	_ "github.com/lib/pq"

	"github.com/ocx/ledger-intake/internal/configcache"
	"github.com/ocx/ledger-intake/internal/poolconfig"
	"github.com/ocx/ledger-intake/internal/slotstore"
)

func main() {
	var (
		dsn           = flag.String("dsn", os.Getenv("DATABASE_DSN"), "Postgres DSN")
		poolID        = flag.String("pool", "", "pool id to seed")
		slotCount     = flag.Int("slots", 0, "number of AVAILABLE slots to create")
		batchSize     = flag.Int("batch-size", 0, "override batch_size (0 = leave default)")
		maxRetries    = flag.Int("max-retries", 0, "override max_retries (0 = leave default)")
		commitRPCName = flag.String("commit-rpc-name", "", "override commit_rpc_name")
		isActive      = flag.Bool("active", true, "pool is_active flag")
	)
	flag.Parse()

	if *poolID == "" {
		slog.Error("ocx-seed: -pool is required")
		os.Exit(1)
	}

	db, err := sql.Open("postgres", *dsn)
	if err != nil {
		slog.Error("ocx-seed: open db", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	ctx := context.Background()
	slots := slotstore.NewPostgresStore(db)

	if *slotCount > 0 {
		ids, err := slots.CreateSlots(ctx, *poolID, *slotCount)
		if err != nil {
			slog.Error("ocx-seed: create slots", "error", err)
			os.Exit(1)
		}
		slog.Info("ocx-seed: created slots", "pool", *poolID, "count", len(ids))
	}

	defaults := poolconfig.DefaultDefaults()
	store := poolconfig.NewPostgresStore(db, configcache.NewMemCache(), time.Minute, defaults)

	existing, err := store.Get(ctx, *poolID)
	if err != nil {
		slog.Error("ocx-seed: load existing config", "error", err)
		os.Exit(1)
	}

	if *batchSize > 0 {
		existing.BatchSize = *batchSize
	}
	if *maxRetries > 0 {
		existing.MaxRetries = *maxRetries
	}
	if *commitRPCName != "" {
		existing.CommitRPCName = *commitRPCName
	}
	existing.PoolID = *poolID
	existing.IsActive = *isActive

	if err := store.Upsert(ctx, existing); err != nil {
		slog.Error("ocx-seed: upsert config", "error", err)
		os.Exit(1)
	}

	slog.Info("ocx-seed: pool config seeded", "pool", *poolID, "batch_size", existing.BatchSize,
		"max_retries", existing.MaxRetries, "is_active", existing.IsActive)
}
