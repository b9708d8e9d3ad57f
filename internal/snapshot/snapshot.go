// Package snapshot periodically records durable, append-only per-pool
// counts (slot distribution, queue depth, DLQ depth) for historical
// observability, adapted from the teacher's snapshot job.
package snapshot

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/ocx/ledger-intake/internal/intakequeue"
	"github.com/ocx/ledger-intake/internal/slotstore"
)

// Row is one durable snapshot record.
type Row struct {
	PoolID    string
	Available int
	Reserved  int
	Consumed  int
	QueueDepth int
	DLQDepth  int
	TakenAt   time.Time
}

// Job takes a point-in-time snapshot across every known pool and writes
// it to an append-only table.
type Job struct {
	db    *sql.DB
	Slots slotstore.Store
	Queue intakequeue.Queue
}

func New(db *sql.DB, slots slotstore.Store, queue intakequeue.Queue) *Job {
	return &Job{db: db, Slots: slots, Queue: queue}
}

// Run snapshots the given pools (the caller supplies the pool list; this
// package has no notion of "all pools" since slot pools aren't otherwise
// enumerated anywhere in the core).
func (j *Job) Run(ctx context.Context, poolIDs []string) error {
	depth, err := j.Queue.Depth(ctx)
	if err != nil {
		return fmt.Errorf("snapshot: queue depth: %w", err)
	}

	now := time.Now()
	for _, poolID := range poolIDs {
		counts, err := j.Slots.Counts(ctx, poolID)
		if err != nil {
			return fmt.Errorf("snapshot: counts for %s: %w", poolID, err)
		}

		var dlqDepth int
		if err := j.db.QueryRowContext(ctx, `SELECT count(*) FROM intake_dlq WHERE pool_id = $1`, poolID).Scan(&dlqDepth); err != nil {
			return fmt.Errorf("snapshot: dlq depth for %s: %w", poolID, err)
		}

		row := Row{
			PoolID:     poolID,
			Available:  counts.Available,
			Reserved:   counts.Reserved,
			Consumed:   counts.Consumed,
			QueueDepth: depth,
			DLQDepth:   dlqDepth,
			TakenAt:    now,
		}
		if err := j.insert(ctx, row); err != nil {
			return err
		}
	}
	return nil
}

func (j *Job) insert(ctx context.Context, row Row) error {
	const q = `
		INSERT INTO pool_snapshots (pool_id, available, reserved, consumed, queue_depth, dlq_depth, taken_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := j.db.ExecContext(ctx, q, row.PoolID, row.Available, row.Reserved,
		row.Consumed, row.QueueDepth, row.DLQDepth, row.TakenAt)
	if err != nil {
		return fmt.Errorf("snapshot: insert: %w", err)
	}
	return nil
}
