package slotstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// ErrSoldOut is returned by ClaimOne when a pool has no AVAILABLE slot.
var ErrSoldOut = errors.New("slotstore: no available slot")

// Store is the inventory claim engine's persistence contract. Implemented
// by PostgresStore for production and MemStore for tests.
type Store interface {
	// CreateSlots provisions n fresh AVAILABLE slots for a pool. Used by
	// operator seeding, not by request-path code.
	CreateSlots(ctx context.Context, poolID string, n int) ([]string, error)

	// ClaimOne atomically reserves exactly one AVAILABLE slot for poolID,
	// tagging it with lockedBy (the claiming user's id). Returns ErrSoldOut
	// if none are available.
	ClaimOne(ctx context.Context, poolID, lockedBy string) (slotID string, err error)

	// MarkConsumed transitions a RESERVED slot to CONSUMED. Called by the
	// Bridge worker after a successful ledger commit.
	MarkConsumed(ctx context.Context, slotID string) error

	// ReapOrphans releases RESERVED slots locked before cutoff back to
	// AVAILABLE, skipping any slot whose id appears in liveResourceIDs (it
	// still has a live, un-drained message in the intake queue), and
	// returns how many were released.
	ReapOrphans(ctx context.Context, cutoff time.Time, liveResourceIDs []string) (int, error)

	// Counts reports the current AVAILABLE/RESERVED/CONSUMED distribution
	// for a pool.
	Counts(ctx context.Context, poolID string) (Counts, error)
}

// PostgresStore is the production Store backed by database/sql + lib/pq.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) CreateSlots(ctx context.Context, poolID string, n int) ([]string, error) {
	if n <= 0 {
		return nil, fmt.Errorf("slotstore: n must be positive, got %d", n)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("slotstore: begin tx: %w", err)
	}
	defer tx.Rollback()

	ids := make([]string, 0, n)
	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO slots (id, pool_id, status) VALUES ($1, $2, $3)`)
	if err != nil {
		return nil, fmt.Errorf("slotstore: prepare insert: %w", err)
	}
	defer stmt.Close()

	for i := 0; i < n; i++ {
		id := uuid.NewString()
		if _, err := stmt.ExecContext(ctx, id, poolID, Available); err != nil {
			return nil, fmt.Errorf("slotstore: insert slot: %w", err)
		}
		ids = append(ids, id)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("slotstore: commit: %w", err)
	}
	return ids, nil
}

// ClaimOne implements the skip-locked fast path documented in SPEC_FULL.md
// §4.1: a single UPDATE with a correlated subquery, no application-level
// retry loop needed because SKIP LOCKED means two concurrent claimants
// never pick the same row.
func (s *PostgresStore) ClaimOne(ctx context.Context, poolID, lockedBy string) (string, error) {
	const q = `
		UPDATE slots SET status = $3, locked_by = $2, locked_at = now()
		WHERE id = (
			SELECT id FROM slots
			WHERE pool_id = $1 AND status = $4
			ORDER BY id
			FOR UPDATE SKIP LOCKED
			LIMIT 1
		)
		RETURNING id`

	var id string
	err := s.db.QueryRowContext(ctx, q, poolID, lockedBy, Reserved, Available).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrSoldOut
	}
	if err != nil {
		return "", fmt.Errorf("slotstore: claim one: %w", err)
	}
	return id, nil
}

func (s *PostgresStore) MarkConsumed(ctx context.Context, slotID string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE slots SET status = $2 WHERE id = $1 AND status = $3`,
		slotID, Consumed, Reserved)
	if err != nil {
		return fmt.Errorf("slotstore: mark consumed: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("slotstore: mark consumed rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("slotstore: slot %s not in RESERVED state", slotID)
	}
	return nil
}

// ReapOrphans is the backstop for the claim operation's weakened atomicity:
// a slot reserved but never queued, or queued but never drained, is
// released back to AVAILABLE once it has sat RESERVED past cutoff. A slot
// whose id is still present in liveResourceIDs is skipped even past
// cutoff: its message is still in flight (e.g. the drain trigger has been
// down), so releasing the slot would double-allocate a resource that
// already has an in-flight or committed intent. Uses the same SKIP LOCKED
// shape as ClaimOne so it never contends with it.
func (s *PostgresStore) ReapOrphans(ctx context.Context, cutoff time.Time, liveResourceIDs []string) (int, error) {
	const q = `
		UPDATE slots SET status = $1, locked_by = NULL, locked_at = NULL
		WHERE id IN (
			SELECT id FROM slots
			WHERE status = $2 AND locked_at < $3 AND NOT (id = ANY($4))
			FOR UPDATE SKIP LOCKED
		)`

	// pq.Array(nil) is sent as SQL NULL, and NOT (id = ANY(NULL)) matches
	// no row; an empty array keeps the filter a no-op instead.
	if liveResourceIDs == nil {
		liveResourceIDs = []string{}
	}

	res, err := s.db.ExecContext(ctx, q, Available, Reserved, cutoff, pq.Array(liveResourceIDs))
	if err != nil {
		return 0, fmt.Errorf("slotstore: reap orphans: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("slotstore: reap orphans rows affected: %w", err)
	}
	return int(n), nil
}

func (s *PostgresStore) Counts(ctx context.Context, poolID string) (Counts, error) {
	const q = `
		SELECT
			count(*) FILTER (WHERE status = $2),
			count(*) FILTER (WHERE status = $3),
			count(*) FILTER (WHERE status = $4)
		FROM slots WHERE pool_id = $1`

	var c Counts
	err := s.db.QueryRowContext(ctx, q, poolID, Available, Reserved, Consumed).
		Scan(&c.Available, &c.Reserved, &c.Consumed)
	if err != nil {
		return Counts{}, fmt.Errorf("slotstore: counts: %w", err)
	}
	return c, nil
}
