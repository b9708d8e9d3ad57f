package intakequeue

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Queue is the persistence contract for the intake queue and its DLQ.
// Implemented by PostgresQueue for production and MemQueue for tests.
type Queue interface {
	// Send enqueues a new message, visible immediately.
	Send(ctx context.Context, p Payload) (msgID int64, err error)

	// Read leases up to maxCount messages currently visible, bumping their
	// visible_at to now+visibilityTimeout and incrementing read_ct. Uses
	// skip-locked selection so concurrent readers never double-lease a row.
	Read(ctx context.Context, maxCount int, visibilityTimeout time.Duration) ([]Envelope, error)

	// Delete removes a message after it has been fully processed (acked).
	Delete(ctx context.Context, msgID int64) error

	// MoveToDLQ atomically relocates a message to the dead-letter queue and
	// removes it from the source queue.
	MoveToDLQ(ctx context.Context, msgID int64, reason string) error

	// Depth reports the current global intake queue depth (Non-goal: no
	// per-pool breakdown).
	Depth(ctx context.Context) (int, error)

	// LiveResourceIDs returns the resource_id of every message currently
	// sitting in the intake queue, live or not yet drained. Used by the
	// Reaper to avoid releasing a slot whose message is still in flight.
	LiveResourceIDs(ctx context.Context) ([]string, error)
}

// DLQStore is the read/admin side of the dead-letter queue, separated from
// Queue because the admin surface (list/replay/discard) operates over a
// different shape than the drain path.
type DLQStore interface {
	List(ctx context.Context, poolID string, limit int) ([]DLQEnvelope, error)
	Replay(ctx context.Context, originalMsgID int64) (newMsgID int64, err error)
	Discard(ctx context.Context, originalMsgID int64) error
}

// PostgresQueue is the production Queue+DLQStore backed by database/sql +
// lib/pq, over the intake_queue/intake_dlq tables.
type PostgresQueue struct {
	db *sql.DB
}

func NewPostgresQueue(db *sql.DB) *PostgresQueue {
	return &PostgresQueue{db: db}
}

func (q *PostgresQueue) Send(ctx context.Context, p Payload) (int64, error) {
	const query = `
		INSERT INTO intake_queue (pool_id, resource_id, user_id, state, read_ct, enqueued_at, visible_at)
		VALUES ($1, $2, $3, $4, 0, now(), now())
		RETURNING id`

	var id int64
	err := q.db.QueryRowContext(ctx, query, p.PoolID, p.ResourceID, p.UserID, Queued).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("intakequeue: send: %w", err)
	}
	return id, nil
}

// Read implements the batched skip-locked lease documented in
// SPEC_FULL.md §4.2: select up to maxCount visible rows, lock them, and
// bump their lease in the same statement.
func (q *PostgresQueue) Read(ctx context.Context, maxCount int, visibilityTimeout time.Duration) ([]Envelope, error) {
	const query = `
		UPDATE intake_queue AS q
		SET visible_at = now() + $1::interval, read_ct = q.read_ct + 1
		FROM (
			SELECT id FROM intake_queue
			WHERE visible_at <= now()
			ORDER BY id
			FOR UPDATE SKIP LOCKED
			LIMIT $2
		) leased
		WHERE q.id = leased.id
		RETURNING q.id, q.pool_id, q.resource_id, q.user_id, q.state, q.read_ct, q.enqueued_at, q.visible_at`

	rows, err := q.db.QueryContext(ctx, query, fmt.Sprintf("%d milliseconds", visibilityTimeout.Milliseconds()), maxCount)
	if err != nil {
		return nil, fmt.Errorf("intakequeue: read: %w", err)
	}
	defer rows.Close()

	var out []Envelope
	for rows.Next() {
		var e Envelope
		if err := rows.Scan(&e.MsgID, &e.Payload.PoolID, &e.Payload.ResourceID,
			&e.Payload.UserID, &e.Payload.State, &e.ReadCount, &e.EnqueuedAt, &e.VisibleAt); err != nil {
			return nil, fmt.Errorf("intakequeue: read scan: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (q *PostgresQueue) Delete(ctx context.Context, msgID int64) error {
	if _, err := q.db.ExecContext(ctx, `DELETE FROM intake_queue WHERE id = $1`, msgID); err != nil {
		return fmt.Errorf("intakequeue: delete: %w", err)
	}
	return nil
}

func (q *PostgresQueue) MoveToDLQ(ctx context.Context, msgID int64, reason string) error {
	tx, err := q.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("intakequeue: move to dlq begin: %w", err)
	}
	defer tx.Rollback()

	const insert = `
		INSERT INTO intake_dlq (original_msg_id, pool_id, resource_id, user_id, state, final_read_ct, routed_to_dlq_at, reason)
		SELECT id, pool_id, resource_id, user_id, state, read_ct, now(), $2
		FROM intake_queue WHERE id = $1`
	res, err := tx.ExecContext(ctx, insert, msgID, reason)
	if err != nil {
		return fmt.Errorf("intakequeue: move to dlq insert: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("intakequeue: move to dlq rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("intakequeue: message %d not found", msgID)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM intake_queue WHERE id = $1`, msgID); err != nil {
		return fmt.Errorf("intakequeue: move to dlq delete: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("intakequeue: move to dlq commit: %w", err)
	}
	return nil
}

func (q *PostgresQueue) Depth(ctx context.Context) (int, error) {
	var n int
	if err := q.db.QueryRowContext(ctx, `SELECT count(*) FROM intake_queue`).Scan(&n); err != nil {
		return 0, fmt.Errorf("intakequeue: depth: %w", err)
	}
	return n, nil
}

func (q *PostgresQueue) LiveResourceIDs(ctx context.Context) ([]string, error) {
	rows, err := q.db.QueryContext(ctx, `SELECT resource_id FROM intake_queue`)
	if err != nil {
		return nil, fmt.Errorf("intakequeue: live resource ids: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("intakequeue: live resource ids scan: %w", err)
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

func (q *PostgresQueue) List(ctx context.Context, poolID string, limit int) ([]DLQEnvelope, error) {
	const query = `
		SELECT original_msg_id, pool_id, resource_id, user_id, state, final_read_ct, routed_to_dlq_at, reason
		FROM intake_dlq WHERE pool_id = $1 ORDER BY routed_to_dlq_at LIMIT $2`

	rows, err := q.db.QueryContext(ctx, query, poolID, limit)
	if err != nil {
		return nil, fmt.Errorf("intakequeue: dlq list: %w", err)
	}
	defer rows.Close()

	var out []DLQEnvelope
	for rows.Next() {
		var e DLQEnvelope
		if err := rows.Scan(&e.OriginalMsgID, &e.Payload.PoolID, &e.Payload.ResourceID,
			&e.Payload.UserID, &e.Payload.State, &e.FinalReadCount, &e.RoutedToDLQAt, &e.Reason); err != nil {
			return nil, fmt.Errorf("intakequeue: dlq list scan: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (q *PostgresQueue) Replay(ctx context.Context, originalMsgID int64) (int64, error) {
	tx, err := q.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("intakequeue: replay begin: %w", err)
	}
	defer tx.Rollback()

	var p Payload
	err = tx.QueryRowContext(ctx,
		`SELECT pool_id, resource_id, user_id FROM intake_dlq WHERE original_msg_id = $1`,
		originalMsgID).Scan(&p.PoolID, &p.ResourceID, &p.UserID)
	if err != nil {
		return 0, fmt.Errorf("intakequeue: replay lookup: %w", err)
	}
	p.State = Queued

	var newID int64
	err = tx.QueryRowContext(ctx,
		`INSERT INTO intake_queue (pool_id, resource_id, user_id, state, read_ct, enqueued_at, visible_at)
		 VALUES ($1, $2, $3, $4, 0, now(), now()) RETURNING id`,
		p.PoolID, p.ResourceID, p.UserID, p.State).Scan(&newID)
	if err != nil {
		return 0, fmt.Errorf("intakequeue: replay insert: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM intake_dlq WHERE original_msg_id = $1`, originalMsgID); err != nil {
		return 0, fmt.Errorf("intakequeue: replay delete: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("intakequeue: replay commit: %w", err)
	}
	return newID, nil
}

func (q *PostgresQueue) Discard(ctx context.Context, originalMsgID int64) error {
	if _, err := q.db.ExecContext(ctx, `DELETE FROM intake_dlq WHERE original_msg_id = $1`, originalMsgID); err != nil {
		return fmt.Errorf("intakequeue: discard: %w", err)
	}
	return nil
}
