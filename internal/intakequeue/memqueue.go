package intakequeue

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// MemQueue is an in-memory Queue+DLQStore used by unit tests.
type MemQueue struct {
	mu      sync.Mutex
	nextID  int64
	entries map[int64]*Envelope
	dlq     map[int64]*DLQEnvelope
}

func NewMemQueue() *MemQueue {
	return &MemQueue{
		entries: make(map[int64]*Envelope),
		dlq:     make(map[int64]*DLQEnvelope),
	}
}

func (q *MemQueue) Send(_ context.Context, p Payload) (int64, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.nextID++
	id := q.nextID
	p.State = Queued
	now := time.Now()
	q.entries[id] = &Envelope{MsgID: id, Payload: p, EnqueuedAt: now, VisibleAt: now}
	return id, nil
}

func (q *MemQueue) Read(_ context.Context, maxCount int, visibilityTimeout time.Duration) ([]Envelope, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	now := time.Now()
	ids := make([]int64, 0)
	for id, e := range q.entries {
		if !e.VisibleAt.After(now) {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	if len(ids) > maxCount {
		ids = ids[:maxCount]
	}

	out := make([]Envelope, 0, len(ids))
	for _, id := range ids {
		e := q.entries[id]
		e.VisibleAt = now.Add(visibilityTimeout)
		e.ReadCount++
		out = append(out, *e)
	}
	return out, nil
}

func (q *MemQueue) Delete(_ context.Context, msgID int64) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	delete(q.entries, msgID)
	return nil
}

func (q *MemQueue) MoveToDLQ(_ context.Context, msgID int64, reason string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	e, ok := q.entries[msgID]
	if !ok {
		return fmt.Errorf("intakequeue: message %d not found", msgID)
	}
	q.dlq[msgID] = &DLQEnvelope{
		OriginalMsgID:  msgID,
		Payload:        e.Payload,
		FinalReadCount: e.ReadCount,
		RoutedToDLQAt:  time.Now(),
		Reason:         reason,
	}
	delete(q.entries, msgID)
	return nil
}

func (q *MemQueue) Depth(_ context.Context) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.entries), nil
}

func (q *MemQueue) LiveResourceIDs(_ context.Context) ([]string, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]string, 0, len(q.entries))
	for _, e := range q.entries {
		out = append(out, e.Payload.ResourceID)
	}
	return out, nil
}

func (q *MemQueue) List(_ context.Context, poolID string, limit int) ([]DLQEnvelope, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make([]DLQEnvelope, 0)
	for _, e := range q.dlq {
		if e.Payload.PoolID == poolID {
			out = append(out, *e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OriginalMsgID < out[j].OriginalMsgID })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (q *MemQueue) Replay(_ context.Context, originalMsgID int64) (int64, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	dlqEntry, ok := q.dlq[originalMsgID]
	if !ok {
		return 0, fmt.Errorf("intakequeue: dlq message %d not found", originalMsgID)
	}

	q.nextID++
	newID := q.nextID
	p := dlqEntry.Payload
	p.State = Queued
	now := time.Now()
	q.entries[newID] = &Envelope{MsgID: newID, Payload: p, EnqueuedAt: now, VisibleAt: now}
	delete(q.dlq, originalMsgID)
	return newID, nil
}

func (q *MemQueue) Discard(_ context.Context, originalMsgID int64) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	delete(q.dlq, originalMsgID)
	return nil
}
