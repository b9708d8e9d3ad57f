package slotstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemStore is an in-memory Store used by unit and property tests. It
// reproduces ClaimOne's single-winner semantics with a mutex instead of
// SKIP LOCKED, which is sufficient for correctness tests even though it
// doesn't exercise real contention behavior.
type MemStore struct {
	mu    sync.Mutex
	slots map[string]*Slot
}

func NewMemStore() *MemStore {
	return &MemStore{slots: make(map[string]*Slot)}
}

func (s *MemStore) CreateSlots(_ context.Context, poolID string, n int) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make([]string, 0, n)
	for i := 0; i < n; i++ {
		id := uuid.NewString()
		s.slots[id] = &Slot{ID: id, PoolID: poolID, Status: Available}
		ids = append(ids, id)
	}
	return ids, nil
}

func (s *MemStore) ClaimOne(_ context.Context, poolID, lockedBy string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make([]string, 0)
	for id, slot := range s.slots {
		if slot.PoolID == poolID && slot.Status == Available {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return "", ErrSoldOut
	}
	sort.Strings(ids)

	chosen := s.slots[ids[0]]
	chosen.Status = Reserved
	chosen.LockedBy = &lockedBy
	now := time.Now()
	chosen.LockedAt = &now
	return chosen.ID, nil
}

func (s *MemStore) MarkConsumed(_ context.Context, slotID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	slot, ok := s.slots[slotID]
	if !ok || slot.Status != Reserved {
		return ErrSoldOut
	}
	slot.Status = Consumed
	return nil
}

func (s *MemStore) ReapOrphans(_ context.Context, cutoff time.Time, liveResourceIDs []string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	live := make(map[string]bool, len(liveResourceIDs))
	for _, id := range liveResourceIDs {
		live[id] = true
	}

	n := 0
	for _, slot := range s.slots {
		if slot.Status == Reserved && slot.LockedAt != nil && slot.LockedAt.Before(cutoff) && !live[slot.ID] {
			slot.Status = Available
			slot.LockedBy = nil
			slot.LockedAt = nil
			n++
		}
	}
	return n, nil
}

func (s *MemStore) Counts(_ context.Context, poolID string) (Counts, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var c Counts
	for _, slot := range s.slots {
		if slot.PoolID != poolID {
			continue
		}
		switch slot.Status {
		case Available:
			c.Available++
		case Reserved:
			c.Reserved++
		case Consumed:
			c.Consumed++
		}
	}
	return c, nil
}
