// Package claim implements the composite claim-resource-and-queue operation:
// reserve one slot, then enqueue it for the Bridge worker to drain. The two
// steps are not wrapped in a single transaction (slotstore and intakequeue
// may be different datastores in production); the Reaper is the documented
// backstop for the resulting weakened atomicity.
package claim

import (
	"context"
	"errors"
	"fmt"

	"github.com/ocx/ledger-intake/internal/intakequeue"
	"github.com/ocx/ledger-intake/internal/slotstore"
)

// Result is what the Claim API returns to the caller.
type Result struct {
	ResourceID string
	OK         bool
}

// Service composes a slot store and an intake queue into the claim
// operation.
type Service struct {
	Slots slotstore.Store
	Queue intakequeue.Queue
}

func New(slots slotstore.Store, queue intakequeue.Queue) *Service {
	return &Service{Slots: slots, Queue: queue}
}

// ClaimResourceAndQueue reserves one slot for poolID and enqueues it. A
// sold-out pool is not an error: callers should render it as "no resource
// available" (204 at the HTTP layer), never an error status. The claimed
// slot's id is the resource id end to end (§3/§4.3 invariant I2): it is
// never re-minted, so the Bridge worker's later MarkConsumed(resource_id)
// lookup always matches the slot it reserved.
func (s *Service) ClaimResourceAndQueue(ctx context.Context, poolID, userID string) (Result, error) {
	slotID, err := s.Slots.ClaimOne(ctx, poolID, userID)
	if errors.Is(err, slotstore.ErrSoldOut) {
		return Result{OK: false}, nil
	}
	if err != nil {
		return Result{}, fmt.Errorf("claim: reserve slot: %w", err)
	}

	_, err = s.Queue.Send(ctx, intakequeue.Payload{
		PoolID:     poolID,
		ResourceID: slotID,
		UserID:     userID,
		State:      intakequeue.Queued,
	})
	if err != nil {
		// Slot is now RESERVED but unqueued. This is the documented
		// weakened-atomicity window; the Reaper will release it once its
		// reservation goes stale.
		return Result{}, fmt.Errorf("claim: enqueue resource %s after reserving: %w", slotID, err)
	}

	return Result{ResourceID: slotID, OK: true}, nil
}
