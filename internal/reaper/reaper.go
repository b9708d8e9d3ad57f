// Package reaper releases RESERVED slots whose reservation has gone stale
// (claimed but never consumed, and never re-queued), backstopping the
// claim operation's weakened atomicity. Invoked on a ~2-minute cadence by
// an external scheduler; never self-throttles.
package reaper

import (
	"context"
	"fmt"
	"time"

	"github.com/ocx/ledger-intake/internal/intakequeue"
	"github.com/ocx/ledger-intake/internal/metrics"
	"github.com/ocx/ledger-intake/internal/slotstore"
)

// Reaper sweeps one or more pools' stale reservations. It holds a Queue
// reference because releasing a slot is only safe when its message is no
// longer live in the intake queue: a claim whose drain trigger has been
// down past the threshold must not be double-allocated out from under it.
type Reaper struct {
	Slots     slotstore.Store
	Queue     intakequeue.Queue
	Threshold time.Duration
}

func New(slots slotstore.Store, queue intakequeue.Queue, threshold time.Duration) *Reaper {
	return &Reaper{Slots: slots, Queue: queue, Threshold: threshold}
}

// Run releases every RESERVED slot locked before now-threshold that has no
// live message in the intake queue, and returns how many were released.
// Ignores DLQ presence entirely: only the live intake queue gates release,
// so a slot whose message was routed to the DLQ is released like any other
// orphan once its reservation is older than the threshold (see DESIGN.md
// Open Question 1).
func (r *Reaper) Run(ctx context.Context) (int, error) {
	liveIDs, err := r.Queue.LiveResourceIDs(ctx)
	if err != nil {
		return 0, fmt.Errorf("reaper: live resource ids: %w", err)
	}

	cutoff := time.Now().Add(-r.Threshold)
	n, err := r.Slots.ReapOrphans(ctx, cutoff, liveIDs)
	if err != nil {
		return 0, err
	}
	metrics.ReapedSlotsTotal.Add(float64(n))
	return n, nil
}
