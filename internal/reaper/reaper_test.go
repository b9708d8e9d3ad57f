package reaper

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ocx/ledger-intake/internal/intakequeue"
	"github.com/ocx/ledger-intake/internal/slotstore"
)

func TestRun_ReleasesOrphanedReservationWithNoLiveMessage(t *testing.T) {
	ctx := context.Background()
	slots := slotstore.NewMemStore()
	queue := intakequeue.NewMemQueue()

	ids, err := slots.CreateSlots(ctx, "pool-a", 1)
	require.NoError(t, err)

	_, err = slots.ClaimOne(ctx, "pool-a", "resource-abandoned")
	require.NoError(t, err)

	// No message was ever queued for this slot (or it was later drained
	// and deleted) - nothing live references it.
	r := New(slots, queue, time.Millisecond)
	time.Sleep(5 * time.Millisecond)

	n, err := r.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	counts, err := slots.Counts(ctx, "pool-a")
	require.NoError(t, err)
	assert.Equal(t, 1, counts.Available)
	assert.Equal(t, 0, counts.Reserved)

	// The released slot can be claimed again.
	reclaimed, err := slots.ClaimOne(ctx, "pool-a", "resource-new")
	require.NoError(t, err)
	assert.Equal(t, ids[0], reclaimed)
}

func TestRun_DoesNotTouchFreshReservations(t *testing.T) {
	ctx := context.Background()
	slots := slotstore.NewMemStore()
	queue := intakequeue.NewMemQueue()

	_, err := slots.CreateSlots(ctx, "pool-a", 1)
	require.NoError(t, err)
	_, err = slots.ClaimOne(ctx, "pool-a", "resource-live")
	require.NoError(t, err)

	r := New(slots, queue, time.Hour)
	n, err := r.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestRun_SkipsStaleReservationWithLiveQueueMessage(t *testing.T) {
	ctx := context.Background()
	slots := slotstore.NewMemStore()
	queue := intakequeue.NewMemQueue()

	ids, err := slots.CreateSlots(ctx, "pool-a", 1)
	require.NoError(t, err)

	slotID, err := slots.ClaimOne(ctx, "pool-a", "user-1")
	require.NoError(t, err)
	require.Equal(t, ids[0], slotID)

	// The claim's message is still sitting in the intake queue, undrained
	// (e.g. the drain trigger has been down) - the slot must stay RESERVED
	// even past the staleness threshold.
	_, err = queue.Send(ctx, intakequeue.Payload{PoolID: "pool-a", ResourceID: slotID, UserID: "user-1"})
	require.NoError(t, err)

	r := New(slots, queue, time.Millisecond)
	time.Sleep(5 * time.Millisecond)

	n, err := r.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	counts, err := slots.Counts(ctx, "pool-a")
	require.NoError(t, err)
	assert.Equal(t, 1, counts.Reserved)
	assert.Equal(t, 0, counts.Available)
}
