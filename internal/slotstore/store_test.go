package slotstore

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClaimOne_SoldOut(t *testing.T) {
	ctx := context.Background()
	store := NewMemStore()

	_, err := store.CreateSlots(ctx, "pool-a", 1)
	require.NoError(t, err)

	_, err = store.ClaimOne(ctx, "pool-a", "claimant-1")
	require.NoError(t, err)

	_, err = store.ClaimOne(ctx, "pool-a", "claimant-2")
	assert.ErrorIs(t, err, ErrSoldOut)
}

func TestClaimOne_NoTwoClaimantsGetSameSlot(t *testing.T) {
	ctx := context.Background()
	store := NewMemStore()

	const n = 50
	_, err := store.CreateSlots(ctx, "pool-a", n)
	require.NoError(t, err)

	var wg sync.WaitGroup
	results := make(chan string, n+10)
	for i := 0; i < n+10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id, err := store.ClaimOne(ctx, "pool-a", "claimant")
			if err == nil {
				results <- id
			}
		}(i)
	}
	wg.Wait()
	close(results)

	seen := make(map[string]bool)
	count := 0
	for id := range results {
		assert.False(t, seen[id], "slot %s claimed twice", id)
		seen[id] = true
		count++
	}
	assert.Equal(t, n, count)
}

func TestSlotConservation(t *testing.T) {
	ctx := context.Background()
	store := NewMemStore()

	const n = 10
	_, err := store.CreateSlots(ctx, "pool-a", n)
	require.NoError(t, err)

	claimed := make([]string, 0, 4)
	for i := 0; i < 4; i++ {
		id, err := store.ClaimOne(ctx, "pool-a", "claimant")
		require.NoError(t, err)
		claimed = append(claimed, id)
	}
	require.NoError(t, store.MarkConsumed(ctx, claimed[0]))

	counts, err := store.Counts(ctx, "pool-a")
	require.NoError(t, err)
	assert.Equal(t, n, counts.Total())
	assert.Equal(t, 1, counts.Consumed)
	assert.Equal(t, 3, counts.Reserved)
	assert.Equal(t, 6, counts.Available)
}

func TestReapOrphans_ReleasesOnlyStaleReservations(t *testing.T) {
	ctx := context.Background()
	store := NewMemStore()

	_, err := store.CreateSlots(ctx, "pool-a", 2)
	require.NoError(t, err)

	staleID, err := store.ClaimOne(ctx, "pool-a", "claimant-stale")
	require.NoError(t, err)
	freshID, err := store.ClaimOne(ctx, "pool-a", "claimant-fresh")
	require.NoError(t, err)

	// Backdate the stale claim's lock time directly (test-only reach-in).
	store.slots[staleID].LockedAt = timePtr(time.Now().Add(-time.Hour))

	n, err := store.ReapOrphans(ctx, time.Now().Add(-time.Minute), nil)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	counts, err := store.Counts(ctx, "pool-a")
	require.NoError(t, err)
	assert.Equal(t, 1, counts.Available)
	assert.Equal(t, 1, counts.Reserved)

	require.NoError(t, store.MarkConsumed(ctx, freshID))
}

func TestReapOrphans_SkipsSlotWithLiveResourceID(t *testing.T) {
	ctx := context.Background()
	store := NewMemStore()

	_, err := store.CreateSlots(ctx, "pool-a", 1)
	require.NoError(t, err)

	staleID, err := store.ClaimOne(ctx, "pool-a", "claimant-stale")
	require.NoError(t, err)
	store.slots[staleID].LockedAt = timePtr(time.Now().Add(-time.Hour))

	n, err := store.ReapOrphans(ctx, time.Now().Add(-time.Minute), []string{staleID})
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	counts, err := store.Counts(ctx, "pool-a")
	require.NoError(t, err)
	assert.Equal(t, 1, counts.Reserved)
}

func timePtr(t time.Time) *time.Time { return &t }
