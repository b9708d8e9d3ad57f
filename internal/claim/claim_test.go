package claim

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ocx/ledger-intake/internal/intakequeue"
	"github.com/ocx/ledger-intake/internal/slotstore"
)

func TestClaimResourceAndQueue_Success(t *testing.T) {
	ctx := context.Background()
	slots := slotstore.NewMemStore()
	queue := intakequeue.NewMemQueue()
	svc := New(slots, queue)

	ids, err := slots.CreateSlots(ctx, "pool-a", 1)
	require.NoError(t, err)

	res, err := svc.ClaimResourceAndQueue(ctx, "pool-a", "user-1")
	require.NoError(t, err)
	assert.True(t, res.OK)
	assert.NotEmpty(t, res.ResourceID)
	assert.Equal(t, ids[0], res.ResourceID, "resource_id must equal the claimed slot id")

	depth, err := queue.Depth(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, depth)
}

func TestClaimResourceAndQueue_SoldOutIsNotAnError(t *testing.T) {
	ctx := context.Background()
	slots := slotstore.NewMemStore()
	queue := intakequeue.NewMemQueue()
	svc := New(slots, queue)

	res, err := svc.ClaimResourceAndQueue(ctx, "pool-empty", "user-1")
	require.NoError(t, err)
	assert.False(t, res.OK)
	assert.Empty(t, res.ResourceID)
}

func TestClaimResourceAndQueue_ConcurrentSoldOutRace(t *testing.T) {
	ctx := context.Background()
	slots := slotstore.NewMemStore()
	queue := intakequeue.NewMemQueue()
	svc := New(slots, queue)

	const n = 20
	_, err := slots.CreateSlots(ctx, "pool-a", n)
	require.NoError(t, err)

	var wg sync.WaitGroup
	results := make(chan Result, n+10)
	for i := 0; i < n+10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := svc.ClaimResourceAndQueue(ctx, "pool-a", "user")
			require.NoError(t, err)
			results <- res
		}()
	}
	wg.Wait()
	close(results)

	ok, soldOut := 0, 0
	seen := make(map[string]bool)
	for res := range results {
		if res.OK {
			assert.False(t, seen[res.ResourceID], "resource_id issued twice: %s", res.ResourceID)
			seen[res.ResourceID] = true
			ok++
		} else {
			soldOut++
		}
	}
	assert.Equal(t, n, ok)
	assert.Equal(t, 10, soldOut)

	depth, err := queue.Depth(ctx)
	require.NoError(t, err)
	assert.Equal(t, n, depth)
}
