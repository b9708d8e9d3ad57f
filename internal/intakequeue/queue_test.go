package intakequeue

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendReadDelete(t *testing.T) {
	ctx := context.Background()
	q := NewMemQueue()

	id, err := q.Send(ctx, Payload{PoolID: "pool-a", ResourceID: "r1", UserID: "u1"})
	require.NoError(t, err)

	leased, err := q.Read(ctx, 10, 45*time.Second)
	require.NoError(t, err)
	require.Len(t, leased, 1)
	assert.Equal(t, id, leased[0].MsgID)
	assert.Equal(t, 1, leased[0].ReadCount)

	// Not visible again until the lease expires.
	leased2, err := q.Read(ctx, 10, 45*time.Second)
	require.NoError(t, err)
	assert.Empty(t, leased2)

	require.NoError(t, q.Delete(ctx, id))
	depth, err := q.Depth(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, depth)
}

func TestReadCtBoundedAtSuccessfulDelete(t *testing.T) {
	ctx := context.Background()
	q := NewMemQueue()
	maxRetries := 3

	id, err := q.Send(ctx, Payload{PoolID: "pool-a", ResourceID: "r1", UserID: "u1"})
	require.NoError(t, err)

	for i := 0; i < maxRetries; i++ {
		leased, err := q.Read(ctx, 10, 0)
		require.NoError(t, err)
		require.Len(t, leased, 1)
		assert.LessOrEqual(t, leased[0].ReadCount, maxRetries+1)
	}

	require.NoError(t, q.Delete(ctx, id))
}

func TestMoveToDLQAndReplay(t *testing.T) {
	ctx := context.Background()
	q := NewMemQueue()

	id, err := q.Send(ctx, Payload{PoolID: "pool-a", ResourceID: "r1", UserID: "u1"})
	require.NoError(t, err)

	require.NoError(t, q.MoveToDLQ(ctx, id, "retry exhausted"))

	depth, err := q.Depth(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, depth)

	entries, err := q.List(ctx, "pool-a", 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "retry exhausted", entries[0].Reason)

	newID, err := q.Replay(ctx, id)
	require.NoError(t, err)
	assert.NotEqual(t, id, newID)

	depth, err = q.Depth(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, depth)

	entries, err = q.List(ctx, "pool-a", 10)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestDiscard(t *testing.T) {
	ctx := context.Background()
	q := NewMemQueue()

	id, err := q.Send(ctx, Payload{PoolID: "pool-a", ResourceID: "r1", UserID: "u1"})
	require.NoError(t, err)
	require.NoError(t, q.MoveToDLQ(ctx, id, "malformed payload"))

	require.NoError(t, q.Discard(ctx, id))

	entries, err := q.List(ctx, "pool-a", 10)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
