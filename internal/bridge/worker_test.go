package bridge

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ocx/ledger-intake/internal/intakequeue"
	"github.com/ocx/ledger-intake/internal/ledgerclient"
	"github.com/ocx/ledger-intake/internal/poolconfig"
	"github.com/ocx/ledger-intake/internal/realtime"
	"github.com/ocx/ledger-intake/internal/slotstore"
	"github.com/ocx/ledger-intake/internal/validator"
	"github.com/ocx/ledger-intake/pb"
)

func newTestWorker(t *testing.T) (*Worker, *intakequeue.MemQueue, *slotstore.MemStore, *poolconfig.MemStore, *pb.MockLedgerClient, *realtime.MemPublisher) {
	t.Helper()
	queue := intakequeue.NewMemQueue()
	slots := slotstore.NewMemStore()
	configs := poolconfig.NewMemStore(poolconfig.DefaultDefaults())
	mockLedger := pb.NewMockLedgerClient()
	ledger := ledgerclient.New(mockLedger)
	val := validator.NewClient(2 * time.Second)
	events := realtime.NewMemPublisher()

	w := New(queue, slots, configs, val, ledger, events, time.Minute)
	return w, queue, slots, configs, mockLedger, events
}

func TestDrainOnce_EmptyQueueReturnsZeroSummary(t *testing.T) {
	w, _, _, _, _, _ := newTestWorker(t)

	summary, err := w.DrainOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Summary{}, summary)
}

func TestDrainOnce_HappyPathNoWebhooksConfigured(t *testing.T) {
	ctx := context.Background()
	w, queue, slots, _, mockLedger, events := newTestWorker(t)

	_, err := slots.CreateSlots(ctx, "pool-a", 1)
	require.NoError(t, err)
	slotID, err := slots.ClaimOne(ctx, "pool-a", "r1")
	require.NoError(t, err)

	_, err = queue.Send(ctx, intakequeue.Payload{PoolID: "pool-a", ResourceID: slotID, UserID: "u1"})
	require.NoError(t, err)

	summary, err := w.DrainOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, Summary{Processed: 1, DLQ: 0, Total: 1}, summary)

	counts, err := slots.Counts(ctx, "pool-a")
	require.NoError(t, err)
	assert.Equal(t, 1, counts.Consumed)

	assert.Equal(t, 1, mockLedger.CommitCount())
	assert.Len(t, events.Events, 1)
	assert.Equal(t, slotID, events.Events[0].ResourceID)

	depth, err := queue.Depth(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, depth)
}

func TestDrainOnce_InactivePoolRoutesToDLQ(t *testing.T) {
	ctx := context.Background()
	w, queue, _, configs, _, _ := newTestWorker(t)

	require.NoError(t, configs.Upsert(ctx, poolconfig.Config{
		PoolID: "pool-b", IsActive: false, MaxRetries: 10, CommitRPCName: "finalize_transaction",
	}))

	_, err := queue.Send(ctx, intakequeue.Payload{PoolID: "pool-b", ResourceID: "r1", UserID: "u1"})
	require.NoError(t, err)

	summary, err := w.DrainOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, Summary{Processed: 0, DLQ: 1, Total: 1}, summary)

	entries, err := queue.List(ctx, "pool-b", 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "pool inactive", entries[0].Reason)
}

func TestDrainOnce_MalformedPayloadRoutesToDLQ(t *testing.T) {
	ctx := context.Background()
	w, queue, _, _, _, _ := newTestWorker(t)

	_, err := queue.Send(ctx, intakequeue.Payload{PoolID: "pool-a", ResourceID: "", UserID: "u1"})
	require.NoError(t, err)

	summary, err := w.DrainOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.DLQ)
}

func TestDrainOnce_TransientValidatorFailureLeavesMessageUnacked(t *testing.T) {
	ctx := context.Background()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	w, queue, slots, configs, _, _ := newTestWorker(t)
	url := srv.URL

	_, err := slots.CreateSlots(ctx, "pool-a", 1)
	require.NoError(t, err)
	slotID, err := slots.ClaimOne(ctx, "pool-a", "r1")
	require.NoError(t, err)

	require.NoError(t, configs.Upsert(ctx, poolconfig.Config{
		PoolID: "pool-a", IsActive: true, MaxRetries: 10, CommitRPCName: "finalize_transaction",
		ValidationWebhookURL: &url,
	}))

	_, err = queue.Send(ctx, intakequeue.Payload{PoolID: "pool-a", ResourceID: slotID, UserID: "u1"})
	require.NoError(t, err)

	summary, err := w.DrainOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, Summary{Processed: 0, DLQ: 0, Total: 1}, summary)

	depth, err := queue.Depth(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, depth, "message should remain queued for redelivery")

	counts, err := slots.Counts(ctx, "pool-a")
	require.NoError(t, err)
	assert.Equal(t, 0, counts.Consumed)
}

func TestDrainOnce_RetryExhaustionRoutesToDLQ(t *testing.T) {
	ctx := context.Background()
	w, queue, _, configs, _, _ := newTestWorker(t)

	require.NoError(t, configs.Upsert(ctx, poolconfig.Config{
		PoolID: "pool-a", IsActive: true, MaxRetries: 0, CommitRPCName: "finalize_transaction",
	}))

	_, err := queue.Send(ctx, intakequeue.Payload{PoolID: "pool-a", ResourceID: "r1", UserID: "u1"})
	require.NoError(t, err)

	// First read bumps read_ct to 1, which already exceeds MaxRetries=0.
	_, err = queue.Read(ctx, 10, time.Millisecond)
	require.NoError(t, err)
	time.Sleep(2 * time.Millisecond)

	summary, err := w.DrainOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.DLQ)

	entries, err := queue.List(ctx, "pool-a", 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "retry budget exhausted", entries[0].Reason)
}

func TestDrainOnce_DoubleCommitIsIdempotent(t *testing.T) {
	ctx := context.Background()
	w, queue, slots, _, mockLedger, _ := newTestWorker(t)

	_, err := slots.CreateSlots(ctx, "pool-a", 1)
	require.NoError(t, err)
	slotID, err := slots.ClaimOne(ctx, "pool-a", "r1")
	require.NoError(t, err)

	_, err = queue.Send(ctx, intakequeue.Payload{PoolID: "pool-a", ResourceID: slotID, UserID: "u1", State: intakequeue.Validated})
	require.NoError(t, err)

	_, err = w.DrainOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, mockLedger.CommitCount())

	// Re-queue the same resource_id and drain again: ledger commit count
	// must not increase (idempotent upsert keyed by resource_id).
	_, err = queue.Send(ctx, intakequeue.Payload{PoolID: "pool-a", ResourceID: slotID, UserID: "u1", State: intakequeue.Validated})
	require.NoError(t, err)
	_, err = w.DrainOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, mockLedger.CommitCount())
}
