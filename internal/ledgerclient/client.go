// Package ledgerclient wraps the external ledger service's gRPC client
// (pb.LedgerServiceClient), presenting an idempotent Commit keyed by
// resource_id, generalized to accept the per-pool commit_rpc_name as a
// call selector the way internal/ledger/client.go wrapped a single
// hardcoded RecordEntry RPC.
package ledgerclient

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/ocx/ledger-intake/pb"
)

// Record is the confirmation the Bridge worker needs after a successful
// commit, to mark the slot CONSUMED and emit a realtime event.
type Record struct {
	ResourceID  string
	PoolID      string
	UserID      string
	ConfirmedAt time.Time
}

// Client commits a claimed resource to the external ledger.
type Client struct {
	rpc pb.LedgerServiceClient
}

func New(rpc pb.LedgerServiceClient) *Client {
	return &Client{rpc: rpc}
}

// Commit performs an idempotent insert-if-absent keyed by resourceID.
// rpcName is the per-pool commit_rpc_name from poolconfig.Config, carried
// as a field on the wire payload rather than a distinct transport method,
// since the underlying service dispatches on it internally.
func (c *Client) Commit(ctx context.Context, rpcName, poolID, resourceID, userID string) (Record, error) {
	req, err := structpb.NewStruct(map[string]interface{}{
		"rpc_method":  rpcName,
		"pool_id":     poolID,
		"resource_id": resourceID,
		"user_id":     userID,
	})
	if err != nil {
		return Record{}, fmt.Errorf("ledgerclient: build request: %w", err)
	}

	if _, err := c.rpc.Commit(ctx, req); err != nil {
		return Record{}, fmt.Errorf("ledgerclient: commit %s: %w", resourceID, err)
	}

	return Record{
		ResourceID:  resourceID,
		PoolID:      poolID,
		UserID:      userID,
		ConfirmedAt: time.Now(),
	}, nil
}
