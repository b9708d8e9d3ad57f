// Package pb is a hand-rolled stand-in for a code-generated gRPC client to
// the external ledger service. It is deliberately not wired to protoc: the
// wire payload is a google.protobuf.Struct (from the protobuf well-known
// types, which already satisfies proto.Message) carrying the same fields a
// generated CommitRequest/CommitResponse message would have. This mirrors
// how the ledger client was stubbed before the real .proto existed.
package pb

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// CommitMethod is the fully-qualified RPC method the ledger service exposes
// for finalizing a claimed resource. The actual method name dispatched is
// taken from pool config (commit_rpc_name), this is the transport path.
const CommitMethod = "/ocx.ledger.v1.LedgerService/Commit"

// LedgerServiceClient is the interface the bridge worker depends on. Kept
// narrow so tests can substitute MockLedgerClient without a live connection.
type LedgerServiceClient interface {
	Commit(ctx context.Context, req *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
}

type ledgerServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewLedgerServiceClient wraps an existing gRPC connection.
func NewLedgerServiceClient(cc grpc.ClientConnInterface) LedgerServiceClient {
	return &ledgerServiceClient{cc: cc}
}

func (c *ledgerServiceClient) Commit(ctx context.Context, req *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	resp := &structpb.Struct{}
	if err := c.cc.Invoke(ctx, CommitMethod, req, resp, opts...); err != nil {
		return nil, fmt.Errorf("pb: commit invoke: %w", err)
	}
	return resp, nil
}
