package pb

import (
	"context"
	"sync"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// MockLedgerClient is an in-memory LedgerServiceClient used by tests. It
// tracks commits by resource_id so callers can assert idempotent-commit
// behavior without a live ledger service.
type MockLedgerClient struct {
	mu       sync.Mutex
	commits  map[string]*structpb.Struct
	FailNext error
}

func NewMockLedgerClient() *MockLedgerClient {
	return &MockLedgerClient{commits: make(map[string]*structpb.Struct)}
}

func (m *MockLedgerClient) Commit(_ context.Context, req *structpb.Struct, _ ...grpc.CallOption) (*structpb.Struct, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailNext != nil {
		err := m.FailNext
		m.FailNext = nil
		return nil, err
	}

	resourceID, _ := req.Fields["resource_id"]
	key := ""
	if resourceID != nil {
		key = resourceID.GetStringValue()
	}

	if existing, ok := m.commits[key]; ok {
		return existing, nil
	}

	resp, _ := structpb.NewStruct(map[string]interface{}{
		"resource_id": key,
		"status":      "committed",
	})
	m.commits[key] = resp
	return resp, nil
}

// CommitCount returns how many distinct resource_ids were committed, for
// assertions that a double-commit didn't produce a second ledger entry.
func (m *MockLedgerClient) CommitCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.commits)
}
