// Package dlqadmin implements the DLQ admin surface: list (by pool),
// replay (re-queue and remove from DLQ), and discard (delete). Both
// replay and discard require an elevated bearer credential at the HTTP
// layer (see internal/authn).
package dlqadmin

import (
	"context"

	"github.com/ocx/ledger-intake/internal/intakequeue"
)

type Service struct {
	DLQ intakequeue.DLQStore
}

func New(dlq intakequeue.DLQStore) *Service {
	return &Service{DLQ: dlq}
}

func (s *Service) List(ctx context.Context, poolID string, limit int) ([]intakequeue.DLQEnvelope, error) {
	if limit <= 0 {
		limit = 100
	}
	return s.DLQ.List(ctx, poolID, limit)
}

func (s *Service) Replay(ctx context.Context, originalMsgID int64) (int64, error) {
	return s.DLQ.Replay(ctx, originalMsgID)
}

func (s *Service) Discard(ctx context.Context, originalMsgID int64) error {
	return s.DLQ.Discard(ctx, originalMsgID)
}
