package realtime

import (
	"context"
	"sync"
)

// MemPublisher records published events in memory, for tests that assert
// a commit produced exactly one realtime event.
type MemPublisher struct {
	mu     sync.Mutex
	Events []CommittedEvent
}

func NewMemPublisher() *MemPublisher {
	return &MemPublisher{}
}

func (p *MemPublisher) PublishCommitted(_ context.Context, e CommittedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Events = append(p.Events, e)
	return nil
}
