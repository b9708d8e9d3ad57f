package poolconfig

import (
	"context"
	"sync"
	"time"
)

// MemStore is an in-memory Store used by tests.
type MemStore struct {
	mu       sync.Mutex
	configs  map[string]Config
	defaults Defaults
}

func NewMemStore(defaults Defaults) *MemStore {
	return &MemStore{configs: make(map[string]Config), defaults: defaults}
}

func (s *MemStore) Get(_ context.Context, poolID string) (Config, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if cfg, ok := s.configs[poolID]; ok {
		return cfg, nil
	}
	return Config{
		PoolID:            poolID,
		BatchSize:         s.defaults.BatchSize,
		VisibilityTimeout: time.Duration(s.defaults.VisibilityTimeout) * time.Second,
		MaxRetries:        s.defaults.MaxRetries,
		IsActive:          s.defaults.IsActive,
		CommitRPCName:     s.defaults.CommitRPCName,
	}, nil
}

func (s *MemStore) Upsert(_ context.Context, cfg Config) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.configs[cfg.PoolID] = cfg
	return nil
}
