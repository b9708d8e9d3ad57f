// Package configcache provides a read-through cache in front of the pool
// config store so the bridge worker's per-drain config lookup doesn't hit
// Postgres on every invocation.
package configcache

import (
	"context"
	"errors"
	"time"
)

// ErrMiss is returned by Get when the key isn't cached.
var ErrMiss = errors.New("configcache: miss")

// Cache is the minimal interface the pool config store depends on. Kept
// narrow on purpose so a caller can swap Redis for an in-memory stand-in
// in tests without dragging in a driver.
type Cache interface {
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Get(ctx context.Context, key string) ([]byte, error)
	Del(ctx context.Context, keys ...string) error
}
