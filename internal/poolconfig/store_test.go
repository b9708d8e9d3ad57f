package poolconfig

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGet_AppliesDefaultsWhenNoOverride(t *testing.T) {
	ctx := context.Background()
	store := NewMemStore(DefaultDefaults())

	cfg, err := store.Get(ctx, "pool-new")
	require.NoError(t, err)
	assert.Equal(t, 100, cfg.BatchSize)
	assert.Equal(t, 45*time.Second, cfg.VisibilityTimeout)
	assert.Equal(t, 10, cfg.MaxRetries)
	assert.True(t, cfg.IsActive)
	assert.Equal(t, "finalize_transaction", cfg.CommitRPCName)
}

func TestUpsert_OverridesDefaults(t *testing.T) {
	ctx := context.Background()
	store := NewMemStore(DefaultDefaults())

	require.NoError(t, store.Upsert(ctx, Config{
		PoolID:     "pool-a",
		BatchSize:  25,
		MaxRetries: 3,
		IsActive:   false,
	}))

	cfg, err := store.Get(ctx, "pool-a")
	require.NoError(t, err)
	assert.Equal(t, 25, cfg.BatchSize)
	assert.Equal(t, 3, cfg.MaxRetries)
	assert.False(t, cfg.IsActive)
}

func TestLoadDefaults_MissingFileUsesBuiltins(t *testing.T) {
	d, err := LoadDefaults("/nonexistent/path/defaults.yaml")
	require.NoError(t, err)
	assert.Equal(t, DefaultDefaults(), d)
}
