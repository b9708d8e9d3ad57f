package poolconfig

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ocx/ledger-intake/internal/configcache"
)

// Store resolves per-pool config, falling back to bootstrap defaults when
// a pool has no override row. Get(poolID) plays the role the teacher's
// Manager.Get(tenantID) played, minus the tenant-override merge logic —
// there is no tenant dimension here, only a pool one.
type Store interface {
	Get(ctx context.Context, poolID string) (Config, error)
	Upsert(ctx context.Context, cfg Config) error
}

// PostgresStore is the production Store, read-through cached via
// configcache.Cache (normally Redis, an in-memory stub in tests).
type PostgresStore struct {
	db       *sql.DB
	cache    configcache.Cache
	ttl      time.Duration
	defaults Defaults
}

func NewPostgresStore(db *sql.DB, cache configcache.Cache, ttl time.Duration, defaults Defaults) *PostgresStore {
	return &PostgresStore{db: db, cache: cache, ttl: ttl, defaults: defaults}
}

func cacheKey(poolID string) string {
	return "poolconfig:" + poolID
}

func (s *PostgresStore) Get(ctx context.Context, poolID string) (Config, error) {
	if raw, err := s.cache.Get(ctx, cacheKey(poolID)); err == nil {
		var cfg Config
		if jerr := json.Unmarshal(raw, &cfg); jerr == nil {
			return cfg, nil
		}
	}

	cfg, err := s.loadFromDB(ctx, poolID)
	if err != nil {
		return Config{}, err
	}

	if raw, err := json.Marshal(cfg); err == nil {
		_ = s.cache.Set(ctx, cacheKey(poolID), raw, s.ttl)
	}
	return cfg, nil
}

func (s *PostgresStore) loadFromDB(ctx context.Context, poolID string) (Config, error) {
	cfg := Config{
		PoolID:            poolID,
		BatchSize:         s.defaults.BatchSize,
		VisibilityTimeout: time.Duration(s.defaults.VisibilityTimeout) * time.Second,
		MaxRetries:        s.defaults.MaxRetries,
		IsActive:          s.defaults.IsActive,
		CommitRPCName:     s.defaults.CommitRPCName,
	}

	const q = `
		SELECT batch_size, visibility_timeout_sec, max_retries, is_active,
		       validation_webhook_url, commit_rpc_name, commit_webhook_url
		FROM pool_config WHERE pool_id = $1`

	var visibilitySec int
	var validationURL, commitWebhookURL sql.NullString
	row := s.db.QueryRowContext(ctx, q, poolID)
	err := row.Scan(&cfg.BatchSize, &visibilitySec, &cfg.MaxRetries, &cfg.IsActive,
		&validationURL, &cfg.CommitRPCName, &commitWebhookURL)
	if errors.Is(err, sql.ErrNoRows) {
		return cfg, nil
	}
	if err != nil {
		return Config{}, fmt.Errorf("poolconfig: load %s: %w", poolID, err)
	}

	cfg.VisibilityTimeout = time.Duration(visibilitySec) * time.Second
	if validationURL.Valid {
		cfg.ValidationWebhookURL = &validationURL.String
	}
	if commitWebhookURL.Valid {
		cfg.CommitWebhookURL = &commitWebhookURL.String
	}
	return cfg, nil
}

func (s *PostgresStore) Upsert(ctx context.Context, cfg Config) error {
	const q = `
		INSERT INTO pool_config (pool_id, batch_size, visibility_timeout_sec, max_retries,
			is_active, validation_webhook_url, commit_rpc_name, commit_webhook_url)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (pool_id) DO UPDATE SET
			batch_size = EXCLUDED.batch_size,
			visibility_timeout_sec = EXCLUDED.visibility_timeout_sec,
			max_retries = EXCLUDED.max_retries,
			is_active = EXCLUDED.is_active,
			validation_webhook_url = EXCLUDED.validation_webhook_url,
			commit_rpc_name = EXCLUDED.commit_rpc_name,
			commit_webhook_url = EXCLUDED.commit_webhook_url`

	_, err := s.db.ExecContext(ctx, q, cfg.PoolID, cfg.BatchSize,
		int(cfg.VisibilityTimeout/time.Second), cfg.MaxRetries, cfg.IsActive,
		cfg.ValidationWebhookURL, cfg.CommitRPCName, cfg.CommitWebhookURL)
	if err != nil {
		return fmt.Errorf("poolconfig: upsert %s: %w", cfg.PoolID, err)
	}

	_ = s.cache.Del(ctx, cacheKey(cfg.PoolID))
	return nil
}
