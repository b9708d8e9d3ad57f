// Package poolconfig is the per-pool config store: batch size, visibility
// timeout, retry budget, active flag, and the validation/commit endpoints
// a pool's Bridge worker invocations use. Backed by Postgres with an
// in-process YAML-loaded baseline for defaults (see bootstrap.go).
package poolconfig

import "time"

// Config is the fully-resolved configuration for one pool: bootstrap
// defaults overlaid with any DB-resident per-pool override.
type Config struct {
	PoolID               string
	BatchSize            int
	VisibilityTimeout    time.Duration
	MaxRetries           int
	IsActive             bool
	ValidationWebhookURL *string
	CommitRPCName        string
	CommitWebhookURL     *string
}
