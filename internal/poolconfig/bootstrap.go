package poolconfig

import (
	"os"

	"gopkg.in/yaml.v2"
)

// Defaults is the bootstrap baseline applied to every pool that has no
// per-pool override row yet, mirroring spec.md §4.6 literally.
type Defaults struct {
	BatchSize         int    `yaml:"batch_size"`
	VisibilityTimeout int    `yaml:"visibility_timeout_sec"`
	MaxRetries        int    `yaml:"max_retries"`
	IsActive          bool   `yaml:"is_active"`
	CommitRPCName     string `yaml:"commit_rpc_name"`
}

// DefaultDefaults are applied when no bootstrap YAML file is present at all.
func DefaultDefaults() Defaults {
	return Defaults{
		BatchSize:         100,
		VisibilityTimeout: 45,
		MaxRetries:        10,
		IsActive:          true,
		CommitRPCName:     "finalize_transaction",
	}
}

// LoadDefaults reads a bootstrap YAML file, falling back to
// DefaultDefaults for any zero-valued field (and entirely when the file
// doesn't exist).
func LoadDefaults(path string) (Defaults, error) {
	base := DefaultDefaults()

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return base, nil
		}
		return base, err
	}
	defer f.Close()

	var loaded Defaults
	if err := yaml.NewDecoder(f).Decode(&loaded); err != nil {
		return base, err
	}

	if loaded.BatchSize > 0 {
		base.BatchSize = loaded.BatchSize
	}
	if loaded.VisibilityTimeout > 0 {
		base.VisibilityTimeout = loaded.VisibilityTimeout
	}
	if loaded.MaxRetries > 0 {
		base.MaxRetries = loaded.MaxRetries
	}
	if loaded.CommitRPCName != "" {
		base.CommitRPCName = loaded.CommitRPCName
	}
	base.IsActive = loaded.IsActive || base.IsActive
	return base, nil
}
