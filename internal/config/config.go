package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"sync"

	"gopkg.in/yaml.v2"
)

// =============================================================================
// Ledger Intake - Configuration with Environment Overrides
// =============================================================================

type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	Redis      RedisConfig      `yaml:"redis"`
	Bridge     BridgeConfig     `yaml:"bridge"`
	PubSub     PubSubConfig     `yaml:"pubsub"`
	CloudTasks CloudTasksConfig `yaml:"cloud_tasks"`
	Security   SecurityConfig   `yaml:"security"`
}

type ServerConfig struct {
	Port             string   `yaml:"port"`
	Env              string   `yaml:"env"`
	ReadTimeoutSec   int      `yaml:"read_timeout_sec"`
	WriteTimeoutSec  int      `yaml:"write_timeout_sec"`
	IdleTimeoutSec   int      `yaml:"idle_timeout_sec"`
	ShutdownTimeout  int      `yaml:"shutdown_timeout_sec"`
	CORSAllowOrigins []string `yaml:"cors_allow_origins"`
}

// DatabaseConfig holds the Postgres connection used for slots, the intake
// queue, the DLQ and pool config.
type DatabaseConfig struct {
	DSN             string `yaml:"dsn"`
	MaxOpenConns    int    `yaml:"max_open_conns"`
	MaxIdleConns    int    `yaml:"max_idle_conns"`
	ConnMaxLifetime int    `yaml:"conn_max_lifetime_sec"`
}

// RedisConfig backs the pool-config read-through cache.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	TTLSec   int    `yaml:"ttl_sec"`
}

// BridgeConfig holds the defaults applied when a pool has no config row yet.
type BridgeConfig struct {
	DefaultBatchSize         int    `yaml:"default_batch_size"`
	DefaultVisibilityTimeout int    `yaml:"default_visibility_timeout_sec"`
	DefaultMaxRetries        int    `yaml:"default_max_retries"`
	DefaultCommitRPCName     string `yaml:"default_commit_rpc_name"`
	DrainWallClockSec        int    `yaml:"drain_wall_clock_sec"`
	LedgerGRPCAddr           string `yaml:"ledger_grpc_addr"`
}

// PubSubConfig for the realtime confirmation event bus.
type PubSubConfig struct {
	ProjectID string `yaml:"project_id"`
	TopicID   string `yaml:"topic_id"`
	Enabled   bool   `yaml:"enabled"`
}

// CloudTasksConfig for self-scheduling the bridge drain trigger.
type CloudTasksConfig struct {
	ProjectID  string `yaml:"project_id"`
	LocationID string `yaml:"location_id"`
	QueueID    string `yaml:"queue_id"`
	TargetURL  string `yaml:"target_url"`
	Enabled    bool   `yaml:"enabled"`
}

// SecurityConfig for the bridge trigger / DLQ admin bearer credentials.
type SecurityConfig struct {
	TriggerTokenHash  string `yaml:"trigger_token_hash"`
	AdminTokenHash    string `yaml:"admin_token_hash"`
}

// =============================================================================
// Singleton Pattern with Environment Overrides
// =============================================================================

var (
	instance *Config
	once     sync.Once
)

// Get returns the singleton config instance.
func Get() *Config {
	once.Do(func() {
		cfg, err := LoadConfig(getEnv("CONFIG_PATH", "config.yaml"))
		if err != nil {
			slog.Warn("config: failed to load config file, using defaults", "error", err)
		}
		if cfg == nil {
			cfg = &Config{}
		}
		cfg.applyEnvOverrides()
		instance = cfg
	})
	return instance
}

// LoadConfig loads config from a YAML file.
func LoadConfig(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var cfg Config
	decoder := yaml.NewDecoder(f)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) applyEnvOverrides() {
	c.Server.Port = getEnv("PORT", c.Server.Port)
	c.Server.Env = getEnv("LEDGER_INTAKE_ENV", c.Server.Env)

	c.Database.DSN = getEnv("DATABASE_DSN", c.Database.DSN)
	if v := getEnvInt("DATABASE_MAX_OPEN_CONNS", 0); v > 0 {
		c.Database.MaxOpenConns = v
	}
	if v := getEnvInt("DATABASE_MAX_IDLE_CONNS", 0); v > 0 {
		c.Database.MaxIdleConns = v
	}

	c.Redis.Addr = getEnv("REDIS_ADDR", c.Redis.Addr)
	c.Redis.Password = getEnv("REDIS_PASSWORD", c.Redis.Password)
	if v := getEnvInt("REDIS_DB", -1); v >= 0 {
		c.Redis.DB = v
	}
	if v := getEnvInt("REDIS_TTL_SEC", 0); v > 0 {
		c.Redis.TTLSec = v
	}

	if v := getEnvInt("SERVER_READ_TIMEOUT_SEC", 0); v > 0 {
		c.Server.ReadTimeoutSec = v
	}
	if v := getEnvInt("SERVER_WRITE_TIMEOUT_SEC", 0); v > 0 {
		c.Server.WriteTimeoutSec = v
	}
	if v := getEnvInt("SERVER_IDLE_TIMEOUT_SEC", 0); v > 0 {
		c.Server.IdleTimeoutSec = v
	}
	if v := getEnvInt("SERVER_SHUTDOWN_TIMEOUT_SEC", 0); v > 0 {
		c.Server.ShutdownTimeout = v
	}
	if origins := getEnv("CORS_ALLOW_ORIGINS", ""); origins != "" {
		c.Server.CORSAllowOrigins = splitCSV(origins)
	}

	if v := getEnvInt("BRIDGE_DEFAULT_BATCH_SIZE", 0); v > 0 {
		c.Bridge.DefaultBatchSize = v
	}
	if v := getEnvInt("BRIDGE_DEFAULT_VISIBILITY_TIMEOUT_SEC", 0); v > 0 {
		c.Bridge.DefaultVisibilityTimeout = v
	}
	if v := getEnvInt("BRIDGE_DEFAULT_MAX_RETRIES", 0); v > 0 {
		c.Bridge.DefaultMaxRetries = v
	}
	c.Bridge.DefaultCommitRPCName = getEnv("BRIDGE_DEFAULT_COMMIT_RPC_NAME", c.Bridge.DefaultCommitRPCName)
	if v := getEnvInt("BRIDGE_DRAIN_WALL_CLOCK_SEC", 0); v > 0 {
		c.Bridge.DrainWallClockSec = v
	}
	c.Bridge.LedgerGRPCAddr = getEnv("LEDGER_GRPC_ADDR", c.Bridge.LedgerGRPCAddr)

	if projectID := getEnv("GCP_PROJECT_ID", ""); projectID != "" {
		c.PubSub.ProjectID = projectID
		c.CloudTasks.ProjectID = projectID
	}
	c.PubSub.TopicID = getEnv("PUBSUB_TOPIC_ID", c.PubSub.TopicID)
	c.PubSub.Enabled = getEnvBool("PUBSUB_ENABLED", c.PubSub.Enabled)

	c.CloudTasks.LocationID = getEnv("CLOUD_TASKS_LOCATION", c.CloudTasks.LocationID)
	c.CloudTasks.QueueID = getEnv("CLOUD_TASKS_QUEUE", c.CloudTasks.QueueID)
	c.CloudTasks.TargetURL = getEnv("CLOUD_TASKS_TARGET_URL", c.CloudTasks.TargetURL)
	c.CloudTasks.Enabled = getEnvBool("CLOUD_TASKS_ENABLED", c.CloudTasks.Enabled)

	c.Security.TriggerTokenHash = getEnv("BRIDGE_TRIGGER_TOKEN_HASH", c.Security.TriggerTokenHash)
	c.Security.AdminTokenHash = getEnv("DLQ_ADMIN_TOKEN_HASH", c.Security.AdminTokenHash)

	c.applyDefaults()
}

func (c *Config) applyDefaults() {
	if c.Server.Port == "" {
		c.Server.Port = "8080"
	}
	if c.Server.ReadTimeoutSec == 0 {
		c.Server.ReadTimeoutSec = 15
	}
	if c.Server.WriteTimeoutSec == 0 {
		c.Server.WriteTimeoutSec = 15
	}
	if c.Server.IdleTimeoutSec == 0 {
		c.Server.IdleTimeoutSec = 60
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = 30
	}
	if len(c.Server.CORSAllowOrigins) == 0 {
		c.Server.CORSAllowOrigins = []string{"*"}
	}
	if c.Database.MaxOpenConns == 0 {
		c.Database.MaxOpenConns = 20
	}
	if c.Database.MaxIdleConns == 0 {
		c.Database.MaxIdleConns = 5
	}
	if c.Database.ConnMaxLifetime == 0 {
		c.Database.ConnMaxLifetime = 300
	}
	if c.Redis.TTLSec == 0 {
		c.Redis.TTLSec = 30
	}
	// Pool-config defaults per spec.md §6.
	if c.Bridge.DefaultBatchSize == 0 {
		c.Bridge.DefaultBatchSize = 100
	}
	if c.Bridge.DefaultVisibilityTimeout == 0 {
		c.Bridge.DefaultVisibilityTimeout = 45
	}
	if c.Bridge.DefaultMaxRetries == 0 {
		c.Bridge.DefaultMaxRetries = 10
	}
	if c.Bridge.DefaultCommitRPCName == "" {
		c.Bridge.DefaultCommitRPCName = "finalize_transaction"
	}
	if c.Bridge.DrainWallClockSec == 0 {
		c.Bridge.DrainWallClockSec = 50
	}
	if c.PubSub.TopicID == "" {
		c.PubSub.TopicID = "ledger-intake-confirmations"
	}
	if c.CloudTasks.LocationID == "" {
		c.CloudTasks.LocationID = "us-central1"
	}
	if c.CloudTasks.QueueID == "" {
		c.CloudTasks.QueueID = "ledger-intake-drain"
	}
}

// =============================================================================
// Helper Functions
// =============================================================================

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		return val == "true" || val == "1"
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func splitCSV(s string) []string {
	parts := make([]string, 0)
	for _, p := range strings.Split(s, ",") {
		trimmed := strings.TrimSpace(p)
		if trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	return parts
}

// =============================================================================
// Convenience Methods
// =============================================================================

func (c *Config) IsProduction() bool {
	return c.Server.Env == "production"
}

func (c *Config) GetPort() string {
	if c.Server.Port == "" {
		return "8080"
	}
	return c.Server.Port
}
