package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/LavishGent/backstop/internal/types"
)

// Load loads configuration from a JSON file.
// If the file doesn't exist, returns default configuration.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			// File doesn't exist, use defaults
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadWithEnv loads configuration from a JSON file and applies environment overrides.
func LoadWithEnv(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		} else if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	applyEnvOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

//nolint:gocyclo // Environment variable parsing requires many conditional checks
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("BACKSTOP_BACKEND"); v != "" {
		cfg.Backend = v
	}

	if v := os.Getenv("BACKSTOP_PRIMARY_HOST"); v != "" {
		cfg.Primary.Host = v
	}
	if v := os.Getenv("BACKSTOP_PRIMARY_ACCESS_KEY"); v != "" {
		cfg.Primary.AccessKey = NewSecret(v)
	}
	if v := os.Getenv("BACKSTOP_FAILOVER_HOST"); v != "" {
		cfg.Failover.Host = v
	}
	if v := os.Getenv("BACKSTOP_FAILOVER_ACCESS_KEY"); v != "" {
		cfg.Failover.AccessKey = NewSecret(v)
	}
	if v := os.Getenv("BACKSTOP_AUTH_MODE"); v != "" {
		cfg.Auth.Mode = v
	}

	if v := os.Getenv("BACKSTOP_ATTEMPT_TIMEOUT"); v != "" {
		cfg.Establish.AttemptTimeout = parseDuration(v, cfg.Establish.AttemptTimeout)
	}

	if v := os.Getenv("BACKSTOP_RETRY_MAX_ATTEMPTS"); v != "" {
		cfg.Retry.MaxAttempts = parseInt(v, cfg.Retry.MaxAttempts)
	}
	if v := os.Getenv("BACKSTOP_RETRY_INITIAL_BACKOFF"); v != "" {
		cfg.Retry.InitialBackoff = parseDuration(v, cfg.Retry.InitialBackoff)
	}
	if v := os.Getenv("BACKSTOP_RETRY_MAX_BACKOFF"); v != "" {
		cfg.Retry.MaxBackoff = parseDuration(v, cfg.Retry.MaxBackoff)
	}

	if v := os.Getenv("BACKSTOP_REDIS_DB"); v != "" {
		cfg.Redis.DB = parseInt(v, cfg.Redis.DB)
	}
	if v := os.Getenv("BACKSTOP_REDIS_KEY_PREFIX"); v != "" {
		cfg.Redis.KeyPrefix = v
	}
	if v := os.Getenv("BACKSTOP_REDIS_DEFAULT_TTL"); v != "" {
		cfg.Redis.DefaultTTL = parseDuration(v, cfg.Redis.DefaultTTL)
	}
	if v := os.Getenv("BACKSTOP_REDIS_POOL_SIZE"); v != "" {
		cfg.Redis.PoolSize = parseInt(v, cfg.Redis.PoolSize)
	}
	if v := os.Getenv("BACKSTOP_REDIS_ENABLE_TLS"); v != "" {
		cfg.Redis.EnableTLS = parseBool(v)
	}
	if v := os.Getenv("BACKSTOP_REDIS_TLS_SKIP_VERIFY"); v != "" {
		cfg.Redis.TLSSkipVerify = parseBool(v)
	}

	if v := os.Getenv("BACKSTOP_MEMORY_MAX_SIZE_MB"); v != "" {
		cfg.Memory.MaxSizeMB = parseInt(v, cfg.Memory.MaxSizeMB)
	}
	if v := os.Getenv("BACKSTOP_MEMORY_DEFAULT_TTL"); v != "" {
		cfg.Memory.DefaultTTL = parseDuration(v, cfg.Memory.DefaultTTL)
	}

	if v := os.Getenv("BACKSTOP_WORKERS_COUNT"); v != "" {
		cfg.Workers.Count = parseInt(v, cfg.Workers.Count)
	}
	if v := os.Getenv("BACKSTOP_WORKERS_ITERATIONS"); v != "" {
		cfg.Workers.Iterations = parseInt(v, cfg.Workers.Iterations)
	}

	if v := os.Getenv("BACKSTOP_METRICS_ENABLED"); v != "" {
		cfg.Metrics.Enabled = parseBool(v)
	}

	if v := os.Getenv("DD_AGENT_HOST"); v != "" {
		cfg.Metrics.DataDog.AgentHost = v
		cfg.Metrics.DataDog.Enabled = true
	}
	if v := os.Getenv("DD_DOGSTATSD_PORT"); v != "" {
		cfg.Metrics.DataDog.Port = parseInt(v, cfg.Metrics.DataDog.Port)
	}
	if v := os.Getenv("DD_SERVICE"); v != "" {
		cfg.Metrics.DataDog.Prefix = v
	}
	if v := os.Getenv("DD_ENV"); v != "" {
		cfg.Metrics.DataDog.Tags = append(cfg.Metrics.DataDog.Tags, "env:"+v)
	}
	if v := os.Getenv("DD_VERSION"); v != "" {
		cfg.Metrics.DataDog.Tags = append(cfg.Metrics.DataDog.Tags, "version:"+v)
	}

	if v := os.Getenv("BACKSTOP_DATADOG_ENABLED"); v != "" {
		if os.Getenv("DD_AGENT_HOST") == "" {
			cfg.Metrics.DataDog.Enabled = parseBool(v)
		}
	}
	if v := os.Getenv("BACKSTOP_DATADOG_PREFIX"); v != "" {
		if os.Getenv("DD_SERVICE") == "" {
			cfg.Metrics.DataDog.Prefix = v
		}
	}
}

// Validate checks the configuration before any connection is attempted.
// Credential requirements are enforced here: an access key must be present
// for every configured endpoint when auth mode is access_key, and a failure
// means no attempt is made.
func (c *Config) Validate() error {
	switch c.Backend {
	case "redis", "memory":
	default:
		return types.NewConfigError("backend",
			fmt.Errorf("must be \"redis\" or \"memory\", got %q", c.Backend))
	}

	mode, err := types.ParseAuthMode(c.Auth.Mode)
	if err != nil {
		return types.NewConfigError("auth.mode", err)
	}

	if c.Primary.Host == "" {
		return types.NewConfigError("primary.host", types.ErrMissingHost)
	}
	if mode == types.AuthAccessKey && c.Primary.AccessKey.IsEmpty() {
		return types.NewConfigError("primary.accessKey", types.ErrMissingCredential)
	}
	if c.HasFailover() && mode == types.AuthAccessKey && c.Failover.AccessKey.IsEmpty() {
		return types.NewConfigError("failover.accessKey", types.ErrMissingCredential)
	}

	if c.Establish.AttemptTimeout <= 0 {
		return types.NewConfigError("establish.attemptTimeout",
			fmt.Errorf("must be positive"))
	}

	if c.Retry.MaxAttempts <= 0 {
		return types.NewConfigError("retry.maxAttempts",
			fmt.Errorf("must be positive"))
	}

	if c.Backend == "redis" && c.Redis.PoolSize <= 0 {
		return types.NewConfigError("redis.poolSize",
			fmt.Errorf("must be positive"))
	}

	if c.Backend == "memory" {
		if c.Memory.MaxSizeMB <= 0 {
			return types.NewConfigError("memory.maxSizeMB",
				fmt.Errorf("must be positive"))
		}
		if c.Memory.Shards <= 0 || (c.Memory.Shards&(c.Memory.Shards-1)) != 0 {
			return types.NewConfigError("memory.shards",
				fmt.Errorf("must be a positive power of 2"))
		}
	}

	if c.Workers.Count < 0 || c.Workers.Iterations < 0 {
		return types.NewConfigError("workers",
			fmt.Errorf("count and iterations must not be negative"))
	}

	return nil
}

func parseBool(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	return s == "true" || s == "1" || s == "yes" || s == "on"
}

func parseInt(s string, defaultVal int) int {
	v, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return defaultVal
	}
	return v
}

func parseDuration(s string, defaultVal time.Duration) time.Duration {
	s = strings.TrimSpace(s)

	if d, err := time.ParseDuration(s); err == nil {
		return d
	}

	if secs, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Duration(secs) * time.Second
	}

	return defaultVal
}
