// Package config provides configuration management for backstop.
package config

import (
	"time"

	"github.com/LavishGent/backstop/internal/types"
)

// Secret is a string type that redacts its value when marshaled to JSON.
type Secret = types.Secret

// NewSecret creates a new Secret with the provided value.
func NewSecret(value string) Secret {
	return types.NewSecret(value)
}

// Config contains all configuration for the backstop access layer.
//
//nolint:govet // Configuration struct - logical grouping prioritized over alignment
type Config struct {
	Primary   EndpointConfig  `json:"primary"`
	Failover  EndpointConfig  `json:"failover"`
	Auth      AuthConfig      `json:"auth"`
	Backend   string          `json:"backend"`
	Establish EstablishConfig `json:"establish"`
	Retry     RetryConfig     `json:"retry"`
	Redis     RedisConfig     `json:"redis"`
	Memory    MemoryConfig    `json:"memory"`
	Workers   WorkersConfig   `json:"workers"`
	Metrics   MetricsConfig   `json:"metrics"`
}

// EndpointConfig names one cache server. An empty Host on the failover
// entry means no failover is configured.
type EndpointConfig struct {
	Host      string `json:"host"`
	AccessKey Secret `json:"accessKey"`
}

// AuthConfig selects how connections authenticate. The empty mode means
// workload identity.
type AuthConfig struct {
	Mode string `json:"mode"`
}

// EstablishConfig bounds connection establishment. AttemptTimeout covers
// one attempt against one endpoint, dial and health probe included, so the
// worst case with a failover configured is twice this value.
type EstablishConfig struct {
	AttemptTimeout time.Duration `json:"attemptTimeout"`
}

// RetryConfig contains configuration for the operation retry budget.
// MaxAttempts counts invocations, not retries: 3 means one initial try
// plus up to two retries.
type RetryConfig struct {
	InitialBackoff time.Duration `json:"initialBackoff"`
	MaxBackoff     time.Duration `json:"maxBackoff"`
	Multiplier     float64       `json:"multiplier"`
	MaxAttempts    int           `json:"maxAttempts"`
	Jitter         bool          `json:"jitter"`
}

// RedisConfig contains configuration for the Redis backend.
//
//nolint:govet // Configuration struct - logical grouping prioritized over alignment
type RedisConfig struct {
	DefaultTTL    time.Duration `json:"defaultTTL"`
	ReadTimeout   time.Duration `json:"readTimeout"`
	WriteTimeout  time.Duration `json:"writeTimeout"`
	PoolTimeout   time.Duration `json:"poolTimeout"`
	KeyPrefix     string        `json:"keyPrefix"`
	DB            int           `json:"db"`
	PoolSize      int           `json:"poolSize"`
	MinIdleConns  int           `json:"minIdleConns"`
	EnableTLS     bool          `json:"enableTLS"`
	TLSSkipVerify bool          `json:"tlsSkipVerify"`
}

// MemoryConfig contains configuration for the in-process memory backend.
type MemoryConfig struct {
	DefaultTTL      time.Duration `json:"defaultTTL"`
	CleanupInterval time.Duration `json:"cleanupInterval"`
	MaxSizeMB       int           `json:"maxSizeMB"`
	Shards          int           `json:"shards"`
	MaxEntrySize    int           `json:"maxEntrySize"`
}

// WorkersConfig sizes the worker pool driven by the run command.
//
//nolint:govet // Small config struct - minimal alignment benefit
type WorkersConfig struct {
	TTL        time.Duration `json:"ttl"`
	KeyPrefix  string        `json:"keyPrefix"`
	Count      int           `json:"count"`
	Iterations int           `json:"iterations"`
}

// MetricsConfig contains configuration for metrics publishing.
//
//nolint:govet // Small config struct - minimal alignment benefit
type MetricsConfig struct {
	PublishInterval time.Duration `json:"publishInterval"`
	DataDog         DataDogConfig `json:"datadog"`
	Enabled         bool          `json:"enabled"`
}

// DataDogConfig contains configuration for DataDog metrics publishing.
//
//nolint:govet // Small config struct - minimal alignment benefit
type DataDogConfig struct {
	Tags      []string `json:"tags"`
	AgentHost string   `json:"agentHost"`
	Prefix    string   `json:"prefix"`
	Port      int      `json:"port"`
	Enabled   bool     `json:"enabled"`
}

// HasFailover reports whether a failover endpoint is configured.
func (c *Config) HasFailover() bool {
	return c.Failover.Host != ""
}

// Endpoints materializes the configured endpoints with the auth mode
// stamped on each. The failover pointer is nil when none is configured.
func (c *Config) Endpoints() (types.Endpoint, *types.Endpoint, error) {
	mode, err := types.ParseAuthMode(c.Auth.Mode)
	if err != nil {
		return types.Endpoint{}, nil, types.NewConfigError("auth.mode", err)
	}

	primary := types.Endpoint{
		Host:       c.Primary.Host,
		Credential: c.Primary.AccessKey,
		AuthMode:   mode,
	}

	if !c.HasFailover() {
		return primary, nil, nil
	}

	failover := &types.Endpoint{
		Host:       c.Failover.Host,
		Credential: c.Failover.AccessKey,
		AuthMode:   mode,
	}
	return primary, failover, nil
}
