package config

import "time"

// Default returns a configuration with sensible defaults. The primary host
// points at a local Redis; production deployments override the endpoints
// and auth mode through a config file or environment.
func Default() *Config {
	return &Config{
		Backend: "redis",
		Primary: EndpointConfig{
			Host: "localhost:6379",
		},
		Failover: EndpointConfig{},
		Auth: AuthConfig{
			Mode: "", // workload identity
		},
		Establish: EstablishConfig{
			AttemptTimeout: 5 * time.Second,
		},
		Retry: RetryConfig{
			MaxAttempts:    3,
			InitialBackoff: 100 * time.Millisecond,
			MaxBackoff:     2 * time.Second,
			Multiplier:     2.0,
			Jitter:         true,
		},
		Redis: RedisConfig{
			DB:            0,
			KeyPrefix:     "backstop:",
			DefaultTTL:    15 * time.Minute,
			PoolSize:      100,
			MinIdleConns:  10,
			ReadTimeout:   3 * time.Second,
			WriteTimeout:  3 * time.Second,
			PoolTimeout:   4 * time.Second,
			EnableTLS:     false,
			TLSSkipVerify: false,
		},
		Memory: MemoryConfig{
			MaxSizeMB:       256,
			DefaultTTL:      5 * time.Minute,
			CleanupInterval: 10 * time.Second,
			Shards:          1024,
			MaxEntrySize:    10 * 1024 * 1024, // 10MB
		},
		Workers: WorkersConfig{
			Count:      4,
			Iterations: 100,
			KeyPrefix:  "worker:",
			TTL:        5 * time.Minute,
		},
		Metrics: MetricsConfig{
			Enabled:         true,
			PublishInterval: 10 * time.Second,
			DataDog: DataDogConfig{
				Enabled:   false,
				AgentHost: "127.0.0.1",
				Port:      8125,
				Prefix:    "backstop",
				Tags:      []string{},
			},
		},
	}
}

// ForTesting returns a minimal configuration suitable for unit tests:
// memory backend, short timeouts, no jitter, metrics off.
func ForTesting() *Config {
	return &Config{
		Backend: "memory",
		Primary: EndpointConfig{
			Host: "localhost:6379",
		},
		Failover: EndpointConfig{},
		Establish: EstablishConfig{
			AttemptTimeout: 1 * time.Second,
		},
		Retry: RetryConfig{
			MaxAttempts:    3,
			InitialBackoff: 10 * time.Millisecond,
			MaxBackoff:     100 * time.Millisecond,
			Multiplier:     2.0,
			Jitter:         false,
		},
		Redis: RedisConfig{
			KeyPrefix:    "test:",
			DefaultTTL:   1 * time.Minute,
			PoolSize:     10,
			MinIdleConns: 1,
			ReadTimeout:  1 * time.Second,
			WriteTimeout: 1 * time.Second,
			PoolTimeout:  1 * time.Second,
		},
		Memory: MemoryConfig{
			MaxSizeMB:       16,
			DefaultTTL:      1 * time.Minute,
			CleanupInterval: 1 * time.Second,
			Shards:          64,
			MaxEntrySize:    1024 * 1024, // 1MB
		},
		Workers: WorkersConfig{
			Count:      2,
			Iterations: 10,
			KeyPrefix:  "test:worker:",
			TTL:        1 * time.Minute,
		},
		Metrics: MetricsConfig{
			Enabled:         false,
			PublishInterval: 1 * time.Second,
		},
	}
}

// ForTestingWithRedis returns a test config pointed at a live Redis.
func ForTestingWithRedis(addr string) *Config {
	cfg := ForTesting()
	cfg.Backend = "redis"
	cfg.Primary.Host = addr
	return cfg
}
