package backstop

import (
	"context"
	"log/slog"

	"github.com/LavishGent/backstop/internal/cache"
	"github.com/LavishGent/backstop/internal/config"
	"github.com/LavishGent/backstop/internal/resilience"
)

// Connect validates the configuration, establishes one connection against
// the ordered endpoints, and returns a client bound to it. A nil cfg uses
// DefaultConfig.
//
// Configuration problems return a *ConfigError before any network
// activity. When every endpoint attempt fails, the error is an
// *UnavailableError carrying each attempt's cause.
func Connect(ctx context.Context, cfg *config.Config, opts ...ConnectOption) (Client, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	options := newConnectOptions(opts)

	primary, failover, err := cfg.Endpoints()
	if err != nil {
		return nil, err
	}

	backend := options.backend
	if backend == nil {
		switch cfg.Backend {
		case "memory":
			backend = cache.NewMemoryBackend(cfg.Memory, options.logger)
		default:
			backend = cache.NewRedisBackend(cfg.Redis, options.logger)
		}
	}

	estOpts := []resilience.EstablisherOption{
		resilience.WithLogger(options.logger),
	}
	if options.metrics != nil {
		estOpts = append(estOpts, resilience.WithMetrics(options.metrics))
	}
	if options.onTransition != nil {
		estOpts = append(estOpts, resilience.WithOnTransition(options.onTransition))
	}

	establisher := resilience.NewEstablisher(backend, cfg.Establish.AttemptTimeout, estOpts...)

	conn, err := establisher.Establish(ctx, primary, failover)
	if err != nil {
		return nil, err
	}

	executor := resilience.NewExecutor(cfg.Retry,
		resilience.WithOnRetry(func(op string, attempt int, retryErr error) {
			options.logger.Debug("Retrying command",
				"operation", op,
				"attempt", attempt,
				"error", retryErr,
			)
			if options.metrics != nil {
				options.metrics.RecordRetry(op)
			}
		}),
	)

	clientOpts := []cache.ClientOption{
		cache.WithClientLogger(options.logger),
	}
	if options.metrics != nil {
		clientOpts = append(clientOpts, cache.WithClientMetrics(options.metrics))
	}

	return cache.NewClient(conn, executor, clientOpts...), nil
}

// ConnectFromFile loads a JSON config file, applies environment overrides,
// and connects with the result.
func ConnectFromFile(ctx context.Context, path string, opts ...ConnectOption) (Client, error) {
	cfg, err := config.LoadWithEnv(path)
	if err != nil {
		return nil, err
	}
	return Connect(ctx, cfg, opts...)
}

// ConnectMemory connects to an in-process memory backend. Nothing is
// dialed; useful for tests and local development.
func ConnectMemory(ctx context.Context, opts ...ConnectOption) (Client, error) {
	cfg := config.Default()
	cfg.Backend = "memory"
	return Connect(ctx, cfg, opts...)
}

// DefaultConfig returns a configuration that can be modified before
// connecting.
func DefaultConfig() *config.Config {
	return config.Default()
}

// TestConfig returns a configuration suitable for unit tests: memory
// backend, short timeouts, metrics off.
func TestConfig() *config.Config {
	return config.ForTesting()
}

func defaultLogger() *slog.Logger {
	return slog.Default()
}
