package backstop

import (
	"log/slog"

	"github.com/LavishGent/backstop/internal/resilience"
	"github.com/LavishGent/backstop/internal/types"
)

type connectOptions struct {
	logger       *slog.Logger
	metrics      types.MetricsRecorder
	backend      types.Backend
	onTransition func(from, to resilience.State)
}

func newConnectOptions(opts []ConnectOption) *connectOptions {
	options := &connectOptions{
		logger: defaultLogger(),
	}
	for _, opt := range opts {
		opt(options)
	}
	return options
}

// ConnectOption customizes Connect.
type ConnectOption func(*connectOptions)

// WithLogger sets the logger for the client and everything beneath it.
// Defaults to slog.Default().
func WithLogger(logger *slog.Logger) ConnectOption {
	return func(o *connectOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithMetrics attaches a metrics recorder. Connection attempts, commands,
// retries, and state changes are recorded on it.
func WithMetrics(rec MetricsRecorder) ConnectOption {
	return func(o *connectOptions) {
		o.metrics = rec
	}
}

// WithBackend overrides the backend named in the configuration. Mostly
// useful in tests injecting a scripted backend.
func WithBackend(backend Backend) ConnectOption {
	return func(o *connectOptions) {
		o.backend = backend
	}
}

// WithOnStateChange registers a callback for establishment state changes.
// The callback runs synchronously during Connect and must not block.
func WithOnStateChange(fn func(from, to State)) ConnectOption {
	return func(o *connectOptions) {
		o.onTransition = fn
	}
}
