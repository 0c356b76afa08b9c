package resilience

import (
	"context"
	"math"
	"math/rand"
	"sync/atomic"
	"time"

	"github.com/LavishGent/backstop/internal/config"
	"github.com/LavishGent/backstop/internal/types"
)

// Executor runs operations against the shared connection with a bounded
// retry budget. Every command flows through Execute or ExecuteWithResult;
// nothing else issues commands against the connection.
//
// The budget counts invocations: MaxAttempts of 3 means one initial try plus
// up to two retries, always against the same connection handle. Transient
// failures sleep an exponential backoff between attempts; fatal failures
// surface immediately after a single invocation. When the budget runs out
// the last failure is wrapped in a types.ExhaustedError.
//
// MaxAttempts defaults to 3 and is tunable through config.RetryConfig.
type Executor struct {
	maxAttempts    int
	initialBackoff time.Duration
	maxBackoff     time.Duration
	multiplier     float64
	jitter         bool

	classify func(error) bool
	onRetry  func(op string, attempt int, err error)

	totalRetries atomic.Int64
	totalSuccess atomic.Int64
	totalFailure atomic.Int64
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// WithClassifier replaces the transient-failure classifier. The default is
// IsRetryable.
func WithClassifier(fn func(error) bool) ExecutorOption {
	return func(x *Executor) {
		x.classify = fn
	}
}

// WithOnRetry registers a callback invoked before each backoff sleep.
func WithOnRetry(fn func(op string, attempt int, err error)) ExecutorOption {
	return func(x *Executor) {
		x.onRetry = fn
	}
}

// NewExecutor creates an executor from retry configuration, applying
// defaults for zero or negative fields.
func NewExecutor(cfg config.RetryConfig, opts ...ExecutorOption) *Executor {
	x := &Executor{
		maxAttempts:    cfg.MaxAttempts,
		initialBackoff: cfg.InitialBackoff,
		maxBackoff:     cfg.MaxBackoff,
		multiplier:     cfg.Multiplier,
		jitter:         cfg.Jitter,
		classify:       IsRetryable,
	}

	if x.maxAttempts <= 0 {
		x.maxAttempts = 3
	}
	if x.initialBackoff <= 0 {
		x.initialBackoff = 100 * time.Millisecond
	}
	if x.maxBackoff <= 0 {
		x.maxBackoff = 2 * time.Second
	}
	if x.multiplier <= 0 {
		x.multiplier = 2.0
	}

	for _, opt := range opts {
		opt(x)
	}

	return x
}

// Execute runs the operation with the retry budget. The operation is a
// closure over the shared connection, so every attempt hits the same handle.
func (x *Executor) Execute(ctx context.Context, op string, fn func(context.Context) error) error {
	var lastErr error

	for attempt := 1; attempt <= x.maxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		err := fn(ctx)
		if err == nil {
			x.totalSuccess.Add(1)
			return nil
		}

		lastErr = err

		// Fatal errors surface after exactly one invocation.
		if !x.classify(err) {
			x.totalFailure.Add(1)
			return err
		}

		if attempt == x.maxAttempts {
			break
		}

		x.totalRetries.Add(1)
		if x.onRetry != nil {
			x.onRetry(op, attempt, err)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(x.calculateBackoff(attempt)):
		}
	}

	x.totalFailure.Add(1)
	return &types.ExhaustedError{Op: op, Attempts: x.maxAttempts, Err: lastErr}
}

// ExecuteWithResult runs an operation that returns a value, with the same
// retry semantics as Execute.
func (x *Executor) ExecuteWithResult(ctx context.Context, op string, fn func(context.Context) (any, error)) (any, error) {
	var lastErr error

	for attempt := 1; attempt <= x.maxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		result, err := fn(ctx)
		if err == nil {
			x.totalSuccess.Add(1)
			return result, nil
		}

		lastErr = err

		if !x.classify(err) {
			x.totalFailure.Add(1)
			return nil, err
		}

		if attempt == x.maxAttempts {
			break
		}

		x.totalRetries.Add(1)
		if x.onRetry != nil {
			x.onRetry(op, attempt, err)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(x.calculateBackoff(attempt)):
		}
	}

	x.totalFailure.Add(1)
	return nil, &types.ExhaustedError{Op: op, Attempts: x.maxAttempts, Err: lastErr}
}

// calculateBackoff returns the sleep before the next attempt: exponential
// growth capped at maxBackoff, with optional +/-25% jitter.
func (x *Executor) calculateBackoff(attempt int) time.Duration {
	backoff := float64(x.initialBackoff) * math.Pow(x.multiplier, float64(attempt-1))

	if backoff > float64(x.maxBackoff) {
		backoff = float64(x.maxBackoff)
	}

	if x.jitter {
		jitterRange := backoff * 0.25
		backoff += (rand.Float64() * 2 * jitterRange) - jitterRange
	}

	return time.Duration(backoff)
}

// MaxAttempts returns the configured attempt budget.
func (x *Executor) MaxAttempts() int {
	return x.maxAttempts
}

// Stats returns cumulative counters: retries slept, operations that
// eventually succeeded, operations that finally failed.
func (x *Executor) Stats() (retries, successes, failures int64) {
	return x.totalRetries.Load(), x.totalSuccess.Load(), x.totalFailure.Load()
}

// Reset clears the counters.
func (x *Executor) Reset() {
	x.totalRetries.Store(0)
	x.totalSuccess.Store(0)
	x.totalFailure.Store(0)
}
