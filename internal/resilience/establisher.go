// Package resilience provides fault tolerance for cache access: ordered
// failover when the connection is established, and bounded retry around
// every operation that uses it.
package resilience

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"time"

	"github.com/LavishGent/backstop/internal/types"
)

// State describes where connection establishment currently stands. States
// are transient: they exist only for the duration of one Establish call and
// there is no background recovery that moves between them afterwards.
type State int32

const (
	StateTryingPrimary State = iota
	StateTryingFailover
	StateEstablished
	StateExhausted
)

func (s State) String() string {
	switch s {
	case StateTryingPrimary:
		return "trying-primary"
	case StateTryingFailover:
		return "trying-failover"
	case StateEstablished:
		return "established"
	case StateExhausted:
		return "exhausted"
	default:
		return "unknown"
	}
}

// Candidate roles, in attempt order.
const (
	RolePrimary  = "primary"
	RoleFailover = "failover"
)

// Establisher produces one live, health-validated connection from an
// ordered list of candidate endpoints. Each candidate gets exactly one
// attempt under attemptTimeout: open the connection, then probe it. The
// first healthy connection wins. The failover candidate is only attempted
// after the primary attempt failed, so worst-case establishment latency is
// attemptTimeout per configured candidate.
type Establisher struct {
	backend        types.Backend
	attemptTimeout time.Duration
	logger         *slog.Logger
	metrics        types.MetricsRecorder
	onTransition   func(from, to State)
}

// EstablisherOption configures an Establisher.
type EstablisherOption func(*Establisher)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) EstablisherOption {
	return func(e *Establisher) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(rec types.MetricsRecorder) EstablisherOption {
	return func(e *Establisher) {
		e.metrics = rec
	}
}

// WithOnTransition registers a callback for state changes. The callback is
// invoked synchronously from Establish and must not block.
func WithOnTransition(fn func(from, to State)) EstablisherOption {
	return func(e *Establisher) {
		e.onTransition = fn
	}
}

// NewEstablisher creates an establisher that opens connections through
// backend with the given per-attempt deadline.
func NewEstablisher(backend types.Backend, attemptTimeout time.Duration, opts ...EstablisherOption) *Establisher {
	e := &Establisher{
		backend:        backend,
		attemptTimeout: attemptTimeout,
		logger:         slog.Default(),
	}

	if e.attemptTimeout <= 0 {
		e.attemptTimeout = 5 * time.Second
	}

	for _, opt := range opts {
		opt(e)
	}

	e.logger = e.logger.With("component", "establisher")
	return e
}

type candidate struct {
	role string
	ep   types.Endpoint
}

// Establish validates the candidates, then attempts each in order. It
// returns the first healthy connection, or a *types.UnavailableError
// wrapping every attempt failure once all candidates are spent.
//
// Validation failures return a *types.ConfigError before any network
// activity; a misconfigured failover fails the call even when the primary
// would have connected.
func (e *Establisher) Establish(ctx context.Context, primary types.Endpoint, failover *types.Endpoint) (types.Conn, error) {
	if err := primary.Validate(); err != nil {
		return nil, types.NewConfigError(RolePrimary, err)
	}

	candidates := []candidate{{role: RolePrimary, ep: primary}}
	if failover != nil {
		if err := failover.Validate(); err != nil {
			return nil, types.NewConfigError(RoleFailover, err)
		}
		candidates = append(candidates, candidate{role: RoleFailover, ep: *failover})
	}

	state := StateTryingPrimary
	attempts := make([]*types.AttemptError, 0, len(candidates))

	for i, cand := range candidates {
		if i > 0 {
			state = e.transition(state, StateTryingFailover)
		}

		e.logger.Info("Attempting endpoint",
			"role", cand.role,
			"endpoint", cand.ep,
			"timeout", e.attemptTimeout,
		)

		start := time.Now()
		conn, err := e.attempt(ctx, cand.ep)
		latency := time.Since(start)

		if e.metrics != nil {
			e.metrics.RecordAttempt(cand.role, cand.ep.Host, latency, err)
		}

		if err == nil {
			e.transition(state, StateEstablished)
			e.logger.Info("Connection established",
				"role", cand.role,
				"endpoint", cand.ep,
				"latency", latency,
			)
			return conn, nil
		}

		attempts = append(attempts, &types.AttemptError{Role: cand.role, Host: cand.ep.Host, Err: err})
		e.logger.Warn("Endpoint attempt failed",
			"role", cand.role,
			"endpoint", cand.ep,
			"latency", latency,
			"error", err,
		)

		// Caller cancellation stops the candidate walk.
		if ctx.Err() != nil {
			e.transition(state, StateExhausted)
			return nil, ctx.Err()
		}
	}

	e.transition(state, StateExhausted)
	unavailable := &types.UnavailableError{Attempts: attempts}
	e.logger.Error("All endpoints exhausted", "attempts", len(attempts), "error", unavailable)
	return nil, unavailable
}

// attempt opens and probes one endpoint under the per-attempt deadline. A
// connection whose probe fails is closed before the error is returned; a
// failed attempt never leaks its handle.
func (e *Establisher) attempt(ctx context.Context, ep types.Endpoint) (types.Conn, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, e.attemptTimeout)
	defer cancel()

	conn, err := e.backend.Open(attemptCtx, ep)
	if err != nil {
		return nil, e.mapDeadline(attemptCtx, fmt.Errorf("open: %w", err))
	}

	if err := conn.Ping(attemptCtx); err != nil {
		if closeErr := conn.Close(); closeErr != nil {
			e.logger.Warn("Failed to close connection after probe failure",
				"endpoint", ep,
				"error", closeErr,
			)
		}
		return nil, e.mapDeadline(attemptCtx, fmt.Errorf("health probe: %w", err))
	}

	return conn, nil
}

// mapDeadline folds deadline-driven failures into ErrAttemptTimeout so
// callers can tell a slow endpoint from a refusing one. The original error
// stays wrapped underneath.
func (e *Establisher) mapDeadline(ctx context.Context, err error) error {
	if !errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return err
	}

	var netErr net.Error
	timeout := errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, os.ErrDeadlineExceeded) ||
		(errors.As(err, &netErr) && netErr.Timeout())
	if !timeout {
		return err
	}

	return fmt.Errorf("%w after %v: %w", types.ErrAttemptTimeout, e.attemptTimeout, err)
}

// transition fires the callback, metrics, and log for a state change and
// returns the new state.
func (e *Establisher) transition(from, to State) State {
	if from == to {
		return to
	}
	if e.onTransition != nil {
		e.onTransition(from, to)
	}
	if e.metrics != nil {
		e.metrics.RecordStateChange(from.String(), to.String())
	}
	e.logger.Debug("Establishment state changed", "from", from.String(), "to", to.String())
	return to
}
