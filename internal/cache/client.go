// Package cache implements access to the remote store: backends that open
// connections and the command client that funnels every operation through
// the retry executor.
package cache

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/LavishGent/backstop/internal/resilience"
	"github.com/LavishGent/backstop/internal/types"
)

// Client issues commands against one established connection. All commands
// pass through the retry executor, so transient failures are retried and
// fatal ones surface immediately; no command path bypasses it.
//
// Client is safe for concurrent use. Commands from different goroutines do
// not serialize against each other and may complete in any order.
type Client struct {
	conn    types.Conn
	exec    *resilience.Executor
	logger  *slog.Logger
	metrics types.MetricsRecorder
	closed  atomic.Bool
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithClientLogger sets the logger. Defaults to slog.Default().
func WithClientLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithClientMetrics sets the metrics recorder.
func WithClientMetrics(rec types.MetricsRecorder) ClientOption {
	return func(c *Client) {
		c.metrics = rec
	}
}

// NewClient wraps an established connection. The client takes ownership:
// Close releases the connection, exactly once.
func NewClient(conn types.Conn, exec *resilience.Executor, opts ...ClientOption) *Client {
	c := &Client{
		conn:   conn,
		exec:   exec,
		logger: slog.Default(),
	}

	for _, opt := range opts {
		opt(c)
	}

	c.logger = c.logger.With("component", "cache-client")
	return c
}

// Get retrieves the value stored under key. An absent key returns
// types.ErrKeyNotFound unwrapped, so callers can tell a miss from a
// failure.
func (c *Client) Get(ctx context.Context, key string) ([]byte, error) {
	if c.closed.Load() {
		return nil, types.ErrClosed
	}
	if err := types.ValidateKey(key); err != nil {
		return nil, err
	}

	start := time.Now()
	result, err := c.exec.ExecuteWithResult(ctx, "get", func(ctx context.Context) (any, error) {
		return c.conn.Get(ctx, key)
	})
	c.record("get", start, err)

	if err != nil {
		if types.IsKeyNotFound(err) {
			return nil, types.ErrKeyNotFound
		}
		return nil, types.NewCommandError("get", key, err)
	}

	data, ok := result.([]byte)
	if !ok {
		return nil, types.NewCommandError("get", key, fmt.Errorf("unexpected result type %T", result))
	}
	return data, nil
}

// Set stores value under key. A ttl of zero uses the backend's default.
func (c *Client) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if c.closed.Load() {
		return types.ErrClosed
	}
	if err := types.ValidateKey(key); err != nil {
		return err
	}

	start := time.Now()
	err := c.exec.Execute(ctx, "set", func(ctx context.Context) error {
		return c.conn.Set(ctx, key, value, ttl)
	})
	c.record("set", start, err)

	if err != nil {
		return types.NewCommandError("set", key, err)
	}
	return nil
}

// Delete removes key and reports whether it existed.
func (c *Client) Delete(ctx context.Context, key string) (bool, error) {
	if c.closed.Load() {
		return false, types.ErrClosed
	}
	if err := types.ValidateKey(key); err != nil {
		return false, err
	}

	start := time.Now()
	result, err := c.exec.ExecuteWithResult(ctx, "delete", func(ctx context.Context) (any, error) {
		return c.conn.Delete(ctx, key)
	})
	c.record("delete", start, err)

	if err != nil {
		return false, types.NewCommandError("delete", key, err)
	}

	existed, ok := result.(bool)
	if !ok {
		return false, types.NewCommandError("delete", key, fmt.Errorf("unexpected result type %T", result))
	}
	return existed, nil
}

// Ping probes the connection.
func (c *Client) Ping(ctx context.Context) error {
	if c.closed.Load() {
		return types.ErrClosed
	}

	start := time.Now()
	err := c.exec.Execute(ctx, "ping", func(ctx context.Context) error {
		return c.conn.Ping(ctx)
	})
	c.record("ping", start, err)

	if err != nil {
		return types.NewCommandError("ping", "", err)
	}
	return nil
}

// Endpoint reports which endpoint the underlying connection serves.
func (c *Client) Endpoint() types.Endpoint {
	return c.conn.Endpoint()
}

// Stats reports retry executor counters since construction or the last
// reset.
func (c *Client) Stats() (retries, successes, failures int64) {
	return c.exec.Stats()
}

// Close releases the connection. Subsequent commands return
// types.ErrClosed; further Close calls are no-ops.
func (c *Client) Close() error {
	if c.closed.Swap(true) {
		return nil
	}
	c.logger.Info("Closing cache client", "endpoint", c.conn.Endpoint())
	return c.conn.Close()
}

func (c *Client) record(op string, start time.Time, err error) {
	if c.metrics != nil {
		c.metrics.RecordCommand(op, time.Since(start), err)
	}
}
