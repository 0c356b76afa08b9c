package backstop

import (
	"context"
	"time"

	"github.com/LavishGent/backstop/internal/types"
)

// Client is the access handle returned by Connect. One client wraps one
// established connection shared by all callers; commands may be issued
// concurrently and complete in any order.
type Client interface {
	// Get retrieves the value stored under key. A miss returns
	// ErrKeyNotFound; use IsKeyNotFound to tell it from a failure.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores value under key. A ttl of zero uses the backend default.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes key and reports whether it existed.
	Delete(ctx context.Context, key string) (bool, error)

	// Ping probes the underlying connection.
	Ping(ctx context.Context) error

	// Endpoint reports which endpoint the connection serves.
	Endpoint() types.Endpoint

	// Stats reports retry executor counters.
	Stats() (retries, successes, failures int64)

	// Close releases the connection exactly once. Commands issued after
	// Close return ErrClosed.
	Close() error
}

// Publisher sends metrics to an external sink such as a DogStatsD agent.
type Publisher interface {
	Gauge(name string, value float64, tags ...string)
	Incr(name string, tags ...string)
	Count(name string, value int64, tags ...string)
	Histogram(name string, value float64, tags ...string)
	Timing(name string, duration time.Duration, tags ...string)
	Event(title, text string, alertType string, tags ...string)
	Close() error
}
