package types

import (
	"context"
	"time"
)

// Backend constructs connection handles for one kind of cache server.
// Open returns an unprobed handle; callers confirm liveness with Conn.Ping
// before using it.
type Backend interface {
	Name() string
	Open(ctx context.Context, ep Endpoint) (Conn, error)
}

// Conn is one live session with one endpoint. Implementations are safe for
// concurrent use: goroutines share a single Conn without external locking.
type Conn interface {
	Endpoint() Endpoint
	Ping(ctx context.Context) error
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) (bool, error)
	Close() error
}

// MetricsRecorder receives operational measurements. Implementations must
// be safe for concurrent use.
type MetricsRecorder interface {
	RecordAttempt(role, host string, latency time.Duration, err error)
	RecordCommand(op string, latency time.Duration, err error)
	RecordRetry(op string)
	RecordStateChange(from, to string)
}
