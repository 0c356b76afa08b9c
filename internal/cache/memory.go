package cache

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/allegro/bigcache/v3"

	"github.com/LavishGent/backstop/internal/config"
	"github.com/LavishGent/backstop/internal/types"
)

// MemoryBackend serves an in-process store behind the same Backend contract
// as Redis. It backs local development and tests, where a real server is
// not worth the setup. Each Open creates an isolated store.
type MemoryBackend struct {
	cfg    config.MemoryConfig
	logger *slog.Logger
}

// NewMemoryBackend creates a memory backend with the given configuration.
func NewMemoryBackend(cfg config.MemoryConfig, logger *slog.Logger) *MemoryBackend {
	if logger == nil {
		logger = slog.Default()
	}
	return &MemoryBackend{
		cfg:    cfg,
		logger: logger.With("component", "memory-backend"),
	}
}

// Name returns the backend name.
func (b *MemoryBackend) Name() string {
	return "memory"
}

// Open creates a fresh BigCache store for the endpoint. The endpoint host
// is carried for reporting but nothing is dialed.
func (b *MemoryBackend) Open(ctx context.Context, ep types.Endpoint) (types.Conn, error) {
	bcConfig := bigcache.Config{
		Shards:             b.cfg.Shards,
		LifeWindow:         b.cfg.DefaultTTL,
		CleanWindow:        b.cfg.CleanupInterval,
		MaxEntriesInWindow: 1000 * 10 * 60, // Estimated entries in LifeWindow
		MaxEntrySize:       b.cfg.MaxEntrySize,
		HardMaxCacheSize:   b.cfg.MaxSizeMB,
		Verbose:            false,
		Logger:             &bigcacheLogger{logger: b.logger},
	}

	bc, err := bigcache.New(ctx, bcConfig)
	if err != nil {
		return nil, err
	}

	return &memoryConn{
		ep:    ep,
		cache: bc,
	}, nil
}

type memoryConn struct {
	ep     types.Endpoint
	cache  *bigcache.BigCache
	closed atomic.Bool
}

func (c *memoryConn) Endpoint() types.Endpoint {
	return c.ep
}

// Ping reports whether the store is still open. There is no server to
// reach.
func (c *memoryConn) Ping(ctx context.Context) error {
	if c.closed.Load() {
		return types.ErrClosed
	}
	return nil
}

// Get retrieves a value from the store.
func (c *memoryConn) Get(ctx context.Context, key string) ([]byte, error) {
	if c.closed.Load() {
		return nil, types.ErrClosed
	}

	data, err := c.cache.Get(key)
	if err != nil {
		if errors.Is(err, bigcache.ErrEntryNotFound) {
			return nil, types.ErrKeyNotFound
		}
		return nil, err
	}
	return data, nil
}

// Set stores a value. BigCache expires whole generations through its
// LifeWindow, so the per-key ttl is not honored here; entries live for the
// configured default TTL.
func (c *memoryConn) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if c.closed.Load() {
		return types.ErrClosed
	}
	return c.cache.Set(key, value)
}

// Delete removes a value. Deleting an absent key is not an error.
func (c *memoryConn) Delete(ctx context.Context, key string) (bool, error) {
	if c.closed.Load() {
		return false, types.ErrClosed
	}

	if err := c.cache.Delete(key); err != nil {
		if errors.Is(err, bigcache.ErrEntryNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Close releases the store. Safe to call more than once.
func (c *memoryConn) Close() error {
	if c.closed.Swap(true) {
		return nil
	}
	return c.cache.Close()
}

type bigcacheLogger struct {
	logger *slog.Logger
}

func (l *bigcacheLogger) Printf(format string, args ...any) {
	l.logger.Debug("bigcache: "+format, args...)
}

var _ types.Backend = (*MemoryBackend)(nil)
var _ types.Conn = (*memoryConn)(nil)
