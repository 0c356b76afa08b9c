// Package worker drives concurrent cache traffic against one shared client.
package worker

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/LavishGent/backstop/internal/config"
	"github.com/LavishGent/backstop/internal/types"
)

// probeTimeout bounds the health probe issued after a worker failure to
// decide whether the shared connection is dead.
const probeTimeout = 5 * time.Second

// Cache is the slice of the client surface the workers drive.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) (bool, error)
	Ping(ctx context.Context) error
}

// Results summarizes one pool run.
type Results struct {
	Workers   int
	Completed int
	Aborted   int
	Ops       int64
}

// Pool runs a fixed set of workers against one shared cache client. Workers
// never coordinate with each other: each owns a private key for read-back
// verification and all of them race on one shared key, where any worker's
// value is a valid outcome.
//
// A worker that hits a terminal command failure probes the connection. If
// the probe succeeds the worker aborts alone and the rest keep running; if
// it fails the whole run is cancelled.
type Pool struct {
	cache  Cache
	cfg    config.WorkersConfig
	logger *slog.Logger
}

// New creates a pool. Zero config values fall back to the defaults used by
// config.Default.
func New(cache Cache, cfg config.WorkersConfig, logger *slog.Logger) *Pool {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Count <= 0 {
		cfg.Count = 4
	}
	if cfg.Iterations <= 0 {
		cfg.Iterations = 100
	}
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = "worker:"
	}
	return &Pool{
		cache:  cache,
		cfg:    cfg,
		logger: logger.With("component", "worker-pool"),
	}
}

// Run starts the workers and blocks until all of them finish or the run is
// cancelled. The returned Results count whatever work happened before the
// error, so they are meaningful on both paths.
func (p *Pool) Run(parent context.Context) (Results, error) {
	g, ctx := errgroup.WithContext(parent)

	var completed, aborted, ops atomic.Int64

	p.logger.Info("Starting workers",
		"count", p.cfg.Count,
		"iterations", p.cfg.Iterations,
	)
	start := time.Now()

	for i := 0; i < p.cfg.Count; i++ {
		id := i
		g.Go(func() error {
			n, err := p.runWorker(ctx, id)
			ops.Add(n)
			if err == nil {
				completed.Add(1)
				return nil
			}
			aborted.Add(1)
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				p.logger.Debug("Worker cancelled", "worker", id)
				return nil
			}
			if probeErr := p.probe(); probeErr != nil {
				p.logger.Error("Connection is dead, failing the run",
					"worker", id,
					"error", err,
					"probe_error", probeErr,
				)
				return fmt.Errorf("worker %d: connection dead: %w", id, err)
			}
			p.logger.Error("Worker aborted, connection still healthy",
				"worker", id,
				"error", err,
			)
			return nil
		})
	}

	err := g.Wait()

	results := Results{
		Workers:   p.cfg.Count,
		Completed: int(completed.Load()),
		Aborted:   int(aborted.Load()),
		Ops:       ops.Load(),
	}

	p.logger.Info("Workers finished",
		"completed", results.Completed,
		"aborted", results.Aborted,
		"ops", results.Ops,
		"elapsed", time.Since(start),
	)

	if err != nil {
		return results, err
	}
	if parent.Err() != nil {
		return results, parent.Err()
	}
	return results, nil
}

func (p *Pool) runWorker(ctx context.Context, id int) (int64, error) {
	key := fmt.Sprintf("%sw%d", p.cfg.KeyPrefix, id)
	shared := p.cfg.KeyPrefix + "shared"

	var ops int64
	for i := 0; i < p.cfg.Iterations; i++ {
		if err := ctx.Err(); err != nil {
			return ops, err
		}

		value := []byte(fmt.Sprintf("worker %d iteration %d", id, i))

		// This worker is the only writer of its private key, so the get
		// must read back exactly what the set wrote.
		if err := p.cache.Set(ctx, key, value, p.cfg.TTL); err != nil {
			return ops, fmt.Errorf("set %s: %w", key, err)
		}
		ops++

		got, err := p.cache.Get(ctx, key)
		if err != nil {
			return ops, fmt.Errorf("get %s: %w", key, err)
		}
		ops++
		if !bytes.Equal(got, value) {
			return ops, fmt.Errorf("get %s: read back %q, want %q", key, got, value)
		}

		// Every worker writes the shared key. The writes race and commands
		// from different workers complete in no particular order; a read
		// observing any worker's value, or none, is correct.
		if err := p.cache.Set(ctx, shared, value, p.cfg.TTL); err != nil {
			return ops, fmt.Errorf("set %s: %w", shared, err)
		}
		ops++

		if _, err := p.cache.Get(ctx, shared); err != nil && !types.IsKeyNotFound(err) {
			return ops, fmt.Errorf("get %s: %w", shared, err)
		}
		ops++

		if i%10 == 9 {
			if _, err := p.cache.Delete(ctx, key); err != nil {
				return ops, fmt.Errorf("delete %s: %w", key, err)
			}
			ops++
		}
	}

	p.logger.Debug("Worker completed", "worker", id, "ops", ops)
	return ops, nil
}

// probe checks the shared connection on its own context. The group context
// may already be cancelled when a worker fails, and a cancelled probe would
// misread a healthy connection as dead.
func (p *Pool) probe() error {
	ctx, cancel := context.WithTimeout(context.Background(), probeTimeout)
	defer cancel()
	return p.cache.Ping(ctx)
}
