package metrics

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/LavishGent/backstop/pkg/backstop"
)

// BackgroundPublisher publishes tracker snapshots at regular intervals
// with context-based cancellation support.
type BackgroundPublisher struct {
	publisher backstop.Publisher
	logger    *slog.Logger
	snapshot  func() Snapshot
	cancel    context.CancelFunc
	ctx       context.Context
	wg        sync.WaitGroup
	interval  time.Duration
}

// NewBackgroundPublisher creates a new background publisher.
// The snapshotFn is called on each interval to get the current counters.
func NewBackgroundPublisher(
	publisher backstop.Publisher,
	interval time.Duration,
	snapshotFn func() Snapshot,
	logger *slog.Logger,
) *BackgroundPublisher {
	if logger == nil {
		logger = slog.Default()
	}

	return &BackgroundPublisher{
		publisher: publisher,
		interval:  interval,
		logger:    logger.With("component", "metrics-background"),
		snapshot:  snapshotFn,
	}
}

// Start begins the background publishing loop.
// The provided context controls the lifecycle of the background goroutine.
func (b *BackgroundPublisher) Start(ctx context.Context) {
	b.ctx, b.cancel = context.WithCancel(ctx)
	b.wg.Add(1)
	go b.run()
	b.logger.Info("Background metrics publisher started", "interval", b.interval)
}

// Stop cancels the background context and waits for shutdown.
func (b *BackgroundPublisher) Stop() {
	if b.cancel != nil {
		b.cancel()
	}
	b.wg.Wait()
	b.logger.Info("Background metrics publisher stopped")
}

func (b *BackgroundPublisher) run() {
	defer b.wg.Done()

	ticker := time.NewTicker(b.interval)
	defer ticker.Stop()

	for {
		select {
		case <-b.ctx.Done():
			// Final publish before stopping
			b.publish()
			return
		case <-ticker.C:
			b.publish()
		}
	}
}

func (b *BackgroundPublisher) publish() {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("Recovered from panic in metrics publisher", "panic", r)
		}
	}()

	if b.snapshot == nil {
		return
	}
	s := b.snapshot()

	b.publisher.Gauge("commands.count", float64(s.Gets), OperationTag("get"))
	b.publisher.Gauge("commands.count", float64(s.Sets), OperationTag("set"))
	b.publisher.Gauge("commands.count", float64(s.Deletes), OperationTag("delete"))
	b.publisher.Gauge("commands.count", float64(s.Pings), OperationTag("ping"))
	b.publisher.Gauge("commands.total", float64(s.TotalCommands()))
	b.publisher.Gauge("commands.misses", float64(s.Misses))
	b.publisher.Gauge("commands.errors", float64(s.Errors))
	b.publisher.Gauge("commands.retries", float64(s.Retries))

	b.publisher.Gauge("establish.attempts", float64(s.Attempts))
	b.publisher.Gauge("establish.failures", float64(s.AttemptFailures))
	b.publisher.Gauge("establish.failover_attempts", float64(s.FailoverAttempts))
	b.publisher.Gauge("establish.state_changes", float64(s.StateChanges))

	b.publisher.Gauge("performance.hit_ratio", clamp(s.HitRatio(), 0, 1))
	b.publisher.Gauge("performance.avg_latency_ms", maxFloat(0, s.AvgLatencyMs))
	b.publisher.Gauge("performance.p95_latency_ms", maxFloat(0, s.P95LatencyMs))
	b.publisher.Gauge("performance.p99_latency_ms", maxFloat(0, s.P99LatencyMs))
}

// PublishNow triggers an immediate metrics publish.
func (b *BackgroundPublisher) PublishNow() {
	b.publish()
}

func clamp(val, minVal, maxVal float64) float64 {
	if val < minVal {
		return minVal
	}
	if val > maxVal {
		return maxVal
	}
	return val
}

func maxFloat(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
