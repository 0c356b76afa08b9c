// Package metrics provides command metrics collection and publishing.
package metrics

import (
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/LavishGent/backstop/internal/types"
)

const (
	defaultLatencyBufferSize = 10000
)

type Tracker struct {
	attempts         atomic.Int64
	attemptFailures  atomic.Int64
	failoverAttempts atomic.Int64
	stateChanges     atomic.Int64

	gets    atomic.Int64
	sets    atomic.Int64
	deletes atomic.Int64
	pings   atomic.Int64

	misses  atomic.Int64
	errors  atomic.Int64
	retries atomic.Int64

	latencyMu     sync.RWMutex
	latencyBuffer []time.Duration
	latencyIndex  int
	latencyCount  int
}

func NewTracker() *Tracker {
	return &Tracker{
		latencyBuffer: make([]time.Duration, defaultLatencyBufferSize),
	}
}

// RecordAttempt records one connection attempt against an endpoint. Attempt
// latencies are not mixed into the command latency window; an establishment
// attempt runs on a different time scale than a command round trip.
func (t *Tracker) RecordAttempt(role, host string, latency time.Duration, err error) {
	t.attempts.Add(1)
	if role == "failover" {
		t.failoverAttempts.Add(1)
	}
	if err != nil {
		t.attemptFailures.Add(1)
	}
}

// RecordCommand records one command invocation against the connection. A
// miss is a successful round trip, so it counts separately from errors.
func (t *Tracker) RecordCommand(op string, latency time.Duration, err error) {
	switch op {
	case "get":
		t.gets.Add(1)
	case "set":
		t.sets.Add(1)
	case "delete":
		t.deletes.Add(1)
	case "ping":
		t.pings.Add(1)
	}
	t.recordLatency(latency)

	if err == nil {
		return
	}
	if types.IsKeyNotFound(err) {
		t.misses.Add(1)
		return
	}
	t.errors.Add(1)
}

// RecordRetry records one retry of a command.
func (t *Tracker) RecordRetry(op string) {
	t.retries.Add(1)
}

// RecordStateChange records an establishment state transition.
func (t *Tracker) RecordStateChange(from, to string) {
	t.stateChanges.Add(1)
}

// recordLatency adds a latency measurement using a circular buffer.
// This is O(1) time complexity with no memory allocations.
func (t *Tracker) recordLatency(latency time.Duration) {
	t.latencyMu.Lock()
	t.latencyBuffer[t.latencyIndex] = latency
	t.latencyIndex = (t.latencyIndex + 1) % len(t.latencyBuffer)
	if t.latencyCount < len(t.latencyBuffer) {
		t.latencyCount++
	}
	t.latencyMu.Unlock()
}

// Snapshot returns current metrics snapshot.
func (t *Tracker) Snapshot() Snapshot {
	// Use RLock for reading - allows concurrent snapshots
	t.latencyMu.RLock()
	count := t.latencyCount
	latencyCopy := make([]time.Duration, count)
	// Copy from circular buffer in correct order
	if count > 0 {
		if count < len(t.latencyBuffer) {
			// Buffer not full yet - data starts at 0
			copy(latencyCopy, t.latencyBuffer[:count])
		} else {
			// Buffer is full - oldest data starts at latencyIndex
			firstPart := len(t.latencyBuffer) - t.latencyIndex
			copy(latencyCopy[:firstPart], t.latencyBuffer[t.latencyIndex:])
			copy(latencyCopy[firstPart:], t.latencyBuffer[:t.latencyIndex])
		}
	}
	t.latencyMu.RUnlock()

	snapshot := Snapshot{
		Timestamp:        time.Now(),
		Attempts:         t.attempts.Load(),
		AttemptFailures:  t.attemptFailures.Load(),
		FailoverAttempts: t.failoverAttempts.Load(),
		StateChanges:     t.stateChanges.Load(),
		Gets:             t.gets.Load(),
		Sets:             t.sets.Load(),
		Deletes:          t.deletes.Load(),
		Pings:            t.pings.Load(),
		Misses:           t.misses.Load(),
		Errors:           t.errors.Load(),
		Retries:          t.retries.Load(),
	}

	// Calculate latency percentiles
	if len(latencyCopy) > 0 {
		snapshot.AvgLatencyMs = durationMs(avgDuration(latencyCopy))
		snapshot.P50LatencyMs = durationMs(percentile(latencyCopy, 50))
		snapshot.P95LatencyMs = durationMs(percentile(latencyCopy, 95))
		snapshot.P99LatencyMs = durationMs(percentile(latencyCopy, 99))
	}

	return snapshot
}

// Reset clears all metrics.
func (t *Tracker) Reset() {
	t.attempts.Store(0)
	t.attemptFailures.Store(0)
	t.failoverAttempts.Store(0)
	t.stateChanges.Store(0)
	t.gets.Store(0)
	t.sets.Store(0)
	t.deletes.Store(0)
	t.pings.Store(0)
	t.misses.Store(0)
	t.errors.Store(0)
	t.retries.Store(0)

	t.latencyMu.Lock()
	t.latencyIndex = 0
	t.latencyCount = 0
	t.latencyMu.Unlock()
}

// Snapshot is a point-in-time copy of the tracker counters.
//
//nolint:govet // Field order mirrors the published metric groups
type Snapshot struct {
	Timestamp time.Time

	Attempts         int64
	AttemptFailures  int64
	FailoverAttempts int64
	StateChanges     int64

	Gets    int64
	Sets    int64
	Deletes int64
	Pings   int64

	Misses  int64
	Errors  int64
	Retries int64

	AvgLatencyMs float64
	P50LatencyMs float64
	P95LatencyMs float64
	P99LatencyMs float64
}

// TotalCommands returns the number of commands recorded across all operations.
func (s Snapshot) TotalCommands() int64 {
	return s.Gets + s.Sets + s.Deletes + s.Pings
}

// HitRatio returns the fraction of gets that did not miss.
func (s Snapshot) HitRatio() float64 {
	if s.Gets == 0 {
		return 0
	}
	hits := s.Gets - s.Misses
	if hits < 0 {
		hits = 0
	}
	return float64(hits) / float64(s.Gets)
}

// Helper functions for latency calculations

func avgDuration(durations []time.Duration) time.Duration {
	if len(durations) == 0 {
		return 0
	}
	var total time.Duration
	for _, d := range durations {
		total += d
	}
	return total / time.Duration(len(durations))
}

func percentile(durations []time.Duration, p int) time.Duration {
	if len(durations) == 0 {
		return 0
	}

	// Sort a copy
	sorted := make([]time.Duration, len(durations))
	copy(sorted, durations)
	slices.Sort(sorted)

	idx := (len(sorted) - 1) * p / 100
	return sorted[idx]
}

// durationMs converts to milliseconds keeping sub-millisecond precision,
// which command round trips on a local network routinely need.
func durationMs(d time.Duration) float64 {
	return float64(d.Microseconds()) / 1000.0
}

// Ensure Tracker implements MetricsRecorder
var _ types.MetricsRecorder = (*Tracker)(nil)
