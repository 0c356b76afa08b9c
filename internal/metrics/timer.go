package metrics

import (
	"time"

	"github.com/LavishGent/backstop/pkg/backstop"
)

// Timer measures the latency of a single operation and records it as a
// timing metric when stopped. A nil publisher turns the timer into a plain
// stopwatch, so call sites do not branch on whether metrics are enabled.
type Timer struct {
	publisher backstop.Publisher
	name      string
	tags      []string
	start     time.Time
}

// NewTimer starts a timer that records to the publisher when stopped.
func NewTimer(publisher backstop.Publisher, name string, tags ...string) *Timer {
	return &Timer{
		publisher: publisher,
		name:      name,
		tags:      tags,
		start:     time.Now(),
	}
}

// Stop records the elapsed time as a timing metric and returns the duration.
func (t *Timer) Stop() time.Duration {
	duration := time.Since(t.start)
	if t.publisher != nil {
		t.publisher.Timing(t.name, duration, t.tags...)
	}
	return duration
}

// Elapsed returns the time since the timer was started without recording.
func (t *Timer) Elapsed() time.Duration {
	return time.Since(t.start)
}
