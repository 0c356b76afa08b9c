package datadog

import (
	"time"

	"github.com/LavishGent/backstop/pkg/backstop"
)

// NoOpPublisher is a Publisher that does nothing. NewPublisher returns it
// when DataDog is disabled in config.
type NoOpPublisher struct{}

// Gauge does nothing.
func (p *NoOpPublisher) Gauge(name string, value float64, tags ...string) {}

// Incr does nothing.
func (p *NoOpPublisher) Incr(name string, tags ...string) {}

// Count does nothing.
func (p *NoOpPublisher) Count(name string, value int64, tags ...string) {}

// Histogram does nothing.
func (p *NoOpPublisher) Histogram(name string, value float64, tags ...string) {}

// Timing does nothing.
func (p *NoOpPublisher) Timing(name string, value time.Duration, tags ...string) {}

// Event does nothing.
func (p *NoOpPublisher) Event(title, text, alertType string, tags ...string) {}

// Close does nothing.
func (p *NoOpPublisher) Close() error { return nil }

var _ backstop.Publisher = (*NoOpPublisher)(nil)
