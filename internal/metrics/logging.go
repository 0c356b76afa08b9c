package metrics

import (
	"context"
	"log/slog"
	"time"

	"github.com/LavishGent/backstop/pkg/backstop"
)

// LoggingPublisher writes metrics to a slog logger. It is the publishing
// sink when metrics are enabled without a DataDog agent. Metric methods
// are called on the command path and return early when debug logging is
// filtered out.
type LoggingPublisher struct {
	logger   *slog.Logger
	baseTags []string
}

// NewLoggingPublisher creates a new logging publisher.
func NewLoggingPublisher(logger *slog.Logger, baseTags ...string) *LoggingPublisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &LoggingPublisher{
		logger:   logger.With("component", "metrics"),
		baseTags: baseTags,
	}
}

// Gauge logs a gauge metric.
func (p *LoggingPublisher) Gauge(name string, value float64, tags ...string) {
	if !p.debugOn() {
		return
	}
	p.logger.Debug("gauge",
		"name", name,
		"value", value,
		"tags", p.mergeTags(tags),
	)
}

// Incr logs an increment metric.
func (p *LoggingPublisher) Incr(name string, tags ...string) {
	if !p.debugOn() {
		return
	}
	p.logger.Debug("incr",
		"name", name,
		"tags", p.mergeTags(tags),
	)
}

// Count logs a count metric.
func (p *LoggingPublisher) Count(name string, value int64, tags ...string) {
	if !p.debugOn() {
		return
	}
	p.logger.Debug("count",
		"name", name,
		"value", value,
		"tags", p.mergeTags(tags),
	)
}

// Histogram logs a histogram metric.
func (p *LoggingPublisher) Histogram(name string, value float64, tags ...string) {
	if !p.debugOn() {
		return
	}
	p.logger.Debug("histogram",
		"name", name,
		"value", value,
		"tags", p.mergeTags(tags),
	)
}

// Timing logs a timing metric with sub-millisecond precision.
func (p *LoggingPublisher) Timing(name string, duration time.Duration, tags ...string) {
	if !p.debugOn() {
		return
	}
	p.logger.Debug("timing",
		"name", name,
		"duration_ms", durationMs(duration),
		"tags", p.mergeTags(tags),
	)
}

// Event logs an event.
func (p *LoggingPublisher) Event(title, text, alertType string, tags ...string) {
	p.logger.Info("event",
		"title", title,
		"text", text,
		"alert_type", alertType,
		"tags", p.mergeTags(tags),
	)
}

// Close does nothing for logging publisher.
func (p *LoggingPublisher) Close() error {
	return nil
}

func (p *LoggingPublisher) debugOn() bool {
	return p.logger.Enabled(context.Background(), slog.LevelDebug)
}

// mergeTags combines base tags and call tags into a fresh slice. Appending
// into baseTags would let concurrent calls race on its backing array.
func (p *LoggingPublisher) mergeTags(tags []string) []string {
	if len(tags) == 0 {
		return p.baseTags
	}
	if len(p.baseTags) == 0 {
		return tags
	}
	merged := make([]string, 0, len(p.baseTags)+len(tags))
	merged = append(merged, p.baseTags...)
	return append(merged, tags...)
}

// Ensure LoggingPublisher implements Publisher
var _ backstop.Publisher = (*LoggingPublisher)(nil)
