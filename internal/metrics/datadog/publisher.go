// Package datadog provides a DataDog StatsD metrics publisher.
package datadog

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/LavishGent/backstop/internal/config"
	"github.com/LavishGent/backstop/pkg/backstop"

	"github.com/DataDog/datadog-go/v5/statsd"
)

// Publisher implements backstop.Publisher using the DataDog StatsD client.
type Publisher struct {
	baseTags []string
	client   *statsd.Client
	logger   *slog.Logger
}

// NewPublisher creates a new DataDog publisher from config.
// If DataDog is not enabled, returns a NoOpPublisher instead.
func NewPublisher(cfg *config.DataDogConfig, logger *slog.Logger) (backstop.Publisher, error) {
	if !cfg.Enabled {
		return &NoOpPublisher{}, nil
	}

	if logger == nil {
		logger = slog.Default()
	}

	addr := fmt.Sprintf("%s:%d", cfg.AgentHost, cfg.Port)

	client, err := statsd.New(addr,
		statsd.WithNamespace(cfg.Prefix+"."),
		statsd.WithTags(cfg.Tags),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create statsd client: %w", err)
	}

	logger.Info("DataDog publisher initialized",
		"address", addr,
		"prefix", cfg.Prefix,
		"tags", cfg.Tags,
	)

	return &Publisher{
		client:   client,
		baseTags: cfg.Tags,
		logger:   logger.With("component", "datadog"),
	}, nil
}

// Gauge records a gauge metric (value at a point in time).
func (p *Publisher) Gauge(name string, value float64, tags ...string) {
	err := p.client.Gauge(name, value, p.mergeTags(tags), 1)
	p.sendResult("gauge", name, err)
}

// Incr increments a counter by 1.
func (p *Publisher) Incr(name string, tags ...string) {
	err := p.client.Incr(name, p.mergeTags(tags), 1)
	p.sendResult("incr", name, err)
}

// Count increments a counter by a specified amount.
func (p *Publisher) Count(name string, value int64, tags ...string) {
	err := p.client.Count(name, value, p.mergeTags(tags), 1)
	p.sendResult("count", name, err)
}

// Histogram records a distribution of values.
func (p *Publisher) Histogram(name string, value float64, tags ...string) {
	err := p.client.Histogram(name, value, p.mergeTags(tags), 1)
	p.sendResult("histogram", name, err)
}

// Timing records a timing metric.
func (p *Publisher) Timing(name string, duration time.Duration, tags ...string) {
	err := p.client.Timing(name, duration, p.mergeTags(tags), 1)
	p.sendResult("timing", name, err)
}

// Event sends a DataDog event.
func (p *Publisher) Event(title, text, alertType string, tags ...string) {
	event := &statsd.Event{
		Title:     title,
		Text:      text,
		AlertType: statsd.EventAlertType(alertType),
		Tags:      p.mergeTags(tags),
	}
	err := p.client.Event(event)
	p.sendResult("event", title, err)
}

// Close releases resources held by the publisher.
func (p *Publisher) Close() error {
	if p.client != nil {
		return p.client.Close()
	}
	return nil
}

// sendResult logs a failed send at debug level. Metric delivery is best
// effort and never fails the caller.
func (p *Publisher) sendResult(kind, name string, err error) {
	if err != nil {
		p.logger.Debug("Failed to send metric",
			"kind", kind,
			"name", name,
			"error", err,
		)
	}
}

// mergeTags combines base tags and call tags into a fresh slice. Appending
// into baseTags would let concurrent calls race on its backing array.
func (p *Publisher) mergeTags(tags []string) []string {
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

// Ensure Publisher implements the interface
var _ backstop.Publisher = (*Publisher)(nil)
