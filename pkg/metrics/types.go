// Package metrics provides prometheus instrumentation for the
// filmzimmer client: outbound API request counters and latency, plus
// an adapter exposing the response cache's tier counters.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Collector is the metrics sink used by the transport middleware.
type Collector interface {
	// RecordRequest records a completed API request with its duration
	// and HTTP status.
	RecordRequest(endpoint string, status string, duration time.Duration)

	// RecordError records a failed API request by error class.
	RecordError(endpoint string, errorType string)

	// RecordActiveRequests adjusts the in-flight request gauge.
	RecordActiveRequests(endpoint string, delta int)

	// RecordResponseSize records a response body size in bytes.
	RecordResponseSize(endpoint string, size int)

	// GetRegistry returns the prometheus registry backing the
	// collector.
	GetRegistry() *prometheus.Registry
}

// Config holds configuration for metrics collection.
type Config struct {
	// Namespace for metrics (e.g., "filmzimmer")
	Namespace string

	// Subsystem for metrics (e.g., "api")
	Subsystem string

	// Enable histogram buckets for latency distribution
	EnableHistogram bool

	// Custom histogram buckets (in seconds)
	HistogramBuckets []float64

	// Enable per-endpoint metrics
	EnablePerEndpointMetrics bool

	// Constant labels to add to all metrics
	ConstLabels map[string]string
}

// DefaultConfig returns the default metrics configuration.
func DefaultConfig() *Config {
	return &Config{
		Namespace:                "filmzimmer",
		Subsystem:                "api",
		EnableHistogram:          true,
		EnablePerEndpointMetrics: true,
		HistogramBuckets: []float64{
			0.005, // 5ms
			0.01,  // 10ms
			0.025, // 25ms
			0.05,  // 50ms
			0.1,   // 100ms
			0.25,  // 250ms
			0.5,   // 500ms
			1.0,   // 1s
			2.5,   // 2.5s
			5.0,   // 5s
			10.0,  // 10s
		},
		ConstLabels: make(map[string]string),
	}
}

// ConfigOption is a function that configures a Config.
type ConfigOption func(*Config)

// WithNamespace sets the namespace for metrics.
func WithNamespace(namespace string) ConfigOption {
	return func(c *Config) {
		c.Namespace = namespace
	}
}

// WithSubsystem sets the subsystem for metrics.
func WithSubsystem(subsystem string) ConfigOption {
	return func(c *Config) {
		c.Subsystem = subsystem
	}
}

// WithHistogramBuckets sets custom histogram buckets.
func WithHistogramBuckets(buckets []float64) ConfigOption {
	return func(c *Config) {
		c.HistogramBuckets = buckets
	}
}

// WithConstLabels sets constant labels for all metrics.
func WithConstLabels(labels map[string]string) ConfigOption {
	return func(c *Config) {
		c.ConstLabels = labels
	}
}

// WithoutHistogram disables histogram metrics.
func WithoutHistogram() ConfigOption {
	return func(c *Config) {
		c.EnableHistogram = false
	}
}

// WithoutPerEndpointMetrics disables per-endpoint metrics.
func WithoutPerEndpointMetrics() ConfigOption {
	return func(c *Config) {
		c.EnablePerEndpointMetrics = false
	}
}
