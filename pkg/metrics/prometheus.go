package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/Fawzi-AI/filmzimmer/pkg/cache"
)

// PrometheusCollector implements Collector for Prometheus.
type PrometheusCollector struct {
	config   *Config
	registry *prometheus.Registry

	// Request metrics
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	activeRequests  *prometheus.GaugeVec

	// Error metrics
	errorsTotal *prometheus.CounterVec

	// Response size metrics
	responseSize *prometheus.HistogramVec
}

// NewPrometheusCollector creates a new Prometheus metrics collector
// with its own isolated registry.
func NewPrometheusCollector(opts ...ConfigOption) (*PrometheusCollector, error) {
	config := DefaultConfig()
	for _, opt := range opts {
		opt(config)
	}

	registry := prometheus.NewRegistry()
	collector := &PrometheusCollector{
		config:   config,
		registry: registry,
	}

	if err := collector.initMetrics(); err != nil {
		return nil, err
	}

	return collector, nil
}

// initMetrics initializes all Prometheus metrics.
func (p *PrometheusCollector) initMetrics() error {
	labels := []string{"endpoint", "status"}
	if !p.config.EnablePerEndpointMetrics {
		labels = []string{"status"}
	}

	// Total requests counter
	p.requestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   p.config.Namespace,
			Subsystem:   p.config.Subsystem,
			Name:        "requests_total",
			Help:        "Total number of API requests issued",
			ConstLabels: p.config.ConstLabels,
		},
		labels,
	)

	// Request duration histogram
	if p.config.EnableHistogram {
		p.requestDuration = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace:   p.config.Namespace,
				Subsystem:   p.config.Subsystem,
				Name:        "request_duration_seconds",
				Help:        "Histogram of API request duration in seconds",
				Buckets:     p.config.HistogramBuckets,
				ConstLabels: p.config.ConstLabels,
			},
			labels,
		)
	}

	// Active requests gauge
	gaugeLabels := []string{"endpoint"}
	if !p.config.EnablePerEndpointMetrics {
		gaugeLabels = []string{}
	}

	p.activeRequests = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace:   p.config.Namespace,
			Subsystem:   p.config.Subsystem,
			Name:        "active_requests",
			Help:        "Number of in-flight API requests",
			ConstLabels: p.config.ConstLabels,
		},
		gaugeLabels,
	)

	// Total errors counter
	errorLabels := []string{"endpoint", "error_type"}
	if !p.config.EnablePerEndpointMetrics {
		errorLabels = []string{"error_type"}
	}

	p.errorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   p.config.Namespace,
			Subsystem:   p.config.Subsystem,
			Name:        "errors_total",
			Help:        "Total number of failed API requests",
			ConstLabels: p.config.ConstLabels,
		},
		errorLabels,
	)

	// Response size histogram
	sizeLabels := []string{"endpoint"}
	if !p.config.EnablePerEndpointMetrics {
		sizeLabels = []string{}
	}

	sizeBuckets := []float64{
		256, 1024, 4096, 16384, 65536, 262144, 1048576,
	} // 256B, 1KB, 4KB, 16KB, 64KB, 256KB, 1MB

	p.responseSize = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace:   p.config.Namespace,
			Subsystem:   p.config.Subsystem,
			Name:        "response_bytes",
			Help:        "Histogram of response body sizes (bytes)",
			Buckets:     sizeBuckets,
			ConstLabels: p.config.ConstLabels,
		},
		sizeLabels,
	)

	// Register all metrics
	p.registry.MustRegister(
		p.requestsTotal,
		p.activeRequests,
		p.errorsTotal,
		p.responseSize,
	)

	if p.config.EnableHistogram {
		p.registry.MustRegister(p.requestDuration)
	}

	return nil
}

// RecordRequest records a completed request.
func (p *PrometheusCollector) RecordRequest(endpoint string, status string, duration time.Duration) {
	if p.config.EnablePerEndpointMetrics {
		p.requestsTotal.WithLabelValues(endpoint, status).Inc()
		if p.config.EnableHistogram {
			p.requestDuration.WithLabelValues(endpoint, status).Observe(duration.Seconds())
		}
	} else {
		p.requestsTotal.WithLabelValues(status).Inc()
		if p.config.EnableHistogram {
			p.requestDuration.WithLabelValues(status).Observe(duration.Seconds())
		}
	}
}

// RecordError records an error occurrence.
func (p *PrometheusCollector) RecordError(endpoint string, errorType string) {
	if p.config.EnablePerEndpointMetrics {
		p.errorsTotal.WithLabelValues(endpoint, errorType).Inc()
	} else {
		p.errorsTotal.WithLabelValues(errorType).Inc()
	}
}

// RecordActiveRequests updates the in-flight request gauge.
func (p *PrometheusCollector) RecordActiveRequests(endpoint string, delta int) {
	if p.config.EnablePerEndpointMetrics {
		p.activeRequests.WithLabelValues(endpoint).Add(float64(delta))
	} else {
		p.activeRequests.WithLabelValues().Add(float64(delta))
	}
}

// RecordResponseSize records a response body size.
func (p *PrometheusCollector) RecordResponseSize(endpoint string, size int) {
	if p.config.EnablePerEndpointMetrics {
		p.responseSize.WithLabelValues(endpoint).Observe(float64(size))
	} else {
		p.responseSize.WithLabelValues().Observe(float64(size))
	}
}

// GetRegistry returns the Prometheus registry.
func (p *PrometheusCollector) GetRegistry() *prometheus.Registry {
	return p.registry
}

// MustRegister registers a custom collector.
func (p *PrometheusCollector) MustRegister(collectors ...prometheus.Collector) {
	p.registry.MustRegister(collectors...)
}

// Unregister unregisters a collector.
func (p *PrometheusCollector) Unregister(collector prometheus.Collector) bool {
	return p.registry.Unregister(collector)
}

var _ Collector = (*PrometheusCollector)(nil)

// CacheStatsCollector exposes the response cache's tier counters as
// prometheus metrics. Register it with MustRegister and it reads the
// cache's stats on every scrape.
type CacheStatsCollector struct {
	stats func() cache.TieredStats

	lookups       *prometheus.Desc
	expired       *prometheus.Desc
	writes        *prometheus.Desc
	writeFailures *prometheus.Desc
	entries       *prometheus.Desc
}

// NewCacheStatsCollector creates a collector over a stats provider,
// typically the Stats method of a cache instance.
func NewCacheStatsCollector(stats func() cache.TieredStats) *CacheStatsCollector {
	return &CacheStatsCollector{
		stats: stats,
		lookups: prometheus.NewDesc(
			"filmzimmer_cache_lookups_total",
			"Total number of cache lookups by tier and outcome",
			[]string{"tier", "outcome"}, nil,
		),
		expired: prometheus.NewDesc(
			"filmzimmer_cache_expired_entries_total",
			"Total number of stale entries removed during lookups",
			[]string{"tier"}, nil,
		),
		writes: prometheus.NewDesc(
			"filmzimmer_cache_writes_total",
			"Total number of cache writes by tier",
			[]string{"tier"}, nil,
		),
		writeFailures: prometheus.NewDesc(
			"filmzimmer_cache_write_failures_total",
			"Total number of cache writes dropped or rejected by tier",
			[]string{"tier"}, nil,
		),
		entries: prometheus.NewDesc(
			"filmzimmer_cache_entries",
			"Number of entries currently held in the memory tier",
			[]string{"tier"}, nil,
		),
	}
}

// Describe implements prometheus.Collector.
func (c *CacheStatsCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.lookups
	ch <- c.expired
	ch <- c.writes
	ch <- c.writeFailures
	ch <- c.entries
}

// Collect implements prometheus.Collector.
func (c *CacheStatsCollector) Collect(ch chan<- prometheus.Metric) {
	stats := c.stats()
	c.collectTier(ch, cache.TierMemory, stats.Memory)
	c.collectTier(ch, cache.TierPersistent, stats.Persistent)
	ch <- prometheus.MustNewConstMetric(c.entries, prometheus.GaugeValue,
		float64(stats.Memory.Size), cache.TierMemory)
}

func (c *CacheStatsCollector) collectTier(ch chan<- prometheus.Metric, tier string, stats cache.Stats) {
	ch <- prometheus.MustNewConstMetric(c.lookups, prometheus.CounterValue,
		float64(stats.Hits), tier, "hit")
	ch <- prometheus.MustNewConstMetric(c.lookups, prometheus.CounterValue,
		float64(stats.Misses), tier, "miss")
	ch <- prometheus.MustNewConstMetric(c.expired, prometheus.CounterValue,
		float64(stats.Expired), tier)
	ch <- prometheus.MustNewConstMetric(c.writes, prometheus.CounterValue,
		float64(stats.Sets), tier)
	ch <- prometheus.MustNewConstMetric(c.writeFailures, prometheus.CounterValue,
		float64(stats.WriteFailures), tier)
}

var _ prometheus.Collector = (*CacheStatsCollector)(nil)
