// Package tracing wires OpenTelemetry with a Jaeger exporter for the
// filmzimmer client. Spans for outbound API calls are produced by the
// transport middleware; this package only bootstraps the provider.
package tracing

import (
	"context"
	"fmt"
	"os"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/jaeger"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
)

// Config holds configuration for the Jaeger-backed tracer provider.
type Config struct {
	ServiceName       string
	ServiceVersion    string
	Environment       string
	AgentEndpoint     string
	CollectorEndpoint string
	SamplingRate      float64
	ExtraAttributes   map[string]string
}

// DefaultConfig returns the default tracing configuration.
func DefaultConfig() *Config {
	return &Config{
		ServiceName:       "filmzimmer",
		ServiceVersion:    "1.0.0",
		Environment:       getEnvOrDefault("ENVIRONMENT", "development"),
		AgentEndpoint:     "localhost:6831",
		CollectorEndpoint: getEnvOrDefault("JAEGER_ENDPOINT", ""),
		SamplingRate:      1.0,
	}
}

// Option is a functional option for the tracing configuration.
type Option func(*Config)

// WithServiceName sets the service name.
func WithServiceName(name string) Option {
	return func(c *Config) {
		c.ServiceName = name
	}
}

// WithServiceVersion sets the service version.
func WithServiceVersion(version string) Option {
	return func(c *Config) {
		c.ServiceVersion = version
	}
}

// WithEnvironment sets the deployment environment.
func WithEnvironment(env string) Option {
	return func(c *Config) {
		c.Environment = env
	}
}

// WithAgentEndpoint sets the Jaeger agent host (UDP).
func WithAgentEndpoint(endpoint string) Option {
	return func(c *Config) {
		c.AgentEndpoint = endpoint
	}
}

// WithCollectorEndpoint sets the Jaeger collector endpoint (HTTP).
// When set it takes precedence over the agent endpoint.
func WithCollectorEndpoint(endpoint string) Option {
	return func(c *Config) {
		c.CollectorEndpoint = endpoint
	}
}

// WithSamplingRate sets the trace sampling rate (0.0 to 1.0).
func WithSamplingRate(rate float64) Option {
	return func(c *Config) {
		c.SamplingRate = rate
	}
}

// WithAttribute adds an extra resource attribute.
func WithAttribute(key, value string) Option {
	return func(c *Config) {
		if c.ExtraAttributes == nil {
			c.ExtraAttributes = make(map[string]string)
		}
		c.ExtraAttributes[key] = value
	}
}

// Init builds the Jaeger exporter and tracer provider and installs
// them globally, together with W3C trace-context propagation. The
// returned provider must be shut down on exit.
func Init(opts ...Option) (*sdktrace.TracerProvider, error) {
	config := DefaultConfig()
	for _, opt := range opts {
		opt(config)
	}

	var exporter *jaeger.Exporter
	var err error

	if config.CollectorEndpoint != "" {
		exporter, err = jaeger.New(
			jaeger.WithCollectorEndpoint(
				jaeger.WithEndpoint(config.CollectorEndpoint),
			),
		)
	} else {
		exporter, err = jaeger.New(
			jaeger.WithAgentEndpoint(
				jaeger.WithAgentHost(config.AgentEndpoint),
			),
		)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create Jaeger exporter: %w", err)
	}

	attrs := []attribute.KeyValue{
		semconv.ServiceName(config.ServiceName),
		semconv.ServiceVersion(config.ServiceVersion),
		semconv.DeploymentEnvironment(config.Environment),
	}
	for key, value := range config.ExtraAttributes {
		attrs = append(attrs, attribute.String(key, value))
	}

	res, err := resource.New(
		context.Background(),
		resource.WithAttributes(attrs...),
		resource.WithHost(),
		resource.WithProcess(),
		resource.WithOS(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	var sampler sdktrace.Sampler
	switch {
	case config.SamplingRate >= 1.0:
		sampler = sdktrace.AlwaysSample()
	case config.SamplingRate <= 0.0:
		sampler = sdktrace.NeverSample()
	default:
		sampler = sdktrace.TraceIDRatioBased(config.SamplingRate)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sampler),
	)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(
		propagation.NewCompositeTextMapPropagator(
			propagation.TraceContext{},
			propagation.Baggage{},
		),
	)

	return tp, nil
}

// Enabled reports whether tracing is switched on via environment.
func Enabled() bool {
	return getEnvOrDefault("TRACING_ENABLED", "true") == "true"
}

// Shutdown gracefully shuts down the tracer provider.
func Shutdown(ctx context.Context, tp *sdktrace.TracerProvider) error {
	if tp == nil {
		return nil
	}
	return tp.Shutdown(ctx)
}

// ForceFlush flushes all pending spans.
func ForceFlush(ctx context.Context, tp *sdktrace.TracerProvider) error {
	if tp == nil {
		return nil
	}
	return tp.ForceFlush(ctx)
}

// getEnvOrDefault returns the value of an environment variable or a
// default value.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
