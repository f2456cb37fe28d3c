package transport

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// TracingConfig holds configuration for the tracing middleware.
type TracingConfig struct {
	Tracer       trace.Tracer
	TracerName   string
	Propagator   propagation.TextMapPropagator
	RecordErrors bool
	ExtraAttrs   []attribute.KeyValue
}

// TracingOption is a functional option for tracing configuration.
type TracingOption func(*TracingConfig)

// WithTracer sets a custom tracer.
func WithTracer(tracer trace.Tracer) TracingOption {
	return func(c *TracingConfig) {
		c.Tracer = tracer
	}
}

// WithTracerName sets the tracer name.
func WithTracerName(name string) TracingOption {
	return func(c *TracingConfig) {
		c.TracerName = name
	}
}

// WithPropagator sets a custom propagator.
func WithPropagator(propagator propagation.TextMapPropagator) TracingOption {
	return func(c *TracingConfig) {
		c.Propagator = propagator
	}
}

// WithRecordErrors enables error recording in spans.
func WithRecordErrors() TracingOption {
	return func(c *TracingConfig) {
		c.RecordErrors = true
	}
}

// WithExtraAttributes adds extra attributes to all spans.
func WithExtraAttributes(attrs ...attribute.KeyValue) TracingOption {
	return func(c *TracingConfig) {
		c.ExtraAttrs = append(c.ExtraAttrs, attrs...)
	}
}

// Tracing creates a middleware that opens a client span around every
// outbound request and injects the trace context into its headers. The
// span name is the request method and endpoint label; the URL
// attribute is recorded with the api_key redacted.
func Tracing(opts ...TracingOption) Middleware {
	config := &TracingConfig{
		TracerName:   "filmzimmer",
		Propagator:   otel.GetTextMapPropagator(),
		RecordErrors: true,
	}
	for _, opt := range opts {
		opt(config)
	}

	if config.Tracer == nil {
		config.Tracer = otel.Tracer(config.TracerName)
	}

	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripperFunc(func(req *http.Request) (*http.Response, error) {
			endpoint := Endpoint(req)

			ctx, span := config.Tracer.Start(req.Context(), req.Method+" "+endpoint,
				trace.WithSpanKind(trace.SpanKindClient),
				trace.WithAttributes(config.ExtraAttrs...),
			)
			defer span.End()

			span.SetAttributes(
				attribute.String("http.method", req.Method),
				attribute.String("http.url", RedactURL(req.URL)),
				attribute.String("http.endpoint", endpoint),
			)

			clone := req.Clone(ctx)
			config.Propagator.Inject(ctx, propagation.HeaderCarrier(clone.Header))

			resp, err := next.RoundTrip(clone)

			if err != nil {
				span.SetStatus(codes.Error, err.Error())
				if config.RecordErrors {
					span.RecordError(err)
				}
				return nil, err
			}

			span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))
			if resp.StatusCode >= http.StatusBadRequest {
				span.SetStatus(codes.Error, "status "+strconv.Itoa(resp.StatusCode))
			} else {
				span.SetStatus(codes.Ok, "")
			}

			return resp, nil
		})
	}
}

// StartSpan is a helper function to manually start a span around a unit
// of work, such as a fan-out of catalog requests.
func StartSpan(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	tracer := otel.Tracer("filmzimmer")
	return tracer.Start(ctx, name, opts...)
}

// SpanFromContext returns the current span from the context.
func SpanFromContext(ctx context.Context) trace.Span {
	return trace.SpanFromContext(ctx)
}

// AddEventToSpan adds an event to the current span.
func AddEventToSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) {
	span := trace.SpanFromContext(ctx)
	span.AddEvent(name, trace.WithAttributes(attrs...))
}

// SetSpanAttribute sets an attribute on the current span.
func SetSpanAttribute(ctx context.Context, key string, value interface{}) {
	span := trace.SpanFromContext(ctx)

	var attr attribute.KeyValue
	switch v := value.(type) {
	case string:
		attr = attribute.String(key, v)
	case int:
		attr = attribute.Int(key, v)
	case int64:
		attr = attribute.Int64(key, v)
	case float64:
		attr = attribute.Float64(key, v)
	case bool:
		attr = attribute.Bool(key, v)
	default:
		attr = attribute.String(key, fmt.Sprintf("%v", v))
	}

	span.SetAttributes(attr)
}

// RecordError records an error in the current span and marks it failed.
func RecordError(ctx context.Context, err error) {
	span := trace.SpanFromContext(ctx)
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
