package transport

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/Fawzi-AI/filmzimmer/pkg/metrics"
)

// Error classes reported to the metrics collector.
const (
	errorTypeTimeout     = "timeout"
	errorTypeCanceled    = "canceled"
	errorTypeRateLimited = "rate_limited"
	errorTypeCircuitOpen = "circuit_open"
	errorTypeTransport   = "transport"
)

// MetricsMiddleware creates a middleware that records request counts,
// latency, in-flight requests and response sizes on the given
// collector.
func MetricsMiddleware(collector metrics.Collector) Middleware {
	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripperFunc(func(req *http.Request) (*http.Response, error) {
			endpoint := Endpoint(req)
			start := time.Now()

			collector.RecordActiveRequests(endpoint, 1)
			defer collector.RecordActiveRequests(endpoint, -1)

			resp, err := next.RoundTrip(req)
			duration := time.Since(start)

			if err != nil {
				collector.RecordError(endpoint, classifyError(err))
				collector.RecordRequest(endpoint, "error", duration)
				return nil, err
			}

			collector.RecordRequest(endpoint, strconv.Itoa(resp.StatusCode), duration)
			if resp.ContentLength >= 0 {
				collector.RecordResponseSize(endpoint, int(resp.ContentLength))
			}

			return resp, nil
		})
	}
}

// Metrics creates a metrics middleware with a new Prometheus collector.
func Metrics(opts ...metrics.ConfigOption) Middleware {
	collector, err := metrics.NewPrometheusCollector(opts...)
	if err != nil {
		panic(err) // Should not happen with valid options
	}

	return MetricsMiddleware(collector)
}

// classifyError maps a transport-level failure to an error class
// label.
func classifyError(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return errorTypeTimeout
	case errors.Is(err, context.Canceled):
		return errorTypeCanceled
	case errors.Is(err, ErrRateLimited):
		return errorTypeRateLimited
	case errors.Is(err, ErrCircuitOpen), errors.Is(err, ErrTooManyRequests):
		return errorTypeCircuitOpen
	default:
		return errorTypeTransport
	}
}
