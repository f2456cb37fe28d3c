// Package chaos provides chaos engineering capabilities for the
// outbound API transport. Its middlewares inject latency, fabricated
// error responses, transport failures, and tight deadlines, so the
// resilience stack (retry, circuit breaker, cache fallback) can be
// exercised without an unreliable upstream.
package chaos

import (
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"strings"
	"time"

	"github.com/Fawzi-AI/filmzimmer/transport"
)

// ErrInjected is the base error for injected transport failures.
var ErrInjected = fmt.Errorf("chaos: injected transport failure")

// ChaosConfig holds configuration for chaos engineering.
type ChaosConfig struct {
	// Latency injection
	LatencyEnabled     bool
	LatencyMin         time.Duration
	LatencyMax         time.Duration
	LatencyProbability float64

	// Error response injection
	ErrorEnabled     bool
	ErrorStatuses    []int
	ErrorProbability float64

	// Transport failure injection
	FailureEnabled     bool
	FailureProbability float64

	// Timeout simulation
	TimeoutEnabled     bool
	TimeoutDuration    time.Duration
	TimeoutProbability float64

	// Conditional enabling
	EnableCondition func() bool
}

// ChaosOption is a functional option for chaos configuration.
type ChaosOption func(*ChaosConfig)

// WithLatency enables latency injection.
func WithLatency(min, max time.Duration, probability float64) ChaosOption {
	return func(c *ChaosConfig) {
		c.LatencyEnabled = true
		c.LatencyMin = min
		c.LatencyMax = max
		c.LatencyProbability = probability
	}
}

// WithErrors enables fabricated error responses with the given HTTP
// statuses.
func WithErrors(statuses []int, probability float64) ChaosOption {
	return func(c *ChaosConfig) {
		c.ErrorEnabled = true
		c.ErrorStatuses = statuses
		c.ErrorProbability = probability
	}
}

// WithTransportFailures enables injected transport-level failures, as
// if the connection had been refused or reset.
func WithTransportFailures(probability float64) ChaosOption {
	return func(c *ChaosConfig) {
		c.FailureEnabled = true
		c.FailureProbability = probability
	}
}

// WithTimeout enables timeout simulation by capping the request
// deadline.
func WithTimeout(duration time.Duration, probability float64) ChaosOption {
	return func(c *ChaosConfig) {
		c.TimeoutEnabled = true
		c.TimeoutDuration = duration
		c.TimeoutProbability = probability
	}
}

// WithCondition sets a condition for enabling chaos, e.g. an
// environment flag checked at request time.
func WithCondition(condition func() bool) ChaosOption {
	return func(c *ChaosConfig) {
		c.EnableCondition = condition
	}
}

// New creates a new chaos engineering middleware.
func New(opts ...ChaosOption) transport.Middleware {
	config := &ChaosConfig{
		EnableCondition: func() bool { return true },
	}

	for _, opt := range opts {
		opt(config)
	}

	return func(next http.RoundTripper) http.RoundTripper {
		return transport.RoundTripperFunc(func(req *http.Request) (*http.Response, error) {
			if !config.EnableCondition() {
				return next.RoundTrip(req)
			}

			// Latency injection
			if config.LatencyEnabled && shouldInject(config.LatencyProbability) {
				delay := randomDuration(config.LatencyMin, config.LatencyMax)

				select {
				case <-time.After(delay):
					// Continue after delay
				case <-req.Context().Done():
					return nil, fmt.Errorf("chaos: canceled during latency injection: %w", req.Context().Err())
				}
			}

			// Transport failure injection
			if config.FailureEnabled && shouldInject(config.FailureProbability) {
				return nil, ErrInjected
			}

			// Error response injection
			if config.ErrorEnabled && shouldInject(config.ErrorProbability) {
				status := config.ErrorStatuses[rand.Intn(len(config.ErrorStatuses))]
				return injectedResponse(req, status), nil
			}

			// Timeout simulation
			if config.TimeoutEnabled && shouldInject(config.TimeoutProbability) {
				return transport.Timeout(config.TimeoutDuration)(next).RoundTrip(req)
			}

			return next.RoundTrip(req)
		})
	}
}

// LatencyInjector creates latency injection middleware.
func LatencyInjector(min, max time.Duration, probability float64) transport.Middleware {
	return New(WithLatency(min, max, probability))
}

// ErrorInjector creates error response injection middleware.
func ErrorInjector(statuses []int, probability float64) transport.Middleware {
	return New(WithErrors(statuses, probability))
}

// RandomErrorInjector injects random errors from the statuses the
// upstream API actually produces.
func RandomErrorInjector(probability float64) transport.Middleware {
	statuses := []int{
		http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout,
	}

	return ErrorInjector(statuses, probability)
}

// TimeoutInjector creates timeout injection middleware.
func TimeoutInjector(timeout time.Duration, probability float64) transport.Middleware {
	return New(WithTimeout(timeout, probability))
}

// EndpointTargetedChaos applies chaos only to specific endpoint labels,
// as produced by transport.Endpoint.
func EndpointTargetedChaos(endpoints []string, chaosMW transport.Middleware) transport.Middleware {
	targets := make(map[string]bool)
	for _, endpoint := range endpoints {
		targets[endpoint] = true
	}

	return func(next http.RoundTripper) http.RoundTripper {
		chaotic := chaosMW(next)
		return transport.RoundTripperFunc(func(req *http.Request) (*http.Response, error) {
			if targets[transport.Endpoint(req)] {
				return chaotic.RoundTrip(req)
			}
			return next.RoundTrip(req)
		})
	}
}

// PercentageBasedChaos applies chaos to a percentage of requests.
func PercentageBasedChaos(percentage float64, chaosMW transport.Middleware) transport.Middleware {
	return func(next http.RoundTripper) http.RoundTripper {
		chaotic := chaosMW(next)
		return transport.RoundTripperFunc(func(req *http.Request) (*http.Response, error) {
			if rand.Float64() < percentage {
				return chaotic.RoundTrip(req)
			}
			return next.RoundTrip(req)
		})
	}
}

// injectedResponse fabricates an upstream error response in the shape
// the API client expects.
func injectedResponse(req *http.Request, status int) *http.Response {
	body := fmt.Sprintf(`{"status_code":%d,"status_message":"chaos: injected error"}`, status)

	resp := &http.Response{
		Status:        fmt.Sprintf("%d %s", status, http.StatusText(status)),
		StatusCode:    status,
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        make(http.Header),
		Body:          io.NopCloser(strings.NewReader(body)),
		ContentLength: int64(len(body)),
		Request:       req,
	}
	resp.Header.Set("Content-Type", "application/json;charset=utf-8")

	if status == http.StatusTooManyRequests {
		resp.Header.Set("Retry-After", "1")
	}

	return resp
}

// shouldInject determines if chaos should be injected based on probability.
func shouldInject(probability float64) bool {
	return rand.Float64() < probability
}

// randomDuration returns a random duration between min and max.
func randomDuration(min, max time.Duration) time.Duration {
	if min >= max {
		return min
	}
	return min + time.Duration(rand.Int63n(int64(max-min)))
}

// Presets for common chaos scenarios

// HighLatencyChaos simulates a high latency network.
func HighLatencyChaos(probability float64) transport.Middleware {
	return LatencyInjector(500*time.Millisecond, 2*time.Second, probability)
}

// FlakyChaos simulates a flaky network with random errors.
func FlakyChaos(probability float64) transport.Middleware {
	return New(
		WithLatency(50*time.Millisecond, 500*time.Millisecond, probability),
		WithErrors([]int{http.StatusServiceUnavailable, http.StatusGatewayTimeout}, probability/2),
	)
}

// PartitionChaos simulates a network partition.
func PartitionChaos(probability float64) transport.Middleware {
	return New(WithTransportFailures(probability))
}

// OverloadedChaos simulates an overloaded upstream.
func OverloadedChaos(probability float64) transport.Middleware {
	return New(
		WithLatency(1*time.Second, 5*time.Second, probability),
		WithErrors([]int{http.StatusTooManyRequests, http.StatusServiceUnavailable}, probability/2),
	)
}
