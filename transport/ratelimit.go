package transport

import (
	"errors"
	"fmt"
	"net/http"
	"sync"

	"golang.org/x/time/rate"
)

// ErrRateLimited is returned by the rejecting rate limiter when no
// token is available.
var ErrRateLimited = errors.New("transport: rate limit exceeded")

// RateLimit creates a rate limiting middleware using a token bucket.
// Requests beyond the budget fail immediately with ErrRateLimited.
// ratePerSec: tokens per second, burst: maximum burst size.
func RateLimit(ratePerSec float64, burst int) Middleware {
	limiter := rate.NewLimiter(rate.Limit(ratePerSec), burst)

	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripperFunc(func(req *http.Request) (*http.Response, error) {
			if !limiter.Allow() {
				return nil, ErrRateLimited
			}
			return next.RoundTrip(req)
		})
	}
}

// RateLimitWithWait creates a rate limiting middleware that waits for a
// token instead of rejecting, honoring the request context.
func RateLimitWithWait(ratePerSec float64, burst int) Middleware {
	limiter := rate.NewLimiter(rate.Limit(ratePerSec), burst)

	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripperFunc(func(req *http.Request) (*http.Response, error) {
			if err := limiter.Wait(req.Context()); err != nil {
				return nil, fmt.Errorf("transport: rate limit wait: %w", err)
			}
			return next.RoundTrip(req)
		})
	}
}

// PerEndpointRateLimiter manages different limits for different
// endpoints, with a shared default.
type PerEndpointRateLimiter struct {
	limiters map[string]*rate.Limiter
	mu       sync.RWMutex
	defaults *rate.Limiter
}

// NewPerEndpointRateLimiter creates a per-endpoint rate limiter.
func NewPerEndpointRateLimiter(defaultRate float64, defaultBurst int) *PerEndpointRateLimiter {
	return &PerEndpointRateLimiter{
		limiters: make(map[string]*rate.Limiter),
		defaults: rate.NewLimiter(rate.Limit(defaultRate), defaultBurst),
	}
}

// SetEndpointLimit sets a specific rate limit for an endpoint label, as
// produced by Endpoint.
func (p *PerEndpointRateLimiter) SetEndpointLimit(endpoint string, ratePerSec float64, burst int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.limiters[endpoint] = rate.NewLimiter(rate.Limit(ratePerSec), burst)
}

// GetLimiter returns the limiter for an endpoint label.
func (p *PerEndpointRateLimiter) GetLimiter(endpoint string) *rate.Limiter {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if limiter, exists := p.limiters[endpoint]; exists {
		return limiter
	}
	return p.defaults
}

// RateLimitPerEndpoint creates a middleware with endpoint-specific
// limits, e.g. a tighter budget for search than for detail lookups.
func RateLimitPerEndpoint(defaultRate float64, defaultBurst int, endpointLimits map[string]struct{ Rate float64; Burst int }) Middleware {
	perEndpoint := NewPerEndpointRateLimiter(defaultRate, defaultBurst)
	for endpoint, limits := range endpointLimits {
		perEndpoint.SetEndpointLimit(endpoint, limits.Rate, limits.Burst)
	}

	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripperFunc(func(req *http.Request) (*http.Response, error) {
			limiter := perEndpoint.GetLimiter(Endpoint(req))
			if !limiter.Allow() {
				return nil, fmt.Errorf("%w: endpoint %s", ErrRateLimited, Endpoint(req))
			}
			return next.RoundTrip(req)
		})
	}
}
