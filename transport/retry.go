package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"math/rand"
	"net/http"
	"strconv"
	"time"
)

// Retry implements retry logic with exponential backoff for outbound
// requests.
type Retry struct {
	maxAttempts          int
	initialBackoff       time.Duration
	maxBackoff           time.Duration
	backoffMultiplier    float64
	jitter               bool
	retryableStatuses    map[int]bool
	retryTransportErrors bool
	onRetry              func(attempt int, reason string, nextBackoff time.Duration)
}

// RetryOption configures a Retry middleware.
type RetryOption func(*Retry)

// WithMaxAttempts sets the maximum number of attempts.
// Default: 3
func WithMaxAttempts(n int) RetryOption {
	return func(r *Retry) {
		if n > 0 {
			r.maxAttempts = n
		}
	}
}

// WithInitialBackoff sets the initial backoff duration.
// Default: 100ms
func WithInitialBackoff(d time.Duration) RetryOption {
	return func(r *Retry) {
		if d > 0 {
			r.initialBackoff = d
		}
	}
}

// WithMaxBackoff sets the maximum backoff duration.
// Default: 10s
func WithMaxBackoff(d time.Duration) RetryOption {
	return func(r *Retry) {
		if d > 0 {
			r.maxBackoff = d
		}
	}
}

// WithBackoffMultiplier sets the exponential backoff multiplier.
// Default: 2.0 (doubles each retry)
func WithBackoffMultiplier(m float64) RetryOption {
	return func(r *Retry) {
		if m > 1.0 {
			r.backoffMultiplier = m
		}
	}
}

// WithJitter enables jitter to prevent thundering herd.
// Default: true
func WithJitter(enabled bool) RetryOption {
	return func(r *Retry) {
		r.jitter = enabled
	}
}

// WithRetryableStatuses sets which HTTP statuses should trigger a
// retry.
// Default: 429, 500, 502, 503, 504
func WithRetryableStatuses(statuses ...int) RetryOption {
	return func(r *Retry) {
		r.retryableStatuses = make(map[int]bool)
		for _, status := range statuses {
			r.retryableStatuses[status] = true
		}
	}
}

// WithRetryTransportErrors controls whether transport-level failures
// (connection refused, DNS, reset) are retried.
// Default: true
func WithRetryTransportErrors(enabled bool) RetryOption {
	return func(r *Retry) {
		r.retryTransportErrors = enabled
	}
}

// WithOnRetry sets a callback invoked before each retry attempt.
func WithOnRetry(callback func(attempt int, reason string, nextBackoff time.Duration)) RetryOption {
	return func(r *Retry) {
		r.onRetry = callback
	}
}

// NewRetry creates a new Retry middleware with default configuration.
func NewRetry(opts ...RetryOption) *Retry {
	r := &Retry{
		maxAttempts:       3,
		initialBackoff:    100 * time.Millisecond,
		maxBackoff:        10 * time.Second,
		backoffMultiplier: 2.0,
		jitter:            true,
		retryableStatuses: map[int]bool{
			http.StatusTooManyRequests:     true,
			http.StatusInternalServerError: true,
			http.StatusBadGateway:          true,
			http.StatusServiceUnavailable:  true,
			http.StatusGatewayTimeout:      true,
		},
		retryTransportErrors: true,
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Middleware returns the retry middleware. Responses with a retryable
// status are drained and closed before the next attempt so the
// connection can be reused; the final response is returned untouched
// for the caller to consume. A Retry-After header on 429/503 overrides
// the computed backoff, capped at the maximum.
func (r *Retry) Middleware() Middleware {
	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripperFunc(func(req *http.Request) (*http.Response, error) {
			var resp *http.Response
			var err error

			for attempt := 1; attempt <= r.maxAttempts; attempt++ {
				if cerr := req.Context().Err(); cerr != nil {
					return nil, cerr
				}

				// Rewind the body for replayed attempts.
				if attempt > 1 && req.Body != nil {
					if req.GetBody == nil {
						return resp, err
					}
					body, berr := req.GetBody()
					if berr != nil {
						return nil, fmt.Errorf("transport: rewind request body: %w", berr)
					}
					req.Body = body
				}

				resp, err = next.RoundTrip(req)
				if !r.shouldRetry(resp, err) {
					return resp, err
				}
				if attempt >= r.maxAttempts {
					break
				}

				backoff := r.backoffFor(attempt, resp)
				if resp != nil {
					drainAndClose(resp.Body)
				}
				if r.onRetry != nil {
					r.onRetry(attempt, retryReason(resp, err), backoff)
				}

				select {
				case <-time.After(backoff):
				case <-req.Context().Done():
					return nil, req.Context().Err()
				}
			}

			return resp, err
		})
	}
}

// shouldRetry decides whether the attempt outcome warrants a retry.
func (r *Retry) shouldRetry(resp *http.Response, err error) bool {
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return false
		}
		return r.retryTransportErrors
	}
	return r.retryableStatuses[resp.StatusCode]
}

// backoffFor calculates the wait before the next attempt. Exponential
// backoff with optional jitter; a server-provided Retry-After wins.
func (r *Retry) backoffFor(attempt int, resp *http.Response) time.Duration {
	backoff := float64(r.initialBackoff) * math.Pow(r.backoffMultiplier, float64(attempt-1))
	if backoff > float64(r.maxBackoff) {
		backoff = float64(r.maxBackoff)
	}
	if r.jitter {
		backoff = rand.Float64() * backoff
	}

	if wait, ok := retryAfter(resp); ok {
		if wait > r.maxBackoff {
			wait = r.maxBackoff
		}
		return wait
	}

	return time.Duration(backoff)
}

// retryAfter parses the Retry-After header, either delay seconds or an
// HTTP date.
func retryAfter(resp *http.Response) (time.Duration, bool) {
	if resp == nil {
		return 0, false
	}
	header := resp.Header.Get("Retry-After")
	if header == "" {
		return 0, false
	}

	if seconds, err := strconv.Atoi(header); err == nil && seconds >= 0 {
		return time.Duration(seconds) * time.Second, true
	}
	if at, err := http.ParseTime(header); err == nil {
		if wait := time.Until(at); wait > 0 {
			return wait, true
		}
	}
	return 0, false
}

func retryReason(resp *http.Response, err error) string {
	if err != nil {
		return err.Error()
	}
	return "status " + strconv.Itoa(resp.StatusCode)
}

// drainAndClose discards the remaining body so the underlying
// connection can be reused.
func drainAndClose(body io.ReadCloser) {
	if body == nil {
		return
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(body, 4096))
	_ = body.Close()
}
