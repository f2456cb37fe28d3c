package transport

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastRetry(opts ...RetryOption) *Retry {
	base := []RetryOption{
		WithInitialBackoff(time.Millisecond),
		WithMaxBackoff(5 * time.Millisecond),
		WithJitter(false),
	}
	return NewRetry(append(base, opts...)...)
}

func TestRetry_EventualSuccess(t *testing.T) {
	attempts := 0
	flaky := RoundTripperFunc(func(req *http.Request) (*http.Response, error) {
		attempts++
		if attempts < 3 {
			return newResponse(http.StatusServiceUnavailable, "upstream down"), nil
		}
		return newResponse(http.StatusOK, `{"ok":true}`), nil
	})

	rt := fastRetry().Middleware()(flaky)

	resp, err := rt.RoundTrip(newRequest(t, "https://api.example.org/3/movie/550"))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 3, attempts)
}

func TestRetry_NonRetryableStatusReturnsImmediately(t *testing.T) {
	attempts := 0
	notFound := RoundTripperFunc(func(req *http.Request) (*http.Response, error) {
		attempts++
		return newResponse(http.StatusNotFound, `{"status_message":"not found"}`), nil
	})

	rt := fastRetry().Middleware()(notFound)

	resp, err := rt.RoundTrip(newRequest(t, "https://api.example.org/3/movie/99999999"))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, 1, attempts)
}

func TestRetry_ExhaustedReturnsLastResponse(t *testing.T) {
	attempts := 0
	down := RoundTripperFunc(func(req *http.Request) (*http.Response, error) {
		attempts++
		return newResponse(http.StatusBadGateway, "bad gateway"), nil
	})

	rt := fastRetry(WithMaxAttempts(2)).Middleware()(down)

	resp, err := rt.RoundTrip(newRequest(t, "https://api.example.org/3/trending/all/day"))
	require.NoError(t, err)
	defer resp.Body.Close()

	// The caller still gets the final response to turn into an API
	// error with the server's message.
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	assert.Equal(t, 2, attempts)
}

func TestRetry_TransportErrorRetried(t *testing.T) {
	attempts := 0
	connErr := errors.New("connection reset")
	flaky := RoundTripperFunc(func(req *http.Request) (*http.Response, error) {
		attempts++
		if attempts == 1 {
			return nil, connErr
		}
		return newResponse(http.StatusOK, "{}"), nil
	})

	rt := fastRetry().Middleware()(flaky)

	resp, err := rt.RoundTrip(newRequest(t, "https://api.example.org/3/genre/movie/list"))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, 2, attempts)
}

func TestRetry_TransportErrorsDisabled(t *testing.T) {
	attempts := 0
	connErr := errors.New("connection refused")
	down := RoundTripperFunc(func(req *http.Request) (*http.Response, error) {
		attempts++
		return nil, connErr
	})

	rt := fastRetry(WithRetryTransportErrors(false)).Middleware()(down)

	_, err := rt.RoundTrip(newRequest(t, "https://api.example.org/3/movie/550"))
	assert.ErrorIs(t, err, connErr)
	assert.Equal(t, 1, attempts)
}

func TestRetry_ContextCancellationStops(t *testing.T) {
	attempts := 0
	down := RoundTripperFunc(func(req *http.Request) (*http.Response, error) {
		attempts++
		return newResponse(http.StatusServiceUnavailable, ""), nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	req := newRequest(t, "https://api.example.org/3/movie/550").WithContext(ctx)

	rt := NewRetry(
		WithInitialBackoff(time.Hour),
		WithJitter(false),
	).Middleware()(down)

	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err := rt.RoundTrip(req)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, attempts)
}

func TestRetry_OnRetryCallback(t *testing.T) {
	var reasons []string
	down := RoundTripperFunc(func(req *http.Request) (*http.Response, error) {
		return newResponse(http.StatusTooManyRequests, ""), nil
	})

	rt := fastRetry(
		WithMaxAttempts(3),
		WithOnRetry(func(attempt int, reason string, next time.Duration) {
			reasons = append(reasons, reason)
		}),
	).Middleware()(down)

	resp, err := rt.RoundTrip(newRequest(t, "https://api.example.org/3/search/movie"))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, []string{"status 429", "status 429"}, reasons)
}

func TestRetry_RetryAfterOverridesBackoff(t *testing.T) {
	r := fastRetry(WithMaxBackoff(10 * time.Second))

	resp := newResponse(http.StatusTooManyRequests, "")
	resp.Header.Set("Retry-After", "3")

	assert.Equal(t, 3*time.Second, r.backoffFor(1, resp))

	// Server value is capped at the configured maximum.
	resp.Header.Set("Retry-After", "3600")
	assert.Equal(t, 10*time.Second, r.backoffFor(1, resp))

	// Without the header the exponential schedule applies.
	assert.Equal(t, time.Millisecond, r.backoffFor(1, newResponse(http.StatusServiceUnavailable, "")))
	assert.Equal(t, 2*time.Millisecond, r.backoffFor(2, newResponse(http.StatusServiceUnavailable, "")))
}
