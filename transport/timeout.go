package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Timeout creates a middleware that enforces a per-attempt deadline.
// Placed inside the retry middleware it bounds each attempt; outside,
// the whole call. The deadline stays armed while the caller reads the
// response body and is released when the body is closed.
func Timeout(timeout time.Duration) Middleware {
	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripperFunc(func(req *http.Request) (*http.Response, error) {
			ctx, cancel := context.WithTimeout(req.Context(), timeout)

			resp, err := next.RoundTrip(req.WithContext(ctx))
			if err != nil {
				cancel()
				if errors.Is(err, context.DeadlineExceeded) {
					return nil, fmt.Errorf("transport: request timeout after %v: %w", timeout, err)
				}
				return nil, err
			}

			resp.Body = &cancelBody{ReadCloser: resp.Body, cancel: cancel}
			return resp, nil
		})
	}
}

// TimeoutPerEndpoint creates a timeout middleware with
// endpoint-specific deadlines, keyed by the Endpoint label.
func TimeoutPerEndpoint(defaultTimeout time.Duration, endpointTimeouts map[string]time.Duration) Middleware {
	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripperFunc(func(req *http.Request) (*http.Response, error) {
			timeout := defaultTimeout
			if endpointTimeout, ok := endpointTimeouts[Endpoint(req)]; ok {
				timeout = endpointTimeout
			}
			return Timeout(timeout)(next).RoundTrip(req)
		})
	}
}

// cancelBody releases the timeout context when the response body is
// closed.
type cancelBody struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (b *cancelBody) Close() error {
	b.cancel()
	return b.ReadCloser.Close()
}
