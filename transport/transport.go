// Package transport provides a composable http.RoundTripper middleware
// chain for the filmzimmer client: authentication, logging, retries,
// rate limiting, timeouts, metrics, circuit breaking and tracing.
package transport

import (
	"net/http"
	"net/url"
	"strings"
)

// RoundTripperFunc adapts a function to http.RoundTripper.
type RoundTripperFunc func(*http.Request) (*http.Response, error)

// RoundTrip implements http.RoundTripper.
func (f RoundTripperFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

var _ http.RoundTripper = RoundTripperFunc(nil)

// Middleware wraps an http.RoundTripper with additional behavior.
type Middleware func(next http.RoundTripper) http.RoundTripper

// Chain represents a chain of middleware.
type Chain struct {
	middlewares []Middleware
}

// NewChain creates a new middleware chain.
func NewChain(middlewares ...Middleware) *Chain {
	return &Chain{
		middlewares: middlewares,
	}
}

// Append adds middleware to the end of the chain.
func (c *Chain) Append(middlewares ...Middleware) *Chain {
	c.middlewares = append(c.middlewares, middlewares...)
	return c
}

// Prepend adds middleware to the beginning of the chain.
func (c *Chain) Prepend(middlewares ...Middleware) *Chain {
	c.middlewares = append(middlewares, c.middlewares...)
	return c
}

// Then wraps base with the chain. The first middleware in the chain is
// the outermost wrapper and sees every request first. A nil base uses
// http.DefaultTransport.
func (c *Chain) Then(base http.RoundTripper) http.RoundTripper {
	if base == nil {
		base = http.DefaultTransport
	}

	rt := base
	// Wrap in reverse order so the chain executes front to back.
	for i := len(c.middlewares) - 1; i >= 0; i-- {
		rt = c.middlewares[i](rt)
	}
	return rt
}

// Endpoint derives a low-cardinality label from a request path for
// logs, metrics and span names: the API version prefix is stripped and
// numeric segments are collapsed, so every movie detail call shares one
// label.
//
//	/3/movie/550/credits -> /movie/:id/credits
func Endpoint(req *http.Request) string {
	// The version prefix must come off before digit segments collapse,
	// otherwise the "3" itself turns into ":id".
	path := req.URL.Path
	if rest, ok := strings.CutPrefix(path, "/3/"); ok {
		path = "/" + rest
	} else if path == "/3" {
		path = "/"
	}

	segments := strings.Split(path, "/")
	for i, segment := range segments {
		if segment != "" && isDigits(segment) {
			segments[i] = ":id"
		}
	}

	path = strings.Join(segments, "/")
	if path == "" {
		path = "/"
	}
	return path
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// RedactURL renders a URL with the api_key query parameter masked, for
// logs and span attributes.
func RedactURL(u *url.URL) string {
	query := u.Query()
	if query.Has("api_key") {
		query.Set("api_key", "REDACTED")
		clone := *u
		clone.RawQuery = query.Encode()
		return clone.String()
	}
	return u.String()
}
