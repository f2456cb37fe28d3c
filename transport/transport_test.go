package transport

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newResponse builds a canned response for stub transports.
func newResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode:    status,
		Status:        fmt.Sprintf("%d %s", status, http.StatusText(status)),
		Body:          io.NopCloser(strings.NewReader(body)),
		Header:        make(http.Header),
		ContentLength: int64(len(body)),
	}
}

// stubOK is a transport that always succeeds.
func stubOK(body string) http.RoundTripper {
	return RoundTripperFunc(func(req *http.Request) (*http.Response, error) {
		return newResponse(http.StatusOK, body), nil
	})
}

func newRequest(t *testing.T, rawURL string) *http.Request {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, rawURL, nil)
	require.NoError(t, err)
	return req
}

func TestChain_ExecutionOrder(t *testing.T) {
	var order []string

	tag := func(name string) Middleware {
		return func(next http.RoundTripper) http.RoundTripper {
			return RoundTripperFunc(func(req *http.Request) (*http.Response, error) {
				order = append(order, name+":before")
				resp, err := next.RoundTrip(req)
				order = append(order, name+":after")
				return resp, err
			})
		}
	}

	chain := NewChain(tag("outer")).Append(tag("inner"))
	rt := chain.Then(stubOK("{}"))

	resp, err := rt.RoundTrip(newRequest(t, "https://api.example.org/3/movie/550"))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, []string{
		"outer:before",
		"inner:before",
		"inner:after",
		"outer:after",
	}, order)
}

func TestChain_PrependRunsFirst(t *testing.T) {
	var order []string

	tag := func(name string) Middleware {
		return func(next http.RoundTripper) http.RoundTripper {
			return RoundTripperFunc(func(req *http.Request) (*http.Response, error) {
				order = append(order, name)
				return next.RoundTrip(req)
			})
		}
	}

	chain := NewChain(tag("second")).Prepend(tag("first"))
	rt := chain.Then(stubOK("{}"))

	resp, err := rt.RoundTrip(newRequest(t, "https://api.example.org/3/trending/all/day"))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, []string{"first", "second"}, order)
}

func TestEndpoint_CollapsesIDs(t *testing.T) {
	cases := map[string]string{
		"https://api.example.org/3/movie/550":           "/movie/:id",
		"https://api.example.org/3/movie/550/credits":   "/movie/:id/credits",
		"https://api.example.org/3/tv/1399/similar":     "/tv/:id/similar",
		"https://api.example.org/3/trending/all/day":    "/trending/all/day",
		"https://api.example.org/3/search/movie?q=heat": "/search/movie",
		"https://api.example.org/3":                     "/",
		// Stub servers mount the API at the root, without the version.
		"https://api.example.org/movie/550":    "/movie/:id",
		"https://api.example.org/genre/3/list": "/genre/:id/list",
	}

	for rawURL, want := range cases {
		req := newRequest(t, rawURL)
		assert.Equal(t, want, Endpoint(req), "url %s", rawURL)
	}
}

func TestRedactURL(t *testing.T) {
	u, err := url.Parse("https://api.example.org/3/movie/550?api_key=secret123&language=en-US")
	require.NoError(t, err)

	redacted := RedactURL(u)
	assert.NotContains(t, redacted, "secret123")
	assert.Contains(t, redacted, "api_key=REDACTED")
	assert.Contains(t, redacted, "language=en-US")

	// Untouched when there is no key parameter.
	plain, err := url.Parse("https://api.example.org/3/movie/550?language=en-US")
	require.NoError(t, err)
	assert.Equal(t, plain.String(), RedactURL(plain))
}
