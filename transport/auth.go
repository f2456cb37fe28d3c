package transport

import (
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// APIKeyAuth creates a middleware that appends the api_key query
// parameter to every outbound request, the v3 authentication scheme.
// The request is cloned before mutation, as RoundTrippers must not
// modify the caller's request.
func APIKeyAuth(apiKey string) Middleware {
	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripperFunc(func(req *http.Request) (*http.Response, error) {
			clone := req.Clone(req.Context())
			query := clone.URL.Query()
			query.Set("api_key", apiKey)
			clone.URL.RawQuery = query.Encode()
			return next.RoundTrip(clone)
		})
	}
}

// BearerAuth creates a middleware that sends the v4 read access token
// in the Authorization header of every outbound request.
func BearerAuth(token string) Middleware {
	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripperFunc(func(req *http.Request) (*http.Response, error) {
			clone := req.Clone(req.Context())
			clone.Header.Set("Authorization", "Bearer "+token)
			return next.RoundTrip(clone)
		})
	}
}

// ValidateAccessToken checks a v4 read access token before the first
// call. The token is a JWT issued by the API; its signature cannot be
// verified locally, so the claims are parsed unverified and only the
// expiry is checked. An expired token fails fast here instead of
// producing a 401 per request.
func ValidateAccessToken(token string) error {
	claims := jwt.MapClaims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		return fmt.Errorf("transport: parse access token: %w", err)
	}

	expiry, err := claims.GetExpirationTime()
	if err != nil {
		return fmt.Errorf("transport: read access token expiry: %w", err)
	}
	if expiry != nil && expiry.Before(time.Now()) {
		return fmt.Errorf("transport: access token expired at %s", expiry.Format(time.RFC3339))
	}
	return nil
}
