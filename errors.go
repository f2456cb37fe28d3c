package filmzimmer

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

var (
	// ErrMissingAPIKey is returned when a client is constructed without
	// an API key or access token.
	ErrMissingAPIKey = errors.New("filmzimmer: missing API key")

	// ErrEmptyQuery is returned by search operations before any cache
	// or network touch when the query is blank.
	ErrEmptyQuery = errors.New("filmzimmer: search query is empty")
)

// APIError is a non-2xx response from the catalog API. Message carries
// the server-provided status_message when the error body parses;
// otherwise Error falls back to the numeric status.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("api: %s (status %d)", e.Message, e.StatusCode)
	}
	return fmt.Sprintf("api: status %d", e.StatusCode)
}

// IsNotFound reports whether err is an APIError for a missing resource.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// apiErrorBody is the error envelope the API sends alongside non-2xx
// statuses.
type apiErrorBody struct {
	StatusMessage string `json:"status_message"`
}

// newAPIError builds an APIError from a non-2xx response, extracting
// the server message when the body is the usual JSON envelope. The
// body is consumed but not closed.
func newAPIError(resp *http.Response) *APIError {
	apiErr := &APIError{StatusCode: resp.StatusCode}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err != nil {
		return apiErr
	}

	var body apiErrorBody
	if err := json.Unmarshal(raw, &body); err == nil {
		apiErr.Message = body.StatusMessage
	}

	return apiErr
}
