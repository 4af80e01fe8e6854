package llm

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingAPIKey is returned before any request is made when no key is configured.
	ErrMissingAPIKey = errors.New("API key is missing")
	// ErrMissingBaseURL is returned before any request is made when no base URL is configured.
	ErrMissingBaseURL = errors.New("base URL is missing")
	// ErrEmptyResponse is returned when a completion carries no choices.
	ErrEmptyResponse = errors.New("empty response from model")
)

// APIError is a non-2xx answer from the model endpoint.
type APIError struct {
	Op         string // "connection failed" or "request failed"
	StatusCode int
	Status     string // status text, e.g. "Unauthorized"
	Body       string // compact JSON, "{}" when the body was not JSON
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %d %s - %s", e.Op, e.StatusCode, e.Status, e.Body)
}

// IsAuthError reports whether err is an APIError for a rejected credential.
func IsAuthError(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == 401 || apiErr.StatusCode == 403
	}
	return false
}
