// Package remote holds the error types shared by the Sentry and GitLab clients.
package remote

import (
	"errors"
	"fmt"
)

// APIError is returned when a remote API answers with a non-2xx status.
type APIError struct {
	Service string // "sentry" or "gitlab"
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s API error: %s (status %d)", e.Service, e.Message, e.Status)
}

// TransportError wraps a failure to reach a remote API at all
// (DNS, TLS, connection reset, context cancellation).
type TransportError struct {
	Service string
	Op      string
	Err     error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Service, e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// StatusOf returns the HTTP status carried by err, or 0 if err is not an APIError.
func StatusOf(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}

// MessageOf returns the API message carried by err, falling back to err.Error().
func MessageOf(err error) string {
	if err == nil {
		return ""
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	return err.Error()
}
