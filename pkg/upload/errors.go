package upload

import (
	"errors"
	"fmt"
)

// Sentinel errors for common error conditions.
var (
	// ErrRejected is returned when the remote side refuses the file.
	ErrRejected = errors.New("upload: rejected")

	// ErrNoURL is returned when a sink that needs an endpoint has none.
	ErrNoURL = errors.New("upload: endpoint URL required")
)

// APIError represents an error response from an upload endpoint.
type APIError struct {
	// Sink identifies which sink returned the error.
	Sink string

	// StatusCode is the HTTP status code (or a sink-specific code).
	StatusCode int

	// Message is the error message from the remote side.
	Message string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return fmt.Sprintf("upload [%s]: status %d: %s", e.Sink, e.StatusCode, e.Message)
}

// Unwrap lets errors.Is(err, ErrRejected) hold for every API error.
func (e *APIError) Unwrap() error {
	return ErrRejected
}

// IsUnauthorized returns true if this is an authentication error (HTTP 401).
func (e *APIError) IsUnauthorized() bool {
	return e.StatusCode == 401
}

// IsForbidden returns true if this is a permission error (HTTP 403).
func (e *APIError) IsForbidden() bool {
	return e.StatusCode == 403
}

// IsServerError returns true if this is a server-side error (HTTP 5xx).
func (e *APIError) IsServerError() bool {
	return e.StatusCode >= 500 && e.StatusCode < 600
}
