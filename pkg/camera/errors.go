package camera

import (
	"errors"
	"fmt"
)

// Sentinel errors for capture failures.
var (
	// ErrStreamUnavailable is returned when the stream cannot be opened.
	ErrStreamUnavailable = errors.New("camera: stream unavailable")

	// ErrNoFrame is returned when a stream ends before producing a frame.
	ErrNoFrame = errors.New("camera: no frame produced")
)

// CaptureError wraps a capture failure with the stream it came from.
// It matches its Kind (one of the sentinels above) and the underlying cause.
type CaptureError struct {
	URI  string
	Kind error
	Err  error
}

// Error implements the error interface.
func (e *CaptureError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%v: %s", e.Kind, e.URI)
	}
	return fmt.Sprintf("%v: %s: %v", e.Kind, e.URI, e.Err)
}

// Unwrap returns the kind and the cause.
func (e *CaptureError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}
