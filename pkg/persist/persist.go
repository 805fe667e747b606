// Package persist stores captured frames, either through an upload sink
// or below a local directory laid out by capture hour.
package persist

import (
	"context"
	"errors"
	"fmt"

	"github.com/teslashibe/go-sampler/pkg/camera"
)

// Sentinel errors.
var (
	// ErrUpload is returned when the upload sink fails or rejects a frame.
	ErrUpload = errors.New("persist: upload failed")

	// ErrFilesystem is returned when a local write or mkdir fails.
	ErrFilesystem = errors.New("persist: filesystem error")
)

// Persister stores one frame.
type Persister interface {
	Persist(ctx context.Context, frame camera.Frame) error
}

// UploadError wraps a sink failure.
type UploadError struct {
	Path string
	Err  error
}

// Error implements the error interface.
func (e *UploadError) Error() string {
	return fmt.Sprintf("persist: upload %s: %v", e.Path, e.Err)
}

// Unwrap matches ErrUpload and the sink's error.
func (e *UploadError) Unwrap() []error {
	return []error{ErrUpload, e.Err}
}

// FilesystemError wraps a local I/O failure.
type FilesystemError struct {
	Op   string
	Path string
	Err  error
}

// Error implements the error interface.
func (e *FilesystemError) Error() string {
	return fmt.Sprintf("persist: %s %s: %v", e.Op, e.Path, e.Err)
}

// Unwrap matches ErrFilesystem and the underlying error.
func (e *FilesystemError) Unwrap() []error {
	return []error{ErrFilesystem, e.Err}
}
