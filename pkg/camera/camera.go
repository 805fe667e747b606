// Package camera grabs single frames from network camera streams.
//
// A Source opens a Stream for a URI. A Stream is a lazy sequence of JPEG
// frames that stays connected until Close. Capture opens a stream, keeps the
// first frame and releases the connection on every path.
package camera

import (
	"context"
	"iter"
	"time"

	"github.com/teslashibe/go-sampler/internal/log"
)

// Frame is one encoded image and the moment it was read.
type Frame struct {
	Data      []byte    // JPEG bytes
	Timestamp time.Time // nanosecond precision
}

// Stream is an open connection producing frames.
type Stream interface {
	// Frames yields frames until the stream ends or the consumer stops.
	// A non-nil error ends the sequence.
	Frames() iter.Seq2[Frame, error]

	// Close releases the connection. It is safe to call more than once.
	Close() error
}

// Source opens streams.
type Source interface {
	Open(ctx context.Context, uri string) (Stream, error)
}

// Capture reads exactly one frame from uri.
// The stream is closed before Capture returns, whatever the outcome.
func Capture(ctx context.Context, src Source, uri string) (Frame, error) {
	if err := ctx.Err(); err != nil {
		return Frame{}, err
	}

	stream, err := src.Open(ctx, uri)
	if err != nil {
		return Frame{}, &CaptureError{URI: uri, Kind: ErrStreamUnavailable, Err: err}
	}
	defer func() {
		if cerr := stream.Close(); cerr != nil {
			log.Warn("closing stream", "stream", uri, "error", cerr)
		}
	}()

	// Only the first frame is kept; the rest of the stream is dropped with the connection.
	for frame, err := range stream.Frames() {
		if err != nil {
			return Frame{}, &CaptureError{URI: uri, Kind: ErrNoFrame, Err: err}
		}
		return frame, nil
	}
	return Frame{}, &CaptureError{URI: uri, Kind: ErrNoFrame}
}
