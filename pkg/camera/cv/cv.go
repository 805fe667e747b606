// Package cv captures frames with OpenCV through gocv.
// It requires cgo and an OpenCV installation.
package cv

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"iter"
	"time"

	"gocv.io/x/gocv"

	"github.com/teslashibe/go-sampler/internal/log"
	"github.com/teslashibe/go-sampler/pkg/camera"
)

// maxEmptyReads bounds how many empty images are skipped while a stream warms up.
const maxEmptyReads = 50

// ErrRead is returned when the capture device stops delivering images.
var ErrRead = errors.New("cv: read failed")

// Source opens streams with gocv.VideoCapture.
// A numeric URI selects a local device index; anything else is passed to
// OpenCV as a file name, URL or GStreamer pipeline.
type Source struct {
	cfg camera.Config
}

// NewSource creates a gocv-backed source.
func NewSource(cfg camera.Config) *Source {
	return &Source{cfg: cfg}
}

// Open implements camera.Source.
func (s *Source) Open(ctx context.Context, uri string) (camera.Stream, error) {
	vc, err := gocv.OpenVideoCapture(uri)
	if err != nil {
		return nil, fmt.Errorf("cv: open %s: %w", uri, err)
	}
	if !vc.IsOpened() {
		vc.Close()
		return nil, fmt.Errorf("cv: %s did not open", uri)
	}
	log.Debug("video capture opened", "stream", uri, "backend", vc.CodecString())
	return &stream{vc: vc, quality: s.cfg.Quality}, nil
}

type stream struct {
	vc      *gocv.VideoCapture
	quality int
	closed  bool
}

// Frames implements camera.Stream.
func (s *stream) Frames() iter.Seq2[camera.Frame, error] {
	return func(yield func(camera.Frame, error) bool) {
		img := gocv.NewMat()
		defer img.Close()

		empty := 0
		for {
			if ok := s.vc.Read(&img); !ok {
				yield(camera.Frame{}, ErrRead)
				return
			}
			ts := time.Now()
			if img.Empty() {
				empty++
				if empty >= maxEmptyReads {
					yield(camera.Frame{}, fmt.Errorf("%w: %d empty images", ErrRead, empty))
					return
				}
				continue
			}
			empty = 0

			data, err := encodeJPEG(img, s.quality)
			if err != nil {
				yield(camera.Frame{}, err)
				return
			}
			if !yield(camera.Frame{Data: data, Timestamp: ts}, nil) {
				return
			}
		}
	}
}

func encodeJPEG(img gocv.Mat, quality int) ([]byte, error) {
	buf, err := gocv.IMEncodeWithParams(gocv.JPEGFileExt, img, []int{gocv.IMWriteJpegQuality, quality})
	if err != nil {
		return nil, fmt.Errorf("cv: encode jpeg: %w", err)
	}
	defer buf.Close()
	return bytes.Clone(buf.GetBytes()), nil
}

// Close implements camera.Stream.
func (s *stream) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	return s.vc.Close()
}
