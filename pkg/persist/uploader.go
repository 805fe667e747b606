package persist

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/teslashibe/go-sampler/internal/log"
	"github.com/teslashibe/go-sampler/pkg/camera"
	"github.com/teslashibe/go-sampler/pkg/upload"
)

// SampleFileName is the fixed name of the file handed to the sink.
// It is overwritten by every capture.
const SampleFileName = "sample.jpg"

// Uploader writes each frame to a temporary file and hands it to a sink.
type Uploader struct {
	Sink   upload.Sink
	Stream string // recorded as the "camera" metadata value
	Dir    string // directory for SampleFileName; empty means the working directory
}

// NewUploader creates an uploader for frames of stream.
func NewUploader(sink upload.Sink, stream, dir string) *Uploader {
	return &Uploader{Sink: sink, Stream: stream, Dir: dir}
}

// Path returns the temporary file path.
func (u *Uploader) Path() string {
	return filepath.Join(u.Dir, SampleFileName)
}

// Persist implements Persister.
func (u *Uploader) Persist(ctx context.Context, frame camera.Frame) error {
	path := u.Path()
	if err := os.WriteFile(path, frame.Data, 0o644); err != nil {
		return &FilesystemError{Op: "write", Path: path, Err: err}
	}

	meta := map[string]string{
		upload.MetaCamera:    u.Stream,
		upload.MetaTimestamp: frame.Timestamp.UTC().Format(time.RFC3339Nano),
		upload.MetaSampleID:  uuid.NewString(),
	}
	if err := u.Sink.Upload(ctx, path, meta); err != nil {
		return &UploadError{Path: path, Err: err}
	}
	log.Info("frame uploaded", "camera", u.Stream, "sample_id", meta[upload.MetaSampleID], "bytes", len(frame.Data))
	return nil
}
