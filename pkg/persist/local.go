package persist

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/teslashibe/go-sampler/internal/log"
	"github.com/teslashibe/go-sampler/pkg/camera"
)

const (
	dirLayout  = "2006/01/02/15"
	fileLayout = "2006-01-02T15:04:05-0700"
)

// LocalPath returns where a frame captured at ts is stored under root:
// root/YYYY/MM/DD/HH/YYYY-MM-DDTHH:MM:SS+0000.jpg, all in UTC.
func LocalPath(root string, ts time.Time) string {
	utc := ts.UTC()
	return filepath.Join(root, filepath.FromSlash(utc.Format(dirLayout)), utc.Format(fileLayout)+".jpg")
}

// LocalWriter writes frames below Root.
type LocalWriter struct {
	Root string
}

// NewLocalWriter creates a writer rooted at root.
func NewLocalWriter(root string) *LocalWriter {
	return &LocalWriter{Root: root}
}

// Persist implements Persister.
func (w *LocalWriter) Persist(ctx context.Context, frame camera.Frame) error {
	path := LocalPath(w.Root, frame.Timestamp)
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return &FilesystemError{Op: "mkdir", Path: dir, Err: err}
	}
	if err := os.WriteFile(path, frame.Data, 0o644); err != nil {
		return &FilesystemError{Op: "write", Path: path, Err: err}
	}
	log.Info("frame saved", "path", path, "bytes", len(frame.Data))
	return nil
}
