package persist

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/teslashibe/go-sampler/pkg/camera"
	"github.com/teslashibe/go-sampler/pkg/upload"
)

func TestLocalPath(t *testing.T) {
	tests := []struct {
		name string
		ts   time.Time
		want string
	}{
		{
			"utc",
			time.Date(2024, 3, 5, 14, 22, 31, 999_000_000, time.UTC),
			"/tmp/x/2024/03/05/14/2024-03-05T14:22:31+0000.jpg",
		},
		{
			"converted from local zone",
			time.Date(2024, 3, 5, 23, 30, 0, 0, time.FixedZone("UTC+10", 10*3600)),
			"/tmp/x/2024/03/05/13/2024-03-05T13:30:00+0000.jpg",
		},
		{
			"crosses day boundary",
			time.Date(2024, 1, 1, 1, 0, 0, 0, time.FixedZone("UTC+2", 2*3600)),
			"/tmp/x/2023/12/31/23/2023-12-31T23:00:00+0000.jpg",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := LocalPath("/tmp/x", tt.ts)
			if got != filepath.FromSlash(tt.want) {
				t.Errorf("got %s, want %s", got, tt.want)
			}
		})
	}
}

func TestLocalWriterCreatesDirectories(t *testing.T) {
	root := filepath.Join(t.TempDir(), "x")
	w := NewLocalWriter(root)
	frame := camera.Frame{
		Data:      []byte("jpeg"),
		Timestamp: time.Date(2024, 3, 5, 14, 22, 31, 0, time.UTC),
	}

	if err := w.Persist(context.Background(), frame); err != nil {
		t.Fatalf("Persist: %v", err)
	}

	want := filepath.Join(root, "2024", "03", "05", "14", "2024-03-05T14:22:31+0000.jpg")
	data, err := os.ReadFile(want)
	if err != nil {
		t.Fatalf("expected file at %s: %v", want, err)
	}
	if string(data) != "jpeg" {
		t.Errorf("content = %q", data)
	}
}

func TestLocalWriterFilesystemError(t *testing.T) {
	// A regular file where the root directory should be.
	root := filepath.Join(t.TempDir(), "blocked")
	if err := os.WriteFile(root, nil, 0o644); err != nil {
		t.Fatal(err)
	}

	err := NewLocalWriter(root).Persist(context.Background(), camera.Frame{Timestamp: time.Now()})
	if !errors.Is(err, ErrFilesystem) {
		t.Fatalf("expected ErrFilesystem, got %v", err)
	}
	var fsErr *FilesystemError
	if !errors.As(err, &fsErr) || fsErr.Op != "mkdir" {
		t.Errorf("expected mkdir FilesystemError, got %v", err)
	}
}

func TestUploaderSendsSample(t *testing.T) {
	sink := &upload.Mock{}
	dir := t.TempDir()
	u := NewUploader(sink, "rtsp://cam/1", dir)
	ts := time.Date(2024, 3, 5, 14, 22, 31, 5, time.UTC)

	if err := u.Persist(context.Background(), camera.Frame{Data: []byte("frame-1"), Timestamp: ts}); err != nil {
		t.Fatalf("Persist: %v", err)
	}

	calls := sink.Calls()
	if len(calls) != 1 {
		t.Fatalf("expected 1 upload, got %d", len(calls))
	}
	call := calls[0]
	if call.Path != filepath.Join(dir, SampleFileName) {
		t.Errorf("path = %s", call.Path)
	}
	if string(call.Data) != "frame-1" {
		t.Errorf("uploaded content = %q", call.Data)
	}
	if call.Meta[upload.MetaCamera] != "rtsp://cam/1" {
		t.Errorf("camera meta = %q", call.Meta[upload.MetaCamera])
	}
	if call.Meta[upload.MetaTimestamp] != "2024-03-05T14:22:31.000000005Z" {
		t.Errorf("timestamp meta = %q", call.Meta[upload.MetaTimestamp])
	}
	if call.Meta[upload.MetaSampleID] == "" {
		t.Error("missing sample id")
	}
}

func TestUploaderReusesSampleFile(t *testing.T) {
	sink := &upload.Mock{}
	u := NewUploader(sink, "rtsp://cam/1", t.TempDir())

	for _, payload := range []string{"first", "second"} {
		if err := u.Persist(context.Background(), camera.Frame{Data: []byte(payload), Timestamp: time.Now()}); err != nil {
			t.Fatal(err)
		}
	}

	calls := sink.Calls()
	if calls[0].Path != calls[1].Path {
		t.Errorf("expected same temp path, got %s and %s", calls[0].Path, calls[1].Path)
	}
	if string(calls[1].Data) != "second" {
		t.Errorf("second upload content = %q", calls[1].Data)
	}
	if calls[0].Meta[upload.MetaSampleID] == calls[1].Meta[upload.MetaSampleID] {
		t.Error("sample ids should differ")
	}
}

func TestUploaderSinkError(t *testing.T) {
	sinkErr := &upload.APIError{Sink: "http", StatusCode: 500, Message: "boom"}
	sink := &upload.Mock{UploadFunc: func(ctx context.Context, path string, meta map[string]string) error {
		return sinkErr
	}}

	err := NewUploader(sink, "rtsp://cam/1", t.TempDir()).
		Persist(context.Background(), camera.Frame{Data: []byte("x"), Timestamp: time.Now()})

	if !errors.Is(err, ErrUpload) {
		t.Fatalf("expected ErrUpload, got %v", err)
	}
	if !errors.Is(err, upload.ErrRejected) {
		t.Errorf("sink error should be kept: %v", err)
	}
}

func TestUploaderWriteError(t *testing.T) {
	sink := &upload.Mock{}
	u := NewUploader(sink, "rtsp://cam/1", filepath.Join(t.TempDir(), "missing-dir"))

	err := u.Persist(context.Background(), camera.Frame{Data: []byte("x"), Timestamp: time.Now()})
	if !errors.Is(err, ErrFilesystem) {
		t.Fatalf("expected ErrFilesystem, got %v", err)
	}
	if len(sink.Calls()) != 0 {
		t.Error("sink should not be called when the temp file cannot be written")
	}
}
