package upload

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
)

func writeSample(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sample.jpg")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestHTTPSinkUpload(t *testing.T) {
	var gotMeta map[string]string
	var gotFile, gotName string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s", r.Method)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse form: %v", err)
			return
		}
		gotMeta = map[string]string{}
		for k, v := range r.MultipartForm.Value {
			gotMeta[k] = v[0]
		}
		f, hdr, err := r.FormFile("file")
		if err != nil {
			t.Errorf("form file: %v", err)
			return
		}
		defer f.Close()
		b, _ := io.ReadAll(f)
		gotFile, gotName = string(b), hdr.Filename
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	sink, err := NewHTTPSinkWithClient(srv.URL, srv.Client())
	if err != nil {
		t.Fatal(err)
	}
	defer sink.Close()

	path := writeSample(t, "jpegdata")
	meta := map[string]string{MetaCamera: "rtsp://cam/1", MetaTimestamp: "2024-03-05T14:22:31Z"}
	if err := sink.Upload(context.Background(), path, meta); err != nil {
		t.Fatalf("Upload: %v", err)
	}

	if gotFile != "jpegdata" || gotName != "sample.jpg" {
		t.Errorf("file = %q name = %q", gotFile, gotName)
	}
	if gotMeta[MetaCamera] != "rtsp://cam/1" || gotMeta[MetaTimestamp] != "2024-03-05T14:22:31Z" {
		t.Errorf("meta = %v", gotMeta)
	}
}

func TestHTTPSinkRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusForbidden)
	}))
	defer srv.Close()

	sink, _ := NewHTTPSinkWithClient(srv.URL, srv.Client())
	err := sink.Upload(context.Background(), writeSample(t, "x"), nil)

	if !errors.Is(err, ErrRejected) {
		t.Fatalf("expected ErrRejected, got %v", err)
	}
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %T", err)
	}
	if !apiErr.IsForbidden() || apiErr.Message != "quota exceeded" {
		t.Errorf("unexpected api error: %+v", apiErr)
	}
}

func TestHTTPSinkMissingFile(t *testing.T) {
	sink, _ := NewHTTPSinkWithClient("http://127.0.0.1:1", http.DefaultClient)
	err := sink.Upload(context.Background(), filepath.Join(t.TempDir(), "nope.jpg"), nil)
	if err == nil || errors.Is(err, ErrRejected) {
		t.Errorf("expected local read error, got %v", err)
	}
}

func TestNewHTTPSinkNeedsURL(t *testing.T) {
	if _, err := NewHTTPSink(""); !errors.Is(err, ErrNoURL) {
		t.Errorf("expected ErrNoURL, got %v", err)
	}
}

func TestAPIErrorClassification(t *testing.T) {
	tests := []struct {
		code                 int
		unauthorized, server bool
	}{
		{401, true, false},
		{500, false, true},
		{503, false, true},
		{400, false, false},
	}
	for _, tt := range tests {
		e := &APIError{Sink: "http", StatusCode: tt.code}
		if e.IsUnauthorized() != tt.unauthorized || e.IsServerError() != tt.server {
			t.Errorf("status %d classified wrong", tt.code)
		}
	}
}
