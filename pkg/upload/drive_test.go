package upload

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"google.golang.org/api/option"
)

func newDriveTestSink(t *testing.T, handler http.HandlerFunc) *DriveSink {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	sink, err := NewDriveSinkWithOptions(context.Background(), "folder123",
		option.WithEndpoint(srv.URL+"/"),
		option.WithHTTPClient(srv.Client()),
	)
	if err != nil {
		t.Fatalf("NewDriveSinkWithOptions: %v", err)
	}
	return sink
}

func TestDriveSinkUpload(t *testing.T) {
	var body string
	sink := newDriveTestSink(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || !strings.HasSuffix(r.URL.Path, "/files") {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		b, _ := io.ReadAll(r.Body)
		body = string(b)
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"id":"file-1","name":"2024-03-05T14:22:31Z.jpg"}`)
	})

	meta := map[string]string{MetaCamera: "rtsp://cam/1", MetaTimestamp: "2024-03-05T14:22:31Z"}
	if err := sink.Upload(context.Background(), writeSample(t, "jpegpayload"), meta); err != nil {
		t.Fatalf("Upload: %v", err)
	}

	for _, want := range []string{
		`"camera":"rtsp://cam/1"`,
		`"name":"2024-03-05T14:22:31Z.jpg"`,
		`"parents":["folder123"]`,
		"jpegpayload",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("request body missing %s", want)
		}
	}
}

func TestDriveSinkRejected(t *testing.T) {
	sink := newDriveTestSink(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusForbidden)
		io.WriteString(w, `{"error":{"code":403,"message":"insufficient permissions"}}`)
	})

	err := sink.Upload(context.Background(), writeSample(t, "x"), nil)
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.StatusCode != 403 || apiErr.Sink != "drive" {
		t.Errorf("unexpected api error: %+v", apiErr)
	}
	if !errors.Is(err, ErrRejected) {
		t.Error("drive rejection should match ErrRejected")
	}
}

func TestDriveName(t *testing.T) {
	if got := driveName("/tmp/sample.jpg", nil); got != "sample.jpg" {
		t.Errorf("driveName without timestamp = %q", got)
	}
	if got := driveName("/tmp/sample.jpg", map[string]string{MetaTimestamp: "T1"}); got != "T1.jpg" {
		t.Errorf("driveName with timestamp = %q", got)
	}
}
