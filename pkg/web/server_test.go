package web

import (
	"encoding/json"
	"errors"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/teslashibe/go-sampler/pkg/camera"
	"github.com/teslashibe/go-sampler/pkg/sampler"
)

func getJSON(t *testing.T, s *Server, path string, v any) int {
	t.Helper()
	resp, err := s.App().Test(httptest.NewRequest("GET", path, nil))
	if err != nil {
		t.Fatalf("GET %s: %v", path, err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if v != nil {
		if err := json.Unmarshal(body, v); err != nil {
			t.Fatalf("decode %s: %v (%s)", path, err, body)
		}
	}
	return resp.StatusCode
}

func TestHealth(t *testing.T) {
	s := NewServer(":0", Status{Stream: "rtsp://cam/1"})

	var body map[string]string
	if code := getJSON(t, s, "/api/health", &body); code != 200 {
		t.Fatalf("status code %d", code)
	}
	if body["status"] != "ok" {
		t.Errorf("body = %v", body)
	}
}

func TestStatusTracksCycles(t *testing.T) {
	s := NewServer(":0", Status{Stream: "rtsp://cam/1", Mode: "local", Schedule: "* * * * *"})
	ts := time.Date(2024, 3, 5, 14, 22, 31, 0, time.UTC)
	next := ts.Add(time.Minute)

	s.CycleDone(sampler.Event{
		Cycle:     1,
		Stream:    "rtsp://cam/1",
		Frame:     camera.Frame{Data: make([]byte, 1234), Timestamp: ts},
		NextAfter: next,
	})

	var st Status
	getJSON(t, s, "/api/status", &st)
	if st.Cycles != 1 || st.Failures != 0 || st.LastBytes != 1234 {
		t.Errorf("status after success = %+v", st)
	}
	if !st.LastCapture.Equal(ts) || !st.NextTrigger.Equal(next) {
		t.Errorf("times = %s / %s", st.LastCapture, st.NextTrigger)
	}
	if st.Schedule != "* * * * *" || st.Mode != "local" {
		t.Errorf("static fields lost: %+v", st)
	}

	s.CycleDone(sampler.Event{Cycle: 2, Stream: "rtsp://cam/1", Err: errors.New("camera: no frame produced")})

	getJSON(t, s, "/api/status", &st)
	if st.Cycles != 2 || st.Failures != 1 || st.LastError == "" {
		t.Errorf("status after failure = %+v", st)
	}
	if !st.LastCapture.Equal(ts) {
		t.Error("failed cycle should not change last capture")
	}
}

func TestWebsocketRequiresUpgrade(t *testing.T) {
	s := NewServer(":0", Status{})
	resp, err := s.App().Test(httptest.NewRequest("GET", "/ws/captures", nil))
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != 426 {
		t.Errorf("expected 426 Upgrade Required, got %d", resp.StatusCode)
	}
}

func TestSetNextTrigger(t *testing.T) {
	s := NewServer(":0", Status{})
	next := time.Date(2024, 1, 1, 0, 1, 0, 0, time.UTC)
	s.SetNextTrigger(next)
	if !s.Snapshot().NextTrigger.Equal(next) {
		t.Errorf("next trigger = %s", s.Snapshot().NextTrigger)
	}
	if s.Snapshot().StartedAt.IsZero() {
		t.Error("StartedAt should default to now")
	}
}
