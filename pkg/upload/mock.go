package upload

import (
	"context"
	"maps"
	"os"
	"sync"
)

// Mock implements Sink for testing.
type Mock struct {
	// UploadFunc is called when Upload is invoked.
	// If nil, the upload succeeds.
	UploadFunc func(ctx context.Context, path string, meta map[string]string) error

	mu     sync.Mutex
	calls  []MockCall
	closed bool
}

// MockCall records an Upload invocation.
// Data is the file content at the time of the call.
type MockCall struct {
	Path string
	Meta map[string]string
	Data []byte
}

// Upload records the call and calls UploadFunc.
func (m *Mock) Upload(ctx context.Context, path string, meta map[string]string) error {
	data, _ := os.ReadFile(path)
	m.mu.Lock()
	m.calls = append(m.calls, MockCall{Path: path, Meta: maps.Clone(meta), Data: data})
	m.mu.Unlock()

	if m.UploadFunc != nil {
		return m.UploadFunc(ctx, path, meta)
	}
	return nil
}

// Close implements Sink.
func (m *Mock) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Calls returns a copy of all recorded calls.
func (m *Mock) Calls() []MockCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]MockCall, len(m.calls))
	copy(out, m.calls)
	return out
}

// Closed reports whether Close was called.
func (m *Mock) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}
