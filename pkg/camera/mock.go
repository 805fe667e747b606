package camera

import (
	"context"
	"iter"
	"sync"
	"time"
)

// Mock implements Source for testing.
// Each Open returns a stream that yields Frames in order, then ReadErr
// (if set), then ends.
type Mock struct {
	// Frames are yielded by every opened stream.
	Frames []Frame

	// OpenErr, if set, is returned by Open.
	OpenErr error

	// ReadErr, if set, ends each stream after Frames are exhausted.
	ReadErr error

	mu     sync.Mutex
	opens  int
	closes int
	reads  int
}

// NewMock returns a mock yielding one frame per JPEG payload, stamped at ts.
func NewMock(ts time.Time, payloads ...[]byte) *Mock {
	m := &Mock{}
	for _, p := range payloads {
		m.Frames = append(m.Frames, Frame{Data: p, Timestamp: ts})
	}
	return m
}

// Open implements Source.
func (m *Mock) Open(ctx context.Context, uri string) (Stream, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.OpenErr != nil {
		return nil, m.OpenErr
	}
	m.opens++
	return &mockStream{m: m}, nil
}

// Opens returns how many streams were opened.
func (m *Mock) Opens() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.opens
}

// Closes returns how many streams were closed.
func (m *Mock) Closes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closes
}

// Reads returns how many frames were handed out.
func (m *Mock) Reads() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reads
}

type mockStream struct {
	m      *Mock
	closed bool
}

func (s *mockStream) Frames() iter.Seq2[Frame, error] {
	return func(yield func(Frame, error) bool) {
		for _, f := range s.m.Frames {
			s.m.mu.Lock()
			s.m.reads++
			s.m.mu.Unlock()
			if !yield(f, nil) {
				return
			}
		}
		if s.m.ReadErr != nil {
			yield(Frame{}, s.m.ReadErr)
		}
	}
}

func (s *mockStream) Close() error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	if !s.closed {
		s.closed = true
		s.m.closes++
	}
	return nil
}
