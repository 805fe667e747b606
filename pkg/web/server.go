// Package web serves the sampler's status over HTTP and websocket.
package web

import (
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"github.com/teslashibe/go-sampler/internal/log"
	"github.com/teslashibe/go-sampler/pkg/hub"
	"github.com/teslashibe/go-sampler/pkg/sampler"
)

// Status is the sampler state reported by /api/status.
type Status struct {
	Stream      string    `json:"stream"`
	Mode        string    `json:"mode"`
	Schedule    string    `json:"schedule,omitempty"`
	StartedAt   time.Time `json:"started_at"`
	Cycles      int       `json:"cycles"`
	Failures    int       `json:"failures"`
	LastCapture time.Time `json:"last_capture,omitzero"`
	LastBytes   int       `json:"last_bytes"`
	LastError   string    `json:"last_error,omitempty"`
	NextTrigger time.Time `json:"next_trigger,omitzero"`
}

// CaptureEvent is broadcast on /ws/captures after every cycle.
type CaptureEvent struct {
	Cycle     int       `json:"cycle"`
	Stream    string    `json:"stream"`
	Started   time.Time `json:"started"`
	Timestamp time.Time `json:"timestamp,omitzero"`
	Bytes     int       `json:"bytes"`
	Error     string    `json:"error,omitempty"`
	Next      time.Time `json:"next,omitzero"`
}

// Server is the status server. It implements sampler.Observer.
type Server struct {
	app  *fiber.App
	addr string

	status   Status
	statusMu sync.RWMutex

	captures *hub.Hub
}

var _ sampler.Observer = (*Server)(nil)

// NewServer creates a status server listening on addr once started.
func NewServer(addr string, initial Status) *Server {
	if initial.StartedAt.IsZero() {
		initial.StartedAt = time.Now().UTC()
	}
	s := &Server{
		addr:     addr,
		status:   initial,
		captures: hub.New("captures"),
	}

	app := fiber.New(fiber.Config{
		AppName:               "go-sampler",
		DisableStartupMessage: true,
	})

	api := app.Group("/api")
	api.Get("/health", s.handleHealth)
	api.Get("/status", s.handleStatus)

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/captures", websocket.New(s.handleCapturesWS))

	s.app = app
	return s
}

// App exposes the fiber app, mainly for tests.
func (s *Server) App() *fiber.App {
	return s.app
}

// Start runs the hub and blocks serving HTTP.
func (s *Server) Start() error {
	log.Info("status server listening", "addr", s.addr)
	go s.captures.Run()
	return s.app.Listen(s.addr)
}

// StartAsync starts the server in a goroutine.
func (s *Server) StartAsync() {
	go func() {
		if err := s.Start(); err != nil {
			log.Warn("status server stopped", "error", err)
		}
	}()
}

// Shutdown stops the server and disconnects websocket clients.
func (s *Server) Shutdown() error {
	s.captures.Stop()
	return s.app.ShutdownWithTimeout(5 * time.Second)
}

// SetNextTrigger records the next scheduled capture.
func (s *Server) SetNextTrigger(t time.Time) {
	s.statusMu.Lock()
	s.status.NextTrigger = t
	s.statusMu.Unlock()
}

// CycleDone implements sampler.Observer.
func (s *Server) CycleDone(ev sampler.Event) {
	out := CaptureEvent{
		Cycle:     ev.Cycle,
		Stream:    ev.Stream,
		Started:   ev.Started,
		Timestamp: ev.Frame.Timestamp,
		Bytes:     len(ev.Frame.Data),
		Next:      ev.NextAfter,
	}

	s.statusMu.Lock()
	s.status.Cycles = ev.Cycle
	s.status.NextTrigger = ev.NextAfter
	if ev.Err != nil {
		out.Error = ev.Err.Error()
		s.status.Failures++
		s.status.LastError = out.Error
	} else {
		s.status.LastCapture = ev.Frame.Timestamp
		s.status.LastBytes = out.Bytes
		s.status.LastError = ""
	}
	s.statusMu.Unlock()

	if err := s.captures.BroadcastJSON(out); err != nil {
		log.Warn("encoding capture event", "error", err)
	}
}

// Snapshot returns a copy of the current status.
func (s *Server) Snapshot() Status {
	s.statusMu.RLock()
	defer s.statusMu.RUnlock()
	return s.status
}
