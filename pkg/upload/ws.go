package upload

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/teslashibe/go-sampler/internal/log"
)

// Envelope is the message sent for each upload.
// Data is base64-encoded by encoding/json.
type Envelope struct {
	Type string            `json:"type"`
	ID   string            `json:"id"`
	Name string            `json:"name"`
	Meta map[string]string `json:"meta"`
	Data []byte            `json:"data"`
}

// Ack is the reply expected for an Envelope.
type Ack struct {
	ID    string `json:"id"`
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

// WSSink sends files over a websocket, one connection per upload,
// and waits for a matching acknowledgement.
type WSSink struct {
	url    string
	dialer websocket.Dialer
	wait   time.Duration
}

// NewWSSink creates a websocket sink. wait bounds the handshake, write and ack.
func NewWSSink(url string, wait time.Duration) (*WSSink, error) {
	if url == "" {
		return nil, ErrNoURL
	}
	if wait <= 0 {
		wait = 30 * time.Second
	}
	return &WSSink{
		url:    url,
		dialer: websocket.Dialer{HandshakeTimeout: wait, Proxy: http.ProxyFromEnvironment},
		wait:   wait,
	}, nil
}

// Upload implements Sink.
func (s *WSSink) Upload(ctx context.Context, path string, meta map[string]string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("upload [ws]: %w", err)
	}

	conn, _, err := s.dialer.DialContext(ctx, s.url, nil)
	if err != nil {
		return fmt.Errorf("upload [ws]: dial %s: %w", s.url, err)
	}
	defer conn.Close()

	id := meta[MetaSampleID]
	if id == "" {
		id = uuid.NewString()
	}
	env := Envelope{
		Type: "upload",
		ID:   id,
		Name: filepath.Base(path),
		Meta: meta,
		Data: data,
	}

	deadline := time.Now().Add(s.wait)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	conn.SetWriteDeadline(deadline)
	if err := conn.WriteJSON(env); err != nil {
		return fmt.Errorf("upload [ws]: send: %w", err)
	}

	conn.SetReadDeadline(deadline)
	for {
		var ack Ack
		if err := conn.ReadJSON(&ack); err != nil {
			return fmt.Errorf("upload [ws]: waiting for ack: %w", err)
		}
		if ack.ID != id {
			log.Debug("ignoring ack for other upload", "sink", "ws", "id", ack.ID)
			continue
		}
		if !ack.OK {
			return &APIError{Sink: "ws", StatusCode: http.StatusUnprocessableEntity, Message: ack.Error}
		}
		break
	}

	conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))

	log.Debug("uploaded", "sink", "ws", "id", id, "bytes", len(data))
	return nil
}

// Close implements Sink.
func (s *WSSink) Close() error {
	return nil
}
