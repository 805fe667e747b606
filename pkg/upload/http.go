package upload

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/teslashibe/go-sampler/internal/httpc"
	"github.com/teslashibe/go-sampler/internal/log"
)

// HTTPSink posts files as multipart/form-data.
// The file goes in the "file" part; each metadata entry becomes a form field.
type HTTPSink struct {
	url    string
	client *http.Client
}

// NewHTTPSink creates a sink posting to url with the shared client.
func NewHTTPSink(url string) (*HTTPSink, error) {
	return NewHTTPSinkWithClient(url, httpc.Client)
}

// NewHTTPSinkWithClient is NewHTTPSink with a caller-supplied client.
func NewHTTPSinkWithClient(url string, client *http.Client) (*HTTPSink, error) {
	if url == "" {
		return nil, ErrNoURL
	}
	return &HTTPSink{url: url, client: client}, nil
}

// Upload implements Sink.
func (s *HTTPSink) Upload(ctx context.Context, path string, meta map[string]string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("upload [http]: %w", err)
	}
	defer f.Close()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	// Sorted so requests are reproducible.
	keys := make([]string, 0, len(meta))
	for k := range meta {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := mw.WriteField(k, meta[k]); err != nil {
			return fmt.Errorf("upload [http]: write field %s: %w", k, err)
		}
	}

	part, err := mw.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return fmt.Errorf("upload [http]: %w", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return fmt.Errorf("upload [http]: read %s: %w", path, err)
	}
	if err := mw.Close(); err != nil {
		return fmt.Errorf("upload [http]: %w", err)
	}

	size := body.Len()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, &body)
	if err != nil {
		return fmt.Errorf("upload [http]: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("upload [http]: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return &APIError{Sink: "http", StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(msg))}
	}
	io.Copy(io.Discard, resp.Body)

	log.Debug("uploaded", "sink", "http", "url", s.url, "bytes", size)
	return nil
}

// Close implements Sink.
func (s *HTTPSink) Close() error {
	s.client.CloseIdleConnections()
	return nil
}
