package camera

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"iter"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/teslashibe/go-sampler/internal/log"
)

// FFmpegSource reads frames by running ffmpeg with an MJPEG pipe output.
// It needs no cgo and handles anything ffmpeg can open (RTSP, HTTP, files, v4l2).
type FFmpegSource struct {
	cfg Config
}

// NewFFmpegSource creates a source from cfg.
func NewFFmpegSource(cfg Config) *FFmpegSource {
	return &FFmpegSource{cfg: cfg}
}

// Args returns the ffmpeg arguments used to open uri.
func (s *FFmpegSource) Args(uri string) []string {
	args := []string{"-hide_banner", "-loglevel", "error", "-nostdin"}
	if s.cfg.Transport != "" && strings.HasPrefix(uri, "rtsp") {
		args = append(args, "-rtsp_transport", s.cfg.Transport)
	}
	args = append(args,
		"-i", uri,
		"-an",
		"-f", "image2pipe",
		"-vcodec", "mjpeg",
		"-q:v", strconv.Itoa(qscale(s.cfg.Quality)),
		"pipe:1",
	)
	return args
}

// qscale maps JPEG quality 1-100 onto ffmpeg's 31-2 (lower is better).
func qscale(quality int) int {
	if quality < 1 {
		quality = 1
	}
	if quality > 100 {
		quality = 100
	}
	return 31 - (quality-1)*29/99
}

// Open starts ffmpeg for uri.
func (s *FFmpegSource) Open(ctx context.Context, uri string) (Stream, error) {
	bin := s.cfg.FFmpegPath
	if bin == "" {
		bin = "ffmpeg"
	}

	cancel := context.CancelFunc(func() {})
	if s.cfg.Timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, s.cfg.Timeout)
	}

	cmd := exec.CommandContext(ctx, bin, s.Args(uri)...)
	stderr := &tailBuffer{max: 4096}
	cmd.Stderr = stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		cancel()
		return nil, fmt.Errorf("ffmpeg stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		cancel()
		return nil, fmt.Errorf("start ffmpeg: %w", err)
	}
	log.Debug("ffmpeg started", "stream", uri, "pid", cmd.Process.Pid)

	ps := newPipeStream(stdout, func() error {
		defer cancel()
		// Killing is how the stream is released; the resulting exit status is expected.
		_ = cmd.Process.Kill()
		_ = cmd.Wait()
		return nil
	})
	ps.describe = func(err error) error {
		if msg := stderr.String(); msg != "" {
			return fmt.Errorf("%w: %s", err, msg)
		}
		return err
	}
	return ps, nil
}

// pipeStream yields JPEG frames split out of a byte stream.
type pipeStream struct {
	r        *JPEGReader
	release  func() error
	describe func(error) error
	now      func() time.Time

	once     sync.Once
	closeErr error
}

func newPipeStream(r io.Reader, release func() error) *pipeStream {
	return &pipeStream{
		r:        NewJPEGReader(r),
		release:  release,
		describe: func(err error) error { return err },
		now:      time.Now,
	}
}

// Frames implements Stream.
func (p *pipeStream) Frames() iter.Seq2[Frame, error] {
	return func(yield func(Frame, error) bool) {
		for {
			data, err := p.r.Next()
			if err != nil {
				// Reap the process first so stderr is complete.
				p.Close()
				yield(Frame{}, p.describe(err))
				return
			}
			if !yield(Frame{Data: data, Timestamp: p.now()}, nil) {
				return
			}
		}
	}
}

// Close implements Stream.
func (p *pipeStream) Close() error {
	p.once.Do(func() {
		if p.release != nil {
			p.closeErr = p.release()
		}
	})
	return p.closeErr
}

// JPEGReader splits a concatenated JPEG byte stream (MJPEG) into images.
type JPEGReader struct {
	br *bufio.Reader
}

// NewJPEGReader wraps r.
func NewJPEGReader(r io.Reader) *JPEGReader {
	return &JPEGReader{br: bufio.NewReaderSize(r, 64*1024)}
}

// Next returns the next complete image from SOI to EOI inclusive.
// It returns io.EOF when the input ends between images and
// io.ErrUnexpectedEOF when it ends inside one.
func (j *JPEGReader) Next() ([]byte, error) {
	var prev byte
	for {
		b, err := j.br.ReadByte()
		if err != nil {
			return nil, err
		}
		if prev == 0xFF && b == 0xD8 {
			break
		}
		prev = b
	}

	buf := bytes.NewBuffer(make([]byte, 0, 256*1024))
	buf.Write([]byte{0xFF, 0xD8})
	prev = 0
	for {
		b, err := j.br.ReadByte()
		if err != nil {
			if err == io.EOF {
				err = io.ErrUnexpectedEOF
			}
			return nil, err
		}
		buf.WriteByte(b)
		// 0xFF inside entropy-coded data is always stuffed with 0x00,
		// so FF D9 only appears as the end marker.
		if prev == 0xFF && b == 0xD9 {
			return buf.Bytes(), nil
		}
		prev = b
	}
}

// tailBuffer keeps the last max bytes written to it.
type tailBuffer struct {
	mu  sync.Mutex
	buf []byte
	max int
}

func (t *tailBuffer) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.buf = append(t.buf, p...)
	if over := len(t.buf) - t.max; over > 0 {
		t.buf = t.buf[over:]
	}
	return len(p), nil
}

func (t *tailBuffer) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return strings.TrimSpace(string(t.buf))
}
