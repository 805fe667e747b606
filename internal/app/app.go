// Package app wires configuration, capture, persistence and scheduling
// into the sampler command.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/teslashibe/go-sampler/internal/config"
	"github.com/teslashibe/go-sampler/internal/httpc"
	"github.com/teslashibe/go-sampler/internal/log"
	"github.com/teslashibe/go-sampler/pkg/camera"
	"github.com/teslashibe/go-sampler/pkg/persist"
	"github.com/teslashibe/go-sampler/pkg/sampler"
	"github.com/teslashibe/go-sampler/pkg/schedule"
	"github.com/teslashibe/go-sampler/pkg/upload"
	"github.com/teslashibe/go-sampler/pkg/web"
)

// Exit codes. A failed cycle ends the process the same way invalid input
// does: there is no separate code for it.
const (
	ExitOK      = 0
	ExitInvalid = 1 // bad flags, configuration or cron expression
	ExitFailed  = 1 // capture or persist failure
)

// Deps are the collaborators Run builds on.
type Deps struct {
	// NewSource creates the capture source for the configured backend.
	NewSource func(cfg camera.Config) (camera.Source, error)

	// NewSink creates the upload sink. Only called in upload mode.
	NewSink func(ctx context.Context, cfg config.UploadConfig) (upload.Sink, error)

	// NewClock defaults to the system clock.
	NewClock func() sampler.Clock

	// Stdout receives logs; Stderr receives flag usage.
	Stdout io.Writer
	Stderr io.Writer
}

// DefaultSource supports the ffmpeg backend only. Commands built with cgo
// wrap it to add gocv.
func DefaultSource(cfg camera.Config) (camera.Source, error) {
	if cfg.Backend == camera.BackendFFmpeg {
		return camera.NewFFmpegSource(cfg), nil
	}
	return nil, fmt.Errorf("capture backend %q is not available in this build", cfg.Backend)
}

// DefaultSink builds the configured upload sink.
func DefaultSink(ctx context.Context, cfg config.UploadConfig) (upload.Sink, error) {
	switch cfg.Sink {
	case config.SinkHTTP:
		if cfg.Timeout == httpc.DefaultTimeout {
			return upload.NewHTTPSink(cfg.URL)
		}
		return upload.NewHTTPSinkWithClient(cfg.URL, httpc.NewClient(cfg.Timeout))
	case config.SinkDrive:
		return upload.NewDriveSink(ctx, cfg.Credentials, cfg.DriveFolder)
	case config.SinkWS:
		return upload.NewWSSink(cfg.URL, cfg.Timeout)
	default:
		return nil, fmt.Errorf("unknown upload sink %q", cfg.Sink)
	}
}

func (d *Deps) withDefaults() {
	if d.NewSource == nil {
		d.NewSource = DefaultSource
	}
	if d.NewSink == nil {
		d.NewSink = DefaultSink
	}
	if d.NewClock == nil {
		d.NewClock = func() sampler.Clock { return sampler.SystemClock{} }
	}
	if d.Stdout == nil {
		d.Stdout = os.Stdout
	}
	if d.Stderr == nil {
		d.Stderr = os.Stderr
	}
}

// Run executes the sampler command and returns its exit code.
func Run(ctx context.Context, args []string, deps Deps) int {
	deps.withDefaults()

	cfg, err := parseArgs(args, deps.Stderr)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "Error: %v\n", err)
		return ExitInvalid
	}
	log.InitWriter(deps.Stdout, cfg.LogLevel)

	if problems := cfg.Validate(); len(problems) > 0 {
		for _, p := range problems {
			log.Error("invalid configuration", "problem", p)
		}
		return ExitInvalid
	}

	// The cron expression is checked before anything is opened.
	var sched *schedule.Schedule
	if cfg.Recurring() {
		if sched, err = schedule.Parse(cfg.Cronjob); err != nil {
			log.Error("invalid cronjob format", "cronjob", cfg.Cronjob, "error", err)
			return ExitInvalid
		}
	}

	if cfg.OutDir != "" {
		if err := os.MkdirAll(cfg.OutDir, 0o755); err != nil {
			log.Error("creating output directory", "out_dir", cfg.OutDir, "error", err)
			return ExitFailed
		}
	}

	logger := log.With("stream", cfg.Stream, "mode", cfg.Mode())
	logger.Info("starting image sampler", "backend", cfg.Camera.Backend)

	src, err := deps.NewSource(cfg.Camera)
	if err != nil {
		log.Error("creating capture source", "error", err)
		return ExitInvalid
	}

	p, closeSink, err := newPersister(ctx, cfg, deps)
	if err != nil {
		log.Error("creating upload sink", "sink", cfg.Upload.Sink, "error", err)
		return ExitFailed
	}
	defer closeSink()

	s := sampler.New(src, p, cfg.Stream)
	s.Clock = deps.NewClock()

	if cfg.StatusAddr != "" {
		srv := web.NewServer(cfg.StatusAddr, web.Status{
			Stream:   cfg.Stream,
			Mode:     string(cfg.Mode()),
			Schedule: cfg.Cronjob,
		})
		s.Observer = srv
		srv.StartAsync()
		defer srv.Shutdown()
		if sched != nil {
			srv.SetNextTrigger(sched.Next(s.Clock.Now()))
		}
	}

	if sched == nil {
		logger.Info("single capture mode")
		if err := s.RunOnce(ctx); err != nil {
			logger.Error("capture failed", failureAttrs(err)...)
			return ExitFailed
		}
		return ExitOK
	}

	logger.Info("cronjob mode", "cronjob", sched.String())
	err = s.RunSchedule(ctx, sched)
	if errors.Is(err, context.Canceled) && ctx.Err() != nil {
		logger.Info("stopped", "cycles", s.Cycles())
		return ExitOK
	}
	logger.Error("capture failed", append([]any{"cycle", s.Cycles()}, failureAttrs(err)...)...)
	return ExitFailed
}

// failureAttrs describes a failed cycle, adding a hint when an upload sink
// answered with a status worth acting on.
func failureAttrs(err error) []any {
	attrs := []any{"error", err}
	var apiErr *upload.APIError
	if !errors.As(err, &apiErr) {
		return attrs
	}
	attrs = append(attrs, "sink", apiErr.Sink, "status", apiErr.StatusCode)
	switch {
	case apiErr.IsUnauthorized():
		attrs = append(attrs, "hint", "check the sink credentials")
	case apiErr.IsForbidden():
		attrs = append(attrs, "hint", "sink refused the file, check permissions or quota")
	case apiErr.IsServerError():
		attrs = append(attrs, "hint", "sink is failing, the sample was not stored")
	}
	return attrs
}

func newPersister(ctx context.Context, cfg config.Config, deps Deps) (persist.Persister, func(), error) {
	if cfg.Mode() == config.ModeLocal {
		return persist.NewLocalWriter(cfg.OutDir), func() {}, nil
	}

	sink, err := deps.NewSink(ctx, cfg.Upload)
	if err != nil {
		return nil, nil, err
	}
	closeSink := func() {
		if err := sink.Close(); err != nil {
			log.Warn("closing upload sink", "error", err)
		}
	}
	return persist.NewUploader(sink, cfg.Stream, cfg.WorkDir), closeSink, nil
}
