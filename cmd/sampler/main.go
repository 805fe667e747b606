// Sampler - periodic still capture from a network camera
//
// Grabs one frame from a stream and uploads it or stores it under a
// timestamped directory, once or on a cron schedule.
//
// Usage:
//
//	sampler --stream rtsp://10.0.0.5/live --out-dir /data --cronjob "*/5 * * * *"
//	sampler --stream rtsp://10.0.0.5/live --sink http --sink-url https://example.org/upload
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/teslashibe/go-sampler/internal/app"
	"github.com/teslashibe/go-sampler/pkg/camera"
	"github.com/teslashibe/go-sampler/pkg/camera/cv"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := app.Run(ctx, os.Args[1:], app.Deps{NewSource: newSource})
	stop()
	os.Exit(code)
}

func newSource(cfg camera.Config) (camera.Source, error) {
	if cfg.Backend == camera.BackendGoCV {
		return cv.NewSource(cfg), nil
	}
	return app.DefaultSource(cfg)
}
