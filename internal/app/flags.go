package app

import (
	"flag"
	"fmt"
	"io"
	"time"

	"github.com/teslashibe/go-sampler/internal/config"
)

// parseArgs builds the configuration: defaults, then the YAML file named by
// --config, then environment, then flags that were set explicitly.
func parseArgs(args []string, stderr io.Writer) (config.Config, error) {
	fs := flag.NewFlagSet("sampler", flag.ContinueOnError)
	fs.SetOutput(stderr)

	configFile := fs.String("config", "", "YAML configuration file")
	stream := fs.String("stream", "", "Camera stream URL (required)")
	outDir := fs.String("out-dir", "", "Local output directory (empty uploads instead)")
	cronjob := fs.String("cronjob", "", "Cron schedule, e.g. \"*/5 * * * *\" (empty captures once)")
	backend := fs.String("backend", "", "Capture backend: ffmpeg, gocv")
	quality := fs.Int("quality", 0, "JPEG quality 1-100")
	captureTimeout := fs.Duration("capture-timeout", 0, "Maximum time a stream stays open")
	sink := fs.String("sink", "", "Upload sink: http, drive, ws")
	sinkURL := fs.String("sink-url", "", "Upload endpoint for the http and ws sinks (env SAMPLER_SINK_URL)")
	driveFolder := fs.String("drive-folder", "", "Google Drive folder ID for the drive sink")
	credentials := fs.String("credentials", "", "Service account JSON for the drive sink")
	uploadTimeout := fs.Duration("upload-timeout", 0, "Upload timeout")
	workDir := fs.String("work-dir", "", "Directory for the temporary upload file")
	statusAddr := fs.String("status-addr", "", "Status server address, e.g. :8080 (empty disables)")
	logLevel := fs.String("log-level", "", "Log level: debug, info, warn, error")

	if err := fs.Parse(args); err != nil {
		return config.Config{}, err
	}
	if fs.NArg() > 0 {
		return config.Config{}, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}

	cfg := config.Default()
	if *configFile != "" {
		var err error
		if cfg, err = config.LoadFile(*configFile); err != nil {
			return cfg, err
		}
	}
	cfg.ApplyEnv()

	set := map[string]bool{}
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })

	str := func(name string, dst *string, v string) {
		if set[name] {
			*dst = v
		}
	}
	dur := func(name string, dst *time.Duration, v time.Duration) {
		if set[name] {
			*dst = v
		}
	}

	str("stream", &cfg.Stream, *stream)
	str("out-dir", &cfg.OutDir, *outDir)
	str("cronjob", &cfg.Cronjob, *cronjob)
	str("backend", &cfg.Camera.Backend, *backend)
	if set["quality"] {
		cfg.Camera.Quality = *quality
	}
	dur("capture-timeout", &cfg.Camera.Timeout, *captureTimeout)
	str("sink", &cfg.Upload.Sink, *sink)
	str("sink-url", &cfg.Upload.URL, *sinkURL)
	str("drive-folder", &cfg.Upload.DriveFolder, *driveFolder)
	str("credentials", &cfg.Upload.Credentials, *credentials)
	dur("upload-timeout", &cfg.Upload.Timeout, *uploadTimeout)
	str("work-dir", &cfg.WorkDir, *workDir)
	str("status-addr", &cfg.StatusAddr, *statusAddr)
	str("log-level", &cfg.LogLevel, *logLevel)

	return cfg, nil
}
