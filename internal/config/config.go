// Package config holds the capture request assembled at process start.
// Values come from an optional YAML file, then environment variables,
// then command-line flags (applied by cmd/sampler).
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/teslashibe/go-sampler/pkg/camera"
)

// Mode selects how a captured frame is persisted.
type Mode string

const (
	// ModeUpload hands frames to an upload sink.
	ModeUpload Mode = "upload"
	// ModeLocal writes frames below OutDir.
	ModeLocal Mode = "local"
)

// Upload sink names.
const (
	SinkHTTP  = "http"
	SinkDrive = "drive"
	SinkWS    = "ws"
)

// UploadConfig configures the upload sink used in ModeUpload.
type UploadConfig struct {
	Sink        string        `yaml:"sink"`         // http, drive or ws
	URL         string        `yaml:"url"`          // endpoint for http and ws sinks
	DriveFolder string        `yaml:"drive_folder"` // parent folder ID for the drive sink
	Credentials string        `yaml:"credentials"`  // service account JSON for the drive sink
	Timeout     time.Duration `yaml:"timeout"`
}

// Config is the capture request.
type Config struct {
	Stream     string        `yaml:"stream"`
	OutDir     string        `yaml:"out_dir"`
	Cronjob    string        `yaml:"cronjob"`
	WorkDir    string        `yaml:"work_dir"` // where the temporary upload file lives
	LogLevel   string        `yaml:"log_level"`
	StatusAddr string        `yaml:"status_addr"` // empty disables the status server
	Camera     camera.Config `yaml:"camera"`
	Upload     UploadConfig  `yaml:"upload"`
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		WorkDir:  ".",
		LogLevel: "info",
		Camera:   camera.DefaultConfig(),
		Upload: UploadConfig{
			Sink:    SinkHTTP,
			Timeout: 60 * time.Second,
		},
	}
}

// LoadFile reads a YAML file over the defaults.
func LoadFile(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// ApplyEnv overrides fields from environment variables that are set.
func (c *Config) ApplyEnv() {
	setFromEnv(&c.Stream, "SAMPLER_STREAM")
	setFromEnv(&c.OutDir, "SAMPLER_OUT_DIR")
	setFromEnv(&c.Cronjob, "SAMPLER_CRONJOB")
	setFromEnv(&c.Upload.URL, "SAMPLER_SINK_URL")
	setFromEnv(&c.Upload.Credentials, "GOOGLE_APPLICATION_CREDENTIALS")
	setFromEnv(&c.LogLevel, "LOG_LEVEL")
}

func setFromEnv(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

// Mode reports the persistence mode. An empty OutDir means upload.
func (c *Config) Mode() Mode {
	if c.OutDir == "" {
		return ModeUpload
	}
	return ModeLocal
}

// Recurring reports whether a schedule is configured.
func (c *Config) Recurring() bool {
	return c.Cronjob != ""
}

// Validate checks the configuration.
// Returns a list of validation errors, or nil if valid.
// The cron expression is checked separately so that an invalid
// schedule can be reported with its own exit path.
func (c *Config) Validate() []string {
	var errors []string

	if c.Stream == "" {
		errors = append(errors, "stream is required")
	}
	errors = append(errors, c.Camera.Validate()...)

	if c.Mode() == ModeUpload {
		switch c.Upload.Sink {
		case SinkHTTP, SinkWS:
			if c.Upload.URL == "" {
				errors = append(errors, fmt.Sprintf("upload url is required for the %s sink", c.Upload.Sink))
			}
		case SinkDrive:
			if c.Upload.Credentials == "" {
				errors = append(errors, "credentials are required for the drive sink")
			}
		default:
			errors = append(errors, "upload sink must be http, drive, or ws")
		}
		if c.Upload.Timeout <= 0 {
			errors = append(errors, "upload timeout must be positive")
		}
	}

	return errors
}
