package camera

import (
	"fmt"
	"time"
)

// Backend names.
const (
	BackendFFmpeg = "ffmpeg"
	BackendGoCV   = "gocv"
)

// Config holds capture settings shared by all backends.
type Config struct {
	// Backend selects the capture implementation: "ffmpeg" or "gocv".
	Backend string `yaml:"backend"`

	// Quality is the JPEG quality 1-100.
	Quality int `yaml:"quality"`

	// Transport is the RTSP lower transport: "tcp", "udp" or empty for the default.
	// Only used by the ffmpeg backend.
	Transport string `yaml:"transport"`

	// Timeout bounds how long a stream may stay open. Zero means no limit.
	// Only the ffmpeg backend enforces it.
	Timeout time.Duration `yaml:"timeout"`

	// FFmpegPath is the ffmpeg binary. Empty means "ffmpeg" from PATH.
	FFmpegPath string `yaml:"ffmpeg_path"`
}

// DefaultConfig returns the recommended configuration.
func DefaultConfig() Config {
	return Config{
		Backend:   BackendFFmpeg,
		Quality:   90,
		Transport: "tcp",
		Timeout:   30 * time.Second,
	}
}

// Validate checks if the config values are within valid ranges.
// Returns a list of validation errors, or nil if valid.
func (c *Config) Validate() []string {
	var errors []string

	if c.Backend != BackendFFmpeg && c.Backend != BackendGoCV {
		errors = append(errors, fmt.Sprintf("backend must be %s or %s", BackendFFmpeg, BackendGoCV))
	}
	if c.Quality < 1 || c.Quality > 100 {
		errors = append(errors, "quality must be between 1 and 100")
	}
	validTransports := map[string]bool{"": true, "tcp": true, "udp": true}
	if !validTransports[c.Transport] {
		errors = append(errors, "transport must be tcp, udp, or empty")
	}
	if c.Timeout < 0 {
		errors = append(errors, "timeout must not be negative")
	}

	return errors
}
