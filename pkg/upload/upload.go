// Package upload delivers captured files to remote storage.
//
// A Sink receives a local file path and a metadata map. Each call is a
// single attempt; sinks never retry.
package upload

import "context"

// Metadata keys attached to every upload.
const (
	MetaCamera    = "camera"
	MetaTimestamp = "timestamp"
	MetaSampleID  = "sample_id"
)

// Sink accepts a file and its metadata.
type Sink interface {
	Upload(ctx context.Context, path string, meta map[string]string) error
	Close() error
}
