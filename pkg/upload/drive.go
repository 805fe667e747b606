package upload

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/teslashibe/go-sampler/internal/log"
)

// DriveSink uploads files to a Google Drive folder.
// Metadata is stored as Drive file properties.
type DriveSink struct {
	service *drive.Service
	folder  string
}

// NewDriveSink authenticates with a service account key file.
func NewDriveSink(ctx context.Context, credentialsFile, folderID string) (*DriveSink, error) {
	data, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("upload [drive]: read credentials: %w", err)
	}
	creds, err := google.CredentialsFromJSON(ctx, data, drive.DriveFileScope)
	if err != nil {
		return nil, fmt.Errorf("upload [drive]: parse credentials: %w", err)
	}
	return NewDriveSinkWithOptions(ctx, folderID, option.WithCredentials(creds))
}

// NewDriveSinkWithOptions creates a sink from explicit client options.
func NewDriveSinkWithOptions(ctx context.Context, folderID string, opts ...option.ClientOption) (*DriveSink, error) {
	svc, err := drive.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("upload [drive]: create service: %w", err)
	}
	return &DriveSink{service: svc, folder: folderID}, nil
}

// Upload implements Sink.
func (s *DriveSink) Upload(ctx context.Context, path string, meta map[string]string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("upload [drive]: %w", err)
	}
	defer f.Close()

	file := &drive.File{
		Name:       driveName(path, meta),
		MimeType:   "image/jpeg",
		Properties: meta,
	}
	if s.folder != "" {
		file.Parents = []string{s.folder}
	}

	created, err := s.service.Files.Create(file).
		Media(f, googleapi.ContentType("image/jpeg")).
		Fields("id", "name").
		Context(ctx).
		Do()
	if err != nil {
		var gerr *googleapi.Error
		if errors.As(err, &gerr) {
			return &APIError{Sink: "drive", StatusCode: gerr.Code, Message: gerr.Message}
		}
		return fmt.Errorf("upload [drive]: %w", err)
	}

	log.Debug("uploaded", "sink", "drive", "file_id", created.Id, "name", created.Name)
	return nil
}

// driveName names the remote file after the capture time when known,
// since the local upload file name is reused for every capture.
func driveName(path string, meta map[string]string) string {
	if ts := meta[MetaTimestamp]; ts != "" {
		return ts + ".jpg"
	}
	return filepath.Base(path)
}

// Close implements Sink.
func (s *DriveSink) Close() error {
	return nil
}
