package export

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"

	"cwcinspect/metrics"
)

// ErrArchiveDisabled is returned when no bucket is configured.
var ErrArchiveDisabled = errors.New("archive bucket not configured")

// Archiver stores an exported file and returns its location.
type Archiver interface {
	Archive(ctx context.Context, name, contentType string, data []byte) (string, error)
}

// GCSArchiver writes exports to a Cloud Storage bucket.
type GCSArchiver struct {
	client *storage.Client
	bucket string
}

// NewGCSArchiver opens a storage client. An empty credentialsPath uses
// application default credentials.
func NewGCSArchiver(ctx context.Context, bucket, credentialsPath string) (*GCSArchiver, error) {
	if bucket == "" {
		return nil, ErrArchiveDisabled
	}
	var opts []option.ClientOption
	if credentialsPath != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsPath))
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("error initializing storage client: %w", err)
	}
	return &GCSArchiver{client: client, bucket: bucket}, nil
}

// Archive uploads data as object name and returns its gs:// URL.
func (a *GCSArchiver) Archive(ctx context.Context, name, contentType string, data []byte) (string, error) {
	wc := a.client.Bucket(a.bucket).Object(name).NewWriter(ctx)
	wc.ContentType = contentType
	if _, err := wc.Write(data); err != nil {
		wc.Close()
		return "", fmt.Errorf("failed to upload %s: %w", name, err)
	}
	if err := wc.Close(); err != nil {
		return "", fmt.Errorf("failed to close writer for %s: %w", name, err)
	}
	return fmt.Sprintf("gs://%s/%s", a.bucket, name), nil
}

// Close releases the storage client.
func (a *GCSArchiver) Close() error {
	return a.client.Close()
}

// ObjectName is the archive object for a dashboard period, e.g.
// "dashboards/2025-03.xlsx".
func ObjectName(period metrics.Period) string {
	return fmt.Sprintf("dashboards/%04d-%02d.xlsx", period.Year, int(period.Month))
}
