package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	gcs "cloud.google.com/go/storage"
	"google.golang.org/api/option"

	"github.com/ruteri/blob-encryption-service/interfaces"
)

// GCSBackend implements a blob store on Google Cloud Storage.
// Containers are bucket names and keys are object names.
type GCSBackend struct {
	client *gcs.Client
	log    *slog.Logger
}

// NewGCSBackend creates a GCS client using application default credentials
// unless opts say otherwise.
func NewGCSBackend(ctx context.Context, log *slog.Logger, opts ...option.ClientOption) (*GCSBackend, error) {
	client, err := gcs.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCS client: %w", err)
	}

	return &GCSBackend{
		client: client,
		log:    log,
	}, nil
}

// Get downloads the whole object.
// Returns ErrObjectNotFound if the bucket or object does not exist.
func (b *GCSBackend) Get(ctx context.Context, container, key string) ([]byte, error) {
	start := time.Now()

	reader, err := b.object(container, key).NewReader(ctx)
	if err != nil {
		if errors.Is(err, gcs.ErrObjectNotExist) || errors.Is(err, gcs.ErrBucketNotExist) {
			b.log.DebugContext(ctx, "Object not found in GCS",
				slog.String("bucket", container),
				slog.String("key", key),
				slog.Duration("duration", time.Since(start)))
			return nil, fmt.Errorf("%w: gs://%s/%s", interfaces.ErrObjectNotFound, container, key)
		}

		b.log.ErrorContext(ctx, "Failed to open object in GCS",
			slog.String("bucket", container),
			slog.String("key", key),
			"err", err,
			slog.Duration("duration", time.Since(start)))
		return nil, fmt.Errorf("failed to get object from GCS: %w", err)
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		b.log.ErrorContext(ctx, "Failed to read object body",
			slog.String("bucket", container),
			slog.String("key", key),
			"err", err,
			slog.Duration("duration", time.Since(start)))
		return nil, fmt.Errorf("failed to read object body: %w", err)
	}

	b.log.DebugContext(ctx, "Fetched object from GCS",
		slog.String("bucket", container),
		slog.String("key", key),
		slog.Int("size", len(data)),
		slog.Duration("duration", time.Since(start)))

	return data, nil
}

// Put uploads data as a single object. GCS only creates the object once the
// writer is closed successfully, so a failed upload leaves nothing behind.
func (b *GCSBackend) Put(ctx context.Context, container, key string, data []byte, contentType string) error {
	start := time.Now()

	writeCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	w := b.object(container, key).NewWriter(writeCtx)
	w.ContentType = contentType

	if _, err := w.Write(data); err != nil {
		cancel()
		w.Close()
		return fmt.Errorf("failed to upload object to GCS: %w", err)
	}
	if err := w.Close(); err != nil {
		b.log.ErrorContext(ctx, "Failed to finalize GCS upload",
			slog.String("bucket", container),
			slog.String("key", key),
			"err", err)
		return fmt.Errorf("failed to upload object to GCS: %w", err)
	}

	b.log.DebugContext(ctx, "Stored object in GCS",
		slog.String("bucket", container),
		slog.String("key", key),
		slog.Int("size", len(data)),
		slog.Duration("duration", time.Since(start)))

	return nil
}

// object returns a handle that performs each request exactly once.
func (b *GCSBackend) object(container, key string) *gcs.ObjectHandle {
	return b.client.Bucket(container).Object(key).Retryer(gcs.WithPolicy(gcs.RetryNever))
}

// Name returns a unique identifier for this backend.
func (b *GCSBackend) Name() string {
	return "gcs"
}

// Close releases the underlying client.
func (b *GCSBackend) Close() error {
	return b.client.Close()
}
