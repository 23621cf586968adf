package backup

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"cloud.google.com/go/storage"
	"github.com/rs/zerolog"
	"google.golang.org/api/iterator"
)

// Object is a stored blob as seen by a listing.
type Object struct {
	Name    string
	Created time.Time
}

// ObjectStore is the blob storage the backups are written to.
type ObjectStore interface {
	List(ctx context.Context, prefix string) ([]Object, error)
	Write(ctx context.Context, key, contentType string, fill func(w io.Writer) error) error
	// DeletePrefix removes every object under prefix and reports how many were deleted.
	DeletePrefix(ctx context.Context, prefix string) (int, error)
	URI(key string) string
}

type GCSStore struct {
	client *storage.Client
	bucket string
	logger zerolog.Logger
}

func NewGCSStore(client *storage.Client, bucket string, logger zerolog.Logger) *GCSStore {
	return &GCSStore{
		client: client,
		bucket: bucket,
		logger: logger.With().Str("component", "gcs_store").Str("bucket", bucket).Logger(),
	}
}

func (s *GCSStore) List(ctx context.Context, prefix string) ([]Object, error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	it := s.client.Bucket(s.bucket).Objects(ctx, &storage.Query{Prefix: prefix})
	out := []Object{}
	for {
		attrs, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("list gs://%s/%s: %w", s.bucket, prefix, err)
		}
		out = append(out, Object{Name: attrs.Name, Created: attrs.Created})
	}
	return out, nil
}

func (s *GCSStore) Write(ctx context.Context, key, contentType string, fill func(w io.Writer) error) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Minute)
	defer cancel()

	w := s.client.Bucket(s.bucket).Object(key).NewWriter(ctx)
	w.ContentType = contentType
	if err := fill(w); err != nil {
		_ = w.Close()
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to close GCS writer for %s: %w", key, err)
	}
	return nil
}

func (s *GCSStore) DeletePrefix(ctx context.Context, prefix string) (int, error) {
	objects, err := s.List(ctx, prefix)
	if err != nil {
		return 0, err
	}
	deleted := 0
	for _, obj := range objects {
		delCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		err := s.client.Bucket(s.bucket).Object(obj.Name).Delete(delCtx)
		cancel()
		if err != nil && !errors.Is(err, storage.ErrObjectNotExist) {
			return deleted, fmt.Errorf("failed to delete GCS object %q: %w", obj.Name, err)
		}
		deleted++
	}
	s.logger.Info().Str("prefix", prefix).Int("deleted", deleted).Msg("objects deleted")
	return deleted, nil
}

func (s *GCSStore) URI(key string) string {
	return fmt.Sprintf("gs://%s/%s", s.bucket, key)
}

// ErrNotConfigured is returned by the store used when no backup bucket is configured.
var ErrNotConfigured = errors.New("backup bucket not configured")

// UnconfiguredStore refuses every operation with ErrNotConfigured.
type UnconfiguredStore struct{}

func (UnconfiguredStore) List(context.Context, string) ([]Object, error) { return nil, ErrNotConfigured }

func (UnconfiguredStore) Write(context.Context, string, string, func(io.Writer) error) error {
	return ErrNotConfigured
}

func (UnconfiguredStore) DeletePrefix(context.Context, string) (int, error) { return 0, ErrNotConfigured }

func (UnconfiguredStore) URI(key string) string { return key }
