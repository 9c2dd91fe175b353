// Package gcs keeps tracker documents as objects in a Google Cloud Storage
// bucket, one object per document under a configurable prefix.
package gcs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"

	"github.com/karmanspace/tracker/internal/store/blobstore"
)

// Config describes the bucket and credentials.
type Config struct {
	Bucket  string
	Project string
	Prefix  string
	// CredentialsFile is a service account key. Empty uses application
	// default credentials.
	CredentialsFile string
	// Endpoint overrides the storage API endpoint, e.g. for an emulator.
	Endpoint string
}

// Store is a blobstore.Blob backed by a GCS bucket.
type Store struct {
	client *storage.Client
	bucket string
	prefix string
}

// New creates a storage client for cfg.
func New(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("bucket is required")
	}

	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		if _, err := os.Stat(cfg.CredentialsFile); os.IsNotExist(err) {
			return nil, fmt.Errorf("service account key not found at path: %s", cfg.CredentialsFile)
		}
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	if cfg.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(cfg.Endpoint), option.WithoutAuthentication())
	}

	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCS storage client: %w", err)
	}

	return &Store{
		client: client,
		bucket: cfg.Bucket,
		prefix: cfg.Prefix,
	}, nil
}

// ObjectName returns the object that holds key.
func (s *Store) ObjectName(key string) string {
	return objectName(s.prefix, key)
}

func objectName(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return path.Join(prefix, key)
}

// Get implements blobstore.Blob.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	name := s.ObjectName(key)
	r, err := s.client.Bucket(s.bucket).Object(name).NewReader(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return nil, blobstore.ErrMissing
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open gs://%s/%s: %w", s.bucket, name, err)
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read gs://%s/%s: %w", s.bucket, name, err)
	}
	return data, nil
}

// Put implements blobstore.Blob. The object is replaced only when the
// writer closes successfully.
func (s *Store) Put(ctx context.Context, key string, data []byte) error {
	name := s.ObjectName(key)
	w := s.client.Bucket(s.bucket).Object(name).NewWriter(ctx)
	w.ContentType = "application/json"
	w.CacheControl = "no-cache, no-store, must-revalidate"

	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return fmt.Errorf("failed to write gs://%s/%s: %w", s.bucket, name, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to close GCS writer for %s: %w", name, err)
	}
	return nil
}

// Close releases the storage client.
func (s *Store) Close() error {
	return s.client.Close()
}
