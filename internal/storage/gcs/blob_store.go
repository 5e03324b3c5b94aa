// Package gcs mirrors model artifacts in a Google Cloud Storage bucket.
package gcs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/JakeFAU/article-summarizer/internal/summarizer"
)

// Config captures the parameters required to connect to GCS.
type Config struct {
	Bucket          string
	CredentialsFile string
}

// BlobStore implements summarizer.ObjectStore on a GCS bucket.
type BlobStore struct {
	client *storage.Client
	bucket string
}

// NewClient builds a storage client, using CredentialsFile when set and
// application default credentials otherwise.
func NewClient(ctx context.Context, cfg Config) (*storage.Client, error) {
	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create gcs client: %w", err)
	}
	return client, nil
}

// New creates a GCS-backed blob store.
func New(client *storage.Client, cfg Config) (*BlobStore, error) {
	if client == nil {
		return nil, fmt.Errorf("storage client is required")
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("bucket name is required")
	}
	return &BlobStore{
		client: client,
		bucket: cfg.Bucket,
	}, nil
}

// Exists reports whether the object is present.
func (s *BlobStore) Exists(ctx context.Context, key string) (bool, error) {
	_, err := s.client.Bucket(s.bucket).Object(key).Attrs(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("stat gs://%s/%s: %w", s.bucket, key, err)
	}
	return true, nil
}

// List returns every object name under prefix.
func (s *BlobStore) List(ctx context.Context, prefix string) ([]string, error) {
	it := s.client.Bucket(s.bucket).Objects(ctx, &storage.Query{Prefix: prefix})
	var keys []string
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			return keys, nil
		}
		if err != nil {
			return nil, fmt.Errorf("list gs://%s/%s: %w", s.bucket, prefix, err)
		}
		if attrs.Name == "" || strings.HasSuffix(attrs.Name, "/") {
			continue
		}
		keys = append(keys, attrs.Name)
	}
}

// Get opens a reader on the object.
func (s *BlobStore) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	r, err := s.client.Bucket(s.bucket).Object(key).NewReader(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return nil, fmt.Errorf("get gs://%s/%s: %w", s.bucket, key, summarizer.ErrObjectNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get gs://%s/%s: %w", s.bucket, key, err)
	}
	return r, nil
}

// Put uploads r to the object, replacing any previous version.
func (s *BlobStore) Put(ctx context.Context, key string, r io.Reader) error {
	if strings.TrimSpace(key) == "" {
		return fmt.Errorf("key is required")
	}
	writer := s.client.Bucket(s.bucket).Object(key).NewWriter(ctx)
	if _, err := io.Copy(writer, r); err != nil {
		closeErr := writer.Close()
		if closeErr != nil {
			return fmt.Errorf("copy object: %w (close writer: %v)", err, closeErr)
		}
		return fmt.Errorf("copy object: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("close writer: %w", err)
	}
	return nil
}
