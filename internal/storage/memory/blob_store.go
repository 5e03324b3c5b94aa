// Package memory keeps mirrored artifacts in process memory for tests and dry runs.
package memory

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/JakeFAU/article-summarizer/internal/summarizer"
)

// BlobStore implements summarizer.ObjectStore over a map.
type BlobStore struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewBlobStore creates a new in-memory blob store.
func NewBlobStore() *BlobStore {
	return &BlobStore{
		data: make(map[string][]byte),
	}
}

// Exists reports whether key has been written.
func (s *BlobStore) Exists(_ context.Context, key string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.data[key]
	return ok, nil
}

// List returns every key that starts with prefix, sorted.
func (s *BlobStore) List(_ context.Context, prefix string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.data))
	for k := range s.data {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

// Get returns a reader over a copy of the stored bytes.
func (s *BlobStore) Get(_ context.Context, key string) (io.ReadCloser, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.data[key]
	if !ok {
		return nil, fmt.Errorf("get %s: %w", key, summarizer.ErrObjectNotFound)
	}
	return io.NopCloser(bytes.NewReader(append([]byte(nil), data...))), nil
}

// Put stores the full contents of r under key.
func (s *BlobStore) Put(_ context.Context, key string, r io.Reader) error {
	byteData, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("failed to read data from reader: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = byteData
	return nil
}

// Delete removes key. It exists for tests that simulate a vanished mirror.
func (s *BlobStore) Delete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
}
