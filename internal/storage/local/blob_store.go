// Package local mirrors model artifacts into a directory tree, for shared
// volumes and single-host setups without object storage.
package local

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/JakeFAU/article-summarizer/internal/summarizer"
)

// Config captures the parameters for the local filesystem blob store.
type Config struct {
	// BaseDir is the root directory that keys are resolved against.
	BaseDir string `mapstructure:"base_dir" yaml:"base_dir"`
}

// BlobStore implements summarizer.ObjectStore on the local filesystem.
type BlobStore struct {
	baseDir string
}

// New creates a new local filesystem-backed blob store, creating BaseDir if needed.
func New(cfg Config) (*BlobStore, error) {
	if strings.TrimSpace(cfg.BaseDir) == "" {
		return nil, fmt.Errorf("base directory is required")
	}

	info, err := os.Stat(cfg.BaseDir)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		if mkErr := os.MkdirAll(cfg.BaseDir, 0o750); mkErr != nil {
			return nil, fmt.Errorf("failed to create base directory: %w", mkErr)
		}
	case err != nil:
		return nil, fmt.Errorf("failed to stat base directory: %w", err)
	case !info.IsDir():
		return nil, fmt.Errorf("base directory path is not a directory")
	}

	// Check for write permissions.
	testFile := filepath.Join(cfg.BaseDir, ".writable_test")
	if err := os.WriteFile(testFile, []byte("test"), 0o600); err != nil {
		return nil, fmt.Errorf("base directory is not writable: %w", err)
	}
	if err := os.Remove(testFile); err != nil {
		return nil, fmt.Errorf("failed to clean up test file: %w", err)
	}

	return &BlobStore{
		baseDir: filepath.Clean(cfg.BaseDir),
	}, nil
}

// Exists reports whether a regular file is stored under key.
func (s *BlobStore) Exists(_ context.Context, key string) (bool, error) {
	full, err := s.resolve(key)
	if err != nil {
		return false, err
	}
	info, err := os.Stat(full)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("stat %s: %w", key, err)
	}
	return info.Mode().IsRegular(), nil
}

// List returns the slash-separated keys of all files whose key starts with prefix.
func (s *BlobStore) List(_ context.Context, prefix string) ([]string, error) {
	// Walk only the deepest directory the prefix pins down.
	dir, err := s.resolve(path.Dir(prefix + "x"))
	if err != nil {
		return nil, err
	}
	var keys []string
	walkErr := filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(s.baseDir, p)
		if err != nil {
			return fmt.Errorf("relative path for %s: %w", p, err)
		}
		if key := filepath.ToSlash(rel); strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
		return nil
	})
	if errors.Is(walkErr, fs.ErrNotExist) {
		return nil, nil
	}
	if walkErr != nil {
		return nil, fmt.Errorf("list %s: %w", prefix, walkErr)
	}
	sort.Strings(keys)
	return keys, nil
}

// Get opens the file stored under key.
func (s *BlobStore) Get(_ context.Context, key string) (io.ReadCloser, error) {
	full, err := s.resolve(key)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(full) //nolint:gosec // resolve keeps full inside baseDir
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("get %s: %w", key, summarizer.ErrObjectNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", key, err)
	}
	return f, nil
}

// Put streams r into a temporary sibling file and renames it over key, so
// readers never observe a partially written object.
func (s *BlobStore) Put(_ context.Context, key string, r io.Reader) error {
	full, err := s.resolve(key)
	if err != nil {
		return err
	}
	if full == s.baseDir {
		return fmt.Errorf("key is required")
	}
	dir := filepath.Dir(full)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("failed to create parent directories: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(full)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := io.Copy(tmp, r); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close %s: %w", key, err)
	}
	if err := os.Rename(tmpName, full); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("rename %s: %w", key, err)
	}
	return nil
}

// resolve maps a key onto the filesystem and rejects anything escaping baseDir.
func (s *BlobStore) resolve(key string) (string, error) {
	if strings.Contains(key, "\\") {
		return "", fmt.Errorf("invalid key %q", key)
	}
	full := filepath.Join(s.baseDir, filepath.FromSlash(key))
	if full != s.baseDir && !strings.HasPrefix(full, s.baseDir+string(filepath.Separator)) {
		return "", fmt.Errorf("path traversal detected in key %q", key)
	}
	return full, nil
}
