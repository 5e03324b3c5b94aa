package artifact

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
)

const lockRetryDelay = 250 * time.Millisecond

// lockDir takes an exclusive lock on "<dir>.lock", waiting until ctx is done.
// The lock file lives beside dir so the directory itself can be swapped.
func lockDir(ctx context.Context, dir string) (func(), error) {
	path := filepath.Clean(dir) + ".lock"
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("create %s: %w", filepath.Dir(path), err)
	}
	lock := flock.New(path)
	locked, err := lock.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		return nil, fmt.Errorf("lock %s: %w", path, err)
	}
	if !locked {
		return nil, fmt.Errorf("lock %s: not acquired", path)
	}
	return func() { _ = lock.Unlock() }, nil
}

// dirNonEmpty reports whether dir exists and holds at least one entry.
func dirNonEmpty(dir string) (bool, error) {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("read %s: %w", dir, err)
	}
	return len(entries) > 0, nil
}

// stageInto lets fill populate a temporary sibling of final and renames it into
// place only when fill succeeds. On failure nothing is left behind, so a
// half-written directory is never mistaken for a ready one.
func stageInto(final string, fill func(tmp string) error) error {
	parent := filepath.Dir(final)
	if err := os.MkdirAll(parent, 0o750); err != nil {
		return fmt.Errorf("create %s: %w", parent, err)
	}
	tmp, err := os.MkdirTemp(parent, "."+filepath.Base(final)+".partial-*")
	if err != nil {
		return fmt.Errorf("create staging dir: %w", err)
	}
	cleanup := func() { _ = os.RemoveAll(tmp) }

	if err := fill(tmp); err != nil {
		cleanup()
		return err
	}
	if err := os.Chmod(tmp, 0o750); err != nil { //nolint:gosec // model dirs are shared with the engine process
		cleanup()
		return fmt.Errorf("chmod staging dir: %w", err)
	}
	// An empty placeholder directory may already exist. A populated one was
	// finished by someone else and is kept.
	if err := os.Remove(final); err != nil && !errors.Is(err, fs.ErrNotExist) {
		cleanup()
		if populated, _ := dirNonEmpty(final); populated {
			return nil
		}
		return fmt.Errorf("replace %s: %w", final, err)
	}
	if err := os.Rename(tmp, final); err != nil {
		cleanup()
		if populated, _ := dirNonEmpty(final); populated {
			return nil
		}
		return fmt.Errorf("rename staging dir into %s: %w", final, err)
	}
	return nil
}
