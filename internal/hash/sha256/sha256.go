// Package sha256 computes the hex digests recorded in artifact manifests.
package sha256

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
)

// Hasher implements summarizer.Hasher using SHA-256.
type Hasher struct{}

// New returns a SHA-256 hasher.
func New() *Hasher {
	return &Hasher{}
}

// Hash returns the hex digest of data.
func (h *Hasher) Hash(data []byte) (string, error) {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// HashReader streams r through the digest and reports the byte count, so
// multi-gigabyte weight files never sit in memory.
func (h *Hasher) HashReader(r io.Reader) (string, int64, error) {
	digest := sha256.New()
	n, err := io.Copy(digest, r)
	if err != nil {
		return "", n, fmt.Errorf("hash stream: %w", err)
	}
	return hex.EncodeToString(digest.Sum(nil)), n, nil
}

// HashFile hashes the file at path.
func (h *Hasher) HashFile(path string) (string, int64, error) {
	f, err := os.Open(path) //nolint:gosec // path comes from a walk of the artifact directory
	if err != nil {
		return "", 0, fmt.Errorf("open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()
	return h.HashReader(f)
}
