package artifact

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/JakeFAU/article-summarizer/internal/summarizer"
)

// ManifestName is the object written last on upload. Its presence marks a
// complete remote mirror.
const ManifestName = ".artifact-manifest.json"

// Manifest lists every file of a mirrored model directory.
type Manifest struct {
	ModelID   string      `json:"model_id"`
	CreatedAt time.Time   `json:"created_at"`
	Files     []FileEntry `json:"files"`
}

// FileEntry describes one artifact file by its slash-separated relative path.
type FileEntry struct {
	Path   string `json:"path"`
	Size   int64  `json:"size"`
	SHA256 string `json:"sha256"`
}

// Diff returns the sorted relative paths whose presence, size, or digest differ.
func (m Manifest) Diff(other Manifest) []string {
	mine := m.index()
	theirs := other.index()
	var diff []string
	for p, entry := range mine {
		if o, ok := theirs[p]; !ok || o.Size != entry.Size || o.SHA256 != entry.SHA256 {
			diff = append(diff, p)
		}
	}
	for p := range theirs {
		if _, ok := mine[p]; !ok {
			diff = append(diff, p)
		}
	}
	sort.Strings(diff)
	return diff
}

func (m Manifest) index() map[string]FileEntry {
	out := make(map[string]FileEntry, len(m.Files))
	for _, f := range m.Files {
		out[f.Path] = f
	}
	return out
}

func decodeManifest(data []byte) (Manifest, error) {
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return Manifest{}, fmt.Errorf("decode manifest: %w", err)
	}
	for _, f := range m.Files {
		if err := ValidateRelPath(f.Path); err != nil {
			return Manifest{}, fmt.Errorf("manifest entry: %w", err)
		}
	}
	return m, nil
}

// ValidateRelPath rejects object paths that could escape the model directory.
func ValidateRelPath(rel string) error {
	switch {
	case rel == "":
		return errors.New("empty relative path")
	case strings.Contains(rel, "\\"):
		return fmt.Errorf("relative path %q must use '/' separators", rel)
	case path.IsAbs(rel) || filepath.IsAbs(rel) || filepath.VolumeName(rel) != "":
		return fmt.Errorf("relative path %q is absolute", rel)
	}
	for _, seg := range strings.Split(rel, "/") {
		if seg == ".." {
			return fmt.Errorf("relative path %q escapes its root", rel)
		}
	}
	return nil
}

// buildManifest hashes every regular file under dir except the manifest itself.
func buildManifest(dir, modelID string, hasher summarizer.Hasher, clock summarizer.Clock) (Manifest, error) {
	m := Manifest{ModelID: modelID, CreatedAt: clock.Now()}
	err := filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(dir, p)
		if err != nil {
			return fmt.Errorf("relative path for %s: %w", p, err)
		}
		rel = filepath.ToSlash(rel)
		if rel == ManifestName {
			return nil
		}
		if err := ValidateRelPath(rel); err != nil {
			return err
		}
		f, err := os.Open(p) //nolint:gosec // p comes from walking dir
		if err != nil {
			return fmt.Errorf("open %s: %w", rel, err)
		}
		digest, size, hashErr := hasher.HashReader(f)
		closeErr := f.Close()
		if hashErr != nil {
			return fmt.Errorf("hash %s: %w", rel, hashErr)
		}
		if closeErr != nil {
			return fmt.Errorf("close %s: %w", rel, closeErr)
		}
		m.Files = append(m.Files, FileEntry{Path: rel, Size: size, SHA256: digest})
		return nil
	})
	if err != nil {
		return Manifest{}, fmt.Errorf("walk %s: %w", dir, err)
	}
	sort.Slice(m.Files, func(i, j int) bool { return m.Files[i].Path < m.Files[j].Path })
	return m, nil
}

// verifySizes checks that every manifest entry exists under dir with the recorded size.
func verifySizes(dir string, m Manifest) error {
	for _, f := range m.Files {
		info, err := os.Stat(filepath.Join(dir, filepath.FromSlash(f.Path)))
		if err != nil {
			return fmt.Errorf("verify %s: %w", f.Path, err)
		}
		if info.Size() != f.Size {
			return fmt.Errorf("verify %s: size %d, manifest says %d", f.Path, info.Size(), f.Size)
		}
	}
	return nil
}
