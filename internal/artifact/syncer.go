// Package artifact keeps a model's local artifact directory in step with a
// remote object-store mirror and, failing both, the origin repository.
//
// Resolution is three-tiered. A non-empty local directory wins and is pushed
// to the mirror if the mirror lacks it. Otherwise a complete mirror (one with
// a manifest) is downloaded. Otherwise the origin is fetched and then
// mirrored. Downloads are staged in a sibling directory and renamed into place.
package artifact

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/JakeFAU/article-summarizer/internal/clock/system"
	"github.com/JakeFAU/article-summarizer/internal/hash/sha256"
	"github.com/JakeFAU/article-summarizer/internal/metrics"
	"github.com/JakeFAU/article-summarizer/internal/summarizer"
	"github.com/JakeFAU/article-summarizer/internal/telemetry"
)

// Tier labels used in logs and metrics.
const (
	TierLocal  = "local"
	TierRemote = "remote"
	TierOrigin = "origin"
)

// Origin downloads a model's files from its canonical repository into dir.
type Origin interface {
	Download(ctx context.Context, modelID, dir string) error
}

// Config controls where artifacts live.
type Config struct {
	// LocalDir is the directory the engine loads the model from.
	LocalDir string
	// Prefix is the key prefix of the mirror, "models" by default.
	Prefix string
	// VerifyRemote compares local and remote manifests when both exist.
	VerifyRemote bool
}

// Option customizes a Syncer.
type Option func(*Syncer)

// WithHasher overrides the manifest digest.
func WithHasher(h summarizer.Hasher) Option {
	return func(s *Syncer) { s.hasher = h }
}

// WithClock overrides the manifest timestamp source.
func WithClock(c summarizer.Clock) Option {
	return func(s *Syncer) { s.clock = c }
}

// Syncer resolves model artifacts. EnsureLocal calls are serialized within
// the process by mu and across processes by a lock file next to LocalDir.
type Syncer struct {
	mu     sync.Mutex
	cfg    Config
	store  summarizer.ObjectStore
	origin Origin
	hasher summarizer.Hasher
	clock  summarizer.Clock
	logger *zap.Logger
}

// New builds a Syncer. store may be nil, in which case only the local and
// origin tiers are consulted and nothing is uploaded.
func New(cfg Config, store summarizer.ObjectStore, origin Origin, logger *zap.Logger, opts ...Option) *Syncer {
	if cfg.Prefix == "" {
		cfg.Prefix = "models"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Syncer{
		cfg:    cfg,
		store:  store,
		origin: origin,
		hasher: sha256.New(),
		clock:  system.New(),
		logger: logger.Named("artifact"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// LocalDir returns the directory EnsureLocal populates.
func (s *Syncer) LocalDir() string {
	return s.cfg.LocalDir
}

// EnsureLocal makes sure the local directory holds a complete artifact set
// for modelID and returns its path.
func (s *Syncer) EnsureLocal(ctx context.Context, modelID string) (dir string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ctx, span := telemetry.StartSpan(ctx, "artifact.EnsureLocal", attribute.String("model_id", modelID))
	defer func() { telemetry.EndSpan(span, err) }()

	if err := ValidateRelPath(modelID); err != nil {
		return "", &summarizer.ArtifactSyncError{ModelID: modelID, Op: "validate", Err: err}
	}
	local := s.cfg.LocalDir
	if strings.TrimSpace(local) == "" {
		return "", &summarizer.ArtifactSyncError{ModelID: modelID, Op: "validate", Err: errors.New("local directory is not configured")}
	}
	logger := s.logger.With(zap.String("model_id", modelID), zap.String("local_dir", local))

	unlock, err := lockDir(ctx, local)
	if err != nil {
		return "", &summarizer.ArtifactSyncError{ModelID: modelID, Op: "lock", Err: err}
	}
	defer unlock()

	present, err := dirNonEmpty(local)
	if err != nil {
		return "", &summarizer.ArtifactSyncError{ModelID: modelID, Op: "inspect-local", Err: err}
	}
	if present {
		s.reconcileMirror(ctx, modelID, logger)
		metrics.ObserveArtifactSync(TierLocal, "ok")
		logger.Info("using local model artifacts")
		return local, nil
	}

	if s.store != nil {
		exists, err := s.store.Exists(ctx, s.manifestKey(modelID))
		if err != nil {
			metrics.ObserveArtifactSync(TierRemote, "error")
			return "", &summarizer.ArtifactSyncError{ModelID: modelID, Op: "probe", Err: err}
		}
		if exists {
			logger.Info("downloading model artifacts from mirror")
			if err := s.download(ctx, modelID, local); err != nil {
				metrics.ObserveArtifactSync(TierRemote, "error")
				return "", &summarizer.ArtifactSyncError{ModelID: modelID, Op: "download", Err: err}
			}
			metrics.ObserveArtifactSync(TierRemote, "ok")
			return local, nil
		}
	}

	if s.origin == nil {
		metrics.ObserveArtifactSync(TierOrigin, "error")
		return "", &summarizer.ArtifactSyncError{ModelID: modelID, Op: "origin", Err: errors.New("no origin repository configured")}
	}
	logger.Info("fetching model artifacts from origin")
	if err := stageInto(local, func(tmp string) error {
		return s.origin.Download(ctx, modelID, tmp)
	}); err != nil {
		metrics.ObserveArtifactSync(TierOrigin, "error")
		return "", &summarizer.ArtifactSyncError{ModelID: modelID, Op: "origin", Err: err}
	}
	metrics.ObserveArtifactSync(TierOrigin, "ok")

	if s.store != nil {
		if err := s.upload(ctx, modelID, local); err != nil {
			metrics.ObserveBestEffortFailure("mirror_upload")
			logger.Warn("mirroring origin artifacts failed", zap.Error(err))
		}
	}
	return local, nil
}

// reconcileMirror pushes the local copy when the mirror lacks it and, when
// configured, reports divergence between the two. Nothing here is fatal.
func (s *Syncer) reconcileMirror(ctx context.Context, modelID string, logger *zap.Logger) {
	if s.store == nil {
		return
	}
	local := s.cfg.LocalDir
	exists, err := s.store.Exists(ctx, s.manifestKey(modelID))
	if err != nil {
		metrics.ObserveBestEffortFailure("mirror_probe")
		logger.Warn("mirror probe failed; continuing with local artifacts", zap.Error(err))
		return
	}
	if !exists {
		logger.Info("mirror lacks model artifacts; uploading local copy")
		if err := s.upload(ctx, modelID, local); err != nil {
			metrics.ObserveBestEffortFailure("mirror_upload")
			logger.Warn("uploading local artifacts failed", zap.Error(err))
		}
		return
	}
	if !s.cfg.VerifyRemote {
		return
	}
	remote, err := s.readManifest(ctx, modelID)
	if err != nil {
		logger.Warn("reading mirror manifest failed", zap.Error(err))
		return
	}
	mine, err := buildManifest(local, modelID, s.hasher, s.clock)
	if err != nil {
		logger.Warn("hashing local artifacts failed", zap.Error(err))
		return
	}
	if diff := mine.Diff(remote); len(diff) > 0 {
		logger.Warn("local and mirrored artifacts diverge", zap.Strings("paths", diff))
		return
	}
	logger.Debug("local artifacts match mirror manifest", zap.Int("files", len(mine.Files)))
}

func (s *Syncer) download(ctx context.Context, modelID, local string) error {
	manifest, err := s.readManifest(ctx, modelID)
	if err != nil {
		return err
	}
	prefix := s.remotePrefix(modelID)
	keys, err := s.store.List(ctx, prefix)
	if err != nil {
		return fmt.Errorf("list mirror: %w", err)
	}
	return stageInto(local, func(tmp string) error {
		for _, key := range keys {
			rel := strings.TrimPrefix(key, prefix)
			if err := ValidateRelPath(rel); err != nil {
				return fmt.Errorf("object %s: %w", key, err)
			}
			if err := s.fetchObject(ctx, key, filepath.Join(tmp, filepath.FromSlash(rel))); err != nil {
				return err
			}
		}
		return verifySizes(tmp, manifest)
	})
}

func (s *Syncer) fetchObject(ctx context.Context, key, dest string) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0o750); err != nil {
		return fmt.Errorf("create dir for %s: %w", key, err)
	}
	rc, err := s.store.Get(ctx, key)
	if err != nil {
		return fmt.Errorf("get %s: %w", key, err)
	}
	defer func() { _ = rc.Close() }()

	f, err := os.OpenFile(dest, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o640) //nolint:gosec // dest is validated against the staging dir
	if err != nil {
		return fmt.Errorf("create %s: %w", dest, err)
	}
	if _, err := io.Copy(f, rc); err != nil {
		_ = f.Close()
		return fmt.Errorf("copy %s: %w", key, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", dest, err)
	}
	return nil
}

// upload mirrors every local file and writes the manifest last.
func (s *Syncer) upload(ctx context.Context, modelID, local string) error {
	manifest, err := buildManifest(local, modelID, s.hasher, s.clock)
	if err != nil {
		return err
	}
	for _, entry := range manifest.Files {
		if err := s.putFile(ctx, s.objectKey(modelID, entry.Path), filepath.Join(local, filepath.FromSlash(entry.Path))); err != nil {
			return err
		}
	}
	data, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return fmt.Errorf("encode manifest: %w", err)
	}
	if err := s.store.Put(ctx, s.manifestKey(modelID), bytes.NewReader(data)); err != nil {
		return fmt.Errorf("put manifest: %w", err)
	}
	s.logger.Info("mirrored model artifacts",
		zap.String("model_id", modelID),
		zap.Int("files", len(manifest.Files)),
	)
	return nil
}

func (s *Syncer) putFile(ctx context.Context, key, file string) error {
	f, err := os.Open(file) //nolint:gosec // file comes from the manifest walk
	if err != nil {
		return fmt.Errorf("open %s: %w", file, err)
	}
	defer func() { _ = f.Close() }()
	if err := s.store.Put(ctx, key, f); err != nil {
		return fmt.Errorf("put %s: %w", key, err)
	}
	return nil
}

func (s *Syncer) readManifest(ctx context.Context, modelID string) (Manifest, error) {
	rc, err := s.store.Get(ctx, s.manifestKey(modelID))
	if err != nil {
		return Manifest{}, fmt.Errorf("get manifest: %w", err)
	}
	defer func() { _ = rc.Close() }()
	data, err := io.ReadAll(rc)
	if err != nil {
		return Manifest{}, fmt.Errorf("read manifest: %w", err)
	}
	return decodeManifest(data)
}

func (s *Syncer) remotePrefix(modelID string) string {
	return path.Join(s.cfg.Prefix, modelID) + "/"
}

func (s *Syncer) objectKey(modelID, rel string) string {
	return s.remotePrefix(modelID) + rel
}

func (s *Syncer) manifestKey(modelID string) string {
	return s.objectKey(modelID, ManifestName)
}
