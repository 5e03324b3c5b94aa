// Package hub downloads model repositories from a Hugging Face compatible hub.
package hub

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"github.com/JakeFAU/article-summarizer/internal/artifact"
)

// DefaultPatterns selects weights, tokenizer, and config files.
var DefaultPatterns = []string{"*.json", "*.txt", "*.model", "*.safetensors", "*.bin"}

const maxListingBytes = 8 << 20

// Config controls the hub client.
type Config struct {
	BaseURL  string
	Revision string
	Token    string
	// Patterns are glob filters applied to each repository file; a file is
	// kept when its full path or base name matches any pattern.
	Patterns []string
	Timeout  time.Duration
}

// Client implements artifact.Origin against the hub HTTP API.
type Client struct {
	cfg    Config
	http   *http.Client
	logger *zap.Logger
}

// New builds a hub client with defaults for unset fields.
func New(cfg Config, logger *zap.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://huggingface.co"
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Revision == "" {
		cfg.Revision = "main"
	}
	if len(cfg.Patterns) == 0 {
		cfg.Patterns = DefaultPatterns
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		cfg: cfg,
		http: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		logger: logger.Named("hub"),
	}
}

// Download fetches every selected file of modelID into dir.
func (c *Client) Download(ctx context.Context, modelID, dir string) error {
	files, err := c.ListFiles(ctx, modelID)
	if err != nil {
		return err
	}
	selected := c.filter(files)
	if len(selected) == 0 {
		return fmt.Errorf("no files of %s match %v", modelID, c.cfg.Patterns)
	}
	for _, name := range selected {
		if err := artifact.ValidateRelPath(name); err != nil {
			return fmt.Errorf("repository file: %w", err)
		}
		if err := c.downloadFile(ctx, modelID, name, filepath.Join(dir, filepath.FromSlash(name))); err != nil {
			return err
		}
	}
	c.logger.Info("downloaded model from hub",
		zap.String("model_id", modelID),
		zap.String("revision", c.cfg.Revision),
		zap.Int("files", len(selected)),
	)
	return nil
}

// ListFiles returns the repository's file names at the configured revision.
func (c *Client) ListFiles(ctx context.Context, modelID string) ([]string, error) {
	endpoint := fmt.Sprintf("%s/api/models/%s/revision/%s", c.cfg.BaseURL, escapePath(modelID), escapePath(c.cfg.Revision))
	resp, err := c.get(ctx, endpoint)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxListingBytes))
	if err != nil {
		return nil, fmt.Errorf("read model listing: %w", err)
	}
	if !gjson.ValidBytes(body) {
		return nil, errors.New("model listing is not valid JSON")
	}
	names := gjson.GetBytes(body, "siblings.#.rfilename").Array()
	files := make([]string, 0, len(names))
	for _, n := range names {
		if s := n.String(); s != "" {
			files = append(files, s)
		}
	}
	return files, nil
}

func (c *Client) downloadFile(ctx context.Context, modelID, name, dest string) error {
	endpoint := fmt.Sprintf("%s/%s/resolve/%s/%s", c.cfg.BaseURL, escapePath(modelID), escapePath(c.cfg.Revision), escapePath(name))
	resp, err := c.get(ctx, endpoint)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if err := os.MkdirAll(filepath.Dir(dest), 0o750); err != nil {
		return fmt.Errorf("create dir for %s: %w", name, err)
	}
	f, err := os.OpenFile(dest, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o640) //nolint:gosec // name is validated
	if err != nil {
		return fmt.Errorf("create %s: %w", name, err)
	}
	n, err := io.Copy(f, resp.Body)
	if err != nil {
		_ = f.Close()
		return fmt.Errorf("download %s: %w", name, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", name, err)
	}
	if resp.ContentLength >= 0 && n != resp.ContentLength {
		return fmt.Errorf("download %s: got %d of %d bytes", name, n, resp.ContentLength)
	}
	c.logger.Debug("downloaded file", zap.String("file", name), zap.Int64("bytes", n))
	return nil
}

func (c *Client) get(ctx context.Context, endpoint string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if c.cfg.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.Token)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", endpoint, err)
	}
	if resp.StatusCode != http.StatusOK {
		_ = resp.Body.Close()
		return nil, fmt.Errorf("get %s: status %d", endpoint, resp.StatusCode)
	}
	return resp, nil
}

func (c *Client) filter(files []string) []string {
	var out []string
	for _, name := range files {
		for _, pattern := range c.cfg.Patterns {
			if matched(pattern, name) || matched(pattern, path.Base(name)) {
				out = append(out, name)
				break
			}
		}
	}
	return out
}

func matched(pattern, name string) bool {
	ok, err := path.Match(pattern, name)
	return err == nil && ok
}

// escapePath escapes each segment but keeps the "/" separators of repo ids
// and nested file names.
func escapePath(p string) string {
	segs := strings.Split(p, "/")
	for i, s := range segs {
		segs[i] = url.PathEscape(s)
	}
	return strings.Join(segs, "/")
}
