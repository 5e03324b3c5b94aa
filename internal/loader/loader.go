// Package loader turns an article URL into a ParsedDocument: one fetch, one
// parse, one strategy dispatch.
package loader

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/JakeFAU/article-summarizer/internal/metrics"
	"github.com/JakeFAU/article-summarizer/internal/summarizer"
	"github.com/JakeFAU/article-summarizer/internal/telemetry"
)

// Resolver picks the parser strategy for a host.
type Resolver interface {
	Resolve(domain string) summarizer.Parser
}

// Loader fetches and parses articles.
type Loader struct {
	fetcher summarizer.Fetcher
	parsers Resolver
	logger  *zap.Logger
}

// New wires a Loader. A nil logger is replaced with a no-op.
func New(fetcher summarizer.Fetcher, parsers Resolver, logger *zap.Logger) *Loader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loader{
		fetcher: fetcher,
		parsers: parsers,
		logger:  logger.Named("loader"),
	}
}

// Load fetches rawURL once and extracts its article text.
func (l *Loader) Load(ctx context.Context, rawURL string) (doc summarizer.ParsedDocument, err error) {
	ctx, span := telemetry.StartSpan(ctx, "loader.Load", attribute.String("url", rawURL))
	defer func() { telemetry.EndSpan(span, err) }()

	target, err := parseArticleURL(rawURL)
	if err != nil {
		return summarizer.ParsedDocument{}, &summarizer.FetchError{URL: rawURL, Err: err}
	}
	domain := strings.ToLower(target.Hostname())

	resp, err := l.fetcher.Fetch(ctx, summarizer.FetchRequest{URL: target.String()})
	if err != nil {
		metrics.ObserveFetch(domain, "error", 0)
		l.logger.Warn("article fetch failed", zap.String("url", rawURL), zap.Error(err))
		return summarizer.ParsedDocument{}, &summarizer.FetchError{URL: rawURL, Err: err}
	}
	metrics.ObserveFetch(domain, strconv.Itoa(resp.StatusCode), len(resp.Body))
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		l.logger.Warn("article fetch returned error status",
			zap.String("url", rawURL),
			zap.Int("status", resp.StatusCode),
		)
		return summarizer.ParsedDocument{}, &summarizer.FetchError{URL: rawURL, StatusCode: resp.StatusCode}
	}

	page, err := goquery.NewDocumentFromReader(bytes.NewReader(resp.Body))
	if err != nil {
		return summarizer.ParsedDocument{}, &summarizer.FetchError{URL: rawURL, Err: fmt.Errorf("parse html: %w", err)}
	}
	// Strategies mutate the tree, so the title is read first.
	title := strings.TrimSpace(page.Find("title").First().Text())

	content := l.parsers.Resolve(domain).Parse(page)
	if content == "" {
		return summarizer.ParsedDocument{}, &summarizer.NoContentExtractedError{URL: rawURL}
	}

	l.logger.Debug("article extracted",
		zap.String("url", rawURL),
		zap.String("domain", domain),
		zap.Int("chars", len(content)),
		zap.Duration("fetch_duration", resp.Duration),
		zap.Bool("headless", resp.UsedHeadless),
	)
	return summarizer.ParsedDocument{
		Content:   content,
		SourceURL: rawURL,
		Title:     title,
		Domain:    domain,
	}, nil
}

func parseArticleURL(raw string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return nil, fmt.Errorf("invalid url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("unsupported url scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("url %q has no host", raw)
	}
	return u, nil
}
