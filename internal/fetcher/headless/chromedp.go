// Package headless renders JavaScript-heavy article pages in headless Chrome.
//
// A page counts as rendered once its content root (an article, main, or
// role=main element) is in the DOM. Pages without one are taken as they are
// once the content wait runs out.
package headless

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"golang.org/x/sync/semaphore"

	"github.com/JakeFAU/article-summarizer/internal/summarizer"
)

// ContentRoot selects the element an article's body is expected to live in.
const ContentRoot = "article, main, [role=main]"

const (
	defaultNavTimeout  = 30 * time.Second
	defaultContentWait = 5 * time.Second
)

// Config controls the behavior of the headless fetcher.
type Config struct {
	// MaxParallel caps concurrent tabs. Zero means no cap.
	MaxParallel int
	UserAgent   string
	// NavigationTimeout bounds one whole fetch.
	NavigationTimeout time.Duration
	// ContentWait bounds the wait for ContentRoot after the body is ready.
	ContentWait time.Duration
}

// Fetcher implements summarizer.Fetcher using chromedp and headless Chrome.
type Fetcher struct {
	cfg         Config
	tabs        *semaphore.Weighted
	allocator   context.Context
	allocCancel context.CancelFunc
}

// NewChromedp creates a headless fetcher backed by chromedp. The browser is
// started lazily by the first Fetch.
func NewChromedp(cfg Config) (*Fetcher, error) {
	if cfg.MaxParallel < 0 {
		return nil, fmt.Errorf("max parallel must be >= 0")
	}
	if cfg.NavigationTimeout <= 0 {
		cfg.NavigationTimeout = defaultNavTimeout
	}
	if cfg.ContentWait <= 0 {
		cfg.ContentWait = defaultContentWait
	}
	f := &Fetcher{cfg: cfg}
	if cfg.MaxParallel > 0 {
		f.tabs = semaphore.NewWeighted(int64(cfg.MaxParallel))
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", "new"),
		chromedp.Flag("blink-settings", "imagesEnabled=false"),
		chromedp.Flag("mute-audio", true),
	)
	if cfg.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(cfg.UserAgent))
	}
	f.allocator, f.allocCancel = chromedp.NewExecAllocator(context.Background(), opts...)
	return f, nil
}

// Close shuts down the browser.
func (f *Fetcher) Close() error {
	f.allocCancel()
	return nil
}

// Fetch renders the article and returns its DOM with the status of the
// document that ended up in the tab.
func (f *Fetcher) Fetch(ctx context.Context, request summarizer.FetchRequest) (summarizer.FetchResponse, error) {
	if f.tabs != nil {
		if err := f.tabs.Acquire(ctx, 1); err != nil {
			return summarizer.FetchResponse{}, fmt.Errorf("wait for headless tab: %w", err)
		}
		defer f.tabs.Release(1)
	}

	tab, closeTab := chromedp.NewContext(f.allocator)
	defer closeTab()
	tab, cancel := context.WithTimeout(tab, f.cfg.NavigationTimeout)
	defer cancel()
	// Tie the tab to the caller as well as to the navigation budget.
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	docs := newDocumentStatuses()
	chromedp.ListenTarget(tab, docs.observe)

	start := time.Now()
	var finalURL, markup string
	if err := chromedp.Run(tab,
		network.Enable(),
		chromedp.Navigate(request.URL),
		chromedp.WaitReady("body", chromedp.ByQuery),
	); err != nil {
		return summarizer.FetchResponse{}, fmt.Errorf("render %s: %w", request.URL, err)
	}
	if err := f.waitForContent(tab); err != nil {
		return summarizer.FetchResponse{}, fmt.Errorf("render %s: %w", request.URL, err)
	}
	if err := chromedp.Run(tab,
		chromedp.Location(&finalURL),
		chromedp.OuterHTML("html", &markup, chromedp.ByQuery),
	); err != nil {
		return summarizer.FetchResponse{}, fmt.Errorf("read %s: %w", request.URL, err)
	}
	if finalURL == "" {
		finalURL = request.URL
	}

	return summarizer.FetchResponse{
		URL:          finalURL,
		StatusCode:   docs.statusFor(finalURL),
		Body:         []byte(markup),
		Duration:     time.Since(start),
		UsedHeadless: true,
	}, nil
}

// waitForContent gives client-side rendering up to ContentWait to produce the
// content root. Running out of time is not an error.
func (f *Fetcher) waitForContent(tab context.Context) error {
	wait, cancel := context.WithTimeout(tab, f.cfg.ContentWait)
	defer cancel()
	err := chromedp.Run(wait, chromedp.WaitReady(ContentRoot, chromedp.ByQuery))
	if err == nil || (errors.Is(err, context.DeadlineExceeded) && tab.Err() == nil) {
		return nil
	}
	return err
}

// documentStatuses remembers the HTTP status of every document response in a
// tab, so the status of the page actually shown is not confused with that of
// an embedded frame.
type documentStatuses struct {
	mu    sync.Mutex
	byURL map[string]int
	first int
}

func newDocumentStatuses() *documentStatuses {
	return &documentStatuses{byURL: make(map[string]int)}
}

func (d *documentStatuses) observe(ev any) {
	resp, ok := ev.(*network.EventResponseReceived)
	if !ok || resp.Type != network.ResourceTypeDocument || resp.Response == nil {
		return
	}
	status := int(resp.Response.Status)
	d.mu.Lock()
	defer d.mu.Unlock()
	d.byURL[resp.Response.URL] = status
	if d.first == 0 {
		d.first = status
	}
}

// statusFor prefers the response for url, then the first document seen. With
// no document response at all (cache, service worker) the page is taken as OK.
func (d *documentStatuses) statusFor(url string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	if status, ok := d.byURL[url]; ok {
		return status
	}
	if d.first != 0 {
		return d.first
	}
	return http.StatusOK
}
