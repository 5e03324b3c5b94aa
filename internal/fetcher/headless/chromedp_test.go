package headless

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/article-summarizer/internal/summarizer"
)

func documentResponse(url string, status int64) *network.EventResponseReceived {
	return &network.EventResponseReceived{
		Type:     network.ResourceTypeDocument,
		Response: &network.Response{URL: url, Status: status},
	}
}

func TestNewChromedpDefaults(t *testing.T) {
	t.Parallel()

	_, err := NewChromedp(Config{MaxParallel: -1})
	require.Error(t, err)

	f, err := NewChromedp(Config{MaxParallel: 2, UserAgent: "article-summarizer/test"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = f.Close() })
	assert.NotNil(t, f.tabs)
	assert.Equal(t, defaultNavTimeout, f.cfg.NavigationTimeout)
	assert.Equal(t, defaultContentWait, f.cfg.ContentWait)

	unbounded, err := NewChromedp(Config{ContentWait: time.Second})
	require.NoError(t, err)
	t.Cleanup(func() { _ = unbounded.Close() })
	assert.Nil(t, unbounded.tabs)
	assert.Equal(t, time.Second, unbounded.cfg.ContentWait)
}

func TestFetchHonorsCanceledTabWait(t *testing.T) {
	t.Parallel()

	f, err := NewChromedp(Config{MaxParallel: 1})
	require.NoError(t, err)
	t.Cleanup(func() { _ = f.Close() })

	// Hold the only tab so Fetch has to wait for it.
	require.NoError(t, f.tabs.Acquire(context.Background(), 1))
	defer f.tabs.Release(1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = f.Fetch(ctx, summarizer.FetchRequest{URL: "https://example.com/a"})
	require.ErrorIs(t, err, context.Canceled)
}

func TestDocumentStatusesPreferFinalURL(t *testing.T) {
	t.Parallel()

	docs := newDocumentStatuses()
	docs.observe(documentResponse("https://example.com/story", 301))
	docs.observe(documentResponse("https://www.example.com/story", 200))
	docs.observe(documentResponse("https://ads.example.net/frame", 404))
	docs.observe(&network.EventResponseReceived{
		Type:     network.ResourceTypeScript,
		Response: &network.Response{URL: "https://cdn.example.com/app.js", Status: 500},
	})
	docs.observe(&network.EventLoadingFinished{})

	assert.Equal(t, 200, docs.statusFor("https://www.example.com/story"))
	assert.Equal(t, 301, docs.statusFor("https://elsewhere.example.com/"))
}

func TestDocumentStatusesWithoutResponses(t *testing.T) {
	t.Parallel()

	docs := newDocumentStatuses()
	assert.Equal(t, http.StatusOK, docs.statusFor("https://example.com/cached"))

	docs.observe(&network.EventResponseReceived{Type: network.ResourceTypeDocument})
	assert.Equal(t, http.StatusOK, docs.statusFor("https://example.com/cached"))
}
