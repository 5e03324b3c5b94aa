package ui

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/JakeFAU/article-summarizer/internal/config"
	"github.com/JakeFAU/article-summarizer/internal/model"
	"github.com/JakeFAU/article-summarizer/internal/pipeline"
	"github.com/JakeFAU/article-summarizer/internal/summarizer"
)

type fakeSummarizer struct {
	res    pipeline.Result
	err    error
	gotURL string
}

func (f *fakeSummarizer) Summarize(_ context.Context, rawURL, _ string) (pipeline.Result, error) {
	f.gotURL = rawURL
	return f.res, f.err
}

type fakeStatus struct{ state model.State }

func (f fakeStatus) Info() model.Info { return model.Info{State: f.state} }

func submit(t *testing.T, srv *Server, form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func TestFormRenders(t *testing.T) {
	t.Parallel()

	srv := NewServer(&fakeSummarizer{}, fakeStatus{state: model.StateSyncing}, config.Config{}, zap.NewNop())
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rec.Body.String(), `<form method="post" action="/">`)
	assert.Contains(t, rec.Body.String(), "Model is not ready (syncing)")
}

func TestSubmitRendersSummaryAndSource(t *testing.T) {
	t.Parallel()

	svc := &fakeSummarizer{res: pipeline.Result{
		URL:        "https://www.asiaone.com/a",
		Title:      "Rates <held>",
		Summary:    "The bank held rates.",
		SourceText: "Full article body.",
	}}
	srv := NewServer(svc, fakeStatus{state: model.StateReady}, config.Config{}, zap.NewNop())

	rec := submit(t, srv, url.Values{"url": {"read this: https://www.asiaone.com/a please"}})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "https://www.asiaone.com/a", svc.gotURL)
	body := rec.Body.String()
	assert.Contains(t, body, "The bank held rates.")
	assert.Contains(t, body, "<details>")
	assert.Contains(t, body, "Full article body.")
	assert.Contains(t, body, "Rates &lt;held&gt;")
	assert.NotContains(t, body, "Model is not ready")
}

func TestSubmitShowsErrorKind(t *testing.T) {
	t.Parallel()

	svc := &fakeSummarizer{err: &summarizer.FetchError{URL: "https://example.com/a", StatusCode: 404}}
	srv := NewServer(svc, fakeStatus{state: model.StateReady}, config.Config{}, zap.NewNop())

	rec := submit(t, srv, url.Values{"url": {"https://example.com/a"}})
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "<strong>FetchError</strong>")
	assert.Contains(t, rec.Body.String(), "status 404")
}

func TestSubmitFailureStatus(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		err    error
		status int
		kind   string
	}{
		{"no content", &summarizer.NoContentExtractedError{URL: "https://example.com/a"}, http.StatusInternalServerError, "NoContentExtracted"},
		{"generation", &summarizer.SummaryGenerationError{Err: errors.New("engine crashed")}, http.StatusInternalServerError, "SummaryGenerationError"},
		{"model unavailable", &summarizer.ModelUnavailableError{State: "failed"}, http.StatusServiceUnavailable, "ModelUnavailable"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			srv := NewServer(&fakeSummarizer{err: tc.err}, fakeStatus{state: model.StateReady}, config.Config{}, zap.NewNop())

			rec := submit(t, srv, url.Values{"url": {"https://example.com/a"}})
			assert.Equal(t, tc.status, rec.Code)
			assert.Contains(t, rec.Body.String(), "<strong>"+tc.kind+"</strong>")
		})
	}
}

func TestSubmitWithoutURL(t *testing.T) {
	t.Parallel()

	svc := &fakeSummarizer{}
	srv := NewServer(svc, fakeStatus{state: model.StateReady}, config.Config{}, zap.NewNop())

	rec := submit(t, srv, url.Values{"url": {"no link here"}})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "InvalidInput")
	assert.Empty(t, svc.gotURL)
}

func TestExtractURL(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "https://example.com/a?b=1", ExtractURL("see https://example.com/a?b=1."))
	assert.Equal(t, "http://example.com", ExtractURL("mailto:x@y.z then http://example.com"))
	assert.Empty(t, ExtractURL("example.com without scheme"))
	assert.Empty(t, ExtractURL(""))
}

func TestErrorKind(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "NoContentExtracted", ErrorKind(&summarizer.NoContentExtractedError{}))
	assert.Equal(t, "ModelUnavailable", ErrorKind(&summarizer.ModelUnavailableError{}))
	assert.Equal(t, "SummaryGenerationError", ErrorKind(&summarizer.SummaryGenerationError{}))
	assert.Equal(t, "Timeout", ErrorKind(context.DeadlineExceeded))
	assert.Equal(t, "Error", ErrorKind(errors.New("x")))
}
