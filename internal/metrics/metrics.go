// Package metrics exposes Prometheus collectors for the summarizer service.
package metrics

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	summarizeRequestsTotal     *prometheus.CounterVec
	articleFetchesTotal        *prometheus.CounterVec
	articleBytesTotal          *prometheus.CounterVec
	generationDurationSeconds  *prometheus.HistogramVec
	artifactSyncTotal          *prometheus.CounterVec
	bestEffortFailuresTotal    *prometheus.CounterVec
	modelReady                 prometheus.Gauge
	httpRequestsTotal          *prometheus.CounterVec
	httpRequestDurationSeconds *prometheus.HistogramVec

	once sync.Once
)

// Init registers the collectors with the default registry.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		summarizeRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "summarizer_requests_total",
				Help: "Total summarization requests, labeled by outcome.",
			},
			[]string{"outcome"},
		)

		articleFetchesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "summarizer_article_fetches_total",
				Help: "Total article fetches, labeled by site and status.",
			},
			[]string{"site", "status"},
		)

		articleBytesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "summarizer_article_bytes_total",
				Help: "Total article bytes fetched, labeled by site.",
			},
			[]string{"site"},
		)

		generationDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "summarizer_generation_duration_seconds",
				Help:    "Histogram of summary generation latency, labeled by outcome.",
				Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 30, 60, 120},
			},
			[]string{"outcome"},
		)

		artifactSyncTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "summarizer_artifact_sync_total",
				Help: "Total artifact sync attempts, labeled by tier and outcome.",
			},
			[]string{"tier", "outcome"},
		)

		bestEffortFailuresTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "summarizer_best_effort_failures_total",
				Help: "Failures of non-fatal steps such as mirror uploads, history writes, and event publishes.",
			},
			[]string{"step"},
		)

		modelReady = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "summarizer_model_ready",
				Help: "1 when the model manager is ready to serve, 0 otherwise.",
			},
		)

		httpRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests, labeled by method and code.",
			},
			[]string{"method", "code"},
		)

		httpRequestDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Histogram of HTTP request latencies, labeled by method and route.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 15, 60},
			},
			[]string{"method", "route"},
		)
	})
}

// SanitizeSite reduces a URL to its lowercase hostname.
// It returns "unknown" if the URL is invalid.
func SanitizeSite(rawURL string) string {
	if !strings.HasPrefix(rawURL, "http") {
		rawURL = "http://" + rawURL
	}
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return "unknown"
	}
	return strings.ToLower(u.Hostname())
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	Init()
	return promhttp.Handler()
}

// ObserveSummarize counts a finished summarization by outcome.
func ObserveSummarize(outcome string) {
	Init()
	summarizeRequestsTotal.WithLabelValues(outcome).Inc()
}

// ObserveFetch records an article fetch. status is the HTTP code or "error".
func ObserveFetch(site, status string, bytesFetched int) {
	Init()
	sanitizedSite := SanitizeSite(site)
	articleFetchesTotal.WithLabelValues(sanitizedSite, status).Inc()
	if bytesFetched > 0 {
		articleBytesTotal.WithLabelValues(sanitizedSite).Add(float64(bytesFetched))
	}
}

// ObserveGeneration records how long the engine took to produce a summary.
func ObserveGeneration(outcome string, duration time.Duration) {
	Init()
	generationDurationSeconds.WithLabelValues(outcome).Observe(duration.Seconds())
}

// ObserveArtifactSync counts a sync attempt for the tier that resolved it.
func ObserveArtifactSync(tier, outcome string) {
	Init()
	artifactSyncTotal.WithLabelValues(tier, outcome).Inc()
}

// ObserveBestEffortFailure counts a swallowed failure of a non-fatal step.
func ObserveBestEffortFailure(step string) {
	Init()
	bestEffortFailuresTotal.WithLabelValues(step).Inc()
}

// SetModelReady flips the readiness gauge.
func SetModelReady(ready bool) {
	Init()
	if ready {
		modelReady.Set(1)
		return
	}
	modelReady.Set(0)
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	Init()
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}
