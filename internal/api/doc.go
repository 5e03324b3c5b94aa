// Package api hosts the JSON HTTP interface of the summarizer. Notable routes:
//   - POST /api/summarize summarizes one article URL.
//   - GET /api/summaries lists recent summaries.
//   - GET /api/health, /healthz, and /readyz for probes.
//   - GET /metrics for Prometheus scraping.
package api
