package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/JakeFAU/article-summarizer/internal/config"
	"github.com/JakeFAU/article-summarizer/internal/metrics"
	"github.com/JakeFAU/article-summarizer/internal/middleware"
	"github.com/JakeFAU/article-summarizer/internal/model"
	"github.com/JakeFAU/article-summarizer/internal/pipeline"
	"github.com/JakeFAU/article-summarizer/internal/summarizer"
)

const (
	defaultListLimit = 20
	maxListLimit     = 200
	maxBodyBytes     = 1 << 20
)

// Summarizer runs the pipeline and exposes history.
type Summarizer interface {
	Summarize(ctx context.Context, rawURL, instruction string) (pipeline.Result, error)
	Recent(ctx context.Context, limit int) ([]summarizer.Record, error)
}

// ModelStatus reports model readiness.
type ModelStatus interface {
	Info() model.Info
}

// Server wires HTTP handlers to the summarization pipeline.
type Server struct {
	router chi.Router
	svc    Summarizer
	model  ModelStatus
	logger *zap.Logger
}

// NewServer constructs a Server with middleware and routes.
func NewServer(svc Summarizer, status ModelStatus, cfg config.Config, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		svc:    svc,
		model:  status,
		logger: logger.Named("api"),
	}
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logging(s.logger))
	r.Use(middleware.Recover(s.logger))
	r.Use(metrics.Middleware)
	r.Use(middleware.Timeout(cfg.RequestTimeout()))
	if cfg.Auth.Enabled {
		r.Use(middleware.APIKey(cfg.Auth.APIKey, "/healthz", "/readyz", "/metrics", "/api/health"))
	}

	r.Get("/healthz", s.healthz)
	r.Get("/readyz", s.readyz)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.health)
		r.Post("/summarize", s.summarize)
		r.Get("/summaries", s.listSummaries)
	})

	s.router = r
	return s
}

// Handler returns the Router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) readyz(w http.ResponseWriter, _ *http.Request) {
	if s.model == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not ready"})
		return
	}
	info := s.model.Info()
	status := http.StatusOK
	if info.State != model.StateReady {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, info)
}

type summarizeRequest struct {
	URL          string `json:"url"`
	CustomPrompt string `json:"custom_prompt"`
}

type summarizeResponse struct {
	URL     string `json:"url"`
	Summary string `json:"summary"`
}

func (s *Server) summarize(w http.ResponseWriter, r *http.Request) {
	var req summarizeRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	req.URL = strings.TrimSpace(req.URL)
	if err := validateURL(req.URL); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	res, err := s.svc.Summarize(r.Context(), req.URL, req.CustomPrompt)
	if err != nil {
		status := statusFor(err)
		s.logger.Warn("summarize failed",
			zap.String("request_id", middleware.GetRequestID(r.Context())),
			zap.String("url", req.URL),
			zap.Int("status", status),
			zap.Error(err),
		)
		writeError(w, status, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, summarizeResponse{URL: req.URL, Summary: res.Summary})
}

func (s *Server) listSummaries(w http.ResponseWriter, r *http.Request) {
	limit := defaultListLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, maxListLimit)
	}
	records, err := s.svc.Recent(r.Context(), limit)
	if err != nil {
		s.logger.Error("list summaries failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to list summaries")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"summaries": records})
}

func validateURL(raw string) error {
	if raw == "" {
		return errors.New("url is required")
	}
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return errors.New("url must be an absolute http(s) URL")
	}
	return nil
}

// statusFor maps pipeline errors onto HTTP status codes.
func statusFor(err error) int {
	var modelErr *summarizer.ModelUnavailableError
	if errors.As(err, &modelErr) {
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
