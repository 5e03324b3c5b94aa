// Package ui serves the interactive HTML front end: a form that takes an
// article URL and an optional instruction and renders the summary.
package ui

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
	"mvdan.cc/xurls/v2"

	"github.com/JakeFAU/article-summarizer/internal/config"
	"github.com/JakeFAU/article-summarizer/internal/metrics"
	"github.com/JakeFAU/article-summarizer/internal/middleware"
	"github.com/JakeFAU/article-summarizer/internal/model"
	"github.com/JakeFAU/article-summarizer/internal/pipeline"
	"github.com/JakeFAU/article-summarizer/internal/summarizer"
)

const maxFormBytes = 1 << 20

// Summarizer runs the pipeline.
type Summarizer interface {
	Summarize(ctx context.Context, rawURL, instruction string) (pipeline.Result, error)
}

// ModelStatus reports model readiness.
type ModelStatus interface {
	Info() model.Info
}

type viewError struct {
	Kind    string
	Message string
}

type view struct {
	Input       string
	Instruction string
	Ready       bool
	ModelState  model.State
	Result      *pipeline.Result
	Error       *viewError
}

// Server renders the form and runs summaries synchronously.
type Server struct {
	router chi.Router
	svc    Summarizer
	model  ModelStatus
	logger *zap.Logger
}

// NewServer constructs the UI server.
func NewServer(svc Summarizer, status ModelStatus, cfg config.Config, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{svc: svc, model: status, logger: logger.Named("ui")}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logging(s.logger))
	r.Use(middleware.Recover(s.logger))
	r.Use(metrics.Middleware)
	r.Use(middleware.Timeout(cfg.RequestTimeout()))

	r.Get("/", s.form)
	r.Post("/", s.submit)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	})
	s.router = r
	return s
}

// Handler returns the Router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) form(w http.ResponseWriter, _ *http.Request) {
	s.render(w, http.StatusOK, s.baseView())
}

func (s *Server) submit(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
	v := s.baseView()
	if err := r.ParseForm(); err != nil {
		v.Error = &viewError{Kind: "InvalidInput", Message: "could not read the form"}
		s.render(w, http.StatusBadRequest, v)
		return
	}
	v.Input = r.PostFormValue("url")
	v.Instruction = strings.TrimSpace(r.PostFormValue("prompt"))

	target := ExtractURL(v.Input)
	if target == "" {
		v.Error = &viewError{Kind: "InvalidInput", Message: "enter an http(s) article URL"}
		s.render(w, http.StatusBadRequest, v)
		return
	}

	res, err := s.svc.Summarize(r.Context(), target, v.Instruction)
	if err != nil {
		s.logger.Warn("summarize failed",
			zap.String("request_id", middleware.GetRequestID(r.Context())),
			zap.String("url", target),
			zap.Error(err),
		)
		v.Error = &viewError{Kind: ErrorKind(err), Message: err.Error()}
		s.render(w, statusFor(err), v)
		return
	}
	v.Result = &res
	s.render(w, http.StatusOK, v)
}

func (s *Server) baseView() view {
	v := view{ModelState: model.StateUninitialized}
	if s.model != nil {
		info := s.model.Info()
		v.ModelState = info.State
		v.Ready = info.State == model.StateReady
	}
	return v
}

func (s *Server) render(w http.ResponseWriter, status int, v view) {
	var buf bytes.Buffer
	if err := page.Execute(&buf, v); err != nil {
		s.logger.Error("render page failed", zap.Error(err))
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}

var urlPattern = xurls.Strict()

// ExtractURL returns the first http(s) URL in free text, or "".
func ExtractURL(text string) string {
	for _, candidate := range urlPattern.FindAllString(text, -1) {
		lower := strings.ToLower(candidate)
		if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") {
			return candidate
		}
	}
	return ""
}

// statusFor is 503 while the model is unavailable and 500 for every other
// summarization failure.
func statusFor(err error) int {
	var modelErr *summarizer.ModelUnavailableError
	if errors.As(err, &modelErr) {
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// ErrorKind names the failure class shown to the user.
func ErrorKind(err error) string {
	var (
		fetchErr     *summarizer.FetchError
		noContentErr *summarizer.NoContentExtractedError
		modelErr     *summarizer.ModelUnavailableError
		genErr       *summarizer.SummaryGenerationError
	)
	switch {
	case errors.As(err, &fetchErr):
		return "FetchError"
	case errors.As(err, &noContentErr):
		return "NoContentExtracted"
	case errors.As(err, &modelErr):
		return "ModelUnavailable"
	case errors.As(err, &genErr):
		return "SummaryGenerationError"
	case errors.Is(err, context.DeadlineExceeded):
		return "Timeout"
	default:
		return "Error"
	}
}
