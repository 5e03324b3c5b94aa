// Package pipeline runs one summarization end to end: load the article,
// generate the summary, then record and announce it.
package pipeline

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/JakeFAU/article-summarizer/internal/clock/system"
	"github.com/JakeFAU/article-summarizer/internal/id/uuid"
	"github.com/JakeFAU/article-summarizer/internal/metrics"
	"github.com/JakeFAU/article-summarizer/internal/summarizer"
	"github.com/JakeFAU/article-summarizer/internal/telemetry"
)

// DocumentLoader fetches and parses an article URL.
type DocumentLoader interface {
	Load(ctx context.Context, rawURL string) (summarizer.ParsedDocument, error)
}

// Model generates summaries.
type Model interface {
	Generate(ctx context.Context, req summarizer.GenerationRequest) (string, error)
	ModelID() string
}

// Result is what callers get back from Summarize.
type Result struct {
	ID         string `json:"id,omitempty"`
	URL        string `json:"url"`
	Title      string `json:"title"`
	Domain     string `json:"domain"`
	Summary    string `json:"summary"`
	SourceText string `json:"source_text"`
}

// Options carries the optional collaborators of a Service.
type Options struct {
	History   summarizer.HistoryStore
	Publisher summarizer.Publisher
	Topic     string
	IDs       summarizer.IDGenerator
	Clock     summarizer.Clock
	Logger    *zap.Logger
}

// Service wires the loader and model together.
type Service struct {
	loader    DocumentLoader
	model     Model
	history   summarizer.HistoryStore
	publisher summarizer.Publisher
	topic     string
	ids       summarizer.IDGenerator
	clock     summarizer.Clock
	logger    *zap.Logger
}

// New builds a Service. History and publishing are skipped when unset.
func New(loader DocumentLoader, model Model, opts Options) *Service {
	s := &Service{
		loader:    loader,
		model:     model,
		history:   opts.History,
		publisher: opts.Publisher,
		topic:     opts.Topic,
		ids:       opts.IDs,
		clock:     opts.Clock,
		logger:    opts.Logger,
	}
	if s.ids == nil {
		s.ids = uuid.NewUUIDGenerator()
	}
	if s.clock == nil {
		s.clock = system.New()
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	s.logger = s.logger.Named("pipeline")
	return s
}

// Summarize loads rawURL and summarizes it. Loader and model errors are
// returned unchanged so callers can match them with errors.As.
func (s *Service) Summarize(ctx context.Context, rawURL, instruction string) (res Result, err error) {
	ctx, span := telemetry.StartSpan(ctx, "pipeline.Summarize", attribute.String("url", rawURL))
	defer func() {
		telemetry.EndSpan(span, err)
		metrics.ObserveSummarize(outcome(err))
	}()

	start := s.clock.Now()
	doc, err := s.loader.Load(ctx, rawURL)
	if err != nil {
		return Result{}, err
	}
	summary, err := s.model.Generate(ctx, summarizer.GenerationRequest{Text: doc.Content, Instruction: instruction})
	if err != nil {
		return Result{}, err
	}

	res = Result{
		URL:        doc.SourceURL,
		Title:      doc.Title,
		Domain:     doc.Domain,
		Summary:    summary,
		SourceText: doc.Content,
	}
	res.ID = s.record(ctx, res, instruction, start)

	s.logger.Info("article summarized",
		zap.String("url", rawURL),
		zap.String("domain", doc.Domain),
		zap.Int("source_chars", len(doc.Content)),
		zap.Int("summary_chars", len(summary)),
	)
	return res, nil
}

// record writes history and publishes the completion event. Failures are
// logged and counted, never returned.
func (s *Service) record(ctx context.Context, res Result, instruction string, start time.Time) string {
	if s.history == nil && s.publisher == nil {
		return ""
	}
	id, err := s.ids.NewID()
	if err != nil {
		metrics.ObserveBestEffortFailure("record_id")
		s.logger.Warn("record id generation failed", zap.Error(err))
		return ""
	}
	now := s.clock.Now()

	if s.history != nil {
		rec := summarizer.Record{
			ID:          id,
			URL:         res.URL,
			Domain:      res.Domain,
			Title:       res.Title,
			Instruction: instruction,
			Summary:     res.Summary,
			ModelID:     s.model.ModelID(),
			CreatedAt:   now,
			DurationMS:  now.Sub(start).Milliseconds(),
		}
		if err := s.history.Save(ctx, rec); err != nil {
			metrics.ObserveBestEffortFailure("history")
			s.logger.Error("history write failed", zap.String("id", id), zap.Error(err))
		}
	}

	if s.publisher != nil {
		event := summarizer.CompletionEvent{
			ID:           id,
			URL:          res.URL,
			Domain:       res.Domain,
			ModelID:      s.model.ModelID(),
			SummaryChars: len(res.Summary),
			CreatedAt:    now,
		}
		if msgID, err := s.publisher.Publish(ctx, s.topic, event); err != nil {
			metrics.ObserveBestEffortFailure("publish")
			s.logger.Warn("completion event publish failed", zap.String("id", id), zap.Error(err))
		} else {
			s.logger.Debug("completion event published", zap.String("id", id), zap.String("message_id", msgID))
		}
	}
	return id
}

// Recent lists stored summaries, newest first.
func (s *Service) Recent(ctx context.Context, limit int) ([]summarizer.Record, error) {
	if s.history == nil {
		return []summarizer.Record{}, nil
	}
	return s.history.Recent(ctx, limit)
}

func outcome(err error) string {
	var (
		fetchErr     *summarizer.FetchError
		noContentErr *summarizer.NoContentExtractedError
		modelErr     *summarizer.ModelUnavailableError
		genErr       *summarizer.SummaryGenerationError
	)
	switch {
	case err == nil:
		return "ok"
	case errors.As(err, &fetchErr):
		return "fetch_error"
	case errors.As(err, &noContentErr):
		return "no_content"
	case errors.As(err, &modelErr):
		return "model_unavailable"
	case errors.As(err, &genErr):
		return "generation_error"
	default:
		return "error"
	}
}
