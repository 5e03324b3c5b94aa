// Package model owns the lifecycle of the summarization model: artifact sync,
// engine load, and guarded generation.
package model

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/JakeFAU/article-summarizer/internal/format"
	"github.com/JakeFAU/article-summarizer/internal/metrics"
	"github.com/JakeFAU/article-summarizer/internal/summarizer"
	"github.com/JakeFAU/article-summarizer/internal/telemetry"
)

// State is a step of the manager lifecycle.
type State string

// Lifecycle states. Failed is terminal.
const (
	StateUninitialized State = "uninitialized"
	StateSyncing       State = "syncing"
	StateLoaded        State = "loaded"
	StateReady         State = "ready"
	StateFailed        State = "failed"
)

// Syncer makes model artifacts available on local disk.
type Syncer interface {
	EnsureLocal(ctx context.Context, modelID string) (string, error)
}

// Config names the model and how it is placed and decoded.
type Config struct {
	ModelID      string
	Device       string
	Quantization string
	DType        string
	Params       summarizer.DecodingParams
}

// Info is a point-in-time view of the manager for probes and logs.
type Info struct {
	ModelID  string    `json:"model_id"`
	State    State     `json:"state"`
	Dir      string    `json:"dir,omitempty"`
	LoadedAt time.Time `json:"loaded_at,omitempty"`
	Error    string    `json:"error,omitempty"`
}

// Manager syncs and loads the model once and then serves generation calls.
type Manager struct {
	cfg    Config
	syncer Syncer
	engine summarizer.Engine
	logger *zap.Logger

	loadMu sync.Mutex

	mu        sync.RWMutex
	state     State
	dir       string
	loadedAt  time.Time
	loadErr   error
	generator summarizer.Generator
}

// NewManager returns a manager in the uninitialized state.
func NewManager(cfg Config, syncer Syncer, engine summarizer.Engine, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		cfg:    cfg,
		syncer: syncer,
		engine: engine,
		logger: logger.Named("model").With(zap.String("model_id", cfg.ModelID)),
		state:  StateUninitialized,
	}
}

// Load runs artifact sync and engine load. It returns nil once ready and a
// ModelUnavailableError for every call after a failure.
func (m *Manager) Load(ctx context.Context) (err error) {
	m.loadMu.Lock()
	defer m.loadMu.Unlock()

	switch st := m.State(); st {
	case StateReady:
		return nil
	case StateFailed:
		return m.unavailable(st)
	}

	ctx, span := telemetry.StartSpan(ctx, "model.Load", attribute.String("model_id", m.cfg.ModelID))
	defer func() { telemetry.EndSpan(span, err) }()

	start := time.Now()
	m.setState(StateSyncing)
	dir, err := m.syncer.EnsureLocal(ctx, m.cfg.ModelID)
	if err != nil {
		return m.fail(fmt.Errorf("sync artifacts: %w", err))
	}

	gen, err := m.engine.Load(ctx, summarizer.LoadSpec{
		ModelID:      m.cfg.ModelID,
		Dir:          dir,
		Device:       m.cfg.Device,
		Quantization: m.cfg.Quantization,
		DType:        m.cfg.DType,
	})
	if err != nil {
		return m.fail(fmt.Errorf("load engine: %w", err))
	}
	if gen == nil {
		return m.fail(errors.New("load engine: no generator returned"))
	}

	m.mu.Lock()
	m.state = StateLoaded
	m.dir = dir
	m.generator = gen
	m.mu.Unlock()

	m.mu.Lock()
	m.state = StateReady
	m.loadedAt = time.Now().UTC()
	m.mu.Unlock()
	metrics.SetModelReady(true)

	m.logger.Info("model ready", zap.String("dir", dir), zap.Duration("load_duration", time.Since(start)))
	return nil
}

// Generate summarizes req.Text. The manager must be ready.
func (m *Manager) Generate(ctx context.Context, req summarizer.GenerationRequest) (summary string, err error) {
	m.mu.RLock()
	st, gen := m.state, m.generator
	m.mu.RUnlock()
	if st != StateReady {
		return "", m.unavailable(st)
	}

	ctx, span := telemetry.StartSpan(ctx, "model.Generate",
		attribute.String("model_id", m.cfg.ModelID),
		attribute.Int("input_chars", len(req.Text)),
	)
	defer func() { telemetry.EndSpan(span, err) }()

	start := time.Now()
	raw, err := m.invoke(ctx, gen, format.Prompt(req.Text, req.Instruction))
	if err != nil {
		metrics.ObserveGeneration("error", time.Since(start))
		m.logger.Error("generation failed", zap.Error(err))
		return "", &summarizer.SummaryGenerationError{Err: err}
	}

	summary = format.Summary(raw)
	if summary == "" {
		metrics.ObserveGeneration("empty", time.Since(start))
		return "", &summarizer.SummaryGenerationError{Err: errors.New("engine returned an empty summary")}
	}
	metrics.ObserveGeneration("ok", time.Since(start))
	return summary, nil
}

// invoke calls the generator, turning a panic into an error so the manager
// stays ready.
func (m *Manager) invoke(ctx context.Context, gen summarizer.Generator, prompt string) (out string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("engine panic: %v", r)
		}
	}()
	return gen.Generate(ctx, prompt, m.cfg.Params)
}

// State returns the current lifecycle state.
func (m *Manager) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// Ready reports whether Generate can be called.
func (m *Manager) Ready() bool {
	return m.State() == StateReady
}

// ModelID returns the configured model identifier.
func (m *Manager) ModelID() string {
	return m.cfg.ModelID
}

// Info snapshots the manager.
func (m *Manager) Info() Info {
	m.mu.RLock()
	defer m.mu.RUnlock()
	info := Info{
		ModelID:  m.cfg.ModelID,
		State:    m.state,
		Dir:      m.dir,
		LoadedAt: m.loadedAt,
	}
	if m.loadErr != nil {
		info.Error = m.loadErr.Error()
	}
	return info
}

func (m *Manager) setState(st State) {
	m.mu.Lock()
	m.state = st
	m.mu.Unlock()
}

func (m *Manager) fail(err error) error {
	m.mu.Lock()
	m.state = StateFailed
	m.loadErr = err
	m.mu.Unlock()
	metrics.SetModelReady(false)
	m.logger.Error("model load failed", zap.Error(err))
	return m.unavailable(StateFailed)
}

func (m *Manager) unavailable(st State) error {
	m.mu.RLock()
	cause := m.loadErr
	m.mu.RUnlock()
	return &summarizer.ModelUnavailableError{ModelID: m.cfg.ModelID, State: string(st), Err: cause}
}
