// Package server is the composition root: it turns a Config into a wired
// summarization pipeline and runs the API or UI HTTP servers on top of it.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"cloud.google.com/go/storage"
	"go.uber.org/zap"

	"github.com/JakeFAU/article-summarizer/internal/api"
	"github.com/JakeFAU/article-summarizer/internal/artifact"
	"github.com/JakeFAU/article-summarizer/internal/artifact/hub"
	"github.com/JakeFAU/article-summarizer/internal/clock/system"
	"github.com/JakeFAU/article-summarizer/internal/config"
	"github.com/JakeFAU/article-summarizer/internal/engine/lead"
	openaiengine "github.com/JakeFAU/article-summarizer/internal/engine/openai"
	"github.com/JakeFAU/article-summarizer/internal/extract"
	collyfetcher "github.com/JakeFAU/article-summarizer/internal/fetcher/colly"
	headlessfetcher "github.com/JakeFAU/article-summarizer/internal/fetcher/headless"
	historymemory "github.com/JakeFAU/article-summarizer/internal/history/memory"
	historypg "github.com/JakeFAU/article-summarizer/internal/history/postgres"
	"github.com/JakeFAU/article-summarizer/internal/id/uuid"
	"github.com/JakeFAU/article-summarizer/internal/loader"
	"github.com/JakeFAU/article-summarizer/internal/logging"
	"github.com/JakeFAU/article-summarizer/internal/metrics"
	"github.com/JakeFAU/article-summarizer/internal/model"
	"github.com/JakeFAU/article-summarizer/internal/pipeline"
	memorypublisher "github.com/JakeFAU/article-summarizer/internal/publisher/memory"
	gcppublisher "github.com/JakeFAU/article-summarizer/internal/publisher/pubsub"
	gcsstorage "github.com/JakeFAU/article-summarizer/internal/storage/gcs"
	localstorage "github.com/JakeFAU/article-summarizer/internal/storage/local"
	memorystorage "github.com/JakeFAU/article-summarizer/internal/storage/memory"
	s3store "github.com/JakeFAU/article-summarizer/internal/storage/s3"
	"github.com/JakeFAU/article-summarizer/internal/summarizer"
	"github.com/JakeFAU/article-summarizer/internal/telemetry"
	"github.com/JakeFAU/article-summarizer/internal/ui"
)

const shutdownTimeout = 10 * time.Second

// App contains the application's dependencies.
type App struct {
	cfg      *config.Config
	logger   *zap.Logger
	syncer   *artifact.Syncer
	models   *model.Provider
	manager  *model.Manager
	pipeline *pipeline.Service

	headless       *headlessfetcher.Fetcher
	gcsClient      *storage.Client
	historyStore   *historypg.Store
	pubsub         *gcppublisher.Publisher
	tracerShutdown func(context.Context) error
}

// Build creates the application's dependencies. Nothing is synced or loaded
// until LoadModel.
func Build(ctx context.Context, cfg *config.Config) (*App, error) {
	logger, err := logging.NewWithLevel(cfg.Logging.Development, cfg.Logging.Level)
	if err != nil {
		return nil, fmt.Errorf("logger init failed: %w", err)
	}
	zap.ReplaceGlobals(logger)
	return BuildWithLogger(ctx, cfg, logger)
}

// BuildWithLogger is Build with a caller-supplied logger.
func BuildWithLogger(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	app := &App{cfg: cfg, logger: logger}
	app.logger.Info("building application dependencies",
		zap.String("model_id", cfg.Model.ID),
		zap.String("engine", cfg.Engine.Backend),
		zap.String("fetch_mode", cfg.Fetch.Mode),
		zap.String("artifact_backend", cfg.Artifact.Backend),
		zap.String("history_backend", cfg.History.Backend),
	)

	tp, err := telemetry.InitTracerProvider(ctx, cfg.Telemetry.ServiceName)
	if err != nil {
		return nil, fmt.Errorf("tracer init failed: %w", err)
	}
	app.tracerShutdown = tp.Shutdown
	metrics.Init()

	fetcher, err := app.setupFetcher()
	if err != nil {
		app.Close(ctx)
		return nil, err
	}
	docs := loader.New(fetcher, extract.NewDefaultRegistry(), logger)

	store, err := app.setupStorage(ctx)
	if err != nil {
		app.Close(ctx)
		return nil, err
	}
	origin := hub.New(hub.Config{
		BaseURL:  cfg.Model.OriginBaseURL,
		Revision: cfg.Model.Revision,
		Token:    cfg.Model.HFToken,
		Patterns: cfg.Model.OriginPatterns,
	}, logger)
	app.syncer = artifact.New(artifact.Config{
		LocalDir:     cfg.Model.LocalDir,
		Prefix:       cfg.Artifact.Prefix,
		VerifyRemote: cfg.Artifact.VerifyRemote,
	}, store, origin, logger)

	engine := app.setupEngine()
	app.models = model.NewProvider(func() (*model.Manager, error) {
		return model.NewManager(model.Config{
			ModelID:      cfg.Model.ID,
			Device:       cfg.Model.Device,
			Quantization: cfg.Model.Quantization,
			DType:        cfg.Model.DType,
			Params:       cfg.Decoding,
		}, app.syncer, engine, logger), nil
	})

	history, err := app.setupHistory(ctx)
	if err != nil {
		app.Close(ctx)
		return nil, err
	}
	publisher, err := app.setupPublisher(ctx)
	if err != nil {
		app.Close(ctx)
		return nil, err
	}

	app.manager, err = app.models.Manager()
	if err != nil {
		app.Close(ctx)
		return nil, fmt.Errorf("model manager init failed: %w", err)
	}
	app.pipeline = pipeline.New(docs, app.manager, pipeline.Options{
		History:   history,
		Publisher: publisher,
		Topic:     cfg.PubSub.TopicName,
		IDs:       uuid.NewUUIDGenerator(),
		Clock:     system.New(),
		Logger:    logger,
	})
	return app, nil
}

// Syncer exposes artifact sync for the sync command.
func (a *App) Syncer() *artifact.Syncer {
	return a.syncer
}

// Pipeline exposes the summarization service.
func (a *App) Pipeline() *pipeline.Service {
	return a.pipeline
}

// Manager exposes the model manager.
func (a *App) Manager() *model.Manager {
	return a.manager
}

// LoadModel syncs and loads the model. With server.fail_on_model_error off, a
// failure is logged and the process keeps serving with a failed manager.
func (a *App) LoadModel(ctx context.Context) error {
	_, err := a.models.Get(ctx)
	if err == nil {
		return nil
	}
	if a.cfg.Server.FailOnModelError {
		return fmt.Errorf("model load failed: %w", err)
	}
	a.logger.Error("model load failed, serving without a model", zap.Error(err))
	return nil
}

// RunAPI loads the model and serves the JSON API until ctx is canceled or
// SIGINT/SIGTERM arrives.
func (a *App) RunAPI(ctx context.Context) error {
	if err := a.LoadModel(ctx); err != nil {
		return err
	}
	srv := api.NewServer(a.pipeline, a.manager, *a.cfg, a.logger)
	return a.serve(ctx, "api", a.cfg.Server.APIPort, srv.Handler())
}

// RunUI loads the model and serves the HTML front end.
func (a *App) RunUI(ctx context.Context) error {
	if err := a.LoadModel(ctx); err != nil {
		return err
	}
	srv := ui.NewServer(a.pipeline, a.manager, *a.cfg, a.logger)
	return a.serve(ctx, "ui", a.cfg.Server.UIPort, srv.Handler())
}

func (a *App) serve(ctx context.Context, name string, port int, handler http.Handler) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("http server started", zap.String("server", name), zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			stop()
		}
	}()

	<-ctx.Done()
	a.logger.Info("shutdown initiated", zap.String("server", name))

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("server shutdown error", zap.Error(err))
	}
	a.Close(shutdownCtx)

	select {
	case err := <-errCh:
		return fmt.Errorf("%s server: %w", name, err)
	default:
		return nil
	}
}

// Close releases every client the App opened. It is safe to call more than once.
func (a *App) Close(ctx context.Context) {
	if a.headless != nil {
		if err := a.headless.Close(); err != nil {
			a.logger.Warn("headless fetcher close failed", zap.Error(err))
		}
		a.headless = nil
	}
	if a.pubsub != nil {
		if err := a.pubsub.Close(); err != nil {
			a.logger.Warn("pubsub client close failed", zap.Error(err))
		}
		a.pubsub = nil
	}
	if a.gcsClient != nil {
		if err := a.gcsClient.Close(); err != nil {
			a.logger.Warn("gcs client close failed", zap.Error(err))
		}
		a.gcsClient = nil
	}
	if a.historyStore != nil {
		a.historyStore.Close()
		a.historyStore = nil
	}
	if a.tracerShutdown != nil {
		if err := a.tracerShutdown(ctx); err != nil {
			a.logger.Warn("tracer shutdown failed", zap.Error(err))
		}
		a.tracerShutdown = nil
	}
	_ = a.logger.Sync()
}

func (a *App) setupFetcher() (summarizer.Fetcher, error) {
	cfg := a.cfg.Fetch
	if cfg.Mode == config.FetchModeHeadless {
		f, err := headlessfetcher.NewChromedp(headlessfetcher.Config{
			MaxParallel:       cfg.HeadlessMaxParallel,
			UserAgent:         cfg.UserAgent,
			NavigationTimeout: time.Duration(cfg.HeadlessNavTimeoutSeconds) * time.Second,
		})
		if err != nil {
			return nil, fmt.Errorf("headless fetcher init failed: %w", err)
		}
		a.headless = f
		a.logger.Info("using headless fetcher", zap.Int("max_parallel", cfg.HeadlessMaxParallel))
		return f, nil
	}
	a.logger.Info("using colly fetcher", zap.String("user_agent", cfg.UserAgent))
	return collyfetcher.New(collyfetcher.Config{
		UserAgent: cfg.UserAgent,
		Timeout:   a.cfg.FetchTimeout(),
	}), nil
}

func (a *App) setupStorage(ctx context.Context) (summarizer.ObjectStore, error) {
	cfg := a.cfg.Artifact
	switch cfg.Backend {
	case config.BackendS3:
		client, err := s3store.NewClient(ctx, s3store.Config{
			Bucket:          cfg.Bucket,
			Region:          cfg.Region,
			AccessKeyID:     cfg.AccessKeyID,
			SecretAccessKey: cfg.SecretAccessKey,
			Endpoint:        cfg.Endpoint,
		})
		if err != nil {
			return nil, fmt.Errorf("s3 client init failed: %w", err)
		}
		store, err := s3store.New(client, cfg.Bucket)
		if err != nil {
			return nil, fmt.Errorf("s3 blob store init failed: %w", err)
		}
		a.logger.Info("using S3 artifact mirror", zap.String("bucket", cfg.Bucket), zap.String("endpoint", cfg.Endpoint))
		return store, nil
	case config.BackendGCS:
		gcsCfg := gcsstorage.Config{Bucket: cfg.Bucket, CredentialsFile: cfg.CredentialsFile}
		client, err := gcsstorage.NewClient(ctx, gcsCfg)
		if err != nil {
			return nil, fmt.Errorf("gcs client init failed: %w", err)
		}
		a.gcsClient = client
		store, err := gcsstorage.New(client, gcsCfg)
		if err != nil {
			return nil, fmt.Errorf("gcs blob store init failed: %w", err)
		}
		a.logger.Info("using GCS artifact mirror", zap.String("bucket", cfg.Bucket))
		return store, nil
	case config.BackendLocal:
		store, err := localstorage.New(localstorage.Config{BaseDir: cfg.LocalRoot})
		if err != nil {
			return nil, fmt.Errorf("local blob store init failed: %w", err)
		}
		a.logger.Info("using local artifact mirror", zap.String("path", cfg.LocalRoot))
		return store, nil
	case config.BackendMemory:
		a.logger.Info("using in-memory artifact mirror")
		return memorystorage.NewBlobStore(), nil
	default:
		a.logger.Info("no artifact mirror configured")
		return nil, nil
	}
}

func (a *App) setupEngine() summarizer.Engine {
	if a.cfg.Engine.Backend == config.EngineLead {
		a.logger.Info("using extractive lead engine", zap.Int("sentences", a.cfg.Engine.LeadSentences))
		return lead.New(a.cfg.Engine.LeadSentences)
	}
	a.logger.Info("using openai-compatible engine",
		zap.String("base_url", a.cfg.Engine.BaseURL),
		zap.String("served_model", a.cfg.ServedModel()),
	)
	return openaiengine.New(openaiengine.Config{
		BaseURL:     a.cfg.Engine.BaseURL,
		APIKey:      a.cfg.Engine.APIKey,
		ServedModel: a.cfg.ServedModel(),
		Timeout:     a.cfg.EngineTimeout(),
	}, a.logger)
}

func (a *App) setupHistory(ctx context.Context) (summarizer.HistoryStore, error) {
	cfg := a.cfg.History
	switch cfg.Backend {
	case config.BackendPostgres:
		store, err := historypg.New(ctx, historypg.Config{
			DSN:      cfg.DSN,
			Table:    cfg.Table,
			MaxConns: cfg.MaxConns,
		})
		if err != nil {
			return nil, fmt.Errorf("history store init failed: %w", err)
		}
		a.historyStore = store
		if err := store.EnsureSchema(ctx); err != nil {
			return nil, fmt.Errorf("history schema init failed: %w", err)
		}
		a.logger.Info("postgres history initialized", zap.String("table", cfg.Table))
		return store, nil
	case config.BackendMemory:
		a.logger.Info("in-memory history initialized", zap.Int("capacity", cfg.Capacity))
		return historymemory.New(cfg.Capacity), nil
	default:
		a.logger.Info("summary history disabled")
		return nil, nil
	}
}

func (a *App) setupPublisher(ctx context.Context) (summarizer.Publisher, error) {
	cfg := a.cfg.PubSub
	if cfg.TopicName == "" || cfg.ProjectID == "" {
		a.logger.Warn("No Pub/Sub topic configured, keeping recent events in memory",
			zap.Int("capacity", memorypublisher.DefaultCapacity))
		return memorypublisher.New(), nil
	}
	client, err := gcppublisher.NewClient(ctx, cfg.ProjectID)
	if err != nil {
		return nil, err
	}
	a.pubsub = gcppublisher.New(client, cfg.TopicName)
	a.logger.Info("Pub/Sub publisher initialized",
		zap.String("project", cfg.ProjectID),
		zap.String("topic", cfg.TopicName),
	)
	return a.pubsub, nil
}
