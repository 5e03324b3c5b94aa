// Package openaiengine generates summaries through an OpenAI-compatible
// completions endpoint (vLLM, TGI, llama.cpp server, Ollama) serving the
// synchronized model directory.
package openaiengine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"go.uber.org/zap"

	"github.com/JakeFAU/article-summarizer/internal/engine"
	"github.com/JakeFAU/article-summarizer/internal/summarizer"
)

// Config points the engine at an inference server.
type Config struct {
	BaseURL string
	APIKey  string
	// ServedModel is the name the server exposes; the model ID when empty.
	ServedModel string
	Timeout     time.Duration
}

// Engine implements summarizer.Engine.
type Engine struct {
	cfg    Config
	logger *zap.Logger
}

// New returns an Engine. Nothing is contacted until Load.
func New(cfg Config, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{cfg: cfg, logger: logger.Named("openai_engine")}
}

// Load confirms the artifacts are on disk and that the server is serving the model.
func (e *Engine) Load(ctx context.Context, spec summarizer.LoadSpec) (summarizer.Generator, error) {
	if err := engine.RequireArtifacts(spec.Dir); err != nil {
		return nil, err
	}
	if e.cfg.BaseURL == "" {
		return nil, fmt.Errorf("engine base url is not configured")
	}

	opts := []option.RequestOption{
		option.WithBaseURL(strings.TrimRight(e.cfg.BaseURL, "/") + "/"),
		option.WithMaxRetries(0),
	}
	// Local servers usually ignore the key but the client insists on one.
	apiKey := e.cfg.APIKey
	if apiKey == "" {
		apiKey = "unused"
	}
	opts = append(opts, option.WithAPIKey(apiKey))
	if e.cfg.Timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(e.cfg.Timeout))
	}
	client := openai.NewClient(opts...)

	model := e.cfg.ServedModel
	if model == "" {
		model = spec.ModelID
	}
	if err := servesModel(ctx, client, model); err != nil {
		return nil, err
	}

	e.logger.Info("generation engine ready",
		zap.String("model_id", spec.ModelID),
		zap.String("served_model", model),
		zap.String("dir", spec.Dir),
		zap.String("device", spec.Device),
		zap.String("quantization", spec.Quantization),
		zap.String("dtype", spec.DType),
	)
	return &generator{client: client, model: model}, nil
}

// servesModel lists the server's models; vLLM and TGI expose no per-model lookup.
func servesModel(ctx context.Context, client openai.Client, model string) error {
	page, err := client.Models.List(ctx)
	if err != nil {
		return fmt.Errorf("list served models: %w", err)
	}
	served := make([]string, 0, len(page.Data))
	for _, m := range page.Data {
		if m.ID == model {
			return nil
		}
		served = append(served, m.ID)
	}
	return fmt.Errorf("model %q is not served (available: %s)", model, strings.Join(served, ", "))
}

type generator struct {
	client openai.Client
	model  string
}

// Generate sends one completion request. Parameters without a first-class
// field travel as extra body fields understood by vLLM and TGI.
func (g *generator) Generate(ctx context.Context, prompt string, params summarizer.DecodingParams) (string, error) {
	body := openai.CompletionNewParams{
		Model:  openai.CompletionNewParamsModel(g.model),
		Prompt: openai.CompletionNewParamsPromptUnion{OfString: openai.String(prompt)},
	}
	if params.MaxLength > 0 {
		body.MaxTokens = openai.Int(int64(params.MaxLength))
	}
	temperature := params.Temperature
	if !params.DoSample {
		temperature = 0
	}
	body.Temperature = openai.Float(temperature)
	if params.TopP > 0 {
		body.TopP = openai.Float(params.TopP)
	}
	if params.NumBeams > 1 {
		body.BestOf = openai.Int(int64(params.NumBeams))
	}

	resp, err := g.client.Completions.New(ctx, body, extraFields(params)...)
	if err != nil {
		return "", fmt.Errorf("completion request: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("completion returned no choices")
	}
	return resp.Choices[0].Text, nil
}

func extraFields(params summarizer.DecodingParams) []option.RequestOption {
	opts := []option.RequestOption{
		option.WithJSONSet("min_tokens", params.MinLength),
		option.WithJSONSet("top_k", params.TopK),
		option.WithJSONSet("repetition_penalty", params.RepetitionPenalty),
		option.WithJSONSet("length_penalty", params.LengthPenalty),
		option.WithJSONSet("no_repeat_ngram_size", params.NoRepeatNgramSize),
		option.WithJSONSet("early_stopping", params.EarlyStopping),
		option.WithJSONSet("use_beam_search", params.NumBeams > 1 && !params.DoSample),
	}
	if params.MaxInputTokens > 0 {
		opts = append(opts, option.WithJSONSet("truncate_prompt_tokens", params.MaxInputTokens))
	}
	return opts
}
