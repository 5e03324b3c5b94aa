package summarizer

import (
	"net/http"
	"time"
)

// ParsedDocument is the normalized text extracted from one fetched article.
type ParsedDocument struct {
	Content   string `json:"content"`
	SourceURL string `json:"source_url"`
	Title     string `json:"title"`
	Domain    string `json:"domain"`
}

// GenerationRequest is a single summarization call.
type GenerationRequest struct {
	Text        string
	Instruction string
}

// DecodingParams controls how the generation engine decodes model output.
type DecodingParams struct {
	MaxInputTokens    int     `mapstructure:"max_input_tokens" json:"max_input_tokens"`
	MaxLength         int     `mapstructure:"max_length" json:"max_length"`
	MinLength         int     `mapstructure:"min_length" json:"min_length"`
	NumBeams          int     `mapstructure:"num_beams" json:"num_beams"`
	LengthPenalty     float64 `mapstructure:"length_penalty" json:"length_penalty"`
	Temperature       float64 `mapstructure:"temperature" json:"temperature"`
	TopP              float64 `mapstructure:"top_p" json:"top_p"`
	TopK              int     `mapstructure:"top_k" json:"top_k"`
	RepetitionPenalty float64 `mapstructure:"repetition_penalty" json:"repetition_penalty"`
	NoRepeatNgramSize int     `mapstructure:"no_repeat_ngram_size" json:"no_repeat_ngram_size"`
	DoSample          bool    `mapstructure:"do_sample" json:"do_sample"`
	EarlyStopping     bool    `mapstructure:"early_stopping" json:"early_stopping"`
}

// LoadSpec describes where a model's artifacts live and how to place them.
type LoadSpec struct {
	ModelID      string
	Dir          string
	Device       string
	Quantization string
	DType        string
}

// FetchRequest captures everything needed to fetch an article URL.
type FetchRequest struct {
	URL     string
	Headers http.Header
}

// FetchResponse holds the raw result of fetching an article.
type FetchResponse struct {
	URL          string
	StatusCode   int
	Headers      http.Header
	Body         []byte
	Duration     time.Duration
	UsedHeadless bool
}

// Record is one persisted summary.
type Record struct {
	ID          string    `json:"id"`
	URL         string    `json:"url"`
	Domain      string    `json:"domain"`
	Title       string    `json:"title"`
	Instruction string    `json:"instruction,omitempty"`
	Summary     string    `json:"summary"`
	ModelID     string    `json:"model_id"`
	CreatedAt   time.Time `json:"created_at"`
	DurationMS  int64     `json:"duration_ms"`
}

// CompletionEvent is published after a summary is produced.
type CompletionEvent struct {
	ID           string    `json:"id"`
	URL          string    `json:"url"`
	Domain       string    `json:"domain"`
	ModelID      string    `json:"model_id"`
	SummaryChars int       `json:"summary_chars"`
	CreatedAt    time.Time `json:"created_at"`
}
