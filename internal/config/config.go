// Package config loads and validates summarizer configuration via Viper.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/JakeFAU/article-summarizer/internal/summarizer"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server    ServerConfig              `mapstructure:"server"`
	Auth      AuthConfig                `mapstructure:"auth"`
	Logging   LoggingConfig             `mapstructure:"logging"`
	Fetch     FetchConfig               `mapstructure:"fetch"`
	Model     ModelConfig               `mapstructure:"model"`
	Decoding  summarizer.DecodingParams `mapstructure:"decoding"`
	Engine    EngineConfig              `mapstructure:"engine"`
	Artifact  ArtifactConfig            `mapstructure:"artifact"`
	History   HistoryConfig             `mapstructure:"history"`
	PubSub    PubSubConfig              `mapstructure:"pubsub"`
	Telemetry TelemetryConfig           `mapstructure:"telemetry"`
}

// ServerConfig controls the API and UI HTTP servers.
type ServerConfig struct {
	APIPort               int  `mapstructure:"api_port"`
	UIPort                int  `mapstructure:"ui_port"`
	RequestTimeoutSeconds int  `mapstructure:"request_timeout_seconds"`
	FailOnModelError      bool `mapstructure:"fail_on_model_error"`
}

// AuthConfig defines API authentication toggles.
type AuthConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	APIKey  string `mapstructure:"api_key"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool   `mapstructure:"development"`
	Level       string `mapstructure:"level"`
}

// FetchConfig selects and tunes the article fetcher.
type FetchConfig struct {
	Mode                      string `mapstructure:"mode"`
	UserAgent                 string `mapstructure:"user_agent"`
	TimeoutSeconds            int    `mapstructure:"timeout_seconds"`
	HeadlessMaxParallel       int    `mapstructure:"headless_max_parallel"`
	HeadlessNavTimeoutSeconds int    `mapstructure:"headless_nav_timeout_seconds"`
}

// ModelConfig names the model, where its artifacts come from, and how it is placed.
type ModelConfig struct {
	ID             string   `mapstructure:"id"`
	LocalDir       string   `mapstructure:"local_dir"`
	HFToken        string   `mapstructure:"hf_token"`
	OriginBaseURL  string   `mapstructure:"origin_base_url"`
	Revision       string   `mapstructure:"revision"`
	OriginPatterns []string `mapstructure:"origin_patterns"`
	Device         string   `mapstructure:"device"`
	Quantization   string   `mapstructure:"quantization"`
	DType          string   `mapstructure:"dtype"`
}

// EngineConfig selects the generation backend.
type EngineConfig struct {
	Backend        string `mapstructure:"backend"`
	BaseURL        string `mapstructure:"base_url"`
	APIKey         string `mapstructure:"api_key"`
	ServedModel    string `mapstructure:"served_model"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
	LeadSentences  int    `mapstructure:"lead_sentences"`
}

// ArtifactConfig selects the remote mirror for model artifacts.
type ArtifactConfig struct {
	Backend         string `mapstructure:"backend"`
	Bucket          string `mapstructure:"bucket"`
	Region          string `mapstructure:"region"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	Endpoint        string `mapstructure:"endpoint"`
	CredentialsFile string `mapstructure:"credentials_file"`
	LocalRoot       string `mapstructure:"local_root"`
	Prefix          string `mapstructure:"prefix"`
	VerifyRemote    bool   `mapstructure:"verify_remote"`
}

// HistoryConfig selects where produced summaries are kept.
type HistoryConfig struct {
	Backend  string `mapstructure:"backend"`
	DSN      string `mapstructure:"dsn"`
	Table    string `mapstructure:"table"`
	MaxConns int32  `mapstructure:"max_conns"`
	Capacity int    `mapstructure:"capacity"`
}

// PubSubConfig holds metadata for completion event notifications.
type PubSubConfig struct {
	ProjectID string `mapstructure:"project_id"`
	TopicName string `mapstructure:"topic_name"`
}

// TelemetryConfig names the service in traces.
type TelemetryConfig struct {
	ServiceName string `mapstructure:"service_name"`
}

// Fetch modes.
const (
	FetchModeColly    = "colly"
	FetchModeHeadless = "headless"
)

// Engine backends.
const (
	EngineOpenAI = "openai"
	EngineLead   = "lead"
)

// Artifact and history backends.
const (
	BackendNone     = "none"
	BackendMemory   = "memory"
	BackendLocal    = "local"
	BackendS3       = "s3"
	BackendGCS      = "gcs"
	BackendPostgres = "postgres"
)

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("SUMMARIZER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.api_port", 8000)
	v.SetDefault("server.ui_port", 8501)
	v.SetDefault("server.request_timeout_seconds", 300)
	v.SetDefault("server.fail_on_model_error", true)
	v.SetDefault("auth.enabled", false)
	v.SetDefault("auth.api_key", "")
	v.SetDefault("logging.development", true)
	v.SetDefault("logging.level", "info")
	v.SetDefault("fetch.mode", FetchModeColly)
	v.SetDefault("fetch.user_agent", "article-summarizer/0.1")
	v.SetDefault("fetch.timeout_seconds", 30)
	v.SetDefault("fetch.headless_max_parallel", 1)
	v.SetDefault("fetch.headless_nav_timeout_seconds", 30)
	v.SetDefault("model.id", "google/pegasus-cnn_dailymail")
	v.SetDefault("model.local_dir", "models/pegasus-cnn_dailymail")
	v.SetDefault("model.hf_token", "")
	v.SetDefault("model.origin_base_url", "https://huggingface.co")
	v.SetDefault("model.revision", "main")
	v.SetDefault("model.origin_patterns", []string{"*.json", "*.txt", "*.model", "*.safetensors", "*.bin"})
	v.SetDefault("model.device", "auto")
	v.SetDefault("model.quantization", "none")
	v.SetDefault("model.dtype", "float32")
	v.SetDefault("decoding.max_input_tokens", 1024)
	v.SetDefault("decoding.max_length", 256)
	v.SetDefault("decoding.min_length", 30)
	v.SetDefault("decoding.num_beams", 4)
	v.SetDefault("decoding.length_penalty", 2.0)
	v.SetDefault("decoding.temperature", 0.7)
	v.SetDefault("decoding.top_p", 0.95)
	v.SetDefault("decoding.top_k", 50)
	v.SetDefault("decoding.repetition_penalty", 1.2)
	v.SetDefault("decoding.no_repeat_ngram_size", 3)
	v.SetDefault("decoding.do_sample", true)
	v.SetDefault("decoding.early_stopping", true)
	v.SetDefault("engine.backend", EngineOpenAI)
	v.SetDefault("engine.base_url", "http://localhost:8080/v1")
	v.SetDefault("engine.api_key", "")
	v.SetDefault("engine.served_model", "")
	v.SetDefault("engine.timeout_seconds", 120)
	v.SetDefault("engine.lead_sentences", 3)
	v.SetDefault("artifact.backend", BackendNone)
	v.SetDefault("artifact.bucket", "")
	v.SetDefault("artifact.region", "us-east-1")
	v.SetDefault("artifact.access_key_id", "")
	v.SetDefault("artifact.secret_access_key", "")
	v.SetDefault("artifact.endpoint", "")
	v.SetDefault("artifact.credentials_file", "")
	v.SetDefault("artifact.local_root", "")
	v.SetDefault("artifact.prefix", "models")
	v.SetDefault("artifact.verify_remote", false)
	v.SetDefault("history.backend", BackendMemory)
	v.SetDefault("history.dsn", "")
	v.SetDefault("history.table", "summaries")
	v.SetDefault("history.max_conns", 4)
	v.SetDefault("history.capacity", 100)
	v.SetDefault("pubsub.project_id", "")
	v.SetDefault("pubsub.topic_name", "")
	v.SetDefault("telemetry.service_name", "article-summarizer")
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if err := validPort("server.api_port", c.Server.APIPort); err != nil {
		return err
	}
	if err := validPort("server.ui_port", c.Server.UIPort); err != nil {
		return err
	}
	if c.Server.APIPort == c.Server.UIPort {
		return errors.New("server.ui_port must differ from server.api_port")
	}
	if c.Server.RequestTimeoutSeconds <= 0 {
		return errors.New("server.request_timeout_seconds must be > 0")
	}
	if c.Auth.Enabled && c.Auth.APIKey == "" {
		return errors.New("auth.api_key must be set when auth is enabled")
	}
	switch c.Fetch.Mode {
	case FetchModeColly:
	case FetchModeHeadless:
		if c.Fetch.HeadlessMaxParallel <= 0 {
			return errors.New("fetch.headless_max_parallel must be > 0 when fetch.mode is headless")
		}
	default:
		return fmt.Errorf("fetch.mode must be one of colly, headless; got %q", c.Fetch.Mode)
	}
	if c.Fetch.TimeoutSeconds <= 0 {
		return errors.New("fetch.timeout_seconds must be > 0")
	}
	if strings.TrimSpace(c.Model.ID) == "" {
		return errors.New("model.id is required")
	}
	if strings.TrimSpace(c.Model.LocalDir) == "" {
		return errors.New("model.local_dir is required")
	}
	if err := c.validateDecoding(); err != nil {
		return err
	}
	if err := c.validateEngine(); err != nil {
		return err
	}
	if err := c.validateArtifact(); err != nil {
		return err
	}
	return c.validateHistory()
}

func (c Config) validateDecoding() error {
	d := c.Decoding
	switch {
	case d.MaxLength <= 0:
		return errors.New("decoding.max_length must be > 0")
	case d.MinLength < 0 || d.MinLength > d.MaxLength:
		return errors.New("decoding.min_length must be between 0 and decoding.max_length")
	case d.NumBeams < 1:
		return errors.New("decoding.num_beams must be >= 1")
	case d.Temperature < 0:
		return errors.New("decoding.temperature must be >= 0")
	case d.TopP <= 0 || d.TopP > 1:
		return errors.New("decoding.top_p must be in (0, 1]")
	case d.TopK < 0:
		return errors.New("decoding.top_k must be >= 0")
	case d.RepetitionPenalty <= 0:
		return errors.New("decoding.repetition_penalty must be > 0")
	case d.NoRepeatNgramSize < 0:
		return errors.New("decoding.no_repeat_ngram_size must be >= 0")
	case d.MaxInputTokens < 0:
		return errors.New("decoding.max_input_tokens must be >= 0")
	}
	return nil
}

func (c Config) validateEngine() error {
	switch c.Engine.Backend {
	case EngineOpenAI:
		if strings.TrimSpace(c.Engine.BaseURL) == "" {
			return errors.New("engine.base_url is required for the openai backend")
		}
		if c.Engine.TimeoutSeconds <= 0 {
			return errors.New("engine.timeout_seconds must be > 0")
		}
	case EngineLead:
	default:
		return fmt.Errorf("engine.backend must be one of openai, lead; got %q", c.Engine.Backend)
	}
	return nil
}

func (c Config) validateArtifact() error {
	switch c.Artifact.Backend {
	case BackendNone, BackendMemory:
	case BackendLocal:
		if c.Artifact.LocalRoot == "" {
			return errors.New("artifact.local_root is required for the local backend")
		}
	case BackendS3:
		if c.Artifact.Bucket == "" {
			return errors.New("artifact.bucket is required for the s3 backend")
		}
		if (c.Artifact.AccessKeyID == "") != (c.Artifact.SecretAccessKey == "") {
			return errors.New("artifact.access_key_id and artifact.secret_access_key must be set together")
		}
	case BackendGCS:
		if c.Artifact.Bucket == "" {
			return errors.New("artifact.bucket is required for the gcs backend")
		}
	default:
		return fmt.Errorf("artifact.backend must be one of none, memory, local, s3, gcs; got %q", c.Artifact.Backend)
	}
	return nil
}

func (c Config) validateHistory() error {
	switch c.History.Backend {
	case BackendNone:
	case BackendMemory:
		if c.History.Capacity <= 0 {
			return errors.New("history.capacity must be > 0")
		}
	case BackendPostgres:
		if c.History.DSN == "" {
			return errors.New("history.dsn is required for the postgres backend")
		}
	default:
		return fmt.Errorf("history.backend must be one of none, memory, postgres; got %q", c.History.Backend)
	}
	return nil
}

func validPort(key string, port int) error {
	if port <= 0 || port > 65535 {
		return fmt.Errorf("%s must be between 1 and 65535", key)
	}
	return nil
}

// RequestTimeout converts the server timeout into a duration.
func (c Config) RequestTimeout() time.Duration {
	return time.Duration(c.Server.RequestTimeoutSeconds) * time.Second
}

// FetchTimeout converts the fetch timeout into a duration.
func (c Config) FetchTimeout() time.Duration {
	return time.Duration(c.Fetch.TimeoutSeconds) * time.Second
}

// EngineTimeout converts the engine timeout into a duration.
func (c Config) EngineTimeout() time.Duration {
	return time.Duration(c.Engine.TimeoutSeconds) * time.Second
}

// ServedModel returns the name the inference server knows the model by.
func (c Config) ServedModel() string {
	if c.Engine.ServedModel != "" {
		return c.Engine.ServedModel
	}
	return c.Model.ID
}
