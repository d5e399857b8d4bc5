package config

import (
	"errors"
	"log/slog"
	"time"

	"github.com/caarlos0/env/v10"
)

// Config holds runtime configuration. Credentials are read once at start and never mutated.
type Config struct {
	// Server
	Port        int    `env:"PORT" envDefault:"7860"`
	Environment string `env:"ENVIRONMENT"` // "prod" binds all interfaces, anything else loopback
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat   string `env:"LOG_FORMAT" envDefault:"json"` // "json" or "text"

	// Upload limits
	MaxUploadSize int64 `env:"MAX_UPLOAD_SIZE" envDefault:"52428800"` // 50MB in bytes

	// LLM (OpenAI-compatible, DeepSeek by default)
	LLMAPIKey  string `env:"DEEPSEEK_API_KEY"`
	LLMBaseURL string `env:"DEEPSEEK_BASE_URL"`
	LLMModel   string `env:"MODEL" envDefault:"deepseek-chat"`

	// OCR
	TextinAppID     string `env:"TEXTIN_API_ID"`
	TextinAppSecret string `env:"TEXTIN_API_SECRET"`
	TextinHost      string `env:"TEXTIN_HOST" envDefault:"https://api.textin.com"`

	// Summaries
	SummaryDir string `env:"SUMMARY_DIR" envDefault:"summaries"`

	// Sessions
	SessionStore  string        `env:"SESSION_STORE" envDefault:"memory"` // "memory" or "redis"
	RedisAddr     string        `env:"REDIS_ADDR"`
	RedisPassword string        `env:"REDIS_PASSWORD"`
	SessionTTL    time.Duration `env:"SESSION_TTL" envDefault:"24h"`

	// Optional summary archive and event bus
	DBURL    string `env:"DB_URL"`
	QueueURL string `env:"QUEUE_URL"`
}

var (
	ErrLLMNotConfigured = errors.New("DEEPSEEK_API_KEY and DEEPSEEK_BASE_URL are required")
	ErrOCRNotConfigured = errors.New("TEXTIN_API_ID and TEXTIN_API_SECRET are required")
)

// Load reads configuration from environment variables with defaults.
func Load() Config {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		slog.Warn("failed to parse env; using defaults where set", "err", err)
	}
	return cfg
}

// RequireLLM reports whether the chat completion credentials are present.
func (c Config) RequireLLM() error {
	if c.LLMAPIKey == "" || c.LLMBaseURL == "" {
		return ErrLLMNotConfigured
	}
	return nil
}

// RequireOCR reports whether the OCR credentials are present.
func (c Config) RequireOCR() error {
	if c.TextinAppID == "" || c.TextinAppSecret == "" {
		return ErrOCRNotConfigured
	}
	return nil
}

// BindHost returns the listen host: all interfaces in prod, loopback otherwise.
func (c Config) BindHost() string {
	if c.Environment == "prod" {
		return "0.0.0.0"
	}
	return "127.0.0.1"
}
