package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func clearReaderEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"PORT", "ENVIRONMENT", "LOG_LEVEL", "LOG_FORMAT", "MAX_UPLOAD_SIZE",
		"DEEPSEEK_API_KEY", "DEEPSEEK_BASE_URL", "MODEL",
		"TEXTIN_API_ID", "TEXTIN_API_SECRET", "TEXTIN_HOST",
		"SUMMARY_DIR", "SESSION_STORE", "REDIS_ADDR", "REDIS_PASSWORD", "SESSION_TTL",
		"DB_URL", "QUEUE_URL",
	} {
		// Setenv registers the restore; Unsetenv makes the key truly absent.
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func TestLoadDefaults(t *testing.T) {
	clearReaderEnv(t)

	cfg := Load()

	tests := []struct {
		name     string
		got      interface{}
		expected interface{}
	}{
		{"Port", cfg.Port, 7860},
		{"LogLevel", cfg.LogLevel, "info"},
		{"LogFormat", cfg.LogFormat, "json"},
		{"LLMModel", cfg.LLMModel, "deepseek-chat"},
		{"TextinHost", cfg.TextinHost, "https://api.textin.com"},
		{"SummaryDir", cfg.SummaryDir, "summaries"},
		{"SessionStore", cfg.SessionStore, "memory"},
		{"SessionTTL", cfg.SessionTTL, 24 * time.Hour},
		{"MaxUploadSize", cfg.MaxUploadSize, int64(52428800)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.got)
		})
	}
}

func TestLoadFromEnv(t *testing.T) {
	clearReaderEnv(t)
	t.Setenv("PORT", "9090")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("MODEL", "deepseek-reasoner")
	t.Setenv("SESSION_TTL", "30m")

	cfg := Load()

	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "deepseek-reasoner", cfg.LLMModel)
	assert.Equal(t, 30*time.Minute, cfg.SessionTTL)
}

func TestRequireCredentials(t *testing.T) {
	cfg := Config{}
	assert.ErrorIs(t, cfg.RequireLLM(), ErrLLMNotConfigured)
	assert.ErrorIs(t, cfg.RequireOCR(), ErrOCRNotConfigured)

	// Both halves of each pair are required.
	cfg.LLMAPIKey = "sk-test"
	cfg.TextinAppID = "app"
	assert.ErrorIs(t, cfg.RequireLLM(), ErrLLMNotConfigured)
	assert.ErrorIs(t, cfg.RequireOCR(), ErrOCRNotConfigured)

	cfg.LLMBaseURL = "https://api.deepseek.com"
	cfg.TextinAppSecret = "secret"
	assert.NoError(t, cfg.RequireLLM())
	assert.NoError(t, cfg.RequireOCR())
}

func TestBindHost(t *testing.T) {
	assert.Equal(t, "0.0.0.0", Config{Environment: "prod"}.BindHost())
	assert.Equal(t, "127.0.0.1", Config{Environment: "dev"}.BindHost())
	assert.Equal(t, "127.0.0.1", Config{}.BindHost())
}
