package app

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"

	"github.com/joho/godotenv"
	"github.com/nats-io/nats.go"

	"paper-reader/internal/assistant"
	"paper-reader/internal/chat"
	"paper-reader/internal/config"
	"paper-reader/internal/events"
	"paper-reader/internal/llm"
	"paper-reader/internal/logger"
	"paper-reader/internal/ocr"
	"paper-reader/internal/session"
	"paper-reader/internal/store"
	"paper-reader/internal/summary"
)

// Deps bundles common runtime dependencies for the reader.
type Deps struct {
	Config    config.Config
	Log       *slog.Logger
	Sessions  session.Store
	Archive   store.Archive
	Events    events.Publisher
	Assistant *assistant.Service

	closers []io.Closer
}

// Build loads env, config, and shared components.
func Build() (Deps, error) {
	cfg, log, err := loadConfig()
	if err != nil {
		return Deps{}, err
	}
	if err := cfg.RequireLLM(); err != nil {
		log.Warn("chat disabled until configured", "err", err)
	}
	if err := cfg.RequireOCR(); err != nil {
		log.Warn("uploads disabled until configured", "err", err)
	}

	deps := Deps{Config: cfg, Log: log}
	sessions, err := buildSessions(cfg, log)
	if err != nil {
		return Deps{}, fmt.Errorf("failed to initialize session store: %w", err)
	}
	deps.Sessions = sessions
	deps.closers = append(deps.closers, sessions)

	archive, err := buildArchive(cfg, log)
	if err != nil {
		deps.Close()
		return Deps{}, fmt.Errorf("failed to initialize summary archive: %w", err)
	}
	deps.Archive = archive
	if c, ok := archive.(io.Closer); ok {
		deps.closers = append(deps.closers, c)
	}

	pub, nc, err := buildEvents(cfg, log)
	if err != nil {
		deps.Close()
		return Deps{}, fmt.Errorf("failed to initialize events: %w", err)
	}
	deps.Events = pub
	if nc != nil {
		deps.closers = append(deps.closers, closerFunc(func() error { nc.Close(); return nil }))
	}

	orchestrator := chat.New(llm.NewOpenAIClient(llm.OpenAIConfig{
		APIKey:  cfg.LLMAPIKey,
		BaseURL: cfg.LLMBaseURL,
		Model:   cfg.LLMModel,
	}), log)
	writer := summary.NewWriter(cfg.SummaryDir, archive, pub, log)
	deps.Assistant = assistant.New(buildOCR(cfg, log), orchestrator, writer, sessions, pub, log)
	log.Info("using chat model", "model", cfg.LLMModel, "summary_dir", cfg.SummaryDir)
	return deps, nil
}

// BuildOCR loads configuration and returns only the document client.
func BuildOCR() (*ocr.Client, *slog.Logger, error) {
	cfg, log, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	return buildOCR(cfg, log), log, nil
}

// Close releases backend connections in reverse order of creation.
func (d Deps) Close() {
	for i := len(d.closers) - 1; i >= 0; i-- {
		if err := d.closers[i].Close(); err != nil && d.Log != nil {
			d.Log.Warn("close failed", "err", err)
		}
	}
}

// loadConfig reads .env when present, then the environment.
func loadConfig() (config.Config, *slog.Logger, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return config.Config{}, nil, fmt.Errorf("failed to load environment variables: %w", err)
	}
	cfg := config.Load()
	return cfg, logger.New(cfg.LogLevel, cfg.LogFormat), nil
}

func buildOCR(cfg config.Config, log *slog.Logger) *ocr.Client {
	return ocr.NewClient(cfg.TextinAppID, cfg.TextinAppSecret, ocr.WithHost(cfg.TextinHost), ocr.WithLogger(log))
}

func buildSessions(cfg config.Config, log *slog.Logger) (session.Store, error) {
	switch cfg.SessionStore {
	case "", "memory":
		log.Info("using in-memory session store")
		return session.NewMemoryStore(), nil
	case "redis":
		if cfg.RedisAddr == "" {
			return nil, fmt.Errorf("REDIS_ADDR is required when SESSION_STORE=redis")
		}
		rs, err := session.NewRedisStore(cfg.RedisAddr, cfg.RedisPassword, cfg.SessionTTL)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Redis: %w", err)
		}
		log.Info("using Redis session store", "addr", cfg.RedisAddr, "ttl", cfg.SessionTTL)
		return rs, nil
	default:
		return nil, fmt.Errorf("invalid SESSION_STORE: %s (valid options: memory, redis)", cfg.SessionStore)
	}
}

func buildArchive(cfg config.Config, log *slog.Logger) (store.Archive, error) {
	if cfg.DBURL == "" {
		return store.NoopArchive{}, nil
	}
	db, err := store.NewPostgres(cfg.DBURL)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Postgres: %w", err)
	}
	log.Info("archiving summaries in Postgres")
	return db, nil
}

func buildEvents(cfg config.Config, log *slog.Logger) (events.Publisher, *nats.Conn, error) {
	if cfg.QueueURL == "" {
		return events.Noop{}, nil, nil
	}
	nc, err := nats.Connect(cfg.QueueURL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	log.Info("publishing events to NATS")
	return events.NewNATS(log, nc), nc, nil
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }
