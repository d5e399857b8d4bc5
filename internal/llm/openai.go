package llm

import (
	"context"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/packages/ssestream"

	"paper-reader/internal/apperr"
	"paper-reader/internal/metrics"
)

const (
	// DefaultModel is used when no model is configured.
	DefaultModel = "deepseek-chat"
	// streamIdleTimeout bounds the wait for each fragment of a completion stream.
	streamIdleTimeout = 30 * time.Second
)

// OpenAIConfig configures an OpenAI-compatible endpoint.
type OpenAIConfig struct {
	APIKey     string
	BaseURL    string
	Model      string
	HTTPClient *http.Client
	// IdleTimeout overrides streamIdleTimeout; used by tests.
	IdleTimeout time.Duration
}

// OpenAIClient calls an OpenAI-compatible Chat Completions API in streaming mode.
type OpenAIClient struct {
	model       openai.ChatModel
	client      *openai.Client
	configured  bool
	idleTimeout time.Duration
}

// NewOpenAIClient builds a client. Missing credentials are reported by StreamChat,
// before any request is attempted.
func NewOpenAIClient(cfg OpenAIConfig) *OpenAIClient {
	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}
	idle := cfg.IdleTimeout
	if idle <= 0 {
		idle = streamIdleTimeout
	}
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.HTTPClient != nil {
		opts = append(opts, option.WithHTTPClient(cfg.HTTPClient))
	}
	cli := openai.NewClient(opts...)
	return &OpenAIClient{
		model:       openai.ChatModel(model),
		client:      &cli,
		configured:  cfg.APIKey != "" && cfg.BaseURL != "",
		idleTimeout: idle,
	}
}

// StreamChat starts a streaming completion.
func (c *OpenAIClient) StreamChat(ctx context.Context, req Request) (Stream, error) {
	if c == nil || c.client == nil {
		return nil, fmt.Errorf("nil openai client")
	}
	if !c.configured {
		return nil, apperr.Configuration("llm.stream", "api key and base url are required")
	}

	streamCtx, cancel := context.WithCancel(ctx)
	s := &openAIStream{cancel: cancel, idle: c.idleTimeout, started: time.Now()}
	s.timer = time.AfterFunc(c.idleTimeout, func() {
		s.timedOut.Store(true)
		cancel()
	})
	s.stream = c.client.Chat.Completions.NewStreaming(streamCtx, openai.ChatCompletionNewParams{
		Model:       c.model,
		Messages:    toOpenAIMessages(req.Messages),
		Temperature: openai.Float(req.Temperature),
		MaxTokens:   openai.Int(int64(req.MaxTokens)),
	})
	return s, nil
}

func toOpenAIMessages(msgs []Message) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(msgs))
	for _, m := range msgs {
		switch m.Role {
		case RoleSystem:
			out = append(out, openai.SystemMessage(m.Content))
		case RoleAssistant:
			out = append(out, openai.AssistantMessage(m.Content))
		default:
			out = append(out, openai.UserMessage(m.Content))
		}
	}
	return out
}

// openAIStream adapts an SSE chunk stream to Stream and enforces the idle timeout.
type openAIStream struct {
	stream   *ssestream.Stream[openai.ChatCompletionChunk]
	cancel   context.CancelFunc
	timer    *time.Timer
	idle     time.Duration
	timedOut atomic.Bool
	started  time.Time
	fragment string
	seen     bool
	done     bool
}

func (s *openAIStream) Next() bool {
	if s.done {
		return false
	}
	for s.stream.Next() {
		s.timer.Reset(s.idle)
		chunk := s.stream.Current()
		if len(chunk.Choices) == 0 {
			continue
		}
		if !s.seen {
			s.seen = true
			metrics.LLMFirstFragment.Observe(time.Since(s.started).Seconds())
		}
		s.fragment = chunk.Choices[0].Delta.Content
		return true
	}
	s.finish()
	return false
}

func (s *openAIStream) Fragment() string { return s.fragment }

func (s *openAIStream) Err() error {
	err := s.stream.Err()
	if err == nil {
		return nil
	}
	if s.timedOut.Load() {
		return fmt.Errorf("no response within %s: %w", s.idle, err)
	}
	return err
}

func (s *openAIStream) Close() error {
	s.finish()
	return s.stream.Close()
}

func (s *openAIStream) finish() {
	if s.done {
		return
	}
	s.done = true
	s.timer.Stop()
	if s.stream.Err() != nil {
		metrics.LLMStreams.WithLabelValues("error").Inc()
	} else {
		metrics.LLMStreams.WithLabelValues("ok").Inc()
	}
	s.cancel()
}
