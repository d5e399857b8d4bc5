package chat

import (
	"context"
	"io"
	"log/slog"
	"strings"

	"github.com/go-playground/validator/v10"

	"paper-reader/internal/apperr"
	"paper-reader/internal/llm"
)

var validate = validator.New()

// Params are the generation parameters of one request.
type Params struct {
	Temperature float64 `json:"temperature" validate:"gte=0,lte=2"`
	MaxTokens   int     `json:"max_tokens" validate:"gte=64,lte=32768"`
}

// DefaultParams mirror the initial slider values.
func DefaultParams() Params {
	return Params{Temperature: 1.0, MaxTokens: 4096}
}

// Update is one step of a streamed reply. Reply holds the full text accumulated so far.
// Err is set only on the last update of a failed generation.
type Update struct {
	Reply string
	Err   error
}

// Snapshot is the transcript after one step of a streamed reply.
type Snapshot struct {
	Turns []Turn
	Reply string
	Err   error
}

// Request describes one transcript-producing exchange. Display is shown as the user side
// of the new turn; Prompt is what the model receives.
type Request struct {
	Display  string
	Prompt   string
	History  []Turn
	Document string
	Params   Params
}

// Orchestrator assembles chat context and drives streaming completions.
type Orchestrator struct {
	client llm.Client
	log    *slog.Logger
}

// New returns an orchestrator over client.
func New(client llm.Client, log *slog.Logger) *Orchestrator {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Orchestrator{client: client, log: log}
}

// BuildMessages assembles the request messages in their fixed order: persona, document,
// history (each present side as its own message), then the prompt when non-empty.
func BuildMessages(prompt string, history []Turn, document string) []llm.Message {
	msgs := make([]llm.Message, 0, len(history)*2+3)
	msgs = append(msgs, llm.Message{Role: llm.RoleSystem, Content: Persona})
	if document != "" {
		msgs = append(msgs, llm.Message{Role: llm.RoleSystem, Content: DocumentLabel + document})
	}
	for _, t := range history {
		if t.User != nil {
			msgs = append(msgs, llm.Message{Role: llm.RoleUser, Content: *t.User})
		}
		if t.Assistant != nil {
			msgs = append(msgs, llm.Message{Role: llm.RoleAssistant, Content: *t.Assistant})
		}
	}
	if prompt != "" {
		msgs = append(msgs, llm.Message{Role: llm.RoleUser, Content: prompt})
	}
	return msgs
}

// Converse streams a reply to prompt. Errors that prevent the request from being sent
// (invalid params, missing credentials) are returned directly. Failures after that end the
// channel with an Update carrying a generation error. The channel is closed when the
// provider signals completion.
func (o *Orchestrator) Converse(ctx context.Context, prompt string, history []Turn, document string, params Params) (<-chan Update, error) {
	if err := validate.Struct(params); err != nil {
		return nil, apperr.E(apperr.KindInvalidInput, "chat.params", err)
	}
	stream, err := o.client.StreamChat(ctx, llm.Request{
		Messages:    BuildMessages(prompt, history, document),
		Temperature: params.Temperature,
		MaxTokens:   params.MaxTokens,
	})
	if err != nil {
		return nil, err
	}

	out := make(chan Update)
	go func() {
		defer close(out)
		defer stream.Close()

		var reply strings.Builder
		for stream.Next() {
			fragment := stream.Fragment()
			if fragment == "" {
				continue
			}
			reply.WriteString(fragment)
			if !send(ctx, out, Update{Reply: reply.String()}) {
				return
			}
		}
		if err := stream.Err(); err != nil {
			o.log.Warn("completion stream failed", "err", err, "partial_len", reply.Len())
			send(ctx, out, Update{Reply: reply.String(), Err: apperr.E(apperr.KindGeneration, "chat.converse", err)})
		}
	}()
	return out, nil
}

// Respond wraps Converse into transcript snapshots: history plus the (display, reply) turn
// while streaming, or history plus a failure entry when generation fails. The last
// snapshot sent is the final transcript.
func (o *Orchestrator) Respond(ctx context.Context, req Request) (<-chan Snapshot, error) {
	updates, err := o.Converse(ctx, req.Prompt, req.History, req.Document, req.Params)
	if err != nil {
		return nil, err
	}

	out := make(chan Snapshot)
	go func() {
		defer close(out)
		defer drain(updates)

		reply := ""
		for u := range updates {
			if u.Err != nil {
				turns := append(CloneHistory(req.History), AssistantOnly(FailurePrefix+failureText(u.Err)))
				send(ctx, out, Snapshot{Turns: turns, Reply: u.Reply, Err: u.Err})
				return
			}
			reply = u.Reply
			if !send(ctx, out, Snapshot{Turns: appendTurn(req.History, req.Display, reply), Reply: reply}) {
				return
			}
		}
		send(ctx, out, Snapshot{Turns: appendTurn(req.History, req.Display, reply), Reply: reply})
	}()
	return out, nil
}

func appendTurn(history []Turn, display, reply string) []Turn {
	return append(CloneHistory(history), NewTurn(display, reply))
}

// failureText is the cause of a generation error without the operation prefix.
func failureText(err error) string {
	var cause error = err
	if u, ok := err.(interface{ Unwrap() error }); ok && u.Unwrap() != nil {
		cause = u.Unwrap()
	}
	return cause.Error()
}

func send[T any](ctx context.Context, ch chan<- T, v T) bool {
	select {
	case ch <- v:
		return true
	case <-ctx.Done():
		return false
	}
}

// drain lets an abandoned producer run to completion.
func drain[T any](ch <-chan T) {
	for range ch {
	}
}
