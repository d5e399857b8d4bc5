package llm

import "context"

// Role is the author of a chat message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one role/content entry of a chat request.
type Message struct {
	Role    Role
	Content string
}

// Request is a streaming chat completion request.
type Request struct {
	Messages    []Message
	Temperature float64
	MaxTokens   int
}

// Stream yields content fragments in arrival order. Next returns false at the end of the
// stream or on failure; Err distinguishes the two. Fragment may be empty for chunks that
// carry no content.
type Stream interface {
	Next() bool
	Fragment() string
	Err() error
	Close() error
}

// Client is a minimal streaming LLM interface to allow pluggable providers.
// StreamChat returns an error only when the request cannot be sent at all
// (for example missing credentials); transport failures surface through Stream.Err.
type Client interface {
	StreamChat(ctx context.Context, req Request) (Stream, error)
}
