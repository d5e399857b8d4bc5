package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Type enumerates published event categories.
type Type string

const (
	TypeDocumentExtracted Type = "document.extracted"
	TypeSummarySaved      Type = "summary.saved"
)

// Event is a notification about a completed step of a session.
type Event struct {
	ID         uuid.UUID         `json:"id"`
	Type       Type              `json:"type"`
	SessionID  uuid.UUID         `json:"session_id"`
	Attributes map[string]string `json:"attributes,omitempty"`
	At         time.Time         `json:"at"`
}

// Publisher exposes a minimal contract to announce events. Delivery is best effort.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

// Noop discards events. Used when no broker is configured.
type Noop struct{}

func (Noop) Publish(context.Context, Event) error { return nil }
