package session

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"paper-reader/internal/chat"
)

var ErrNotFound = errors.New("session not found")

// Document is the extracted text of the most recent upload together with its file name.
type Document struct {
	FileName string `json:"file_name"`
	Markdown string `json:"markdown"`
	Pages    int    `json:"pages"`
}

// Session is the per-user conversation state.
type Session struct {
	ID        uuid.UUID   `json:"id"`
	Document  Document    `json:"document"`
	History   []chat.Turn `json:"history"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// Store keeps sessions for the lifetime of the process. SetDocument and AppendTurns each
// change one field atomically, so uploads and replies on the same session never overwrite
// each other. Save replaces the whole session.
type Store interface {
	Create(ctx context.Context) (Session, error)
	Get(ctx context.Context, id uuid.UUID) (Session, error)
	Save(ctx context.Context, s Session) error
	SetDocument(ctx context.Context, id uuid.UUID, doc Document) error
	AppendTurns(ctx context.Context, id uuid.UUID, turns ...chat.Turn) error
	Close() error
}

func newSession() Session {
	return Session{ID: uuid.New(), History: []chat.Turn{}, UpdatedAt: time.Now().UTC()}
}
