package store

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Summary is an archived auto-summary.
type Summary struct {
	ID        uuid.UUID `json:"id"`
	SessionID uuid.UUID `json:"session_id"`
	FileName  string    `json:"file_name"`
	Path      string    `json:"path"`
	Body      string    `json:"body"`
	Headings  []string  `json:"headings"`
	CreatedAt time.Time `json:"created_at"`
}

// Archive records finished summaries; an external DB implementation can replace this.
type Archive interface {
	SaveSummary(ctx context.Context, s Summary) (Summary, error)
	ListSummaries(ctx context.Context, limit int) ([]Summary, error)
}

// NoopArchive keeps nothing. Used when no database is configured.
type NoopArchive struct{}

func (NoopArchive) SaveSummary(_ context.Context, s Summary) (Summary, error) { return s, nil }

func (NoopArchive) ListSummaries(context.Context, int) ([]Summary, error) { return []Summary{}, nil }
