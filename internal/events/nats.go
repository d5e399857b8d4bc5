package events

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
)

const subjectPrefix = "reader."

// Conn is the subset of *nats.Conn used for publishing.
type Conn interface {
	Publish(subject string, data []byte) error
}

// NewNATS constructs a thin NATS-based publisher.
func NewNATS(log *slog.Logger, nc Conn) Publisher {
	return &natsPublisher{log: log, nc: nc}
}

type natsPublisher struct {
	log *slog.Logger
	nc  Conn
}

// Subject returns the NATS subject for an event type.
func Subject(t Type) string {
	return subjectPrefix + string(t)
}

func (p *natsPublisher) Publish(_ context.Context, ev Event) error {
	if ev.Type == "" {
		return errors.New("event type required")
	}
	if ev.ID == uuid.Nil {
		ev.ID = uuid.New()
	}
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}
	body, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	if err := p.nc.Publish(Subject(ev.Type), body); err != nil {
		return err
	}
	p.log.Debug("event published", "type", ev.Type, "id", ev.ID, "session_id", ev.SessionID)
	return nil
}

var _ Conn = (*nats.Conn)(nil)
