package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"paper-reader/internal/chat"
)

// MemoryStore keeps sessions in process memory.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID]Session
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[uuid.UUID]Session)}
}

func (m *MemoryStore) Create(_ context.Context) (Session, error) {
	s := newSession()
	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()
	return copySession(s), nil
}

func (m *MemoryStore) Get(_ context.Context, id uuid.UUID) (Session, error) {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return Session{}, ErrNotFound
	}
	return copySession(s), nil
}

// Save replaces the stored session. Last write wins.
func (m *MemoryStore) Save(_ context.Context, s Session) error {
	s.UpdatedAt = time.Now().UTC()
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[s.ID]; !ok {
		return ErrNotFound
	}
	m.sessions[s.ID] = copySession(s)
	return nil
}

// SetDocument replaces the document and keeps the history.
func (m *MemoryStore) SetDocument(_ context.Context, id uuid.UUID, doc Document) error {
	return m.update(id, func(s *Session) { s.Document = doc })
}

// AppendTurns adds turns to the end of the history and keeps the document.
func (m *MemoryStore) AppendTurns(_ context.Context, id uuid.UUID, turns ...chat.Turn) error {
	return m.update(id, func(s *Session) { s.History = append(s.History, turns...) })
}

func (m *MemoryStore) update(id uuid.UUID, fn func(*Session)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return ErrNotFound
	}
	s = copySession(s)
	fn(&s)
	s.UpdatedAt = time.Now().UTC()
	m.sessions[id] = s
	return nil
}

func (m *MemoryStore) Close() error { return nil }

// copySession detaches the history slice so callers never share backing arrays.
func copySession(s Session) Session {
	s.History = append([]chat.Turn(nil), s.History...)
	if s.History == nil {
		s.History = []chat.Turn{}
	}
	return s
}
