package llm

import (
	"context"
	"sync/atomic"

	"github.com/stretchr/testify/mock"
)

// MockClient is a mock implementation of Client using testify/mock.
type MockClient struct {
	mock.Mock
}

func (m *MockClient) StreamChat(ctx context.Context, req Request) (Stream, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(Stream), args.Error(1)
}

// FragmentStream replays fixed fragments, then reports err (nil for a clean end).
type FragmentStream struct {
	Fragments []string
	Failure   error
	pos       int
	closed    atomic.Bool
}

// NewFragmentStream returns a stream over fragments ending with err.
func NewFragmentStream(err error, fragments ...string) *FragmentStream {
	return &FragmentStream{Fragments: fragments, Failure: err, pos: -1}
}

func (s *FragmentStream) Next() bool {
	if s.closed.Load() || s.pos+1 >= len(s.Fragments) {
		return false
	}
	s.pos++
	return true
}

func (s *FragmentStream) Fragment() string {
	if s.pos < 0 || s.pos >= len(s.Fragments) {
		return ""
	}
	return s.Fragments[s.pos]
}

func (s *FragmentStream) Err() error {
	if s.pos+1 >= len(s.Fragments) {
		return s.Failure
	}
	return nil
}

func (s *FragmentStream) Close() error {
	s.closed.Store(true)
	return nil
}

// Closed reports whether Close was called.
func (s *FragmentStream) Closed() bool { return s.closed.Load() }
