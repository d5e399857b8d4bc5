package store

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockArchive is a mock implementation of Archive using testify/mock.
type MockArchive struct {
	mock.Mock
}

func (m *MockArchive) SaveSummary(ctx context.Context, s Summary) (Summary, error) {
	args := m.Called(ctx, s)
	return args.Get(0).(Summary), args.Error(1)
}

func (m *MockArchive) ListSummaries(ctx context.Context, limit int) ([]Summary, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]Summary), args.Error(1)
}
