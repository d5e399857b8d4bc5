package ocr

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockExtractor is a mock implementation of Extractor using testify/mock.
type MockExtractor struct {
	mock.Mock
}

func (m *MockExtractor) Extract(ctx context.Context, source string, opts Options, isURL bool) (string, error) {
	args := m.Called(ctx, source, opts, isURL)
	return args.String(0), args.Error(1)
}

func (m *MockExtractor) ExtractContent(ctx context.Context, content []byte, opts Options) (string, error) {
	args := m.Called(ctx, content, opts)
	return args.String(0), args.Error(1)
}
