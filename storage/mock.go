package storage

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockBlobStore mocks the interfaces.BlobStore interface
type MockBlobStore struct {
	mock.Mock
}

// Get mocks the Get method
func (m *MockBlobStore) Get(ctx context.Context, container, key string) ([]byte, error) {
	args := m.Called(ctx, container, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

// Put mocks the Put method
func (m *MockBlobStore) Put(ctx context.Context, container, key string, data []byte, contentType string) error {
	args := m.Called(ctx, container, key, data, contentType)
	return args.Error(0)
}

// Name returns a fixed identifier
func (m *MockBlobStore) Name() string {
	return "mock"
}
