package secrets

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockSecretResolver mocks the interfaces.SecretResolver interface
type MockSecretResolver struct {
	mock.Mock
}

// Resolve mocks the Resolve method
func (m *MockSecretResolver) Resolve(ctx context.Context, secretID string) (string, error) {
	args := m.Called(ctx, secretID)
	return args.String(0), args.Error(1)
}

// Name returns a fixed identifier
func (m *MockSecretResolver) Name() string {
	return "mock"
}
