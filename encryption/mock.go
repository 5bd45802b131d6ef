package encryption

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/ruteri/blob-encryption-service/interfaces"
)

// MockEngine mocks the interfaces.EncryptionEngine interface
type MockEngine struct {
	mock.Mock
}

// ImportKeys mocks the ImportKeys method
func (m *MockEngine) ImportKeys(ctx context.Context, material []byte) (*interfaces.ImportResult, error) {
	args := m.Called(ctx, material)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*interfaces.ImportResult), args.Error(1)
}

// ReleaseKeys mocks the ReleaseKeys method
func (m *MockEngine) ReleaseKeys(fingerprints []string) {
	m.Called(fingerprints)
}

// Encrypt mocks the Encrypt method
func (m *MockEngine) Encrypt(ctx context.Context, plaintext []byte, recipients []string, opts interfaces.EncryptOptions) (*interfaces.EncryptResult, error) {
	args := m.Called(ctx, plaintext, recipients, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*interfaces.EncryptResult), args.Error(1)
}
