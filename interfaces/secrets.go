package interfaces

import (
	"context"
	"errors"
)

var (
	// ErrSecretNotFound is returned when the named secret (or its latest version) does not exist.
	ErrSecretNotFound = errors.New("secret not found")

	// ErrInvalidSecretID is returned when a secret identifier cannot be interpreted by any backend.
	ErrInvalidSecretID = errors.New("invalid secret identifier")
)

// SecretResolver maps a secret identifier to the plaintext of its latest version.
// Implementations perform exactly one lookup per call and never log the returned value.
type SecretResolver interface {
	Resolve(ctx context.Context, secretID string) (string, error)
}

// SecretBackend is a SecretResolver bound to a single secret store.
type SecretBackend interface {
	SecretResolver

	// Name returns identifier for logging.
	Name() string
}
