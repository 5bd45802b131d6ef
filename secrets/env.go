package secrets

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/ruteri/blob-encryption-service/interfaces"
)

// EnvSchemePrefix marks identifiers served by EnvBackend.
const EnvSchemePrefix = "env://"

// EnvBackend resolves env://NAME identifiers from the process environment.
// Intended for local runs of the service.
type EnvBackend struct {
	lookup func(string) (string, bool)
}

// NewEnvBackend reads from os.LookupEnv.
func NewEnvBackend() *EnvBackend {
	return &EnvBackend{lookup: os.LookupEnv}
}

// Resolve returns the value of the named environment variable.
func (b *EnvBackend) Resolve(ctx context.Context, secretID string) (string, error) {
	name, ok := strings.CutPrefix(secretID, EnvSchemePrefix)
	if !ok || name == "" || strings.ContainsAny(name, "=/") {
		return "", fmt.Errorf("%w: expected env://<NAME>, got %q", interfaces.ErrInvalidSecretID, secretID)
	}

	value, found := b.lookup(name)
	if !found {
		return "", fmt.Errorf("%w: environment variable %s not set", interfaces.ErrSecretNotFound, name)
	}
	return value, nil
}

// Name returns identifier for logging.
func (b *EnvBackend) Name() string {
	return "env"
}
