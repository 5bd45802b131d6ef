package secrets

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/ruteri/blob-encryption-service/interfaces"
)

// Router resolves secret identifiers by dispatching on their scheme prefix.
//
// Identifiers of the form <scheme>://... go to the backend registered for that
// scheme. Identifiers without a scheme (such as projects/p/secrets/name) go to
// the default backend. Router holds no secret values; every call performs one
// lookup against one backend.
type Router struct {
	log *slog.Logger

	mu             sync.RWMutex
	backends       map[string]interfaces.SecretBackend
	defaultBackend interfaces.SecretBackend
}

// NewRouter creates a router with no backends.
func NewRouter(log *slog.Logger) *Router {
	return &Router{
		log:      log,
		backends: make(map[string]interfaces.SecretBackend),
	}
}

// Register routes identifiers starting with scheme:// to backend.
func (r *Router) Register(scheme string, backend interfaces.SecretBackend) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.backends[strings.ToLower(scheme)] = backend
}

// SetDefault routes identifiers without a scheme to backend.
func (r *Router) SetDefault(backend interfaces.SecretBackend) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.defaultBackend = backend
}

// Resolve returns the plaintext of the latest version of secretID.
// The value is never logged; the identifier is.
func (r *Router) Resolve(ctx context.Context, secretID string) (string, error) {
	start := time.Now()

	backend, err := r.backendFor(secretID)
	if err != nil {
		r.log.Error("Failed to fetch secret", slog.String("secret_id", secretID), "err", err)
		return "", fmt.Errorf("failed to resolve secret %s: %w", secretID, err)
	}

	value, err := backend.Resolve(ctx, secretID)
	if err != nil {
		r.log.Error("Failed to fetch secret",
			slog.String("secret_id", secretID),
			slog.String("backend", backend.Name()),
			"err", err,
			slog.Duration("duration", time.Since(start)))
		return "", fmt.Errorf("failed to resolve secret %s: %w", secretID, err)
	}

	r.log.Info("Successfully fetched secret",
		slog.String("secret_id", secretID),
		slog.String("backend", backend.Name()),
		slog.Duration("duration", time.Since(start)))

	return value, nil
}

func (r *Router) backendFor(secretID string) (interfaces.SecretBackend, error) {
	if strings.TrimSpace(secretID) == "" {
		return nil, fmt.Errorf("%w: empty identifier", interfaces.ErrInvalidSecretID)
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	if scheme, _, ok := strings.Cut(secretID, "://"); ok {
		backend, found := r.backends[strings.ToLower(scheme)]
		if !found {
			return nil, fmt.Errorf("%w: no secret backend configured for scheme %q", interfaces.ErrInvalidSecretID, scheme)
		}
		return backend, nil
	}

	if r.defaultBackend == nil {
		return nil, fmt.Errorf("%w: no default secret backend configured", interfaces.ErrInvalidSecretID)
	}
	return r.defaultBackend, nil
}
