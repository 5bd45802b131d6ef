package encryption

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/ruteri/blob-encryption-service/interfaces"
)

// ErrEngineFailure is returned when the engine reports a failed encryption.
// The wrapped message carries the engine diagnostic.
var ErrEngineFailure = errors.New("encryption engine reported failure")

// Stage imports a recipient key and encrypts a payload for it.
type Stage struct {
	engine interfaces.EncryptionEngine
	log    *slog.Logger
}

// NewStage creates an encryption stage over engine.
func NewStage(engine interfaces.EncryptionEngine, log *slog.Logger) *Stage {
	return &Stage{
		engine: engine,
		log:    log,
	}
}

// Encrypt imports keyMaterial and encrypts plaintext for recipient, always
// trusting the imported key. Only keys contained in keyMaterial are
// considered for recipient lookup, and they are released before returning.
func (s *Stage) Encrypt(ctx context.Context, plaintext []byte, keyMaterial string, recipient string) ([]byte, error) {
	imported, err := s.engine.ImportKeys(ctx, []byte(keyMaterial))
	if err != nil {
		s.log.ErrorContext(ctx, "Failed to import public key", "err", err)
		return nil, fmt.Errorf("failed to import public key: %w", err)
	}

	s.log.DebugContext(ctx, "Public key imported",
		slog.Int("count", imported.Count),
		slog.Any("fingerprints", imported.Fingerprints))
	defer s.engine.ReleaseKeys(imported.Fingerprints)

	result, err := s.engine.Encrypt(ctx, plaintext, []string{recipient}, interfaces.EncryptOptions{
		AlwaysTrust:  true,
		Fingerprints: imported.Fingerprints,
	})
	if err != nil {
		s.log.ErrorContext(ctx, "Encryption call failed", "err", err)
		return nil, fmt.Errorf("encryption call failed: %w", err)
	}

	if !result.OK {
		s.log.ErrorContext(ctx, "Encryption engine reported failure", slog.String("status", result.Status))
		if result.Err != nil {
			return nil, fmt.Errorf("%w: %w", ErrEngineFailure, result.Err)
		}
		return nil, fmt.Errorf("%w: %s", ErrEngineFailure, result.Status)
	}

	s.log.DebugContext(ctx, "Payload encrypted",
		slog.Int("plaintext_size", len(plaintext)),
		slog.Int("ciphertext_size", len(result.Data)))

	return result.Data, nil
}
