package secrets

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/1password/onepassword-sdk-go"

	"github.com/ruteri/blob-encryption-service/common"
	"github.com/ruteri/blob-encryption-service/interfaces"
)

// OnePasswordSchemePrefix marks identifiers served by OnePasswordBackend.
const OnePasswordSchemePrefix = "op://"

type onePasswordSecrets interface {
	Resolve(ctx context.Context, secretReference string) (string, error)
}

// OnePasswordBackend resolves op://<vault>/<item>/<field> references through a
// 1Password service account.
type OnePasswordBackend struct {
	secrets onePasswordSecrets
	log     *slog.Logger
}

// NewOnePasswordBackend authenticates with a service account token.
func NewOnePasswordBackend(ctx context.Context, token string, log *slog.Logger) (*OnePasswordBackend, error) {
	if strings.TrimSpace(token) == "" {
		return nil, fmt.Errorf("no 1Password service account token provided")
	}

	client, err := onepassword.NewClient(ctx,
		onepassword.WithServiceAccountToken(strings.TrimSpace(token)),
		onepassword.WithIntegrationInfo(common.PackageName, common.Version),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create 1Password client: %w", err)
	}

	return &OnePasswordBackend{secrets: client.Secrets(), log: log}, nil
}

// Resolve returns the referenced field value.
func (b *OnePasswordBackend) Resolve(ctx context.Context, secretID string) (string, error) {
	if !strings.HasPrefix(secretID, OnePasswordSchemePrefix) || strings.Count(secretID, "/") < 4 {
		return "", fmt.Errorf("%w: expected op://<vault>/<item>/<field>, got %q", interfaces.ErrInvalidSecretID, secretID)
	}

	value, err := b.secrets.Resolve(ctx, secretID)
	if err != nil {
		return "", fmt.Errorf("1Password resolve failed: %w", err)
	}

	return value, nil
}

// Name returns identifier for logging.
func (b *OnePasswordBackend) Name() string {
	return "1password"
}
