package secrets

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/hashicorp/vault/api"

	"github.com/ruteri/blob-encryption-service/interfaces"
)

// VaultSchemePrefix marks identifiers served by VaultBackend.
const VaultSchemePrefix = "vault://"

// defaultVaultField is read when an identifier does not name a field.
const defaultVaultField = "value"

// VaultBackend resolves secrets stored in a HashiCorp Vault KV v2 engine.
//
// Identifier format: vault://<mount>/<path>[#<field>]
// e.g. vault://secret/encryption/gpg-public-key#armored reads field "armored"
// of the latest version at secret/data/encryption/gpg-public-key.
type VaultBackend struct {
	client *api.Client
	log    *slog.Logger
}

// NewVaultBackend creates a Vault client for address authenticated with token.
// An empty token leaves the client to pick up VAULT_TOKEN from the environment.
// A zero timeout bounds requests by their context only.
func NewVaultBackend(address, token string, timeout time.Duration, log *slog.Logger) (*VaultBackend, error) {
	config := api.DefaultConfig()
	if address != "" {
		config.Address = address
	}
	config.Timeout = timeout
	config.HttpClient.Timeout = timeout
	config.MaxRetries = 0

	client, err := api.NewClient(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create Vault client: %w", err)
	}

	if token != "" {
		client.SetToken(token)
	}

	return &VaultBackend{
		client: client,
		log:    log,
	}, nil
}

// Resolve reads the latest version of the KV v2 secret and returns the named field.
func (b *VaultBackend) Resolve(ctx context.Context, secretID string) (string, error) {
	mountPath, dataPath, field, err := parseVaultID(secretID)
	if err != nil {
		return "", err
	}

	path := fmt.Sprintf("%s/data/%s", mountPath, dataPath)

	secret, err := b.client.Logical().ReadWithContext(ctx, path)
	if err != nil {
		return "", fmt.Errorf("%w: %v", interfaces.ErrBackendUnavailable, err)
	}

	if secret == nil || secret.Data == nil {
		return "", fmt.Errorf("%w: %s", interfaces.ErrSecretNotFound, path)
	}

	data, ok := secret.Data["data"].(map[string]interface{})
	if !ok || data == nil {
		// KV v2 returns a nil data map for deleted versions
		return "", fmt.Errorf("%w: %s has no data", interfaces.ErrSecretNotFound, path)
	}

	raw, ok := data[field]
	if !ok {
		return "", fmt.Errorf("%w: field %q not present at %s", interfaces.ErrSecretNotFound, field, path)
	}

	value, ok := raw.(string)
	if !ok {
		return "", fmt.Errorf("field %q at %s is not a string", field, path)
	}

	b.log.Debug("Read secret from Vault", slog.String("path", path), slog.String("field", field))

	return value, nil
}

// Name returns identifier for logging.
func (b *VaultBackend) Name() string {
	return fmt.Sprintf("vault-%s", b.client.Address())
}

func parseVaultID(secretID string) (mountPath, dataPath, field string, err error) {
	rest, ok := strings.CutPrefix(secretID, VaultSchemePrefix)
	if !ok {
		return "", "", "", fmt.Errorf("%w: %q is not a vault:// identifier", interfaces.ErrInvalidSecretID, secretID)
	}

	rest, field, _ = strings.Cut(rest, "#")
	if field == "" {
		field = defaultVaultField
	}

	mountPath, dataPath, ok = strings.Cut(strings.Trim(rest, "/"), "/")
	dataPath = strings.Trim(dataPath, "/")
	if !ok || mountPath == "" || dataPath == "" {
		return "", "", "", fmt.Errorf("%w: expected vault://<mount>/<path>[#field], got %q", interfaces.ErrInvalidSecretID, secretID)
	}

	return mountPath, dataPath, field, nil
}
