package secrets

import (
	"context"
	"fmt"
	"hash/crc32"
	"log/slog"
	"regexp"
	"strings"
	"unicode/utf8"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	"github.com/googleapis/gax-go/v2"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/ruteri/blob-encryption-service/interfaces"
)

// GCPSchemePrefix may optionally precede Secret Manager identifiers.
const GCPSchemePrefix = "gcpsm://"

var secretNamePattern = regexp.MustCompile(`^projects/[^/]+/secrets/[^/]+$`)

// secretVersionAccessor is the subset of the Secret Manager client used here.
type secretVersionAccessor interface {
	AccessSecretVersion(ctx context.Context, req *secretmanagerpb.AccessSecretVersionRequest, opts ...gax.CallOption) (*secretmanagerpb.AccessSecretVersionResponse, error)
}

// GCPSecretManager resolves projects/<project>/secrets/<name> identifiers to
// the payload of their latest version.
type GCPSecretManager struct {
	client secretVersionAccessor
	log    *slog.Logger
}

// NewGCPSecretManager creates a Secret Manager client using application
// default credentials unless opts say otherwise.
func NewGCPSecretManager(ctx context.Context, log *slog.Logger, opts ...option.ClientOption) (*GCPSecretManager, error) {
	client, err := secretmanager.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Secret Manager client: %w", err)
	}
	return &GCPSecretManager{client: client, log: log}, nil
}

// Resolve accesses <secretID>/versions/latest and returns the payload as text.
func (g *GCPSecretManager) Resolve(ctx context.Context, secretID string) (string, error) {
	name := strings.TrimPrefix(secretID, GCPSchemePrefix)
	if !secretNamePattern.MatchString(name) {
		return "", fmt.Errorf("%w: expected projects/<project>/secrets/<name>, got %q", interfaces.ErrInvalidSecretID, secretID)
	}

	resp, err := g.client.AccessSecretVersion(ctx, &secretmanagerpb.AccessSecretVersionRequest{
		Name: name + "/versions/latest",
	}, gax.WithRetry(func() gax.Retryer { return nil }))
	if err != nil {
		switch status.Code(err) {
		case codes.NotFound:
			return "", fmt.Errorf("%w: %v", interfaces.ErrSecretNotFound, err)
		case codes.InvalidArgument:
			return "", fmt.Errorf("%w: %v", interfaces.ErrInvalidSecretID, err)
		case codes.Unavailable, codes.DeadlineExceeded:
			return "", fmt.Errorf("%w: %v", interfaces.ErrBackendUnavailable, err)
		}
		return "", fmt.Errorf("failed to access secret version: %w", err)
	}

	payload := resp.GetPayload()
	if payload == nil {
		return "", fmt.Errorf("secret version has no payload")
	}

	data := payload.GetData()
	if payload.DataCrc32C != nil {
		checksum := int64(crc32.Checksum(data, crc32.MakeTable(crc32.Castagnoli)))
		if checksum != payload.GetDataCrc32C() {
			return "", fmt.Errorf("secret payload checksum mismatch")
		}
	}

	if !utf8.Valid(data) {
		return "", fmt.Errorf("secret payload is not valid UTF-8")
	}

	g.log.Debug("Accessed Secret Manager version", slog.String("name", name))

	return string(data), nil
}

// Name returns identifier for logging.
func (g *GCPSecretManager) Name() string {
	return "gcp-secret-manager"
}
