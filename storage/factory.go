package storage

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"google.golang.org/api/option"

	"github.com/ruteri/blob-encryption-service/interfaces"
)

// StorageBackendFactory creates blob stores from URI strings and serves them by scheme.
type StorageBackendFactory struct {
	log *slog.Logger

	mu     sync.RWMutex
	stores map[string]interfaces.BlobStore
}

// NewStorageBackendFactory creates a factory with no registered stores.
func NewStorageBackendFactory(logger *slog.Logger) *StorageBackendFactory {
	return &StorageBackendFactory{
		log:    logger,
		stores: make(map[string]interfaces.BlobStore),
	}
}

// Register makes store the handler for scheme, replacing any previous one.
func (sf *StorageBackendFactory) Register(scheme string, store interfaces.BlobStore) {
	sf.mu.Lock()
	defer sf.mu.Unlock()
	sf.stores[strings.ToLower(scheme)] = store
}

// BlobStoreFor returns the store registered for scheme.
func (sf *StorageBackendFactory) BlobStoreFor(scheme string) (interfaces.BlobStore, error) {
	sf.mu.RLock()
	defer sf.mu.RUnlock()

	store, ok := sf.stores[strings.ToLower(scheme)]
	if !ok {
		return nil, fmt.Errorf("%w: no blob store configured for scheme %q", interfaces.ErrInvalidLocationURI, scheme)
	}
	return store, nil
}

// Configure creates a backend for each location URI and registers it under its scheme.
func (sf *StorageBackendFactory) Configure(ctx context.Context, locationURIs []string) error {
	for _, raw := range locationURIs {
		location, err := interfaces.NewStorageBackendLocation(raw)
		if err != nil {
			return err
		}

		store, err := sf.StorageBackendFor(ctx, location)
		if err != nil {
			return fmt.Errorf("failed to create %s backend: %w", location.Scheme, err)
		}

		sf.log.Info("Registered blob store",
			slog.String("scheme", location.Scheme),
			slog.String("backend", store.Name()))
		sf.Register(location.Scheme, store)
	}
	return nil
}

// StorageBackendFor creates a blob store from a location URI.
// The URI format should be [scheme]://[auth@]host[:port][/path][?params]
//
// Supported schemes:
//   - gs:// - Google Cloud Storage (application default credentials)
//   - s3:// - Amazon S3 or compatible object storage
//   - file:// - Local filesystem storage
//   - ipfs:// - IPFS mutable file system
//   - github:// - Read-only storage using GitHub's contents API
func (sf *StorageBackendFactory) StorageBackendFor(ctx context.Context, location interfaces.StorageBackendLocation) (interfaces.BlobStore, error) {
	switch location.Scheme {
	case "gs":
		return sf.createGCSBackend(ctx, location)
	case "s3":
		return sf.createS3Backend(location)
	case "file":
		return sf.createFileBackend(location)
	case "ipfs":
		return sf.createIPFSBackend(location)
	case "github":
		return sf.createGitHubBackend(location)
	default:
		return nil, fmt.Errorf("unsupported backend scheme: %s", location.Scheme)
	}
}

// createGCSBackend creates a Google Cloud Storage backend.
// URI format: gs://?endpoint=http://localhost:4443/storage/v1/&no_auth=true
// Both parameters are optional and intended for emulators.
func (sf *StorageBackendFactory) createGCSBackend(ctx context.Context, location interfaces.StorageBackendLocation) (interfaces.BlobStore, error) {
	sf.log.Debug("Creating GCS backend", slog.String("uri", location.String()))

	var opts []option.ClientOption
	if endpoint := location.GetParam("endpoint"); endpoint != "" {
		opts = append(opts, option.WithEndpoint(endpoint))
	}
	if location.GetParamBool("no_auth") {
		opts = append(opts, option.WithoutAuthentication())
	}

	return NewGCSBackend(ctx, sf.log, opts...)
}

// createS3Backend creates an S3 or S3-compatible backend.
// URI format: s3://[ACCESS_KEY:SECRET_KEY@]/?region=us-west-2&endpoint=custom.s3.com
func (sf *StorageBackendFactory) createS3Backend(location interfaces.StorageBackendLocation) (interfaces.BlobStore, error) {
	sf.log.Debug("Creating S3 backend", slog.String("region", location.GetParam("region")))

	region := location.GetParam("region")
	if region == "" {
		region = "us-east-1"
	}

	var accessKey, secretKey string
	if location.Auth != "" {
		accessKey, secretKey, _ = strings.Cut(location.Auth, ":")
		sf.log.Debug("Using embedded S3 credentials")
	}

	return NewS3Backend(region, location.GetParam("endpoint"), accessKey, secretKey, sf.log)
}

// createFileBackend creates a file system backend.
// URI format: file:///absolute/path/ or file://./relative/path/
func (sf *StorageBackendFactory) createFileBackend(location interfaces.StorageBackendLocation) (interfaces.BlobStore, error) {
	sf.log.Debug("Creating file backend", slog.String("uri", location.String()))

	path := location.Path
	if location.Host != "" {
		path = location.Host + "/" + strings.TrimPrefix(path, "/")
	}

	if path == "" {
		return nil, fmt.Errorf("empty path in file URI: %s", location.String())
	}

	return NewFileBackend(path, sf.log)
}

// createIPFSBackend creates an IPFS MFS backend.
// URI format: ipfs://host:port/mfs/root[?timeout=30s]
func (sf *StorageBackendFactory) createIPFSBackend(location interfaces.StorageBackendLocation) (interfaces.BlobStore, error) {
	sf.log.Debug("Creating IPFS backend", slog.String("uri", location.String()))

	host := location.Host
	if host == "" {
		host = "localhost:5001"
	} else if !strings.Contains(host, ":") {
		host += ":5001"
	}

	timeout, err := timeoutParam(location)
	if err != nil {
		return nil, err
	}

	return NewIPFSBackend(host, location.Path, timeout, sf.log), nil
}

// createGitHubBackend creates a read-only GitHub backend.
// URI format: github://[TOKEN@]?ref=main&api=https://github.example.com/api/v3[&timeout=30s]
func (sf *StorageBackendFactory) createGitHubBackend(location interfaces.StorageBackendLocation) (interfaces.BlobStore, error) {
	sf.log.Debug("Creating GitHub backend")

	timeout, err := timeoutParam(location)
	if err != nil {
		return nil, err
	}

	return NewGitHubBackend(location.GetParam("api"), location.Auth, location.GetParam("ref"), timeout, sf.log), nil
}

// timeoutParam reads the optional timeout query parameter. Without it the
// backend sets no client timeout and requests end with their context.
func timeoutParam(location interfaces.StorageBackendLocation) (time.Duration, error) {
	raw := location.GetParam("timeout")
	if raw == "" {
		return 0, nil
	}
	timeout, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s timeout %q: %w", location.Scheme, raw, err)
	}
	return timeout, nil
}
