package interfaces

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// ObjectLocation addresses a single object in a blob store.
type ObjectLocation struct {
	Scheme    string // Backend scheme ("gs", "s3", "file", ...)
	Container string // Bucket or top-level namespace
	Key       string // Object key within the container
}

// String returns the URI form of the location.
func (loc ObjectLocation) String() string {
	if loc.Scheme == "" {
		return fmt.Sprintf("%s/%s", loc.Container, loc.Key)
	}
	return fmt.Sprintf("%s://%s/%s", loc.Scheme, loc.Container, loc.Key)
}

// StorageBackendLocation describes how to reach a blob store backend.
type StorageBackendLocation struct {
	Raw    string     // Original URI
	Scheme string     // Protocol
	Host   string     // Hostname
	Path   string     // Resource path
	Query  url.Values // Query parameters
	Auth   string     // Authentication info
}

// NewStorageBackendLocation creates a new storage location from a URI string with validation.
func NewStorageBackendLocation(uri string) (StorageBackendLocation, error) {
	parsed, err := url.Parse(uri)
	if err != nil {
		return StorageBackendLocation{}, fmt.Errorf("%w: %v", ErrInvalidLocationURI, err)
	}

	scheme := strings.ToLower(parsed.Scheme)
	switch scheme {
	case "gs", "s3", "file", "ipfs", "github":
	default:
		return StorageBackendLocation{}, fmt.Errorf("%w: unsupported storage scheme %q", ErrInvalidLocationURI, parsed.Scheme)
	}

	var auth string
	if parsed.User != nil {
		auth = parsed.User.String()
	}

	return StorageBackendLocation{
		Raw:    uri,
		Scheme: scheme,
		Host:   parsed.Host,
		Path:   parsed.Path,
		Query:  parsed.Query(),
		Auth:   auth,
	}, nil
}

// String returns the original URI string.
func (loc StorageBackendLocation) String() string {
	return loc.Raw
}

// GetParam returns a query parameter value.
func (loc StorageBackendLocation) GetParam(name string) string {
	return loc.Query.Get(name)
}

// GetParamBool returns a boolean query parameter value.
func (loc StorageBackendLocation) GetParamBool(name string) bool {
	value := loc.Query.Get(name)
	return value == "true" || value == "1" || value == "yes"
}

var (
	// ErrObjectNotFound is returned when the requested object does not exist in the container.
	ErrObjectNotFound = errors.New("object not found")

	// ErrBackendUnavailable is returned when a backend is not accessible.
	// This could be due to network issues, authentication failures, or service outages.
	ErrBackendUnavailable = errors.New("backend unavailable")

	// ErrReadOnlyBackend is returned by backends that cannot accept writes.
	ErrReadOnlyBackend = errors.New("backend is read-only")

	// ErrInvalidLocationURI is returned when a storage location URI is malformed or unsupported.
	ErrInvalidLocationURI = errors.New("invalid storage location URI")
)

// BlobStore provides path-addressed, whole-object storage.
type BlobStore interface {
	// Get reads the whole object at key in container.
	Get(ctx context.Context, container, key string) ([]byte, error)

	// Put writes data as the whole object at key in container, replacing any existing object.
	Put(ctx context.Context, container, key string, data []byte, contentType string) error

	// Name returns identifier for logging.
	Name() string
}

// BlobStoreFactory resolves blob stores by scheme.
type BlobStoreFactory interface {
	// BlobStoreFor returns the store serving the given scheme ("gs", "s3", ...).
	BlobStoreFor(scheme string) (BlobStore, error)
}
