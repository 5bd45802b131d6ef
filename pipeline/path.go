package pipeline

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ruteri/blob-encryption-service/interfaces"
)

// DefaultScheme is used when the configuration path carries no scheme.
const DefaultScheme = "gs"

var (
	errMissingPath    = errors.New("configuration path is empty")
	errTooFewSegments = errors.New("configuration path has too few segments, expected <scheme>://<container>/<key>")
	errEmptyContainer = errors.New("configuration path has an empty container name")
	errEmptyKey       = errors.New("configuration path has no object key after the container")
)

// ConfigPath locates the configuration object of one pipeline invocation.
type ConfigPath struct {
	Scheme    string
	Container string
	Key       string
}

// Location returns the blob store location of the configuration object.
func (p ConfigPath) Location() interfaces.ObjectLocation {
	return interfaces.ObjectLocation{
		Scheme:    p.Scheme,
		Container: p.Container,
		Key:       p.Key,
	}
}

func (p ConfigPath) String() string {
	return p.Location().String()
}

// ParsePath splits a "<scheme>://<container>/<key...>" string.
//
// The third "/"-delimited segment is the container. The key is everything
// following that container name in the raw string, with leading slashes
// removed. The first segment, minus its trailing colon, is the scheme.
func ParsePath(raw string) (ConfigPath, error) {
	if raw == "" {
		return ConfigPath{}, errMissingPath
	}

	segments := strings.Split(raw, "/")
	if len(segments) < 3 {
		return ConfigPath{}, fmt.Errorf("%w: %q", errTooFewSegments, raw)
	}

	container := segments[2]
	if container == "" {
		return ConfigPath{}, fmt.Errorf("%w: %q", errEmptyContainer, raw)
	}

	// The key starts after the container segment itself, not after the first
	// occurrence of the container name (which may also occur in the scheme).
	offset := len(segments[0]) + len(segments[1]) + len(container) + 2
	key := strings.TrimLeft(raw[offset:], "/")
	if key == "" {
		return ConfigPath{}, fmt.Errorf("%w: %q", errEmptyKey, raw)
	}

	scheme := DefaultScheme
	if strings.HasSuffix(segments[0], ":") && len(segments[0]) > 1 {
		scheme = strings.ToLower(strings.TrimSuffix(segments[0], ":"))
	}

	return ConfigPath{
		Scheme:    scheme,
		Container: container,
		Key:       key,
	}, nil
}
