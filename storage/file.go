package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/ruteri/blob-encryption-service/interfaces"
)

// FileBackend implements a blob store on the local file system.
// Each container is a directory under the base directory and object keys are
// relative paths inside it.
type FileBackend struct {
	baseDir     string
	log         *slog.Logger
	locationURI string
}

// NewFileBackend creates a new file blob store rooted at baseDir.
// The base directory is created if it doesn't exist.
func NewFileBackend(baseDir string, log *slog.Logger) (*FileBackend, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}

	return &FileBackend{
		baseDir:     baseDir,
		log:         log,
		locationURI: fmt.Sprintf("file://%s", baseDir),
	}, nil
}

// Get reads the object at key in container.
// Returns ErrObjectNotFound if the file doesn't exist.
func (b *FileBackend) Get(ctx context.Context, container, key string) ([]byte, error) {
	filePath, err := b.getFilePath(container, key)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s/%s", interfaces.ErrObjectNotFound, container, key)
		}
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	b.log.DebugContext(ctx, "Read object from file",
		slog.String("path", filePath),
		slog.Int("size", len(data)))

	return data, nil
}

// Put writes data to a temporary file next to the destination and renames it
// into place, so a reader never observes a partially written object.
func (b *FileBackend) Put(ctx context.Context, container, key string, data []byte, contentType string) error {
	filePath, err := b.getFilePath(container, key)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(filePath), "."+filepath.Base(filePath)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close file: %w", err)
	}
	if err := os.Rename(tmpName, filePath); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to move file into place: %w", err)
	}

	b.log.DebugContext(ctx, "Stored object in file",
		slog.String("path", filePath),
		slog.Int("size", len(data)))

	return nil
}

// Name returns a unique identifier for this backend.
func (b *FileBackend) Name() string {
	return fmt.Sprintf("file-%s", filepath.Base(b.baseDir))
}

// LocationURI returns the URI that identifies this backend.
func (b *FileBackend) LocationURI() string {
	return b.locationURI
}

// getFilePath maps (container, key) to a path under baseDir, rejecting keys that
// would escape the container directory.
func (b *FileBackend) getFilePath(container, key string) (string, error) {
	if container == "" || strings.ContainsAny(container, `/\`) || container == "." || container == ".." {
		return "", fmt.Errorf("invalid container name %q", container)
	}
	if key == "" {
		return "", fmt.Errorf("empty object key")
	}

	containerDir := filepath.Join(b.baseDir, container)
	filePath := filepath.Join(containerDir, filepath.FromSlash(key))
	if !strings.HasPrefix(filePath, containerDir+string(filepath.Separator)) {
		return "", fmt.Errorf("object key %q escapes container", key)
	}
	return filePath, nil
}
