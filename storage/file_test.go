package storage

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/ruteri/blob-encryption-service/interfaces"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestFileBackend(t *testing.T) (*FileBackend, string) {
	tempDir := t.TempDir()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	backend, err := NewFileBackend(tempDir, logger)
	require.NoError(t, err)
	return backend, tempDir
}

func TestFileBackend_PutGet(t *testing.T) {
	backend, tempDir := newTestFileBackend(t)
	ctx := context.Background()

	err := backend.Put(ctx, "data-bucket", "out/report.csv.asc", []byte("ciphertext"), "text/plain")
	require.NoError(t, err)

	// The object lands at <base>/<container>/<key>
	onDisk, err := os.ReadFile(filepath.Join(tempDir, "data-bucket", "out", "report.csv.asc"))
	require.NoError(t, err)
	assert.Equal(t, "ciphertext", string(onDisk))

	data, err := backend.Get(ctx, "data-bucket", "out/report.csv.asc")
	require.NoError(t, err)
	assert.Equal(t, []byte("ciphertext"), data)
}

func TestFileBackend_PutReplacesObject(t *testing.T) {
	backend, tempDir := newTestFileBackend(t)
	ctx := context.Background()

	require.NoError(t, backend.Put(ctx, "b", "k", []byte("a much longer first version"), ""))
	require.NoError(t, backend.Put(ctx, "b", "k", []byte("short"), ""))

	data, err := backend.Get(ctx, "b", "k")
	require.NoError(t, err)
	assert.Equal(t, "short", string(data))

	// No temporary files are left behind
	entries, err := os.ReadDir(filepath.Join(tempDir, "b"))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestFileBackend_GetMissing(t *testing.T) {
	backend, _ := newTestFileBackend(t)

	_, err := backend.Get(context.Background(), "data-bucket", "in/missing.csv")
	require.Error(t, err)
	assert.ErrorIs(t, err, interfaces.ErrObjectNotFound)
}

func TestFileBackend_RejectsEscapingPaths(t *testing.T) {
	backend, _ := newTestFileBackend(t)
	ctx := context.Background()

	tests := []struct {
		name      string
		container string
		key       string
	}{
		{name: "parent traversal in key", container: "b", key: "../other/secret"},
		{name: "container with slash", container: "a/b", key: "k"},
		{name: "dot-dot container", container: "..", key: "k"},
		{name: "empty container", container: "", key: "k"},
		{name: "empty key", container: "b", key: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := backend.Put(ctx, tt.container, tt.key, []byte("x"), "")
			assert.Error(t, err)

			_, err = backend.Get(ctx, tt.container, tt.key)
			assert.Error(t, err)
		})
	}
}
