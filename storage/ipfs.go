package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"
	"time"

	shell "github.com/ipfs/go-ipfs-api"

	"github.com/ruteri/blob-encryption-service/interfaces"
)

// IPFSBackend implements a blob store on the IPFS mutable file system (MFS).
// Containers are top-level MFS directories, keys are paths inside them.
type IPFSBackend struct {
	shell   *shell.Shell
	apiAddr string
	root    string
	log     *slog.Logger
}

// NewIPFSBackend creates a new IPFS blob store talking to the node API at apiAddr
// (host:port). All containers live under root in MFS.
func NewIPFSBackend(apiAddr, root string, timeout time.Duration, log *slog.Logger) *IPFSBackend {
	sh := shell.NewShell(apiAddr)
	if timeout > 0 {
		sh.SetTimeout(timeout)
	}

	if root == "" {
		root = "/"
	}

	return &IPFSBackend{
		shell:   sh,
		apiAddr: apiAddr,
		root:    root,
		log:     log,
	}
}

// Get reads the whole MFS file.
// Returns ErrObjectNotFound if the file doesn't exist or ErrBackendUnavailable
// if the IPFS node is not accessible.
func (b *IPFSBackend) Get(ctx context.Context, container, key string) ([]byte, error) {
	start := time.Now()
	mfsPath := b.mfsPath(container, key)

	if !b.shell.IsUp() {
		b.log.WarnContext(ctx, "IPFS node unavailable", slog.String("api", b.apiAddr))
		return nil, interfaces.ErrBackendUnavailable
	}

	reader, err := b.shell.FilesRead(ctx, mfsPath)
	if err != nil {
		if strings.Contains(err.Error(), "does not exist") || strings.Contains(err.Error(), "not found") {
			b.log.DebugContext(ctx, "Object not found in IPFS",
				slog.String("path", mfsPath),
				slog.Duration("duration", time.Since(start)))
			return nil, fmt.Errorf("%w: %s", interfaces.ErrObjectNotFound, mfsPath)
		}

		b.log.ErrorContext(ctx, "Failed to read object from IPFS",
			slog.String("path", mfsPath),
			"err", err,
			slog.Duration("duration", time.Since(start)))
		return nil, fmt.Errorf("failed to read object from IPFS: %w", err)
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read object from IPFS: %w", err)
	}

	b.log.DebugContext(ctx, "Fetched object from IPFS",
		slog.String("path", mfsPath),
		slog.Int("size", len(data)),
		slog.Duration("duration", time.Since(start)))

	return data, nil
}

// Put writes data to the MFS path, creating parent directories and truncating
// any existing file.
func (b *IPFSBackend) Put(ctx context.Context, container, key string, data []byte, contentType string) error {
	mfsPath := b.mfsPath(container, key)

	if !b.shell.IsUp() {
		return interfaces.ErrBackendUnavailable
	}

	err := b.shell.FilesWrite(ctx, mfsPath, bytes.NewReader(data),
		shell.FilesWrite.Create(true),
		shell.FilesWrite.Parents(true),
		shell.FilesWrite.Truncate(true))
	if err != nil {
		return fmt.Errorf("failed to write object to IPFS: %w", err)
	}

	b.log.DebugContext(ctx, "Stored object in IPFS",
		slog.String("path", mfsPath),
		slog.Int("size", len(data)))

	return nil
}

// Name returns a unique identifier for this backend.
func (b *IPFSBackend) Name() string {
	return fmt.Sprintf("ipfs-%s", b.apiAddr)
}

func (b *IPFSBackend) mfsPath(container, key string) string {
	return path.Join(b.root, container, key)
}
