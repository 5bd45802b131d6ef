package storage

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ruteri/blob-encryption-service/interfaces"
)

const defaultGitHubAPI = "https://api.github.com"

// GitHubBackend implements a read-only blob store over the GitHub contents API.
// The container is the repository owner and the first key segment is the
// repository, so github://owner/repo/path/conf.json addresses path/conf.json
// on the default branch of owner/repo.
type GitHubBackend struct {
	apiURL string
	token  string
	ref    string
	client *http.Client
	log    *slog.Logger
}

// NewGitHubBackend creates a new GitHub blob store. An empty apiURL uses the
// public GitHub API; an empty ref uses the repository default branch. A zero
// timeout bounds requests by their context only.
func NewGitHubBackend(apiURL, token, ref string, timeout time.Duration, log *slog.Logger) *GitHubBackend {
	if apiURL == "" {
		apiURL = defaultGitHubAPI
	}

	return &GitHubBackend{
		apiURL: strings.TrimSuffix(apiURL, "/"),
		token:  token,
		ref:    ref,
		client: &http.Client{Timeout: timeout},
		log:    log,
	}
}

// Get fetches the raw file contents.
func (b *GitHubBackend) Get(ctx context.Context, container, key string) ([]byte, error) {
	repo, filePath, ok := strings.Cut(strings.TrimPrefix(key, "/"), "/")
	if !ok || repo == "" || filePath == "" {
		return nil, fmt.Errorf("invalid GitHub object key %q, expected <repo>/<path>", key)
	}

	reqURL := fmt.Sprintf("%s/repos/%s/%s/contents/%s", b.apiURL, url.PathEscape(container), url.PathEscape(repo), filePath)
	if b.ref != "" {
		reqURL += "?ref=" + url.QueryEscape(b.ref)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/vnd.github.raw")
	if b.token != "" {
		req.Header.Set("Authorization", "Bearer "+b.token)
	}

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", interfaces.ErrBackendUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%w: github://%s/%s", interfaces.ErrObjectNotFound, container, key)
	}

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("GitHub API error: %s, %s", resp.Status, string(body))
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read GitHub response: %w", err)
	}

	b.log.DebugContext(ctx, "Fetched object from GitHub",
		slog.String("owner", container),
		slog.String("repo", repo),
		slog.String("path", filePath),
		slog.Int("size", len(data)))

	return data, nil
}

// Put is not supported by this read-only backend.
func (b *GitHubBackend) Put(ctx context.Context, container, key string, data []byte, contentType string) error {
	return interfaces.ErrReadOnlyBackend
}

// Name returns a unique identifier for this backend.
func (b *GitHubBackend) Name() string {
	return "github"
}
