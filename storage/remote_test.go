package storage

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/ruteri/blob-encryption-service/interfaces"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeS3 serves path-style GetObject and PutObject from memory.
type fakeS3 struct {
	mu           sync.Mutex
	objects      map[string][]byte
	contentTypes map[string]string
}

func (f *fakeS3) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	switch r.Method {
	case http.MethodGet:
		data, ok := f.objects[r.URL.Path]
		if !ok {
			w.Header().Set("Content-Type", "application/xml")
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`<?xml version="1.0" encoding="UTF-8"?><Error><Code>NoSuchKey</Code><Message>The specified key does not exist.</Message></Error>`))
			return
		}
		w.Write(data)
	case http.MethodPut:
		data, _ := io.ReadAll(r.Body)
		f.objects[r.URL.Path] = data
		f.contentTypes[r.URL.Path] = r.Header.Get("Content-Type")
		w.Header().Set("ETag", `"etag"`)
		w.WriteHeader(http.StatusOK)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func TestS3Backend_PutGet(t *testing.T) {
	fake := &fakeS3{objects: map[string][]byte{}, contentTypes: map[string]string{}}
	srv := httptest.NewServer(fake)
	defer srv.Close()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	backend, err := NewS3Backend("us-east-1", srv.URL, "AKIDEXAMPLE", "secret", logger)
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, backend.Put(ctx, "data-bucket", "out/report.csv.asc", []byte("ciphertext"), "text/plain"))
	assert.Equal(t, []byte("ciphertext"), fake.objects["/data-bucket/out/report.csv.asc"])
	assert.Equal(t, "text/plain", fake.contentTypes["/data-bucket/out/report.csv.asc"])

	data, err := backend.Get(ctx, "data-bucket", "out/report.csv.asc")
	require.NoError(t, err)
	assert.Equal(t, []byte("ciphertext"), data)

	_, err = backend.Get(ctx, "data-bucket", "in/missing.csv")
	assert.ErrorIs(t, err, interfaces.ErrObjectNotFound)
}

func TestIPFSBackend(t *testing.T) {
	var mu sync.Mutex
	files := map[string][]byte{}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()

		switch r.URL.Path {
		case "/api/v0/version":
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"Version":"0.29.0","Commit":"","Repo":"16","System":"amd64/linux","Golang":"go1.22"}`))
		case "/api/v0/files/read":
			data, ok := files[r.URL.Query().Get("arg")]
			if !ok {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusInternalServerError)
				w.Write([]byte(`{"Message":"file does not exist","Code":0,"Type":"error"}`))
				return
			}
			w.Header().Set("Content-Type", "text/plain")
			w.Write(data)
		case "/api/v0/files/write":
			assert.Equal(t, "true", r.URL.Query().Get("create"))
			assert.Equal(t, "true", r.URL.Query().Get("parents"))
			assert.Equal(t, "true", r.URL.Query().Get("truncate"))

			reader, err := r.MultipartReader()
			if !assert.NoError(t, err) {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			part, err := reader.NextPart()
			if !assert.NoError(t, err) {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			data, _ := io.ReadAll(part)
			files[r.URL.Query().Get("arg")] = data
			w.WriteHeader(http.StatusOK)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	backend := NewIPFSBackend(srv.URL, "/encryption", 5*time.Second, logger)
	ctx := context.Background()

	require.NoError(t, backend.Put(ctx, "data-bucket", "out/report.csv.asc", []byte("ciphertext"), "text/plain"))
	assert.Equal(t, []byte("ciphertext"), files["/encryption/data-bucket/out/report.csv.asc"])

	data, err := backend.Get(ctx, "data-bucket", "out/report.csv.asc")
	require.NoError(t, err)
	assert.Equal(t, []byte("ciphertext"), data)

	_, err = backend.Get(ctx, "data-bucket", "missing")
	assert.ErrorIs(t, err, interfaces.ErrObjectNotFound)
}

func TestIPFSBackend_Unavailable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	backend := NewIPFSBackend(srv.URL, "", time.Second, logger)

	_, err := backend.Get(context.Background(), "c", "k")
	assert.ErrorIs(t, err, interfaces.ErrBackendUnavailable)

	err = backend.Put(context.Background(), "c", "k", []byte("x"), "")
	assert.ErrorIs(t, err, interfaces.ErrBackendUnavailable)
}
