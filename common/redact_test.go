package common

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRedactingHandler(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(NewRedactingHandler(slog.NewJSONHandler(&buf, nil))).With("service", "test")

	ctx := WithRedactions(context.Background(), "hunter2", "")
	log.InfoContext(ctx, "using hunter2",
		slog.String("bucket", "gs://hunter2/x"),
		"err", errors.New("open hunter2/x: denied"),
		slog.Group("req", slog.String("token", "hunter2")),
		slog.Int("size", 3))

	out := buf.String()
	assert.NotContains(t, out, "hunter2")
	assert.Contains(t, out, `"msg":"using [REDACTED]"`)
	assert.Contains(t, out, `"bucket":"gs://[REDACTED]/x"`)
	assert.Contains(t, out, `"err":"open [REDACTED]/x: denied"`)
	assert.Contains(t, out, `"req":{"token":"[REDACTED]"}`)
	assert.Contains(t, out, `"size":3`)
	assert.Contains(t, out, `"service":"test"`)

	// Records without redactions pass through untouched
	buf.Reset()
	log.Info("using hunter2")
	assert.Contains(t, buf.String(), "using hunter2")
}

func TestWithRedactions(t *testing.T) {
	ctx := context.Background()
	assert.Equal(t, ctx, WithRedactions(ctx, "", ""))

	outer := WithRedactions(ctx, "alpha")
	inner := WithRedactions(outer, "beta")
	assert.Equal(t, "[REDACTED] beta", Redact(outer, "alpha beta"))
	assert.Equal(t, "[REDACTED] [REDACTED]", Redact(inner, "alpha beta"))
	assert.Equal(t, "alpha beta", Redact(ctx, "alpha beta"))
}
