package common

import (
	"context"
	"log/slog"
	"strings"
)

// Redacted replaces secret values in log records and error messages.
const Redacted = "[REDACTED]"

type redactionsKey struct{}

// WithRedactions returns a context carrying values that must never appear in
// log output produced under it. Empty values are ignored.
func WithRedactions(ctx context.Context, values ...string) context.Context {
	existing, _ := ctx.Value(redactionsKey{}).([]string)
	merged := append([]string(nil), existing...)
	for _, v := range values {
		if v != "" {
			merged = append(merged, v)
		}
	}
	if len(merged) == len(existing) {
		return ctx
	}
	return context.WithValue(ctx, redactionsKey{}, merged)
}

func replacerFor(ctx context.Context) *strings.Replacer {
	if ctx == nil {
		return nil
	}
	values, _ := ctx.Value(redactionsKey{}).([]string)
	if len(values) == 0 {
		return nil
	}
	pairs := make([]string, 0, 2*len(values))
	for _, v := range values {
		pairs = append(pairs, v, Redacted)
	}
	return strings.NewReplacer(pairs...)
}

// Redact replaces every value registered in ctx with Redacted.
func Redact(ctx context.Context, s string) string {
	if r := replacerFor(ctx); r != nil {
		return r.Replace(s)
	}
	return s
}

// RedactingHandler rewrites the message and attributes of each record using
// the redactions carried by the record's context.
type RedactingHandler struct {
	slog.Handler
}

func NewRedactingHandler(h slog.Handler) *RedactingHandler {
	return &RedactingHandler{Handler: h}
}

func (h *RedactingHandler) Handle(ctx context.Context, r slog.Record) error {
	replacer := replacerFor(ctx)
	if replacer == nil {
		return h.Handler.Handle(ctx, r)
	}

	redacted := slog.NewRecord(r.Time, r.Level, replacer.Replace(r.Message), r.PC)
	r.Attrs(func(a slog.Attr) bool {
		redacted.AddAttrs(redactAttr(replacer, a))
		return true
	})
	return h.Handler.Handle(ctx, redacted)
}

func (h *RedactingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &RedactingHandler{Handler: h.Handler.WithAttrs(attrs)}
}

func (h *RedactingHandler) WithGroup(name string) slog.Handler {
	return &RedactingHandler{Handler: h.Handler.WithGroup(name)}
}

func redactAttr(replacer *strings.Replacer, a slog.Attr) slog.Attr {
	v := a.Value.Resolve()
	switch v.Kind() {
	case slog.KindString:
		return slog.String(a.Key, replacer.Replace(v.String()))
	case slog.KindGroup:
		group := v.Group()
		attrs := make([]any, 0, len(group))
		for _, ga := range group {
			attrs = append(attrs, redactAttr(replacer, ga))
		}
		return slog.Group(a.Key, attrs...)
	case slog.KindAny:
		if err, ok := v.Any().(error); ok {
			return slog.String(a.Key, replacer.Replace(err.Error()))
		}
	}
	return slog.Attr{Key: a.Key, Value: v}
}
