package log

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"unicode/utf8"
)

// MaxValueLen is the number of characters kept from a string attribute.
const MaxValueLen = 120

// truncationMarker is appended to values cut at MaxValueLen.
const truncationMarker = "..."

// SafeHandler wraps an slog.Handler and escapes string attribute values so
// that raw token text cannot corrupt the log output. Record messages are
// left untouched; they are constant strings written by this program.
type SafeHandler struct {
	// handler is the underlying slog handler that receives escaped records.
	handler slog.Handler
}

// NewSafeHandler creates a new SafeHandler wrapping the given handler.
// If handler is nil, the returned SafeHandler will use slog.Default().Handler().
func NewSafeHandler(handler slog.Handler) *SafeHandler {
	if handler == nil {
		handler = slog.Default().Handler()
	}
	return &SafeHandler{handler: handler}
}

// Enabled reports whether the handler handles records at the given level.
// It delegates to the underlying handler.
func (h *SafeHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.handler.Enabled(ctx, level)
}

// Handle escapes the record's attributes and passes it to the underlying handler.
func (h *SafeHandler) Handle(ctx context.Context, r slog.Record) error {
	escaped := slog.NewRecord(r.Time, r.Level, r.Message, r.PC)

	r.Attrs(func(a slog.Attr) bool {
		escaped.AddAttrs(escapeAttr(a))
		return true
	})

	return h.handler.Handle(ctx, escaped)
}

// WithAttrs returns a new handler with the given attributes added.
// Attributes are escaped before being added.
func (h *SafeHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	escaped := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		escaped[i] = escapeAttr(a)
	}
	return &SafeHandler{handler: h.handler.WithAttrs(escaped)}
}

// WithGroup returns a new handler with the given group name.
func (h *SafeHandler) WithGroup(name string) slog.Handler {
	return &SafeHandler{handler: h.handler.WithGroup(name)}
}

// escapeAttr escapes a single attribute, recursively handling groups.
func escapeAttr(a slog.Attr) slog.Attr {
	v := a.Value.Resolve()

	switch v.Kind() {
	case slog.KindGroup:
		attrs := v.Group()
		escaped := make([]slog.Attr, len(attrs))
		for i, groupAttr := range attrs {
			escaped[i] = escapeAttr(groupAttr)
		}
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(escaped...)}
	case slog.KindString:
		return slog.String(a.Key, Escape(v.String()))
	case slog.KindAny:
		if b, ok := v.Any().([]byte); ok {
			return slog.String(a.Key, Escape(string(b)))
		}
	}

	return slog.Attr{Key: a.Key, Value: v}
}

// Escape returns s with control characters and invalid UTF-8 bytes escaped,
// truncated to MaxValueLen characters.
func Escape(s string) string {
	var b strings.Builder
	b.Grow(len(s))

	n := 0
	for i := 0; i < len(s); {
		if n == MaxValueLen {
			b.WriteString(truncationMarker)
			break
		}

		r, size := utf8.DecodeRuneInString(s[i:])
		switch {
		case r == utf8.RuneError && size == 1:
			fmt.Fprintf(&b, `\x%02x`, s[i])
		case r == '\n':
			b.WriteString(`\n`)
		case r == '\t':
			b.WriteString(`\t`)
		case r == '\r':
			b.WriteString(`\r`)
		case r < 0x20 || r == 0x7f:
			fmt.Fprintf(&b, `\x%02x`, r)
		default:
			b.WriteRune(r)
		}

		i += size
		n++
	}

	return b.String()
}

// NewLogger creates a new slog.Logger writing escaped text records to w.
//
// Parameters:
//   - w: The io.Writer to write log output to (typically os.Stderr)
//   - verbose: If true, sets log level to Debug; otherwise Warn
func NewLogger(w io.Writer, verbose bool) *slog.Logger {
	return slog.New(NewSafeHandler(slog.NewTextHandler(w, handlerOptions(verbose))))
}

// NewJSONLogger creates a new slog.Logger writing escaped JSON records to w.
// Useful for structured log aggregation.
func NewJSONLogger(w io.Writer, verbose bool) *slog.Logger {
	return slog.New(NewSafeHandler(slog.NewJSONHandler(w, handlerOptions(verbose))))
}

func handlerOptions(verbose bool) *slog.HandlerOptions {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return &slog.HandlerOptions{Level: level}
}
