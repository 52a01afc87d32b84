package telemetry

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime/debug"
	"strings"
)

// NewLogger returns a JSON logger that stamps trace_id and span_id from the
// record's context.
func NewLogger(w io.Writer, level slog.Level) *slog.Logger {
	base := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})
	return slog.New(&traceHandler{baseHandler: base})
}

// ParseLevel accepts debug, info, warn and error in any case.
func ParseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid log level %q: %w", s, err)
	}
	return level, nil
}

var exit = os.Exit

// LogPanic must be deferred directly. It logs a panic on the calling
// goroutine with its stack and exits with status 2.
func LogPanic(logger *slog.Logger) {
	rec := recover()
	if rec == nil {
		return
	}
	logger.Error("panic",
		"panic", fmt.Sprint(rec),
		"stack", string(debug.Stack()),
	)
	exit(2)
}

type traceHandler struct {
	baseHandler slog.Handler
	// ops replays WithAttrs and WithGroup calls in order, after the trace ids
	// have been added at the root.
	ops []func(slog.Handler) slog.Handler
}

func (h *traceHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.baseHandler.Enabled(ctx, level)
}

// Handle puts trace ids at the root of the record, outside any group opened
// with WithGroup.
func (h *traceHandler) Handle(ctx context.Context, r slog.Record) error {
	handler := h.baseHandler

	var ids []slog.Attr
	if traceID := TraceID(ctx); traceID != "" {
		ids = append(ids, slog.String("trace_id", traceID))
	}
	if spanID := SpanID(ctx); spanID != "" {
		ids = append(ids, slog.String("span_id", spanID))
	}
	if len(ids) > 0 {
		handler = handler.WithAttrs(ids)
	}
	for _, op := range h.ops {
		handler = op(handler)
	}

	return handler.Handle(ctx, r)
}

func (h *traceHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	return h.with(func(next slog.Handler) slog.Handler { return next.WithAttrs(attrs) })
}

func (h *traceHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	return h.with(func(next slog.Handler) slog.Handler { return next.WithGroup(name) })
}

func (h *traceHandler) with(op func(slog.Handler) slog.Handler) *traceHandler {
	next := *h
	next.ops = append(append([]func(slog.Handler) slog.Handler{}, h.ops...), op)
	return &next
}
