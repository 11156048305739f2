package logger

import (
	"context"
	"log/slog"
	"os"
	"time"

	"go.opentelemetry.io/contrib/bridges/otelslog"
	"go.opentelemetry.io/otel/trace"
)

// Config holds logger configuration
type Config struct {
	Level       string // debug, info, warn, error
	Format      string // json, text
	ServiceName string
}

var levelByName = map[string]slog.Level{
	"debug": slog.LevelDebug,
	"info":  slog.LevelInfo,
	"warn":  slog.LevelWarn,
	"error": slog.LevelError,
}

// InitLogger initializes the global logger with OTel support
func InitLogger(cfg Config) {
	level, ok := levelByName[cfg.Level]
	if !ok {
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				return slog.String(slog.TimeKey, a.Value.Time().Format(time.RFC3339))
			}
			return a
		},
	}

	// 1. Stdout handler (with span-context enrichment), tagged with the
	// engine's service name so multi-service log aggregation can filter
	// on it without relying solely on the OTel bridge below.
	var baseHandler slog.Handler
	if cfg.Format == "json" {
		baseHandler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		baseHandler = slog.NewTextHandler(os.Stdout, opts)
	}
	stdoutHandler := (&SpanContextHandler{Handler: baseHandler}).WithAttrs(
		[]slog.Attr{slog.String("service.name", cfg.ServiceName)},
	)

	// 2. OTel handler; otelslog extracts trace context automatically.
	otelHandler := otelslog.NewHandler(cfg.ServiceName)

	// 3. Tee to both.
	tee := NewTeeHandler(stdoutHandler, otelHandler)

	slog.SetDefault(slog.New(tee))
}

// SpanContextHandler enriches a record with the trace/span IDs of the
// span active in its context, so stdout logs can be correlated with
// traces without requiring the OTel log bridge.
type SpanContextHandler struct {
	slog.Handler
}

func (h *SpanContextHandler) Handle(ctx context.Context, r slog.Record) error {
	span := trace.SpanFromContext(ctx)
	if span.SpanContext().IsValid() {
		r.AddAttrs(
			slog.String("trace_id", span.SpanContext().TraceID().String()),
			slog.String("span_id", span.SpanContext().SpanID().String()),
		)
	}
	return h.Handler.Handle(ctx, r)
}

func (h *SpanContextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &SpanContextHandler{Handler: h.Handler.WithAttrs(attrs)}
}

func (h *SpanContextHandler) WithGroup(name string) slog.Handler {
	return &SpanContextHandler{Handler: h.Handler.WithGroup(name)}
}

// TeeHandler fans a record out to every wrapped handler, best-effort.
type TeeHandler struct {
	handlers []slog.Handler
}

func NewTeeHandler(handlers ...slog.Handler) slog.Handler {
	return &TeeHandler{handlers: handlers}
}

func (h *TeeHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, handler := range h.handlers {
		if handler.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (h *TeeHandler) Handle(ctx context.Context, r slog.Record) error {
	for _, handler := range h.handlers {
		if handler.Enabled(ctx, r.Level) {
			// Best-effort: one handler's failure must not suppress the rest.
			_ = handler.Handle(ctx, r)
		}
	}
	return nil
}

func (h *TeeHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	handlers := make([]slog.Handler, len(h.handlers))
	for i, handler := range h.handlers {
		handlers[i] = handler.WithAttrs(attrs)
	}
	return NewTeeHandler(handlers...)
}

func (h *TeeHandler) WithGroup(name string) slog.Handler {
	handlers := make([]slog.Handler, len(h.handlers))
	for i, handler := range h.handlers {
		handlers[i] = handler.WithGroup(name)
	}
	return NewTeeHandler(handlers...)
}
