package logger

import (
	"context"
	"io"
	"log/slog"
	"os"

	"go.opentelemetry.io/contrib/bridges/otelslog"
	"go.opentelemetry.io/otel/log/global"
)

// Options configures the process logger.
type Options struct {
	Level       string
	ServiceName string
	// EnableOTel also exports records through the global OTel logger provider.
	EnableOTel bool
	// Output defaults to stdout. CLI commands pass stderr.
	Output io.Writer
}

// New creates a basic JSON logger (stdout only)
func New(level string) *slog.Logger {
	return NewWithOptions(Options{Level: level})
}

// NewWithOptions creates a logger with optional OTel support
func NewWithOptions(opts Options) *slog.Logger {
	out := opts.Output
	if out == nil {
		out = os.Stdout
	}
	level := parseLevel(opts.Level)

	var handler slog.Handler
	if opts.EnableOTel {
		handler = NewMultiHandler(out, level, opts.ServiceName)
	} else {
		jsonHandler := slog.NewJSONHandler(out, &slog.HandlerOptions{Level: level})
		handler = NewTraceContextHandler(jsonHandler)
	}

	l := slog.New(handler)
	l.Debug("Logger initialized", "otel_enabled", opts.EnableOTel, "level", level.String())
	return l
}

// MultiHandler sends logs to multiple handlers
type MultiHandler struct {
	handlers []slog.Handler
}

// NewMultiHandler creates a handler that writes JSON to out and exports via the otelslog bridge
func NewMultiHandler(out io.Writer, level slog.Level, serviceName string) *MultiHandler {
	jsonHandler := slog.NewJSONHandler(out, &slog.HandlerOptions{Level: level})
	stdoutHandler := NewTraceContextHandler(jsonHandler)

	if serviceName == "" {
		serviceName = "quietly-stated"
	}
	otelHandler := otelslog.NewHandler(
		serviceName,
		otelslog.WithLoggerProvider(global.GetLoggerProvider()),
	)

	return &MultiHandler{
		handlers: []slog.Handler{
			stdoutHandler,
			otelHandler,
		},
	}
}

func (h *MultiHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, handler := range h.handlers {
		if handler.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (h *MultiHandler) Handle(ctx context.Context, r slog.Record) error {
	for _, handler := range h.handlers {
		if handler.Enabled(ctx, r.Level) {
			_ = handler.Handle(ctx, r.Clone())
		}
	}
	return nil
}

func (h *MultiHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	newHandlers := make([]slog.Handler, len(h.handlers))
	for i, handler := range h.handlers {
		newHandlers[i] = handler.WithAttrs(attrs)
	}
	return &MultiHandler{handlers: newHandlers}
}

func (h *MultiHandler) WithGroup(name string) slog.Handler {
	newHandlers := make([]slog.Handler, len(h.handlers))
	for i, handler := range h.handlers {
		newHandlers[i] = handler.WithGroup(name)
	}
	return &MultiHandler{handlers: newHandlers}
}

func parseLevel(level string) slog.Level {
	switch level {
	case "debug", "DEBUG":
		return slog.LevelDebug
	case "warn", "WARN", "warning", "WARNING":
		return slog.LevelWarn
	case "error", "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
