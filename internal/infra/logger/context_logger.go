package logger

import (
	"context"
	"log/slog"
)

type ContextKey string

const (
	// Business context keys, prefixed like OTel attributes
	RunIDKey  ContextKey = "quietly.run.id"
	StageKey  ContextKey = "quietly.pipeline.stage"
	SourceKey ContextKey = "quietly.source.origin"
)

// ContextLogger lifts business context values into log fields
type ContextLogger struct {
	logger *slog.Logger
}

func NewContextLogger(base *slog.Logger) *ContextLogger {
	return &ContextLogger{logger: base}
}

// WithContext returns a logger with context values extracted and added as fields
func (cl *ContextLogger) WithContext(ctx context.Context) *slog.Logger {
	var fields []any
	for _, key := range []ContextKey{RunIDKey, StageKey, SourceKey} {
		if v := ctx.Value(key); v != nil {
			fields = append(fields, string(key), v)
		}
	}
	if len(fields) == 0 {
		return cl.logger
	}
	return cl.logger.With(fields...)
}

// WithRunID adds the pipeline run id to context
func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, RunIDKey, runID)
}

// WithStage adds the pipeline stage (ingest, enrich, aggregate) to context
func WithStage(ctx context.Context, stage string) context.Context {
	return context.WithValue(ctx, StageKey, stage)
}

// WithSource adds the source origin being processed to context
func WithSource(ctx context.Context, source string) context.Context {
	return context.WithValue(ctx, SourceKey, source)
}
