package logging

import (
	"context"
	"log/slog"
)

// Standardized structured logging field names shared across stages.
const (
	FieldComponent     = "component"
	FieldDigestID      = "digest_id"
	FieldStage         = "stage"
	FieldEventType     = "event_type"
	FieldErrorHint     = "error_hint"
	FieldCorrelationID = "request_id"
)

type ctxKey int

const (
	digestIDKey ctxKey = iota
	stageKey
	requestIDKey
)

// WithDigestID returns a context carrying the digest id for log correlation.
func WithDigestID(ctx context.Context, digestID int64) context.Context {
	return context.WithValue(ctx, digestIDKey, digestID)
}

// WithStage returns a context carrying the current stage name.
func WithStage(ctx context.Context, stage string) context.Context {
	return context.WithValue(ctx, stageKey, stage)
}

// WithRequestID returns a context carrying a correlation id for one stage execution.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// ContextFields extracts standardized slog attributes from the provided context.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	fields := make([]slog.Attr, 0, 3)
	if id, ok := ctx.Value(digestIDKey).(int64); ok {
		fields = append(fields, slog.Int64(FieldDigestID, id))
	}
	if stage, ok := ctx.Value(stageKey).(string); ok {
		fields = append(fields, slog.String(FieldStage, stage))
	}
	if rid, ok := ctx.Value(requestIDKey).(string); ok {
		fields = append(fields, slog.String(FieldCorrelationID, rid))
	}
	return fields
}

// WithContext returns a logger augmented with structured fields derived from the context.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	fields := ContextFields(ctx)
	if len(fields) == 0 {
		return logger
	}
	return logger.With(attrsToArgs(fields)...)
}
