package observability

import (
	"context"
	"log/slog"
)

// LogContext holds structured logging context information.
type LogContext struct {
	ProjectID string
	RecordID  string
	Action    string
	UploadID  string
}

// logContextKeyType is used for context values.
type logContextKeyType string

const logContextKey logContextKeyType = "log-context"

// WithProjectID adds a project id to the context.
func WithProjectID(ctx context.Context, projectID string) context.Context {
	lc := extractLogContext(ctx)
	lc.ProjectID = projectID
	return context.WithValue(ctx, logContextKey, lc)
}

// WithRecordID adds a record id to the context.
func WithRecordID(ctx context.Context, recordID string) context.Context {
	lc := extractLogContext(ctx)
	lc.RecordID = recordID
	return context.WithValue(ctx, logContextKey, lc)
}

// WithAction adds the dispatched action name to the context.
func WithAction(ctx context.Context, action string) context.Context {
	lc := extractLogContext(ctx)
	lc.Action = action
	return context.WithValue(ctx, logContextKey, lc)
}

// WithUploadID adds an upload id to the context.
func WithUploadID(ctx context.Context, uploadID string) context.Context {
	lc := extractLogContext(ctx)
	lc.UploadID = uploadID
	return context.WithValue(ctx, logContextKey, lc)
}

// extractLogContext retrieves or creates a LogContext from the context.
func extractLogContext(ctx context.Context) LogContext {
	if lc, ok := ctx.Value(logContextKey).(LogContext); ok {
		return lc
	}
	return LogContext{}
}

// getLogAttrs returns slog attributes from the context's LogContext.
func getLogAttrs(ctx context.Context) []slog.Attr {
	lc := extractLogContext(ctx)
	attrs := []slog.Attr{}

	if lc.ProjectID != "" {
		attrs = append(attrs, slog.String("project.id", lc.ProjectID))
	}
	if lc.RecordID != "" {
		attrs = append(attrs, slog.String("record.id", lc.RecordID))
	}
	if lc.Action != "" {
		attrs = append(attrs, slog.String("action", lc.Action))
	}
	if lc.UploadID != "" {
		attrs = append(attrs, slog.String("upload.id", lc.UploadID))
	}

	return attrs
}

// InfoContext logs an info message with context information.
func InfoContext(ctx context.Context, msg string, attrs ...slog.Attr) {
	contextAttrs := getLogAttrs(ctx)
	allAttrs := append(contextAttrs, attrs...)
	slog.LogAttrs(ctx, slog.LevelInfo, msg, allAttrs...)
}

// WarnContext logs a warning message with context information.
func WarnContext(ctx context.Context, msg string, attrs ...slog.Attr) {
	contextAttrs := getLogAttrs(ctx)
	allAttrs := append(contextAttrs, attrs...)
	slog.LogAttrs(ctx, slog.LevelWarn, msg, allAttrs...)
}

// ErrorContext logs an error message with context information.
func ErrorContext(ctx context.Context, msg string, attrs ...slog.Attr) {
	contextAttrs := getLogAttrs(ctx)
	allAttrs := append(contextAttrs, attrs...)
	slog.LogAttrs(ctx, slog.LevelError, msg, allAttrs...)
}

// DebugContext logs a debug message with context information.
func DebugContext(ctx context.Context, msg string, attrs ...slog.Attr) {
	contextAttrs := getLogAttrs(ctx)
	allAttrs := append(contextAttrs, attrs...)
	slog.LogAttrs(ctx, slog.LevelDebug, msg, allAttrs...)
}

// GetContext returns the structured log context from the provided context.
func GetContext(ctx context.Context) LogContext {
	return extractLogContext(ctx)
}
