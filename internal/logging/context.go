package logging

import (
	"context"
	"log/slog"

	"lantern/internal/services"
)

// Shared structured field names. Keeping them here makes log queries
// stable across components.
const (
	FieldComponent     = "component"
	FieldJobID         = "job_id"
	FieldStage         = "stage"
	FieldWorker        = "worker"
	FieldCorrelationID = "correlation_id"
	FieldEventType     = "event_type"
	FieldErrorHint     = "error_hint"
	FieldAlert         = "alert"
	FieldImpact        = "impact"
)

// ContextFields extracts the request annotations carried on ctx as
// logger arguments. Absent annotations produce no fields.
func ContextFields(ctx context.Context) []any {
	if ctx == nil {
		return nil
	}
	fields := make([]any, 0, 8)
	if jobID, ok := services.JobIDFromContext(ctx); ok {
		fields = append(fields, String(FieldJobID, jobID))
	}
	if stage, ok := services.StageFromContext(ctx); ok {
		fields = append(fields, String(FieldStage, stage))
	}
	if worker, ok := services.WorkerFromContext(ctx); ok {
		fields = append(fields, Int(FieldWorker, worker))
	}
	if requestID, ok := services.RequestIDFromContext(ctx); ok {
		fields = append(fields, String(FieldCorrelationID, requestID))
	}
	return fields
}

// WithContext returns a logger whose records carry the ctx annotations.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	fields := ContextFields(ctx)
	if len(fields) == 0 {
		return logger
	}
	return logger.With(fields...)
}
