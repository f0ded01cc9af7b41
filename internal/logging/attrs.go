package logging

import (
	"context"
	"log/slog"
	"time"
)

// Attr aliases slog.Attr so call sites only import this package.
type Attr = slog.Attr

func String(key, value string) Attr          { return slog.String(key, value) }
func Int(key string, value int) Attr         { return slog.Int(key, value) }
func Int64(key string, value int64) Attr     { return slog.Int64(key, value) }
func Bool(key string, value bool) Attr       { return slog.Bool(key, value) }
func Float64(key string, value float64) Attr { return slog.Float64(key, value) }
func Duration(key string, value time.Duration) Attr {
	return slog.Duration(key, value)
}
func Any(key string, value any) Attr { return slog.Any(key, value) }
func Group(key string, args ...any) Attr {
	return slog.Group(key, args...)
}

// Error annotates a record with the error message, tolerating nil.
func Error(err error) Attr {
	if err == nil {
		return slog.String("error", "")
	}
	return slog.String("error", err.Error())
}

// Alert tags a record for operator attention so log searches can key
// on the alert name.
func Alert(name string) Attr {
	return slog.String(FieldAlert, name)
}

// NewComponentLogger stamps every record with the component name used in
// console prefixes and JSON output.
func NewComponentLogger(logger *slog.Logger, component string) *slog.Logger {
	if logger == nil {
		return NewNop()
	}
	return logger.With(String(FieldComponent, component))
}

// NewNop returns a logger that discards everything. Useful as a default
// before configuration loads and in tests.
func NewNop() *slog.Logger {
	return slog.New(noopHandler{})
}

type noopHandler struct{}

func (noopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (noopHandler) Handle(context.Context, slog.Record) error { return nil }
func (noopHandler) WithAttrs([]slog.Attr) slog.Handler        { return noopHandler{} }
func (noopHandler) WithGroup(string) slog.Handler             { return noopHandler{} }
