// Package logging builds the slog loggers used by the daemon and CLI.
// Output goes to any mix of stdout, stderr, and log files, in either a
// human-oriented console format or line-delimited JSON.
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"strings"
	"sync"
	"time"
)

const (
	// FormatConsole renders compact single-line records for terminals.
	FormatConsole = "console"
	// FormatJSON renders one JSON object per record for log shippers.
	FormatJSON = "json"
)

// Options controls logger construction.
type Options struct {
	Level            string
	Format           string
	OutputPaths      []string
	ErrorOutputPaths []string
	Development      bool
}

// New builds a logger from explicit options. Paths may be "stdout",
// "stderr", or filesystem paths; parent directories must already exist.
func New(opts Options) (*slog.Logger, error) {
	level, err := parseLevel(opts.Level)
	if err != nil {
		return nil, err
	}
	format := opts.Format
	if format == "" {
		format = FormatConsole
	}
	paths := opts.OutputPaths
	if len(paths) == 0 {
		paths = []string{"stdout"}
	}
	out, err := openWriters(paths)
	if err != nil {
		return nil, err
	}

	var handler slog.Handler
	switch format {
	case FormatConsole:
		handler = newConsoleHandler(out, level)
	case FormatJSON:
		handler = newJSONHandler(out, level, opts.Development)
	default:
		return nil, fmt.Errorf("unknown log format %q", opts.Format)
	}
	return slog.New(handler), nil
}

func parseLevel(raw string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", raw)
	}
}

func openWriters(paths []string) (io.Writer, error) {
	writers := make([]io.Writer, 0, len(paths))
	for _, path := range paths {
		switch path {
		case "stdout":
			writers = append(writers, os.Stdout)
		case "stderr":
			writers = append(writers, os.Stderr)
		default:
			file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
			if err != nil {
				return nil, fmt.Errorf("open log output %s: %w", path, err)
			}
			writers = append(writers, file)
		}
	}
	if len(writers) == 1 {
		return writers[0], nil
	}
	return io.MultiWriter(writers...), nil
}

func newJSONHandler(out io.Writer, level slog.Level, development bool) slog.Handler {
	return slog.NewJSONHandler(out, &slog.HandlerOptions{
		Level:     level,
		AddSource: development,
		ReplaceAttr: func(groups []string, attr slog.Attr) slog.Attr {
			if len(groups) > 0 {
				return attr
			}
			switch attr.Key {
			case slog.TimeKey:
				attr.Key = "ts"
				attr.Value = slog.StringValue(attr.Value.Time().UTC().Format(time.RFC3339Nano))
			case slog.LevelKey:
				attr.Key = "level"
				attr.Value = slog.StringValue(strings.ToLower(attr.Value.String()))
			case slog.MessageKey:
				attr.Key = "msg"
			}
			return attr
		},
	})
}

// consoleHandler renders "HH:MM:SS LEVEL [component] message key=value".
// Attributes added via With are replayed on every record, with component
// pulled out to the bracketed prefix.
type consoleHandler struct {
	mu    *sync.Mutex
	out   io.Writer
	level slog.Level
	attrs []slog.Attr
	group string
}

func newConsoleHandler(out io.Writer, level slog.Level) *consoleHandler {
	return &consoleHandler{mu: &sync.Mutex{}, out: out, level: level}
}

func (h *consoleHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

func (h *consoleHandler) Handle(_ context.Context, record slog.Record) error {
	component := ""
	fields := make(map[string]string, record.NumAttrs()+len(h.attrs))
	keys := make([]string, 0, record.NumAttrs()+len(h.attrs))
	collect := func(attr slog.Attr) {
		key := attr.Key
		if h.group != "" {
			key = h.group + "." + key
		}
		if key == FieldComponent {
			component = attr.Value.String()
			return
		}
		if _, seen := fields[key]; !seen {
			keys = append(keys, key)
		}
		fields[key] = attr.Value.String()
	}
	for _, attr := range h.attrs {
		collect(attr)
	}
	record.Attrs(func(attr slog.Attr) bool {
		collect(attr)
		return true
	})
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(record.Time.Format("15:04:05"))
	b.WriteByte(' ')
	b.WriteString(record.Level.String())
	if component != "" {
		b.WriteString(" [")
		b.WriteString(component)
		b.WriteByte(']')
	}
	b.WriteByte(' ')
	b.WriteString(record.Message)
	for _, key := range keys {
		b.WriteByte(' ')
		b.WriteString(key)
		b.WriteByte('=')
		b.WriteString(fields[key])
	}
	b.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.out, b.String())
	return err
}

func (h *consoleHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := *h
	clone.attrs = append(append([]slog.Attr{}, h.attrs...), attrs...)
	return &clone
}

func (h *consoleHandler) WithGroup(name string) slog.Handler {
	clone := *h
	if clone.group == "" {
		clone.group = name
	} else {
		clone.group = clone.group + "." + name
	}
	return &clone
}
