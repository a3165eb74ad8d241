// Package logger configures the process-wide slog logger.
package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"golang.org/x/term"
)

// Format selects the log output format.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
)

// ParseLevel converts a string log level to slog.Level.
// Valid levels: debug, info, warn, error. Unknown levels fall back to warn.
func ParseLevel(levelStr string) (slog.Level, error) {
	switch strings.ToLower(levelStr) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	case "":
		return slog.LevelWarn, nil
	default:
		return slog.LevelWarn, fmt.Errorf("unknown log level %q", levelStr)
	}
}

// Options configures Init.
type Options struct {
	Level  slog.Level
	Format Format
	Output io.Writer // defaults to os.Stderr
}

// Init installs the default slog logger for the process.
func Init(opts Options) *slog.Logger {
	out := opts.Output
	if out == nil {
		out = os.Stderr
	}

	var handler slog.Handler
	switch opts.Format {
	case FormatJSON:
		handler = slog.NewJSONHandler(out, &slog.HandlerOptions{Level: opts.Level})
	default:
		handler = newConsoleHandler(out, opts.Level)
	}

	l := slog.New(handler)
	slog.SetDefault(l)
	return l
}

// consoleHandler renders compact, optionally colorized log lines for
// interactive use. JSON output goes through the stock slog handler instead.
type consoleHandler struct {
	out      io.Writer
	minLevel slog.Level
	color    bool
	attrs    []slog.Attr
}

func newConsoleHandler(out io.Writer, level slog.Level) *consoleHandler {
	color := false
	if f, ok := out.(*os.File); ok {
		color = term.IsTerminal(int(f.Fd()))
	}
	return &consoleHandler{
		out:      out,
		minLevel: level,
		color:    color,
	}
}

func (h *consoleHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.minLevel
}

func (h *consoleHandler) Handle(_ context.Context, record slog.Record) error {
	var sb strings.Builder

	sb.WriteString(record.Time.Format(time.TimeOnly))
	sb.WriteByte(' ')

	label := record.Level.String()
	if h.color {
		sb.WriteString(levelColor(record.Level))
		sb.WriteString(label)
		sb.WriteString("\033[0m")
	} else {
		sb.WriteString(label)
	}

	sb.WriteByte(' ')
	sb.WriteString(record.Message)

	for _, attr := range h.attrs {
		writeAttr(&sb, attr)
	}
	record.Attrs(func(attr slog.Attr) bool {
		writeAttr(&sb, attr)
		return true
	})

	sb.WriteByte('\n')
	_, err := io.WriteString(h.out, sb.String())
	return err
}

func (h *consoleHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	merged := make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	merged = append(merged, h.attrs...)
	merged = append(merged, attrs...)
	return &consoleHandler{
		out:      h.out,
		minLevel: h.minLevel,
		color:    h.color,
		attrs:    merged,
	}
}

func (h *consoleHandler) WithGroup(name string) slog.Handler {
	// Groups are flattened; the console output is for humans, not machines.
	return h
}

func writeAttr(sb *strings.Builder, attr slog.Attr) {
	sb.WriteByte(' ')
	sb.WriteString(attr.Key)
	sb.WriteByte('=')
	sb.WriteString(attr.Value.String())
}

func levelColor(level slog.Level) string {
	switch {
	case level >= slog.LevelError:
		return "\033[31m"
	case level >= slog.LevelWarn:
		return "\033[33m"
	case level >= slog.LevelInfo:
		return "\033[36m"
	default:
		return "\033[90m"
	}
}
