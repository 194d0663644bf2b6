package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"formarter/compliance/pkg/config"
)

// LogFormat represents the output format for logs.
type LogFormat string

const (
	// FormatJSON outputs logs in JSON format.
	FormatJSON LogFormat = "json"
	// FormatText outputs logs in logfmt-style text.
	FormatText LogFormat = "text"
)

// Config contains configuration for the Logger.
type Config struct {
	// Level is the minimum log level ("debug", "info", "warn", "error")
	Level string

	// Format is the output format ("json", "text")
	Format string

	// AddSource includes file and line number in logs
	AddSource bool

	// RedactPII enables PII redaction of attribute values
	RedactPII bool

	// RedactPatterns contains custom PII redaction patterns
	RedactPatterns []config.RedactPattern

	// Writer is the output writer (defaults to os.Stderr)
	Writer io.Writer
}

// FromConfig converts the telemetry logging section into a Config.
func FromConfig(cfg *config.LoggingConfig) Config {
	return Config{
		Level:          cfg.Level,
		Format:         cfg.Format,
		AddSource:      cfg.AddSource,
		RedactPII:      cfg.RedactPII,
		RedactPatterns: cfg.RedactPatterns,
	}
}

// Logger is a structured logger with PII redaction and context fields.
// It wraps a *slog.Logger; Slog returns it for installation with
// slog.SetDefault so that component loggers share the same handler.
type Logger struct {
	slog     *slog.Logger
	redactor *Redactor
	level    slog.Level
	format   LogFormat
}

// New creates a new Logger with the given configuration.
func New(cfg Config) (*Logger, error) {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}
	format, err := parseFormat(cfg.Format)
	if err != nil {
		return nil, fmt.Errorf("invalid log format: %w", err)
	}

	writer := cfg.Writer
	if writer == nil {
		writer = os.Stderr
	}

	var redactor *Redactor
	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: cfg.AddSource,
	}
	if cfg.RedactPII {
		redactor = NewRedactor(cfg.RedactPatterns)
		opts.ReplaceAttr = redactor.ReplaceAttr
	}

	var handler slog.Handler
	switch format {
	case FormatText:
		handler = slog.NewTextHandler(writer, opts)
	default:
		handler = slog.NewJSONHandler(writer, opts)
	}

	return &Logger{
		slog:     slog.New(&contextHandler{next: handler}),
		redactor: redactor,
		level:    level,
		format:   format,
	}, nil
}

// Slog returns the underlying slog logger.
func (l *Logger) Slog() *slog.Logger {
	return l.slog
}

// Redactor returns the PII redactor, or nil when redaction is disabled.
func (l *Logger) Redactor() *Redactor {
	return l.redactor
}

// Level returns the minimum level.
func (l *Logger) Level() slog.Level {
	return l.level
}

// With returns a logger with additional fields.
func (l *Logger) With(args ...any) *Logger {
	c := *l
	c.slog = l.slog.With(args...)
	return &c
}

// Debug logs a debug message.
func (l *Logger) Debug(msg string, args ...any) { l.slog.Debug(msg, args...) }

// Info logs an info message.
func (l *Logger) Info(msg string, args ...any) { l.slog.Info(msg, args...) }

// Warn logs a warning message.
func (l *Logger) Warn(msg string, args ...any) { l.slog.Warn(msg, args...) }

// Error logs an error message.
func (l *Logger) Error(msg string, args ...any) { l.slog.Error(msg, args...) }

// InfoContext logs an info message with the context's audit fields.
func (l *Logger) InfoContext(ctx context.Context, msg string, args ...any) {
	l.slog.InfoContext(ctx, msg, args...)
}

// ErrorContext logs an error message with the context's audit fields.
func (l *Logger) ErrorContext(ctx context.Context, msg string, args ...any) {
	l.slog.ErrorContext(ctx, msg, args...)
}

// ParseLevel parses a log level name, case-insensitively.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level: %s", s)
	}
}

func parseFormat(s string) (LogFormat, error) {
	switch strings.ToLower(s) {
	case "json", "":
		return FormatJSON, nil
	case "text":
		return FormatText, nil
	default:
		return FormatJSON, fmt.Errorf("unknown log format: %s", s)
	}
}
