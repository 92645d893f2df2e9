package errors

import (
	"fmt"
	"io"
	"log/slog"
	"os"
)

var levels = map[string]slog.Level{
	"debug": slog.LevelDebug,
	"info":  slog.LevelInfo,
	"warn":  slog.LevelWarn,
	"error": slog.LevelError,
}

// Logger is a JSON slog logger that knows how to expand an AppError into
// log attributes.
type Logger struct {
	logger *slog.Logger
}

// NewLogger writes JSON records at or above level to stdout.
func NewLogger(level slog.Level) *Logger {
	return newLogger(os.Stdout, level)
}

func newLogger(w io.Writer, level slog.Level) *Logger {
	return &Logger{logger: slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))}
}

// NewDiscardLogger returns a logger that drops every record.
func NewDiscardLogger() *Logger {
	return &Logger{logger: slog.New(slog.DiscardHandler)}
}

// New builds a stdout logger for one of debug, info, warn or error.
func New(level string) (*Logger, error) {
	lvl, ok := levels[level]
	if !ok {
		return nil, fmt.Errorf("invalid log level: %s", level)
	}
	return NewLogger(lvl), nil
}

// LogError logs err at error level. An AppError contributes its type,
// kind, code, message, cause and context as attributes.
func (l *Logger) LogError(err error, message string, args ...any) {
	appErr, ok := asAppError(err)
	if !ok {
		l.logger.Error(message, append([]any{"error", err.Error()}, args...)...)
		return
	}

	attrs := []any{
		"error_type", appErr.Type,
		"error_kind", appErr.Kind,
		"error_code", appErr.Code,
		"error_message", appErr.Message,
	}
	if appErr.Cause != nil {
		attrs = append(attrs, "cause", appErr.Cause.Error())
	}
	for key, value := range appErr.Context {
		attrs = append(attrs, key, value)
	}
	l.logger.Error(message, append(attrs, args...)...)
}

func (l *Logger) Info(message string, args ...any)  { l.logger.Info(message, args...) }
func (l *Logger) Debug(message string, args ...any) { l.logger.Debug(message, args...) }
func (l *Logger) Warn(message string, args ...any)  { l.logger.Warn(message, args...) }

// With returns a logger that adds args to every record.
func (l *Logger) With(args ...any) *Logger {
	return &Logger{logger: l.logger.With(args...)}
}
