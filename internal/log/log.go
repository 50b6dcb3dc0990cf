// Package log provides structured logging for go-facetrack.
// It wraps slog with sensible defaults for production use.
package log

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/lmittmann/tint"
	slogmulti "github.com/samber/slog-multi"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options controls how the global logger is built.
type Options struct {
	Level string // "debug", "info", "warn", "error"

	// JSON forces JSON output. It is also enabled when GO_ENV=production.
	JSON bool

	// File, when set, receives a copy of every record (rotated by size).
	File string

	// Output overrides the console writer (stderr by default).
	Output io.Writer

	// Attrs are attached to every record, e.g. "session", id.
	Attrs []any
}

var (
	logger *slog.Logger
	once   sync.Once
	closer io.Closer
)

// ParseLevel maps a level name to a slog.Level. Unknown names map to info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Init initializes the global logger. Only the first call has an effect.
func Init(opts Options) {
	once.Do(func() {
		logger = New(opts)
		slog.SetDefault(logger)
	})
}

// New builds a logger from opts without touching the global one.
func New(opts Options) *slog.Logger {
	lvl := ParseLevel(opts.Level)

	out := opts.Output
	if out == nil {
		out = os.Stderr
	}

	var handler slog.Handler
	// Use JSON in production, tinted text in development
	if opts.JSON || os.Getenv("GO_ENV") == "production" {
		handler = slog.NewJSONHandler(out, &slog.HandlerOptions{Level: lvl})
	} else {
		handler = tint.NewHandler(out, &tint.Options{
			Level:      lvl,
			TimeFormat: time.TimeOnly,
		})
	}

	if opts.File != "" {
		file := &lumberjack.Logger{
			Filename:   opts.File,
			LocalTime:  true,
			Compress:   true,
			MaxSize:    20, // megabytes
			MaxAge:     7,
			MaxBackups: 3,
		}
		closer = file
		handler = slogmulti.Fanout(handler, slog.NewJSONHandler(file, &slog.HandlerOptions{Level: lvl}))
	}

	l := slog.New(handler)
	if len(opts.Attrs) > 0 {
		l = l.With(opts.Attrs...)
	}
	return l
}

// Close flushes and closes the log file, if one was opened.
func Close() error {
	if closer == nil {
		return nil
	}
	return closer.Close()
}

// L returns the global logger instance.
func L() *slog.Logger {
	if logger == nil {
		Init(Options{Level: "info"})
	}
	return logger
}

// Debug logs at debug level.
func Debug(msg string, args ...any) {
	L().Debug(msg, args...)
}

// Info logs at info level.
func Info(msg string, args ...any) {
	L().Info(msg, args...)
}

// Warn logs at warn level.
func Warn(msg string, args ...any) {
	L().Warn(msg, args...)
}

// Error logs at error level.
func Error(msg string, args ...any) {
	L().Error(msg, args...)
}

// With returns a logger with the given attributes.
func With(args ...any) *slog.Logger {
	return L().With(args...)
}
