package logger

import (
	"log/slog"
	"os"
	"sync"
)

var (
	mu  sync.Mutex
	def *slog.Logger
)

// Init configures the process-wide logger. Called once at startup;
// later calls replace the handler.
func Init(level string, json bool) {
	opts := &slog.HandlerOptions{Level: parseLevel(level)}

	var h slog.Handler
	if json {
		h = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		h = slog.NewTextHandler(os.Stdout, opts)
	}

	mu.Lock()
	def = slog.New(h)
	slog.SetDefault(def)
	mu.Unlock()
}

func parseLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Get returns the process logger, initializing defaults if Init was never called.
func Get() *slog.Logger {
	mu.Lock()
	l := def
	mu.Unlock()
	if l == nil {
		Init("info", false)
		return Get()
	}
	return l
}

// With returns a child logger carrying the given attributes,
// typically With("component", "bot").
func With(args ...any) *slog.Logger {
	return Get().With(args...)
}

func Debug(msg string, args ...any) { Get().Debug(msg, args...) }
func Info(msg string, args ...any)  { Get().Info(msg, args...) }
func Warn(msg string, args ...any)  { Get().Warn(msg, args...) }
func Error(msg string, args ...any) { Get().Error(msg, args...) }

// Fatal logs at error level and terminates the process.
func Fatal(msg string, args ...any) {
	Get().Error(msg, args...)
	os.Exit(1)
}
