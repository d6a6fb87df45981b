// Package obs wires the dataplane's structured logging. Every long-lived
// component receives a *slog.Logger from here instead of reaching for
// fmt.Println or the stdlib "log" package directly.
package obs

import (
	"io"
	"log/slog"
	"os"

	"github.com/lmittmann/tint"
)

// NewLogger builds a tint-backed slog.Logger writing to w (os.Stderr when
// w is nil), at the given level ("debug", "info", "warn", "error").
func NewLogger(w io.Writer, level string) *slog.Logger {
	if w == nil {
		w = os.Stderr
	}
	return slog.New(tint.NewHandler(w, &tint.Options{
		Level:      parseLevel(level),
		TimeFormat: "15:04:05.000",
	}))
}

func parseLevel(level string) slog.Level {
	switch level {
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

// Component returns a child logger tagged with the owning component's name,
// mirroring the per-component counters every §4 component reports under.
func Component(base *slog.Logger, name string) *slog.Logger {
	if base == nil {
		base = NewLogger(nil, "info")
	}
	return base.With("component", name)
}
