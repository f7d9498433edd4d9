package tooldispatch

import (
	"io"
	"log/slog"
)

// NewDefaultLogger returns the Logger cmd/reposync wires into the Engine (an
// Engine with no Logger configured falls back to NoopLogger instead): a
// structured key=value writer over slog's text handler, the
// way C360Studio-semspec's config.Loader wraps a *slog.Logger rather than
// hand-rolling a fmt.Fprintf writer itself. Warnf/Infof take a short message
// and alternating key/value pairs, matching slog.Logger.Warn/Info's own
// argument shape.
func NewDefaultLogger(w io.Writer, verbose bool) Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelInfo
	}
	return &slogLogger{
		logger: slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})),
	}
}

type slogLogger struct {
	logger *slog.Logger
}

func (l *slogLogger) Warnf(msg string, args ...any) {
	l.logger.Warn(msg, args...)
}

func (l *slogLogger) Infof(msg string, args ...any) {
	l.logger.Info(msg, args...)
}

// noopLogger discards everything. It is the zero-value-safe fallback a
// package reaches for when its caller never wired a Logger in — analogous
// to the teacher's verbosef being nil-checked before every call.
type noopLogger struct{}

func (noopLogger) Warnf(string, ...any) {}
func (noopLogger) Infof(string, ...any) {}

// NoopLogger is a Logger that discards every call.
var NoopLogger Logger = noopLogger{}
