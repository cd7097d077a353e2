// Package logging builds the structured loggers chronoflow's commands
// hand to the scheduler and registrar.
package logging

import (
	"context"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/lmittmann/tint"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options configures New.
type Options struct {
	// Level is the console log level ("debug", "info", "warn", "error").
	Level string
	// FilePath, if set, also writes JSON-formatted records to a rotated
	// log file via lumberjack.
	FilePath string
	// NoColor disables tint's ANSI coloring (useful for non-tty output).
	NoColor bool
}

// New builds a slog.Logger writing colorized, human-readable records to
// stdout and, if Options.FilePath is set, JSON records to a rotating log
// file alongside it.
func New(o Options) (*slog.Logger, func() error) {
	level := levelFromString(o.Level)

	console := tint.NewHandler(os.Stdout, &tint.Options{
		Level:      level,
		TimeFormat: time.Kitchen,
		NoColor:    o.NoColor,
	})

	var handler slog.Handler = console
	closer := func() error { return nil }

	if o.FilePath != "" {
		file := &lumberjack.Logger{
			Filename:   o.FilePath,
			MaxSize:    10,
			MaxBackups: 3,
			MaxAge:     28,
			Compress:   true,
		}
		fileHandler := slog.NewJSONHandler(file, &slog.HandlerOptions{Level: level})
		handler = &multiHandler{handlers: []slog.Handler{console, fileHandler}}
		closer = file.Close
	}

	return slog.New(handler), closer
}

func levelFromString(s string) slog.Level {
	switch strings.ToLower(s) {
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

// multiHandler fans a record out to every wrapped handler, skipping any
// that wouldn't accept it at its own level.
type multiHandler struct {
	handlers []slog.Handler
}

func (h *multiHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, handler := range h.handlers {
		if handler.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (h *multiHandler) Handle(ctx context.Context, r slog.Record) error {
	for _, handler := range h.handlers {
		if handler.Enabled(ctx, r.Level) {
			if err := handler.Handle(ctx, r.Clone()); err != nil {
				return err
			}
		}
	}
	return nil
}

func (h *multiHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	out := make([]slog.Handler, len(h.handlers))
	for i, handler := range h.handlers {
		out[i] = handler.WithAttrs(attrs)
	}
	return &multiHandler{handlers: out}
}

func (h *multiHandler) WithGroup(name string) slog.Handler {
	out := make([]slog.Handler, len(h.handlers))
	for i, handler := range h.handlers {
		out[i] = handler.WithGroup(name)
	}
	return &multiHandler{handlers: out}
}
