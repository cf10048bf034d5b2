package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"mercator-hq/predicate/pkg/config"
)

// Option adjusts the handler options of a logger built by New.
type Option func(*slog.HandlerOptions)

// Verbose lowers the level to debug whatever the configuration says.
func Verbose() Option {
	return func(o *slog.HandlerOptions) { o.Level = slog.LevelDebug }
}

var handlers = map[string]func(io.Writer, *slog.HandlerOptions) slog.Handler{
	"":     func(w io.Writer, o *slog.HandlerOptions) slog.Handler { return slog.NewTextHandler(w, o) },
	"text": func(w io.Writer, o *slog.HandlerOptions) slog.Handler { return slog.NewTextHandler(w, o) },
	"json": func(w io.Writer, o *slog.HandlerOptions) slog.Handler { return slog.NewJSONHandler(w, o) },
}

// New builds a logger from the telemetry.logging section, writing to w
// (os.Stderr when nil).
func New(cfg config.LoggingConfig, w io.Writer, opts ...Option) (*slog.Logger, error) {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	newHandler, ok := handlers[strings.ToLower(cfg.Format)]
	if !ok {
		return nil, fmt.Errorf("unknown log format %q", cfg.Format)
	}
	if w == nil {
		w = os.Stderr
	}

	ho := &slog.HandlerOptions{Level: level, AddSource: cfg.AddSource}
	for _, opt := range opts {
		opt(ho)
	}
	return slog.New(newHandler(w, ho)), nil
}

// WithComponent tags logger with a component name. A nil logger is
// replaced by slog.Default().
func WithComponent(logger *slog.Logger, component string) *slog.Logger {
	if logger == nil {
		logger = slog.Default()
	}
	return logger.With("component", component)
}

// Discard returns a logger that drops every record.
func Discard() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// ParseLevel reads a level name as slog does, also accepting "warning".
// An empty name is info.
func ParseLevel(name string) (slog.Level, error) {
	var level slog.Level
	switch strings.ToLower(name) {
	case "":
		return slog.LevelInfo, nil
	case "warning":
		name = "warn"
	}
	if err := level.UnmarshalText([]byte(name)); err != nil {
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", name)
	}
	return level, nil
}
