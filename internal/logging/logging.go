// Package logging builds the daemon's structured logger.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

type Options struct {
	Level     string
	File      string // empty logs to stderr
	MaxSizeMB int
	MaxFiles  int
}

// Logger bundles the slog logger with its adjustable level and output.
type Logger struct {
	*slog.Logger
	level  *slog.LevelVar
	closer io.Closer
}

// New creates a text logger writing to stderr or to a rotating file.
func New(opts Options) (*Logger, error) {
	var out io.Writer = os.Stderr
	var closer io.Closer
	if opts.File != "" {
		f, err := OpenRotatingFile(opts.File, opts.MaxSizeMB, opts.MaxFiles)
		if err != nil {
			return nil, err
		}
		out, closer = f, f
	}

	level := new(slog.LevelVar)
	level.Set(ParseLevel(opts.Level))
	handler := slog.NewTextHandler(out, &slog.HandlerOptions{Level: level})

	return &Logger{Logger: slog.New(handler), level: level, closer: closer}, nil
}

// SetLevel changes the level of every logger derived from l.
func (l *Logger) SetLevel(s string) {
	l.level.Set(ParseLevel(s))
}

// Level returns the current level.
func (l *Logger) Level() slog.Level {
	return l.level.Level()
}

func (l *Logger) Close() error {
	if l.closer == nil {
		return nil
	}
	return l.closer.Close()
}

// ParseLevel converts a config string to a slog level. Unknown values map to info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
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
