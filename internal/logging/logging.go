// Package logging builds the zerolog loggers used by the CLI and the TUI.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Options selects where and how much to log
type Options struct {
	Level string
	// File, when set, receives JSON lines instead of the console.
	File string
	// Console forces the human-readable writer even when File is empty.
	Console bool
}

// New returns a configured logger and a closer for any file it opened
func New(opts Options) (zerolog.Logger, io.Closer, error) {
	level, err := ParseLevel(opts.Level)
	if err != nil {
		return zerolog.Nop(), nopCloser{}, err
	}

	var (
		out    io.Writer = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}
		closer io.Closer = nopCloser{}
	)

	if opts.File != "" && !opts.Console {
		if err := os.MkdirAll(filepath.Dir(opts.File), 0755); err != nil {
			return zerolog.Nop(), closer, fmt.Errorf("failed to create log directory: %w", err)
		}
		f, err := os.OpenFile(opts.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return zerolog.Nop(), closer, fmt.Errorf("failed to open log file: %w", err)
		}
		out, closer = f, f
	}

	logger := zerolog.New(out).Level(level).With().Timestamp().Logger()
	return logger, closer, nil
}

// ParseLevel accepts zerolog level names; empty means info
func ParseLevel(s string) (zerolog.Level, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	if s == "" {
		return zerolog.InfoLevel, nil
	}
	if s == "warning" {
		s = "warn"
	}
	level, err := zerolog.ParseLevel(s)
	if err != nil {
		return zerolog.InfoLevel, fmt.Errorf("invalid log level %q: %w", s, err)
	}
	return level, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
