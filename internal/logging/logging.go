// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package logging builds the zerolog logger shared by every taxease
// component. Records go to a size-rotated file so they never interleave
// with the terminal UI; one-shot commands may add a console sink.
package logging

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options configures the logger.
type Options struct {
	// Level is a zerolog level name. Unknown names mean info.
	Level string

	// Path is the log file. Empty disables the file sink.
	Path string

	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int

	// Console, when set, receives human-readable output as well.
	Console io.Writer
}

// Logger is a configured logger plus the resources behind it.
type Logger struct {
	zerolog.Logger
	file *lumberjack.Logger
}

// New builds a logger from opts. With neither a file nor a console sink
// the logger discards everything.
func New(opts Options) (*Logger, error) {
	var writers []io.Writer
	l := &Logger{}

	if opts.Path != "" {
		if err := os.MkdirAll(filepath.Dir(opts.Path), 0700); err != nil {
			return nil, err
		}
		l.file = &lumberjack.Logger{
			Filename:   opts.Path,
			MaxSize:    opts.MaxSizeMB,
			MaxBackups: opts.MaxBackups,
			MaxAge:     opts.MaxAgeDays,
			Compress:   false,
		}
		writers = append(writers, l.file)
	}
	if opts.Console != nil {
		writers = append(writers, zerolog.ConsoleWriter{Out: opts.Console, TimeFormat: time.Kitchen})
	}

	var out io.Writer
	switch len(writers) {
	case 0:
		l.Logger = zerolog.Nop()
		return l, nil
	case 1:
		out = writers[0]
	default:
		out = zerolog.MultiLevelWriter(writers...)
	}

	l.Logger = zerolog.New(out).
		Level(ParseLevel(opts.Level)).
		With().
		Timestamp().
		Int("pid", os.Getpid()).
		Logger()
	return l, nil
}

// Close flushes and closes the log file, if any.
func (l *Logger) Close() error {
	if l.file == nil {
		return nil
	}
	return l.file.Close()
}

// Component returns a child logger tagged with a component name.
func (l *Logger) Component(name string) *zerolog.Logger {
	child := l.With().Str("component", name).Logger()
	return &child
}

// ParseLevel maps a level name to a zerolog level, defaulting to info.
func ParseLevel(s string) zerolog.Level {
	if strings.EqualFold(strings.TrimSpace(s), "disabled") {
		return zerolog.Disabled
	}
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(s)))
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return lvl
}

// Nop returns a logger that discards everything.
func Nop() *Logger {
	return &Logger{Logger: zerolog.Nop()}
}
