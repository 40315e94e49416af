// Package logging builds the root zerolog logger from the CLI flags. The
// logger is passed into components explicitly; nothing logs through a
// package-level singleton.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

// Options mirror the shared CLI flags.
type Options struct {
	Level string // debug, info, warn, error
	File  string // optional log file, truncated on open
	Quiet bool   // suppress the console writer
}

// New returns the root logger and a close function for the optional log
// file. With quiet set and no file, logging is discarded entirely.
func New(opts Options) (zerolog.Logger, func(), error) {
	level, err := zerolog.ParseLevel(strings.ToLower(opts.Level))
	if err != nil {
		return zerolog.Nop(), nil, fmt.Errorf("logging: invalid level %q: %w", opts.Level, err)
	}

	var writers []io.Writer
	if !opts.Quiet {
		writers = append(writers, zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"})
	}
	closeFile := func() {}
	if opts.File != "" {
		f, err := os.Create(opts.File)
		if err != nil {
			return zerolog.Nop(), nil, fmt.Errorf("logging: open %s: %w", opts.File, err)
		}
		writers = append(writers, f)
		closeFile = func() { _ = f.Close() }
	}
	if len(writers) == 0 {
		return zerolog.Nop().Level(zerolog.Disabled), closeFile, nil
	}

	logger := zerolog.New(zerolog.MultiLevelWriter(writers...)).
		Level(level).
		With().Timestamp().Logger()
	return logger, closeFile, nil
}
