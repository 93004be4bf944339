// Package logging configures the process-wide zerolog logger.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options controls logger setup
type Options struct {
	Level      string
	File       string
	Production bool
}

// Setup installs the global logger and returns it. Outside production the
// console writer is used on stderr. When File is set, JSON lines are also
// written to a size-rotated file.
func Setup(opts Options) zerolog.Logger {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	zerolog.SetGlobalLevel(ParseLevel(opts.Level))

	var console io.Writer = os.Stderr
	if !opts.Production {
		console = zerolog.ConsoleWriter{Out: os.Stderr}
	}

	out := console
	if opts.File != "" {
		out = zerolog.MultiLevelWriter(console, RotatingFile(opts.File))
	}

	log.Logger = zerolog.New(out).With().Timestamp().Logger()
	return log.Logger
}

// RotatingFile returns a writer that rotates path at 100MB and keeps a week of backups
func RotatingFile(path string) io.WriteCloser {
	return &lumberjack.Logger{
		Filename:   path,
		MaxSize:    100,
		MaxBackups: 7,
		MaxAge:     7,
		Compress:   true,
	}
}

// ParseLevel maps a level name to a zerolog level, defaulting to info
func ParseLevel(level string) zerolog.Level {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || level == "" {
		return zerolog.InfoLevel
	}
	return lvl
}
