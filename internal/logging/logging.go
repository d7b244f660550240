package logging

import (
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/natefinch/lumberjack.v2"

	"threadterm/internal/config"
)

type Options struct {
	Level  string
	Format string
	// File receives a rotated copy of the log. Empty disables it.
	File string
	// Stderr is off while the TUI owns the terminal.
	Stderr bool
}

func FromConfig(cfg config.LogConfig, stderr bool) Options {
	return Options{Level: cfg.Level, Format: cfg.Format, File: cfg.File, Stderr: stderr}
}

// Init configures the global logger and returns it.
func Init(opts Options) zerolog.Logger {
	var writers []io.Writer
	if opts.Stderr {
		// default is json
		if opts.Format == "text" {
			writers = append(writers, zerolog.ConsoleWriter{Out: os.Stderr})
		} else {
			writers = append(writers, os.Stderr)
		}
	}

	if opts.File != "" {
		writers = append(writers, &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    10, // megabytes
			MaxBackups: 3,
			MaxAge:     28, //days
		})
	}

	var out io.Writer = io.Discard
	switch len(writers) {
	case 0:
	case 1:
		out = writers[0]
	default:
		out = zerolog.MultiLevelWriter(writers...)
	}

	zerolog.SetGlobalLevel(parseLevel(opts.Level))
	log.Logger = zerolog.New(out).With().Timestamp().Logger()
	return log.Logger
}

func parseLevel(level string) zerolog.Level {
	switch level {
	case "debug":
		return zerolog.DebugLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "fatal":
		return zerolog.FatalLevel
	case "disabled":
		return zerolog.Disabled
	}
	return zerolog.InfoLevel
}
