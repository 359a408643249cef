// Package logging provides structured logging with zerolog.
package logging

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Config holds logging configuration.
type Config struct {
	Level  string // debug, info, warn, error
	Format string // json, console
}

// Init initializes the global zerolog logger.
func Init(cfg Config) {
	zerolog.TimeFieldFormat = time.RFC3339

	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	var output io.Writer = os.Stdout
	if cfg.Format == "console" {
		output = zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.Kitchen,
		}
	}

	log.Logger = zerolog.New(output).
		With().
		Timestamp().
		Str("service", "voicevault").
		Logger()
}

// WithComponent returns a logger with a component tag.
func WithComponent(component string) zerolog.Logger {
	return log.With().
		Str("component", component).
		Logger()
}

// WithIdentity adds the identity partition to a component logger.
func WithIdentity(logger zerolog.Logger, identityID string) zerolog.Logger {
	return logger.With().
		Str("identityId", identityID).
		Logger()
}

// WithRecording adds identity and recording context to a component
// logger.
func WithRecording(logger zerolog.Logger, identityID, recordingID string) zerolog.Logger {
	return logger.With().
		Str("identityId", identityID).
		Str("recordingId", recordingID).
		Logger()
}
