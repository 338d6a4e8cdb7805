// Package rlog builds per-component zerolog loggers, following the
// convention used throughout the teacher repository's iceberg package
// (logger.With().Str(...).Logger() per subsystem rather than a global).
package rlog

import (
	"os"

	"github.com/rs/zerolog"
)

// New returns a logger tagged with component, writing to stderr.
func New(component string) zerolog.Logger {
	return zerolog.New(os.Stderr).With().
		Timestamp().
		Str("component", component).
		Logger()
}

// Child derives a logger from an existing one, tagging an additional field.
func Child(l zerolog.Logger, key, value string) zerolog.Logger {
	return l.With().Str(key, value).Logger()
}
