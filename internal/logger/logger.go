// Package logger configures the process-wide zerolog logger.
package logger

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Init sets up console output and the global level. Call once from main.
func Init(debug bool) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	if debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}

// Get returns a logger tagged with the given component name.
func Get(component string) zerolog.Logger {
	return log.With().Str("component", component).Logger()
}
