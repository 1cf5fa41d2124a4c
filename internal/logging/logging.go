// Package logging configures the process-wide zerolog logger used by the
// statement populator and other components that need to surface
// non-fatal, collected failures (spec.md §4.9's "suppressed on first
// failure, surfaced on retry failure" policy).
package logging

import (
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Setup configures the global zerolog logger at the given level
// ("debug", "info", "warn", "error", "disabled"; unrecognized values
// default to "info") and returns it. Output is human-readable when pretty is true,
// newline-delimited JSON otherwise.
func Setup(level string, pretty bool) zerolog.Logger {
	zerolog.SetGlobalLevel(parseLevel(level))

	var w = os.Stdout
	logger := zerolog.New(w).With().Timestamp().Logger()
	if pretty {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: w}).With().Timestamp().Logger()
	}

	log.Logger = logger
	return logger
}

func parseLevel(level string) zerolog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zerolog.DebugLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "disabled":
		return zerolog.Disabled
	default:
		return zerolog.InfoLevel
	}
}
