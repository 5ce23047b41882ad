// Package logging configures zerolog output for the CLI and provides the
// hit-level event used to report findings.
package logging

import (
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Setup initializes the global logger. With jsonOutput, findings are emitted
// as machine-readable events with "level":"hit"; otherwise a human console
// writer is used.
func Setup(jsonOutput bool) {
	if jsonOutput {
		log.Logger = zerolog.New(globalHitWriter()).With().Timestamp().Logger()
	} else {
		output := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
		log.Logger = zerolog.New(output).With().Timestamp().Logger()
	}
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
}

// SetLogLevel raises verbosity when requested.
func SetLogLevel(verbose bool) {
	if verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
		log.Debug().Msg("Verbose log output enabled")
	}
}

// ParseLevel extends zerolog's ParseLevel to support "hit".
func ParseLevel(levelStr string) (zerolog.Level, error) {
	if levelStr == "hit" {
		return HitLevel, nil
	}
	level, err := zerolog.ParseLevel(levelStr)
	if err != nil {
		return level, fmt.Errorf("parsing log level: %w", err)
	}
	return level, nil
}
