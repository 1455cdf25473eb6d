// Package logging builds the zerolog.Logger shared across the module's
// command-line entrypoints, grounded on
// _examples/adred-codev-ws_poc/src/logger.go's NewLogger: level parsing,
// a console-vs-JSON output switch, and a Timestamp().Caller() base logger.
package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"krakenws/config"
)

// New builds a zerolog.Logger from a config.LoggingConfig: level parsed
// case-insensitively (defaulting to info on an unrecognized value), JSON
// output when cfg.JSONFormat is set, a human-readable console writer
// otherwise, and cfg.Output routed to stdout, stderr, or a file path.
func New(cfg config.LoggingConfig) zerolog.Logger {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	var output io.Writer
	switch cfg.Output {
	case "", "stdout":
		output = os.Stdout
	case "stderr":
		output = os.Stderr
	default:
		file, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			output = os.Stdout
		} else {
			output = file
		}
	}

	if !cfg.JSONFormat {
		output = zerolog.ConsoleWriter{Out: output, TimeFormat: time.RFC3339}
	}

	return zerolog.New(output).With().Timestamp().Caller().Str("service", "krakenws").Logger()
}
