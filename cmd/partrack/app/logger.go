package app

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"github.com/partrack/partrack/pkg/logging"
)

// NewLogger creates a configured logger. Log level precedence, highest
// first:
//  1. --log-level flag
//  2. -v/--verbose (shortcut for debug)
//  3. -q/--quiet (shortcut for warn)
//  4. LOG_LEVEL environment variable
//  5. Default (info)
func NewLogger(config *Config) zerolog.Logger {
	level := logging.ParseLevel(determineLogLevel(config))

	var logger zerolog.Logger
	if os.Getenv("LOG_FORMAT") == "json" {
		logger = logging.NewJSON(os.Stderr)
	} else {
		logger = logging.NewConsole(config.NoColor)
	}
	return logger.Level(level)
}

func determineLogLevel(config *Config) string {
	if config.LogLevel != "" {
		return validateLogLevel(config.LogLevel)
	}
	if config.Verbose && config.Quiet {
		fmt.Fprintln(os.Stderr, "Warning: both --verbose and --quiet specified, using --quiet")
		return "warn"
	}
	if config.Verbose {
		return "debug"
	}
	if config.Quiet {
		return "warn"
	}
	return "info"
}

// validateLogLevel returns the level when valid and "info" otherwise.
func validateLogLevel(level string) string {
	switch level {
	case "trace", "debug", "info", "warn", "error":
		return level
	}
	fmt.Fprintf(os.Stderr, "Warning: invalid log level %q, using \"info\"\n", level)
	return "info"
}
