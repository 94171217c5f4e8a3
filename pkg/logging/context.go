package logging

import "github.com/rs/zerolog"

// WithSource tags a logger with the feed being synced ("active-pars",
// "par-report", "ballots", "mail", "spreadsheet", "drafts"), so the
// lines of interleaved runs can be told apart.
func WithSource(logger zerolog.Logger, source string) zerolog.Logger {
	return logger.With().Str("source", source).Logger()
}

// WithDesignation tags a logger with the project designation currently
// being processed.
func WithDesignation(logger zerolog.Logger, designation string) zerolog.Logger {
	return logger.With().Str("designation", designation).Logger()
}
