// Package runctx carries the per-run settings every component needs:
// the logger, the dry-run flag, and the row filters. It is passed
// explicitly through crawler and reconciler calls instead of living in
// package-level state, so two differently-filtered runs cannot bleed
// into each other.
package runctx

import (
	"strings"

	"github.com/rs/zerolog"
)

// Run is the context of one reconciliation run.
type Run struct {
	Logger zerolog.Logger

	// DryRun suppresses every create/update/delete against the tracker
	// while leaving all reads intact.
	DryRun bool

	// Only restricts processing to the named designations when
	// non-empty. Entries are stored lowercase.
	Only []string

	// Blacklist names mail-archive message numbers to skip.
	Blacklist []string

	// PageLimit bounds how many listing pages a crawl walks; zero means
	// unbounded. Reaching the bound is clean termination, not an error.
	PageLimit int
}

// New builds a run context with the given logger and no filters.
func New(logger zerolog.Logger) *Run {
	return &Run{Logger: logger}
}

// WithOnly sets the designation allow-list, normalizing to lowercase.
func (r *Run) WithOnly(designations []string) *Run {
	r.Only = nil
	for _, d := range designations {
		d = strings.TrimSpace(d)
		if d != "" {
			r.Only = append(r.Only, strings.ToLower(d))
		}
	}
	return r
}

// Allows reports whether the designation passes the allow-list filter.
// An empty list allows everything.
func (r *Run) Allows(designation string) bool {
	if len(r.Only) == 0 {
		return true
	}
	lower := strings.ToLower(designation)
	for _, d := range r.Only {
		if d == lower {
			return true
		}
	}
	return false
}

// Blacklisted reports whether a mail-archive message number is skipped.
func (r *Run) Blacklisted(number string) bool {
	for _, n := range r.Blacklist {
		if n == number {
			return true
		}
	}
	return false
}
