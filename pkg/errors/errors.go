// Package errors provides custom error types for partrack. They separate
// the failures that skip a row (parse and lookup errors) from the ones
// that halt a run (structured tracker API errors), and support
// programmatic checking through errors.Is.
package errors

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// New returns an error that formats as the given text.
// It's an alias for the standard library errors.New for convenience.
var New = errors.New

// Common sentinel errors for the partrack system.
var (
	// ErrNotFound indicates that a requested resource was not found.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates that provided input was invalid.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnparseable indicates that free text did not match any known form.
	ErrUnparseable = errors.New("unparseable")

	// ErrAuthFailed indicates a sign-in or basic-auth failure.
	ErrAuthFailed = errors.New("authentication failed")

	// ErrMalformedPage indicates a fetched page is missing structure the
	// crawl cannot safely continue without.
	ErrMalformedPage = errors.New("malformed page")
)

// ParseError reports free text that did not match the expected form.
// It is non-fatal: callers skip the row or item and continue.
type ParseError struct {
	Kind    string // "designation", "date", "announcement", "title", ...
	Input   string
	Message string
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("cannot parse %s %q: %s", e.Kind, e.Input, e.Message)
	}
	return fmt.Sprintf("cannot parse %s %q", e.Kind, e.Input)
}

// Is implements errors.Is support.
func (e *ParseError) Is(target error) bool {
	return target == ErrUnparseable
}

// NewParseError creates a new ParseError.
func NewParseError(kind, input, message string) *ParseError {
	return &ParseError{Kind: kind, Input: input, Message: message}
}

// LookupError reports a required entity that could not be found in the
// tracker database. It is non-fatal: the row is skipped.
type LookupError struct {
	Resource string // "task group", "project", "person", "event"
	Key      string
	Source   string // which crawl or sheet produced the lookup
}

// Error implements the error interface.
func (e *LookupError) Error() string {
	if e.Source != "" {
		return fmt.Sprintf("%s %q (from %s) not found", e.Resource, e.Key, e.Source)
	}
	return fmt.Sprintf("%s %q not found", e.Resource, e.Key)
}

// Is implements errors.Is support.
func (e *LookupError) Is(target error) bool {
	return target == ErrNotFound
}

// NewLookupError creates a new LookupError.
func NewLookupError(resource, key, source string) *LookupError {
	return &LookupError{Resource: resource, Key: key, Source: source}
}

// APIError represents an error response from the tracker API. When the
// body carried a structured errors mapping it is preserved in Fields;
// such errors are fatal to the whole run.
type APIError struct {
	Operation  string // "create project", "update person", ...
	Endpoint   string
	StatusCode int
	Fields     map[string][]string // field -> messages, from the error body
	Err        error
}

// Error implements the error interface.
func (e *APIError) Error() string {
	msg := fmt.Sprintf("tracker API error during %s (%s, status %d)", e.Operation, e.Endpoint, e.StatusCode)
	if len(e.Fields) > 0 {
		parts := make([]string, 0, len(e.Fields))
		for field, msgs := range e.Fields {
			parts = append(parts, fmt.Sprintf("%s: %s", field, strings.Join(msgs, "; ")))
		}
		sort.Strings(parts)
		msg += ": " + strings.Join(parts, ", ")
	}
	return msg
}

// Unwrap implements errors.Unwrap.
func (e *APIError) Unwrap() error {
	return e.Err
}

// Fatal reports whether this error must halt the run. Any structured
// error body invalidates attribution for the row's siblings, so it does.
func (e *APIError) Fatal() bool {
	return len(e.Fields) > 0
}

// ConfigError represents a configuration error.
type ConfigError struct {
	Component string
	Message   string
	Err       error
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	if e.Component != "" {
		return fmt.Sprintf("configuration error in %s: %s", e.Component, e.Message)
	}
	return fmt.Sprintf("configuration error: %s", e.Message)
}

// Unwrap implements errors.Unwrap.
func (e *ConfigError) Unwrap() error {
	return e.Err
}

// NewConfigError creates a new ConfigError.
func NewConfigError(component, message string, err error) *ConfigError {
	return &ConfigError{Component: component, Message: message, Err: err}
}

// AuthenticationError represents a sign-in failure against the tracker,
// the portal, or the mail archive.
type AuthenticationError struct {
	Service string // "tracker", "portal", "archive"
	Method  string // "session", "form", "basic"
	Message string
	Err     error
}

// Error implements the error interface.
func (e *AuthenticationError) Error() string {
	return fmt.Sprintf("authentication error for %s (%s): %s", e.Service, e.Method, e.Message)
}

// Unwrap implements errors.Unwrap.
func (e *AuthenticationError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is support.
func (e *AuthenticationError) Is(target error) bool {
	return target == ErrAuthFailed
}

// PageError reports page structure the crawler cannot recover from, such
// as a pager control that is present but unreadable.
type PageError struct {
	URL     string
	Element string
	Err     error
}

// Error implements the error interface.
func (e *PageError) Error() string {
	return fmt.Sprintf("malformed page %s: missing or unreadable %s", e.URL, e.Element)
}

// Unwrap implements errors.Unwrap.
func (e *PageError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is support.
func (e *PageError) Is(target error) bool {
	return target == ErrMalformedPage
}

// Helper functions for error checking.

// IsNotFound checks if an error is a lookup failure.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsUnparseable checks if an error is a parse failure.
func IsUnparseable(err error) bool {
	return errors.Is(err, ErrUnparseable)
}

// IsFatal reports whether err must halt the whole run rather than skip
// the current row.
func IsFatal(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Fatal()
	}
	return errors.Is(err, ErrAuthFailed) || errors.Is(err, ErrMalformedPage)
}

// As is an alias for the standard library errors.As.
func As(err error, target any) bool {
	return errors.As(err, target)
}

// Is is an alias for the standard library errors.Is.
func Is(err, target error) bool {
	return errors.Is(err, target)
}
