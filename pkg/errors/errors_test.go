package errors

import (
	"fmt"
	"testing"
)

func TestParseErrorIsUnparseable(t *testing.T) {
	err := NewParseError("designation", "garbage", "")
	if !IsUnparseable(err) {
		t.Error("ParseError should match ErrUnparseable")
	}
	if IsNotFound(err) {
		t.Error("ParseError should not match ErrNotFound")
	}
}

func TestLookupErrorIsNotFound(t *testing.T) {
	err := NewLookupError("project", "802.1Qcc", "mail archive")
	if !IsNotFound(err) {
		t.Error("LookupError should match ErrNotFound")
	}
	want := `project "802.1Qcc" (from mail archive) not found`
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestAPIErrorFatal(t *testing.T) {
	plain := &APIError{Operation: "list projects", Endpoint: "projects", StatusCode: 500}
	if plain.Fatal() {
		t.Error("APIError without field errors should not be fatal")
	}
	if IsFatal(plain) {
		t.Error("IsFatal should be false without a structured body")
	}

	structured := &APIError{
		Operation:  "create project",
		Endpoint:   "task_groups/3/projects",
		StatusCode: 422,
		Fields:     map[string][]string{"designation": {"has already been taken"}},
	}
	if !structured.Fatal() {
		t.Error("APIError with field errors should be fatal")
	}
	if !IsFatal(structured) {
		t.Error("IsFatal should see through wrapping")
	}
	if !IsFatal(fmt.Errorf("creating: %w", structured)) {
		t.Error("IsFatal should unwrap")
	}
}

func TestIsFatalSentinels(t *testing.T) {
	if !IsFatal(&AuthenticationError{Service: "portal", Method: "form", Message: "login rejected"}) {
		t.Error("authentication failures are fatal")
	}
	if !IsFatal(&PageError{URL: "http://x/pub/active-pars", Element: "div.pager"}) {
		t.Error("malformed pager structure is fatal")
	}
	if IsFatal(NewParseError("date", "tomorrow-ish", "")) {
		t.Error("parse failures are not fatal")
	}
}
