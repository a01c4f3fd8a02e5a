package application

import (
	"errors"
	"testing"
)

func TestValidationError_Error(t *testing.T) {
	t.Parallel()

	var err *ValidationError
	if got := err.Error(); got != "validation failed" {
		t.Fatalf("expected generic message for nil error, got %q", got)
	}

	withFields := &ValidationError{FieldErrors: map[string]string{"theme": "bad", "language": "bad"}}
	if got := withFields.Error(); got != "validation failed: language, theme" {
		t.Fatalf("expected sorted field list, got %q", got)
	}
}

func TestValidationError_HasErrors(t *testing.T) {
	t.Parallel()

	if (&ValidationError{}).HasErrors() {
		t.Fatalf("expected HasErrors to report false for empty error")
	}
	if !(&ValidationError{FieldErrors: map[string]string{"field": "bad"}}).HasErrors() {
		t.Fatalf("expected HasErrors to report true when fields are present")
	}
}

func TestValidationError_AddKeepsFirstMessage(t *testing.T) {
	t.Parallel()

	v := &ValidationError{}
	v.add("date_time", "required")
	v.add("date_time", "must be in the future")

	if got := v.FieldErrors["date_time"]; got != "required" {
		t.Fatalf("expected first message to win, got %q", got)
	}
}

func TestUpstreamError_Unwrap(t *testing.T) {
	t.Parallel()

	cause := errors.New("connection refused")
	err := error(&upstreamError{err: cause})

	if !errors.Is(err, ErrUpstream) || !errors.Is(err, cause) {
		t.Fatalf("expected both sentinel and cause to match, got %v", err)
	}
	if got := err.Error(); got != "application: remote api unavailable: connection refused" {
		t.Fatalf("unexpected message %q", got)
	}
}
