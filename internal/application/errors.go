package application

import (
	"errors"
	"sort"
	"strings"
)

var (
	// ErrNotFound is returned when the requested resource does not exist.
	ErrNotFound = errors.New("application: not found")
	// ErrInvalidCredentials is returned when the remote API rejects a sign-in.
	ErrInvalidCredentials = errors.New("application: invalid credentials")
	// ErrNotSignedIn is returned by operations that need a remote session.
	ErrNotSignedIn = errors.New("application: not signed in")
	// ErrSessionExpired is returned once the stored session token has expired.
	ErrSessionExpired = errors.New("application: session expired")
	// ErrUpstream wraps failures of the remote home-automation API.
	ErrUpstream = errors.New("application: remote api unavailable")
)

// ValidationError captures field level validation issues that callers can surface to users.
type ValidationError struct {
	FieldErrors map[string]string
}

// Error implements the error interface.
func (v *ValidationError) Error() string {
	if v == nil || len(v.FieldErrors) == 0 {
		return "validation failed"
	}
	fields := make([]string, 0, len(v.FieldErrors))
	for field := range v.FieldErrors {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	return "validation failed: " + strings.Join(fields, ", ")
}

// HasErrors reports whether any field level issues were recorded.
func (v *ValidationError) HasErrors() bool {
	return v != nil && len(v.FieldErrors) > 0
}

// add records a field level validation error. The first message per field wins.
func (v *ValidationError) add(field, message string) {
	if v.FieldErrors == nil {
		v.FieldErrors = make(map[string]string)
	}
	if _, exists := v.FieldErrors[field]; exists {
		return
	}
	v.FieldErrors[field] = message
}

// upstreamError marks err as a remote API failure while keeping it inspectable.
type upstreamError struct {
	err error
}

func (e *upstreamError) Error() string {
	return ErrUpstream.Error() + ": " + e.err.Error()
}

func (e *upstreamError) Unwrap() []error {
	return []error{ErrUpstream, e.err}
}
