package persistence

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when the requested record does not exist.
	ErrNotFound = errors.New("persistence: not found")
)

// StorageError reports that the underlying persistence medium rejected an operation.
// It is surfaced to callers as-is and never retried.
type StorageError struct {
	Op  string
	Err error
}

// Error implements the error interface.
func (e *StorageError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("persistence: storage unavailable during %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying driver error.
func (e *StorageError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// NewStorageError wraps err as a StorageError for the named operation.
func NewStorageError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StorageError{Op: op, Err: err}
}

// CorruptDataError reports that a single stored row could not be decoded.
type CorruptDataError struct {
	ScheduleID int64
	Field      string
	Err        error
}

// Error implements the error interface.
func (e *CorruptDataError) Error() string {
	if e == nil {
		return ""
	}
	if e.ScheduleID > 0 {
		return fmt.Sprintf("persistence: schedule %d has corrupt %s: %v", e.ScheduleID, e.Field, e.Err)
	}
	return fmt.Sprintf("persistence: corrupt %s: %v", e.Field, e.Err)
}

// Unwrap returns the decoding error.
func (e *CorruptDataError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}
