package remote

import (
	"errors"
	"fmt"
)

// ErrInvalidCredentials is returned by Login when the API rejects the credentials.
var ErrInvalidCredentials = errors.New("remote: invalid credentials")

// DispatchFailure reports that a single command could not be delivered. Status
// is the HTTP status when a response was received and zero otherwise.
type DispatchFailure struct {
	HouseID      int64
	PeripheralID string
	Command      string
	Status       int
	Err          error
}

// Error implements the error interface.
func (e *DispatchFailure) Error() string {
	if e == nil {
		return ""
	}
	if e.Status != 0 {
		return fmt.Sprintf("remote: command %q to house %d device %s rejected with status %d", e.Command, e.HouseID, e.PeripheralID, e.Status)
	}
	return fmt.Sprintf("remote: command %q to house %d device %s failed: %v", e.Command, e.HouseID, e.PeripheralID, e.Err)
}

// Unwrap returns the transport error, if any.
func (e *DispatchFailure) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// APIError reports a non-2xx response from a query endpoint.
type APIError struct {
	Method string
	Path   string
	Status int
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return fmt.Sprintf("remote: %s %s returned status %d", e.Method, e.Path, e.Status)
}
