package domain

import (
	"errors"
	"fmt"
)

var ErrNotFound = errors.New("not found")

// TransportError means the catalog request never produced a response.
type TransportError struct{ Err error }

func (e *TransportError) Error() string { return "Failed to fetch tours: " + e.Err.Error() }
func (e *TransportError) Unwrap() error { return e.Err }

// ProtocolError means a response arrived but was not a catalog: a non-2xx
// status, an undecodable body, or a body that is not a JSON array.
type ProtocolError struct {
	Status int    // HTTP status; 0 when the status was fine and the body was wrong
	Reason string // human readable, shown to visitors
}

func (e *ProtocolError) Error() string { return e.Reason }

func StatusError(status int) *ProtocolError {
	return &ProtocolError{Status: status, Reason: fmt.Sprintf("HTTP error! status: %d", status)}
}

// NotArrayError reports a body whose top-level JSON value is kind instead of an array.
func NotArrayError(kind string) *ProtocolError {
	return &ProtocolError{Reason: fmt.Sprintf("Data is not an array (got %s)", kind)}
}
