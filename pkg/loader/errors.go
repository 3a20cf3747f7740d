package loader

import (
	"errors"
	"fmt"
)

// unknownErrorMessage is published when a failure carries no description.
const unknownErrorMessage = "unknown error"

// ProtocolError is a structured failure from the remote source: the request
// reached the server but the server answered with a non-success status code.
type ProtocolError struct {
	StatusCode int
	Message    string
	Err        error
}

// Error implements the error interface.
func (e *ProtocolError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("listing error (status %d): %s: %v",
			e.StatusCode, e.Message, e.Err)
	}
	return fmt.Sprintf("listing error (status %d): %s",
		e.StatusCode, e.Message)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *ProtocolError) Unwrap() error {
	return e.Err
}

// stateMessage converts a fetch failure into the message published on the
// state signals. Protocol failures surface their status code; everything
// else surfaces its own description.
func stateMessage(err error) string {
	var protoErr *ProtocolError
	if errors.As(err, &protoErr) {
		return fmt.Sprintf("error code: %d", protoErr.StatusCode)
	}
	if err == nil || err.Error() == "" {
		return unknownErrorMessage
	}
	return err.Error()
}
