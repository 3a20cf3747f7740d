// Package loadstate provides observable loading-state cells for paged
// fetching. Each cell holds the most recent state and broadcasts changes
// to any number of subscribers.
package loadstate

// Status classifies the current loading state.
type Status string

const (
	// StatusIdle means no fetch has been issued yet.
	StatusIdle Status = "idle"

	// StatusLoading means a fetch is in flight.
	StatusLoading Status = "loading"

	// StatusLoaded means the most recent fetch succeeded.
	StatusLoaded Status = "loaded"

	// StatusError means the most recent fetch failed.
	StatusError Status = "error"
)

// State is the value carried by a Signal. Message is set only for
// StatusError.
type State struct {
	Status  Status
	Message string
}

// Idle returns the initial state of a fresh signal.
func Idle() State {
	return State{Status: StatusIdle}
}

// Loading returns the in-flight state.
func Loading() State {
	return State{Status: StatusLoading}
}

// Loaded returns the success state.
func Loaded() State {
	return State{Status: StatusLoaded}
}

// Error returns a failure state carrying the failure description.
func Error(message string) State {
	return State{Status: StatusError, Message: message}
}

// IsError reports whether the state is a failure state.
func (s State) IsError() bool {
	return s.Status == StatusError
}
