package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for domain operations
var (
	// ErrNotFound indicates the requested entity does not exist
	ErrNotFound = errors.New("not found")

	// ErrUnknownCommand indicates the backend has no handler for a command
	ErrUnknownCommand = errors.New("unhandled command")

	// ErrPlaylistLocked indicates the playlist cannot be deleted by the user
	ErrPlaylistLocked = errors.New("permission denied: this playlist cannot be deleted by the user")

	// ErrInvalidOptions indicates malformed fetch options
	ErrInvalidOptions = errors.New("invalid fetch options")

	// ErrSimulatedFailure is returned by the mock backend for the "fail" search term
	ErrSimulatedFailure = errors.New(`simulated failure: search term "fail" was used`)
)

// RemoteCallError is returned by a Gateway when the backend rejects a
// command or cannot be reached.
type RemoteCallError struct {
	Command string
	Message string
	Err     error
}

func (e *RemoteCallError) Error() string {
	if e.Command == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Command, e.Message)
}

func (e *RemoteCallError) Unwrap() error { return e.Err }

// ErrorMessage extracts the human-readable part of err for notifications
func ErrorMessage(err error) string {
	if err == nil {
		return ""
	}
	var rce *RemoteCallError
	if errors.As(err, &rce) && rce.Message != "" {
		return rce.Message
	}
	if msg := err.Error(); msg != "" {
		return msg
	}
	return "An unknown error occurred."
}
