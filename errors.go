package contextpg

import (
	"errors"
	"fmt"
)

// Common errors
var (
	// ErrInvalidConfig is returned when the engine configuration is invalid
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrStorageError is returned when a storage operation failed
	ErrStorageError = errors.New("storage operation failed")
)

// EngineError provides structured error context for engine operations.
// It only ever surfaces through logs: every engine failure degrades to a
// no-op on the transcript, never to an error returned to the turn.
type EngineError struct {
	// Op is the operation that failed (e.g., "ProcessTurn", "LoadState")
	Op string

	// SessionID is the session ID if applicable
	SessionID string

	// Err is the underlying error
	Err error
}

// Error returns a formatted error message.
func (e *EngineError) Error() string {
	msg := fmt.Sprintf("contextpg %s failed", e.Op)
	if e.SessionID != "" {
		msg += fmt.Sprintf(" for session %s", e.SessionID)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying error for errors.Is/errors.As support.
func (e *EngineError) Unwrap() error {
	return e.Err
}

// WrapError wraps an error with operation and session context. If err is
// nil, returns nil.
func WrapError(op, sessionID string, err error) error {
	if err == nil {
		return nil
	}
	return &EngineError{Op: op, SessionID: sessionID, Err: err}
}
