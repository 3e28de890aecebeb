package domain

import "errors"

var (
	// ErrUserOffline means the operation requires a live connection for the
	// target user and none is registered.
	ErrUserOffline = errors.New("user is not online")

	// ErrInvalidCall means the call id is unknown or the acting user may not
	// perform the requested transition.
	ErrInvalidCall = errors.New("invalid call")
)

// ValidationError reports a missing or malformed required field. Nothing is
// persisted or delivered when one is returned.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string {
	return e.Msg
}

func NewValidationError(msg string) *ValidationError {
	return &ValidationError{Msg: msg}
}
