package controller

import (
	"errors"
	"fmt"
)

var (
	// ErrSessionInProgress is returned by StartSession while a session is
	// starting or active. Reset first.
	ErrSessionInProgress = errors.New("a debate session is already in progress")

	// ErrSessionReset is returned by StartSession when Reset interrupted it.
	ErrSessionReset = errors.New("debate session was reset")
)

// ValidationError reports input rejected locally, before any network call.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error on field '%s': %s", e.Field, e.Message)
}

// TransportError reports a failed or timed out session creation call.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error
func (e *TransportError) Unwrap() error {
	return e.Err
}

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsTransportError checks if an error is a transport error
func IsTransportError(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}
