package debate

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned for unknown debate ids.
	ErrNotFound = errors.New("debate not found")

	// ErrTurnInFlight is returned when a turn is requested while an agent is speaking.
	ErrTurnInFlight = errors.New("agent turn already in flight")

	// ErrUnknownAgent is returned when the requested agent is not in the debate roster.
	ErrUnknownAgent = errors.New("agent not in roster")

	// ErrNotExpectedAgent is returned when a turn is requested for an agent
	// other than the one the debate is waiting on.
	ErrNotExpectedAgent = errors.New("agent is not next in turn order")

	// ErrTurnLimitReached is returned once a debate has used its max_turns.
	ErrTurnLimitReached = errors.New("debate turn limit reached")

	// ErrStopping is returned when the service is shutting down.
	ErrStopping = errors.New("debate service is stopping")
)

// ValidationError wraps field-specific validation errors
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error on field '%s': %s", e.Field, e.Message)
}

// NewValidationError creates a new validation error
func NewValidationError(field, message string) error {
	return &ValidationError{
		Field:   field,
		Message: message,
	}
}

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsIgnorable reports whether a rejected turn request is a benign duplicate:
// a second viewer echoing the same hint, or an echo racing the turn it names.
func IsIgnorable(err error) bool {
	return errors.Is(err, ErrTurnInFlight) || errors.Is(err, ErrNotExpectedAgent)
}
