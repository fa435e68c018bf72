package transcript

import (
	"errors"
	"fmt"
)

// StaleEventError describes an event that belongs to a debate other than
// the one the viewer holds. Such events are discarded, never surfaced.
type StaleEventError struct {
	EventName       string
	EventDebateID   string
	SessionDebateID string
}

func (e *StaleEventError) Error() string {
	if e.SessionDebateID == "" {
		return fmt.Sprintf("stale %s for debate %s: no active session", e.EventName, e.EventDebateID)
	}
	return fmt.Sprintf("stale %s for debate %s: current debate is %s", e.EventName, e.EventDebateID, e.SessionDebateID)
}

// IsStale checks if an error is a stale event error
func IsStale(err error) bool {
	var se *StaleEventError
	return errors.As(err, &se)
}
