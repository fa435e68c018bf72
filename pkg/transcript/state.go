// Package transcript folds the ordered stream of debate events a viewer
// receives into a single append-only transcript.
package transcript

import (
	"time"

	"github.com/codeready-toolchain/deliberatorium/pkg/models"
)

// Status is the viewer-side session status.
type Status string

const (
	StatusUninitialized Status = "uninitialized"
	StatusStarting      Status = "starting"
	StatusActive        Status = "active"
	StatusReset         Status = "reset"
)

// Kind discriminates transcript entries.
type Kind string

const (
	KindAgentMessage     Kind = "agent_message"
	KindUserIntervention Kind = "user_intervention"
)

// Entry is one transcript line. Entries are never modified once appended.
type Entry struct {
	Kind Kind

	// Sender is set only for agent messages.
	Sender *models.Agent

	Content   string
	Timestamp time.Time
}

// TypingIndicator is the most recent typing_status for the session.
type TypingIndicator struct {
	Agent    models.Agent
	IsTyping bool
}

// State is the viewer-side session state. Values are treated as immutable:
// Fold returns a new State and never writes through prev.
type State struct {
	Status    Status
	SessionID string
	Topic     string
	Roster    []models.Agent
	Entries   []Entry

	// Typing is nil when no agent is typing.
	Typing *TypingIndicator

	// LastError is the message of the latest error event for the session.
	LastError string
}

// Initial returns the state before any session exists.
func Initial() State {
	return State{Status: StatusUninitialized}
}

// Starting returns the state while session creation is in flight.
func Starting(topic string) State {
	return State{Status: StatusStarting, Topic: topic}
}

// Begin returns the active state for a freshly created session whose
// roster is not known yet.
func Begin(id, topic string) State {
	return State{Status: StatusActive, SessionID: id, Topic: topic}
}

// Cleared returns the state after a local reset.
func Cleared() State {
	return State{Status: StatusReset}
}

// WithRoster returns s with the roster replaced by a copy of roster.
func (s State) WithRoster(roster []models.Agent) State {
	s.Roster = models.CloneRoster(roster)
	return s
}

// Clone returns a deep copy safe to hand to other goroutines.
func (s State) Clone() State {
	out := s
	out.Roster = models.CloneRoster(s.Roster)
	if s.Entries != nil {
		out.Entries = make([]Entry, len(s.Entries))
		copy(out.Entries, s.Entries)
	}
	if s.Typing != nil {
		t := *s.Typing
		out.Typing = &t
	}
	return out
}
