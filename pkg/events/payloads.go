package events

import (
	"github.com/codeready-toolchain/deliberatorium/pkg/models"
)

// Event is one decoded protocol variant.
type Event interface {
	EventName() string
}

// Scoped is implemented by events that belong to a single debate.
// DebateScope returns "" when an optional scope was omitted.
type Scoped interface {
	Event
	DebateScope() string
}

// ConnectionEstablishedPayload is sent once, right after the upgrade.
type ConnectionEstablishedPayload struct {
	ConnectionID string `json:"connection_id"`
}

// DebateStartedPayload announces a newly created debate and its roster.
type DebateStartedPayload struct {
	DebateID string         `json:"debate_id"`
	Topic    string         `json:"topic"`
	Agents   []models.Agent `json:"agents"`
}

// NewMessagePayload carries one completed agent utterance.
type NewMessagePayload struct {
	DebateID string         `json:"debate_id"`
	Message  models.Message `json:"message"`
}

// NewInterventionPayload echoes a user intervention to every viewer.
type NewInterventionPayload struct {
	DebateID     string `json:"debate_id"`
	Intervention string `json:"intervention"`
}

// TypingStatusPayload brackets agent generation.
type TypingStatusPayload struct {
	DebateID string       `json:"debate_id"`
	Agent    models.Agent `json:"agent"`
	IsTyping bool         `json:"is_typing"`
}

// StartAgentTurnPayload is the begin-turn request (viewer → server) and the
// next-turn hint (server → viewer).
type StartAgentTurnPayload struct {
	DebateID string       `json:"debate_id"`
	Agent    models.Agent `json:"agent"`
}

// UserInterventionPayload is submitted by a viewer.
type UserInterventionPayload struct {
	DebateID     string `json:"debate_id"`
	Intervention string `json:"intervention"`
}

// ErrorPayload reports a failed request or a failed turn. DebateID is empty
// for connection-level errors.
type ErrorPayload struct {
	DebateID string `json:"debate_id,omitempty"`
	Message  string `json:"message"`
}

func (ConnectionEstablishedPayload) EventName() string { return EventConnectionEstablished }
func (DebateStartedPayload) EventName() string         { return EventDebateStarted }
func (NewMessagePayload) EventName() string            { return EventNewMessage }
func (NewInterventionPayload) EventName() string       { return EventNewIntervention }
func (TypingStatusPayload) EventName() string          { return EventTypingStatus }
func (StartAgentTurnPayload) EventName() string        { return EventStartAgentTurn }
func (UserInterventionPayload) EventName() string      { return EventUserIntervention }
func (ErrorPayload) EventName() string                 { return EventError }

func (p DebateStartedPayload) DebateScope() string    { return p.DebateID }
func (p NewMessagePayload) DebateScope() string       { return p.DebateID }
func (p NewInterventionPayload) DebateScope() string  { return p.DebateID }
func (p TypingStatusPayload) DebateScope() string     { return p.DebateID }
func (p StartAgentTurnPayload) DebateScope() string   { return p.DebateID }
func (p UserInterventionPayload) DebateScope() string { return p.DebateID }
func (p ErrorPayload) DebateScope() string            { return p.DebateID }
