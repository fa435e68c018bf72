package models

import (
	"fmt"
	"time"
)

// Message type values carried in the "type" field of a debate message.
const (
	MessageTypeMessage      = "message"
	MessageTypeIntervention = "intervention"
)

// UserSender is the sender name recorded for user interventions.
const UserSender = "user"

// Message is the wire form of a debate utterance.
type Message struct {
	Type      string `json:"type"`
	Content   string `json:"content"`
	Timestamp string `json:"timestamp"`       // RFC3339Nano
	Sender    string `json:"sender"`          // agent name, or "user"
	Role      string `json:"role,omitempty"`  // agent role label
	Agent     *Agent `json:"agent,omitempty"` // full persona of the sender, when an agent
}

// NewAgentMessage builds the message emitted when an agent finishes a turn.
func NewAgentMessage(agent Agent, content string, at time.Time) Message {
	a := agent
	return Message{
		Type:      MessageTypeMessage,
		Content:   content,
		Timestamp: FormatTimestamp(at),
		Sender:    agent.Name,
		Role:      agent.Role,
		Agent:     &a,
	}
}

// NewInterventionMessage builds the server-side record of a user intervention.
func NewInterventionMessage(content string, at time.Time) Message {
	return Message{
		Type:      MessageTypeIntervention,
		Content:   content,
		Timestamp: FormatTimestamp(at),
		Sender:    UserSender,
	}
}

// FormatTimestamp renders t the way every event payload carries time.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// isoLocalLayout matches ISO 8601 timestamps without a zone designator.
const isoLocalLayout = "2006-01-02T15:04:05.999999999"

// ParseTimestamp accepts RFC 3339 timestamps and zone-less ISO 8601 ones,
// which are interpreted as UTC.
func ParseTimestamp(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, nil
	}
	t, err := time.ParseInLocation(isoLocalLayout, s, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
	}
	return t, nil
}
