// Package events defines the debate event protocol spoken over the
// WebSocket event channel and provides the server end of that channel.
//
// ════════════════════════════════════════════════════════════════
// Turn Lifecycle
// ════════════════════════════════════════════════════════════════
//
// Every agent turn is bracketed by a typing pair and carries exactly one
// message. A viewer observes, in this order:
//
//	typing_status    {is_typing: true}
//	new_message      {message: {...}}
//	typing_status    {is_typing: false}
//	start_agent_turn {agent: <next>}    (hint, after the turn delay)
//
// The hint is not a command. A viewer still holding the debate echoes it
// back as its own start_agent_turn request, which is what actually opens
// the next turn. A viewer that has reset simply stops echoing and the
// debate goes quiet.
//
// new_intervention may be interleaved anywhere in that sequence. It never
// delays or reorders the turn in flight; arrival order is the only order.
//
// Frames are JSON envelopes: {"event": "<name>", "data": {...}}. Decode
// maps them onto a closed set of typed variants per direction and rejects
// anything else.
//
// ════════════════════════════════════════════════════════════════
package events

// Server → viewer events.
const (
	EventConnectionEstablished = "connection_established"
	EventDebateStarted         = "debate_started"
	EventNewMessage            = "new_message"
	EventNewIntervention       = "new_intervention"
	EventTypingStatus          = "typing_status"
	EventError                 = "error"
)

// Viewer → server events.
const (
	EventUserIntervention = "user_intervention"
)

// EventStartAgentTurn travels both ways: the server sends it as a next-turn
// hint and a viewer sends it as the begin-turn request.
const EventStartAgentTurn = "start_agent_turn"

// Direction selects which closed set of events Decode accepts.
type Direction int

const (
	// ToViewer is the server → viewer direction.
	ToViewer Direction = iota
	// ToServer is the viewer → server direction.
	ToServer
)

func (d Direction) String() string {
	switch d {
	case ToViewer:
		return "to_viewer"
	case ToServer:
		return "to_server"
	default:
		return "unknown"
	}
}
