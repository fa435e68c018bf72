package events

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnknownEvent is returned for event names outside the closed set of
	// the decoding direction.
	ErrUnknownEvent = errors.New("unknown event")

	// ErrInvalidPayload is returned for malformed frames or payloads missing
	// required fields.
	ErrInvalidPayload = errors.New("invalid event payload")
)

// Envelope is the JSON frame carried by every WebSocket text message.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Encode marshals an event into its envelope frame.
func Encode(evt Event) ([]byte, error) {
	data, err := json.Marshal(evt)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s payload: %w", evt.EventName(), err)
	}
	frame, err := json.Marshal(Envelope{Event: evt.EventName(), Data: data})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s envelope: %w", evt.EventName(), err)
	}
	return frame, nil
}

// Decode parses a frame into one of the typed variants accepted for the
// given direction. Unknown names and incomplete payloads are rejected rather
// than passed on with missing fields.
func Decode(frame []byte, dir Direction) (Event, error) {
	var env Envelope
	if err := json.Unmarshal(frame, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	if env.Event == "" {
		return nil, fmt.Errorf("%w: missing event name", ErrInvalidPayload)
	}

	var (
		evt Event
		err error
	)
	switch dir {
	case ToViewer:
		evt, err = decodeToViewer(env)
	case ToServer:
		evt, err = decodeToServer(env)
	default:
		return nil, fmt.Errorf("%w: direction %d", ErrUnknownEvent, dir)
	}
	if err != nil {
		return nil, err
	}
	return evt, nil
}

func decodeToViewer(env Envelope) (Event, error) {
	switch env.Event {
	case EventConnectionEstablished:
		var p ConnectionEstablishedPayload
		return decodeInto(env, &p, func() error {
			return require(p.ConnectionID != "", "connection_id")
		})
	case EventDebateStarted:
		var p DebateStartedPayload
		return decodeInto(env, &p, func() error {
			if err := require(p.DebateID != "", "debate_id"); err != nil {
				return err
			}
			for i, a := range p.Agents {
				if strings.TrimSpace(a.Name) == "" {
					return fmt.Errorf("%w: agents[%d].name is required", ErrInvalidPayload, i)
				}
			}
			return nil
		})
	case EventNewMessage:
		var p NewMessagePayload
		return decodeInto(env, &p, func() error {
			if err := require(p.DebateID != "", "debate_id"); err != nil {
				return err
			}
			// An unparseable timestamp does not drop the message; the
			// transcript stamps it with the receipt time instead.
			return require(p.Message.Sender != "", "message.sender")
		})
	case EventNewIntervention:
		var p NewInterventionPayload
		return decodeInto(env, &p, func() error {
			return require(p.DebateID != "", "debate_id")
		})
	case EventTypingStatus:
		var p TypingStatusPayload
		return decodeInto(env, &p, func() error {
			if err := require(p.DebateID != "", "debate_id"); err != nil {
				return err
			}
			return require(p.Agent.Name != "", "agent.name")
		})
	case EventStartAgentTurn:
		return decodeStartAgentTurn(env)
	case EventError:
		var p ErrorPayload
		return decodeInto(env, &p, func() error {
			return require(p.Message != "", "message")
		})
	default:
		return nil, fmt.Errorf("%w: %q (to viewer)", ErrUnknownEvent, env.Event)
	}
}

func decodeToServer(env Envelope) (Event, error) {
	switch env.Event {
	case EventStartAgentTurn:
		return decodeStartAgentTurn(env)
	case EventUserIntervention:
		var p UserInterventionPayload
		return decodeInto(env, &p, func() error {
			if err := require(p.DebateID != "", "debate_id"); err != nil {
				return err
			}
			return require(p.Intervention != "", "intervention")
		})
	default:
		return nil, fmt.Errorf("%w: %q (to server)", ErrUnknownEvent, env.Event)
	}
}

func decodeStartAgentTurn(env Envelope) (Event, error) {
	var p StartAgentTurnPayload
	return decodeInto(env, &p, func() error {
		if err := require(p.DebateID != "", "debate_id"); err != nil {
			return err
		}
		return require(p.Agent.Name != "", "agent.name")
	})
}

// decodeInto unmarshals the envelope data into p, runs validate and returns
// the dereferenced variant so callers can type-switch on value types.
func decodeInto[T Event](env Envelope, p *T, validate func() error) (Event, error) {
	if len(env.Data) == 0 {
		return nil, fmt.Errorf("%w: %s has no data", ErrInvalidPayload, env.Event)
	}
	if err := json.Unmarshal(env.Data, p); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidPayload, env.Event, err)
	}
	if err := validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", env.Event, err)
	}
	return *p, nil
}

func require(ok bool, field string) error {
	if !ok {
		return fmt.Errorf("%w: %s is required", ErrInvalidPayload, field)
	}
	return nil
}
