package events

import (
	"fmt"
)

// Broadcaster delivers an encoded frame to every connected viewer.
// Implemented by ConnectionManager.
type Broadcaster interface {
	Broadcast(frame []byte)
}

// Publisher publishes server → viewer events.
//
// Each public method accepts one of the typed payloads in payloads.go.
// Frames published from one goroutine reach each viewer in call order.
type Publisher struct {
	b Broadcaster
}

// NewPublisher creates a new Publisher.
func NewPublisher(b Broadcaster) *Publisher {
	return &Publisher{b: b}
}

// PublishDebateStarted broadcasts a debate_started event.
func (p *Publisher) PublishDebateStarted(payload DebateStartedPayload) error {
	return p.publish(payload)
}

// PublishNewMessage broadcasts a new_message event.
func (p *Publisher) PublishNewMessage(payload NewMessagePayload) error {
	return p.publish(payload)
}

// PublishNewIntervention broadcasts a new_intervention event.
func (p *Publisher) PublishNewIntervention(payload NewInterventionPayload) error {
	return p.publish(payload)
}

// PublishTypingStatus broadcasts a typing_status event.
func (p *Publisher) PublishTypingStatus(payload TypingStatusPayload) error {
	return p.publish(payload)
}

// PublishNextTurn broadcasts a start_agent_turn hint naming the next agent.
func (p *Publisher) PublishNextTurn(payload StartAgentTurnPayload) error {
	return p.publish(payload)
}

// PublishError broadcasts an error event, typically a failed turn.
func (p *Publisher) PublishError(payload ErrorPayload) error {
	return p.publish(payload)
}

func (p *Publisher) publish(evt Event) error {
	frame, err := Encode(evt)
	if err != nil {
		return fmt.Errorf("failed to publish %s: %w", evt.EventName(), err)
	}
	p.b.Broadcast(frame)
	return nil
}
