package transcript

import (
	"slices"
	"time"

	"github.com/codeready-toolchain/deliberatorium/pkg/events"
	"github.com/codeready-toolchain/deliberatorium/pkg/models"
)

// Check reports whether evt applies to the session held in s. It returns a
// *StaleEventError for debate-scoped events of any other debate, and for
// all debate-scoped events while no session id is held. Error events
// without a debate id always apply.
func Check(s State, evt events.Event) error {
	scoped, ok := evt.(events.Scoped)
	if !ok {
		return nil
	}
	id := scoped.DebateScope()
	if id == "" && evt.EventName() == events.EventError {
		return nil
	}
	if s.SessionID == "" || id != s.SessionID {
		return &StaleEventError{
			EventName:       evt.EventName(),
			EventDebateID:   id,
			SessionDebateID: s.SessionID,
		}
	}
	return nil
}

// Fold applies one inbound event to prev. It performs no I/O, and events
// that do not apply leave the state unchanged. receivedAt stamps
// interventions, which carry no timestamp of their own.
func Fold(prev State, evt events.Event, receivedAt time.Time) State {
	if Check(prev, evt) != nil {
		return prev
	}

	next := prev
	switch e := evt.(type) {
	case events.DebateStartedPayload:
		next.Status = StatusActive
		next.Topic = e.Topic
		next.Roster = models.CloneRoster(e.Agents)
		next.Entries = nil
		next.Typing = nil
		next.LastError = ""

	case events.NewMessagePayload:
		next.Entries = appendEntry(prev.Entries, agentEntry(e.Message, receivedAt))

	case events.NewInterventionPayload:
		next.Entries = appendEntry(prev.Entries, Entry{
			Kind:      KindUserIntervention,
			Content:   e.Intervention,
			Timestamp: receivedAt,
		})

	case events.TypingStatusPayload:
		if e.IsTyping {
			next.Typing = &TypingIndicator{Agent: e.Agent, IsTyping: true}
		} else {
			next.Typing = nil
		}

	case events.ErrorPayload:
		next.LastError = e.Message
	}
	return next
}

// appendEntry appends without writing into prev's backing array, so states
// sharing a prefix never see each other's entries.
func appendEntry(prev []Entry, e Entry) []Entry {
	return append(slices.Clip(prev), e)
}

func agentEntry(msg models.Message, receivedAt time.Time) Entry {
	var sender models.Agent
	if msg.Agent != nil {
		sender = *msg.Agent
	} else {
		sender = models.Agent{Name: msg.Sender, Role: msg.Role}
	}
	ts, err := models.ParseTimestamp(msg.Timestamp)
	if err != nil {
		ts = receivedAt
	}
	return Entry{
		Kind:      KindAgentMessage,
		Sender:    &sender,
		Content:   msg.Content,
		Timestamp: ts,
	}
}
