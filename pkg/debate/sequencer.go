package debate

import (
	"fmt"
	"sync"

	"github.com/codeready-toolchain/deliberatorium/pkg/config"
	"github.com/codeready-toolchain/deliberatorium/pkg/models"
)

// TurnState is the sequencer state of one debate.
type TurnState string

const (
	// TurnStateIdle: no turn has run yet, or the last one was aborted.
	TurnStateIdle TurnState = "idle"
	// TurnStateAgentSpeaking: exactly one agent turn is in flight.
	TurnStateAgentSpeaking TurnState = "agent_speaking"
	// TurnStateAwaitingNext: the last turn closed and the next agent is known.
	TurnStateAwaitingNext TurnState = "awaiting_next"
)

// Sequencer enforces at most one in-flight agent turn per debate and the
// round-robin speaking order. All transitions happen under one mutex, so
// TryBegin is an atomic check-and-set.
type Sequencer struct {
	mu       sync.Mutex
	roster   []models.Agent
	maxTurns int

	state    TurnState
	speaking int // roster index while agent_speaking
	next     int // roster index expected while awaiting_next
	turns    int // closed turns, completed or failed
}

// SequencerStatus is a point-in-time copy of the sequencer state.
type SequencerStatus struct {
	State      TurnState
	Speaking   *models.Agent
	Next       *models.Agent
	TurnsTaken int
}

// NewSequencer creates a sequencer for a fixed roster. maxTurns <= 0 means
// no limit.
func NewSequencer(roster []models.Agent, maxTurns int) *Sequencer {
	return &Sequencer{
		roster:   models.CloneRoster(roster),
		maxTurns: maxTurns,
		state:    TurnStateIdle,
	}
}

// TryBegin opens a turn for the named agent, returning the roster entry.
// From idle any roster agent may open; from awaiting_next only the expected
// agent may.
func (s *Sequencer) TryBegin(name string) (models.Agent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == TurnStateAgentSpeaking {
		return models.Agent{}, fmt.Errorf("%w: %s is speaking", ErrTurnInFlight, s.roster[s.speaking].Name)
	}
	agent, idx, ok := models.FindAgent(s.roster, name)
	if !ok {
		return models.Agent{}, fmt.Errorf("%w: %q", ErrUnknownAgent, name)
	}
	if s.limitReachedLocked() {
		return models.Agent{}, fmt.Errorf("%w (%d turns)", ErrTurnLimitReached, s.maxTurns)
	}
	if s.state == TurnStateAwaitingNext && idx != s.next {
		return models.Agent{}, fmt.Errorf("%w: expected %s, got %s", ErrNotExpectedAgent, s.roster[s.next].Name, name)
	}

	s.state = TurnStateAgentSpeaking
	s.speaking = idx
	return agent, nil
}

// Complete closes the in-flight turn and advances the round-robin cursor.
// It returns the next agent and whether the debate may continue.
func (s *Sequencer) Complete() (models.Agent, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closeLocked((s.speaking + 1) % len(s.roster))
}

// Fail closes the in-flight turn after a generation failure, applying the
// timeout policy. It returns the agent to hint and whether a hint is due.
func (s *Sequencer) Fail(policy config.TimeoutPolicy) (models.Agent, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch policy {
	case config.TimeoutPolicyRetry:
		return s.closeLocked(s.speaking)
	case config.TimeoutPolicyAbort:
		s.turns++
		s.state = TurnStateIdle
		return models.Agent{}, false
	default:
		return s.closeLocked((s.speaking + 1) % len(s.roster))
	}
}

// Abandon returns an in-flight turn to idle without counting it. Used when
// the service stops mid-turn.
func (s *Sequencer) Abandon() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == TurnStateAgentSpeaking {
		s.state = TurnStateIdle
	}
}

func (s *Sequencer) closeLocked(next int) (models.Agent, bool) {
	if s.state != TurnStateAgentSpeaking {
		return models.Agent{}, false
	}
	s.turns++
	s.state = TurnStateAwaitingNext
	s.next = next
	if s.limitReachedLocked() {
		return s.roster[next], false
	}
	return s.roster[next], true
}

func (s *Sequencer) limitReachedLocked() bool {
	return s.maxTurns > 0 && s.turns >= s.maxTurns
}

// Status returns a copy of the current sequencer state.
func (s *Sequencer) Status() SequencerStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := SequencerStatus{State: s.state, TurnsTaken: s.turns}
	switch s.state {
	case TurnStateAgentSpeaking:
		a := s.roster[s.speaking]
		st.Speaking = &a
	case TurnStateAwaitingNext:
		a := s.roster[s.next]
		st.Next = &a
	}
	return st
}
