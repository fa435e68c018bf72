package debate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/codeready-toolchain/deliberatorium/pkg/config"
	"github.com/codeready-toolchain/deliberatorium/pkg/events"
	"github.com/codeready-toolchain/deliberatorium/pkg/generator"
	"github.com/codeready-toolchain/deliberatorium/pkg/models"
)

// Publisher is the subset of *events.Publisher the service broadcasts through.
type Publisher interface {
	PublishDebateStarted(payload events.DebateStartedPayload) error
	PublishNewMessage(payload events.NewMessagePayload) error
	PublishNewIntervention(payload events.NewInterventionPayload) error
	PublishTypingStatus(payload events.TypingStatusPayload) error
	PublishNextTurn(payload events.StartAgentTurnPayload) error
	PublishError(payload events.ErrorPayload) error
}

// Service orchestrates debates: creation, agent turns and interventions.
// It implements events.InboundHandler for viewer requests.
type Service struct {
	registry  *Registry
	publisher Publisher
	generator generator.Generator
	roster    []models.Agent
	turns     *config.TurnConfig
	now       func() time.Time

	// Turn goroutines run under ctx; Stop cancels it and waits on wg.
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	mu      sync.Mutex
	stopped bool
}

// NewService creates a debate service. roster is the ordered agent list
// every new debate is created with.
func NewService(registry *Registry, publisher Publisher, gen generator.Generator, roster []models.Agent, turns *config.TurnConfig) *Service {
	ctx, cancel := context.WithCancel(context.Background())
	return &Service{
		registry:  registry,
		publisher: publisher,
		generator: gen,
		roster:    models.CloneRoster(roster),
		turns:     turns,
		now:       time.Now,
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Roster returns the agents new debates are created with.
func (s *Service) Roster() []models.Agent {
	return models.CloneRoster(s.roster)
}

// Registry returns the backing debate registry.
func (s *Service) Registry() *Registry {
	return s.registry
}

// CreateDebate registers a debate for topic and announces it with
// debate_started.
func (s *Service) CreateDebate(_ context.Context, topic string) (*Debate, error) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return nil, NewValidationError("topic", "required")
	}

	d := s.registry.Create(topic, s.roster)
	slog.Info("Debate created", "debate_id", d.ID, "topic", topic, "agents", len(d.Roster))

	if err := s.publisher.PublishDebateStarted(events.DebateStartedPayload{
		DebateID: d.ID,
		Topic:    d.Topic,
		Agents:   models.CloneRoster(d.Roster),
	}); err != nil {
		slog.Warn("Failed to publish debate_started", "debate_id", d.ID, "error", err)
	}
	return d, nil
}

// GetDebate returns a snapshot of a debate.
func (s *Service) GetDebate(id string) (models.DebateSnapshot, error) {
	d, err := s.registry.Get(id)
	if err != nil {
		return models.DebateSnapshot{}, err
	}
	return d.Snapshot(), nil
}

// BeginTurn opens a turn for the named agent and runs it asynchronously.
// A turn is rejected while another is in flight, for agents outside the
// roster, and, once a turn has closed, for any agent but the expected next.
func (s *Service) BeginTurn(_ context.Context, debateID, agentName string) error {
	d, err := s.registry.Get(debateID)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return ErrStopping
	}

	agent, err := d.Sequencer().TryBegin(agentName)
	if err != nil {
		return err
	}

	s.wg.Add(1)
	go s.runTurn(d, agent)
	return nil
}

// Intervene records a user intervention and broadcasts it. It never waits
// for, or interferes with, an in-flight turn.
func (s *Service) Intervene(_ context.Context, debateID, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return NewValidationError("intervention", "required")
	}
	d, err := s.registry.Get(debateID)
	if err != nil {
		return err
	}

	d.Record(models.NewInterventionMessage(text, s.now()))
	slog.Info("Intervention received", "debate_id", debateID)

	return s.publisher.PublishNewIntervention(events.NewInterventionPayload{
		DebateID:     debateID,
		Intervention: text,
	})
}

// HandleStartAgentTurn implements events.InboundHandler. Duplicate or
// racing turn requests are dropped without reporting an error.
func (s *Service) HandleStartAgentTurn(ctx context.Context, p events.StartAgentTurnPayload) error {
	err := s.BeginTurn(ctx, p.DebateID, p.Agent.Name)
	if err != nil && IsIgnorable(err) {
		slog.Debug("Ignoring turn request", "debate_id", p.DebateID, "agent", p.Agent.Name, "reason", err)
		return nil
	}
	return err
}

// HandleUserIntervention implements events.InboundHandler.
func (s *Service) HandleUserIntervention(ctx context.Context, p events.UserInterventionPayload) error {
	return s.Intervene(ctx, p.DebateID, p.Intervention)
}

// Stop cancels in-flight turns and pending hints, then waits for them.
// New turn requests are rejected with ErrStopping.
func (s *Service) Stop() {
	s.mu.Lock()
	s.stopped = true
	s.mu.Unlock()

	s.cancel()
	s.wg.Wait()
	slog.Info("Debate service stopped")
}

// runTurn produces exactly one message for agent, bracketed by typing
// indicators, then schedules the next-turn hint.
func (s *Service) runTurn(d *Debate, agent models.Agent) {
	defer s.wg.Done()
	log := slog.With("debate_id", d.ID, "agent", agent.Name)

	s.publishTyping(d.ID, agent, true)

	ctx, cancel := context.WithTimeout(s.ctx, s.turns.Timeout)
	start := time.Now()
	text, err := s.generator.Generate(ctx, generator.Request{
		Agent:   agent,
		Topic:   d.Topic,
		History: d.History(),
	})
	cancel()

	if err != nil {
		if s.ctx.Err() != nil {
			log.Info("Turn cancelled by shutdown")
			s.publishTyping(d.ID, agent, false)
			d.Sequencer().Abandon()
			return
		}
		s.failTurn(d, agent, err)
		return
	}

	msg := models.NewAgentMessage(agent, text, s.now())
	d.Record(msg)
	if err := s.publisher.PublishNewMessage(events.NewMessagePayload{DebateID: d.ID, Message: msg}); err != nil {
		log.Warn("Failed to publish new_message", "error", err)
	}
	s.publishTyping(d.ID, agent, false)
	log.Info("Agent turn completed", "duration_ms", time.Since(start).Milliseconds())

	next, ok := d.Sequencer().Complete()
	if !ok {
		log.Info("Turn limit reached, no further hints", "max_turns", s.turns.MaxTurns)
		return
	}
	s.hintAfterDelay(d.ID, next)
}

func (s *Service) failTurn(d *Debate, agent models.Agent, cause error) {
	log := slog.With("debate_id", d.ID, "agent", agent.Name, "policy", s.turns.OnTimeout)

	reason := cause.Error()
	if errors.Is(cause, context.DeadlineExceeded) {
		reason = fmt.Sprintf("no response within %s", s.turns.Timeout)
	}
	log.Warn("Agent turn failed", "error", cause)

	s.publishTyping(d.ID, agent, false)
	if err := s.publisher.PublishError(events.ErrorPayload{
		DebateID: d.ID,
		Message:  fmt.Sprintf("%s could not respond: %s", agent.Name, reason),
	}); err != nil {
		log.Warn("Failed to publish error", "error", err)
	}

	next, ok := d.Sequencer().Fail(s.turns.OnTimeout)
	if !ok {
		return
	}
	s.hintAfterDelay(d.ID, next)
}

// hintAfterDelay waits turns.delay, then names the next agent. The hint is
// dropped if the service stops first.
func (s *Service) hintAfterDelay(debateID string, next models.Agent) {
	if s.turns.Delay > 0 {
		timer := time.NewTimer(s.turns.Delay)
		defer timer.Stop()
		select {
		case <-s.ctx.Done():
			return
		case <-timer.C:
		}
	} else if s.ctx.Err() != nil {
		return
	}

	if err := s.publisher.PublishNextTurn(events.StartAgentTurnPayload{DebateID: debateID, Agent: next}); err != nil {
		slog.Warn("Failed to publish next-turn hint", "debate_id", debateID, "error", err)
	}
}

func (s *Service) publishTyping(debateID string, agent models.Agent, typing bool) {
	if err := s.publisher.PublishTypingStatus(events.TypingStatusPayload{
		DebateID: debateID,
		Agent:    agent,
		IsTyping: typing,
	}); err != nil {
		slog.Warn("Failed to publish typing_status", "debate_id", debateID, "error", err)
	}
}
