// Package controller is the viewer-side debate session controller. It owns
// one session at a time: it creates it, drives its first turn, folds the
// inbound event stream into a transcript and injects interventions.
package controller

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/codeready-toolchain/deliberatorium/pkg/channel"
	"github.com/codeready-toolchain/deliberatorium/pkg/events"
	"github.com/codeready-toolchain/deliberatorium/pkg/models"
	"github.com/codeready-toolchain/deliberatorium/pkg/transcript"
)

// CreatedSession is the outcome of a session creation call.
type CreatedSession struct {
	DebateID string
	Topic    string

	// Agents may be empty; the roster then arrives with debate_started.
	Agents []models.Agent
}

// SessionCreator creates debates out-of-band from the event channel.
type SessionCreator interface {
	CreateSession(ctx context.Context, topic string) (*CreatedSession, error)
}

// EventChannel is the subset of *channel.Channel the controller uses.
type EventChannel interface {
	On(event string, h channel.Handler) string
	Off(id string) bool
	Emit(ctx context.Context, evt events.Event) error
}

// inboundEvents are the events a session listens to while it is held.
var inboundEvents = []string{
	events.EventDebateStarted,
	events.EventNewMessage,
	events.EventNewIntervention,
	events.EventTypingStatus,
	events.EventStartAgentTurn,
	events.EventError,
}

// Controller holds one viewer session. All folds and state changes are
// serialized by mu; events are emitted and observers notified outside it.
// Observers see states in the order they were produced.
type Controller struct {
	creator SessionCreator
	channel EventChannel
	now     func() time.Time

	mu    sync.Mutex
	state transcript.State
	draft string

	// version numbers each published state under mu; notify skips any
	// state older than the last one delivered.
	version uint64

	// generation identifies the current session attempt; handlers bound
	// to an older generation are inert.
	generation     uint64
	subscriptions  []string
	cancelStart    context.CancelFunc
	stashed        []events.DebateStartedPayload
	firstRequested bool

	observersMu sync.RWMutex
	observers   []func(transcript.State)

	notifyMu sync.Mutex
	notified uint64
}

// New creates a controller. The caller owns the channel's lifecycle.
func New(creator SessionCreator, ch EventChannel) *Controller {
	return &Controller{
		creator: creator,
		channel: ch,
		now:     time.Now,
		state:   transcript.Initial(),
	}
}

// OnChange registers an observer called with a copy of every new state.
// Observers run one at a time and never see an older state after a newer
// one; a state superseded before delivery is skipped. Observers must not
// call StartSession or Reset.
func (c *Controller) OnChange(fn func(transcript.State)) {
	c.observersMu.Lock()
	defer c.observersMu.Unlock()
	c.observers = append(c.observers, fn)
}

// Snapshot returns a copy of the current state.
func (c *Controller) Snapshot() transcript.State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.Clone()
}

// SetDraft replaces the pending intervention text.
func (c *Controller) SetDraft(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.draft = text
}

// Draft returns the pending intervention text.
func (c *Controller) Draft() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.draft
}

// StartSession creates a debate on topic and requests its first turn. It
// blocks until creation completes, fails, or Reset interrupts it.
func (c *Controller) StartSession(ctx context.Context, topic string) (string, error) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return "", &ValidationError{Field: "topic", Message: "required"}
	}

	c.mu.Lock()
	if c.state.Status == transcript.StatusStarting || c.state.Status == transcript.StatusActive {
		c.mu.Unlock()
		return "", ErrSessionInProgress
	}
	c.generation++
	gen := c.generation
	startCtx, cancel := context.WithCancel(ctx)
	c.cancelStart = cancel
	c.stashed = nil
	c.firstRequested = false
	c.state = transcript.Starting(topic)
	c.attachLocked(gen)
	starting, version := c.publishLocked()
	c.mu.Unlock()
	c.notify(version, starting)

	created, err := c.creator.CreateSession(startCtx, topic)
	cancel()

	c.mu.Lock()
	if gen != c.generation {
		c.mu.Unlock()
		return "", ErrSessionReset
	}
	c.cancelStart = nil
	if err != nil {
		subs := c.takeSubscriptionsLocked()
		c.stashed = nil
		c.state = transcript.Initial()
		reverted, version := c.publishLocked()
		c.mu.Unlock()
		c.detach(subs)
		c.notify(version, reverted)
		return "", &TransportError{Op: "create session", Err: err}
	}

	c.state = transcript.Begin(created.DebateID, topic)
	if len(created.Agents) > 0 {
		c.state = c.state.WithRoster(created.Agents)
	}
	for _, evt := range c.stashed {
		c.state = transcript.Fold(c.state, evt, c.now())
	}
	c.stashed = nil
	request := c.firstTurnLocked()
	active, version := c.publishLocked()
	c.mu.Unlock()

	slog.Info("Debate session started", "debate_id", created.DebateID, "topic", topic)
	c.notify(version, active)
	c.emit(gen, request)
	return created.DebateID, nil
}

// SendIntervention emits a user intervention for the active session and
// clears the draft once the emit succeeds. It is a no-op without an active
// session or with blank text, and does not wait for the server's echo.
func (c *Controller) SendIntervention(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)

	c.mu.Lock()
	if c.state.Status != transcript.StatusActive || c.state.SessionID == "" || text == "" {
		c.mu.Unlock()
		return nil
	}
	id := c.state.SessionID
	gen := c.generation
	draft := c.draft
	c.mu.Unlock()

	if err := c.channel.Emit(ctx, events.UserInterventionPayload{DebateID: id, Intervention: text}); err != nil {
		return fmt.Errorf("failed to send intervention: %w", err)
	}

	// A draft edited while the emit was in flight is kept.
	c.mu.Lock()
	if gen == c.generation && c.draft == draft {
		c.draft = ""
	}
	c.mu.Unlock()
	return nil
}

// Reset drops the current session locally: it interrupts a pending
// StartSession, detaches listeners and clears all session state. The
// server is not notified; events of the dropped session are discarded.
func (c *Controller) Reset() {
	c.mu.Lock()
	c.generation++
	if c.cancelStart != nil {
		c.cancelStart()
		c.cancelStart = nil
	}
	subs := c.takeSubscriptionsLocked()
	c.stashed = nil
	c.firstRequested = false
	c.draft = ""
	c.state = transcript.Cleared()
	cleared, version := c.publishLocked()
	c.mu.Unlock()

	c.detach(subs)
	slog.Debug("Debate session reset")
	c.notify(version, cleared)
}

func (c *Controller) attachLocked(gen uint64) {
	for _, name := range inboundEvents {
		c.subscriptions = append(c.subscriptions, c.channel.On(name, func(evt events.Event) {
			c.onEvent(gen, evt)
		}))
	}
}

func (c *Controller) takeSubscriptionsLocked() []string {
	subs := c.subscriptions
	c.subscriptions = nil
	return subs
}

// detach runs without mu: Off waits for a running handler, and handlers take mu.
func (c *Controller) detach(subs []string) {
	for _, id := range subs {
		c.channel.Off(id)
	}
}

// onEvent runs on the channel's dispatch goroutine.
func (c *Controller) onEvent(gen uint64, evt events.Event) {
	c.mu.Lock()
	if gen != c.generation {
		c.mu.Unlock()
		return
	}

	// debate_started can beat the creation response; hold it until the id is known.
	if started, ok := evt.(events.DebateStartedPayload); ok && c.state.Status == transcript.StatusStarting {
		c.stashed = append(c.stashed, started)
		c.mu.Unlock()
		return
	}

	if err := transcript.Check(c.state, evt); err != nil {
		c.mu.Unlock()
		slog.Debug("Discarding event", "reason", err)
		return
	}

	// A next-turn hint is echoed back as this viewer's begin-turn request.
	if hint, ok := evt.(events.StartAgentTurnPayload); ok {
		c.mu.Unlock()
		c.emit(gen, &hint)
		return
	}

	c.state = transcript.Fold(c.state, evt, c.now())
	request := c.firstTurnLocked()
	next, version := c.publishLocked()
	c.mu.Unlock()

	c.notify(version, next)
	c.emit(gen, request)
}

// firstTurnLocked returns the begin-turn request for the first roster agent
// once both the session id and roster are known, at most once per session.
func (c *Controller) firstTurnLocked() *events.StartAgentTurnPayload {
	if c.firstRequested || c.state.SessionID == "" || len(c.state.Roster) == 0 {
		return nil
	}
	c.firstRequested = true
	return &events.StartAgentTurnPayload{DebateID: c.state.SessionID, Agent: c.state.Roster[0]}
}

func (c *Controller) emit(gen uint64, request *events.StartAgentTurnPayload) {
	if request == nil {
		return
	}
	err := c.channel.Emit(context.Background(), *request)
	if err == nil {
		return
	}
	slog.Warn("Failed to request agent turn",
		"debate_id", request.DebateID, "agent", request.Agent.Name, "error", err)

	c.mu.Lock()
	if gen != c.generation {
		c.mu.Unlock()
		return
	}
	c.state.LastError = fmt.Sprintf("failed to request turn for %s: %v", request.Agent.Name, err)
	next, version := c.publishLocked()
	c.mu.Unlock()
	c.notify(version, next)
}

func (c *Controller) publishLocked() (transcript.State, uint64) {
	c.version++
	return c.state.Clone(), c.version
}

func (c *Controller) notify(version uint64, s transcript.State) {
	c.notifyMu.Lock()
	defer c.notifyMu.Unlock()
	if version <= c.notified {
		return
	}
	c.notified = version

	c.observersMu.RLock()
	observers := make([]func(transcript.State), len(c.observers))
	copy(observers, c.observers)
	c.observersMu.RUnlock()

	for _, fn := range observers {
		fn(s)
	}
}
