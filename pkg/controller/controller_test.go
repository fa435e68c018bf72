package controller

import (
	"context"
	"errors"
	"sort"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codeready-toolchain/deliberatorium/pkg/channel"
	"github.com/codeready-toolchain/deliberatorium/pkg/events"
	"github.com/codeready-toolchain/deliberatorium/pkg/models"
	"github.com/codeready-toolchain/deliberatorium/pkg/transcript"
)

var (
	economist    = models.Agent{Name: "Economist", Role: "Economic policy expert"}
	ethicist     = models.Agent{Name: "Ethicist", Role: "Moral philosophy specialist"}
	socialWorker = models.Agent{Name: "Social Worker", Role: "Social policy specialist"}
	roster       = []models.Agent{economist, ethicist, socialWorker}
)

// fakeChannel delivers events synchronously on the calling goroutine.
type fakeChannel struct {
	mu       sync.Mutex
	handlers map[string]fakeSub
	nextID   int
	emitted  []events.Event
	emitErr  error
}

type fakeSub struct {
	event   string
	handler channel.Handler
}

func newFakeChannel() *fakeChannel {
	return &fakeChannel{handlers: make(map[string]fakeSub)}
}

func (f *fakeChannel) On(event string, h channel.Handler) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	id := strconv.Itoa(f.nextID)
	f.handlers[id] = fakeSub{event: event, handler: h}
	return id
}

func (f *fakeChannel) Off(id string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.handlers[id]
	delete(f.handlers, id)
	return ok
}

func (f *fakeChannel) Emit(_ context.Context, evt events.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.emitErr != nil {
		return f.emitErr
	}
	f.emitted = append(f.emitted, evt)
	return nil
}

// handlersFor returns the live handlers for an event, in subscription order.
func (f *fakeChannel) handlersFor(event string) []channel.Handler {
	f.mu.Lock()
	defer f.mu.Unlock()
	ids := make([]int, 0, len(f.handlers))
	for id, sub := range f.handlers {
		if sub.event == event {
			n, _ := strconv.Atoi(id)
			ids = append(ids, n)
		}
	}
	sort.Ints(ids)
	out := make([]channel.Handler, 0, len(ids))
	for _, n := range ids {
		out = append(out, f.handlers[strconv.Itoa(n)].handler)
	}
	return out
}

func (f *fakeChannel) deliver(evt events.Event) {
	for _, h := range f.handlersFor(evt.EventName()) {
		h(evt)
	}
}

func (f *fakeChannel) subscriptionCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.handlers)
}

func (f *fakeChannel) sent() []events.Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]events.Event, len(f.emitted))
	copy(out, f.emitted)
	return out
}

// fakeCreator answers CreateSession from a function.
type fakeCreator struct {
	mu    sync.Mutex
	calls int
	fn    func(ctx context.Context, topic string) (*CreatedSession, error)
}

func (f *fakeCreator) CreateSession(ctx context.Context, topic string) (*CreatedSession, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	return f.fn(ctx, topic)
}

func (f *fakeCreator) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func respond(id string, agents []models.Agent) *fakeCreator {
	return &fakeCreator{fn: func(_ context.Context, topic string) (*CreatedSession, error) {
		return &CreatedSession{DebateID: id, Topic: topic, Agents: agents}, nil
	}}
}

func startActive(t *testing.T, agents []models.Agent) (*Controller, *fakeChannel) {
	t.Helper()
	ch := newFakeChannel()
	c := New(respond("s1", agents), ch)
	id, err := c.StartSession(context.Background(), "Should cities ban cars?")
	require.NoError(t, err)
	require.Equal(t, "s1", id)
	return c, ch
}

func TestStartSession_BlankTopic(t *testing.T) {
	ch := newFakeChannel()
	creator := respond("s1", roster)
	c := New(creator, ch)

	_, err := c.StartSession(context.Background(), "   ")
	require.Error(t, err)
	assert.True(t, IsValidationError(err))
	assert.Zero(t, creator.callCount())
	assert.Zero(t, ch.subscriptionCount())
	assert.Equal(t, transcript.StatusUninitialized, c.Snapshot().Status)
}

func TestStartSession_TransportError(t *testing.T) {
	ch := newFakeChannel()
	cause := errors.New("connection refused")
	c := New(&fakeCreator{fn: func(context.Context, string) (*CreatedSession, error) { return nil, cause }}, ch)

	_, err := c.StartSession(context.Background(), "topic")
	require.Error(t, err)
	assert.True(t, IsTransportError(err))
	assert.ErrorIs(t, err, cause)

	s := c.Snapshot()
	assert.Equal(t, transcript.StatusUninitialized, s.Status)
	assert.Empty(t, s.SessionID)
	assert.Zero(t, ch.subscriptionCount())
	assert.Empty(t, ch.sent())
}

func TestStartSession_RosterInResponse(t *testing.T) {
	c, ch := startActive(t, roster)

	s := c.Snapshot()
	assert.Equal(t, transcript.StatusActive, s.Status)
	assert.Equal(t, "s1", s.SessionID)
	assert.Equal(t, "Should cities ban cars?", s.Topic)
	assert.Equal(t, roster, s.Roster)

	assert.Equal(t, []events.Event{events.StartAgentTurnPayload{DebateID: "s1", Agent: economist}}, ch.sent())
}

func TestStartSession_FirstTurnDeferredUntilRoster(t *testing.T) {
	c, ch := startActive(t, nil)

	s := c.Snapshot()
	assert.Equal(t, transcript.StatusActive, s.Status)
	assert.Empty(t, s.Roster)
	assert.Empty(t, ch.sent(), "no roster yet, so no begin-turn request")

	ch.deliver(events.DebateStartedPayload{DebateID: "s1", Topic: "Should cities ban cars?", Agents: roster})

	s = c.Snapshot()
	assert.Equal(t, transcript.StatusActive, s.Status)
	assert.Equal(t, "Should cities ban cars?", s.Topic)
	assert.Empty(t, s.Entries)
	assert.Equal(t, []events.Event{events.StartAgentTurnPayload{DebateID: "s1", Agent: economist}}, ch.sent())

	// A repeated debate_started does not request the first turn again
	ch.deliver(events.DebateStartedPayload{DebateID: "s1", Topic: "Should cities ban cars?", Agents: roster})
	assert.Len(t, ch.sent(), 1)
}

func TestStartSession_DebateStartedBeforeResponse(t *testing.T) {
	ch := newFakeChannel()
	release := make(chan struct{})
	c := New(&fakeCreator{fn: func(ctx context.Context, topic string) (*CreatedSession, error) {
		<-release
		return &CreatedSession{DebateID: "s1", Topic: topic}, nil
	}}, ch)

	done := make(chan error, 1)
	go func() {
		_, err := c.StartSession(context.Background(), "topic")
		done <- err
	}()

	require.Eventually(t, func() bool { return c.Snapshot().Status == transcript.StatusStarting },
		time.Second, time.Millisecond)
	ch.deliver(events.DebateStartedPayload{DebateID: "someone-else", Topic: "other", Agents: roster[:1]})
	ch.deliver(events.DebateStartedPayload{DebateID: "s1", Topic: "topic", Agents: roster})
	close(release)
	require.NoError(t, <-done)

	s := c.Snapshot()
	assert.Equal(t, roster, s.Roster)
	assert.Equal(t, "topic", s.Topic)
	assert.Equal(t, []events.Event{events.StartAgentTurnPayload{DebateID: "s1", Agent: economist}}, ch.sent())
}

func TestStartSession_InProgress(t *testing.T) {
	c, _ := startActive(t, roster)
	_, err := c.StartSession(context.Background(), "another")
	assert.ErrorIs(t, err, ErrSessionInProgress)
}

func TestStartSession_ResetInterrupts(t *testing.T) {
	ch := newFakeChannel()
	c := New(&fakeCreator{fn: func(ctx context.Context, _ string) (*CreatedSession, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}}, ch)

	done := make(chan error, 1)
	go func() {
		_, err := c.StartSession(context.Background(), "topic")
		done <- err
	}()
	require.Eventually(t, func() bool { return c.Snapshot().Status == transcript.StatusStarting },
		time.Second, time.Millisecond)

	c.Reset()
	assert.ErrorIs(t, <-done, ErrSessionReset)
	assert.Equal(t, transcript.StatusReset, c.Snapshot().Status)
	assert.Zero(t, ch.subscriptionCount())
	assert.Empty(t, ch.sent())
}

func TestTurnSequenceBuildsOneEntry(t *testing.T) {
	c, ch := startActive(t, roster)

	ch.deliver(events.TypingStatusPayload{DebateID: "s1", Agent: economist, IsTyping: true})
	require.NotNil(t, c.Snapshot().Typing)

	ch.deliver(events.NewMessagePayload{DebateID: "s1", Message: models.Message{
		Type: models.MessageTypeMessage, Content: "...", Sender: "Economist",
		Timestamp: models.FormatTimestamp(time.Now()),
	}})
	ch.deliver(events.TypingStatusPayload{DebateID: "s1", Agent: economist, IsTyping: false})

	s := c.Snapshot()
	require.Len(t, s.Entries, 1)
	assert.Equal(t, transcript.KindAgentMessage, s.Entries[0].Kind)
	assert.Equal(t, "Economist", s.Entries[0].Sender.Name)
	assert.Nil(t, s.Typing)
}

func TestForeignTypingIgnored(t *testing.T) {
	c, ch := startActive(t, roster)
	before := c.Snapshot()

	ch.deliver(events.TypingStatusPayload{DebateID: "s2", Agent: economist, IsTyping: true})
	assert.Equal(t, before, c.Snapshot())
}

func TestHintEchoedForCurrentSession(t *testing.T) {
	_, ch := startActive(t, roster)

	ch.deliver(events.StartAgentTurnPayload{DebateID: "s1", Agent: ethicist})
	ch.deliver(events.StartAgentTurnPayload{DebateID: "s2", Agent: socialWorker})

	assert.Equal(t, []events.Event{
		events.StartAgentTurnPayload{DebateID: "s1", Agent: economist},
		events.StartAgentTurnPayload{DebateID: "s1", Agent: ethicist},
	}, ch.sent())
}

func TestSendIntervention(t *testing.T) {
	c, ch := startActive(t, roster)
	c.SetDraft("Consider rural areas")

	require.NoError(t, c.SendIntervention(context.Background(), "  Consider rural areas  "))

	sent := ch.sent()
	require.Len(t, sent, 2)
	assert.Equal(t, events.UserInterventionPayload{DebateID: "s1", Intervention: "Consider rural areas"}, sent[1])
	assert.Empty(t, c.Draft())

	// Transcript changes only when the server echoes it back
	assert.Empty(t, c.Snapshot().Entries)
	ch.deliver(events.NewInterventionPayload{DebateID: "s1", Intervention: "Consider rural areas"})
	require.Len(t, c.Snapshot().Entries, 1)
	assert.Equal(t, transcript.KindUserIntervention, c.Snapshot().Entries[0].Kind)
}

func TestSendIntervention_BlankIsNoop(t *testing.T) {
	c, ch := startActive(t, roster)
	c.SetDraft("keep me")

	require.NoError(t, c.SendIntervention(context.Background(), "   "))
	assert.Len(t, ch.sent(), 1)
	assert.Equal(t, "keep me", c.Draft())
}

func TestSendIntervention_NoSession(t *testing.T) {
	ch := newFakeChannel()
	c := New(respond("s1", roster), ch)
	before := c.Snapshot()

	require.NoError(t, c.SendIntervention(context.Background(), "Consider rural areas"))
	assert.Empty(t, ch.sent())
	assert.Equal(t, before, c.Snapshot())
}

func TestSendIntervention_EmitError(t *testing.T) {
	c, ch := startActive(t, roster)
	ch.emitErr = channel.ErrNotConnected

	c.SetDraft("hello")

	err := c.SendIntervention(context.Background(), c.Draft())
	assert.ErrorIs(t, err, channel.ErrNotConnected)
	assert.Equal(t, "hello", c.Draft(), "draft survives a failed send")
}

func TestReset_LateEventsDiscarded(t *testing.T) {
	c, ch := startActive(t, roster)
	ch.deliver(events.NewMessagePayload{DebateID: "s1", Message: models.NewAgentMessage(economist, "before", time.Now())})
	require.Len(t, c.Snapshot().Entries, 1)

	// Keep a handler from the old session to simulate a delivery racing Reset
	stale := ch.handlersFor(events.EventNewMessage)
	require.Len(t, stale, 1)
	c.SetDraft("unsent")

	c.Reset()

	s := c.Snapshot()
	assert.Equal(t, transcript.StatusReset, s.Status)
	assert.Empty(t, s.SessionID)
	assert.Empty(t, s.Topic)
	assert.Empty(t, s.Roster)
	assert.Empty(t, s.Entries)
	assert.Nil(t, s.Typing)
	assert.Empty(t, c.Draft())
	assert.Zero(t, ch.subscriptionCount())

	late := events.NewMessagePayload{DebateID: "s1", Message: models.NewAgentMessage(ethicist, "orphaned", time.Now())}
	ch.deliver(late)
	stale[0](late)
	assert.Empty(t, c.Snapshot().Entries)

	// Reset does not notify the server
	assert.Len(t, ch.sent(), 1)
}

func TestReset_ThenNewSession(t *testing.T) {
	ch := newFakeChannel()
	ids := []string{"s1", "s2"}
	n := 0
	c := New(&fakeCreator{fn: func(_ context.Context, topic string) (*CreatedSession, error) {
		id := ids[n]
		n++
		return &CreatedSession{DebateID: id, Topic: topic, Agents: roster}, nil
	}}, ch)

	_, err := c.StartSession(context.Background(), "first")
	require.NoError(t, err)
	c.Reset()
	id, err := c.StartSession(context.Background(), "second")
	require.NoError(t, err)
	assert.Equal(t, "s2", id)

	ch.deliver(events.NewInterventionPayload{DebateID: "s1", Intervention: "old"})
	ch.deliver(events.NewInterventionPayload{DebateID: "s2", Intervention: "new"})

	s := c.Snapshot()
	require.Len(t, s.Entries, 1)
	assert.Equal(t, "new", s.Entries[0].Content)
	assert.Equal(t, len(inboundEvents), ch.subscriptionCount())
}

func TestFirstTurnEmitFailureRecorded(t *testing.T) {
	ch := newFakeChannel()
	ch.emitErr = channel.ErrNotConnected
	c := New(respond("s1", roster), ch)

	_, err := c.StartSession(context.Background(), "topic")
	require.NoError(t, err)
	assert.Contains(t, c.Snapshot().LastError, "failed to request turn for Economist")
}

func TestOnChange(t *testing.T) {
	ch := newFakeChannel()
	c := New(respond("s1", roster), ch)

	var statuses []transcript.Status
	c.OnChange(func(s transcript.State) { statuses = append(statuses, s.Status) })

	_, err := c.StartSession(context.Background(), "topic")
	require.NoError(t, err)
	ch.deliver(events.NewInterventionPayload{DebateID: "s1", Intervention: "hi"})
	c.Reset()

	assert.Equal(t, []transcript.Status{
		transcript.StatusStarting,
		transcript.StatusActive,
		transcript.StatusActive,
		transcript.StatusReset,
	}, statuses)
}

func TestOnChange_ResetDuringNotificationEndsOnReset(t *testing.T) {
	c, ch := startActive(t, roster)

	var (
		mu   sync.Mutex
		last transcript.State
		once sync.Once
	)
	blocked := make(chan struct{})
	release := make(chan struct{})
	c.OnChange(func(s transcript.State) {
		if len(s.Entries) == 1 {
			once.Do(func() {
				close(blocked)
				<-release
			})
		}
		mu.Lock()
		defer mu.Unlock()
		last = s
	})

	delivered := make(chan struct{})
	go func() {
		defer close(delivered)
		ch.deliver(events.NewMessagePayload{DebateID: "s1", Message: models.NewAgentMessage(economist, "opening", time.Now())})
	}()
	select {
	case <-blocked:
	case <-time.After(2 * time.Second):
		t.Fatal("observer was not notified of the message")
	}

	resetDone := make(chan struct{})
	go func() {
		defer close(resetDone)
		c.Reset()
	}()
	require.Eventually(t, func() bool { return c.Snapshot().Status == transcript.StatusReset },
		2*time.Second, 5*time.Millisecond)

	close(release)
	for _, done := range []chan struct{}{delivered, resetDone} {
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatal("notification did not complete")
		}
	}

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, transcript.StatusReset, last.Status)
	assert.Empty(t, last.SessionID)
	assert.Empty(t, last.Entries)
}
