package transcript

import (
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codeready-toolchain/deliberatorium/pkg/events"
	"github.com/codeready-toolchain/deliberatorium/pkg/models"
)

var (
	economist    = models.Agent{Name: "Economist", Role: "Economic policy expert"}
	ethicist     = models.Agent{Name: "Ethicist", Role: "Moral philosophy specialist"}
	socialWorker = models.Agent{Name: "Social Worker", Role: "Social policy specialist"}
	roster       = []models.Agent{economist, ethicist, socialWorker}

	t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
)

func message(id string, agent models.Agent, content string, at time.Time) events.NewMessagePayload {
	return events.NewMessagePayload{DebateID: id, Message: models.NewAgentMessage(agent, content, at)}
}

func typing(id string, agent models.Agent, on bool) events.TypingStatusPayload {
	return events.TypingStatusPayload{DebateID: id, Agent: agent, IsTyping: on}
}

func TestFold_DebateStarted(t *testing.T) {
	s := Begin("s1", "Should cities ban cars?")
	s = Fold(s, events.DebateStartedPayload{DebateID: "s1", Topic: "Should cities ban cars?", Agents: roster}, t0)

	assert.Equal(t, StatusActive, s.Status)
	assert.Equal(t, "Should cities ban cars?", s.Topic)
	assert.Equal(t, roster, s.Roster)
	assert.Empty(t, s.Entries)
	assert.Nil(t, s.Typing)
}

func TestFold_DebateStartedClearsTranscript(t *testing.T) {
	s := Begin("s1", "topic")
	s = Fold(s, message("s1", economist, "first", t0), t0)
	s = Fold(s, typing("s1", ethicist, true), t0)
	require.Len(t, s.Entries, 1)

	s = Fold(s, events.DebateStartedPayload{DebateID: "s1", Topic: "topic", Agents: roster}, t0)
	assert.Empty(t, s.Entries)
	assert.Nil(t, s.Typing)
}

func TestFold_TurnProducesOneEntryAndClearsTyping(t *testing.T) {
	s := Begin("s1", "topic")

	s = Fold(s, typing("s1", economist, true), t0)
	require.NotNil(t, s.Typing)
	assert.Equal(t, economist, s.Typing.Agent)

	s = Fold(s, message("s1", economist, "...", t0), t0)
	s = Fold(s, typing("s1", economist, false), t0)

	require.Len(t, s.Entries, 1)
	entry := s.Entries[0]
	assert.Equal(t, KindAgentMessage, entry.Kind)
	require.NotNil(t, entry.Sender)
	assert.Equal(t, economist, *entry.Sender)
	assert.Equal(t, "...", entry.Content)
	assert.Nil(t, s.Typing)
}

func TestFold_MessageWithoutAgentUsesWireFields(t *testing.T) {
	s := Begin("s1", "topic")
	s = Fold(s, events.NewMessagePayload{DebateID: "s1", Message: models.Message{
		Type:      models.MessageTypeMessage,
		Content:   "hello",
		Timestamp: "2026-03-01T12:00:00.123456",
		Sender:    "Economist",
		Role:      "Economic policy expert",
	}}, t0.Add(time.Hour))

	require.Len(t, s.Entries, 1)
	assert.Equal(t, economist, *s.Entries[0].Sender)
	assert.Equal(t, t0.Add(123456*time.Microsecond), s.Entries[0].Timestamp)
}

func TestFold_UnparseableTimestampUsesReceipt(t *testing.T) {
	received := t0.Add(5 * time.Minute)
	s := Begin("s1", "topic")
	s = Fold(s, events.NewMessagePayload{DebateID: "s1", Message: models.Message{
		Content:   "hello",
		Timestamp: "yesterday",
		Sender:    "Economist",
	}}, received)

	require.Len(t, s.Entries, 1)
	assert.Equal(t, received, s.Entries[0].Timestamp)
	assert.Equal(t, "hello", s.Entries[0].Content)
}

func TestFold_InterventionStampedWithReceipt(t *testing.T) {
	s := Begin("s1", "topic")
	received := t0.Add(42 * time.Second)
	s = Fold(s, events.NewInterventionPayload{DebateID: "s1", Intervention: "Consider rural areas"}, received)

	require.Len(t, s.Entries, 1)
	assert.Equal(t, Entry{Kind: KindUserIntervention, Content: "Consider rural areas", Timestamp: received}, s.Entries[0])
}

func TestFold_ArrivalOrderBeatsTimestamps(t *testing.T) {
	s := Begin("s1", "topic")
	// The second message carries an earlier timestamp (agent clock skew)
	s = Fold(s, message("s1", economist, "first", t0), t0)
	s = Fold(s, message("s1", ethicist, "second", t0.Add(-time.Minute)), t0)
	s = Fold(s, message("s1", ethicist, "second", t0.Add(-time.Minute)), t0)

	require.Len(t, s.Entries, 3, "no deduplication")
	assert.Equal(t, "first", s.Entries[0].Content)
	assert.Equal(t, "second", s.Entries[1].Content)
}

func TestFold_InterventionInterleavedWithTurn(t *testing.T) {
	s := Begin("s1", "topic")
	s = Fold(s, typing("s1", economist, true), t0)
	s = Fold(s, events.NewInterventionPayload{DebateID: "s1", Intervention: "What about buses?"}, t0)
	require.NotNil(t, s.Typing, "intervention leaves the typing indicator alone")

	s = Fold(s, message("s1", economist, "Cars pay for roads.", t0), t0)
	s = Fold(s, typing("s1", economist, false), t0)

	require.Len(t, s.Entries, 2)
	assert.Equal(t, KindUserIntervention, s.Entries[0].Kind)
	assert.Equal(t, KindAgentMessage, s.Entries[1].Kind)
}

func TestFold_TypingLastWriteWins(t *testing.T) {
	s := Begin("s1", "topic")
	s = Fold(s, typing("s1", economist, true), t0)
	s = Fold(s, typing("s1", ethicist, true), t0)

	require.NotNil(t, s.Typing)
	assert.Equal(t, ethicist, s.Typing.Agent)
}

func TestFold_StaleEventsDiscarded(t *testing.T) {
	s := Begin("s1", "topic")
	s = Fold(s, message("s1", economist, "kept", t0), t0)
	before := s.Clone()

	stale := []events.Event{
		typing("other", economist, true),
		message("other", economist, "foreign", t0),
		events.NewInterventionPayload{DebateID: "other", Intervention: "x"},
		events.DebateStartedPayload{DebateID: "other", Topic: "other", Agents: roster},
		events.ErrorPayload{DebateID: "other", Message: "boom"},
	}
	for _, evt := range stale {
		t.Run(evt.EventName(), func(t *testing.T) {
			err := Check(s, evt)
			require.Error(t, err)
			assert.True(t, IsStale(err))

			assert.Equal(t, before, Fold(s, evt, t0))
		})
	}
}

func TestFold_NoSessionDiscardsEverything(t *testing.T) {
	for _, s := range []State{Initial(), Starting("topic"), Cleared()} {
		t.Run(string(s.Status), func(t *testing.T) {
			out := Fold(s, message("s1", economist, "late", t0), t0)
			assert.Empty(t, out.Entries)
			out = Fold(out, typing("s1", economist, true), t0)
			assert.Nil(t, out.Typing)
			assert.Equal(t, s.Status, out.Status)
		})
	}
}

func TestFold_ResetThenLateMessage(t *testing.T) {
	s := Begin("s1", "topic")
	s = Fold(s, message("s1", economist, "before reset", t0), t0)

	s = Cleared()
	s = Fold(s, message("s1", ethicist, "orphaned turn", t0), t0)

	assert.Empty(t, s.Entries)
	assert.Equal(t, StatusReset, s.Status)
}

func TestFold_ErrorEvents(t *testing.T) {
	s := Begin("s1", "topic")
	s = Fold(s, events.ErrorPayload{DebateID: "s1", Message: "Economist could not respond"}, t0)
	assert.Equal(t, "Economist could not respond", s.LastError)

	s = Fold(s, events.ErrorPayload{Message: "connection-level"}, t0)
	assert.Equal(t, "connection-level", s.LastError)
	assert.Empty(t, s.Entries)
}

func TestFold_IgnoredVariants(t *testing.T) {
	s := Begin("s1", "topic")
	assert.Equal(t, s, Fold(s, events.StartAgentTurnPayload{DebateID: "s1", Agent: ethicist}, t0))
	assert.Equal(t, s, Fold(s, events.ConnectionEstablishedPayload{ConnectionID: "c1"}, t0))
}

func TestFold_DoesNotMutatePrev(t *testing.T) {
	base := Begin("s1", "topic")
	base = Fold(base, message("s1", economist, "one", t0), t0)
	snapshot := base.Clone()

	a := Fold(base, message("s1", ethicist, "branch a", t0), t0)
	b := Fold(base, message("s1", socialWorker, "branch b", t0), t0)

	assert.Equal(t, snapshot, base)
	assert.Equal(t, "branch a", a.Entries[1].Content)
	assert.Equal(t, "branch b", b.Entries[1].Content)
}

// randomEvent draws from every inbound variant, including stale ones.
func randomEvent(r *rand.Rand, i int) events.Event {
	id := "s1"
	if r.Intn(5) == 0 {
		id = "stale"
	}
	agent := roster[r.Intn(len(roster))]
	switch r.Intn(5) {
	case 0:
		return message(id, agent, fmt.Sprintf("m%d", i), t0.Add(time.Duration(r.Intn(100))*time.Second))
	case 1:
		return events.NewInterventionPayload{DebateID: id, Intervention: fmt.Sprintf("i%d", i)}
	case 2:
		return typing(id, agent, r.Intn(2) == 0)
	case 3:
		return events.ErrorPayload{DebateID: id, Message: "e"}
	default:
		return events.StartAgentTurnPayload{DebateID: id, Agent: agent}
	}
}

func TestFold_AppendOnlyAndOrderPreserving(t *testing.T) {
	r := rand.New(rand.NewSource(7))

	for run := 0; run < 50; run++ {
		s := Begin("s1", "topic")
		var want []string

		for i := 0; i < 200; i++ {
			evt := randomEvent(r, i)
			prevLen := len(s.Entries)
			prevEntries := s.Entries

			s = Fold(s, evt, t0)

			require.GreaterOrEqual(t, len(s.Entries), prevLen, "transcript shrank on %s", evt.EventName())
			if prevLen > 0 {
				assert.Equal(t, prevEntries, s.Entries[:prevLen], "existing entries changed on %s", evt.EventName())
			}

			if Check(Begin("s1", "topic"), evt) != nil {
				continue
			}
			switch e := evt.(type) {
			case events.NewMessagePayload:
				want = append(want, e.Message.Content)
			case events.NewInterventionPayload:
				want = append(want, e.Intervention)
			}
		}

		got := make([]string, 0, len(s.Entries))
		for _, e := range s.Entries {
			got = append(got, e.Content)
		}
		require.Equal(t, want, got)
	}
}
