package events

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codeready-toolchain/deliberatorium/pkg/models"
)

// mockInboundHandler records viewer requests for tests.
type mockInboundHandler struct {
	mu            sync.Mutex
	turns         []StartAgentTurnPayload
	interventions []UserInterventionPayload
	err           error
}

func (m *mockInboundHandler) HandleStartAgentTurn(_ context.Context, p StartAgentTurnPayload) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.turns = append(m.turns, p)
	return m.err
}

func (m *mockInboundHandler) HandleUserIntervention(_ context.Context, p UserInterventionPayload) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.interventions = append(m.interventions, p)
	return m.err
}

func (m *mockInboundHandler) counts() (int, int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.turns), len(m.interventions)
}

func setupTestManager(t *testing.T, h InboundHandler) (*ConnectionManager, *httptest.Server) {
	t.Helper()

	manager := NewConnectionManager(5 * time.Second)
	if h != nil {
		manager.SetHandler(h)
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			InsecureSkipVerify: true,
		})
		if err != nil {
			t.Logf("WebSocket accept error: %v", err)
			return
		}
		manager.HandleConnection(r.Context(), conn)
	}))

	t.Cleanup(func() { server.Close() })
	return manager, server
}

func connectWS(t *testing.T, server *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + server.URL[len("http"):]
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close(websocket.StatusNormalClosure, "") })
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) Event {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, data, err := conn.Read(ctx)
	require.NoError(t, err)

	evt, err := Decode(data, ToViewer)
	require.NoError(t, err)
	return evt
}

func writeEvent(t *testing.T, conn *websocket.Conn, evt Event) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	frame, err := Encode(evt)
	require.NoError(t, err)
	require.NoError(t, conn.Write(ctx, websocket.MessageText, frame))
}

func TestConnectionManager_ConnectionEstablished(t *testing.T) {
	manager, server := setupTestManager(t, nil)
	conn := connectWS(t, server)

	evt := readEvent(t, conn)
	established, ok := evt.(ConnectionEstablishedPayload)
	require.True(t, ok, "expected connection_established, got %s", evt.EventName())
	assert.NotEmpty(t, established.ConnectionID)

	require.Eventually(t, func() bool { return manager.ActiveConnections() == 1 },
		2*time.Second, 10*time.Millisecond)
}

func TestConnectionManager_Broadcast(t *testing.T) {
	manager, server := setupTestManager(t, nil)

	conn1 := connectWS(t, server)
	conn2 := connectWS(t, server)
	readEvent(t, conn1)
	readEvent(t, conn2)
	require.Eventually(t, func() bool { return manager.ActiveConnections() == 2 },
		2*time.Second, 10*time.Millisecond)

	p := NewPublisher(manager)
	require.NoError(t, p.PublishNewIntervention(NewInterventionPayload{DebateID: "d1", Intervention: "hello"}))

	for _, conn := range []*websocket.Conn{conn1, conn2} {
		evt := readEvent(t, conn)
		assert.Equal(t, NewInterventionPayload{DebateID: "d1", Intervention: "hello"}, evt)
	}
}

func TestConnectionManager_DispatchesViewerRequests(t *testing.T) {
	h := &mockInboundHandler{}
	_, server := setupTestManager(t, h)
	conn := connectWS(t, server)
	readEvent(t, conn)

	writeEvent(t, conn, StartAgentTurnPayload{DebateID: "d1", Agent: models.Agent{Name: "Economist"}})
	writeEvent(t, conn, UserInterventionPayload{DebateID: "d1", Intervention: "Consider rural areas"})

	require.Eventually(t, func() bool {
		turns, interventions := h.counts()
		return turns == 1 && interventions == 1
	}, 2*time.Second, 10*time.Millisecond)

	h.mu.Lock()
	defer h.mu.Unlock()
	assert.Equal(t, "Economist", h.turns[0].Agent.Name)
	assert.Equal(t, "Consider rural areas", h.interventions[0].Intervention)
}

func TestConnectionManager_HandlerErrorReported(t *testing.T) {
	h := &mockInboundHandler{err: errors.New("debate not found")}
	_, server := setupTestManager(t, h)
	conn := connectWS(t, server)
	readEvent(t, conn)

	writeEvent(t, conn, UserInterventionPayload{DebateID: "missing", Intervention: "x"})

	evt := readEvent(t, conn)
	assert.Equal(t, ErrorPayload{DebateID: "missing", Message: "debate not found"}, evt)
}

func TestConnectionManager_InvalidFrameReported(t *testing.T) {
	h := &mockInboundHandler{}
	_, server := setupTestManager(t, h)
	conn := connectWS(t, server)
	readEvent(t, conn)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, conn.Write(ctx, websocket.MessageText, []byte(`{"event":"new_message","data":{}}`)))

	evt := readEvent(t, conn)
	errEvt, ok := evt.(ErrorPayload)
	require.True(t, ok)
	assert.Contains(t, errEvt.Message, "unknown event")

	turns, interventions := h.counts()
	assert.Zero(t, turns)
	assert.Zero(t, interventions)
}

func TestConnectionManager_UnregisterOnClose(t *testing.T) {
	manager, server := setupTestManager(t, nil)
	conn := connectWS(t, server)
	readEvent(t, conn)
	require.Eventually(t, func() bool { return manager.ActiveConnections() == 1 },
		2*time.Second, 10*time.Millisecond)

	require.NoError(t, conn.Close(websocket.StatusNormalClosure, ""))

	require.Eventually(t, func() bool { return manager.ActiveConnections() == 0 },
		2*time.Second, 10*time.Millisecond)
}
