package events

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
)

// InboundHandler receives the decoded viewer → server events. Returned
// errors are reported back to the originating connection as an error event.
type InboundHandler interface {
	HandleStartAgentTurn(ctx context.Context, p StartAgentTurnPayload) error
	HandleUserIntervention(ctx context.Context, p UserInterventionPayload) error
}

// ConnectionManager manages viewer WebSocket connections. Each server
// process has one ConnectionManager instance.
type ConnectionManager struct {
	// Active connections: connection_id → *Connection
	connections map[string]*Connection
	mu          sync.RWMutex

	// Handler for viewer requests (set after construction)
	handler   InboundHandler
	handlerMu sync.RWMutex

	// Write timeout for WebSocket sends
	writeTimeout time.Duration
}

// Connection represents a single viewer.
type Connection struct {
	ID     string
	Conn   *websocket.Conn
	ctx    context.Context
	cancel context.CancelFunc
}

// NewConnectionManager creates a new ConnectionManager.
func NewConnectionManager(writeTimeout time.Duration) *ConnectionManager {
	return &ConnectionManager{
		connections:  make(map[string]*Connection),
		writeTimeout: writeTimeout,
	}
}

// SetHandler sets the receiver of viewer requests.
// Called once during startup, after the debate service exists.
func (m *ConnectionManager) SetHandler(h InboundHandler) {
	m.handlerMu.Lock()
	defer m.handlerMu.Unlock()
	m.handler = h
}

// HandleConnection manages the lifecycle of a single WebSocket connection.
// Called by the WebSocket HTTP handler after upgrade. Blocks until the
// connection closes.
func (m *ConnectionManager) HandleConnection(parentCtx context.Context, conn *websocket.Conn) {
	connID := uuid.New().String()
	ctx, cancel := context.WithCancel(parentCtx)

	c := &Connection{
		ID:     connID,
		Conn:   conn,
		ctx:    ctx,
		cancel: cancel,
	}

	m.registerConnection(c)
	defer m.unregisterConnection(c)

	m.sendEvent(c, ConnectionEstablishedPayload{ConnectionID: connID})
	slog.Debug("Viewer connected", "connection_id", connID)

	// Viewer requests are handled in arrival order until the connection closes.
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			slog.Debug("Viewer disconnected", "connection_id", connID, "reason", err)
			return
		}

		evt, err := Decode(data, ToServer)
		if err != nil {
			slog.Warn("Invalid WebSocket message",
				"connection_id", connID, "error", err)
			m.sendEvent(c, ErrorPayload{Message: err.Error()})
			continue
		}

		m.handleClientEvent(ctx, c, evt)
	}
}

// Broadcast sends a frame to every connected viewer.
func (m *ConnectionManager) Broadcast(frame []byte) {
	// Snapshot connection pointers under the lock, then release before
	// sending so a slow writer cannot stall register/unregister.
	m.mu.RLock()
	conns := make([]*Connection, 0, len(m.connections))
	for _, conn := range m.connections {
		conns = append(conns, conn)
	}
	m.mu.RUnlock()

	for _, conn := range conns {
		if err := m.sendRaw(conn, frame); err != nil {
			slog.Warn("Failed to send to WebSocket client",
				"connection_id", conn.ID, "error", err)
		}
	}
}

// ActiveConnections returns the count of active WebSocket connections.
func (m *ConnectionManager) ActiveConnections() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.connections)
}

// CloseAll closes every viewer connection. Used during shutdown.
func (m *ConnectionManager) CloseAll() {
	m.mu.RLock()
	conns := make([]*Connection, 0, len(m.connections))
	for _, conn := range m.connections {
		conns = append(conns, conn)
	}
	m.mu.RUnlock()

	for _, conn := range conns {
		_ = conn.Conn.Close(websocket.StatusGoingAway, "server shutting down")
	}
}

// handleClientEvent dispatches a decoded viewer request.
func (m *ConnectionManager) handleClientEvent(ctx context.Context, c *Connection, evt Event) {
	m.handlerMu.RLock()
	h := m.handler
	m.handlerMu.RUnlock()
	if h == nil {
		m.sendEvent(c, ErrorPayload{Message: "debate service not available"})
		return
	}

	var (
		err      error
		debateID string
	)
	switch p := evt.(type) {
	case StartAgentTurnPayload:
		debateID = p.DebateID
		err = h.HandleStartAgentTurn(ctx, p)
	case UserInterventionPayload:
		debateID = p.DebateID
		err = h.HandleUserIntervention(ctx, p)
	default:
		err = errors.New("unsupported request: " + evt.EventName())
	}

	if err != nil {
		slog.Info("Viewer request rejected",
			"connection_id", c.ID, "event", evt.EventName(), "debate_id", debateID, "error", err)
		m.sendEvent(c, ErrorPayload{DebateID: debateID, Message: err.Error()})
	}
}

// registerConnection adds a connection to the tracking map.
func (m *ConnectionManager) registerConnection(c *Connection) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.connections[c.ID] = c
}

// unregisterConnection removes a connection and closes it.
func (m *ConnectionManager) unregisterConnection(c *Connection) {
	m.mu.Lock()
	delete(m.connections, c.ID)
	m.mu.Unlock()

	c.cancel()
	_ = c.Conn.Close(websocket.StatusNormalClosure, "")
}

// sendEvent encodes and sends an event to a single connection.
func (m *ConnectionManager) sendEvent(c *Connection, evt Event) {
	frame, err := Encode(evt)
	if err != nil {
		slog.Warn("Failed to encode WebSocket message",
			"connection_id", c.ID, "error", err)
		return
	}
	if err := m.sendRaw(c, frame); err != nil {
		slog.Warn("Failed to send WebSocket message",
			"connection_id", c.ID, "error", err)
	}
}

// sendRaw sends raw bytes to a single connection with a write timeout.
func (m *ConnectionManager) sendRaw(c *Connection, data []byte) error {
	writeCtx, cancel := context.WithTimeout(c.ctx, m.writeTimeout)
	defer cancel()
	return c.Conn.Write(writeCtx, websocket.MessageText, data)
}
