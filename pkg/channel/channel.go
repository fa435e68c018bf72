// Package channel is the viewer end of the debate event channel: a
// WebSocket connection with bounded automatic reconnection and named-event
// listeners.
package channel

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/coder/websocket"

	"github.com/codeready-toolchain/deliberatorium/pkg/events"
)

var (
	// ErrNotConnected is returned by Emit while the channel is reconnecting
	// or after reconnection was exhausted.
	ErrNotConnected = errors.New("event channel not connected")

	// ErrClosed is returned by Emit after Close.
	ErrClosed = errors.New("event channel closed")

	// ErrConnectFailed is returned by Dial when every attempt failed.
	ErrConnectFailed = errors.New("event channel connect failed")
)

// State is the transport state of a Channel.
type State string

const (
	StateConnected    State = "connected"
	StateReconnecting State = "reconnecting"
	// StateFailed is terminal: reconnection was exhausted.
	StateFailed State = "failed"
	StateClosed State = "closed"
)

// Handler receives one decoded inbound event.
type Handler func(events.Event)

// Options configures Dial.
type Options struct {
	// URL is the ws:// or wss:// endpoint.
	URL string

	// ConnectTimeout bounds each connection attempt.
	ConnectTimeout time.Duration

	// ReconnectAttempts bounds retries after the first attempt, both on
	// Dial and after a transport failure.
	ReconnectAttempts int

	// ReconnectDelay is the fixed wait between attempts.
	ReconnectDelay time.Duration

	// WriteTimeout bounds each Emit. Defaults to ConnectTimeout.
	WriteTimeout time.Duration

	// Header is sent with the upgrade request.
	Header http.Header
}

type subscription struct {
	id      string
	event   string
	handler Handler

	// mu is held across the active check and the handler call, so Off
	// cannot return while the handler is running.
	mu     sync.Mutex
	active bool
}

func (s *subscription) deliver(evt events.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active {
		s.handler(evt)
	}
}

type stateSubscription struct {
	id string
	fn func(State)
}

// Channel is a viewer connection to the debate server. Inbound events are
// delivered one at a time, in arrival order, on a single goroutine.
type Channel struct {
	opts Options

	subsMu    sync.RWMutex
	subs      map[string][]*subscription // event name -> subscriptions
	stateSubs []stateSubscription
	nextID    atomic.Uint64
	connMu    sync.RWMutex
	conn      *websocket.Conn
	state     State
	ctx       context.Context
	cancel    context.CancelFunc
	done      chan struct{}
	closeOnce sync.Once
	connects  atomic.Int64
}

// Dial connects to the server, retrying up to opts.ReconnectAttempts times,
// and starts the read loop.
func Dial(ctx context.Context, opts Options) (*Channel, error) {
	if opts.URL == "" {
		return nil, errors.New("event channel URL is required")
	}
	if opts.ConnectTimeout <= 0 {
		opts.ConnectTimeout = 10 * time.Second
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = opts.ConnectTimeout
	}

	runCtx, cancel := context.WithCancel(context.Background())
	c := &Channel{
		opts:   opts,
		subs:   make(map[string][]*subscription),
		ctx:    runCtx,
		cancel: cancel,
		done:   make(chan struct{}),
	}

	conn, err := c.connect(ctx)
	if err != nil {
		cancel()
		return nil, err
	}
	c.setConn(conn, StateConnected)

	go c.run(conn)
	return c, nil
}

// On registers a handler for an inbound event name and returns its
// subscription id.
func (c *Channel) On(event string, h Handler) string {
	sub := &subscription{id: c.newID(), event: event, handler: h, active: true}

	c.subsMu.Lock()
	defer c.subsMu.Unlock()
	c.subs[event] = append(c.subs[event], sub)
	return sub.id
}

// OnState registers an observer of transport state transitions.
func (c *Channel) OnState(fn func(State)) string {
	id := c.newID()
	c.subsMu.Lock()
	defer c.subsMu.Unlock()
	c.stateSubs = append(c.stateSubs, stateSubscription{id: id, fn: fn})
	return id
}

// Off removes a subscription made with On or OnState. If the handler is
// running, Off waits for it to return; once Off returns the handler is never
// called again. Off must not be called from the handler it removes.
// Returns true if found.
func (c *Channel) Off(id string) bool {
	sub, found := c.removeSubscription(id)
	if sub != nil {
		sub.mu.Lock()
		sub.active = false
		sub.mu.Unlock()
	}
	return found
}

func (c *Channel) removeSubscription(id string) (*subscription, bool) {
	c.subsMu.Lock()
	defer c.subsMu.Unlock()

	for event, subs := range c.subs {
		for i, sub := range subs {
			if sub.id == id {
				c.subs[event] = append(subs[:i:i], subs[i+1:]...)
				return sub, true
			}
		}
	}
	for i, s := range c.stateSubs {
		if s.id == id {
			c.stateSubs = append(c.stateSubs[:i:i], c.stateSubs[i+1:]...)
			return nil, true
		}
	}
	return nil, false
}

// Emit sends one outbound event. There is no queueing: while the channel
// is not connected the event is rejected.
func (c *Channel) Emit(ctx context.Context, evt events.Event) error {
	c.connMu.RLock()
	conn, state := c.conn, c.state
	c.connMu.RUnlock()

	switch state {
	case StateClosed:
		return ErrClosed
	case StateConnected:
	default:
		return fmt.Errorf("%w (%s)", ErrNotConnected, state)
	}

	frame, err := events.Encode(evt)
	if err != nil {
		return err
	}
	writeCtx, cancel := context.WithTimeout(ctx, c.opts.WriteTimeout)
	defer cancel()
	if err := conn.Write(writeCtx, websocket.MessageText, frame); err != nil {
		return fmt.Errorf("failed to emit %s: %w", evt.EventName(), err)
	}
	return nil
}

// State returns the current transport state.
func (c *Channel) State() State {
	c.connMu.RLock()
	defer c.connMu.RUnlock()
	return c.state
}

// Done is closed when the read loop has exited, after Close or once
// reconnection is exhausted.
func (c *Channel) Done() <-chan struct{} {
	return c.done
}

// Close stops the read loop and closes the connection. No handler runs
// after Close returns. Close must not be called from a Handler.
func (c *Channel) Close() error {
	c.closeOnce.Do(func() {
		c.cancel()
		c.connMu.Lock()
		conn := c.conn
		c.conn = nil
		c.state = StateClosed
		c.connMu.Unlock()
		if conn != nil {
			_ = conn.Close(websocket.StatusNormalClosure, "")
		}
		c.notifyState(StateClosed)
	})
	<-c.done
	return nil
}

// run reads until the connection drops, then reconnects. It owns dispatch.
func (c *Channel) run(conn *websocket.Conn) {
	defer close(c.done)
	defer func() { _ = conn.Close(websocket.StatusNormalClosure, "") }()

	for {
		err := c.readLoop(conn)
		if c.ctx.Err() != nil {
			return
		}
		slog.Warn("Event channel disconnected", "url", c.opts.URL, "error", err)

		c.setState(StateReconnecting)
		next, err := c.reconnect()
		if err != nil {
			if c.ctx.Err() != nil {
				return
			}
			slog.Error("Event channel reconnection exhausted", "url", c.opts.URL, "error", err)
			c.setState(StateFailed)
			return
		}
		conn = next
		if !c.setConn(conn, StateConnected) {
			return
		}
	}
}

func (c *Channel) readLoop(conn *websocket.Conn) error {
	for {
		_, data, err := conn.Read(c.ctx)
		if err != nil {
			return err
		}
		evt, err := events.Decode(data, events.ToViewer)
		if err != nil {
			slog.Warn("Dropping invalid event frame", "error", err)
			continue
		}
		c.dispatch(evt)
	}
}

func (c *Channel) dispatch(evt events.Event) {
	c.subsMu.RLock()
	subs := make([]*subscription, len(c.subs[evt.EventName()]))
	copy(subs, c.subs[evt.EventName()])
	c.subsMu.RUnlock()

	for _, sub := range subs {
		if c.ctx.Err() != nil {
			return
		}
		sub.deliver(evt)
	}
}

// connect performs the initial attempt plus up to ReconnectAttempts retries.
func (c *Channel) connect(ctx context.Context) (*websocket.Conn, error) {
	return c.attempt(ctx, c.opts.ReconnectAttempts+1)
}

func (c *Channel) reconnect() (*websocket.Conn, error) {
	if c.opts.ReconnectAttempts <= 0 {
		return nil, fmt.Errorf("%w: reconnection disabled", ErrConnectFailed)
	}
	return c.attempt(c.ctx, c.opts.ReconnectAttempts)
}

func (c *Channel) attempt(ctx context.Context, attempts int) (*websocket.Conn, error) {
	var lastErr error
	for i := 1; i <= attempts; i++ {
		if i > 1 && c.opts.ReconnectDelay > 0 {
			timer := time.NewTimer(c.opts.ReconnectDelay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return nil, ctx.Err()
			case <-timer.C:
			}
		}

		dialCtx, cancel := context.WithTimeout(ctx, c.opts.ConnectTimeout)
		conn, _, err := websocket.Dial(dialCtx, c.opts.URL, &websocket.DialOptions{HTTPHeader: c.opts.Header})
		cancel()
		if err == nil {
			c.connects.Add(1)
			slog.Debug("Event channel connected", "url", c.opts.URL, "attempt", i)
			return conn, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		lastErr = err
		slog.Debug("Event channel connect attempt failed", "url", c.opts.URL, "attempt", i, "error", err)
	}
	return nil, fmt.Errorf("%w after %d attempts: %v", ErrConnectFailed, attempts, lastErr)
}

// setConn installs a live connection unless the channel was closed meanwhile.
func (c *Channel) setConn(conn *websocket.Conn, state State) bool {
	c.connMu.Lock()
	if c.state == StateClosed {
		c.connMu.Unlock()
		return false
	}
	c.conn = conn
	c.connMu.Unlock()
	c.setState(state)
	return true
}

func (c *Channel) setState(state State) {
	c.connMu.Lock()
	if c.state == state || c.state == StateClosed {
		c.connMu.Unlock()
		return
	}
	c.state = state
	c.connMu.Unlock()
	c.notifyState(state)
}

func (c *Channel) notifyState(state State) {
	c.subsMu.RLock()
	subs := make([]stateSubscription, len(c.stateSubs))
	copy(subs, c.stateSubs)
	c.subsMu.RUnlock()

	for _, s := range subs {
		s.fn(state)
	}
}

func (c *Channel) newID() string {
	return "sub-" + strconv.FormatUint(c.nextID.Add(1), 10)
}

// WebSocketURL derives the event channel endpoint from the server's HTTP
// base URL, e.g. http://localhost:5001 -> ws://localhost:5001/ws.
func WebSocketURL(serverURL string) (string, error) {
	u, err := url.Parse(serverURL)
	if err != nil {
		return "", fmt.Errorf("invalid server URL %q: %w", serverURL, err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("invalid server URL %q: unsupported scheme %q", serverURL, u.Scheme)
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + "/ws"
	return u.String(), nil
}
