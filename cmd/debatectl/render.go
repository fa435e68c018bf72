package main

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/codeready-toolchain/deliberatorium/pkg/channel"
	"github.com/codeready-toolchain/deliberatorium/pkg/models"
	"github.com/codeready-toolchain/deliberatorium/pkg/transcript"
)

const clearLine = "\r\033[K"

// renderer prints transcript states incrementally. Only entries appended
// since the previous state are written. The typing line is drawn only on
// terminals, where it can be erased in place.
type renderer struct {
	mu       sync.Mutex
	out      io.Writer
	terminal bool

	session     string
	printed     int
	rosterShown bool
	lastErr     string
	typing      string
	reconnected bool
}

func newRenderer(out io.Writer, terminal bool) *renderer {
	return &renderer{out: out, terminal: terminal}
}

// Render is a controller observer.
func (r *renderer) Render(s transcript.State) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if s.SessionID != r.session {
		r.eraseTypingLocked()
		r.session = s.SessionID
		r.printed = 0
		r.rosterShown = false
		r.lastErr = ""
		if s.SessionID != "" {
			fmt.Fprintf(r.out, "== Debate %s: %s ==\n", s.SessionID, s.Topic)
		}
	}
	if s.SessionID == "" {
		return
	}

	if !r.rosterShown && len(s.Roster) > 0 {
		r.eraseTypingLocked()
		names := make([]string, len(s.Roster))
		for i, a := range s.Roster {
			names[i] = a.Name
		}
		fmt.Fprintf(r.out, "Participants: %s\n", strings.Join(names, ", "))
		r.rosterShown = true
	}

	if len(s.Entries) > r.printed {
		r.eraseTypingLocked()
		for _, e := range s.Entries[r.printed:] {
			fmt.Fprintln(r.out, formatEntry(e))
		}
		r.printed = len(s.Entries)
	}

	if s.LastError != "" && s.LastError != r.lastErr {
		r.eraseTypingLocked()
		fmt.Fprintf(r.out, "! %s\n", s.LastError)
		r.lastErr = s.LastError
	}

	r.drawTypingLocked(s.Typing)
}

// Connection is a channel state observer.
func (r *renderer) Connection(state channel.State) {
	switch state {
	case channel.StateReconnecting:
		r.Notice("connection lost, reconnecting...")
		r.mu.Lock()
		r.reconnected = true
		r.mu.Unlock()
	case channel.StateConnected:
		r.mu.Lock()
		was := r.reconnected
		r.reconnected = false
		r.mu.Unlock()
		if was {
			r.Notice("reconnected")
		}
	case channel.StateFailed:
		r.Notice("connection failed, giving up")
	}
}

// Notice prints a status line.
func (r *renderer) Notice(format string, args ...any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.eraseTypingLocked()
	fmt.Fprintf(r.out, "-- "+format+"\n", args...)
}

func (r *renderer) drawTypingLocked(t *transcript.TypingIndicator) {
	if !r.terminal {
		return
	}
	name := ""
	if t != nil && t.IsTyping {
		name = t.Agent.Name
	}
	if name == r.typing {
		return
	}
	r.eraseTypingLocked()
	if name != "" {
		fmt.Fprintf(r.out, "%s is typing...", name)
		r.typing = name
	}
}

func (r *renderer) eraseTypingLocked() {
	if r.typing == "" {
		return
	}
	fmt.Fprint(r.out, clearLine)
	r.typing = ""
}

func formatEntry(e transcript.Entry) string {
	if e.Kind == transcript.KindUserIntervention || e.Sender == nil {
		return formatLine(e.Timestamp, "Audience", e.Content)
	}
	speaker := e.Sender.Name
	if e.Sender.Role != "" {
		speaker += " (" + e.Sender.Role + ")"
	}
	return formatLine(e.Timestamp, speaker, e.Content)
}

func formatMessage(m models.Message) string {
	ts, _ := models.ParseTimestamp(m.Timestamp)
	if m.Type == models.MessageTypeIntervention {
		return formatLine(ts, "Audience", m.Content)
	}
	speaker := m.Sender
	if m.Role != "" {
		speaker += " (" + m.Role + ")"
	}
	return formatLine(ts, speaker, m.Content)
}

func formatLine(ts time.Time, speaker, text string) string {
	stamp := "--:--:--"
	if !ts.IsZero() {
		stamp = ts.Local().Format(time.TimeOnly)
	}
	return fmt.Sprintf("[%s] %s: %s", stamp, speaker, text)
}
