package debate

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/codeready-toolchain/deliberatorium/pkg/models"
)

// Debate is one server-side debate session. Topic, roster and creation time
// are fixed at creation; messages only grow.
type Debate struct {
	ID        string
	Topic     string
	Roster    []models.Agent
	CreatedAt time.Time

	mu           sync.RWMutex // Protects messages and lastActivity
	messages     []models.Message
	lastActivity time.Time

	seq *Sequencer
}

// Sequencer returns the debate's turn sequencer.
func (d *Debate) Sequencer() *Sequencer {
	return d.seq
}

// Record appends an agent message or intervention (thread-safe)
func (d *Debate) Record(msg models.Message) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.messages = append(d.messages, msg)
	d.lastActivity = time.Now()
}

// History returns a copy of the recorded messages, oldest first.
func (d *Debate) History() []models.Message {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]models.Message, len(d.messages))
	copy(out, d.messages)
	return out
}

// Snapshot creates a safe copy of the debate for reading
func (d *Debate) Snapshot() models.DebateSnapshot {
	st := d.seq.Status()

	d.mu.RLock()
	defer d.mu.RUnlock()

	messages := make([]models.Message, len(d.messages))
	copy(messages, d.messages)

	return models.DebateSnapshot{
		DebateID:     d.ID,
		Topic:        d.Topic,
		Agents:       models.CloneRoster(d.Roster),
		Messages:     messages,
		TurnState:    string(st.State),
		Speaking:     st.Speaking,
		NextAgent:    st.Next,
		TurnsTaken:   st.TurnsTaken,
		CreatedAt:    d.CreatedAt,
		LastActivity: d.lastActivity,
	}
}

// LastActivity returns when the debate was created or last recorded a message.
func (d *Debate) LastActivity() time.Time {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.lastActivity
}

// Registry holds debates in memory until evicted by EvictIdle.
type Registry struct {
	debates  map[string]*Debate
	mu       sync.RWMutex
	maxTurns int
}

// NewRegistry creates a new debate registry. maxTurns is applied to every
// debate's sequencer (0 = unlimited).
func NewRegistry(maxTurns int) *Registry {
	return &Registry{
		debates:  make(map[string]*Debate),
		maxTurns: maxTurns,
	}
}

// Create registers a new debate with a fresh id and a copy of the roster.
func (r *Registry) Create(topic string, roster []models.Agent) *Debate {
	now := time.Now()
	d := &Debate{
		ID:           uuid.New().String(),
		Topic:        topic,
		Roster:       models.CloneRoster(roster),
		CreatedAt:    now,
		lastActivity: now,
		messages:     []models.Message{},
		seq:          NewSequencer(roster, r.maxTurns),
	}

	r.mu.Lock()
	r.debates[d.ID] = d
	r.mu.Unlock()

	return d
}

// Get retrieves a debate by ID
func (r *Registry) Get(id string) (*Debate, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	d, ok := r.debates[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return d, nil
}

// List returns snapshots of all debates, oldest first.
func (r *Registry) List() []models.DebateSnapshot {
	r.mu.RLock()
	debates := make([]*Debate, 0, len(r.debates))
	for _, d := range r.debates {
		debates = append(debates, d)
	}
	r.mu.RUnlock()

	sort.Slice(debates, func(i, j int) bool {
		return debates[i].CreatedAt.Before(debates[j].CreatedAt)
	})

	out := make([]models.DebateSnapshot, 0, len(debates))
	for _, d := range debates {
		out = append(out, d.Snapshot())
	}
	return out
}

// Len returns the number of registered debates.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.debates)
}

// EvictIdle removes debates with no activity since cutoff. Debates with an
// agent turn in flight are kept. Returns the number removed.
func (r *Registry) EvictIdle(cutoff time.Time) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for id, d := range r.debates {
		if !d.LastActivity().Before(cutoff) {
			continue
		}
		if d.seq.Status().State == TurnStateAgentSpeaking {
			continue
		}
		delete(r.debates, id)
		removed++
	}
	return removed
}
