package models

import "time"

// StartDebateRequest is the HTTP request body for POST /api/start_debate.
type StartDebateRequest struct {
	Topic string `json:"topic"`
}

// StartDebateResponse is returned by POST /api/start_debate. The roster is
// included so viewers can request the first turn without waiting for the
// debate_started event.
type StartDebateResponse struct {
	DebateID string  `json:"debate_id"`
	Topic    string  `json:"topic"`
	Agents   []Agent `json:"agents"`
}

// DebateSnapshot is a point-in-time copy of a server-side debate.
type DebateSnapshot struct {
	DebateID     string    `json:"debate_id"`
	Topic        string    `json:"topic"`
	Agents       []Agent   `json:"agents"`
	Messages     []Message `json:"messages"`
	TurnState    string    `json:"turn_state"`
	Speaking     *Agent    `json:"speaking,omitempty"`
	NextAgent    *Agent    `json:"next_agent,omitempty"`
	TurnsTaken   int       `json:"turns_taken"`
	CreatedAt    time.Time `json:"created_at"`
	LastActivity time.Time `json:"last_activity"`
}

// AgentsResponse is returned by GET /api/agents.
type AgentsResponse struct {
	Agents []Agent `json:"agents"`
}

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	Status      string `json:"status"`
	Version     string `json:"version"`
	Connections int    `json:"connections"`
	Debates     int    `json:"debates"`
}
