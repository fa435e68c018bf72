// Package config provides configuration management for Deliberatorium:
// the agent catalog and debate roster, turn sequencing, agent generation,
// the HTTP/WebSocket server and the viewer client.
package config

import (
	"github.com/codeready-toolchain/deliberatorium/pkg/models"
)

// Config is the umbrella configuration object returned by Initialize() and
// used by both binaries.
type Config struct {
	configDir string // Configuration directory path (for reference)

	Server    *ServerConfig
	Turns     *TurnConfig
	Generator *GeneratorConfig
	Client    *ClientConfig
	Retention *RetentionConfig

	// AgentRegistry holds every known persona (builtin + user-defined).
	AgentRegistry *AgentRegistry

	// Roster is the ordered set of agents every new debate is created with.
	Roster []models.Agent
}

// Initialize is defined in loader.go

// Stats contains statistics about loaded configuration
type Stats struct {
	Agents int
	Roster int
}

// Stats returns configuration statistics for logging/monitoring
func (c *Config) Stats() Stats {
	s := Stats{Roster: len(c.Roster)}
	if c.AgentRegistry != nil {
		s.Agents = c.AgentRegistry.Len()
	}
	return s
}

// ConfigDir returns the configuration directory path
func (c *Config) ConfigDir() string {
	return c.configDir
}

// RosterCopy returns a copy of the configured roster.
func (c *Config) RosterCopy() []models.Agent {
	return models.CloneRoster(c.Roster)
}
