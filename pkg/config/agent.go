package config

import (
	"fmt"
	"sort"
	"sync"

	"github.com/codeready-toolchain/deliberatorium/pkg/models"
)

// AgentConfig defines a debate persona. The agent name is the map key in YAML.
type AgentConfig struct {
	// Role is the display label, e.g. "Economic policy expert".
	Role string `yaml:"role"`

	// Bias is the descriptive stance text fed to the generator.
	Bias string `yaml:"bias"`
}

// AgentRegistry stores agent configurations in memory with thread-safe access
type AgentRegistry struct {
	agents map[string]*AgentConfig
	mu     sync.RWMutex
}

// NewAgentRegistry creates a new agent registry
func NewAgentRegistry(agents map[string]*AgentConfig) *AgentRegistry {
	// Defensive copy to prevent external mutation
	copied := make(map[string]*AgentConfig, len(agents))
	for k, v := range agents {
		copied[k] = v
	}
	return &AgentRegistry{agents: copied}
}

// Get retrieves an agent configuration by name
func (r *AgentRegistry) Get(name string) (*AgentConfig, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	agent, exists := r.agents[name]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrAgentNotFound, name)
	}
	return agent, nil
}

// Agent resolves a name into the immutable persona value used on the wire.
func (r *AgentRegistry) Agent(name string) (models.Agent, error) {
	cfg, err := r.Get(name)
	if err != nil {
		return models.Agent{}, err
	}
	return models.Agent{Name: name, Role: cfg.Role, Bias: cfg.Bias}, nil
}

// Has checks if an agent exists in the registry
func (r *AgentRegistry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, exists := r.agents[name]
	return exists
}

// Names returns all agent names, sorted.
func (r *AgentRegistry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.agents))
	for name := range r.agents {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of agents in the registry
func (r *AgentRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.agents)
}
