package models

// Agent is a debate participant persona. Agents are immutable once a roster
// is fixed for a debate.
type Agent struct {
	Name string `json:"name" yaml:"name"`
	Role string `json:"role" yaml:"role"`
	Bias string `json:"bias" yaml:"bias"`
}

// FindAgent returns the roster entry with the given name.
func FindAgent(roster []Agent, name string) (Agent, int, bool) {
	for i, a := range roster {
		if a.Name == name {
			return a, i, true
		}
	}
	return Agent{}, -1, false
}

// CloneRoster returns a copy of the roster so callers cannot mutate shared state.
func CloneRoster(roster []Agent) []Agent {
	if roster == nil {
		return nil
	}
	out := make([]Agent, len(roster))
	copy(out, roster)
	return out
}
