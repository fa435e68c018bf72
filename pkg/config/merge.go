package config

// mergeAgents merges built-in and user-defined agent configurations.
// User-defined agents override built-in agents with the same name.
func mergeAgents(builtin map[string]AgentConfig, user map[string]AgentConfig) map[string]*AgentConfig {
	result := make(map[string]*AgentConfig, len(builtin)+len(user))

	for name, agent := range builtin {
		agentCopy := agent
		result[name] = &agentCopy
	}

	// Then, override with user-defined agents (or add new ones)
	for name, agent := range user {
		agentCopy := agent
		result[name] = &agentCopy
	}

	return result
}
