package config

// builtinAgents is the persona catalog shipped with the server.
// User-defined agents with the same name override these.
func builtinAgents() map[string]AgentConfig {
	return map[string]AgentConfig{
		"Economist": {
			Role: "Economic policy expert",
			Bias: "Focused on economic efficiency and market dynamics",
		},
		"Ethicist": {
			Role: "Moral philosophy specialist",
			Bias: "Concerned with ethical implications and human rights",
		},
		"Environmentalist": {
			Role: "Environmental policy expert",
			Bias: "Prioritizes ecological sustainability and climate impact",
		},
		"Social Worker": {
			Role: "Social policy specialist",
			Bias: "Focused on social welfare and community impact",
		},
	}
}

// DefaultRoster is the speaking order used when the YAML sets no roster.
var DefaultRoster = []string{"Economist", "Ethicist", "Social Worker"}
