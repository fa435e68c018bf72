package config

// TimeoutPolicy decides what happens after an agent turn fails or times out.
type TimeoutPolicy string

const (
	// TimeoutPolicySkip closes the turn and hints the next agent.
	TimeoutPolicySkip TimeoutPolicy = "skip"
	// TimeoutPolicyRetry hints the same agent again.
	TimeoutPolicyRetry TimeoutPolicy = "retry"
	// TimeoutPolicyAbort stops sequencing; a viewer must request a new turn.
	TimeoutPolicyAbort TimeoutPolicy = "abort"
)

// IsValid checks if the timeout policy is valid
func (p TimeoutPolicy) IsValid() bool {
	switch p {
	case TimeoutPolicySkip, TimeoutPolicyRetry, TimeoutPolicyAbort:
		return true
	default:
		return false
	}
}

// GeneratorBackend selects how agent utterances are produced.
type GeneratorBackend string

const (
	// GeneratorBackendTemplate renders deterministic persona statements.
	GeneratorBackendTemplate GeneratorBackend = "template"
	// GeneratorBackendGemini calls Gemini through the Gen AI SDK.
	GeneratorBackendGemini GeneratorBackend = "gemini"
)

// IsValid checks if the generator backend is valid
func (b GeneratorBackend) IsValid() bool {
	switch b {
	case GeneratorBackendTemplate, GeneratorBackendGemini:
		return true
	default:
		return false
	}
}
