package config

import "time"

// ServerConfig contains HTTP and WebSocket server settings.
type ServerConfig struct {
	// Port the HTTP server listens on. HTTP_PORT overrides it at startup.
	Port string `yaml:"port"`

	// AllowedOrigins is used for CORS and WebSocket origin checks.
	// Empty means any origin is accepted (development mode).
	AllowedOrigins []string `yaml:"allowed_origins"`

	// WSWriteTimeout bounds every WebSocket write to a viewer.
	WSWriteTimeout time.Duration `yaml:"ws_write_timeout"`

	// ShutdownTimeout bounds graceful shutdown of in-flight turns and HTTP.
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// DefaultServerConfig returns the built-in server defaults.
func DefaultServerConfig() *ServerConfig {
	return &ServerConfig{
		Port:            "5001",
		WSWriteTimeout:  10 * time.Second,
		ShutdownTimeout: 30 * time.Second,
	}
}

// TurnConfig controls the server-side turn sequencer.
type TurnConfig struct {
	// Delay between the end of a turn and the next-turn hint.
	Delay time.Duration `yaml:"delay"`

	// Timeout bounds a single agent generation.
	Timeout time.Duration `yaml:"timeout"`

	// OnTimeout is the fallback applied when generation fails or times out.
	OnTimeout TimeoutPolicy `yaml:"on_timeout"`

	// MaxTurns stops hinting after this many completed turns. 0 = unlimited.
	MaxTurns int `yaml:"max_turns"`
}

// DefaultTurnConfig returns the built-in turn defaults.
func DefaultTurnConfig() *TurnConfig {
	return &TurnConfig{
		Delay:     5 * time.Second,
		Timeout:   60 * time.Second,
		OnTimeout: TimeoutPolicySkip,
	}
}

// GeneratorConfig selects and tunes the agent utterance generator.
type GeneratorConfig struct {
	Backend GeneratorBackend `yaml:"backend"`

	// Gemini settings. Either APIKey (Gemini API) or Project+Location
	// (Vertex AI) must be set for the gemini backend.
	Model    string `yaml:"model"`
	APIKey   string `yaml:"api_key"`
	Project  string `yaml:"project"`
	Location string `yaml:"location"`

	Temperature float32 `yaml:"temperature"`

	// MaxWords caps a finalized utterance.
	MaxWords int `yaml:"max_words"`

	// ContextMessages is how many recent transcript messages are sent as context.
	ContextMessages int `yaml:"context_messages"`
}

// DefaultGeneratorConfig returns the built-in generator defaults.
func DefaultGeneratorConfig() *GeneratorConfig {
	return &GeneratorConfig{
		Backend:         GeneratorBackendTemplate,
		Model:           "gemini-2.5-flash",
		Temperature:     0.7,
		MaxWords:        100,
		ContextMessages: 5,
	}
}

// ClientConfig contains viewer-side settings used by debatectl.
type ClientConfig struct {
	// ServerURL is the HTTP base URL; the WebSocket URL is derived from it.
	ServerURL string `yaml:"server_url"`

	// ConnectTimeout bounds each WebSocket connection attempt.
	ConnectTimeout time.Duration `yaml:"connect_timeout"`

	// ReconnectAttempts bounds automatic reconnection after a transport failure.
	ReconnectAttempts int `yaml:"reconnect_attempts"`

	// ReconnectDelay is the fixed backoff between attempts.
	ReconnectDelay time.Duration `yaml:"reconnect_delay"`

	// RequestTimeout bounds the session-creation HTTP call.
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

// DefaultClientConfig returns the built-in client defaults.
func DefaultClientConfig() *ClientConfig {
	return &ClientConfig{
		ServerURL:         "http://localhost:5001",
		ConnectTimeout:    10 * time.Second,
		ReconnectAttempts: 5,
		ReconnectDelay:    1 * time.Second,
		RequestTimeout:    30 * time.Second,
	}
}

// RetentionConfig controls eviction of idle debates from memory.
type RetentionConfig struct {
	// Disabled keeps debates for the process lifetime.
	Disabled bool `yaml:"disabled"`

	// DebateTTL evicts debates with no activity for this long.
	DebateTTL time.Duration `yaml:"debate_ttl"`

	// CleanupInterval is how often idle debates are looked for.
	CleanupInterval time.Duration `yaml:"cleanup_interval"`
}

// DefaultRetentionConfig returns the built-in retention defaults.
func DefaultRetentionConfig() *RetentionConfig {
	return &RetentionConfig{
		DebateTTL:       24 * time.Hour,
		CleanupInterval: 10 * time.Minute,
	}
}
