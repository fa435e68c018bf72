package config

import (
	"fmt"
	"net/url"
	"strings"
)

// ConfigValidator validates configuration comprehensively with clear error messages
type ConfigValidator struct {
	cfg *Config
}

// NewValidator creates a validator for the given configuration
func NewValidator(cfg *Config) *ConfigValidator {
	return &ConfigValidator{cfg: cfg}
}

// ValidateAll performs comprehensive validation (fail-fast - stops at first error)
func (v *ConfigValidator) ValidateAll() error {
	if err := v.validateAgents(); err != nil {
		return fmt.Errorf("agent validation failed: %w", err)
	}
	if err := v.validateRoster(); err != nil {
		return fmt.Errorf("roster validation failed: %w", err)
	}
	if err := v.validateTurns(); err != nil {
		return fmt.Errorf("turns validation failed: %w", err)
	}
	if err := v.validateGenerator(); err != nil {
		return fmt.Errorf("generator validation failed: %w", err)
	}
	if err := v.validateServer(); err != nil {
		return fmt.Errorf("server validation failed: %w", err)
	}
	if err := v.validateClient(); err != nil {
		return fmt.Errorf("client validation failed: %w", err)
	}
	if err := v.validateRetention(); err != nil {
		return fmt.Errorf("retention validation failed: %w", err)
	}
	return nil
}

func (v *ConfigValidator) validateAgents() error {
	for _, name := range v.cfg.AgentRegistry.Names() {
		if strings.TrimSpace(name) == "" {
			return NewValidationError("agent", name, "name", ErrMissingRequiredField)
		}
		agent, err := v.cfg.AgentRegistry.Get(name)
		if err != nil {
			return err
		}
		if strings.TrimSpace(agent.Role) == "" {
			return NewValidationError("agent", name, "role", ErrMissingRequiredField)
		}
	}
	return nil
}

func (v *ConfigValidator) validateRoster() error {
	if len(v.cfg.Roster) == 0 {
		return NewValidationError("roster", "", "", fmt.Errorf("%w: at least one agent required", ErrMissingRequiredField))
	}
	return nil
}

func (v *ConfigValidator) validateTurns() error {
	t := v.cfg.Turns
	if t == nil {
		return fmt.Errorf("turns configuration is nil")
	}
	if t.Delay < 0 {
		return NewValidationError("turns", "", "delay", fmt.Errorf("%w: must not be negative", ErrInvalidValue))
	}
	if t.Timeout <= 0 {
		return NewValidationError("turns", "", "timeout", fmt.Errorf("%w: must be positive", ErrInvalidValue))
	}
	if !t.OnTimeout.IsValid() {
		return NewValidationError("turns", "", "on_timeout", fmt.Errorf("%w: %q (want skip, retry or abort)", ErrInvalidValue, t.OnTimeout))
	}
	if t.MaxTurns < 0 {
		return NewValidationError("turns", "", "max_turns", fmt.Errorf("%w: must not be negative", ErrInvalidValue))
	}
	return nil
}

func (v *ConfigValidator) validateGenerator() error {
	g := v.cfg.Generator
	if g == nil {
		return fmt.Errorf("generator configuration is nil")
	}
	if !g.Backend.IsValid() {
		return NewValidationError("generator", string(g.Backend), "backend", fmt.Errorf("%w: %q (want template or gemini)", ErrInvalidValue, g.Backend))
	}
	if g.MaxWords < 10 {
		return NewValidationError("generator", string(g.Backend), "max_words", fmt.Errorf("%w: must be at least 10", ErrInvalidValue))
	}
	if g.ContextMessages < 0 {
		return NewValidationError("generator", string(g.Backend), "context_messages", fmt.Errorf("%w: must not be negative", ErrInvalidValue))
	}
	if g.Backend == GeneratorBackendGemini {
		if g.Model == "" {
			return NewValidationError("generator", string(g.Backend), "model", ErrMissingRequiredField)
		}
		if g.APIKey == "" && (g.Project == "" || g.Location == "") {
			return NewValidationError("generator", string(g.Backend), "api_key",
				fmt.Errorf("%w: api_key, or project and location, must be set", ErrMissingRequiredField))
		}
	}
	return nil
}

func (v *ConfigValidator) validateServer() error {
	s := v.cfg.Server
	if s == nil {
		return fmt.Errorf("server configuration is nil")
	}
	if s.Port == "" {
		return NewValidationError("server", "", "port", ErrMissingRequiredField)
	}
	if s.WSWriteTimeout <= 0 {
		return NewValidationError("server", "", "ws_write_timeout", fmt.Errorf("%w: must be positive", ErrInvalidValue))
	}
	if s.ShutdownTimeout <= 0 {
		return NewValidationError("server", "", "shutdown_timeout", fmt.Errorf("%w: must be positive", ErrInvalidValue))
	}
	return nil
}

func (v *ConfigValidator) validateClient() error {
	c := v.cfg.Client
	if c == nil {
		return fmt.Errorf("client configuration is nil")
	}
	u, err := url.Parse(c.ServerURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return NewValidationError("client", c.ServerURL, "server_url", fmt.Errorf("%w: must be an http(s) URL", ErrInvalidValue))
	}
	if c.ConnectTimeout <= 0 {
		return NewValidationError("client", "", "connect_timeout", fmt.Errorf("%w: must be positive", ErrInvalidValue))
	}
	if c.ReconnectAttempts < 0 {
		return NewValidationError("client", "", "reconnect_attempts", fmt.Errorf("%w: must not be negative", ErrInvalidValue))
	}
	if c.ReconnectDelay < 0 {
		return NewValidationError("client", "", "reconnect_delay", fmt.Errorf("%w: must not be negative", ErrInvalidValue))
	}
	if c.RequestTimeout <= 0 {
		return NewValidationError("client", "", "request_timeout", fmt.Errorf("%w: must be positive", ErrInvalidValue))
	}
	return nil
}

func (v *ConfigValidator) validateRetention() error {
	r := v.cfg.Retention
	if r == nil {
		return fmt.Errorf("retention configuration is nil")
	}
	if r.Disabled {
		return nil
	}
	if r.DebateTTL <= 0 {
		return NewValidationError("retention", "", "debate_ttl", fmt.Errorf("%w: must be positive", ErrInvalidValue))
	}
	if r.CleanupInterval <= 0 {
		return NewValidationError("retention", "", "cleanup_interval", fmt.Errorf("%w: must be positive", ErrInvalidValue))
	}
	return nil
}
