package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codeready-toolchain/deliberatorium/pkg/models"
)

func validConfig() *Config {
	agents := mergeAgents(builtinAgents(), nil)
	return &Config{
		Server:        DefaultServerConfig(),
		Turns:         DefaultTurnConfig(),
		Generator:     DefaultGeneratorConfig(),
		Client:        DefaultClientConfig(),
		Retention:     DefaultRetentionConfig(),
		AgentRegistry: NewAgentRegistry(agents),
		Roster:        []models.Agent{{Name: "Economist", Role: "Economic policy expert"}},
	}
}

func TestValidateAll(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
		field   string
	}{
		{
			name:   "valid defaults",
			mutate: func(*Config) {},
		},
		{
			name:    "zero debate ttl",
			mutate:  func(c *Config) { c.Retention.DebateTTL = 0 },
			wantErr: ErrInvalidValue,
			field:   "debate_ttl",
		},
		{
			name:    "zero cleanup interval",
			mutate:  func(c *Config) { c.Retention.CleanupInterval = 0 },
			wantErr: ErrInvalidValue,
			field:   "cleanup_interval",
		},
		{
			name: "retention disabled needs no ttl",
			mutate: func(c *Config) {
				c.Retention.Disabled = true
				c.Retention.DebateTTL = 0
				c.Retention.CleanupInterval = 0
			},
		},
		{
			name:    "empty roster",
			mutate:  func(c *Config) { c.Roster = nil },
			wantErr: ErrMissingRequiredField,
		},
		{
			name:    "negative delay",
			mutate:  func(c *Config) { c.Turns.Delay = -1 },
			wantErr: ErrInvalidValue,
			field:   "delay",
		},
		{
			name:    "zero turn timeout",
			mutate:  func(c *Config) { c.Turns.Timeout = 0 },
			wantErr: ErrInvalidValue,
			field:   "timeout",
		},
		{
			name:    "unknown timeout policy",
			mutate:  func(c *Config) { c.Turns.OnTimeout = "explode" },
			wantErr: ErrInvalidValue,
			field:   "on_timeout",
		},
		{
			name:    "unknown backend",
			mutate:  func(c *Config) { c.Generator.Backend = "oracle" },
			wantErr: ErrInvalidValue,
			field:   "backend",
		},
		{
			name:    "gemini without credentials",
			mutate:  func(c *Config) { c.Generator.Backend = GeneratorBackendGemini },
			wantErr: ErrMissingRequiredField,
			field:   "api_key",
		},
		{
			name: "gemini with vertex project",
			mutate: func(c *Config) {
				c.Generator.Backend = GeneratorBackendGemini
				c.Generator.Project = "p"
				c.Generator.Location = "us-central1"
			},
		},
		{
			name:    "max words too small",
			mutate:  func(c *Config) { c.Generator.MaxWords = 3 },
			wantErr: ErrInvalidValue,
			field:   "max_words",
		},
		{
			name:    "client url not http",
			mutate:  func(c *Config) { c.Client.ServerURL = "ftp://host" },
			wantErr: ErrInvalidValue,
			field:   "server_url",
		},
		{
			name:    "negative reconnect attempts",
			mutate:  func(c *Config) { c.Client.ReconnectAttempts = -1 },
			wantErr: ErrInvalidValue,
			field:   "reconnect_attempts",
		},
		{
			name:    "empty port",
			mutate:  func(c *Config) { c.Server.Port = "" },
			wantErr: ErrMissingRequiredField,
			field:   "port",
		},
		{
			name: "agent without role",
			mutate: func(c *Config) {
				c.AgentRegistry = NewAgentRegistry(map[string]*AgentConfig{"Mute": {}})
			},
			wantErr: ErrMissingRequiredField,
			field:   "role",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := NewValidator(cfg).ValidateAll()
			if tt.wantErr == nil {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
			if tt.field != "" {
				var verr *ValidationError
				require.ErrorAs(t, err, &verr)
				assert.Equal(t, tt.field, verr.Field)
			}
		})
	}
}
