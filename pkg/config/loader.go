package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"dario.cat/mergo"
	"gopkg.in/yaml.v3"

	"github.com/codeready-toolchain/deliberatorium/pkg/models"
)

// ConfigFileName is the configuration file looked up in the config directory.
const ConfigFileName = "deliberatorium.yaml"

// DeliberatoriumYAMLConfig represents the complete deliberatorium.yaml file structure
type DeliberatoriumYAMLConfig struct {
	Server    *ServerConfig          `yaml:"server"`
	Agents    map[string]AgentConfig `yaml:"agents"`
	Roster    []string               `yaml:"roster"`
	Turns     *TurnConfig            `yaml:"turns"`
	Generator *GeneratorConfig       `yaml:"generator"`
	Client    *ClientConfig          `yaml:"client"`
	Retention *RetentionConfig       `yaml:"retention"`
}

// Initialize loads, validates, and returns ready-to-use configuration.
// This is the primary entry point for configuration loading.
//
// Steps performed:
//  1. Load deliberatorium.yaml from configDir (defaults only if absent)
//  2. Expand environment variables
//  3. Parse YAML into structs
//  4. Merge built-in + user-defined agents
//  5. Merge each section over its defaults
//  6. Resolve the roster into agents
//  7. Validate all configuration
func Initialize(ctx context.Context, configDir string) (*Config, error) {
	log := slog.With("config_dir", configDir)
	log.Info("Initializing configuration")

	cfg, err := load(ctx, configDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	stats := cfg.Stats()
	log.Info("Configuration initialized successfully",
		"agents", stats.Agents,
		"roster", stats.Roster,
		"generator", cfg.Generator.Backend)

	return cfg, nil
}

// load is the internal loader (not exported)
func load(_ context.Context, configDir string) (*Config, error) {
	loader := &configLoader{
		configDir: configDir,
	}

	yamlCfg, err := loader.loadDeliberatoriumYAML()
	if err != nil {
		if !errors.Is(err, ErrConfigNotFound) {
			return nil, NewLoadError(ConfigFileName, err)
		}
		slog.Info("No configuration file found, using built-in defaults",
			"config_dir", configDir, "file", ConfigFileName)
		yamlCfg = &DeliberatoriumYAMLConfig{Agents: make(map[string]AgentConfig)}
	}

	agents := mergeAgents(builtinAgents(), yamlCfg.Agents)
	agentRegistry := NewAgentRegistry(agents)

	server := DefaultServerConfig()
	if err := mergeSection(server, yamlCfg.Server); err != nil {
		return nil, fmt.Errorf("failed to merge server config: %w", err)
	}
	turns := DefaultTurnConfig()
	if err := mergeSection(turns, yamlCfg.Turns); err != nil {
		return nil, fmt.Errorf("failed to merge turns config: %w", err)
	}
	generator := DefaultGeneratorConfig()
	if err := mergeSection(generator, yamlCfg.Generator); err != nil {
		return nil, fmt.Errorf("failed to merge generator config: %w", err)
	}
	client := DefaultClientConfig()
	if err := mergeSection(client, yamlCfg.Client); err != nil {
		return nil, fmt.Errorf("failed to merge client config: %w", err)
	}
	retention := DefaultRetentionConfig()
	if err := mergeSection(retention, yamlCfg.Retention); err != nil {
		return nil, fmt.Errorf("failed to merge retention config: %w", err)
	}

	rosterNames := yamlCfg.Roster
	if len(rosterNames) == 0 {
		rosterNames = DefaultRoster
	}
	roster, err := resolveRoster(agentRegistry, rosterNames)
	if err != nil {
		return nil, err
	}

	return &Config{
		configDir:     configDir,
		Server:        server,
		Turns:         turns,
		Generator:     generator,
		Client:        client,
		Retention:     retention,
		AgentRegistry: agentRegistry,
		Roster:        roster,
	}, nil
}

// mergeSection merges a user-provided section over its defaults.
// Non-zero user values override; zero values keep the default.
func mergeSection[T any](defaults *T, user *T) error {
	if user == nil {
		return nil
	}
	return mergo.Merge(defaults, user, mergo.WithOverride)
}

// resolveRoster maps ordered roster names onto agents from the registry.
func resolveRoster(registry *AgentRegistry, names []string) ([]models.Agent, error) {
	roster := make([]models.Agent, 0, len(names))
	seen := make(map[string]bool, len(names))
	for i, name := range names {
		if seen[name] {
			return nil, NewValidationError("roster", fmt.Sprintf("%d", i), "",
				fmt.Errorf("%w: agent '%s' listed twice", ErrInvalidValue, name))
		}
		seen[name] = true

		agent, err := registry.Agent(name)
		if err != nil {
			return nil, NewValidationError("roster", fmt.Sprintf("%d", i), "", err)
		}
		roster = append(roster, agent)
	}
	return roster, nil
}

// validate performs comprehensive validation on loaded configuration
func validate(cfg *Config) error {
	validator := NewValidator(cfg)
	return validator.ValidateAll()
}

type configLoader struct {
	configDir string
}

func (l *configLoader) loadYAML(filename string, target any) error {
	path := filepath.Join(l.configDir, filename)

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return err
	}

	// Expand environment variables using {{.VAR}} template syntax
	data = ExpandEnv(data)

	if err := yaml.Unmarshal(data, target); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidYAML, err)
	}

	return nil
}

func (l *configLoader) loadDeliberatoriumYAML() (*DeliberatoriumYAMLConfig, error) {
	var config DeliberatoriumYAMLConfig

	// Initialize maps to avoid nil maps
	config.Agents = make(map[string]AgentConfig)

	if err := l.loadYAML(ConfigFileName, &config); err != nil {
		return nil, err
	}

	return &config, nil
}
