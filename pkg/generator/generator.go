// Package generator produces agent utterances for debate turns.
package generator

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/codeready-toolchain/deliberatorium/pkg/config"
	"github.com/codeready-toolchain/deliberatorium/pkg/models"
)

// Generator produces one agent utterance for a debate turn.
type Generator interface {
	Generate(ctx context.Context, req Request) (string, error)
}

// Request carries everything a backend needs to speak for an agent.
type Request struct {
	Agent models.Agent
	Topic string

	// History is the recent transcript, oldest first. Backends may use a
	// suffix of it as context.
	History []models.Message
}

// New builds the configured generator. Every backend is wrapped with the
// template fallback and finalized to the configured word cap.
func New(ctx context.Context, cfg *config.GeneratorConfig) (Generator, error) {
	template := NewTemplate()

	var primary Generator
	switch cfg.Backend {
	case config.GeneratorBackendTemplate, "":
		primary = template
	case config.GeneratorBackendGemini:
		g, err := NewGemini(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to create gemini generator: %w", err)
		}
		primary = g
	default:
		return nil, fmt.Errorf("unknown generator backend %q", cfg.Backend)
	}

	slog.Info("Generator initialized", "backend", cfg.Backend, "max_words", cfg.MaxWords)
	return &finalizing{
		next:     WithFallback(primary, template),
		maxWords: cfg.MaxWords,
	}, nil
}

// finalizing applies Finalize to every utterance.
type finalizing struct {
	next     Generator
	maxWords int
}

func (f *finalizing) Generate(ctx context.Context, req Request) (string, error) {
	text, err := f.next.Generate(ctx, req)
	if err != nil {
		return "", err
	}
	return Finalize(text, f.maxWords), nil
}
