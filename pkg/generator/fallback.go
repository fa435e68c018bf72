package generator

import (
	"context"
	"log/slog"
	"strings"
)

// minWords is the shortest primary utterance accepted without falling back.
const minWords = 10

// casualMarkers flag chatty or off-topic model output.
var casualMarkers = []string{"thanks", "email", "reach out", "hope this helps", "lmfao", "your response:"}

type fallbackGenerator struct {
	primary  Generator
	fallback Generator
}

// WithFallback returns a Generator that answers with fallback whenever
// primary errors or produces an unusable utterance. Context cancellation is
// never masked.
func WithFallback(primary, fallback Generator) Generator {
	if primary == fallback {
		return primary
	}
	return &fallbackGenerator{primary: primary, fallback: fallback}
}

func (g *fallbackGenerator) Generate(ctx context.Context, req Request) (string, error) {
	text, err := g.primary.Generate(ctx, req)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		slog.Warn("Generator failed, using fallback", "agent", req.Agent.Name, "error", err)
		return g.fallback.Generate(ctx, req)
	}
	if reason := unusable(text); reason != "" {
		slog.Info("Generated utterance rejected, using fallback", "agent", req.Agent.Name, "reason", reason)
		return g.fallback.Generate(ctx, req)
	}
	return text, nil
}

func unusable(text string) string {
	if len(strings.Fields(text)) < minWords {
		return "too short"
	}
	lower := strings.ToLower(text)
	for _, marker := range casualMarkers {
		if strings.Contains(lower, marker) {
			return "off-topic marker " + marker
		}
	}
	return ""
}
