package generator

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/codeready-toolchain/deliberatorium/pkg/config"
	"github.com/codeready-toolchain/deliberatorium/pkg/models"
)

// maxOutputTokens bounds a single utterance; Finalize applies the word cap.
const maxOutputTokens = int32(300)

// contentGenerator is the subset of *genai.Models used here.
type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Gemini speaks for agents through the Gen AI SDK, against either the
// Gemini API (api_key) or Vertex AI (project + location).
type Gemini struct {
	models          contentGenerator
	model           string
	temperature     float32
	maxWords        int
	contextMessages int
}

// NewGemini creates a Gemini-backed generator.
func NewGemini(ctx context.Context, cfg *config.GeneratorConfig) (*Gemini, error) {
	clientCfg := &genai.ClientConfig{}
	if cfg.APIKey != "" {
		clientCfg.APIKey = cfg.APIKey
		clientCfg.Backend = genai.BackendGeminiAPI
	} else {
		if cfg.Project == "" || cfg.Location == "" {
			return nil, errors.New("gemini requires api_key, or project and location")
		}
		clientCfg.Project = cfg.Project
		clientCfg.Location = cfg.Location
		clientCfg.Backend = genai.BackendVertexAI
	}

	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		return nil, fmt.Errorf("creating genai client: %w", err)
	}
	return newGemini(client.Models, cfg), nil
}

func newGemini(m contentGenerator, cfg *config.GeneratorConfig) *Gemini {
	return &Gemini{
		models:          m,
		model:           cfg.Model,
		temperature:     cfg.Temperature,
		maxWords:        cfg.MaxWords,
		contextMessages: cfg.ContextMessages,
	}
}

// Generate implements Generator.
func (g *Gemini) Generate(ctx context.Context, req Request) (string, error) {
	temp := g.temperature
	topP := float32(0.9)

	genCfg := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(g.systemPrompt(req), genai.RoleUser),
		Temperature:       &temp,
		TopP:              &topP,
		MaxOutputTokens:   maxOutputTokens,
	}

	contents := []*genai.Content{
		genai.NewContentFromText(g.discussionPrompt(req), genai.RoleUser),
	}

	res, err := g.models.GenerateContent(ctx, g.model, contents, genCfg)
	if err != nil {
		return "", fmt.Errorf("gemini generate content: %w", err)
	}
	text := strings.TrimSpace(res.Text())
	if text == "" {
		return "", errors.New("gemini returned empty text")
	}
	return text, nil
}

func (g *Gemini) systemPrompt(req Request) string {
	a := req.Agent
	var b strings.Builder
	fmt.Fprintf(&b, "You are %s, a %s participating in a formal debate about: %s\n\n", a.Name, a.Role, req.Topic)
	fmt.Fprintf(&b, "Your expertise and perspective: %s\n\n", a.Bias)
	fmt.Fprintf(&b, "Provide a focused analysis (maximum %d words) that:\n", g.maxWords)
	fmt.Fprintf(&b, "1. Directly addresses the topic of %s\n", req.Topic)
	fmt.Fprintf(&b, "2. Incorporates your expertise as %s\n", a.Role)
	b.WriteString("3. Responds to the points raised so far, including any audience interventions\n")
	b.WriteString("4. Maintains a formal, academic tone\n")
	b.WriteString("5. Concludes with a clear, final thought\n\n")
	b.WriteString("Answer with a single complete paragraph. Do not end mid-sentence.")
	return b.String()
}

// discussionPrompt renders the last contextMessages messages as the turn input.
func (g *Gemini) discussionPrompt(req Request) string {
	history := recent(req.History, g.contextMessages)
	if len(history) == 0 {
		return fmt.Sprintf("Open the debate on %q.", req.Topic)
	}
	var b strings.Builder
	b.WriteString("Previous discussion:\n")
	for _, m := range history {
		fmt.Fprintf(&b, "%s: %s\n", speaker(m), m.Content)
	}
	fmt.Fprintf(&b, "\nIt is now your turn, %s.", req.Agent.Name)
	return b.String()
}

func recent(history []models.Message, n int) []models.Message {
	if n <= 0 || len(history) <= n {
		return history
	}
	return history[len(history)-n:]
}

func speaker(m models.Message) string {
	if m.Type == models.MessageTypeIntervention {
		return "Audience"
	}
	return m.Sender
}
