package generator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/antoniostano/roundtable/internal/persona"
)

// Generator produces one reply for a persona given the shared system prompt
// and the formatted conversation context. Implementations may stream
// internally; callers only see the final concatenated text.
type Generator interface {
	Generate(ctx context.Context, p persona.Persona, systemPrompt, contextText string) (string, error)
}

// Config selects and parameterizes a generator backend.
type Config struct {
	Mode          string // auto|ollama|openai|mock
	OpenAIBaseURL string
	OpenAIAPIKey  string
	Timeout       time.Duration
}

// New builds a generator for the configured mode. Auto prefers an
// OpenAI-compatible endpoint when one is configured and falls back to the
// native Ollama API otherwise.
func New(cfg Config) (Generator, string, error) {
	mode := strings.ToLower(strings.TrimSpace(cfg.Mode))
	if mode == "" {
		mode = "auto"
	}
	switch mode {
	case "ollama":
		return NewOllamaClient(cfg.Timeout), "ollama", nil
	case "openai":
		if strings.TrimSpace(cfg.OpenAIBaseURL) == "" && strings.TrimSpace(cfg.OpenAIAPIKey) == "" {
			return nil, "", fmt.Errorf("GENERATOR_MODE=openai requires OPENAI_BASE_URL or OPENAI_API_KEY")
		}
		return NewOpenAIClient(cfg.OpenAIBaseURL, cfg.OpenAIAPIKey), "openai", nil
	case "mock":
		return NewScripted(), "mock", nil
	case "auto":
		if strings.TrimSpace(cfg.OpenAIBaseURL) != "" || strings.TrimSpace(cfg.OpenAIAPIKey) != "" {
			return NewOpenAIClient(cfg.OpenAIBaseURL, cfg.OpenAIAPIKey), "openai", nil
		}
		return NewOllamaClient(cfg.Timeout), "ollama", nil
	default:
		return nil, "", fmt.Errorf("invalid generator mode: %q", cfg.Mode)
	}
}
