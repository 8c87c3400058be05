package generator

import (
	"context"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/antoniostano/roundtable/internal/persona"
)

// OpenAIClient targets any OpenAI-compatible chat completion endpoint,
// including Ollama's and llama.cpp's compatibility servers.
type OpenAIClient struct {
	client *openai.Client
}

func NewOpenAIClient(baseURL, apiKey string) *OpenAIClient {
	cfg := openai.DefaultConfig(apiKey)
	if strings.TrimSpace(baseURL) != "" {
		cfg.BaseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	}
	return &OpenAIClient{client: openai.NewClientWithConfig(cfg)}
}

func (c *OpenAIClient) Generate(ctx context.Context, p persona.Persona, systemPrompt, contextText string) (string, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: p.Model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: fmt.Sprintf("%s\n\nYour personality: %s\n\nYou are %s.", systemPrompt, p.Personality, p.Name),
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: fmt.Sprintf("Conversation so far:\n%s\n\nReply as %s.", contextText, p.Name),
			},
		},
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat completion returned no choices")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
