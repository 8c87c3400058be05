package generator

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/antoniostano/roundtable/internal/persona"
)

// OllamaClient talks to the native Ollama generate API at each persona's
// configured endpoint.
type OllamaClient struct {
	client *http.Client
}

func NewOllamaClient(timeout time.Duration) *OllamaClient {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &OllamaClient{
		client: &http.Client{Timeout: timeout},
	}
}

type ollamaRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

type ollamaResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
	Error    string `json:"error"`
}

func (c *OllamaClient) Generate(ctx context.Context, p persona.Persona, systemPrompt, contextText string) (string, error) {
	payload, err := json.Marshal(ollamaRequest{
		Model:  p.Model,
		Prompt: BuildPrompt(p, systemPrompt, contextText),
		Stream: false,
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	url := strings.TrimRight(strings.TrimSpace(p.Endpoint), "/") + "/api/generate"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	res, err := c.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("send request: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(res.Body, 4<<10))
		return "", fmt.Errorf("ollama http status %d: %s", res.StatusCode, strings.TrimSpace(string(body)))
	}

	ct := strings.ToLower(res.Header.Get("Content-Type"))
	if strings.Contains(ct, "application/x-ndjson") {
		return c.consumeStreaming(res.Body)
	}

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	var obj ollamaResponse
	if err := json.Unmarshal(body, &obj); err != nil {
		return "", fmt.Errorf("parse response: %w", err)
	}
	if obj.Error != "" {
		return "", fmt.Errorf("ollama error: %s", obj.Error)
	}
	return strings.TrimSpace(obj.Response), nil
}

// consumeStreaming concatenates the response fragments of an NDJSON stream.
// Some Ollama proxies stream even when stream=false is requested.
func (c *OllamaClient) consumeStreaming(body io.Reader) (string, error) {
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	var out strings.Builder
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var obj ollamaResponse
		if err := json.Unmarshal([]byte(line), &obj); err != nil {
			continue
		}
		if obj.Error != "" {
			return "", fmt.Errorf("ollama error: %s", obj.Error)
		}
		out.WriteString(obj.Response)
		if obj.Done {
			break
		}
	}
	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("stream read: %w", err)
	}
	return strings.TrimSpace(out.String()), nil
}
