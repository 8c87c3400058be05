package generator

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/antoniostano/roundtable/internal/persona"
)

func testPersona(endpoint string) persona.Persona {
	return persona.Persona{
		Name:        "Alice",
		Endpoint:    endpoint,
		Model:       "llama3",
		Personality: "optimistic futurist",
	}
}

func TestOllamaGenerate(t *testing.T) {
	var gotPath string
	var gotReq ollamaRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Errorf("decode request: %v", err)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"response": "  The future is bright.  ", "done": true})
	}))
	defer server.Close()

	client := NewOllamaClient(5 * time.Second)
	text, err := client.Generate(context.Background(), testPersona(server.URL), "Be brief.", "No previous conversation.")
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	if gotPath != "/api/generate" {
		t.Fatalf("request path = %q, want /api/generate", gotPath)
	}
	if gotReq.Model != "llama3" {
		t.Fatalf("request model = %q, want llama3", gotReq.Model)
	}
	if gotReq.Stream {
		t.Fatalf("request stream = true, want false")
	}
	if !strings.Contains(gotReq.Prompt, "Your personality: optimistic futurist") {
		t.Fatalf("prompt missing personality section: %q", gotReq.Prompt)
	}
	if !strings.HasSuffix(gotReq.Prompt, "Alice:") {
		t.Fatalf("prompt should end with completion cue, got %q", gotReq.Prompt)
	}
	if text != "The future is bright." {
		t.Fatalf("Generate() = %q, want trimmed response", text)
	}
}

func TestOllamaGenerateHTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	defer server.Close()

	client := NewOllamaClient(5 * time.Second)
	if _, err := client.Generate(context.Background(), testPersona(server.URL), "sys", "ctx"); err == nil {
		t.Fatalf("Generate() error = nil for HTTP 404, want error")
	}
}

func TestOllamaGenerateNDJSONStream(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/x-ndjson")
		for _, line := range []string{
			`{"response":"Hello","done":false}`,
			`{"response":", world","done":false}`,
			`{"response":".","done":true}`,
		} {
			_, _ = w.Write([]byte(line + "\n"))
		}
	}))
	defer server.Close()

	client := NewOllamaClient(5 * time.Second)
	text, err := client.Generate(context.Background(), testPersona(server.URL), "sys", "ctx")
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if text != "Hello, world." {
		t.Fatalf("Generate() = %q, want concatenated stream", text)
	}
}

func TestOllamaGenerateHonorsContextCancellation(t *testing.T) {
	started := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Drain the body so the server's background read can observe the
		// client disconnect and cancel the request context; otherwise
		// server.Close deadlocks waiting for this handler.
		_, _ = io.Copy(io.Discard, r.Body)
		close(started)
		<-r.Context().Done()
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		_, err := NewOllamaClient(time.Minute).Generate(ctx, testPersona(server.URL), "sys", "ctx")
		errCh <- err
	}()

	<-started
	cancel()
	select {
	case err := <-errCh:
		if err == nil {
			t.Fatalf("Generate() error = nil after cancellation, want error")
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("Generate() did not return after context cancellation")
	}
}

func TestNewFactoryModes(t *testing.T) {
	if _, label, err := New(Config{Mode: "ollama"}); err != nil || label != "ollama" {
		t.Fatalf("New(ollama) = %q, %v", label, err)
	}
	if _, label, err := New(Config{Mode: "mock"}); err != nil || label != "mock" {
		t.Fatalf("New(mock) = %q, %v", label, err)
	}
	if _, label, err := New(Config{Mode: "auto"}); err != nil || label != "ollama" {
		t.Fatalf("New(auto) without openai settings = %q, %v; want ollama", label, err)
	}
	if _, label, err := New(Config{Mode: "auto", OpenAIBaseURL: "http://localhost:11434/v1"}); err != nil || label != "openai" {
		t.Fatalf("New(auto) with base URL = %q, %v; want openai", label, err)
	}
	if _, _, err := New(Config{Mode: "openai"}); err == nil {
		t.Fatalf("New(openai) without settings = nil error, want error")
	}
	if _, _, err := New(Config{Mode: "psychic"}); err == nil {
		t.Fatalf("New(psychic) = nil error, want error")
	}
}
