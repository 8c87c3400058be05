package persona

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

const sampleRoster = `
system_prompt: "Keep it short."
response_timeout: 20
max_rounds: 5
bots:
  - name: Alice
    model: llama3
    personality: "optimistic futurist"
  - name: Bob
    ollama_url: "http://gpu-box:11434"
    model: mistral
    personality: "skeptical engineer"
`

func writeRoster(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "roundtable.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write roster: %v", err)
	}
	return path
}

func TestLoadRoster(t *testing.T) {
	roster, err := LoadRoster(writeRoster(t, sampleRoster))
	if err != nil {
		t.Fatalf("LoadRoster() error = %v", err)
	}

	if len(roster.Bots) != 2 {
		t.Fatalf("len(Bots) = %d, want 2", len(roster.Bots))
	}
	if roster.Bots[0].Name != "Alice" || roster.Bots[1].Name != "Bob" {
		t.Fatalf("bot names = %q, %q; want Alice, Bob", roster.Bots[0].Name, roster.Bots[1].Name)
	}
	if roster.ResponseTimeout() != 20*time.Second {
		t.Fatalf("ResponseTimeout() = %v, want 20s", roster.ResponseTimeout())
	}
	if roster.MaxRounds != 5 {
		t.Fatalf("MaxRounds = %d, want 5", roster.MaxRounds)
	}
}

func TestLoadRosterAppliesDefaultSystemPrompt(t *testing.T) {
	roster, err := LoadRoster(writeRoster(t, "bots:\n  - name: Solo\n    model: llama3\n"))
	if err != nil {
		t.Fatalf("LoadRoster() error = %v", err)
	}
	if roster.SystemPrompt == "" {
		t.Fatalf("SystemPrompt empty, want default prompt")
	}
}

func TestValidateRejectsBadRosters(t *testing.T) {
	cases := []struct {
		name   string
		roster Roster
	}{
		{"no bots", Roster{}},
		{"empty name", Roster{Bots: []Persona{{Name: "  ", Model: "m"}}}},
		{"duplicate name", Roster{Bots: []Persona{{Name: "A", Model: "m"}, {Name: "A", Model: "m"}}}},
		{"missing model", Roster{Bots: []Persona{{Name: "A"}}}},
	}
	for _, tc := range cases {
		if err := tc.roster.Validate(); err == nil {
			t.Fatalf("Validate() = nil for %s, want error", tc.name)
		}
	}
}

func TestApplyDefaultEndpoint(t *testing.T) {
	roster := Roster{Bots: []Persona{
		{Name: "A", Model: "m"},
		{Name: "B", Model: "m", Endpoint: "http://gpu-box:11434"},
	}}
	roster.ApplyDefaultEndpoint("http://localhost:11434")

	if roster.Bots[0].Endpoint != "http://localhost:11434" {
		t.Fatalf("Bots[0].Endpoint = %q, want default", roster.Bots[0].Endpoint)
	}
	if roster.Bots[1].Endpoint != "http://gpu-box:11434" {
		t.Fatalf("Bots[1].Endpoint = %q, want explicit endpoint preserved", roster.Bots[1].Endpoint)
	}
}
