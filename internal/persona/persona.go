package persona

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Persona is one configured bot identity. Immutable after load.
type Persona struct {
	Name        string `yaml:"name"`
	Endpoint    string `yaml:"ollama_url"`
	Model       string `yaml:"model"`
	Personality string `yaml:"personality"`
}

// Roster is the parsed roster file: the participants plus the shared
// discussion settings that ship alongside them.
type Roster struct {
	SystemPrompt string    `yaml:"system_prompt"`
	Bots         []Persona `yaml:"bots"`

	// Optional overrides; zero means "use the runtime config value".
	MaxRounds          int `yaml:"max_rounds"`
	ResponseTimeoutSec int `yaml:"response_timeout"`
}

// ResponseTimeout returns the roster override as a duration, or zero when
// the roster does not set one.
func (r Roster) ResponseTimeout() time.Duration {
	if r.ResponseTimeoutSec <= 0 {
		return 0
	}
	return time.Duration(r.ResponseTimeoutSec) * time.Second
}

// LoadRoster reads and validates a roster file.
func LoadRoster(path string) (Roster, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Roster{}, fmt.Errorf("read roster file: %w", err)
	}

	var roster Roster
	if err := yaml.Unmarshal(data, &roster); err != nil {
		return Roster{}, fmt.Errorf("parse roster file: %w", err)
	}

	if roster.SystemPrompt == "" {
		roster.SystemPrompt = "You are participating in a round-table discussion with other AI assistants. Keep your responses short and conversational."
	}

	if err := roster.Validate(); err != nil {
		return Roster{}, err
	}
	return roster, nil
}

// Validate checks the roster invariants: at least one bot, and bot names
// non-empty and unique (names key the conversation log).
func (r Roster) Validate() error {
	if len(r.Bots) == 0 {
		return fmt.Errorf("roster has no bots")
	}
	seen := make(map[string]struct{}, len(r.Bots))
	for i, b := range r.Bots {
		name := strings.TrimSpace(b.Name)
		if name == "" {
			return fmt.Errorf("bot %d has an empty name", i)
		}
		if _, dup := seen[name]; dup {
			return fmt.Errorf("duplicate bot name %q", name)
		}
		seen[name] = struct{}{}
		if strings.TrimSpace(b.Model) == "" {
			return fmt.Errorf("bot %q has no model", name)
		}
	}
	if r.MaxRounds < 0 {
		return fmt.Errorf("max_rounds must be >= 0")
	}
	if r.ResponseTimeoutSec < 0 {
		return fmt.Errorf("response_timeout must be >= 0")
	}
	return nil
}

// ApplyDefaultEndpoint fills the endpoint for bots that omit one.
func (r *Roster) ApplyDefaultEndpoint(url string) {
	for i := range r.Bots {
		if strings.TrimSpace(r.Bots[i].Endpoint) == "" {
			r.Bots[i].Endpoint = url
		}
	}
}
