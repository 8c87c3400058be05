package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	setCoreEnvEmpty(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.RosterPath != "roundtable.yaml" {
		t.Fatalf("RosterPath = %q, want %q", cfg.RosterPath, "roundtable.yaml")
	}
	if cfg.ResponseTimeout != 30*time.Second {
		t.Fatalf("ResponseTimeout = %v, want 30s", cfg.ResponseTimeout)
	}
	if cfg.MaxRounds != 0 {
		t.Fatalf("MaxRounds = %d, want 0 (unbounded)", cfg.MaxRounds)
	}
	if cfg.ContextWindow != 10 {
		t.Fatalf("ContextWindow = %d, want 10", cfg.ContextWindow)
	}
	if cfg.GeneratorMode != "auto" {
		t.Fatalf("GeneratorMode = %q, want %q", cfg.GeneratorMode, "auto")
	}
	if cfg.OllamaDefaultURL != "http://localhost:11434" {
		t.Fatalf("OllamaDefaultURL = %q, want default ollama endpoint", cfg.OllamaDefaultURL)
	}
}

func TestLoadExplicitOverrides(t *testing.T) {
	setCoreEnvEmpty(t)
	t.Setenv("ROUNDTABLE_RESPONSE_TIMEOUT", "45s")
	t.Setenv("ROUNDTABLE_MAX_ROUNDS", "3")
	t.Setenv("NARRATOR_MODE", "off")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.ResponseTimeout != 45*time.Second {
		t.Fatalf("ResponseTimeout = %v, want 45s", cfg.ResponseTimeout)
	}
	if cfg.MaxRounds != 3 {
		t.Fatalf("MaxRounds = %d, want 3", cfg.MaxRounds)
	}
	if cfg.NarratorMode != "off" {
		t.Fatalf("NarratorMode = %q, want %q", cfg.NarratorMode, "off")
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	setCoreEnvEmpty(t)
	t.Setenv("ROUNDTABLE_RESPONSE_TIMEOUT", "100ms")
	if _, err := Load(); err == nil {
		t.Fatalf("Load() error = nil for sub-second response timeout, want error")
	}

	setCoreEnvEmpty(t)
	t.Setenv("GENERATOR_MODE", "telepathy")
	if _, err := Load(); err == nil {
		t.Fatalf("Load() error = nil for invalid generator mode, want error")
	}

	setCoreEnvEmpty(t)
	t.Setenv("ROUNDTABLE_CONTEXT_WINDOW", "0")
	if _, err := Load(); err == nil {
		t.Fatalf("Load() error = nil for zero context window, want error")
	}
}

func setCoreEnvEmpty(t *testing.T) {
	t.Helper()
	keys := []string{
		"ROUNDTABLE_CONFIG",
		"ROUNDTABLE_LOG_DIR",
		"ROUNDTABLE_RESPONSE_TIMEOUT",
		"ROUNDTABLE_MAX_ROUNDS",
		"ROUNDTABLE_CONTEXT_WINDOW",
		"ROUNDTABLE_OLLAMA_URL",
		"APP_BIND_ADDR",
		"APP_METRICS_NAMESPACE",
		"APP_SHUTDOWN_TIMEOUT",
		"APP_ALLOW_ANY_ORIGIN",
		"GENERATOR_MODE",
		"OPENAI_BASE_URL",
		"OPENAI_API_KEY",
		"NARRATOR_MODE",
		"NARRATOR_COMMAND",
		"DATABASE_URL",
		"SPEECH_QUEUE_CAPACITY",
		"NARRATION_JOIN_GRACE",
	}
	for _, key := range keys {
		t.Setenv(key, "")
	}
}
