package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config contains all runtime settings for the round-table CLI.
type Config struct {
	RosterPath       string
	LogDir           string
	BindAddr         string
	MetricsNamespace string
	AllowAnyOrigin   bool

	ResponseTimeout time.Duration
	MaxRounds       int
	ContextWindow   int

	GeneratorMode    string
	OllamaDefaultURL string
	OpenAIBaseURL    string
	OpenAIAPIKey     string

	NarratorMode    string
	NarratorCommand string

	DatabaseURL string

	SpeechQueueCapacity int
	NarrationJoinGrace  time.Duration
	ShutdownTimeout     time.Duration
}

// Load reads environment variables and applies safe defaults.
func Load() (Config, error) {
	cfg := Config{
		RosterPath:       envOrDefault("ROUNDTABLE_CONFIG", "roundtable.yaml"),
		LogDir:           envOrDefault("ROUNDTABLE_LOG_DIR", "chat_logs"),
		BindAddr:         envOrDefault("APP_BIND_ADDR", ":8484"),
		MetricsNamespace: envOrDefault("APP_METRICS_NAMESPACE", "roundtable"),
		AllowAnyOrigin:   false,
		ResponseTimeout:  30 * time.Second,
		MaxRounds:        0,
		ContextWindow:    10,
		GeneratorMode:    envOrDefault("GENERATOR_MODE", "auto"),
		// Default Ollama endpoint, used when a bot omits its own URL.
		OllamaDefaultURL:    envOrDefault("ROUNDTABLE_OLLAMA_URL", "http://localhost:11434"),
		OpenAIBaseURL:       trimmedEnv("OPENAI_BASE_URL"),
		OpenAIAPIKey:        trimmedEnv("OPENAI_API_KEY"),
		NarratorMode:        envOrDefault("NARRATOR_MODE", "auto"),
		NarratorCommand:     trimmedEnv("NARRATOR_COMMAND"),
		DatabaseURL:         trimmedEnv("DATABASE_URL"),
		SpeechQueueCapacity: 16,
		NarrationJoinGrace:  5 * time.Second,
		ShutdownTimeout:     15 * time.Second,
	}

	var err error
	cfg.ResponseTimeout, err = durationFromEnv("ROUNDTABLE_RESPONSE_TIMEOUT", cfg.ResponseTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.MaxRounds, err = intFromEnv("ROUNDTABLE_MAX_ROUNDS", cfg.MaxRounds)
	if err != nil {
		return Config{}, err
	}
	cfg.ContextWindow, err = intFromEnv("ROUNDTABLE_CONTEXT_WINDOW", cfg.ContextWindow)
	if err != nil {
		return Config{}, err
	}
	cfg.SpeechQueueCapacity, err = intFromEnv("SPEECH_QUEUE_CAPACITY", cfg.SpeechQueueCapacity)
	if err != nil {
		return Config{}, err
	}
	cfg.NarrationJoinGrace, err = durationFromEnv("NARRATION_JOIN_GRACE", cfg.NarrationJoinGrace)
	if err != nil {
		return Config{}, err
	}
	cfg.ShutdownTimeout, err = durationFromEnv("APP_SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.AllowAnyOrigin, err = boolFromEnv("APP_ALLOW_ANY_ORIGIN", cfg.AllowAnyOrigin)
	if err != nil {
		return Config{}, err
	}

	if cfg.ResponseTimeout < time.Second {
		return Config{}, fmt.Errorf("ROUNDTABLE_RESPONSE_TIMEOUT must be at least 1s")
	}
	if cfg.MaxRounds < 0 {
		return Config{}, fmt.Errorf("ROUNDTABLE_MAX_ROUNDS must be >= 0 (0 means unbounded)")
	}
	if cfg.ContextWindow <= 0 {
		return Config{}, fmt.Errorf("ROUNDTABLE_CONTEXT_WINDOW must be positive")
	}
	if cfg.SpeechQueueCapacity <= 0 {
		return Config{}, fmt.Errorf("SPEECH_QUEUE_CAPACITY must be positive")
	}
	if cfg.NarrationJoinGrace <= 0 {
		return Config{}, fmt.Errorf("NARRATION_JOIN_GRACE must be positive")
	}

	switch strings.ToLower(strings.TrimSpace(cfg.GeneratorMode)) {
	case "auto", "ollama", "openai", "mock":
	default:
		return Config{}, fmt.Errorf("invalid GENERATOR_MODE: %q (expected auto|ollama|openai|mock)", cfg.GeneratorMode)
	}
	switch strings.ToLower(strings.TrimSpace(cfg.NarratorMode)) {
	case "auto", "command", "mock", "off":
	default:
		return Config{}, fmt.Errorf("invalid NARRATOR_MODE: %q (expected auto|command|mock|off)", cfg.NarratorMode)
	}

	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func trimmedEnv(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func durationFromEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := trimmedEnv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return d, nil
}

func intFromEnv(key string, fallback int) (int, error) {
	v := trimmedEnv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return n, nil
}

func boolFromEnv(key string, fallback bool) (bool, error) {
	v := strings.ToLower(trimmedEnv(key))
	if v == "" {
		return fallback, nil
	}
	switch v {
	case "1", "true", "t", "yes", "y", "on":
		return true, nil
	case "0", "false", "f", "no", "n", "off":
		return false, nil
	default:
		return false, fmt.Errorf("%s parse error: expected bool", key)
	}
}
