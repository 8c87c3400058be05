package speech

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// Narrator converts text to audible speech. Failures are non-fatal to the
// discussion; callers log and move on.
type Narrator interface {
	Speak(ctx context.Context, text string) error
}

// CommandNarrator shells out to a local text-to-speech binary, passing the
// utterance as the final argument (the `say` / `espeak-ng` convention).
type CommandNarrator struct {
	argv []string
}

func NewCommandNarrator(command string) (*CommandNarrator, error) {
	argv := strings.Fields(strings.TrimSpace(command))
	if len(argv) == 0 {
		return nil, fmt.Errorf("empty narrator command")
	}
	if _, err := exec.LookPath(argv[0]); err != nil {
		return nil, fmt.Errorf("narrator binary %q not found: %w", argv[0], err)
	}
	return &CommandNarrator{argv: argv}, nil
}

func (n *CommandNarrator) Speak(ctx context.Context, text string) error {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	args := append(append([]string(nil), n.argv[1:]...), text)
	cmd := exec.CommandContext(ctx, n.argv[0], args...)
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("narrator command %q: %w", n.argv[0], err)
	}
	return nil
}

// NopNarrator discards utterances; used when voice output is disabled.
type NopNarrator struct{}

func (NopNarrator) Speak(context.Context, string) error { return nil }

// NewNarrator picks a narrator for the configured mode. In auto mode it
// probes the common local TTS binaries and falls back to silence.
func NewNarrator(mode, command string) (Narrator, string, error) {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "command":
		n, err := NewCommandNarrator(command)
		if err != nil {
			return nil, "", err
		}
		return n, "command", nil
	case "mock":
		return NewRecorderNarrator(0), "mock", nil
	case "off":
		return NopNarrator{}, "off", nil
	case "auto", "":
		if strings.TrimSpace(command) != "" {
			if n, err := NewCommandNarrator(command); err == nil {
				return n, "command", nil
			}
		}
		for _, candidate := range []string{"say", "espeak-ng", "espeak"} {
			if n, err := NewCommandNarrator(candidate); err == nil {
				return n, candidate, nil
			}
		}
		return NopNarrator{}, "off", nil
	default:
		return nil, "", fmt.Errorf("invalid narrator mode: %q", mode)
	}
}
