package speech

import (
	"context"
	"errors"
	"sync"
	"time"
)

// RecorderNarrator is an in-process narrator used in tests and mock mode.
// It records spoken texts in order and can simulate playback duration and
// failures.
type RecorderNarrator struct {
	mu     sync.Mutex
	spoken []string
	delay  time.Duration
	failOn map[string]struct{}
}

func NewRecorderNarrator(delay time.Duration) *RecorderNarrator {
	return &RecorderNarrator{delay: delay, failOn: make(map[string]struct{})}
}

// FailOn makes Speak return an error for an exact text.
func (n *RecorderNarrator) FailOn(text string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.failOn[text] = struct{}{}
}

func (n *RecorderNarrator) Speak(ctx context.Context, text string) error {
	if n.delay > 0 {
		timer := time.NewTimer(n.delay)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	if _, fail := n.failOn[text]; fail {
		return errors.New("simulated narration failure")
	}
	n.spoken = append(n.spoken, text)
	return nil
}

// Spoken returns a copy of the narrated texts in narration order.
func (n *RecorderNarrator) Spoken() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, len(n.spoken))
	copy(out, n.spoken)
	return out
}
