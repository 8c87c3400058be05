package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/antoniostano/roundtable/internal/discussion"
	"github.com/antoniostano/roundtable/internal/persona"
)

// consolePrinter renders the discussion to the terminal as it unfolds. It
// runs on the orchestrator goroutine, so no locking is needed.
type consolePrinter struct {
	w             io.Writer
	thinkingSince time.Time
}

func newConsolePrinter(w io.Writer) *consolePrinter {
	return &consolePrinter{w: w}
}

func (p *consolePrinter) DiscussionStarted(_, topic string, bots []persona.Persona) {
	names := make([]string, 0, len(bots))
	for _, b := range bots {
		names = append(names, b.Name)
	}
	fmt.Fprintf(p.w, "%s\n", strings.Repeat("=", 60))
	fmt.Fprintf(p.w, "Round-table discussion: %s\n", topic)
	fmt.Fprintf(p.w, "Participants: %s\n", strings.Join(names, ", "))
	fmt.Fprintf(p.w, "%s\n", strings.Repeat("=", 60))
}

func (p *consolePrinter) TurnStarted(speaker string) {
	p.thinkingSince = time.Now()
	fmt.Fprintf(p.w, "\n%s is thinking...\n", speaker)
}

func (p *consolePrinter) TurnAppended(turn discussion.Turn) {
	if turn.Synthetic {
		fmt.Fprintf(p.w, "\n[%s] %s\n", turn.Speaker, turn.Text)
		return
	}
	elapsed := time.Since(p.thinkingSince).Round(100 * time.Millisecond)
	fmt.Fprintf(p.w, "%s (%s):\n%s\n", turn.Speaker, elapsed, turn.Text)
}

func (p *consolePrinter) DiscussionEnded(summary discussion.Summary) {
	fmt.Fprintf(p.w, "\n%s\n", strings.Repeat("=", 60))
	fmt.Fprintf(p.w, "Discussion ended (%s): %d turns over %d rounds in %s\n",
		summary.Reason, summary.Turns, summary.Rounds, summary.Duration.Round(time.Second))
	fmt.Fprintf(p.w, "%s\n", strings.Repeat("=", 60))
}
