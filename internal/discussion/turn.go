package discussion

import (
	"fmt"
	"strings"
	"time"
)

// Moderator is the speaker name used for synthetic announcements: the
// opening topic and mid-session topic updates.
const Moderator = "Moderator"

// NoHistory is the context sentinel handed to the first speaker.
const NoHistory = "No previous conversation."

// Turn is one produced utterance. Immutable once appended.
type Turn struct {
	ID        string    `json:"id"`
	Speaker   string    `json:"speaker"`
	Text      string    `json:"text"`
	Synthetic bool      `json:"synthetic,omitempty"`
	Failed    bool      `json:"failed,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Log is the append-only conversation history. The orchestrator is its only
// writer and only reader, so it carries no locking; observers get turns via
// the Listener callbacks instead of reading the log directly.
type Log struct {
	turns []Turn
}

func NewLog() *Log { return &Log{} }

func (l *Log) Append(t Turn) {
	l.turns = append(l.turns, t)
}

func (l *Log) Len() int { return len(l.turns) }

// Turns returns a copy of the full history in append order.
func (l *Log) Turns() []Turn {
	out := make([]Turn, len(l.turns))
	copy(out, l.turns)
	return out
}

// ContextWindow formats the last k turns as "Speaker: text" lines, the
// prompt history for the next generation. Empty history yields NoHistory.
func (l *Log) ContextWindow(k int) string {
	if len(l.turns) == 0 {
		return NoHistory
	}
	if k <= 0 || k > len(l.turns) {
		k = len(l.turns)
	}
	tail := l.turns[len(l.turns)-k:]
	lines := make([]string, 0, len(tail))
	for _, t := range tail {
		lines = append(lines, fmt.Sprintf("%s: %s", t.Speaker, t.Text))
	}
	return strings.Join(lines, "\n")
}
