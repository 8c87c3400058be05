package discussion

import (
	"context"
	"errors"
	"time"

	"github.com/antoniostano/roundtable/internal/persona"
)

var (
	// ErrNoBots aborts a run before the loop starts.
	ErrNoBots = errors.New("no personas configured")
	// ErrEmptyTopic aborts a run started without a topic.
	ErrEmptyTopic = errors.New("empty discussion topic")
	// ErrNotRunning is returned by control methods outside a run.
	ErrNotRunning = errors.New("discussion not running")
	// ErrControlBacklog is returned when control commands pile up faster
	// than the loop consumes them.
	ErrControlBacklog = errors.New("control channel full")
)

// Generator produces one reply for a persona from a context snapshot.
type Generator interface {
	Generate(ctx context.Context, p persona.Persona, systemPrompt, contextText string) (string, error)
}

// Listener observes the discussion as it unfolds. Callbacks run on the
// orchestrator goroutine and must not block.
type Listener interface {
	DiscussionStarted(sessionID, topic string, bots []persona.Persona)
	TurnStarted(speaker string)
	TurnAppended(turn Turn)
	DiscussionEnded(summary Summary)
}

// NopListener satisfies Listener and ignores everything.
type NopListener struct{}

func (NopListener) DiscussionStarted(string, string, []persona.Persona) {}
func (NopListener) TurnStarted(string)                                  {}
func (NopListener) TurnAppended(Turn)                                   {}
func (NopListener) DiscussionEnded(Summary)                             {}

// Listeners fans out to several listeners in order.
type Listeners []Listener

func (ls Listeners) DiscussionStarted(sessionID, topic string, bots []persona.Persona) {
	for _, l := range ls {
		l.DiscussionStarted(sessionID, topic, bots)
	}
}

func (ls Listeners) TurnStarted(speaker string) {
	for _, l := range ls {
		l.TurnStarted(speaker)
	}
}

func (ls Listeners) TurnAppended(turn Turn) {
	for _, l := range ls {
		l.TurnAppended(turn)
	}
}

func (ls Listeners) DiscussionEnded(summary Summary) {
	for _, l := range ls {
		l.DiscussionEnded(summary)
	}
}

// Run termination reasons.
const (
	ReasonInterrupted = "interrupted"
	ReasonMaxRounds   = "max_rounds"
)

// Summary describes a finished discussion.
type Summary struct {
	SessionID string        `json:"session_id"`
	Topic     string        `json:"topic"`
	Turns     int           `json:"turns"`
	Rounds    int           `json:"rounds"`
	Reason    string        `json:"reason"`
	Duration  time.Duration `json:"duration"`
}
