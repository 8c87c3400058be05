package httpapi

import (
	"sync"

	"github.com/antoniostano/roundtable/internal/discussion"
	"github.com/antoniostano/roundtable/internal/persona"
)

// Event is one observer message, mirrored to every websocket subscriber.
type Event struct {
	Type      string              `json:"type"`
	SessionID string              `json:"session_id,omitempty"`
	Topic     string              `json:"topic,omitempty"`
	Speaker   string              `json:"speaker,omitempty"`
	Turn      *discussion.Turn    `json:"turn,omitempty"`
	Summary   *discussion.Summary `json:"summary,omitempty"`
}

const (
	eventDiscussionStarted = "discussion_started"
	eventTurnStarted       = "turn_started"
	eventTurn              = "turn"
	eventDiscussionEnded   = "discussion_ended"
)

// Hub receives discussion events on the orchestrator goroutine and fans them
// out to observers. It keeps its own copy of the turns, so HTTP reads never
// touch the orchestrator's log.
type Hub struct {
	mu    sync.Mutex
	turns []discussion.Turn
	subs  map[chan Event]struct{}
}

func NewHub() *Hub {
	return &Hub{subs: make(map[chan Event]struct{})}
}

func (h *Hub) DiscussionStarted(sessionID, topic string, _ []persona.Persona) {
	h.broadcast(Event{Type: eventDiscussionStarted, SessionID: sessionID, Topic: topic})
}

func (h *Hub) TurnStarted(speaker string) {
	h.broadcast(Event{Type: eventTurnStarted, Speaker: speaker})
}

func (h *Hub) TurnAppended(turn discussion.Turn) {
	h.mu.Lock()
	h.turns = append(h.turns, turn)
	h.mu.Unlock()
	h.broadcast(Event{Type: eventTurn, Speaker: turn.Speaker, Turn: &turn})
}

func (h *Hub) DiscussionEnded(summary discussion.Summary) {
	h.broadcast(Event{Type: eventDiscussionEnded, SessionID: summary.SessionID, Summary: &summary})
}

// Turns returns a copy of the transcript accumulated so far.
func (h *Hub) Turns() []discussion.Turn {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]discussion.Turn, len(h.turns))
	copy(out, h.turns)
	return out
}

// Subscribe registers a live event channel and returns it along with the
// transcript snapshot taken at the same instant, so a subscriber misses
// nothing between snapshot and stream.
func (h *Hub) Subscribe() (<-chan Event, []discussion.Turn, func()) {
	ch := make(chan Event, 64)
	h.mu.Lock()
	snapshot := make([]discussion.Turn, len(h.turns))
	copy(snapshot, h.turns)
	h.subs[ch] = struct{}{}
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		if _, ok := h.subs[ch]; ok {
			delete(h.subs, ch)
			close(ch)
		}
		h.mu.Unlock()
	}
	return ch, snapshot, cancel
}

// broadcast must never block the orchestrator: slow subscribers lose events.
func (h *Hub) broadcast(ev Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}
