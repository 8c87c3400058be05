package session

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusIdle    Status = "idle"
	StatusRunning Status = "running"
	StatusPaused  Status = "paused"
	StatusStopped Status = "stopped"
)

// State is a point-in-time snapshot of the discussion session.
type State struct {
	ID             string    `json:"session_id"`
	Topic          string    `json:"topic"`
	Status         Status    `json:"status"`
	CurrentSpeaker string    `json:"current_speaker,omitempty"`
	SpeakerIndex   int       `json:"speaker_index"`
	Turns          int       `json:"turns"`
	Rounds         int       `json:"rounds"`
	StartedAt      time.Time `json:"started_at,omitempty"`
	LastTurnAt     time.Time `json:"last_turn_at,omitempty"`
}

// Tracker holds the live state of the single discussion this process runs.
// Snapshot returns copies, so observers never see a half-updated state.
type Tracker struct {
	mu    sync.RWMutex
	state State
}

func NewTracker() *Tracker {
	return &Tracker{state: State{Status: StatusIdle}}
}

// Begin assigns a fresh session ID, records the topic and returns the ID.
func (t *Tracker) Begin(topic string) string {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.state = State{
		ID:        uuid.NewString(),
		Topic:     topic,
		Status:    StatusRunning,
		StartedAt: time.Now().UTC(),
	}
	return t.state.ID
}

func (t *Tracker) SetStatus(status Status) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.state.Status = status
}

func (t *Tracker) SetTopic(topic string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.state.Topic = topic
}

func (t *Tracker) SetSpeaker(name string, index int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.state.CurrentSpeaker = name
	t.state.SpeakerIndex = index
}

func (t *Tracker) RecordTurn() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.state.Turns++
	t.state.LastTurnAt = time.Now().UTC()
}

func (t *Tracker) AdvanceRound() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.state.Rounds++
}

func (t *Tracker) End() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.state.Status = StatusStopped
	t.state.CurrentSpeaker = ""
}

func (t *Tracker) Snapshot() State {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.state
}
