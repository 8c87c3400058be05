package transcript

import (
	"context"
	"time"
)

// Record is one persisted utterance.
type Record struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id"`
	Speaker   string    `json:"speaker"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

// Store persists the discussion transcript. Appends arrive strictly in
// conversation order; implementations must preserve it.
type Store interface {
	Begin(ctx context.Context, sessionID, topic string) error
	Append(ctx context.Context, record Record) error
	Close() error
}
