package transcript

import (
	"context"
	"sync"
)

// MemoryStore keeps records in-process; used in tests.
type MemoryStore struct {
	mu      sync.Mutex
	topic   string
	records []Record
	closed  bool
}

func NewMemoryStore() *MemoryStore { return &MemoryStore{} }

func (s *MemoryStore) Begin(_ context.Context, _, topic string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.topic = topic
	return nil
}

func (s *MemoryStore) Append(_ context.Context, record Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, record)
	return nil
}

func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *MemoryStore) Topic() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.topic
}

func (s *MemoryStore) Records() []Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Record, len(s.records))
	copy(out, s.records)
	return out
}

func (s *MemoryStore) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}
