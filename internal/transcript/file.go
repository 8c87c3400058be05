package transcript

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

const timestampLayout = "2006-01-02 15:04:05"

// FileStore writes one plain-text session log per discussion under the
// configured directory, in the session_<yyyymmdd_hhmmss>.txt format.
type FileStore struct {
	dir string

	mu   sync.Mutex
	file *os.File
	path string
}

func NewFileStore(dir string) (*FileStore, error) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return nil, fmt.Errorf("empty log directory")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

// Path returns the session file path, empty before Begin.
func (s *FileStore) Path() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.path
}

func (s *FileStore) Begin(_ context.Context, _, topic string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.file != nil {
		return nil
	}

	now := time.Now()
	path := filepath.Join(s.dir, fmt.Sprintf("session_%s.txt", now.Format("20060102_150405")))
	file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open session log: %w", err)
	}

	header := fmt.Sprintf("%s\nSession Started: %s\nTopic: %s\n%s\n\n",
		strings.Repeat("=", 80), now.Format(timestampLayout), topic, strings.Repeat("=", 80))
	if _, err := file.WriteString(header); err != nil {
		file.Close()
		return fmt.Errorf("write session header: %w", err)
	}

	s.file = file
	s.path = path
	return nil
}

func (s *FileStore) Append(_ context.Context, record Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.file == nil {
		return fmt.Errorf("session log not started")
	}

	block := fmt.Sprintf("[%s] %s:\n%s\n%s\n\n",
		record.CreatedAt.Local().Format(timestampLayout), record.Speaker, record.Text, strings.Repeat("-", 40))
	if _, err := s.file.WriteString(block); err != nil {
		return fmt.Errorf("write transcript block: %w", err)
	}
	return nil
}

func (s *FileStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.file == nil {
		return nil
	}
	err := s.file.Close()
	s.file = nil
	return err
}
