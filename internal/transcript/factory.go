package transcript

import (
	"context"
	"strings"
)

// NopStore discards everything; used when disk logging and the archive are
// both disabled.
type NopStore struct{}

func (NopStore) Begin(context.Context, string, string) error { return nil }
func (NopStore) Append(context.Context, Record) error        { return nil }
func (NopStore) Close() error                                { return nil }

// MultiStore fans out to several stores in order, so the disk log and the
// database archive see the same records in the same order.
type MultiStore struct {
	stores []Store
}

func NewMultiStore(stores ...Store) *MultiStore {
	return &MultiStore{stores: stores}
}

func (m *MultiStore) Begin(ctx context.Context, sessionID, topic string) error {
	for _, s := range m.stores {
		if err := s.Begin(ctx, sessionID, topic); err != nil {
			return err
		}
	}
	return nil
}

func (m *MultiStore) Append(ctx context.Context, record Record) error {
	for _, s := range m.stores {
		if err := s.Append(ctx, record); err != nil {
			return err
		}
	}
	return nil
}

func (m *MultiStore) Close() error {
	var firstErr error
	for _, s := range m.stores {
		if err := s.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// NewStore assembles the transcript persistence for the given settings:
// a session file when logDir is set, plus a PostgreSQL archive when
// databaseURL is set. The archive pointer is returned separately so the
// observer API can query it.
func NewStore(ctx context.Context, logDir, databaseURL string) (Store, *PostgresStore, error) {
	var stores []Store

	if strings.TrimSpace(logDir) != "" {
		fileStore, err := NewFileStore(logDir)
		if err != nil {
			return nil, nil, err
		}
		stores = append(stores, fileStore)
	}

	var archive *PostgresStore
	if strings.TrimSpace(databaseURL) != "" {
		pg, err := NewPostgresStore(ctx, databaseURL)
		if err != nil {
			return nil, nil, err
		}
		archive = pg
		stores = append(stores, pg)
	}

	switch len(stores) {
	case 0:
		return NopStore{}, nil, nil
	case 1:
		return stores[0], archive, nil
	default:
		return NewMultiStore(stores...), archive, nil
	}
}
