package memory

import (
	"context"
	"sync"

	"kakeibo/internal/core"
	"kakeibo/internal/ledger"
)

// Store keeps the table and its backup slot in process memory.
type Store struct {
	mu     sync.Mutex
	items  []core.Transaction
	backup []core.Transaction // nil when the slot is empty
}

var _ ledger.Store = (*Store)(nil)

func New(seed ...core.Transaction) *Store {
	return &Store{items: append([]core.Transaction(nil), seed...)}
}

func (s *Store) Initialize(_ context.Context) error { return nil }

// Append validates and stores the transaction at the end of the table.
func (s *Store) Append(_ context.Context, t core.Transaction) error {
	if err := t.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = append(s.items, t)
	return nil
}

func (s *Store) ListAll(_ context.Context) ([]core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.Transaction(nil), s.items...), nil
}

func (s *Store) DeleteAt(_ context.Context, position int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := ledger.CheckPosition(position, len(s.items)); err != nil {
		return err
	}
	s.backup = append(make([]core.Transaction, 0, len(s.items)), s.items...)
	s.items = ledger.Remove(s.items, position)
	return nil
}

func (s *Store) UndoLastDelete(_ context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.backup == nil {
		return false, nil
	}
	s.items = s.backup
	s.backup = nil
	return true, nil
}

func (s *Store) UndoAvailable(_ context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.backup != nil, nil
}

func (s *Store) Close() error { return nil }
