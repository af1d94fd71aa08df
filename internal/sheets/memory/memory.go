package memory

import (
	"context"
	"sync"

	"kakeibo/internal/core"
	"kakeibo/internal/sheets"
)

// Mirror keeps the last replaced snapshot in memory. It stands in for the
// spreadsheet in tests and dry runs.
type Mirror struct {
	mu       sync.Mutex
	rows     []core.Transaction
	replaces int
	err      error
}

var (
	_ sheets.Mirror       = (*Mirror)(nil)
	_ sheets.MirrorReader = (*Mirror)(nil)
)

func New() *Mirror {
	return &Mirror{}
}

// FailWith makes subsequent ReplaceAll calls return err; nil clears it.
func (m *Mirror) FailWith(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

func (m *Mirror) ReplaceAll(_ context.Context, rows []core.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.rows = append([]core.Transaction(nil), rows...)
	m.replaces++
	return nil
}

func (m *Mirror) ReadAll(_ context.Context) ([]core.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]core.Transaction(nil), m.rows...), nil
}

// Replaces counts successful ReplaceAll calls.
func (m *Mirror) Replaces() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.replaces
}
