// Package ledger defines the Record Store ports and helpers shared by every
// backend.
package ledger

import (
	"context"
	"io"

	"kakeibo/internal/core"
)

// Ports for the durable transaction table.
type (
	Initializer interface {
		// Initialize creates an empty table when none exists. It never alters
		// an existing table.
		Initialize(ctx context.Context) error
	}

	TransactionWriter interface {
		Append(ctx context.Context, t core.Transaction) error
	}

	TransactionLister interface {
		// ListAll returns every row in insertion order.
		ListAll(ctx context.Context) ([]core.Transaction, error)
	}

	TransactionDeleter interface {
		// DeleteAt removes the row at position after saving the whole table to
		// the backup slot.
		DeleteAt(ctx context.Context, position int) error
		// UndoLastDelete restores the backup slot. It reports false when there
		// is nothing to restore.
		UndoLastDelete(ctx context.Context) (bool, error)
		UndoAvailable(ctx context.Context) (bool, error)
	}

	Store interface {
		Initializer
		TransactionWriter
		TransactionLister
		TransactionDeleter
		io.Closer
	}
)

// Entries pairs each row with its position in rows.
func Entries(rows []core.Transaction) []core.Entry {
	out := make([]core.Entry, len(rows))
	for i, r := range rows {
		out[i] = core.Entry{Position: i, Transaction: r}
	}
	return out
}

// CheckPosition returns a NotFoundError when position is outside [0, length).
func CheckPosition(position, length int) error {
	if position < 0 || position >= length {
		return &core.NotFoundError{Position: position, Length: length}
	}
	return nil
}

// Remove returns a copy of rows without the element at position.
func Remove(rows []core.Transaction, position int) []core.Transaction {
	out := make([]core.Transaction, 0, len(rows)-1)
	out = append(out, rows[:position]...)
	return append(out, rows[position+1:]...)
}
