package storage

import (
	"context"
)

type Transaction struct {
	ID       int64
	Date     string
	Amount   int64
	Kind     string
	Category string
	Tag      string
	Note     string
}

type UndoSlot struct {
	TakenAt  string
	RowCount int64
}

const insertTransaction = `
INSERT INTO transactions (date, amount, kind, category, tag, note)
VALUES (?, ?, ?, ?, ?, ?)
RETURNING id
`

type InsertTransactionParams struct {
	Date     string
	Amount   int64
	Kind     string
	Category string
	Tag      string
	Note     string
}

func (q *Queries) InsertTransaction(ctx context.Context, arg InsertTransactionParams) (int64, error) {
	row := q.db.QueryRowContext(ctx, insertTransaction,
		arg.Date,
		arg.Amount,
		arg.Kind,
		arg.Category,
		arg.Tag,
		arg.Note,
	)
	var id int64
	err := row.Scan(&id)
	return id, err
}

const listTransactions = `
SELECT id, date, amount, kind, category, tag, note
FROM transactions
ORDER BY id
`

func (q *Queries) ListTransactions(ctx context.Context) ([]Transaction, error) {
	rows, err := q.db.QueryContext(ctx, listTransactions)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []Transaction{}
	for rows.Next() {
		var i Transaction
		if err := rows.Scan(
			&i.ID,
			&i.Date,
			&i.Amount,
			&i.Kind,
			&i.Category,
			&i.Tag,
			&i.Note,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const countTransactions = `SELECT COUNT(*) FROM transactions`

func (q *Queries) CountTransactions(ctx context.Context) (int64, error) {
	row := q.db.QueryRowContext(ctx, countTransactions)
	var count int64
	err := row.Scan(&count)
	return count, err
}

const transactionIDAt = `
SELECT id FROM transactions
ORDER BY id
LIMIT 1 OFFSET ?
`

func (q *Queries) TransactionIDAt(ctx context.Context, position int64) (int64, error) {
	row := q.db.QueryRowContext(ctx, transactionIDAt, position)
	var id int64
	err := row.Scan(&id)
	return id, err
}

const deleteTransaction = `DELETE FROM transactions WHERE id = ?`

func (q *Queries) DeleteTransaction(ctx context.Context, id int64) error {
	_, err := q.db.ExecContext(ctx, deleteTransaction, id)
	return err
}

const clearBackup = `DELETE FROM transactions_backup`

func (q *Queries) ClearBackup(ctx context.Context) error {
	_, err := q.db.ExecContext(ctx, clearBackup)
	return err
}

const copyToBackup = `
INSERT INTO transactions_backup (id, date, amount, kind, category, tag, note)
SELECT id, date, amount, kind, category, tag, note FROM transactions
`

func (q *Queries) CopyToBackup(ctx context.Context) error {
	_, err := q.db.ExecContext(ctx, copyToBackup)
	return err
}

const clearTransactions = `DELETE FROM transactions`

func (q *Queries) ClearTransactions(ctx context.Context) error {
	_, err := q.db.ExecContext(ctx, clearTransactions)
	return err
}

const restoreFromBackup = `
INSERT INTO transactions (id, date, amount, kind, category, tag, note)
SELECT id, date, amount, kind, category, tag, note FROM transactions_backup
ORDER BY id
`

func (q *Queries) RestoreFromBackup(ctx context.Context) error {
	_, err := q.db.ExecContext(ctx, restoreFromBackup)
	return err
}

const setUndoSlot = `
INSERT INTO undo_slot (slot, taken_at, row_count) VALUES (1, ?, ?)
ON CONFLICT(slot) DO UPDATE SET taken_at = excluded.taken_at, row_count = excluded.row_count
`

func (q *Queries) SetUndoSlot(ctx context.Context, takenAt string, rowCount int64) error {
	_, err := q.db.ExecContext(ctx, setUndoSlot, takenAt, rowCount)
	return err
}

const getUndoSlot = `SELECT taken_at, row_count FROM undo_slot WHERE slot = 1`

func (q *Queries) GetUndoSlot(ctx context.Context) (UndoSlot, error) {
	row := q.db.QueryRowContext(ctx, getUndoSlot)
	var i UndoSlot
	err := row.Scan(&i.TakenAt, &i.RowCount)
	return i, err
}

const clearUndoSlot = `DELETE FROM undo_slot`

func (q *Queries) ClearUndoSlot(ctx context.Context) error {
	_, err := q.db.ExecContext(ctx, clearUndoSlot)
	return err
}
