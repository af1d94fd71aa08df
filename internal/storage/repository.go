// Package storage implements the ledger on SQLite.
//
// Row order is the AUTOINCREMENT id, so positions are ranks by id. The undo
// slot lives in transactions_backup plus a single-row undo_slot marker, and
// every delete or undo runs inside one immediate-mode transaction.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"kakeibo/internal/core"
	"kakeibo/internal/ledger"

	_ "modernc.org/sqlite"
)

type SQLiteRepository struct {
	db      *sql.DB
	path    string
	queries *Queries
}

var _ ledger.Store = (*SQLiteRepository)(nil)

// DSN builds the connection string used for the ledger database.
func DSN(dbPath string) string {
	q := url.Values{}
	q.Add("_pragma", "busy_timeout(5000)")
	q.Add("_pragma", "journal_mode(WAL)")
	q.Add("_pragma", "foreign_keys(1)")
	q.Set("_txlock", "immediate")
	return dbPath + "?" + q.Encode()
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", DSN(dbPath))
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	version, dirty, err := SchemaVersion(dbPath)
	if err != nil {
		db.Close()
		return nil, err
	}
	if dirty {
		db.Close()
		return nil, fmt.Errorf("schema version %d is dirty; fix the failed migration first", version)
	}
	slog.Info("SQLite schema ready", "file", dbPath, "schema_version", version)

	return &SQLiteRepository{
		db:      db,
		path:    dbPath,
		queries: New(db),
	}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Initialize applies pending migrations; an up-to-date schema is left alone.
func (r *SQLiteRepository) Initialize(_ context.Context) error {
	return r.wrap("initialize", RunMigrations(r.path))
}

func (r *SQLiteRepository) Append(ctx context.Context, t core.Transaction) error {
	if err := t.Validate(); err != nil {
		return err
	}
	id, err := r.queries.InsertTransaction(ctx, InsertTransactionParams{
		Date:     t.Date.String(),
		Amount:   t.Amount,
		Kind:     string(t.Kind),
		Category: t.Category,
		Tag:      t.Tag,
		Note:     t.Note,
	})
	if err != nil {
		return r.wrap("insert transaction", err)
	}

	slog.DebugContext(ctx, "Transaction saved to SQLite",
		"id", id,
		"amount_yen", t.Amount,
		"kind", string(t.Kind))
	return nil
}

func (r *SQLiteRepository) ListAll(ctx context.Context) ([]core.Transaction, error) {
	rows, err := r.queries.ListTransactions(ctx)
	if err != nil {
		return nil, r.wrap("list transactions", err)
	}
	out := make([]core.Transaction, 0, len(rows))
	for _, row := range rows {
		t, err := toCore(row)
		if err != nil {
			return nil, r.wrap("decode transaction", fmt.Errorf("id %d: %v", row.ID, err))
		}
		out = append(out, t)
	}
	return out, nil
}

func (r *SQLiteRepository) DeleteAt(ctx context.Context, position int) error {
	return r.inTx(ctx, "delete transaction", func(q *Queries) error {
		count, err := q.CountTransactions(ctx)
		if err != nil {
			return err
		}
		if err := ledger.CheckPosition(position, int(count)); err != nil {
			return err
		}
		id, err := q.TransactionIDAt(ctx, int64(position))
		if err != nil {
			return fmt.Errorf("locate position %d: %w", position, err)
		}
		if err := q.ClearBackup(ctx); err != nil {
			return err
		}
		if err := q.CopyToBackup(ctx); err != nil {
			return err
		}
		if err := q.SetUndoSlot(ctx, time.Now().UTC().Format(time.RFC3339), count); err != nil {
			return err
		}
		return q.DeleteTransaction(ctx, id)
	})
}

func (r *SQLiteRepository) UndoLastDelete(ctx context.Context) (bool, error) {
	var restored bool
	err := r.inTx(ctx, "undo delete", func(q *Queries) error {
		if _, err := q.GetUndoSlot(ctx); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil
			}
			return err
		}
		if err := q.ClearTransactions(ctx); err != nil {
			return err
		}
		if err := q.RestoreFromBackup(ctx); err != nil {
			return err
		}
		if err := q.ClearBackup(ctx); err != nil {
			return err
		}
		if err := q.ClearUndoSlot(ctx); err != nil {
			return err
		}
		restored = true
		return nil
	})
	return restored, err
}

func (r *SQLiteRepository) UndoAvailable(ctx context.Context) (bool, error) {
	_, err := r.queries.GetUndoSlot(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, r.wrap("read undo slot", err)
	}
	return true, nil
}

func (r *SQLiteRepository) inTx(ctx context.Context, op string, fn func(q *Queries) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return r.wrap("begin transaction", err)
	}
	defer tx.Rollback()

	if err := fn(r.queries.WithTx(tx)); err != nil {
		return r.wrap(op, err)
	}
	if err := tx.Commit(); err != nil {
		return r.wrap("commit", err)
	}
	return nil
}

func (r *SQLiteRepository) wrap(op string, err error) error {
	return core.NewStorageError(op, r.path, err)
}

func toCore(row Transaction) (core.Transaction, error) {
	date, err := core.ParseDate(row.Date)
	if err != nil {
		return core.Transaction{}, err
	}
	kind, err := core.ParseKind(row.Kind)
	if err != nil {
		return core.Transaction{}, err
	}
	return core.Transaction{
		Date:     date,
		Amount:   row.Amount,
		Kind:     kind,
		Category: row.Category,
		Tag:      row.Tag,
		Note:     row.Note,
	}, nil
}
