// Package csvfile stores the ledger as a CSV document with a sibling backup
// document holding the single undo slot.
//
// Every write replaces the whole document atomically. Mutations are
// serialised across processes with an advisory lock on "<path>.lock";
// readers take no lock and retry once when the document is momentarily
// missing or unreadable.
package csvfile

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/renameio/v2"

	"kakeibo/internal/core"
	"kakeibo/internal/ledger"
)

const (
	defaultRetryDelay = 50 * time.Millisecond
	defaultLockPoll   = 25 * time.Millisecond
	filePerm          = 0o644
)

// Store is a ledger.Store backed by two CSV files.
type Store struct {
	path       string
	backupPath string
	labels     ledger.Labels
	retryDelay time.Duration
	lockPoll   time.Duration

	mu   sync.Mutex // flock is not safe for concurrent use within one process
	lock *flock.Flock

	writeFile func(path string, data []byte, perm os.FileMode) error
}

var _ ledger.Store = (*Store)(nil)

type Option func(*Store)

// WithLabels selects the header and kind words used for new documents.
func WithLabels(l ledger.Labels) Option {
	return func(s *Store) { s.labels = l }
}

// WithRetryDelay sets how long a reader waits before its single retry.
func WithRetryDelay(d time.Duration) Option {
	return func(s *Store) { s.retryDelay = d }
}

func New(path, backupPath string, opts ...Option) *Store {
	s := &Store{
		path:       path,
		backupPath: backupPath,
		labels:     ledger.LabelsJA,
		retryDelay: defaultRetryDelay,
		lockPoll:   defaultLockPoll,
		lock:       flock.New(path + ".lock"),
		writeFile: func(path string, data []byte, perm os.FileMode) error {
			return renameio.WriteFile(path, data, perm)
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Path returns the table document path.
func (s *Store) Path() string { return s.path }

// Initialize writes a header-only document when the table file is absent.
func (s *Store) Initialize(ctx context.Context) error {
	for _, p := range []string{s.path, s.backupPath} {
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			return core.NewStorageError("initialize", p, err)
		}
	}
	return s.withLock(ctx, func() error {
		_, err := os.Stat(s.path)
		if err == nil {
			return nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return core.NewStorageError("initialize", s.path, err)
		}
		slog.InfoContext(ctx, "Creating ledger file", "file", s.path)
		return s.write(s.path, nil)
	})
}

func (s *Store) Append(ctx context.Context, t core.Transaction) error {
	if err := t.Validate(); err != nil {
		return err
	}
	return s.withLock(ctx, func() error {
		rows, err := s.readTable()
		if err != nil {
			return err
		}
		return s.write(s.path, append(rows, t))
	})
}

// ListAll reads the table without locking. A missing or unreadable document
// is retried once; a table that is still missing reads as empty.
func (s *Store) ListAll(ctx context.Context) ([]core.Transaction, error) {
	rows, err := s.readFile(s.path)
	if err == nil {
		return rows, nil
	}
	slog.DebugContext(ctx, "Retrying ledger read", "file", s.path, "error", err)
	select {
	case <-ctx.Done():
		return nil, core.NewStorageError("list", s.path, ctx.Err())
	case <-time.After(s.retryDelay):
	}
	return s.readTable()
}

// DeleteAt saves the current table to the backup document before rewriting
// the table, so a table missing the row always has a backup next to it. If
// the table rewrite fails the previous backup is put back.
func (s *Store) DeleteAt(ctx context.Context, position int) error {
	return s.withLock(ctx, func() error {
		rows, err := s.readTable()
		if err != nil {
			return err
		}
		if err := ledger.CheckPosition(position, len(rows)); err != nil {
			return err
		}
		prev, prevErr := os.ReadFile(s.backupPath)
		if prevErr != nil && !errors.Is(prevErr, fs.ErrNotExist) {
			return core.NewStorageError("read", s.backupPath, prevErr)
		}
		if err := s.write(s.backupPath, rows); err != nil {
			return err
		}
		if err := s.write(s.path, ledger.Remove(rows, position)); err != nil {
			s.restoreBackup(prev, prevErr == nil)
			return err
		}
		return nil
	})
}

// restoreBackup returns the backup document to its state before a failed
// delete: the old bytes, or no file at all.
func (s *Store) restoreBackup(prev []byte, existed bool) {
	var err error
	if existed {
		err = s.writeFile(s.backupPath, prev, filePerm)
	} else {
		err = os.Remove(s.backupPath)
	}
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Error("Failed to restore ledger backup", "file", s.backupPath, "error", err)
	}
}

// UndoLastDelete restores the table before dropping the backup, so an
// interrupted undo can simply be repeated.
func (s *Store) UndoLastDelete(ctx context.Context) (bool, error) {
	var restored bool
	err := s.withLock(ctx, func() error {
		rows, err := s.readFile(s.backupPath)
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		if err != nil {
			return err
		}
		if err := s.write(s.path, rows); err != nil {
			return err
		}
		if err := os.Remove(s.backupPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return core.NewStorageError("remove backup", s.backupPath, err)
		}
		restored = true
		return nil
	})
	return restored, err
}

func (s *Store) UndoAvailable(_ context.Context) (bool, error) {
	_, err := os.Stat(s.backupPath)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, core.NewStorageError("stat backup", s.backupPath, err)
}

func (s *Store) Close() error { return nil }

func (s *Store) withLock(ctx context.Context, fn func() error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	locked, err := s.lock.TryLockContext(ctx, s.lockPoll)
	if err != nil {
		return core.NewStorageError("lock", s.lock.Path(), err)
	}
	if !locked {
		return core.NewStorageError("lock", s.lock.Path(), errors.New("lock not acquired"))
	}
	defer func() {
		if err := s.lock.Unlock(); err != nil {
			slog.Warn("Failed to release ledger lock", "file", s.lock.Path(), "error", err)
		}
	}()
	return fn()
}

// readTable treats a missing table as empty so a mutation on a fresh path
// still succeeds.
func (s *Store) readTable() ([]core.Transaction, error) {
	rows, err := s.readFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return []core.Transaction{}, nil
	}
	return rows, err
}

func (s *Store) readFile(path string) ([]core.Transaction, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
		return nil, core.NewStorageError("read", path, err)
	}
	rows, err := decode(data)
	if err != nil {
		return nil, core.NewStorageError("decode", path, err)
	}
	return rows, nil
}

func (s *Store) write(path string, rows []core.Transaction) error {
	data, err := encode(s.labels, rows)
	if err != nil {
		return core.NewStorageError("encode", path, err)
	}
	if err := s.writeFile(path, data, filePerm); err != nil {
		return core.NewStorageError("write", path, fmt.Errorf("atomic replace: %w", err))
	}
	return nil
}
