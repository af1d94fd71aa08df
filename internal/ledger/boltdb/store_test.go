package boltdb

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	bolt "go.etcd.io/bbolt"

	"kakeibo/internal/core"
	"kakeibo/internal/ledger"
	"kakeibo/internal/ledger/ledgertest"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "kakeibo.bolt"), time.Second)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStoreContract(t *testing.T) {
	ledgertest.Run(t, func(t *testing.T) ledger.Store {
		return newTestStore(t)
	})
}

func TestReopenKeepsRowsAndUndoSlot(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "kakeibo.bolt")
	rows := ledgertest.Sample(4)

	s, err := Open(path, time.Second)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	ledgertest.Seed(t, s, rows)
	if err := s.DeleteAt(ctx, 2); err != nil {
		t.Fatalf("DeleteAt: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	s, err = Open(path, time.Second)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s.Close()
	ledgertest.RequireRows(t, s, ledger.Remove(rows, 2))
	if restored, err := s.UndoLastDelete(ctx); err != nil || !restored {
		t.Fatalf("UndoLastDelete = %v, %v", restored, err)
	}
	ledgertest.RequireRows(t, s, rows)
}

func TestAppendAfterUndoKeepsOrder(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	rows := ledgertest.Sample(4)
	ledgertest.Seed(t, s, rows[:3])
	if err := s.DeleteAt(ctx, 2); err != nil {
		t.Fatalf("DeleteAt: %v", err)
	}
	if _, err := s.UndoLastDelete(ctx); err != nil {
		t.Fatalf("UndoLastDelete: %v", err)
	}
	ledgertest.Seed(t, s, rows[3:])
	ledgertest.RequireRows(t, s, rows)
}

func TestSecondOpenTimesOut(t *testing.T) {
	s := newTestStore(t)
	_, err := Open(s.path, 50*time.Millisecond)
	if !errors.Is(err, core.ErrStorage) || !errors.Is(err, bolt.ErrTimeout) {
		t.Fatalf("second Open = %v, want storage timeout", err)
	}
}
