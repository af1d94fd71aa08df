// Package ledgertest holds the behaviour every ledger.Store backend must share.
package ledgertest

import (
	"context"
	"errors"
	"testing"

	"kakeibo/internal/core"
	"kakeibo/internal/ledger"
)

// Factory returns a fresh, initialized store. Cleanup is registered on t.
type Factory func(t *testing.T) ledger.Store

// Sample returns n distinct valid transactions.
func Sample(n int) []core.Transaction {
	tags := []string{"personal", "", "仕事"}
	out := make([]core.Transaction, n)
	for i := range out {
		kind := core.Expense
		if i%3 == 1 {
			kind = core.Income
		}
		out[i] = core.Transaction{
			Date:     core.NewDate(2024, 1+i%12, 1+i%28),
			Amount:   int64(100 * (i + 1)),
			Kind:     kind,
			Category: "食費",
			Tag:      tags[i%len(tags)],
			Note:     "row",
		}
	}
	return out
}

// Seed appends rows to s, failing the test on the first error.
func Seed(t *testing.T, s ledger.Store, rows []core.Transaction) {
	t.Helper()
	for _, r := range rows {
		if err := s.Append(context.Background(), r); err != nil {
			t.Fatalf("Append(%+v): %v", r, err)
		}
	}
}

// RequireRows fails unless s lists exactly want.
func RequireRows(t *testing.T, s ledger.Store, want []core.Transaction) {
	t.Helper()
	got, err := s.ListAll(context.Background())
	if err != nil {
		t.Fatalf("ListAll: %v", err)
	}
	if len(got) != len(want) {
		t.Fatalf("got %d rows, want %d: %+v", len(got), len(want), got)
	}
	for i := range want {
		if !got[i].Equal(want[i]) {
			t.Fatalf("row %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func requireUndo(t *testing.T, s ledger.Store, want bool) {
	t.Helper()
	got, err := s.UndoAvailable(context.Background())
	if err != nil {
		t.Fatalf("UndoAvailable: %v", err)
	}
	if got != want {
		t.Fatalf("UndoAvailable = %v, want %v", got, want)
	}
}

// Run exercises the shared store contract against newStore.
func Run(t *testing.T, newStore Factory) {
	ctx := context.Background()

	t.Run("EmptyAfterInitialize", func(t *testing.T) {
		s := newStore(t)
		RequireRows(t, s, nil)
		requireUndo(t, s, false)
	})

	t.Run("AppendRoundTrip", func(t *testing.T) {
		s := newStore(t)
		rows := Sample(4)
		for i, r := range rows {
			if err := s.Append(ctx, r); err != nil {
				t.Fatalf("Append: %v", err)
			}
			RequireRows(t, s, rows[:i+1])
		}
	})

	t.Run("AppendKeepsDuplicates", func(t *testing.T) {
		s := newStore(t)
		row := Sample(1)[0]
		Seed(t, s, []core.Transaction{row, row})
		RequireRows(t, s, []core.Transaction{row, row})
	})

	t.Run("AppendPreservesText", func(t *testing.T) {
		s := newStore(t)
		row := core.Transaction{
			Date:     core.NewDate(2024, 12, 31),
			Amount:   0,
			Kind:     core.Income,
			Category: "給与, 賞与",
			Tag:      `"quoted" tag`,
			Note:     "line one\nline two",
		}
		Seed(t, s, []core.Transaction{row})
		RequireRows(t, s, []core.Transaction{row})
	})

	t.Run("AppendRejectsInvalid", func(t *testing.T) {
		s := newStore(t)
		valid := Sample(1)[0]
		Seed(t, s, []core.Transaction{valid})

		bad := []core.Transaction{
			{Date: core.NewDate(2024, 1, 1), Amount: -1, Kind: core.Expense},
			{Date: core.NewDate(2024, 1, 1), Amount: 1, Kind: "transfer"},
			{Amount: 1, Kind: core.Expense},
		}
		for _, b := range bad {
			err := s.Append(ctx, b)
			if !errors.Is(err, core.ErrValidation) {
				t.Fatalf("Append(%+v) = %v, want validation error", b, err)
			}
		}
		RequireRows(t, s, []core.Transaction{valid})
	})

	t.Run("DeleteUndoInverse", func(t *testing.T) {
		rows := Sample(5)
		for p := range rows {
			s := newStore(t)
			Seed(t, s, rows)
			if err := s.DeleteAt(ctx, p); err != nil {
				t.Fatalf("DeleteAt(%d): %v", p, err)
			}
			RequireRows(t, s, ledger.Remove(rows, p))
			requireUndo(t, s, true)

			restored, err := s.UndoLastDelete(ctx)
			if err != nil || !restored {
				t.Fatalf("UndoLastDelete = %v, %v", restored, err)
			}
			RequireRows(t, s, rows)
			requireUndo(t, s, false)
		}
	})

	t.Run("DeleteIdenticalRows", func(t *testing.T) {
		s := newStore(t)
		a := Sample(1)[0]
		b := a
		b.Note = "other"
		Seed(t, s, []core.Transaction{a, b, a})
		if err := s.DeleteAt(ctx, 2); err != nil {
			t.Fatalf("DeleteAt: %v", err)
		}
		RequireRows(t, s, []core.Transaction{a, b})
	})

	t.Run("SingleLevelUndo", func(t *testing.T) {
		s := newStore(t)
		rows := Sample(4)
		Seed(t, s, rows)

		if err := s.DeleteAt(ctx, 0); err != nil {
			t.Fatalf("first DeleteAt: %v", err)
		}
		afterFirst := ledger.Remove(rows, 0)
		if err := s.DeleteAt(ctx, 1); err != nil {
			t.Fatalf("second DeleteAt: %v", err)
		}
		restored, err := s.UndoLastDelete(ctx)
		if err != nil || !restored {
			t.Fatalf("UndoLastDelete = %v, %v", restored, err)
		}
		RequireRows(t, s, afterFirst)

		restored, err = s.UndoLastDelete(ctx)
		if err != nil {
			t.Fatalf("second UndoLastDelete: %v", err)
		}
		if restored {
			t.Fatalf("second undo must report nothing to restore")
		}
		RequireRows(t, s, afterFirst)
	})

	t.Run("UndoWithoutBackup", func(t *testing.T) {
		s := newStore(t)
		rows := Sample(2)
		Seed(t, s, rows)
		restored, err := s.UndoLastDelete(ctx)
		if err != nil || restored {
			t.Fatalf("UndoLastDelete = %v, %v; want false, nil", restored, err)
		}
		RequireRows(t, s, rows)
	})

	t.Run("UndoAfterAppendRestoresSnapshot", func(t *testing.T) {
		s := newStore(t)
		rows := Sample(3)
		Seed(t, s, rows)
		if err := s.DeleteAt(ctx, 1); err != nil {
			t.Fatalf("DeleteAt: %v", err)
		}
		Seed(t, s, Sample(5)[4:])
		if _, err := s.UndoLastDelete(ctx); err != nil {
			t.Fatalf("UndoLastDelete: %v", err)
		}
		RequireRows(t, s, rows)
	})

	t.Run("OutOfRangeDelete", func(t *testing.T) {
		s := newStore(t)
		rows := Sample(3)
		Seed(t, s, rows)
		for _, p := range []int{-1, 3, 100} {
			err := s.DeleteAt(ctx, p)
			if !errors.Is(err, core.ErrNotFound) {
				t.Fatalf("DeleteAt(%d) = %v, want not found", p, err)
			}
			var nf *core.NotFoundError
			if !errors.As(err, &nf) || nf.Position != p || nf.Length != 3 {
				t.Fatalf("DeleteAt(%d) error detail = %+v", p, nf)
			}
		}
		RequireRows(t, s, rows)
		requireUndo(t, s, false)
	})

	t.Run("DeleteOnEmptyTable", func(t *testing.T) {
		s := newStore(t)
		if err := s.DeleteAt(ctx, 0); !errors.Is(err, core.ErrNotFound) {
			t.Fatalf("DeleteAt on empty table = %v", err)
		}
	})

	t.Run("InitializeIsIdempotent", func(t *testing.T) {
		s := newStore(t)
		rows := Sample(3)
		Seed(t, s, rows)
		for i := 0; i < 3; i++ {
			if err := s.Initialize(ctx); err != nil {
				t.Fatalf("Initialize: %v", err)
			}
		}
		RequireRows(t, s, rows)
	})

	t.Run("ListAllReturnsCopy", func(t *testing.T) {
		s := newStore(t)
		rows := Sample(2)
		Seed(t, s, rows)
		got, err := s.ListAll(ctx)
		if err != nil {
			t.Fatalf("ListAll: %v", err)
		}
		got[0].Amount = 999999
		RequireRows(t, s, rows)
	})
}
