package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"kakeibo/internal/amqp"
	"kakeibo/internal/core"
	ledgermem "kakeibo/internal/ledger/memory"
	sheetmem "kakeibo/internal/sheets/memory"
)

func seedRows() []core.Transaction {
	return []core.Transaction{
		{Date: core.NewDate(2024, 1, 5), Amount: 1200, Kind: core.Expense, Category: "food", Tag: "personal"},
		{Date: core.NewDate(2024, 1, 25), Amount: 250000, Kind: core.Income, Category: "salary"},
	}
}

func TestMirrorWritesSnapshot(t *testing.T) {
	ctx := context.Background()
	store := ledgermem.New(seedRows()...)
	mirror := sheetmem.New()
	w := NewMirrorWorker(store, mirror)

	wrote, err := w.Mirror(ctx)
	if err != nil {
		t.Fatalf("Mirror: %v", err)
	}
	if !wrote {
		t.Fatal("first Mirror should write")
	}
	got, _ := mirror.ReadAll(ctx)
	if len(got) != 2 || !got[0].Equal(seedRows()[0]) {
		t.Fatalf("mirror rows = %+v", got)
	}
}

func TestMirrorSkipsUnchangedTable(t *testing.T) {
	ctx := context.Background()
	store := ledgermem.New(seedRows()...)
	mirror := sheetmem.New()
	w := NewMirrorWorker(store, mirror)

	if _, err := w.Mirror(ctx); err != nil {
		t.Fatalf("Mirror: %v", err)
	}
	wrote, err := w.Mirror(ctx)
	if err != nil {
		t.Fatalf("Mirror: %v", err)
	}
	if wrote || mirror.Replaces() != 1 {
		t.Fatalf("unchanged table rewrote mirror: wrote=%v replaces=%d", wrote, mirror.Replaces())
	}

	if err := store.Append(ctx, core.Transaction{Date: core.NewDate(2024, 2, 1), Amount: 300, Kind: core.Expense}); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if wrote, _ := w.Mirror(ctx); !wrote {
		t.Fatal("changed table should be mirrored")
	}

	w.Invalidate()
	if wrote, _ := w.Mirror(ctx); !wrote {
		t.Fatal("Invalidate should force a write")
	}
	if mirror.Replaces() != 3 {
		t.Fatalf("replaces = %d, want 3", mirror.Replaces())
	}
}

func TestMirrorFailureIsRetried(t *testing.T) {
	ctx := context.Background()
	store := ledgermem.New(seedRows()...)
	mirror := sheetmem.New()
	w := NewMirrorWorker(store, mirror)

	boom := errors.New("quota exceeded")
	mirror.FailWith(boom)
	if _, err := w.Mirror(ctx); !errors.Is(err, boom) {
		t.Fatalf("Mirror error = %v, want %v", err, boom)
	}

	mirror.FailWith(nil)
	if wrote, err := w.Mirror(ctx); err != nil || !wrote {
		t.Fatalf("retry after failure: wrote=%v err=%v", wrote, err)
	}
}

func TestHandleChange(t *testing.T) {
	ctx := context.Background()
	store := ledgermem.New(seedRows()...)
	mirror := sheetmem.New()
	w := NewMirrorWorker(store, mirror)

	if err := w.HandleChange(ctx, amqp.NewLedgerChangeMessage(amqp.OpDelete, 2)); err != nil {
		t.Fatalf("HandleChange: %v", err)
	}
	if mirror.Replaces() != 1 {
		t.Fatalf("replaces = %d, want 1", mirror.Replaces())
	}

	mirror.FailWith(errors.New("down"))
	w.Invalidate()
	if err := w.HandleChange(ctx, amqp.NewLedgerChangeMessage(amqp.OpUndo, 2)); err == nil {
		t.Fatal("HandleChange should surface mirror failure so the message is requeued")
	}
}

type countingMirrorer struct {
	calls       chan struct{}
	invalidated atomic.Int32
}

func (c *countingMirrorer) Invalidate() { c.invalidated.Add(1) }

func (c *countingMirrorer) Mirror(context.Context) (bool, error) {
	select {
	case c.calls <- struct{}{}:
	default:
	}
	return true, nil
}

func TestReconcilerLifecycle(t *testing.T) {
	m := &countingMirrorer{calls: make(chan struct{}, 16)}
	r := NewReconciler(m, ReconcilerConfig{Interval: 10 * time.Millisecond})
	ctx := context.Background()

	if r.IsRunning() {
		t.Fatal("new reconciler should not be running")
	}
	if err := r.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := r.Start(ctx); err == nil {
		t.Fatal("second Start should fail")
	}

	for i := 0; i < 2; i++ {
		select {
		case <-m.calls:
		case <-time.After(2 * time.Second):
			t.Fatalf("reconcile %d did not happen", i)
		}
	}

	stopCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := r.Stop(stopCtx); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if r.IsRunning() {
		t.Fatal("reconciler still running after Stop")
	}
	if m.invalidated.Load() < 2 {
		t.Fatalf("invalidated %d times, want one per reconcile", m.invalidated.Load())
	}
	if err := r.Stop(stopCtx); err != nil {
		t.Fatalf("second Stop: %v", err)
	}
}

func TestNewReconcilerDefaultsInterval(t *testing.T) {
	r := NewReconciler(&countingMirrorer{}, ReconcilerConfig{})
	if r.config.Interval != DefaultReconcilerConfig().Interval {
		t.Fatalf("interval = %v", r.config.Interval)
	}
}

func TestReconcilerOverwritesSheetEdits(t *testing.T) {
	ctx := context.Background()
	store := ledgermem.New(seedRows()...)
	mirror := sheetmem.New()
	w := NewMirrorWorker(store, mirror)
	if _, err := w.Mirror(ctx); err != nil {
		t.Fatalf("Mirror: %v", err)
	}

	// someone edits the sheet by hand
	if err := mirror.ReplaceAll(ctx, nil); err != nil {
		t.Fatalf("ReplaceAll: %v", err)
	}

	r := NewReconciler(w, ReconcilerConfig{Interval: 10 * time.Millisecond})
	if err := r.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		_ = r.Stop(stopCtx)
	}()

	want := len(seedRows())
	deadline := time.Now().Add(2 * time.Second)
	for {
		rows, err := mirror.ReadAll(ctx)
		if err == nil && len(rows) == want {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("sheet has %d rows, want %d after resync", len(rows), want)
		}
		time.Sleep(5 * time.Millisecond)
	}
}
