// Package worker keeps the Google Sheets mirror in step with the ledger.
package worker

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"kakeibo/internal/amqp"
	"kakeibo/internal/core"
	"kakeibo/internal/ledger"
	"kakeibo/internal/sheets"
)

// MirrorWorker rewrites the mirror from a fresh table snapshot. Change
// messages only signal that the table moved; the snapshot is authoritative.
type MirrorWorker struct {
	lister ledger.TransactionLister
	mirror sheets.Mirror

	mu       sync.Mutex
	lastSeen [sha256.Size]byte
	synced   bool
}

func NewMirrorWorker(lister ledger.TransactionLister, mirror sheets.Mirror) *MirrorWorker {
	return &MirrorWorker{lister: lister, mirror: mirror}
}

// HandleChange processes a single ledger change message from AMQP.
func (w *MirrorWorker) HandleChange(ctx context.Context, msg *amqp.LedgerChangeMessage) error {
	slog.InfoContext(ctx, "Processing ledger change",
		"message_id", msg.ID,
		"operation", msg.Operation,
		"rows", msg.Rows)

	if _, err := w.Mirror(ctx); err != nil {
		return fmt.Errorf("mirror after %s: %w", msg.Operation, err)
	}
	return nil
}

// Mirror pushes the current table to the sheet unless it matches what was
// last written. It reports whether a write happened.
func (w *MirrorWorker) Mirror(ctx context.Context) (bool, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	rows, err := w.lister.ListAll(ctx)
	if err != nil {
		return false, fmt.Errorf("list ledger: %w", err)
	}

	sum, err := fingerprint(rows)
	if err != nil {
		return false, err
	}
	if w.synced && sum == w.lastSeen {
		slog.DebugContext(ctx, "Mirror already up to date", "rows", len(rows))
		return false, nil
	}

	if err := w.mirror.ReplaceAll(ctx, rows); err != nil {
		return false, fmt.Errorf("replace mirror: %w", err)
	}
	w.lastSeen = sum
	w.synced = true
	return true, nil
}

// Invalidate forces the next Mirror call to write.
func (w *MirrorWorker) Invalidate() {
	w.mu.Lock()
	w.synced = false
	w.mu.Unlock()
}

func fingerprint(rows []core.Transaction) ([sha256.Size]byte, error) {
	data, err := json.Marshal(rows)
	if err != nil {
		return [sha256.Size]byte{}, fmt.Errorf("fingerprint rows: %w", err)
	}
	return sha256.Sum256(data), nil
}
