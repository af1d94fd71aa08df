package sheets

import (
	"context"

	"kakeibo/internal/core"
)

// Ports for outbound spreadsheet adapters.
type (
	// Mirror holds a full copy of the ledger table.
	Mirror interface {
		// ReplaceAll overwrites the mirror with a header and one row per
		// transaction, in table order.
		ReplaceAll(ctx context.Context, rows []core.Transaction) error
	}

	// MirrorReader reads rows back from a mirror.
	MirrorReader interface {
		ReadAll(ctx context.Context) ([]core.Transaction, error)
	}
)
