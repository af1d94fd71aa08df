// Package ingest proposes a ledger row from a photographed receipt.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"kakeibo/internal/core"
)

// Fixed fields of an OCR candidate.
const (
	CandidateCategory = "uncategorized"
	CandidateTag      = "OCR"
	CandidateNote     = "auto-entered"
)

// ErrNoAmount is returned when the receipt text contains no usable amount.
var ErrNoAmount = errors.New("no amount found in receipt text")

// Assistant builds candidate transactions. It never writes to a store.
type Assistant struct {
	extractor TextExtractor
	now       func() time.Time
}

func NewAssistant(extractor TextExtractor) *Assistant {
	return &Assistant{extractor: extractor, now: time.Now}
}

// Suggest extracts text from img and returns an expense dated today for the
// amount found.
func (a *Assistant) Suggest(ctx context.Context, img []byte) (core.Transaction, error) {
	text, err := a.extractor.ExtractText(ctx, img)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("extract text: %w", err)
	}

	amount, ok := ExtractAmount(text)
	if !ok {
		slog.DebugContext(ctx, "No amount in receipt text", "chars", len(text))
		return core.Transaction{}, &core.ValidationError{Field: "amount", Err: ErrNoAmount}
	}
	return Candidate(amount, core.Today(a.now())), nil
}

// Candidate is the unsaved row proposed for a detected amount.
func Candidate(amount int64, date core.Date) core.Transaction {
	return core.Transaction{
		Date:     date,
		Amount:   amount,
		Kind:     core.Expense,
		Category: CandidateCategory,
		Tag:      CandidateTag,
		Note:     CandidateNote,
	}
}
