package ledger

import (
	"fmt"
	"strconv"
	"strings"

	"kakeibo/internal/core"
)

// Columns is the number of fields in a tabular ledger row.
const Columns = 6

// Labels are the header and kind words used when a ledger is rendered as a
// table (CSV documents, the sheet mirror).
type Labels struct {
	Header  [Columns]string
	Expense string
	Income  string
}

var (
	// LabelsJA matches ledgers created by earlier versions of the tool.
	LabelsJA = Labels{
		Header:  [Columns]string{"日付", "金額", "種別", "カテゴリ", "タグ", "メモ"},
		Expense: "支出",
		Income:  "収入",
	}
	LabelsEN = Labels{
		Header:  [Columns]string{"Date", "Amount", "Kind", "Category", "Tag", "Note"},
		Expense: "Expense",
		Income:  "Income",
	}
)

// LabelsFor returns the label set for a locale; anything but "en" is Japanese.
func LabelsFor(locale string) Labels {
	if strings.EqualFold(strings.TrimSpace(locale), "en") {
		return LabelsEN
	}
	return LabelsJA
}

// Kind returns the label for k.
func (l Labels) Kind(k core.Kind) string {
	if k == core.Income {
		return l.Income
	}
	return l.Expense
}

// Record renders t as one row of cells in column order.
func (l Labels) Record(t core.Transaction) []string {
	return []string{
		t.Date.String(),
		strconv.FormatInt(t.Amount, 10),
		l.Kind(t.Kind),
		t.Category,
		t.Tag,
		t.Note,
	}
}

// IsHeader reports whether record is a header row in any known label set.
func IsHeader(record []string) bool {
	if len(record) != Columns {
		return false
	}
	first := strings.TrimSpace(record[0])
	for _, l := range []Labels{LabelsJA, LabelsEN} {
		if strings.EqualFold(first, l.Header[0]) {
			return true
		}
	}
	return false
}

// ParseRecord is the inverse of Labels.Record and accepts either label set.
func ParseRecord(rec []string) (core.Transaction, error) {
	if len(rec) != Columns {
		return core.Transaction{}, fmt.Errorf("expected %d fields, got %d", Columns, len(rec))
	}
	date, err := core.ParseDate(rec[0])
	if err != nil {
		return core.Transaction{}, err
	}
	amount, err := core.ParseYen(rec[1])
	if err != nil {
		return core.Transaction{}, err
	}
	kind, err := core.ParseKind(rec[2])
	if err != nil {
		return core.Transaction{}, err
	}
	return core.Transaction{
		Date:     date,
		Amount:   amount,
		Kind:     kind,
		Category: rec[3],
		Tag:      rec[4],
		Note:     rec[5],
	}, nil
}
