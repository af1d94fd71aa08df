package google

import (
	"testing"

	"kakeibo/internal/core"
	"kakeibo/internal/ledger"
)

func TestQuoteSheetName(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Ledger", "'Ledger'"},
		{"家計簿 2024", "'家計簿 2024'"},
		{"Bob's", "'Bob''s'"},
	}
	for _, tt := range tests {
		if got := quoteSheetName(tt.in); got != tt.want {
			t.Errorf("quoteSheetName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
	if got := columnsRange("Ledger"); got != "'Ledger'!A:F" {
		t.Errorf("columnsRange = %q", got)
	}
}

func TestBuildValues(t *testing.T) {
	rows := []core.Transaction{
		{Date: core.NewDate(2024, 2, 1), Amount: 800, Kind: core.Expense, Category: "transport"},
	}
	got := buildValues(ledger.LabelsEN, rows)
	if len(got) != 2 {
		t.Fatalf("got %d rows, want 2", len(got))
	}
	if got[0][0] != "Date" {
		t.Errorf("header[0] = %v", got[0][0])
	}
	row := got[1]
	if row[0] != "2024-02-01" || row[1] != int64(800) || row[2] != "Expense" || row[3] != "transport" {
		t.Errorf("row = %v", row)
	}
}

func TestParseValuesPadsShortRows(t *testing.T) {
	values := [][]interface{}{
		{"日付", "金額", "種別", "カテゴリ", "タグ", "メモ"},
		{"2024-01-05", "1200", "支出", "food"},
	}
	got, err := parseValues(values)
	if err != nil {
		t.Fatalf("parseValues: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d rows", len(got))
	}
	if got[0].Tag != "" || got[0].Note != "" || got[0].Amount != 1200 {
		t.Errorf("row = %+v", got[0])
	}
}

func TestParseValuesRejectsBadRow(t *testing.T) {
	values := [][]interface{}{
		{"2024-01-05", "abc", "支出", "food", "", ""},
	}
	if _, err := parseValues(values); err == nil {
		t.Fatal("expected error for bad amount")
	}
}

func TestParseValuesLargeUnformattedAmounts(t *testing.T) {
	values := [][]interface{}{
		{"2024-01-25", float64(1250000), "収入", "給与", nil, ""},
		{"2024-01-26", float64(1000000), "支出", "家賃"},
		{"2024-01-27", float64(3500), "支出", "食費"},
	}
	got, err := parseValues(values)
	if err != nil {
		t.Fatalf("parseValues: %v", err)
	}
	want := []int64{1250000, 1000000, 3500}
	for i, w := range want {
		if got[i].Amount != w {
			t.Errorf("row %d amount = %d, want %d", i, got[i].Amount, w)
		}
	}
	if got[0].Tag != "" {
		t.Errorf("nil cell tag = %q, want empty", got[0].Tag)
	}
}

func TestCellString(t *testing.T) {
	tests := []struct {
		in   interface{}
		want string
	}{
		{nil, ""},
		{"text", "text"},
		{float64(1e6), "1000000"},
		{float64(12345678901), "12345678901"},
		{true, "true"},
		{int64(42), "42"},
	}
	for _, tt := range tests {
		if got := cellString(tt.in); got != tt.want {
			t.Errorf("cellString(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
