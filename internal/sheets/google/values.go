package google

import (
	"fmt"
	"strconv"
	"strings"

	"kakeibo/internal/core"
	"kakeibo/internal/ledger"
)

// quoteSheetName wraps a tab title for use in A1 notation.
func quoteSheetName(name string) string {
	return "'" + strings.ReplaceAll(name, "'", "''") + "'"
}

func columnsRange(sheet string) string {
	return quoteSheetName(sheet) + "!A:F"
}

func anchorRange(sheet string) string {
	return quoteSheetName(sheet) + "!A1"
}

// buildValues lays out the header and rows for a values update. Amounts are
// numbers so the sheet can sum them.
func buildValues(labels ledger.Labels, rows []core.Transaction) [][]interface{} {
	out := make([][]interface{}, 0, len(rows)+1)
	header := make([]interface{}, ledger.Columns)
	for i, h := range labels.Header {
		header[i] = h
	}
	out = append(out, header)
	for _, r := range rows {
		out = append(out, []interface{}{
			r.Date.String(),
			r.Amount,
			labels.Kind(r.Kind),
			r.Category,
			r.Tag,
			r.Note,
		})
	}
	return out
}

func parseValues(values [][]interface{}) ([]core.Transaction, error) {
	out := make([]core.Transaction, 0, len(values))
	for i, raw := range values {
		rec := toStrings(raw, ledger.Columns)
		if i == 0 && ledger.IsHeader(rec) {
			continue
		}
		t, err := ledger.ParseRecord(rec)
		if err != nil {
			return nil, fmt.Errorf("sheet row %d: %w", i+1, err)
		}
		out = append(out, t)
	}
	return out, nil
}

// toStrings pads trailing empty cells, which the API omits.
func toStrings(in []interface{}, width int) []string {
	out := make([]string, width)
	for i := 0; i < len(in) && i < width; i++ {
		out[i] = cellString(in[i])
	}
	return out
}

// cellString renders an unformatted cell. Numbers decode as float64 and must
// not fall into exponent notation.
func cellString(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return fmt.Sprint(val)
	}
}
