// Package aggregate derives summaries from a ledger table snapshot.
//
// Every function is a pure function of its input slice: none of them retain,
// reorder or mutate the rows they are given.
package aggregate

import (
	"sort"
	"strings"

	"kakeibo/internal/core"
)

// UntaggedBucket is the tag under which expenses without a tag are grouped.
const UntaggedBucket = "untagged"

type (
	// Totals holds the summed amount per kind.
	Totals struct {
		Expense int64 `json:"expense"`
		Income  int64 `json:"income"`
	}

	// TagTotal is the summed expense amount for one tag.
	TagTotal struct {
		Tag    string `json:"tag"`
		Amount int64  `json:"amount"`
	}

	// BudgetStatus describes spending against a limit for a tag filter.
	BudgetStatus struct {
		TagFilter string  `json:"tag_filter"`
		Spent     int64   `json:"spent"`
		Limit     int64   `json:"limit"`
		Remaining int64   `json:"remaining"`
		Ratio     float64 `json:"ratio"`
	}

	// MonthBucket holds per-kind sums for one calendar month (YYYY-MM).
	// Kinds with no rows in the month are absent from Totals.
	MonthBucket struct {
		Month  string              `json:"month"`
		Totals map[core.Kind]int64 `json:"totals"`
	}

	// Summary bundles every derived view of a single snapshot.
	Summary struct {
		Totals        Totals        `json:"totals"`
		Balance       int64         `json:"balance"`
		Tags          []TagTotal    `json:"tags"`
		Budget        BudgetStatus  `json:"budget"`
		Monthly       []MonthBucket `json:"monthly"`
		RowCount      int           `json:"row_count"`
		AvailableTags []string      `json:"available_tags"`
	}
)

// Balance is income minus expense.
func (t Totals) Balance() int64 {
	return t.Income - t.Expense
}

// TotalsByKind sums amounts grouped by kind. A kind with no rows yields 0.
func TotalsByKind(rows []core.Transaction) Totals {
	var out Totals
	for _, r := range rows {
		switch r.Kind {
		case core.Expense:
			out.Expense += r.Amount
		case core.Income:
			out.Income += r.Amount
		}
	}
	return out
}

// TagExpenseTotals sums expense amounts per tag, ascending by tag name.
// Rows with a blank tag are grouped under UntaggedBucket, which is listed
// last. The bucket name is reserved: a row literally tagged UntaggedBucket
// is counted in the bucket, so every tag appears at most once.
func TagExpenseTotals(rows []core.Transaction) []TagTotal {
	sums := map[string]int64{}
	var untagged int64
	var hasUntagged bool
	for _, r := range rows {
		if r.Kind != core.Expense {
			continue
		}
		if r.Untagged() || strings.TrimSpace(r.Tag) == UntaggedBucket {
			untagged += r.Amount
			hasUntagged = true
			continue
		}
		sums[r.Tag] += r.Amount
	}

	out := make([]TagTotal, 0, len(sums)+1)
	for tag, amount := range sums {
		out = append(out, TagTotal{Tag: tag, Amount: amount})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Tag < out[j].Tag })
	if hasUntagged {
		out = append(out, TagTotal{Tag: UntaggedBucket, Amount: untagged})
	}
	return out
}

// BudgetProgress returns min(spent/limit, 1) where spent sums expense rows
// whose tag contains tagFilter as a substring.
func BudgetProgress(rows []core.Transaction, tagFilter string, limit int64) (float64, error) {
	status, err := Budget(rows, tagFilter, limit)
	if err != nil {
		return 0, err
	}
	return status.Ratio, nil
}

// Budget reports spending, remaining allowance and progress ratio for the
// expense rows whose tag contains tagFilter.
func Budget(rows []core.Transaction, tagFilter string, limit int64) (BudgetStatus, error) {
	if limit <= 0 {
		return BudgetStatus{}, &core.ValidationError{Field: "limit", Err: core.ErrInvalidLimit}
	}
	var spent int64
	for _, r := range rows {
		if r.Kind == core.Expense && strings.Contains(r.Tag, tagFilter) {
			spent += r.Amount
		}
	}
	ratio := float64(spent) / float64(limit)
	if ratio > 1 {
		ratio = 1
	}
	remaining := limit - spent
	if remaining < 0 {
		remaining = 0
	}
	return BudgetStatus{
		TagFilter: tagFilter,
		Spent:     spent,
		Limit:     limit,
		Remaining: remaining,
		Ratio:     ratio,
	}, nil
}

// MonthlyPivot buckets rows by calendar month and sums amounts per kind.
// Buckets are ascending by month; months without rows are absent.
func MonthlyPivot(rows []core.Transaction) []MonthBucket {
	byMonth := map[string]map[core.Kind]int64{}
	for _, r := range rows {
		key := r.Date.MonthKey()
		totals, ok := byMonth[key]
		if !ok {
			totals = map[core.Kind]int64{}
			byMonth[key] = totals
		}
		totals[r.Kind] += r.Amount
	}

	out := make([]MonthBucket, 0, len(byMonth))
	for month, totals := range byMonth {
		out = append(out, MonthBucket{Month: month, Totals: totals})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Month < out[j].Month })
	return out
}

// FilterByTag returns the rows whose tag equals tag exactly.
func FilterByTag(rows []core.Transaction, tag string) []core.Transaction {
	out := make([]core.Transaction, 0)
	for _, r := range rows {
		if r.Tag == tag {
			out = append(out, r)
		}
	}
	return out
}

// FilterEntriesByTag is FilterByTag for positioned entries; positions are kept.
func FilterEntriesByTag(entries []core.Entry, tag string) []core.Entry {
	out := make([]core.Entry, 0)
	for _, e := range entries {
		if e.Tag == tag {
			out = append(out, e)
		}
	}
	return out
}

// DistinctTags lists each non-blank tag once, in first-seen order.
func DistinctTags(rows []core.Transaction) []string {
	seen := map[string]struct{}{}
	out := make([]string, 0)
	for _, r := range rows {
		if r.Untagged() {
			continue
		}
		if _, ok := seen[r.Tag]; ok {
			continue
		}
		seen[r.Tag] = struct{}{}
		out = append(out, r.Tag)
	}
	return out
}

// NewestFirst returns a reversed copy of entries.
func NewestFirst(entries []core.Entry) []core.Entry {
	out := make([]core.Entry, len(entries))
	for i, e := range entries {
		out[len(entries)-1-i] = e
	}
	return out
}

// Summarize computes every view for one snapshot.
func Summarize(rows []core.Transaction, budgetTag string, budgetLimit int64) (Summary, error) {
	budget, err := Budget(rows, budgetTag, budgetLimit)
	if err != nil {
		return Summary{}, err
	}
	totals := TotalsByKind(rows)
	return Summary{
		Totals:        totals,
		Balance:       totals.Balance(),
		Tags:          TagExpenseTotals(rows),
		Budget:        budget,
		Monthly:       MonthlyPivot(rows),
		RowCount:      len(rows),
		AvailableTags: DistinctTags(rows),
	}, nil
}
