package core

import (
	"strings"
	"time"
)

const (
	Expense Kind = "expense"
	Income  Kind = "income"
)

// DateLayout is the on-disk and wire format for transaction dates.
const DateLayout = "2006-01-02"

type (
	// Kind classifies a transaction as money going out or coming in.
	Kind string

	Date struct {
		time.Time
	}

	// Transaction is one row of the ledger table.
	Transaction struct {
		Date     Date   `json:"date"`
		Amount   int64  `json:"amount"` // yen, no fractional part
		Kind     Kind   `json:"kind"`
		Category string `json:"category"`
		Tag      string `json:"tag"` // empty means untagged
		Note     string `json:"note"`
	}

	// Entry pairs a transaction with its zero-based position in the table
	// snapshot it was read from. Position is the identity used for deletes.
	Entry struct {
		Position int `json:"position"`
		Transaction
	}
)

// Valid reports whether k is one of the known kinds.
func (k Kind) Valid() bool {
	return k == Expense || k == Income
}

func (k Kind) String() string {
	return string(k)
}

// ParseKind accepts the canonical names, their English capitalised forms and
// the Japanese labels.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "expense", "支出":
		return Expense, nil
	case "income", "収入":
		return Income, nil
	}
	return "", &ValidationError{Field: "kind", Err: ErrInvalidKind}
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// Today returns the current calendar date in t's location, stripped to midnight UTC.
func Today(t time.Time) Date {
	return NewDate(t.Year(), int(t.Month()), t.Day())
}

// ParseDate parses an ISO YYYY-MM-DD date.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, &ValidationError{Field: "date", Err: ErrInvalidDate}
	}
	return Date{Time: t}, nil
}

func (d Date) Validate() error {
	if d.IsZero() {
		return &ValidationError{Field: "date", Err: ErrInvalidDate}
	}
	return nil
}

// String formats the date as YYYY-MM-DD.
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(DateLayout)
}

// MonthKey returns the YYYY-MM bucket the date falls in.
func (d Date) MonthKey() string {
	return d.Format("2006-01")
}

// Equal compares calendar days, ignoring location.
func (d Date) Equal(o Date) bool {
	return d.String() == o.String()
}

func (d Date) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Date) UnmarshalText(b []byte) error {
	parsed, err := ParseDate(string(b))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// MarshalJSON overrides the promoted time.Time encoding so dates travel as YYYY-MM-DD.
func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

func (d *Date) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		*d = Date{}
		return nil
	}
	return d.UnmarshalText([]byte(s))
}

// Validate checks the field constraints a store enforces on append.
func (t Transaction) Validate() error {
	if err := t.Date.Validate(); err != nil {
		return err
	}
	if t.Amount < 0 {
		return &ValidationError{Field: "amount", Err: ErrInvalidAmount}
	}
	if !t.Kind.Valid() {
		return &ValidationError{Field: "kind", Err: ErrInvalidKind}
	}
	return nil
}

// Untagged reports whether the transaction carries no tag.
func (t Transaction) Untagged() bool {
	return strings.TrimSpace(t.Tag) == ""
}

// Equal compares every field; dates are compared by calendar day.
func (t Transaction) Equal(o Transaction) bool {
	return t.Date.Equal(o.Date) &&
		t.Amount == o.Amount &&
		t.Kind == o.Kind &&
		t.Category == o.Category &&
		t.Tag == o.Tag &&
		t.Note == o.Note
}
