// Package core provides the ledger domain types and yen amount handling.
//
// This file contains functions for parsing user-entered yen amounts and
// formatting them for display.
package core

import (
	"strconv"
	"strings"
	"unicode"
)

// ParseYen converts a user-entered amount to whole yen.
//
// It tolerates surrounding whitespace, a leading yen sign (¥ or ￥), a
// trailing 円 and comma thousands separators. Full-width digits are folded to
// ASCII. A fractional part is accepted only when it is all zeros, since yen
// has no minor unit. Zero is valid; negative values are not.
//
// Examples:
//
//	ParseYen("1000")    -> 1000, nil
//	ParseYen("¥1,280")  -> 1280, nil
//	ParseYen("3,000円") -> 3000, nil
//	ParseYen("12.50")   -> 0, error
func ParseYen(s string) (int64, error) {
	s = FoldWidth(strings.TrimSpace(s))
	s = strings.TrimPrefix(s, "¥")
	s = strings.TrimSuffix(s, "円")
	s = strings.TrimSpace(s)
	if s == "" || strings.HasPrefix(s, "-") || strings.HasPrefix(s, "+") {
		return 0, &ValidationError{Field: "amount", Err: ErrInvalidAmount}
	}
	s = strings.ReplaceAll(s, ",", "")

	intPart, frac, hasFrac := strings.Cut(s, ".")
	if hasFrac && strings.Trim(frac, "0") != "" {
		return 0, &ValidationError{Field: "amount", Err: ErrInvalidAmount}
	}
	if intPart == "" {
		return 0, &ValidationError{Field: "amount", Err: ErrInvalidAmount}
	}
	for _, r := range intPart {
		if !unicode.IsDigit(r) {
			return 0, &ValidationError{Field: "amount", Err: ErrInvalidAmount}
		}
	}
	v, err := strconv.ParseInt(intPart, 10, 64)
	if err != nil {
		return 0, &ValidationError{Field: "amount", Err: ErrInvalidAmount}
	}
	return v, nil
}

// FormatYen renders an amount with a yen sign and thousands separators.
func FormatYen(v int64) string {
	neg := v < 0
	if neg {
		v = -v
	}
	digits := strconv.FormatInt(v, 10)
	var b strings.Builder
	for i, r := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	if neg {
		return "-¥" + b.String()
	}
	return "¥" + b.String()
}

// FoldWidth maps full-width digits, comma, period and yen sign to ASCII forms.
func FoldWidth(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= '０' && r <= '９':
			return '0' + (r - '０')
		case r == '，':
			return ','
		case r == '．':
			return '.'
		case r == '￥':
			return '¥'
		}
		return r
	}, s)
}
