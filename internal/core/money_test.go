package core

import (
	"errors"
	"testing"
)

func TestParseYen(t *testing.T) {
	cases := []struct {
		in  string
		out int64
		ok  bool
	}{
		{"1", 1, true},
		{"0", 0, true},
		{"1000", 1000, true},
		{"1,280", 1280, true},
		{"¥1,280", 1280, true},
		{"￥500", 500, true},
		{"3,000円", 3000, true},
		{"１２３", 123, true},
		{" 2500 ", 2500, true},
		{"1000.00", 1000, true},
		{"12.50", 0, false},
		{"-1", 0, false},
		{"+5", 0, false},
		{"abc", 0, false},
		{"", 0, false},
		{"¥", 0, false},
		{".5", 0, false},
	}
	for _, tc := range cases {
		got, err := ParseYen(tc.in)
		if tc.ok {
			if err != nil || got != tc.out {
				t.Fatalf("%q expected %d, got %d (err=%v)", tc.in, tc.out, got, err)
			}
		} else {
			if err == nil {
				t.Fatalf("%q expected error", tc.in)
			}
			if !errors.Is(err, ErrValidation) || !errors.Is(err, ErrInvalidAmount) {
				t.Fatalf("%q expected validation error, got %v", tc.in, err)
			}
		}
	}
}

func TestFormatYen(t *testing.T) {
	cases := map[int64]string{
		0:       "¥0",
		999:     "¥999",
		1000:    "¥1,000",
		50000:   "¥50,000",
		1234567: "¥1,234,567",
		-1500:   "-¥1,500",
	}
	for in, want := range cases {
		if got := FormatYen(in); got != want {
			t.Fatalf("FormatYen(%d) = %q, want %q", in, got, want)
		}
	}
}

func TestFoldWidth(t *testing.T) {
	cases := map[string]string{
		"￥１，２８０":  "¥1,280",
		"１２．５":    "12.5",
		"合計 ¥980": "合計 ¥980",
		"":        "",
	}
	for in, want := range cases {
		if got := FoldWidth(in); got != want {
			t.Errorf("FoldWidth(%q) = %q, want %q", in, got, want)
		}
	}
}
