package http

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"kakeibo/internal/core"
)

func parserFor(t *testing.T, body string) *RequestBodyParser {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	return NewRequestBodyParser(httptest.NewRecorder(), req, 1024)
}

func TestRequestBodyParserTransaction(t *testing.T) {
	today := core.NewDate(2024, 5, 1)

	tests := []struct {
		name      string
		body      string
		want      core.Transaction
		wantField string
	}{
		{
			name: "json full",
			body: `{"date":"2024-04-02","amount":"3,000円","kind":"収入","category":"給与","tag":"bonus","note":"spring"}`,
			want: core.Transaction{Date: core.NewDate(2024, 4, 2), Amount: 3000, Kind: core.Income, Category: "給与", Tag: "bonus", Note: "spring"},
		},
		{
			name: "json number amount with defaults",
			body: `{"amount":450,"category":"食費"}`,
			want: core.Transaction{Date: today, Amount: 450, Kind: core.Expense, Category: "食費"},
		},
		{
			name: "form",
			body: "amount=%EF%BF%A5980&kind=expense&note=coffee",
			want: core.Transaction{Date: today, Amount: 980, Kind: core.Expense, Note: "coffee"},
		},
		{
			name: "zero amount allowed",
			body: `{"amount":"0"}`,
			want: core.Transaction{Date: today, Amount: 0, Kind: core.Expense},
		},
		{
			name: "json number beyond float precision",
			body: `{"amount":9007199254740993}`,
			want: core.Transaction{Date: today, Amount: 9007199254740993, Kind: core.Expense},
		},
		{name: "json exponent amount", body: `{"amount":1e3}`, wantField: "amount"},
		{name: "missing amount", body: `{"category":"食費"}`, wantField: "amount"},
		{name: "bad kind", body: `{"amount":"1","kind":"gift"}`, wantField: "kind"},
		{name: "bad date", body: `{"amount":"1","date":"01/02/2024"}`, wantField: "date"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := parserFor(t, tt.body)
			if err := p.Parse(); err != nil {
				t.Fatalf("Parse: %v", err)
			}
			got, err := p.Transaction(today)
			if tt.wantField != "" {
				var ve *core.ValidationError
				if !errors.As(err, &ve) || ve.Field != tt.wantField {
					t.Fatalf("err = %v, want validation error on %s", err, tt.wantField)
				}
				return
			}
			if err != nil {
				t.Fatalf("Transaction: %v", err)
			}
			if !got.Equal(tt.want) {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestRequestBodyParserParse(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		wantJSON bool
		wantErr  bool
	}{
		{name: "empty", body: ""},
		{name: "json", body: ` {"a":"b"}`, wantJSON: true},
		{name: "form", body: "a=b"},
		{name: "array", body: "[]", wantErr: true},
		{name: "broken json", body: "{", wantErr: true},
		{name: "trailing data", body: `{"a":"b"} {"c":1}`, wantErr: true},
		{name: "broken form", body: "a=%zz", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := parserFor(t, tt.body)
			err := p.Parse()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Parse err = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				var re *requestError
				if !errors.As(err, &re) {
					t.Errorf("err %T is not a request error", err)
				}
				return
			}
			if isJSON := p.jsonData != nil; isJSON != tt.wantJSON {
				t.Errorf("decoded as JSON = %v, want %v", isJSON, tt.wantJSON)
			}
			if again := p.Parse(); again != nil {
				t.Errorf("second Parse = %v", again)
			}
		})
	}
}

func TestSanitizeInput(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"  plain  ", "plain"},
		{"a\x00b\x1fc", "abc"},
		{"line1\nline2\tx", "line1\nline2\tx"},
		{"del\x7f", "del"},
		{"ラーメン", "ラーメン"},
	}
	for _, tt := range tests {
		if got := sanitizeInput(tt.in); got != tt.want {
			t.Errorf("sanitizeInput(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestParseBudgetParams(t *testing.T) {
	defaults := BudgetParams{Tag: "プライベート", Limit: 50000}

	tests := []struct {
		name    string
		query   string
		want    BudgetParams
		wantErr bool
	}{
		{name: "defaults", query: "", want: defaults},
		{name: "override both", query: "budget_tag=%E6%97%85&budget_limit=2000", want: BudgetParams{Tag: "旅", Limit: 2000}},
		{name: "explicit empty tag", query: "budget_tag=", want: BudgetParams{Tag: "", Limit: 50000}},
		{name: "zero limit", query: "budget_limit=0", wantErr: true},
		{name: "negative limit", query: "budget_limit=-1", wantErr: true},
		{name: "not a number", query: "budget_limit=lots", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := url.ParseQuery(tt.query)
			if err != nil {
				t.Fatal(err)
			}
			got, err := ParseBudgetParams(q, defaults)
			if tt.wantErr {
				if !errors.Is(err, core.ErrValidation) {
					t.Fatalf("err = %v, want validation error", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestParsePosition(t *testing.T) {
	if pos, err := parsePosition(" 3 "); err != nil || pos != 3 {
		t.Errorf("parsePosition(3) = %d, %v", pos, err)
	}
	if _, err := parsePosition("x"); err == nil {
		t.Error("expected error for non-integer position")
	}
}
