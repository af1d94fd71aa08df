package http

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"kakeibo/internal/core"
)

// RequestBodyParser reads a JSON object or a form-encoded body once and
// exposes its fields as strings.
type RequestBodyParser struct {
	body     []byte
	jsonData map[string]interface{}
	formData url.Values
	parsed   bool
	err      error
}

// NewRequestBodyParser reads at most limit bytes of the request body.
func NewRequestBodyParser(w http.ResponseWriter, r *http.Request, limit int64) *RequestBodyParser {
	p := &RequestBodyParser{}
	p.body, p.err = io.ReadAll(http.MaxBytesReader(w, r.Body, limit))
	return p
}

// Parse decodes the body as JSON when it looks like an object, else as a form.
func (p *RequestBodyParser) Parse() error {
	if p.parsed {
		return p.err
	}
	p.parsed = true

	if p.err != nil {
		return p.err
	}

	trimmed := strings.TrimSpace(string(p.body))
	if trimmed == "" {
		p.formData = url.Values{}
		return nil
	}

	if trimmed[0] == '{' {
		// Numbers stay json.Number so large amounts keep every digit.
		dec := json.NewDecoder(bytes.NewReader(p.body))
		dec.UseNumber()
		p.jsonData = make(map[string]interface{})
		if err := dec.Decode(&p.jsonData); err != nil {
			p.err = badRequest("malformed JSON body: " + err.Error())
			return p.err
		}
		if _, err := dec.Token(); err != io.EOF {
			p.err = badRequest("unexpected data after JSON object")
		}
		return p.err
	}
	if trimmed[0] == '[' {
		p.err = badRequest("request body must be a JSON object")
		return p.err
	}

	p.formData, p.err = url.ParseQuery(trimmed)
	if p.err != nil {
		p.err = badRequest("malformed form body: " + p.err.Error())
	}
	return p.err
}

// Get returns a field with control characters (other than line breaks and
// tabs) removed and surrounding whitespace trimmed.
func (p *RequestBodyParser) Get(key string) string {
	if p.jsonData != nil {
		if val, ok := p.jsonData[key]; ok {
			return sanitizeInput(stringValue(val))
		}
		return ""
	}
	if p.formData != nil {
		return sanitizeInput(p.formData.Get(key))
	}
	return ""
}

// Transaction builds the transaction the body describes. A missing date means
// today and a missing kind means expense.
func (p *RequestBodyParser) Transaction(today core.Date) (core.Transaction, error) {
	t := core.Transaction{
		Date:     today,
		Kind:     core.Expense,
		Category: p.Get("category"),
		Tag:      p.Get("tag"),
		Note:     p.Get("note"),
	}

	if v := p.Get("date"); v != "" {
		d, err := core.ParseDate(v)
		if err != nil {
			return core.Transaction{}, err
		}
		t.Date = d
	}

	amount, err := core.ParseYen(p.Get("amount"))
	if err != nil {
		return core.Transaction{}, err
	}
	t.Amount = amount

	if v := p.Get("kind"); v != "" {
		k, err := core.ParseKind(v)
		if err != nil {
			return core.Transaction{}, err
		}
		t.Kind = k
	}
	return t, t.Validate()
}

// stringValue converts a decoded JSON value to its text form.
func stringValue(v interface{}) string {
	switch val := v.(type) {
	case string:
		return val
	case json.Number:
		return val.String()
	case bool:
		return strconv.FormatBool(val)
	default:
		return ""
	}
}

// sanitizeInput removes control characters except tab, LF and CR and trims
// surrounding whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		if r == 127 {
			return -1
		}
		return r
	}, s)
}

// BudgetParams selects the tag filter and limit of a budget query.
type BudgetParams struct {
	Tag   string
	Limit int64
}

// ParseBudgetParams reads budget_tag and budget_limit from the query,
// falling back to defaults. An explicitly empty budget_tag selects every
// expense.
func ParseBudgetParams(query url.Values, defaults BudgetParams) (BudgetParams, error) {
	p := defaults
	if query.Has("budget_tag") {
		p.Tag = strings.TrimSpace(query.Get("budget_tag"))
	}
	if v := strings.TrimSpace(query.Get("budget_limit")); v != "" {
		limit, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return BudgetParams{}, &core.ValidationError{Field: "limit", Err: core.ErrInvalidLimit}
		}
		p.Limit = limit
	}
	if p.Limit <= 0 {
		return BudgetParams{}, &core.ValidationError{Field: "limit", Err: core.ErrInvalidLimit}
	}
	return p, nil
}

// parsePosition reads a zero-based table position from a path segment.
func parsePosition(s string) (int, error) {
	pos, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, badRequest("position must be an integer")
	}
	return pos, nil
}
