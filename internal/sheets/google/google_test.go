package google

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"kakeibo/internal/core"
	"kakeibo/internal/ledger"

	"google.golang.org/api/option"
)

type recordedCall struct {
	Method string
	Path   string
	Query  string
	Body   string
}

type fakeSheets struct {
	mu     sync.Mutex
	calls  []recordedCall
	values [][]interface{}
	titles []string
}

func (f *fakeSheets) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, recordedCall{Method: r.Method, Path: r.URL.Path, Query: r.URL.RawQuery, Body: string(body)})

	w.Header().Set("Content-Type", "application/json")
	switch {
	case strings.HasSuffix(r.URL.Path, ":clear"):
		f.values = nil
		_, _ = io.WriteString(w, `{}`)
	case strings.HasSuffix(r.URL.Path, ":batchUpdate"):
		_, _ = io.WriteString(w, `{}`)
	case strings.Contains(r.URL.Path, "/values/") && r.Method == http.MethodPut:
		var vr struct {
			Values [][]interface{} `json:"values"`
		}
		_ = json.Unmarshal(body, &vr)
		f.values = vr.Values
		_, _ = io.WriteString(w, `{}`)
	case strings.Contains(r.URL.Path, "/values/") && r.Method == http.MethodGet:
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"values": f.values})
	default:
		sheets := make([]map[string]interface{}, 0, len(f.titles))
		for _, title := range f.titles {
			sheets = append(sheets, map[string]interface{}{"properties": map[string]string{"title": title}})
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"sheets": sheets})
	}
}

func newTestClient(t *testing.T, fake *fakeSheets) *Client {
	t.Helper()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	c, err := New(context.Background(), Options{
		SpreadsheetID: "sheet-id",
		SheetName:     "Ledger",
		ClientOptions: []option.ClientOption{
			option.WithEndpoint(srv.URL + "/"),
			option.WithoutAuthentication(),
			option.WithHTTPClient(srv.Client()),
		},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

func sampleRows() []core.Transaction {
	return []core.Transaction{
		{Date: core.NewDate(2024, 1, 5), Amount: 1200, Kind: core.Expense, Category: "food", Tag: "personal", Note: "lunch"},
		{Date: core.NewDate(2024, 1, 25), Amount: 250000, Kind: core.Income, Category: "salary"},
	}
}

func TestNewRequiresSpreadsheetID(t *testing.T) {
	if _, err := New(context.Background(), Options{CredentialsJSON: "{}"}); err == nil {
		t.Fatal("expected error for missing spreadsheet id")
	}
}

func TestNewRequiresCredentials(t *testing.T) {
	if _, err := New(context.Background(), Options{SpreadsheetID: "x"}); err == nil {
		t.Fatal("expected error for missing credentials")
	}
}

func TestReplaceAllClearsThenWrites(t *testing.T) {
	fake := &fakeSheets{}
	c := newTestClient(t, fake)

	if err := c.ReplaceAll(context.Background(), sampleRows()); err != nil {
		t.Fatalf("ReplaceAll: %v", err)
	}

	if len(fake.calls) != 2 {
		t.Fatalf("got %d calls, want 2: %+v", len(fake.calls), fake.calls)
	}
	if !strings.HasSuffix(fake.calls[0].Path, ":clear") {
		t.Errorf("first call = %s %s, want clear", fake.calls[0].Method, fake.calls[0].Path)
	}
	if fake.calls[1].Method != http.MethodPut {
		t.Errorf("second call method = %s, want PUT", fake.calls[1].Method)
	}
	if !strings.Contains(fake.calls[1].Query, "valueInputOption=RAW") {
		t.Errorf("update query = %q, want valueInputOption=RAW", fake.calls[1].Query)
	}
	if len(fake.values) != 3 {
		t.Fatalf("wrote %d rows, want header plus 2", len(fake.values))
	}
	if got := fake.values[0][0]; got != ledger.LabelsJA.Header[0] {
		t.Errorf("header[0] = %v, want %q", got, ledger.LabelsJA.Header[0])
	}
}

func TestReadAllRoundTrip(t *testing.T) {
	fake := &fakeSheets{}
	c := newTestClient(t, fake)
	ctx := context.Background()

	rows := sampleRows()
	if err := c.ReplaceAll(ctx, rows); err != nil {
		t.Fatalf("ReplaceAll: %v", err)
	}
	got, err := c.ReadAll(ctx)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if len(got) != len(rows) {
		t.Fatalf("got %d rows, want %d", len(got), len(rows))
	}
	for i := range rows {
		if !got[i].Equal(rows[i]) {
			t.Errorf("row %d = %+v, want %+v", i, got[i], rows[i])
		}
	}
}

func TestEnsureSheet(t *testing.T) {
	tests := []struct {
		name      string
		titles    []string
		wantCalls int
	}{
		{"exists", []string{"Other", "Ledger"}, 1},
		{"missing", []string{"Other"}, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := &fakeSheets{titles: tt.titles}
			c := newTestClient(t, fake)
			if err := c.EnsureSheet(context.Background()); err != nil {
				t.Fatalf("EnsureSheet: %v", err)
			}
			if len(fake.calls) != tt.wantCalls {
				t.Fatalf("got %d calls, want %d", len(fake.calls), tt.wantCalls)
			}
			if tt.wantCalls == 2 {
				last := fake.calls[1]
				if !strings.HasSuffix(last.Path, ":batchUpdate") || !strings.Contains(last.Body, `"title":"Ledger"`) {
					t.Errorf("unexpected add-sheet call %+v", last)
				}
			}
		})
	}
}
