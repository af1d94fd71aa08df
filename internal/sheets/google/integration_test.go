//go:build integration

package google

import (
	"context"
	"os"
	"testing"
	"time"

	"kakeibo/internal/core"
)

// Integration tests require a real spreadsheet shared with a service account.
// Run with: go test -tags=integration ./internal/sheets/google

func TestIntegration_MirrorRoundTrip(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	spreadsheetID := os.Getenv("GOOGLE_SPREADSHEET_ID")
	if spreadsheetID == "" {
		t.Skip("GOOGLE_SPREADSHEET_ID not set, skipping integration test")
	}
	credsJSON := os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON")
	credsFile := os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE")
	if credsJSON == "" && credsFile == "" {
		t.Skip("service account credentials not configured, skipping integration test")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	client, err := New(ctx, Options{
		SpreadsheetID:   spreadsheetID,
		SheetName:       "kakeibo-integration",
		CredentialsJSON: credsJSON,
		CredentialsFile: credsFile,
	})
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}
	if err := client.EnsureSheet(ctx); err != nil {
		t.Fatalf("EnsureSheet: %v", err)
	}

	rows := []core.Transaction{
		{Date: core.NewDate(2024, 1, 5), Amount: 1200, Kind: core.Expense, Category: "food", Tag: "personal", Note: "lunch"},
		{Date: core.NewDate(2024, 1, 25), Amount: 250000, Kind: core.Income, Category: "salary"},
	}
	if err := client.ReplaceAll(ctx, rows); err != nil {
		t.Fatalf("ReplaceAll: %v", err)
	}

	got, err := client.ReadAll(ctx)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if len(got) != len(rows) {
		t.Fatalf("read %d rows, want %d", len(got), len(rows))
	}
	for i := range rows {
		if !got[i].Equal(rows[i]) {
			t.Errorf("row %d = %+v, want %+v", i, got[i], rows[i])
		}
	}
}
