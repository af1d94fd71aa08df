package backend

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"

	"kakeibo/internal/amqp"
	"kakeibo/internal/config"
	"kakeibo/internal/core"
)

func quietFactory() *DefaultFactory {
	return NewFactory(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestCreateBackendEachType(t *testing.T) {
	dir := t.TempDir()
	tests := []Config{
		{Type: CSVBackend, LedgerCSVPath: filepath.Join(dir, "records.csv"), LedgerBackupPath: filepath.Join(dir, "records_backup.csv"), LedgerLocale: "ja"},
		{Type: MemoryBackend},
		{Type: SQLiteBackend, SQLiteDBPath: filepath.Join(dir, "kakeibo.db")},
		{Type: BoltBackend, BoltDBPath: filepath.Join(dir, "kakeibo.bolt")},
	}

	for _, cfg := range tests {
		t.Run(cfg.Type.String(), func(t *testing.T) {
			ctx := context.Background()
			result, err := quietFactory().CreateBackend(ctx, cfg)
			if err != nil {
				t.Fatalf("CreateBackend: %v", err)
			}
			defer func() {
				if err := result.Cleanup(); err != nil {
					t.Errorf("Cleanup: %v", err)
				}
			}()

			tx := core.Transaction{Date: core.NewDate(2024, 3, 1), Amount: 500, Kind: core.Expense, Category: "food"}
			if err := result.Service.Append(ctx, tx); err != nil {
				t.Fatalf("Append: %v", err)
			}
			rows, err := result.Store.ListAll(ctx)
			if err != nil {
				t.Fatalf("ListAll: %v", err)
			}
			if len(rows) != 1 || !rows[0].Equal(tx) {
				t.Fatalf("rows = %+v", rows)
			}
		})
	}
}

func TestCreateBackendRejectsInvalidConfig(t *testing.T) {
	tests := []Config{
		{Type: "flatfile"},
		{Type: CSVBackend},
		{Type: SQLiteBackend},
		{Type: BoltBackend},
	}
	for _, cfg := range tests {
		if _, err := quietFactory().CreateBackend(context.Background(), cfg); err == nil {
			t.Errorf("CreateBackend(%+v) should fail", cfg)
		}
	}
}

func TestCreateBackendContinuesWithoutBroker(t *testing.T) {
	f := quietFactory()
	dialed := false
	f.dial = func(url, exchange, queue string) (*amqp.Client, error) {
		dialed = true
		return nil, errors.New("connection refused")
	}

	result, err := f.CreateBackend(context.Background(), Config{
		Type:         MemoryBackend,
		AMQPURL:      "amqp://localhost:5672/",
		AMQPExchange: "kakeibo",
		AMQPQueue:    "ledger_changes",
	})
	if err != nil {
		t.Fatalf("CreateBackend: %v", err)
	}
	defer result.Cleanup()

	if !dialed {
		t.Fatal("AMQP dial was not attempted")
	}
	tx := core.Transaction{Date: core.NewDate(2024, 3, 1), Amount: 1, Kind: core.Income}
	if err := result.Service.Append(context.Background(), tx); err != nil {
		t.Fatalf("Append without broker: %v", err)
	}
}

func TestFromAppConfig(t *testing.T) {
	if _, err := FromAppConfig(nil); err == nil {
		t.Fatal("nil config should fail")
	}

	app := &config.Config{
		DataBackend:      "csv",
		LedgerCSVPath:    "data/records.csv",
		LedgerBackupPath: "data/records_backup.csv",
		LedgerLocale:     "en",
		AMQPURL:          "amqp://x/",
	}
	cfg, err := FromAppConfig(app)
	if err != nil {
		t.Fatalf("FromAppConfig: %v", err)
	}
	if cfg.Type != CSVBackend || cfg.LedgerLocale != "en" || cfg.AMQPURL != "amqp://x/" || cfg.LockTimeout != DefaultLockTimeout {
		t.Errorf("cfg = %+v", cfg)
	}

	app.DataBackend = "sheets"
	_, err = FromAppConfig(app)
	if err == nil {
		t.Fatal("unknown backend should fail")
	}
	if !strings.Contains(err.Error(), "[csv memory sqlite bolt]") {
		t.Errorf("error %q should list the valid backends", err)
	}
}

func TestGetBackendTypesMatchConfig(t *testing.T) {
	types := GetBackendTypes()
	if len(types) != len(config.Backends) {
		t.Fatalf("backend lists differ: %v vs %v", types, config.Backends)
	}
	for i, bt := range types {
		if bt.String() != config.Backends[i] {
			t.Errorf("type %d = %s, config lists %s", i, bt, config.Backends[i])
		}
	}
}
