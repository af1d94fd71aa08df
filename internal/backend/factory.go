package backend

import (
	"context"
	"fmt"
	"log/slog"

	"kakeibo/internal/amqp"
	"kakeibo/internal/ledger"
	"kakeibo/internal/ledger/boltdb"
	"kakeibo/internal/ledger/csvfile"
	"kakeibo/internal/ledger/memory"
	"kakeibo/internal/services"
	"kakeibo/internal/storage"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *slog.Logger
	// dial is replaced in tests
	dial func(url, exchange, queue string) (*amqp.Client, error)
}

func NewFactory(logger *slog.Logger) *DefaultFactory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{
		logger: logger,
		dial:   amqp.NewClient,
	}
}

var _ Factory = (*DefaultFactory)(nil)

// CreateBackend opens and initializes the configured store and wraps it in a
// LedgerService that publishes changes when AMQP is configured.
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	store, err := f.openStore(config)
	if err != nil {
		return nil, err
	}
	if err := store.Initialize(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("initialize %s backend: %w", config.Type, err)
	}

	var svc *services.LedgerService
	if client := f.dialAMQP(config); client != nil {
		svc = services.NewLedgerService(store, client)
		svc.OnClose(client.Close)
	} else {
		svc = services.NewLedgerService(store, nil)
	}

	return &BackendResult{
		Service: svc,
		Store:   store,
		Cleanup: svc.Close,
	}, nil
}

func (f *DefaultFactory) openStore(config Config) (ledger.Store, error) {
	switch config.Type {
	case CSVBackend:
		store := csvfile.New(config.LedgerCSVPath, config.LedgerBackupPath,
			csvfile.WithLabels(ledger.LabelsFor(config.LedgerLocale)))
		f.logger.Info("Initialized CSV backend",
			"file", config.LedgerCSVPath,
			"backup", config.LedgerBackupPath,
			"locale", config.LedgerLocale)
		return store, nil

	case SQLiteBackend:
		repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
		}
		f.logger.Info("Initialized SQLite backend", "db_path", config.SQLiteDBPath)
		return repo, nil

	case BoltBackend:
		timeout := config.LockTimeout
		if timeout <= 0 {
			timeout = DefaultLockTimeout
		}
		store, err := boltdb.Open(config.BoltDBPath, timeout)
		if err != nil {
			return nil, fmt.Errorf("failed to open bolt database: %w", err)
		}
		f.logger.Info("Initialized bolt backend", "db_path", config.BoltDBPath)
		return store, nil

	case MemoryBackend:
		f.logger.Warn("Using memory backend, transactions are lost on exit")
		return memory.New(), nil
	}
	return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
}

// dialAMQP returns nil when the feed is disabled or the broker unreachable.
func (f *DefaultFactory) dialAMQP(config Config) *amqp.Client {
	if config.AMQPURL == "" {
		return nil
	}
	client, err := f.dial(config.AMQPURL, config.AMQPExchange, config.AMQPQueue)
	if err != nil {
		f.logger.Warn("Failed to initialize AMQP client, continuing without change feed", "error", err)
		return nil
	}
	f.logger.Info("Initialized AMQP client",
		"exchange", config.AMQPExchange,
		"queue", config.AMQPQueue)
	return client
}
