// Package backend selects and builds the Record Store named by configuration.
package backend

import (
	"context"
	"time"

	"kakeibo/internal/ledger"
	"kakeibo/internal/services"
)

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// BackendResult contains the wrapped store and its cleanup function.
type BackendResult struct {
	Service *services.LedgerService
	// Store is the raw backend, without change publication.
	Store   ledger.Store
	Cleanup CleanupFunc
}

// Factory creates backends based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	// csv
	LedgerCSVPath    string
	LedgerBackupPath string
	LedgerLocale     string
	LockTimeout      time.Duration

	// sqlite
	SQLiteDBPath string

	// bolt
	BoltDBPath string

	// Change feed; empty URL disables publication
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string
}

// BackendType represents the type of backend
type BackendType string

const (
	CSVBackend    BackendType = "csv"
	MemoryBackend BackendType = "memory"
	SQLiteBackend BackendType = "sqlite"
	BoltBackend   BackendType = "bolt"
)

func (bt BackendType) String() string {
	return string(bt)
}

func (bt BackendType) IsValid() bool {
	switch bt {
	case CSVBackend, MemoryBackend, SQLiteBackend, BoltBackend:
		return true
	default:
		return false
	}
}
