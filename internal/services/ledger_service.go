package services

import (
	"context"
	"fmt"
	"log/slog"

	"kakeibo/internal/amqp"
	"kakeibo/internal/core"
	"kakeibo/internal/ledger"
)

// ChangePublisher announces committed ledger mutations.
type ChangePublisher interface {
	PublishLedgerChange(ctx context.Context, msg *amqp.LedgerChangeMessage) error
}

// LedgerService orchestrates ledger mutations and the change feed. The store
// is the source of truth; a failed publish is logged and never fails the call.
type LedgerService struct {
	store     ledger.Store
	publisher ChangePublisher
	closers   []func() error
}

var _ ledger.Store = (*LedgerService)(nil)

// NewLedgerService wraps store. publisher may be nil.
func NewLedgerService(store ledger.Store, publisher ChangePublisher) *LedgerService {
	return &LedgerService{
		store:     store,
		publisher: publisher,
	}
}

// OnClose registers a function Close runs after closing the store.
func (s *LedgerService) OnClose(fn func() error) {
	s.closers = append(s.closers, fn)
}

func (s *LedgerService) Initialize(ctx context.Context) error {
	if err := s.store.Initialize(ctx); err != nil {
		return fmt.Errorf("initialize ledger: %w", err)
	}
	return nil
}

func (s *LedgerService) Append(ctx context.Context, t core.Transaction) error {
	if err := s.store.Append(ctx, t); err != nil {
		return fmt.Errorf("append transaction: %w", err)
	}
	s.publish(ctx, amqp.OpAppend)
	return nil
}

func (s *LedgerService) ListAll(ctx context.Context) ([]core.Transaction, error) {
	rows, err := s.store.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return rows, nil
}

func (s *LedgerService) DeleteAt(ctx context.Context, position int) error {
	if err := s.store.DeleteAt(ctx, position); err != nil {
		return fmt.Errorf("delete transaction %d: %w", position, err)
	}
	s.publish(ctx, amqp.OpDelete)
	return nil
}

func (s *LedgerService) UndoLastDelete(ctx context.Context) (bool, error) {
	restored, err := s.store.UndoLastDelete(ctx)
	if err != nil {
		return false, fmt.Errorf("undo delete: %w", err)
	}
	if restored {
		s.publish(ctx, amqp.OpUndo)
	}
	return restored, nil
}

func (s *LedgerService) UndoAvailable(ctx context.Context) (bool, error) {
	ok, err := s.store.UndoAvailable(ctx)
	if err != nil {
		return false, fmt.Errorf("undo status: %w", err)
	}
	return ok, nil
}

func (s *LedgerService) publish(ctx context.Context, op amqp.Operation) {
	if s.publisher == nil {
		return
	}
	rows, err := s.store.ListAll(ctx)
	if err != nil {
		slog.WarnContext(ctx, "Skipping change message, table unreadable", "operation", string(op), "error", err)
		return
	}
	msg := amqp.NewLedgerChangeMessage(op, len(rows))
	if err := s.publisher.PublishLedgerChange(ctx, msg); err != nil {
		slog.ErrorContext(ctx, "Failed to publish change message",
			"operation", string(op),
			"message_id", msg.ID.String(),
			"error", err)
	}
}

// Close closes the store and then every registered closer.
func (s *LedgerService) Close() error {
	var errs []error

	if s.store != nil {
		if err := s.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("store: %w", err))
		}
	}
	for _, fn := range s.closers {
		if err := fn(); err != nil {
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close ledger service: %v", errs)
	}

	return nil
}
