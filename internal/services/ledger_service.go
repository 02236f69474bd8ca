package services

import (
	"context"
	"fmt"

	"money/internal/core"
	"money/internal/events"
	"money/internal/ledger"
	"money/internal/log"
	"money/internal/persistence"
)

// LedgerService persists committed changes and then announces them.
// Persistence errors are returned; publish errors are only logged, the
// change is already stored.
type LedgerService struct {
	persist   *persistence.Adapter
	publisher events.Publisher
	logger    *log.Logger
	audit     *log.StructuredLogger
}

func NewLedgerService(persist *persistence.Adapter, publisher events.Publisher, logger *log.Logger) *LedgerService {
	if publisher == nil {
		publisher = events.Noop{}
	}
	if logger == nil {
		logger = log.Discard()
	}
	return &LedgerService{
		persist:   persist,
		publisher: publisher,
		logger:    logger.WithComponent(log.ComponentLedger),
		audit:     log.NewStructuredLogger(logger),
	}
}

// Commit saves l and publishes e if the save succeeded.
func (s *LedgerService) Commit(ctx context.Context, l *ledger.Ledger, e events.Event) error {
	if err := s.persist.Save(ctx, l); err != nil {
		return fmt.Errorf("save ledger: %w", err)
	}

	if e.Amount != nil {
		op := log.OpAdd
		if e.Type == events.TransactionRemoved {
			op = log.OpRemove
		}
		s.audit.LogTransaction(ctx, op, e.TransactionID, string(e.Kind), e.Description, e.Amount.Cents, e.Balance.Cents)
	}

	s.publish(ctx, e)
	return nil
}

// CommitTheme saves the theme slot and publishes e if the save succeeded.
func (s *LedgerService) CommitTheme(ctx context.Context, theme core.Theme, e events.Event) error {
	if err := s.persist.SaveTheme(ctx, theme); err != nil {
		return fmt.Errorf("save theme: %w", err)
	}
	s.publish(ctx, e)
	return nil
}

func (s *LedgerService) publish(ctx context.Context, e events.Event) {
	if err := s.publisher.Publish(ctx, e); err != nil {
		// Don't fail the request - the change is saved locally
		s.logger.ErrorContext(ctx, "Failed to publish ledger event",
			log.FieldEvent, string(e.Type),
			log.FieldError, err)
	}
}

func (s *LedgerService) Save(ctx context.Context, l *ledger.Ledger) error {
	return s.persist.Save(ctx, l)
}

func (s *LedgerService) Load(ctx context.Context) (*ledger.Ledger, bool, error) {
	return s.persist.Load(ctx)
}

func (s *LedgerService) LoadTheme(ctx context.Context) (core.Theme, error) {
	return s.persist.LoadTheme(ctx)
}

// Close closes the event publisher.
func (s *LedgerService) Close() error {
	if s.publisher == nil {
		return nil
	}
	if err := s.publisher.Close(); err != nil {
		return fmt.Errorf("close publisher: %w", err)
	}
	return nil
}
