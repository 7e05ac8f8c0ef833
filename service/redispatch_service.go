package service

import (
	"context"
	"fmt"
	"time"

	"sacco/domain"

	log "github.com/sirupsen/logrus"
)

// redispatchBatch caps how many transactions one sweep sends
const redispatchBatch = 100

type redispatchService struct {
	uowFactory UnitOfWorkFactory
	executor   EffectExecutor
	after      time.Duration
	now        func() time.Time
}

// NewRedispatchService creates a sweep that sends initiated transactions whose dispatch never ran
func NewRedispatchService(uowFactory UnitOfWorkFactory, executor EffectExecutor, after time.Duration) RedispatchService {
	return &redispatchService{
		uowFactory: uowFactory,
		executor:   executor,
		after:      after,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// RedispatchStale only picks rows that were never claimed; a claimed row waits for its callback
func (s *redispatchService) RedispatchStale(ctx context.Context) (int, error) {
	cutoff := s.now().Add(-s.after)

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	stale, err := uow.TransactionRepository().ListUndispatched(ctx, cutoff, redispatchBatch)
	if err != nil {
		return 0, err
	}

	if err := uow.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}

	effects := make([]domain.Effect, 0, len(stale))
	for _, tx := range stale {
		effects = append(effects, domain.DispatchTransaction{TransactionID: tx.ID})
	}
	dispatched := s.executor.Execute(ctx, effects)

	log.WithFields(log.Fields{
		"stale":      len(stale),
		"dispatched": len(dispatched),
		"cutoff":     cutoff.Format(time.RFC3339),
	}).Info("Redispatch sweep finished")

	return len(dispatched), nil
}
