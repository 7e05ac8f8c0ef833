package service

import (
	"context"
	"fmt"
	"time"

	"sacco/domain"
	"sacco/events"

	log "github.com/sirupsen/logrus"
)

type guarantorExpiryService struct {
	uowFactory UnitOfWorkFactory
	executor   EffectExecutor
	window     time.Duration
	now        func() time.Time
}

// NewGuarantorExpiryService creates a sweep that expires guarantors silent for longer than window
func NewGuarantorExpiryService(uowFactory UnitOfWorkFactory, executor EffectExecutor, window time.Duration) GuarantorExpiryService {
	return &guarantorExpiryService{
		uowFactory: uowFactory,
		executor:   executor,
		window:     window,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// ExpireStale never changes a loan's status; the applicant is asked to replace the guarantor
func (s *guarantorExpiryService) ExpireStale(ctx context.Context) (int, error) {
	cutoff := s.now().Add(-s.window)

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	expired, err := uow.GuarantorRepository().ExpirePendingBefore(ctx, cutoff)
	if err != nil {
		return 0, err
	}

	var effects []domain.Effect
	for _, g := range expired {
		uow.EventBus().Publish(events.GuarantorExpiredEvent{
			GuarantorID: g.ID,
			LoanID:      g.LoanID,
			MemberID:    g.MemberID,
		})

		loan, err := uow.LoanRepository().GetByID(ctx, g.LoanID)
		if err != nil {
			return 0, fmt.Errorf("failed to get loan: %w", err)
		}
		if loan == nil {
			continue
		}
		effects = append(effects, domain.ExpiryNotice(loan, g))
	}

	if err := uow.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.WithFields(log.Fields{
		"expired": len(expired),
		"cutoff":  cutoff.Format(time.RFC3339),
	}).Info("Guarantor expiry sweep finished")

	s.executor.Execute(ctx, effects)

	return len(expired), nil
}
