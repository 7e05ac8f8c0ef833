package service

import (
	"context"
	"fmt"
	"time"

	"sacco/config"
	"sacco/domain"
	"sacco/events"
	"sacco/models"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

type interestService struct {
	uowFactory UnitOfWorkFactory
	config     *config.Config
}

// NewInterestService creates a new savings interest service
func NewInterestService(uowFactory UnitOfWorkFactory, cfg *config.Config) InterestService {
	return &interestService{
		uowFactory: uowFactory,
		config:     cfg,
	}
}

type interestCredit struct {
	account  *models.SavingsAccount
	interest decimal.Decimal
}

func (s *interestService) ApplyDailyInterest(ctx context.Context, day time.Time) (*models.InterestRun, error) {
	runDate := domain.RunDate(day)
	rate := s.config.SavingsAnnualInterestRate

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	existing, err := uow.InterestRunRepository().GetByDate(ctx, runDate)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		log.WithField("runDate", runDate.Format("2006-01-02")).Info("Interest already applied for this day")
		return existing, nil
	}

	accounts, err := uow.SavingsAccountRepository().ListWithPositiveBalance(ctx)
	if err != nil {
		return nil, err
	}

	total := decimal.Zero
	credits := make([]interestCredit, 0, len(accounts))
	for _, account := range accounts {
		interest := domain.DailyInterest(account.Balance, rate)
		if !interest.IsPositive() {
			continue
		}
		credits = append(credits, interestCredit{account: account, interest: interest})
		total = total.Add(interest)
	}

	// The unique run date stops a concurrent run for the same day
	run := &models.InterestRun{
		RunDate:                  runDate,
		TotalInterestDistributed: total,
		AccountsAffected:         len(credits),
		ExecutionSummary: map[string]interface{}{
			"annual_rate":       rate.String(),
			"accounts_listed":   len(accounts),
			"accounts_credited": len(credits),
		},
	}
	if err := uow.InterestRunRepository().Create(ctx, run); err != nil {
		return nil, err
	}

	for _, credit := range credits {
		_, err := applySavingsChange(ctx, uow, savingsChange{
			AccountID:   credit.account.ID,
			Delta:       credit.interest,
			ChangeType:  models.BalanceChangeInterest,
			RelatedID:   run.ID,
			RelatedType: models.RelatedTypeInterestRun,
			Metadata: map[string]any{
				"annual_rate": rate.String(),
				"run_date":    runDate.Format("2006-01-02"),
			},
		})
		if err != nil {
			return nil, err
		}
	}

	uow.EventBus().Publish(events.InterestAppliedEvent{
		RunID:            run.ID,
		TotalInterest:    run.TotalInterestDistributed,
		AccountsAffected: run.AccountsAffected,
	})

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.WithFields(log.Fields{
		"runDate":  runDate.Format("2006-01-02"),
		"total":    total.StringFixed(2),
		"accounts": len(credits),
	}).Info("Daily savings interest applied")

	return run, nil
}
