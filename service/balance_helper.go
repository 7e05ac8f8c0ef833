package service

import (
	"context"
	"fmt"

	"sacco/domain"
	"sacco/events"
	"sacco/models"

	"github.com/shopspring/decimal"
)

// RecordBalanceChange records a savings balance history entry and emits the change event.
// Every savings balance change goes through here.
func RecordBalanceChange(ctx context.Context, uow UnitOfWork, history *models.SavingsBalanceHistory) error {
	if err := uow.SavingsBalanceHistoryRepository().Record(ctx, history); err != nil {
		return fmt.Errorf("failed to record balance history: %w", err)
	}

	// Flushed after the transaction commits
	uow.EventBus().Publish(events.SavingsBalanceChangedEvent{
		MemberID:         history.MemberID,
		SavingsAccountID: history.SavingsAccountID,
		OldBalance:       history.BalanceBefore,
		NewBalance:       history.BalanceAfter,
		ChangeAmount:     history.ChangeAmount,
		ChangeType:       history.ChangeType,
	})

	return nil
}

// savingsChange describes a single adjustment to a savings account
type savingsChange struct {
	AccountID   int64
	Delta       decimal.Decimal
	ChangeType  models.BalanceChangeType
	RelatedID   int64
	RelatedType models.RelatedType
	Metadata    map[string]any
}

// applySavingsChange locks the account, moves its balance and records history
func applySavingsChange(ctx context.Context, uow UnitOfWork, change savingsChange) (domain.BalanceChange, error) {
	account, err := uow.SavingsAccountRepository().GetByIDForUpdate(ctx, change.AccountID)
	if err != nil {
		return domain.BalanceChange{}, fmt.Errorf("failed to get savings account: %w", err)
	}
	if account == nil {
		return domain.BalanceChange{}, domain.NotFound("savings account", change.AccountID)
	}

	balance := domain.CreditSavings(account, change.Delta)

	if change.ChangeType == models.BalanceChangeInterest {
		err = uow.SavingsAccountRepository().AddInterest(ctx, account.ID, change.Delta)
	} else {
		err = uow.SavingsAccountRepository().AddBalance(ctx, account.ID, change.Delta)
	}
	if err != nil {
		return domain.BalanceChange{}, fmt.Errorf("failed to update savings balance: %w", err)
	}

	relatedID := change.RelatedID
	relatedType := change.RelatedType
	history := &models.SavingsBalanceHistory{
		SavingsAccountID: account.ID,
		MemberID:         account.MemberID,
		BalanceBefore:    balance.Before,
		BalanceAfter:     balance.After,
		ChangeAmount:     balance.Delta,
		ChangeType:       change.ChangeType,
		ChangeMetadata:   change.Metadata,
		RelatedID:        &relatedID,
		RelatedType:      &relatedType,
	}
	if err := RecordBalanceChange(ctx, uow, history); err != nil {
		return domain.BalanceChange{}, err
	}

	return balance, nil
}
