package service

import (
	"context"
	"fmt"
	"time"

	"sacco/domain"
	"sacco/events"
	"sacco/models"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

type contributionService struct {
	uowFactory UnitOfWorkFactory
	ledger     TransactionLedger
	executor   EffectExecutor
	now        func() time.Time
}

// NewContributionService creates a new contribution service
func NewContributionService(uowFactory UnitOfWorkFactory, ledger TransactionLedger, executor EffectExecutor) ContributionService {
	return &contributionService{
		uowFactory: uowFactory,
		ledger:     ledger,
		executor:   executor,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

func (s *contributionService) Contribute(ctx context.Context, req ContributionRequest) (*models.ContributionResult, error) {
	if !models.IsValidAmount(req.Amount) {
		return nil, domain.Validationf("contribution must be a positive amount with at most 2 decimal places")
	}
	if req.PhoneNumber != "" && !models.IsWholeShillings(req.Amount) {
		return nil, domain.Validationf("mobile money contributions must be a whole shilling amount")
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	if err := requireMember(ctx, uow, req.MemberID); err != nil {
		return nil, err
	}

	savings, err := s.getOrCreateSavings(ctx, uow, req.MemberID)
	if err != nil {
		return nil, err
	}

	pension, err := uow.PensionRepository().GetAccountByMemberID(ctx, req.MemberID)
	if err != nil {
		return nil, fmt.Errorf("failed to get pension account: %w", err)
	}
	var provider *models.PensionProvider
	if pension != nil && pension.OptedIn && pension.ProviderID != nil {
		provider, err = uow.PensionRepository().GetProvider(ctx, *pension.ProviderID)
		if err != nil {
			return nil, fmt.Errorf("failed to get pension provider: %w", err)
		}
	}

	split, err := domain.SplitContribution(req.Amount, pension, provider)
	if err != nil {
		return nil, err
	}

	now := s.now()
	contribution := &models.SavingsContribution{
		MemberID:          req.MemberID,
		SavingsAccountID:  savings.ID,
		ContributedAmount: split.Contributed,
		PensionAmount:     split.Pension,
		VSLAAmount:        split.VSLA,
		CompletedAt:       &now,
	}
	if split.VSLA.IsPositive() {
		contribution.VSLAAppliedAt = &now
	}

	var effects []domain.Effect

	// With a phone number the member pays by mobile money; otherwise it is a direct deposit
	var collection *models.Transaction
	if req.PhoneNumber != "" {
		collection, err = s.ledger.Open(ctx, uow, models.NewTransaction{
			Type:        models.TransactionTypeC2B,
			Purpose:     models.TransactionPurposeSavings,
			Amount:      split.Contributed,
			Party:       req.PhoneNumber,
			Description: "Savings contribution",
			MemberID:    req.MemberID,
		})
		if err != nil {
			return nil, err
		}
		contribution.CollectionTransactionID = &collection.ID
		effects = append(effects, domain.DispatchTransaction{TransactionID: collection.ID})
	}

	var pensionTx *models.Transaction
	if split.TransferPension {
		pensionTx, err = s.ledger.Open(ctx, uow, models.NewTransaction{
			Type:        models.TransactionTypeB2B,
			Purpose:     models.TransactionPurposePensionContribution,
			Amount:      split.Pension,
			Party:       provider.Paybill,
			Description: fmt.Sprintf("Pension contribution to %s", provider.Name),
			MemberID:    req.MemberID,
		})
		if err != nil {
			return nil, err
		}
		contribution.PensionTransactionID = &pensionTx.ID
		effects = append(effects, domain.DispatchTransaction{TransactionID: pensionTx.ID})
	}

	if err := uow.ContributionRepository().Create(ctx, contribution); err != nil {
		return nil, fmt.Errorf("failed to record contribution: %w", err)
	}

	newBalance := savings.Balance
	if split.VSLA.IsPositive() {
		change, err := applySavingsChange(ctx, uow, savingsChange{
			AccountID:   savings.ID,
			Delta:       split.VSLA,
			ChangeType:  models.BalanceChangeContribution,
			RelatedID:   contribution.ID,
			RelatedType: models.RelatedTypeContribution,
			Metadata: map[string]any{
				"contributed_amount": split.Contributed.StringFixed(2),
				"pension_amount":     split.Pension.StringFixed(2),
			},
		})
		if err != nil {
			return nil, err
		}
		newBalance = change.After
	}

	uow.EventBus().Publish(events.ContributionRecordedEvent{
		ContributionID:    contribution.ID,
		MemberID:          contribution.MemberID,
		ContributedAmount: contribution.ContributedAmount,
		PensionAmount:     contribution.PensionAmount,
		VSLAAmount:        contribution.VSLAAmount,
	})

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.WithFields(log.Fields{
		"contributionID": contribution.ID,
		"memberID":       contribution.MemberID,
		"vsla":           split.VSLA.StringFixed(2),
		"pension":        split.Pension.StringFixed(2),
		"collected":      collection != nil,
	}).Info("Contribution recorded")

	// Initiation failures are absorbed here; the contribution stands
	for _, tx := range s.executor.Execute(ctx, effects) {
		switch {
		case collection != nil && tx.ID == collection.ID:
			collection = tx
		case pensionTx != nil && tx.ID == pensionTx.ID:
			pensionTx = tx
		}
	}

	if collection != nil && collection.Status.IsTerminal() && collection.Status != models.TransactionStatusSuccess {
		newBalance = s.currentBalance(ctx, req.MemberID, newBalance)
	}

	return &models.ContributionResult{
		Contribution:          contribution,
		NewBalance:            newBalance,
		CollectionTransaction: collection,
		PensionTransaction:    pensionTx,
	}, nil
}

func (s *contributionService) getOrCreateSavings(ctx context.Context, uow UnitOfWork, memberID int64) (*models.SavingsAccount, error) {
	savings, err := uow.SavingsAccountRepository().GetByMemberID(ctx, memberID)
	if err != nil {
		return nil, fmt.Errorf("failed to get savings account: %w", err)
	}
	if savings != nil {
		return savings, nil
	}

	savings = &models.SavingsAccount{MemberID: memberID, Balance: decimal.Zero}
	if err := uow.SavingsAccountRepository().Create(ctx, savings); err != nil {
		return nil, fmt.Errorf("failed to open savings account: %w", err)
	}
	return savings, nil
}

// currentBalance re-reads the balance after a reversal, falling back to fallback on error
func (s *contributionService) currentBalance(ctx context.Context, memberID int64, fallback decimal.Decimal) decimal.Decimal {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return fallback
	}
	defer uow.Rollback()

	savings, err := uow.SavingsAccountRepository().GetByMemberID(ctx, memberID)
	if err != nil || savings == nil {
		return fallback
	}
	return savings.Balance
}
