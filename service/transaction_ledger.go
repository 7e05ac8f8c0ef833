package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"sacco/domain"
	"sacco/events"
	"sacco/models"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// ResultCodeInitiationFailed is stored when the gateway never accepted a request
const ResultCodeInitiationFailed = -1

type transactionLedger struct {
	uowFactory UnitOfWorkFactory
	gateway    PaymentGateway
	timeout    time.Duration
	now        func() time.Time
}

// NewTransactionLedger creates a new transaction ledger
func NewTransactionLedger(uowFactory UnitOfWorkFactory, gateway PaymentGateway, timeout time.Duration) TransactionLedger {
	return &transactionLedger{
		uowFactory: uowFactory,
		gateway:    gateway,
		timeout:    timeout,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

func (l *transactionLedger) Open(ctx context.Context, uow UnitOfWork, newTx models.NewTransaction) (*models.Transaction, error) {
	if !models.IsValidAmount(newTx.Amount) {
		return nil, domain.Validationf("transaction amount must be a positive amount with at most 2 decimal places")
	}
	if newTx.Party == "" {
		return nil, domain.Validationf("a phone number or paybill is required")
	}

	tx := &models.Transaction{
		Reference:   uuid.NewString(),
		Type:        newTx.Type,
		Purpose:     newTx.Purpose,
		Amount:      newTx.Amount,
		Party:       newTx.Party,
		Description: newTx.Description,
		MemberID:    newTx.MemberID,
	}
	if err := uow.TransactionRepository().Create(ctx, tx); err != nil {
		return nil, fmt.Errorf("failed to open transaction: %w", err)
	}

	uow.EventBus().Publish(events.TransactionInitiatedEvent{
		TransactionID: tx.ID,
		Reference:     tx.Reference,
		TxType:        tx.Type,
		Purpose:       tx.Purpose,
		Amount:        tx.Amount,
	})

	log.WithFields(log.Fields{
		"transactionID": tx.ID,
		"reference":     tx.Reference,
		"type":          tx.Type,
		"purpose":       tx.Purpose,
		"amount":        tx.Amount.StringFixed(2),
	}).Debug("Opened transaction")

	return tx, nil
}

func (l *transactionLedger) Dispatch(ctx context.Context, transactionID int64) (*models.Transaction, []domain.Effect, error) {
	tx, claimed, err := l.claim(ctx, transactionID)
	if err != nil {
		return nil, nil, err
	}
	if !claimed {
		return tx, nil, nil
	}

	// No database transaction is held across the gateway call
	callCtx, cancel := context.WithTimeout(ctx, l.timeout)
	correlationID, gwErr := l.call(callCtx, tx)
	cancel()

	uow := l.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	locked, err := uow.TransactionRepository().GetByIDForUpdate(ctx, transactionID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to lock transaction: %w", err)
	}
	if locked == nil {
		return nil, nil, domain.NotFound("transaction", transactionID)
	}

	logger := log.WithFields(log.Fields{
		"transactionID": locked.ID,
		"reference":     locked.Reference,
		"type":          locked.Type,
	})

	var effects []domain.Effect
	switch {
	case locked.Status.IsTerminal():
		// The callback beat the initiation response
		if gwErr == nil && correlationID != "" {
			if err := uow.TransactionRepository().SetCorrelationID(ctx, locked.ID, correlationID); err != nil {
				return nil, nil, err
			}
			if locked.CorrelationID == nil {
				locked.CorrelationID = &correlationID
			}
		}
		logger.WithField("status", locked.Status).Info("Transaction settled before dispatch returned")

	case errors.Is(gwErr, domain.ErrPaymentRejected):
		logger.WithError(gwErr).Warn("Gateway rejected initiation")
		locked, effects, err = l.Settle(ctx, uow, locked, models.TransactionStatusFailed, ResultCodeInitiationFailed, gwErr.Error())
		if err != nil {
			return nil, nil, err
		}

	case gwErr != nil || correlationID == "":
		// The request may have reached the gateway; only its callback can settle it
		if gwErr == nil {
			gwErr = errors.New("gateway returned no correlation id")
		}
		moved, err := uow.TransactionRepository().MarkProcessing(ctx, locked.ID, "")
		if err != nil {
			return nil, nil, err
		}
		if moved {
			locked.Status = models.TransactionStatusProcessing
			effects = append(effects, domain.UnconfirmedNotice(locked))
		}
		logger.WithError(gwErr).Warn("Gateway initiation outcome unknown, awaiting callback")

	default:
		moved, err := uow.TransactionRepository().MarkProcessing(ctx, locked.ID, correlationID)
		if err != nil {
			return nil, nil, err
		}
		if moved {
			locked.Status = models.TransactionStatusProcessing
			locked.CorrelationID = &correlationID
			logger.WithField("correlationID", correlationID).Info("Transaction accepted by gateway")
		}
	}

	if err := uow.Commit(); err != nil {
		return nil, nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return locked, effects, nil
}

// claim marks an initiated transaction as sent so that it reaches the gateway at most once
func (l *transactionLedger) claim(ctx context.Context, transactionID int64) (*models.Transaction, bool, error) {
	uow := l.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	tx, err := uow.TransactionRepository().GetByIDForUpdate(ctx, transactionID)
	if err != nil {
		return nil, false, fmt.Errorf("failed to lock transaction: %w", err)
	}
	if tx == nil {
		return nil, false, domain.NotFound("transaction", transactionID)
	}
	if tx.Status != models.TransactionStatusInitiated || tx.IsDispatched() {
		return tx, false, nil
	}

	now := l.now()
	claimed, err := uow.TransactionRepository().ClaimDispatch(ctx, tx.ID, now)
	if err != nil {
		return nil, false, err
	}
	if !claimed {
		return tx, false, nil
	}

	if err := uow.Commit(); err != nil {
		return nil, false, fmt.Errorf("failed to commit transaction: %w", err)
	}

	tx.DispatchedAt = &now
	return tx, true, nil
}

func (l *transactionLedger) call(ctx context.Context, tx *models.Transaction) (string, error) {
	req := models.GatewayRequest{
		Reference:   tx.Reference,
		Party:       tx.Party,
		Amount:      tx.Amount,
		Description: tx.Description,
	}

	switch tx.Type {
	case models.TransactionTypeC2B:
		return l.gateway.InitiateCollection(ctx, req)
	case models.TransactionTypeB2C:
		return l.gateway.InitiateDisbursement(ctx, req)
	case models.TransactionTypeB2B:
		return l.gateway.InitiateTransfer(ctx, req)
	default:
		return "", fmt.Errorf("%w: unsupported transaction type %q", domain.ErrPaymentRejected, tx.Type)
	}
}

func (l *transactionLedger) Settle(ctx context.Context, uow UnitOfWork, tx *models.Transaction, status models.TransactionStatus, resultCode int, resultDesc string) (*models.Transaction, []domain.Effect, error) {
	settled, err := domain.SettleTransaction(tx, status, resultCode, resultDesc, l.now())
	if err != nil {
		return nil, nil, err
	}

	ok, err := uow.TransactionRepository().Settle(ctx, settled)
	if err != nil {
		return nil, nil, err
	}
	if !ok {
		return nil, nil, domain.Conflictf("transaction %s was settled concurrently", tx.Reference)
	}

	var effects []domain.Effect
	switch settled.Purpose {
	case models.TransactionPurposeSavings:
		effects, err = l.settleSavings(ctx, uow, settled)
	case models.TransactionPurposeLoanRepayment:
		effects, err = l.settleRepayment(ctx, uow, settled)
	case models.TransactionPurposeLoanDisbursement:
		effects, err = l.settleDisbursement(ctx, uow, settled)
	case models.TransactionPurposePensionContribution:
		effects, err = l.settlePension(ctx, uow, settled)
	}
	if err != nil {
		return nil, nil, err
	}

	uow.EventBus().Publish(events.TransactionSettledEvent{
		TransactionID: settled.ID,
		Reference:     settled.Reference,
		TxType:        settled.Type,
		Purpose:       settled.Purpose,
		Status:        settled.Status,
		Amount:        settled.Amount,
	})

	log.WithFields(log.Fields{
		"transactionID": settled.ID,
		"reference":     settled.Reference,
		"purpose":       settled.Purpose,
		"status":        settled.Status,
		"resultCode":    resultCode,
	}).Info("Transaction settled")

	return settled, effects, nil
}

func (l *transactionLedger) settleSavings(ctx context.Context, uow UnitOfWork, tx *models.Transaction) ([]domain.Effect, error) {
	contribution, err := uow.ContributionRepository().GetByCollectionTransaction(ctx, tx.ID)
	if err != nil {
		return nil, err
	}
	if contribution == nil {
		log.WithField("transactionID", tx.ID).Warn("Savings collection has no contribution")
		return nil, nil
	}

	now := l.now()

	if tx.Status != models.TransactionStatusSuccess {
		if !domain.NeedsVSLAReversal(contribution) {
			return nil, nil
		}
		reversed, err := uow.ContributionRepository().MarkVSLAReversed(ctx, contribution.ID, now)
		if err != nil || !reversed {
			return nil, err
		}
		_, err = applySavingsChange(ctx, uow, savingsChange{
			AccountID:   contribution.SavingsAccountID,
			Delta:       contribution.VSLAAmount.Neg(),
			ChangeType:  models.BalanceChangeContributionReversal,
			RelatedID:   contribution.ID,
			RelatedType: models.RelatedTypeContribution,
			Metadata: map[string]any{
				"transaction_reference": tx.Reference,
				"transaction_status":    string(tx.Status),
			},
		})
		if err != nil {
			return nil, err
		}
		return []domain.Effect{domain.ReversalNotice(contribution)}, nil
	}

	if _, err := uow.ContributionRepository().MarkCollectionConfirmed(ctx, contribution.ID, now); err != nil {
		return nil, err
	}
	if !domain.NeedsVSLACredit(contribution) {
		return nil, nil
	}
	applied, err := uow.ContributionRepository().MarkVSLAApplied(ctx, contribution.ID, now)
	if err != nil || !applied {
		return nil, err
	}
	_, err = applySavingsChange(ctx, uow, savingsChange{
		AccountID:   contribution.SavingsAccountID,
		Delta:       contribution.VSLAAmount,
		ChangeType:  models.BalanceChangeContribution,
		RelatedID:   contribution.ID,
		RelatedType: models.RelatedTypeContribution,
		Metadata:    map[string]any{"transaction_reference": tx.Reference},
	})
	return nil, err
}

func (l *transactionLedger) settleRepayment(ctx context.Context, uow UnitOfWork, tx *models.Transaction) ([]domain.Effect, error) {
	repayment, err := uow.RepaymentRepository().GetByTransaction(ctx, tx.ID)
	if err != nil {
		return nil, err
	}
	if repayment == nil {
		log.WithField("transactionID", tx.ID).Warn("Repayment collection has no repayment")
		return nil, nil
	}

	now := l.now()

	if tx.Status != models.TransactionStatusSuccess {
		if _, err := uow.RepaymentRepository().UpdateStatus(ctx, repayment.ID, models.RepaymentStatusPending, models.RepaymentStatusFailed, now); err != nil {
			return nil, err
		}
		return []domain.Effect{domain.PaymentFailedNotice(tx)}, nil
	}

	completed, err := uow.RepaymentRepository().UpdateStatus(ctx, repayment.ID, models.RepaymentStatusPending, models.RepaymentStatusCompleted, now)
	if err != nil || !completed {
		return nil, err
	}

	loan, err := uow.LoanRepository().GetByIDForUpdate(ctx, repayment.LoanID)
	if err != nil {
		return nil, err
	}
	if loan == nil {
		return nil, domain.NotFound("loan", repayment.LoanID)
	}

	next, effects := domain.ApplyRepayment(loan, repayment.Amount, now)
	if err := updateLoan(ctx, uow, loan, next); err != nil {
		return nil, err
	}
	return effects, nil
}

func (l *transactionLedger) settleDisbursement(ctx context.Context, uow UnitOfWork, tx *models.Transaction) ([]domain.Effect, error) {
	loan, err := uow.LoanRepository().GetByDisbursementTransaction(ctx, tx.ID)
	if err != nil {
		return nil, err
	}
	if loan == nil {
		log.WithField("transactionID", tx.ID).Warn("Disbursement has no loan")
		return nil, nil
	}

	// A failed disbursement leaves the loan Approved so it can be retried
	if tx.Status != models.TransactionStatusSuccess {
		return []domain.Effect{domain.PaymentFailedNotice(tx)}, nil
	}

	next, effects, err := domain.MarkDisbursed(loan, l.now())
	if err != nil {
		log.WithError(err).WithField("loanID", loan.ID).Error("Disbursement succeeded for a loan that is not Approved")
		return nil, nil
	}
	if err := updateLoan(ctx, uow, loan, next); err != nil {
		return nil, err
	}
	return effects, nil
}

func (l *transactionLedger) settlePension(ctx context.Context, uow UnitOfWork, tx *models.Transaction) ([]domain.Effect, error) {
	contribution, err := uow.ContributionRepository().GetByPensionTransaction(ctx, tx.ID)
	if err != nil {
		return nil, err
	}
	if contribution == nil {
		log.WithField("transactionID", tx.ID).Warn("Pension transfer has no contribution")
		return nil, nil
	}

	// The pension leg stays unsettled on failure
	if tx.Status != models.TransactionStatusSuccess {
		return nil, nil
	}

	settled, err := uow.ContributionRepository().MarkPensionSettled(ctx, contribution.ID, l.now())
	if err != nil || !settled {
		return nil, err
	}
	if err := uow.PensionRepository().AddToTotal(ctx, contribution.MemberID, tx.Amount); err != nil {
		return nil, err
	}

	uow.EventBus().Publish(events.PensionCreditedEvent{
		MemberID:       contribution.MemberID,
		ContributionID: contribution.ID,
		Amount:         tx.Amount,
	})
	return nil, nil
}

// updateLoan writes next over prev with a status compare-and-swap and emits the transition
func updateLoan(ctx context.Context, uow UnitOfWork, prev, next *models.LoanAccount) error {
	updated, err := uow.LoanRepository().Update(ctx, next, prev.Status)
	if err != nil {
		return err
	}
	if !updated {
		return domain.Conflictf("Loan %d changed concurrently.", prev.ID)
	}

	if next.Status != prev.Status {
		uow.EventBus().Publish(events.LoanStatusChangedEvent{
			LoanID:    next.ID,
			MemberID:  next.MemberID,
			OldStatus: prev.Status,
			NewStatus: next.Status,
		})
		log.WithFields(log.Fields{
			"loanID":    next.ID,
			"oldStatus": prev.Status,
			"newStatus": next.Status,
		}).Info("Loan status changed")
	}
	return nil
}
