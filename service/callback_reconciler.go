package service

import (
	"context"
	"fmt"

	"sacco/domain"
	"sacco/models"

	log "github.com/sirupsen/logrus"
)

type callbackReconciler struct {
	uowFactory UnitOfWorkFactory
	ledger     TransactionLedger
	executor   EffectExecutor
}

// NewCallbackReconciler creates a new callback reconciler
func NewCallbackReconciler(uowFactory UnitOfWorkFactory, ledger TransactionLedger, executor EffectExecutor) CallbackReconciler {
	return &callbackReconciler{
		uowFactory: uowFactory,
		ledger:     ledger,
		executor:   executor,
	}
}

func (r *callbackReconciler) Reconcile(ctx context.Context, callback models.GatewayCallback) (*models.CallbackResult, error) {
	logger := log.WithFields(log.Fields{
		"type":          callback.Type,
		"reference":     callback.Reference,
		"correlationID": callback.CorrelationID,
		"resultCode":    callback.ResultCode,
		"timedOut":      callback.TimedOut,
	})

	if callback.Reference == "" && callback.CorrelationID == "" {
		logger.Warn("Rejected callback without identifiers")
		return nil, domain.ErrUnresolvableCallback
	}

	uow := r.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	// Duplicate callbacks queue up on this row lock
	tx, err := uow.TransactionRepository().FindForCallback(ctx, callback.Type, callback.Reference, callback.CorrelationID)
	if err != nil {
		return nil, err
	}
	if tx == nil {
		logger.Warn("Rejected callback for unknown transaction")
		return nil, domain.ErrTransactionNotFound
	}
	if !domain.MatchesCallback(tx, callback) {
		logger.WithField("transactionID", tx.ID).Warn("Rejected callback with conflicting identifiers")
		return nil, fmt.Errorf("%w: reference and correlation id name different transactions", domain.ErrUnresolvableCallback)
	}

	if tx.Status.IsTerminal() {
		logger.WithFields(log.Fields{
			"transactionID": tx.ID,
			"status":        tx.Status,
		}).Info("Ignoring callback for settled transaction")
		return &models.CallbackResult{Outcome: models.CallbackOutcomeDuplicate, Transaction: tx}, nil
	}

	if tx.CorrelationID == nil && callback.CorrelationID != "" {
		if err := uow.TransactionRepository().SetCorrelationID(ctx, tx.ID, callback.CorrelationID); err != nil {
			return nil, err
		}
		tx.CorrelationID = &callback.CorrelationID
	}

	status := domain.OutcomeStatus(callback.ResultCode, callback.TimedOut)
	settled, effects, err := r.ledger.Settle(ctx, uow, tx, status, callback.ResultCode, callback.ResultDesc)
	if err != nil {
		return nil, fmt.Errorf("failed to settle transaction %s: %w", tx.Reference, err)
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	r.executor.Execute(ctx, effects)

	return &models.CallbackResult{Outcome: models.CallbackOutcomeApplied, Transaction: settled}, nil
}
