package domain

import (
	"time"

	"sacco/models"
)

// Daraja result codes that mean the customer never completed the request in time
const (
	resultCodeSuccess        = 0
	resultCodeUnreachable    = 1037
	resultCodeRequestExpired = 1019
)

// OutcomeStatus maps a gateway result to a terminal transaction status
func OutcomeStatus(resultCode int, timedOut bool) models.TransactionStatus {
	switch {
	case timedOut:
		return models.TransactionStatusTimeout
	case resultCode == resultCodeSuccess:
		return models.TransactionStatusSuccess
	case resultCode == resultCodeUnreachable, resultCode == resultCodeRequestExpired:
		return models.TransactionStatusTimeout
	default:
		return models.TransactionStatusFailed
	}
}

// SettleTransaction moves a live transaction to a terminal status.
// A terminal transaction is never settled twice.
func SettleTransaction(tx *models.Transaction, status models.TransactionStatus, resultCode int, resultDesc string, now time.Time) (*models.Transaction, error) {
	if !status.IsTerminal() {
		return nil, Validationf("status %s is not terminal", status)
	}
	if tx.Status.IsTerminal() {
		return nil, Conflictf("transaction %s is already %s", tx.Reference, tx.Status)
	}

	next := *tx
	next.Status = status
	next.ResultCode = &resultCode
	next.ResultDesc = &resultDesc
	next.CompletedAt = &now
	next.UpdatedAt = now
	return &next, nil
}

// MatchesCallback reports whether the callback identifiers agree with the transaction
func MatchesCallback(tx *models.Transaction, cb models.GatewayCallback) bool {
	if tx.Type != cb.Type {
		return false
	}
	if cb.Reference != "" && cb.Reference != tx.Reference {
		return false
	}
	if cb.CorrelationID != "" && tx.CorrelationID != nil && *tx.CorrelationID != cb.CorrelationID {
		return false
	}
	return true
}
