package service

import (
	"context"

	"sacco/domain"
	"sacco/models"

	log "github.com/sirupsen/logrus"
)

type effectExecutor struct {
	ledger   TransactionLedger
	notifier Notifier
}

// NewEffectExecutor creates an executor that dispatches transactions and sends notifications
func NewEffectExecutor(ledger TransactionLedger, notifier Notifier) EffectExecutor {
	return &effectExecutor{
		ledger:   ledger,
		notifier: notifier,
	}
}

// Execute never fails: the triggering state is already committed, so faults are logged.
// Effects outlive the caller's context; a cancelled request must not strand a transaction.
func (e *effectExecutor) Execute(ctx context.Context, effects []domain.Effect) []*models.Transaction {
	ctx = context.WithoutCancel(ctx)
	var dispatched []*models.Transaction

	for _, effect := range effects {
		switch eff := effect.(type) {
		case domain.DispatchTransaction:
			tx, followUps, err := e.ledger.Dispatch(ctx, eff.TransactionID)
			if err != nil {
				log.WithError(err).WithField("transactionID", eff.TransactionID).Error("Failed to dispatch transaction")
				continue
			}
			dispatched = append(dispatched, tx)
			e.Execute(ctx, followUps)

		case domain.Notify:
			if e.notifier == nil {
				continue
			}
			if err := e.notifier.Notify(ctx, eff.Notification); err != nil {
				log.WithError(err).WithFields(log.Fields{
					"memberID": eff.Notification.MemberID,
					"kind":     eff.Notification.Kind,
				}).Warn("Failed to send notification")
			}

		default:
			log.WithField("effect", effect).Error("Unknown effect type")
		}
	}

	return dispatched
}
