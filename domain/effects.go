package domain

import (
	"sacco/models"
)

// Effect is a side effect a transition asks for. Effects are applied by the
// service layer after the owning unit of work commits, never inside it.
type Effect interface {
	isEffect()
}

// DispatchTransaction sends an initiated transaction to the payment gateway
type DispatchTransaction struct {
	TransactionID int64
}

// Notify delivers a message to a member
type Notify struct {
	Notification models.Notification
}

func (DispatchTransaction) isEffect() {}
func (Notify) isEffect()              {}

func notify(memberID int64, kind models.NotificationKind, message string) Effect {
	return Notify{Notification: models.Notification{
		MemberID: memberID,
		Kind:     kind,
		Message:  message,
	}}
}
