package models

// NotificationKind classifies member and operations notifications
type NotificationKind string

const (
	NotificationGuarantorRequested   NotificationKind = "guarantor_requested"
	NotificationGuarantorRejected    NotificationKind = "guarantor_rejected"
	NotificationGuarantorExpired     NotificationKind = "guarantor_expired"
	NotificationLoanAwaitingManager  NotificationKind = "loan_awaiting_manager"
	NotificationLoanApproved         NotificationKind = "loan_approved"
	NotificationLoanRejected         NotificationKind = "loan_rejected"
	NotificationLoanDisbursed        NotificationKind = "loan_disbursed"
	NotificationLoanCompleted        NotificationKind = "loan_completed"
	NotificationPaymentFailed        NotificationKind = "payment_failed"
	NotificationPaymentUnconfirmed   NotificationKind = "payment_unconfirmed"
	NotificationContributionReversed NotificationKind = "contribution_reversed"
)

// Notification is a message addressed to a member
type Notification struct {
	MemberID int64
	Kind     NotificationKind
	Message  string
}
