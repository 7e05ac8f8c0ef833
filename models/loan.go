package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// LoanStatus represents the workflow state of a loan
type LoanStatus string

const (
	LoanStatusDraft            LoanStatus = "Draft"
	LoanStatusPendingGuarantor LoanStatus = "PendingGuarantor"
	LoanStatusPendingManager   LoanStatus = "PendingManager"
	LoanStatusApproved         LoanStatus = "Approved"
	LoanStatusRejected         LoanStatus = "Rejected"
	LoanStatusDisbursed        LoanStatus = "Disbursed"
	LoanStatusCompleted        LoanStatus = "Completed"
)

// LoanReason is the member's stated purpose for the loan
type LoanReason string

const (
	LoanReasonEmergency LoanReason = "emergency"
	LoanReasonPersonal  LoanReason = "personal"
	LoanReasonBusiness  LoanReason = "business"
)

// IsValid reports whether the reason is one of the known values
func (r LoanReason) IsValid() bool {
	switch r {
	case LoanReasonEmergency, LoanReasonPersonal, LoanReasonBusiness:
		return true
	}
	return false
}

// RepaymentFrequency is how often the member intends to repay
type RepaymentFrequency string

const (
	RepaymentFrequencyDaily   RepaymentFrequency = "daily"
	RepaymentFrequencyWeekly  RepaymentFrequency = "weekly"
	RepaymentFrequencyMonthly RepaymentFrequency = "monthly"
)

// IsValid reports whether the frequency is one of the known values
func (f RepaymentFrequency) IsValid() bool {
	switch f {
	case RepaymentFrequencyDaily, RepaymentFrequencyWeekly, RepaymentFrequencyMonthly:
		return true
	}
	return false
}

// LoanAccount represents a member's loan application and its repayment state
type LoanAccount struct {
	ID                        int64              `db:"id" json:"id"`
	MemberID                  int64              `db:"member_id" json:"member_id"`
	RequestedAmount           decimal.Decimal    `db:"requested_amount" json:"requested_amount"`
	InterestRate              decimal.Decimal    `db:"interest_rate" json:"interest_rate"`
	TimelineMonths            int                `db:"timeline_months" json:"timeline_months"`
	Reason                    LoanReason         `db:"loan_reason" json:"loan_reason"`
	RepaymentFrequency        RepaymentFrequency `db:"repayment_frequency" json:"repayment_frequency"`
	Status                    LoanStatus         `db:"status" json:"status"`
	TotalRepaid               decimal.Decimal    `db:"total_repaid" json:"total_repaid"`
	RejectionReason           *string            `db:"rejection_reason" json:"rejection_reason,omitempty"`
	DisbursementTransactionID *int64             `db:"disbursement_transaction_id" json:"disbursement_transaction_id,omitempty"`
	RequestedAt               time.Time          `db:"requested_at" json:"requested_at"`
	ApprovedAt                *time.Time         `db:"approved_at" json:"approved_at,omitempty"`
	DisbursedAt               *time.Time         `db:"disbursed_at" json:"disbursed_at,omitempty"`
	CompletedAt               *time.Time         `db:"completed_at" json:"completed_at,omitempty"`
	RepaymentDueDate          *time.Time         `db:"repayment_due_date" json:"repayment_due_date,omitempty"`
	UpdatedAt                 time.Time          `db:"updated_at" json:"updated_at"`
}

// TotalInterest is simple interest over the loan term, rounded to cents
func (l *LoanAccount) TotalInterest() decimal.Decimal {
	years := decimal.NewFromInt(int64(l.TimelineMonths)).Div(decimal.NewFromInt(12))
	return RoundMoney(l.RequestedAmount.Mul(l.InterestRate).Mul(years).Div(hundred))
}

// TotalRepayment is principal plus interest
func (l *LoanAccount) TotalRepayment() decimal.Decimal {
	return l.RequestedAmount.Add(l.TotalInterest())
}

// OutstandingBalance never goes below zero
func (l *LoanAccount) OutstandingBalance() decimal.Decimal {
	outstanding := l.TotalRepayment().Sub(l.TotalRepaid)
	if outstanding.IsNegative() {
		return decimal.Zero
	}
	return outstanding
}

// IsFullyRepaid reports whether repayments cover the total repayment
func (l *LoanAccount) IsFullyRepaid() bool {
	return l.TotalRepaid.GreaterThanOrEqual(l.TotalRepayment())
}

// LoanAction is a follow-up a human must take before the loan can progress
type LoanAction string

const (
	LoanActionNone             LoanAction = ""
	LoanActionReplaceGuarantor LoanAction = "replace_guarantor"
)

// LoanDetail combines a loan with its active guarantors
type LoanDetail struct {
	Loan               *LoanAccount    `json:"loan"`
	Guarantors         []*Guarantor    `json:"guarantors"`
	TotalRepayment     decimal.Decimal `json:"total_repayment"`
	OutstandingBalance decimal.Decimal `json:"outstanding_balance"`
	RequiredAction     LoanAction      `json:"required_action,omitempty"`
}
