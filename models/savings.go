package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// SavingsAccount holds a member's VSLA savings
type SavingsAccount struct {
	ID              int64           `db:"id" json:"id"`
	MemberID        int64           `db:"member_id" json:"member_id"`
	Balance         decimal.Decimal `db:"balance" json:"balance"`
	InterestAccrued decimal.Decimal `db:"interest_accrued" json:"interest_accrued"`
	CreatedAt       time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time       `db:"updated_at" json:"updated_at"`
}

// SavingsContribution records how a contribution was split between savings and pension
type SavingsContribution struct {
	ID                      int64           `db:"id" json:"id"`
	MemberID                int64           `db:"member_id" json:"member_id"`
	SavingsAccountID        int64           `db:"savings_account_id" json:"savings_account_id"`
	ContributedAmount       decimal.Decimal `db:"contributed_amount" json:"contributed_amount"`
	PensionAmount           decimal.Decimal `db:"pension_amount" json:"pension_amount"`
	VSLAAmount              decimal.Decimal `db:"vsla_amount" json:"vsla_amount"`
	CollectionTransactionID *int64          `db:"collection_transaction_id" json:"collection_transaction_id,omitempty"`
	PensionTransactionID    *int64          `db:"pension_transaction_id" json:"pension_transaction_id,omitempty"`
	CreatedAt               time.Time       `db:"created_at" json:"created_at"`
	CompletedAt             *time.Time      `db:"completed_at" json:"completed_at,omitempty"`
	VSLAAppliedAt           *time.Time      `db:"vsla_applied_at" json:"vsla_applied_at,omitempty"`
	VSLAReversedAt          *time.Time      `db:"vsla_reversed_at" json:"vsla_reversed_at,omitempty"`
	CollectionConfirmedAt   *time.Time      `db:"collection_confirmed_at" json:"collection_confirmed_at,omitempty"`
	PensionSettledAt        *time.Time      `db:"pension_settled_at" json:"pension_settled_at,omitempty"`
}

// ContributionResult is what a member gets back after contributing
type ContributionResult struct {
	Contribution          *SavingsContribution `json:"contribution"`
	NewBalance            decimal.Decimal      `json:"new_balance"`
	CollectionTransaction *Transaction         `json:"collection_transaction,omitempty"`
	PensionTransaction    *Transaction         `json:"pension_transaction,omitempty"`
}
