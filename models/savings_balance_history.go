package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// BalanceChangeType represents why a savings balance changed
type BalanceChangeType string

const (
	BalanceChangeContribution         BalanceChangeType = "contribution"
	BalanceChangeContributionReversal BalanceChangeType = "contribution_reversal"
	BalanceChangeInterest             BalanceChangeType = "interest"
)

// RelatedType represents what type of entity the related_id refers to
type RelatedType string

const (
	RelatedTypeContribution RelatedType = "contribution"
	RelatedTypeInterestRun  RelatedType = "interest_run"
)

// SavingsBalanceHistory represents a historical savings balance change
type SavingsBalanceHistory struct {
	ID               int64             `db:"id" json:"id"`
	SavingsAccountID int64             `db:"savings_account_id" json:"savings_account_id"`
	MemberID         int64             `db:"member_id" json:"member_id"`
	BalanceBefore    decimal.Decimal   `db:"balance_before" json:"balance_before"`
	BalanceAfter     decimal.Decimal   `db:"balance_after" json:"balance_after"`
	ChangeAmount     decimal.Decimal   `db:"change_amount" json:"change_amount"`
	ChangeType       BalanceChangeType `db:"change_type" json:"change_type"`
	ChangeMetadata   map[string]any    `db:"change_metadata" json:"change_metadata,omitempty"`
	RelatedID        *int64            `db:"related_id" json:"related_id,omitempty"`
	RelatedType      *RelatedType      `db:"related_type" json:"related_type,omitempty"`
	CreatedAt        time.Time         `db:"created_at" json:"created_at"`
}
