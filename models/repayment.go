package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// RepaymentStatus represents the settlement state of a loan repayment
type RepaymentStatus string

const (
	RepaymentStatusPending   RepaymentStatus = "Pending"
	RepaymentStatusCompleted RepaymentStatus = "Completed"
	RepaymentStatusFailed    RepaymentStatus = "Failed"
)

// LoanRepayment is a single repayment collected from a member
type LoanRepayment struct {
	ID            int64           `db:"id" json:"id"`
	LoanID        int64           `db:"loan_id" json:"loan_id"`
	Amount        decimal.Decimal `db:"amount" json:"amount"`
	Status        RepaymentStatus `db:"status" json:"status"`
	TransactionID *int64          `db:"transaction_id" json:"transaction_id,omitempty"`
	CreatedAt     time.Time       `db:"created_at" json:"created_at"`
	CompletedAt   *time.Time      `db:"completed_at" json:"completed_at,omitempty"`
}
