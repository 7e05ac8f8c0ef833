package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType is the gateway operation a transaction uses
type TransactionType string

const (
	TransactionTypeC2B TransactionType = "C2B" // collection from a member
	TransactionTypeB2C TransactionType = "B2C" // disbursement to a member
	TransactionTypeB2B TransactionType = "B2B" // transfer to another business
)

// TransactionPurpose is the ledger account the money movement belongs to
type TransactionPurpose string

const (
	TransactionPurposeSavings             TransactionPurpose = "savings"
	TransactionPurposeLoanRepayment       TransactionPurpose = "loan_repayment"
	TransactionPurposeLoanDisbursement    TransactionPurpose = "loan_disbursement"
	TransactionPurposePensionContribution TransactionPurpose = "pension_contribution"
)

// TransactionStatus is the lifecycle state of a gateway transaction
type TransactionStatus string

const (
	TransactionStatusInitiated  TransactionStatus = "initiated"
	TransactionStatusProcessing TransactionStatus = "processing"
	TransactionStatusSuccess    TransactionStatus = "success"
	TransactionStatusFailed     TransactionStatus = "failed"
	TransactionStatusTimeout    TransactionStatus = "timeout"
)

// IsTerminal reports whether the status can never change again
func (s TransactionStatus) IsTerminal() bool {
	switch s {
	case TransactionStatusSuccess, TransactionStatusFailed, TransactionStatusTimeout:
		return true
	}
	return false
}

// Transaction is one money movement through the payment gateway
type Transaction struct {
	ID            int64              `db:"id" json:"id"`
	Reference     string             `db:"reference" json:"reference"`
	CorrelationID *string            `db:"correlation_id" json:"correlation_id,omitempty"`
	Type          TransactionType    `db:"transaction_type" json:"transaction_type"`
	Purpose       TransactionPurpose `db:"purpose" json:"purpose"`
	Status        TransactionStatus  `db:"status" json:"status"`
	Amount        decimal.Decimal    `db:"amount" json:"amount"`
	Party         string             `db:"party" json:"party"`
	Description   string             `db:"description" json:"description"`
	MemberID      int64              `db:"member_id" json:"member_id"`
	ResultCode    *int               `db:"result_code" json:"result_code,omitempty"`
	ResultDesc    *string            `db:"result_desc" json:"result_desc,omitempty"`
	CreatedAt     time.Time          `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time          `db:"updated_at" json:"updated_at"`
	DispatchedAt  *time.Time         `db:"dispatched_at" json:"dispatched_at,omitempty"`
	CompletedAt   *time.Time         `db:"completed_at" json:"completed_at,omitempty"`
}

// IsDispatched reports whether the request was handed to the gateway
func (t *Transaction) IsDispatched() bool {
	return t.DispatchedAt != nil
}

// NewTransaction describes a transaction about to be opened
type NewTransaction struct {
	Type        TransactionType
	Purpose     TransactionPurpose
	Amount      decimal.Decimal
	Party       string
	Description string
	MemberID    int64
}

// GatewayRequest is what the core sends to the payment gateway
type GatewayRequest struct {
	Reference   string
	Party       string
	Amount      decimal.Decimal
	Description string
}

// GatewayCallback is a normalized asynchronous result from the payment gateway
type GatewayCallback struct {
	Type          TransactionType
	Reference     string // core reference echoed through the result URL
	CorrelationID string // gateway-issued identifier
	ResultCode    int
	ResultDesc    string
	TimedOut      bool // delivered on the queue time-out URL
}

// CallbackOutcome describes what reconciling a callback did
type CallbackOutcome string

const (
	CallbackOutcomeApplied   CallbackOutcome = "applied"
	CallbackOutcomeDuplicate CallbackOutcome = "duplicate"
)

// CallbackResult is returned by the reconciler
type CallbackResult struct {
	Outcome     CallbackOutcome
	Transaction *Transaction
}
