package service

import (
	"context"
	"time"

	"sacco/domain"
	"sacco/events"
	"sacco/models"

	"github.com/shopspring/decimal"
)

// MemberRepository defines the interface for member lookups
type MemberRepository interface {
	// GetByID retrieves a member by ID
	GetByID(ctx context.Context, id int64) (*models.Member, error)

	// Create inserts a member projection
	Create(ctx context.Context, member *models.Member) error
}

// SavingsAccountRepository defines the interface for savings account data access
type SavingsAccountRepository interface {
	// GetByMemberID retrieves the member's savings account
	GetByMemberID(ctx context.Context, memberID int64) (*models.SavingsAccount, error)

	// GetByIDForUpdate retrieves a savings account and locks its row
	GetByIDForUpdate(ctx context.Context, id int64) (*models.SavingsAccount, error)

	// Create opens a savings account
	Create(ctx context.Context, account *models.SavingsAccount) error

	// AddBalance adds amount (which may be negative) to the balance
	AddBalance(ctx context.Context, id int64, amount decimal.Decimal) error

	// AddInterest adds amount to both the balance and the accrued interest
	AddInterest(ctx context.Context, id int64, amount decimal.Decimal) error

	// ListWithPositiveBalance returns every account holding money
	ListWithPositiveBalance(ctx context.Context) ([]*models.SavingsAccount, error)
}

// SavingsBalanceHistoryRepository defines the interface for savings balance tracking
type SavingsBalanceHistoryRepository interface {
	// Record creates a new balance history entry
	Record(ctx context.Context, history *models.SavingsBalanceHistory) error

	// GetByAccount returns the most recent entries for an account
	GetByAccount(ctx context.Context, savingsAccountID int64, limit int) ([]*models.SavingsBalanceHistory, error)
}

// ContributionRepository defines the interface for savings contribution data access
type ContributionRepository interface {
	// Create records a contribution
	Create(ctx context.Context, contribution *models.SavingsContribution) error

	// GetByID retrieves a contribution by ID
	GetByID(ctx context.Context, id int64) (*models.SavingsContribution, error)

	// GetByCollectionTransaction finds the contribution funded by a C2B transaction
	GetByCollectionTransaction(ctx context.Context, transactionID int64) (*models.SavingsContribution, error)

	// GetByPensionTransaction finds the contribution whose pension leg is a B2B transaction
	GetByPensionTransaction(ctx context.Context, transactionID int64) (*models.SavingsContribution, error)

	// MarkVSLAApplied sets vsla_applied_at if unset, reporting whether it changed
	MarkVSLAApplied(ctx context.Context, id int64, at time.Time) (bool, error)

	// MarkVSLAReversed sets vsla_reversed_at if unset, reporting whether it changed
	MarkVSLAReversed(ctx context.Context, id int64, at time.Time) (bool, error)

	// MarkCollectionConfirmed sets collection_confirmed_at if unset, reporting whether it changed
	MarkCollectionConfirmed(ctx context.Context, id int64, at time.Time) (bool, error)

	// MarkPensionSettled sets pension_settled_at if unset, reporting whether it changed
	MarkPensionSettled(ctx context.Context, id int64, at time.Time) (bool, error)
}

// PensionRepository defines the interface for pension account and provider data access
type PensionRepository interface {
	// GetAccountByMemberID retrieves the member's pension account
	GetAccountByMemberID(ctx context.Context, memberID int64) (*models.PensionAccount, error)

	// CreateAccount opens a pension account
	CreateAccount(ctx context.Context, account *models.PensionAccount) error

	// AddToTotal credits the accumulated pension total
	AddToTotal(ctx context.Context, memberID int64, amount decimal.Decimal) error

	// GetProvider retrieves a pension provider
	GetProvider(ctx context.Context, id int64) (*models.PensionProvider, error)

	// CreateProvider registers a pension provider
	CreateProvider(ctx context.Context, provider *models.PensionProvider) error
}

// LoanRepository defines the interface for loan data access
type LoanRepository interface {
	// Create inserts a new loan
	Create(ctx context.Context, loan *models.LoanAccount) error

	// GetByID retrieves a loan by ID
	GetByID(ctx context.Context, id int64) (*models.LoanAccount, error)

	// GetByIDForUpdate retrieves a loan and locks its row for the rest of the transaction
	GetByIDForUpdate(ctx context.Context, id int64) (*models.LoanAccount, error)

	// GetByDisbursementTransaction finds the loan a B2C transaction disburses
	GetByDisbursementTransaction(ctx context.Context, transactionID int64) (*models.LoanAccount, error)

	// Update persists loan state if its status is still expectedStatus.
	// It reports false when another writer moved the loan first.
	Update(ctx context.Context, loan *models.LoanAccount, expectedStatus models.LoanStatus) (bool, error)
}

// GuarantorRepository defines the interface for guarantor data access
type GuarantorRepository interface {
	// Create inserts a guarantor slot
	Create(ctx context.Context, guarantor *models.Guarantor) error

	// GetByID retrieves a guarantor by ID
	GetByID(ctx context.Context, id int64) (*models.Guarantor, error)

	// ListActiveByLoan returns the loan's non-replaced guarantors
	ListActiveByLoan(ctx context.Context, loanID int64) ([]*models.Guarantor, error)

	// ListByLoan returns every guarantor slot of the loan, including replaced ones
	ListByLoan(ctx context.Context, loanID int64) ([]*models.Guarantor, error)

	// Respond writes a response if the guarantor is still Pending
	Respond(ctx context.Context, id int64, status models.GuarantorStatus, at time.Time) (bool, error)

	// MarkReplaced retires a guarantor slot if it is still active
	MarkReplaced(ctx context.Context, id int64, at time.Time) (bool, error)

	// ExpirePendingBefore expires every active Pending guarantor created before cutoff
	ExpirePendingBefore(ctx context.Context, cutoff time.Time) ([]*models.Guarantor, error)
}

// RepaymentRepository defines the interface for loan repayment data access
type RepaymentRepository interface {
	// Create inserts a repayment
	Create(ctx context.Context, repayment *models.LoanRepayment) error

	// GetByTransaction finds the repayment collected by a transaction
	GetByTransaction(ctx context.Context, transactionID int64) (*models.LoanRepayment, error)

	// UpdateStatus moves a repayment from one status to another, reporting whether it changed
	UpdateStatus(ctx context.Context, id int64, from, to models.RepaymentStatus, at time.Time) (bool, error)
}

// TransactionRepository defines the interface for gateway transaction data access
type TransactionRepository interface {
	// Create inserts a transaction in the initiated status
	Create(ctx context.Context, tx *models.Transaction) error

	// GetByID retrieves a transaction by ID
	GetByID(ctx context.Context, id int64) (*models.Transaction, error)

	// GetByIDForUpdate retrieves a transaction and locks its row
	GetByIDForUpdate(ctx context.Context, id int64) (*models.Transaction, error)

	// FindForCallback locks the transaction of txType matching the core reference or gateway correlation id
	FindForCallback(ctx context.Context, txType models.TransactionType, reference, correlationID string) (*models.Transaction, error)

	// ClaimDispatch marks an initiated transaction as sent to the gateway, at most once
	ClaimDispatch(ctx context.Context, id int64, at time.Time) (bool, error)

	// ListUndispatched returns initiated transactions created before cutoff that were never sent
	ListUndispatched(ctx context.Context, cutoff time.Time, limit int) ([]*models.Transaction, error)

	// MarkProcessing moves an initiated transaction to processing; an empty correlation id stays unset
	MarkProcessing(ctx context.Context, id int64, correlationID string) (bool, error)

	// SetCorrelationID fills the correlation id if it is still unset
	SetCorrelationID(ctx context.Context, id int64, correlationID string) error

	// Settle writes a terminal status if the transaction is not terminal yet
	Settle(ctx context.Context, tx *models.Transaction) (bool, error)
}

// InterestRunRepository defines the interface for daily interest run bookkeeping
type InterestRunRepository interface {
	// GetByDate returns the run for a calendar day, if any
	GetByDate(ctx context.Context, date time.Time) (*models.InterestRun, error)

	// Create records a run
	Create(ctx context.Context, run *models.InterestRun) error

	// GetLatest returns the most recent run
	GetLatest(ctx context.Context) (*models.InterestRun, error)
}

// EventPublisher publishes domain events
type EventPublisher interface {
	Publish(event events.Event)
}

// UnitOfWork groups repositories under a single database transaction
type UnitOfWork interface {
	Begin(ctx context.Context) error
	Commit() error
	Rollback() error

	MemberRepository() MemberRepository
	SavingsAccountRepository() SavingsAccountRepository
	SavingsBalanceHistoryRepository() SavingsBalanceHistoryRepository
	ContributionRepository() ContributionRepository
	PensionRepository() PensionRepository
	LoanRepository() LoanRepository
	GuarantorRepository() GuarantorRepository
	RepaymentRepository() RepaymentRepository
	TransactionRepository() TransactionRepository
	InterestRunRepository() InterestRunRepository
	EventBus() EventPublisher
}

// UnitOfWorkFactory creates units of work
type UnitOfWorkFactory interface {
	Create() UnitOfWork
}

// PaymentGateway initiates mobile-money operations. Each call returns the
// gateway-issued correlation id, or an error meaning initiation failed.
type PaymentGateway interface {
	// InitiateCollection asks a member to pay (C2B)
	InitiateCollection(ctx context.Context, req models.GatewayRequest) (string, error)

	// InitiateDisbursement pays a member (B2C)
	InitiateDisbursement(ctx context.Context, req models.GatewayRequest) (string, error)

	// InitiateTransfer pays another business by paybill (B2B)
	InitiateTransfer(ctx context.Context, req models.GatewayRequest) (string, error)
}

// Notifier delivers notifications to members or the operations team
type Notifier interface {
	Notify(ctx context.Context, notification models.Notification) error
}

// EffectExecutor applies effects after their unit of work has committed
type EffectExecutor interface {
	// Execute applies effects in order and returns the dispatched transactions
	Execute(ctx context.Context, effects []domain.Effect) []*models.Transaction
}

// TransactionLedger owns the transaction lifecycle
type TransactionLedger interface {
	// Open creates an initiated transaction with a fresh core reference inside uow
	Open(ctx context.Context, uow UnitOfWork, newTx models.NewTransaction) (*models.Transaction, error)

	// Dispatch sends an initiated transaction to the gateway outside any database transaction
	Dispatch(ctx context.Context, transactionID int64) (*models.Transaction, []domain.Effect, error)

	// Settle finalizes a locked transaction and applies its purpose effects inside uow
	Settle(ctx context.Context, uow UnitOfWork, tx *models.Transaction, status models.TransactionStatus, resultCode int, resultDesc string) (*models.Transaction, []domain.Effect, error)
}

// CreateLoanRequest carries a loan application
type CreateLoanRequest struct {
	MemberID           int64
	Amount             decimal.Decimal
	TimelineMonths     int
	Reason             models.LoanReason
	RepaymentFrequency models.RepaymentFrequency
	GuarantorMemberIDs []int64
}

// DisbursementResult is returned when a loan disbursement is initiated
type DisbursementResult struct {
	Loan        *models.LoanAccount `json:"loan"`
	Transaction *models.Transaction `json:"transaction"`
}

// RepaymentResult is returned when a loan repayment is initiated
type RepaymentResult struct {
	Repayment   *models.LoanRepayment `json:"repayment"`
	Transaction *models.Transaction   `json:"transaction"`
}

// LoanService defines the loan workflow operations
type LoanService interface {
	// CreateLoan applies for a loan with exactly two guarantors
	CreateLoan(ctx context.Context, req CreateLoanRequest) (*models.LoanDetail, error)

	// GetLoan returns the loan, its guarantors and any required follow-up
	GetLoan(ctx context.Context, loanID int64) (*models.LoanDetail, error)

	// RespondAsGuarantor records a guarantor's approve or reject
	RespondAsGuarantor(ctx context.Context, guarantorID int64, action models.GuarantorAction) (*models.Guarantor, error)

	// ReplaceGuarantor fills a rejected or expired guarantor slot
	ReplaceGuarantor(ctx context.Context, loanID, guarantorID, newMemberID int64) (*models.Guarantor, error)

	// DecideLoan applies a manager's approve or reject
	DecideLoan(ctx context.Context, loanID int64, action domain.ManagerAction, reason string) (*models.LoanAccount, error)

	// DisburseLoan sends an approved loan to the member's phone
	DisburseLoan(ctx context.Context, loanID int64) (*DisbursementResult, error)

	// RepayLoan collects a repayment from the member's phone
	RepayLoan(ctx context.Context, loanID int64, amount decimal.Decimal, phone string) (*RepaymentResult, error)
}

// ContributionRequest carries a savings contribution
type ContributionRequest struct {
	MemberID int64
	Amount   decimal.Decimal
	// PhoneNumber, when set, collects the contribution by mobile money
	PhoneNumber string
}

// ContributionService defines contribution settlement
type ContributionService interface {
	// Contribute splits a contribution and credits the member's savings
	Contribute(ctx context.Context, req ContributionRequest) (*models.ContributionResult, error)
}

// CallbackReconciler defines gateway callback reconciliation
type CallbackReconciler interface {
	// Reconcile applies a gateway callback exactly once
	Reconcile(ctx context.Context, callback models.GatewayCallback) (*models.CallbackResult, error)
}

// GuarantorExpiryService defines the stale guarantor sweep
type GuarantorExpiryService interface {
	// ExpireStale expires pending guarantors older than the response window
	ExpireStale(ctx context.Context) (int, error)
}

// RedispatchService defines the sweep for transactions whose dispatch never ran
type RedispatchService interface {
	// RedispatchStale dispatches initiated transactions that were never sent to the gateway
	RedispatchStale(ctx context.Context) (int, error)
}

// InterestService defines savings interest application
type InterestService interface {
	// ApplyDailyInterest credits one day of interest, at most once per calendar day
	ApplyDailyInterest(ctx context.Context, day time.Time) (*models.InterestRun, error)
}
