package repository

import (
	"context"
	"fmt"

	"sacco/database"
	"sacco/models"

	"github.com/jackc/pgx/v5"
)

// LoanRepository implements the LoanRepository interface
type LoanRepository struct {
	q queryable
}

// NewLoanRepository creates a new loan repository
func NewLoanRepository(db *database.DB) *LoanRepository {
	return &LoanRepository{q: db.Pool}
}

// newLoanRepositoryWithTx creates a new loan repository with a transaction
func newLoanRepositoryWithTx(tx queryable) *LoanRepository {
	return &LoanRepository{q: tx}
}

const loanColumns = `
	id, member_id, requested_amount, interest_rate, timeline_months, loan_reason,
	repayment_frequency, status, total_repaid, rejection_reason, disbursement_transaction_id,
	requested_at, approved_at, disbursed_at, completed_at, repayment_due_date, updated_at`

func scanLoan(row pgx.Row) (*models.LoanAccount, error) {
	var loan models.LoanAccount
	err := row.Scan(
		&loan.ID,
		&loan.MemberID,
		&loan.RequestedAmount,
		&loan.InterestRate,
		&loan.TimelineMonths,
		&loan.Reason,
		&loan.RepaymentFrequency,
		&loan.Status,
		&loan.TotalRepaid,
		&loan.RejectionReason,
		&loan.DisbursementTransactionID,
		&loan.RequestedAt,
		&loan.ApprovedAt,
		&loan.DisbursedAt,
		&loan.CompletedAt,
		&loan.RepaymentDueDate,
		&loan.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &loan, nil
}

// Create inserts a new loan
func (r *LoanRepository) Create(ctx context.Context, loan *models.LoanAccount) error {
	query := `
		INSERT INTO loan_accounts
		(member_id, requested_amount, interest_rate, timeline_months, loan_reason,
		 repayment_frequency, status, total_repaid, requested_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $9)
		RETURNING id
	`

	err := r.q.QueryRow(ctx, query,
		loan.MemberID,
		loan.RequestedAmount,
		loan.InterestRate,
		loan.TimelineMonths,
		loan.Reason,
		loan.RepaymentFrequency,
		loan.Status,
		loan.TotalRepaid,
		loan.RequestedAt,
	).Scan(&loan.ID)
	if err != nil {
		return fmt.Errorf("failed to create loan for member %d: %w", loan.MemberID, err)
	}

	return nil
}

// GetByID retrieves a loan by ID
func (r *LoanRepository) GetByID(ctx context.Context, id int64) (*models.LoanAccount, error) {
	query := `SELECT ` + loanColumns + ` FROM loan_accounts WHERE id = $1`

	loan, err := scanLoan(r.q.QueryRow(ctx, query, id))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get loan %d: %w", id, err)
	}

	return loan, nil
}

// GetByIDForUpdate retrieves a loan and locks its row for the rest of the transaction
func (r *LoanRepository) GetByIDForUpdate(ctx context.Context, id int64) (*models.LoanAccount, error) {
	query := `SELECT ` + loanColumns + ` FROM loan_accounts WHERE id = $1 FOR UPDATE`

	loan, err := scanLoan(r.q.QueryRow(ctx, query, id))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock loan %d: %w", id, err)
	}

	return loan, nil
}

// GetByDisbursementTransaction finds the loan a B2C transaction disburses
func (r *LoanRepository) GetByDisbursementTransaction(ctx context.Context, transactionID int64) (*models.LoanAccount, error) {
	query := `SELECT ` + loanColumns + ` FROM loan_accounts WHERE disbursement_transaction_id = $1 FOR UPDATE`

	loan, err := scanLoan(r.q.QueryRow(ctx, query, transactionID))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get loan for disbursement transaction %d: %w", transactionID, err)
	}

	return loan, nil
}

// Update persists loan state if its status is still expectedStatus
func (r *LoanRepository) Update(ctx context.Context, loan *models.LoanAccount, expectedStatus models.LoanStatus) (bool, error) {
	query := `
		UPDATE loan_accounts
		SET status = $3,
		    total_repaid = $4,
		    rejection_reason = $5,
		    disbursement_transaction_id = $6,
		    approved_at = $7,
		    disbursed_at = $8,
		    completed_at = $9,
		    repayment_due_date = $10,
		    updated_at = $11
		WHERE id = $1 AND status = $2
	`

	result, err := r.q.Exec(ctx, query,
		loan.ID,
		expectedStatus,
		loan.Status,
		loan.TotalRepaid,
		loan.RejectionReason,
		loan.DisbursementTransactionID,
		loan.ApprovedAt,
		loan.DisbursedAt,
		loan.CompletedAt,
		loan.RepaymentDueDate,
		loan.UpdatedAt,
	)
	if err != nil {
		return false, fmt.Errorf("failed to update loan %d: %w", loan.ID, err)
	}

	return result.RowsAffected() == 1, nil
}
