package repository

import (
	"context"
	"fmt"
	"time"

	"sacco/database"
	"sacco/models"

	"github.com/jackc/pgx/v5"
)

// RepaymentRepository implements the RepaymentRepository interface
type RepaymentRepository struct {
	q queryable
}

// NewRepaymentRepository creates a new repayment repository
func NewRepaymentRepository(db *database.DB) *RepaymentRepository {
	return &RepaymentRepository{q: db.Pool}
}

// newRepaymentRepositoryWithTx creates a new repayment repository with a transaction
func newRepaymentRepositoryWithTx(tx queryable) *RepaymentRepository {
	return &RepaymentRepository{q: tx}
}

// Create inserts a repayment
func (r *RepaymentRepository) Create(ctx context.Context, repayment *models.LoanRepayment) error {
	if repayment.Status == "" {
		repayment.Status = models.RepaymentStatusPending
	}

	query := `
		INSERT INTO loan_repayments (loan_id, amount, status, transaction_id)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`

	err := r.q.QueryRow(ctx, query,
		repayment.LoanID,
		repayment.Amount,
		repayment.Status,
		repayment.TransactionID,
	).Scan(&repayment.ID, &repayment.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create repayment for loan %d: %w", repayment.LoanID, err)
	}

	return nil
}

// GetByTransaction finds the repayment collected by a transaction
func (r *RepaymentRepository) GetByTransaction(ctx context.Context, transactionID int64) (*models.LoanRepayment, error) {
	query := `
		SELECT id, loan_id, amount, status, transaction_id, created_at, completed_at
		FROM loan_repayments
		WHERE transaction_id = $1
	`

	var repayment models.LoanRepayment
	err := r.q.QueryRow(ctx, query, transactionID).Scan(
		&repayment.ID,
		&repayment.LoanID,
		&repayment.Amount,
		&repayment.Status,
		&repayment.TransactionID,
		&repayment.CreatedAt,
		&repayment.CompletedAt,
	)

	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get repayment for transaction %d: %w", transactionID, err)
	}

	return &repayment, nil
}

// UpdateStatus moves a repayment from one status to another, reporting whether it changed
func (r *RepaymentRepository) UpdateStatus(ctx context.Context, id int64, from, to models.RepaymentStatus, at time.Time) (bool, error) {
	query := `
		UPDATE loan_repayments
		SET status = $3, completed_at = $4
		WHERE id = $1 AND status = $2
	`

	result, err := r.q.Exec(ctx, query, id, from, to, at)
	if err != nil {
		return false, fmt.Errorf("failed to update repayment %d: %w", id, err)
	}

	return result.RowsAffected() == 1, nil
}
