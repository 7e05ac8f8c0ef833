package repository

import (
	"context"
	"fmt"

	"sacco/database"
	"sacco/models"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// SavingsAccountRepository implements the SavingsAccountRepository interface
type SavingsAccountRepository struct {
	q queryable
}

// NewSavingsAccountRepository creates a new savings account repository
func NewSavingsAccountRepository(db *database.DB) *SavingsAccountRepository {
	return &SavingsAccountRepository{q: db.Pool}
}

// newSavingsAccountRepositoryWithTx creates a new savings account repository with a transaction
func newSavingsAccountRepositoryWithTx(tx queryable) *SavingsAccountRepository {
	return &SavingsAccountRepository{q: tx}
}

const savingsAccountColumns = `id, member_id, balance, interest_accrued, created_at, updated_at`

func scanSavingsAccount(row pgx.Row) (*models.SavingsAccount, error) {
	var account models.SavingsAccount
	err := row.Scan(
		&account.ID,
		&account.MemberID,
		&account.Balance,
		&account.InterestAccrued,
		&account.CreatedAt,
		&account.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &account, nil
}

// GetByMemberID retrieves the member's savings account
func (r *SavingsAccountRepository) GetByMemberID(ctx context.Context, memberID int64) (*models.SavingsAccount, error) {
	query := `SELECT ` + savingsAccountColumns + ` FROM savings_accounts WHERE member_id = $1`

	account, err := scanSavingsAccount(r.q.QueryRow(ctx, query, memberID))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get savings account for member %d: %w", memberID, err)
	}

	return account, nil
}

// GetByIDForUpdate retrieves a savings account and locks its row
func (r *SavingsAccountRepository) GetByIDForUpdate(ctx context.Context, id int64) (*models.SavingsAccount, error) {
	query := `SELECT ` + savingsAccountColumns + ` FROM savings_accounts WHERE id = $1 FOR UPDATE`

	account, err := scanSavingsAccount(r.q.QueryRow(ctx, query, id))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock savings account %d: %w", id, err)
	}

	return account, nil
}

// Create opens a savings account
func (r *SavingsAccountRepository) Create(ctx context.Context, account *models.SavingsAccount) error {
	query := `
		INSERT INTO savings_accounts (member_id, balance)
		VALUES ($1, $2)
		RETURNING id, interest_accrued, created_at, updated_at
	`

	err := r.q.QueryRow(ctx, query, account.MemberID, account.Balance).Scan(
		&account.ID,
		&account.InterestAccrued,
		&account.CreatedAt,
		&account.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create savings account for member %d: %w", account.MemberID, err)
	}

	return nil
}

// AddBalance adds amount (which may be negative) to the balance
func (r *SavingsAccountRepository) AddBalance(ctx context.Context, id int64, amount decimal.Decimal) error {
	query := `
		UPDATE savings_accounts
		SET balance = balance + $2, updated_at = NOW()
		WHERE id = $1
	`

	result, err := r.q.Exec(ctx, query, id, amount)
	if err != nil {
		return fmt.Errorf("failed to update savings balance for account %d: %w", id, err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("savings account %d not found", id)
	}

	return nil
}

// AddInterest adds amount to both the balance and the accrued interest
func (r *SavingsAccountRepository) AddInterest(ctx context.Context, id int64, amount decimal.Decimal) error {
	query := `
		UPDATE savings_accounts
		SET balance = balance + $2, interest_accrued = interest_accrued + $2, updated_at = NOW()
		WHERE id = $1
	`

	result, err := r.q.Exec(ctx, query, id, amount)
	if err != nil {
		return fmt.Errorf("failed to add interest to account %d: %w", id, err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("savings account %d not found", id)
	}

	return nil
}

// ListWithPositiveBalance returns every account holding money
func (r *SavingsAccountRepository) ListWithPositiveBalance(ctx context.Context) ([]*models.SavingsAccount, error) {
	query := `SELECT ` + savingsAccountColumns + ` FROM savings_accounts WHERE balance > 0 ORDER BY id`

	rows, err := r.q.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list savings accounts: %w", err)
	}
	defer rows.Close()

	var accounts []*models.SavingsAccount
	for rows.Next() {
		account, err := scanSavingsAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan savings account: %w", err)
		}
		accounts = append(accounts, account)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate savings accounts: %w", err)
	}

	return accounts, nil
}
