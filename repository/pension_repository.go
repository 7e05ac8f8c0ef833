package repository

import (
	"context"
	"fmt"

	"sacco/database"
	"sacco/models"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// PensionRepository implements the PensionRepository interface
type PensionRepository struct {
	q queryable
}

// NewPensionRepository creates a new pension repository
func NewPensionRepository(db *database.DB) *PensionRepository {
	return &PensionRepository{q: db.Pool}
}

// newPensionRepositoryWithTx creates a new pension repository with a transaction
func newPensionRepositoryWithTx(tx queryable) *PensionRepository {
	return &PensionRepository{q: tx}
}

// GetAccountByMemberID retrieves the member's pension account
func (r *PensionRepository) GetAccountByMemberID(ctx context.Context, memberID int64) (*models.PensionAccount, error) {
	query := `
		SELECT id, member_id, opted_in, contribution_percentage, total_pension_amount,
		       provider_id, created_at, updated_at
		FROM pension_accounts
		WHERE member_id = $1
	`

	var account models.PensionAccount
	err := r.q.QueryRow(ctx, query, memberID).Scan(
		&account.ID,
		&account.MemberID,
		&account.OptedIn,
		&account.ContributionPercentage,
		&account.TotalPensionAmount,
		&account.ProviderID,
		&account.CreatedAt,
		&account.UpdatedAt,
	)

	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get pension account for member %d: %w", memberID, err)
	}

	return &account, nil
}

// CreateAccount opens a pension account
func (r *PensionRepository) CreateAccount(ctx context.Context, account *models.PensionAccount) error {
	query := `
		INSERT INTO pension_accounts (member_id, opted_in, contribution_percentage, total_pension_amount, provider_id)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at
	`

	err := r.q.QueryRow(ctx, query,
		account.MemberID,
		account.OptedIn,
		account.ContributionPercentage,
		account.TotalPensionAmount,
		account.ProviderID,
	).Scan(&account.ID, &account.CreatedAt, &account.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create pension account for member %d: %w", account.MemberID, err)
	}

	return nil
}

// AddToTotal credits the accumulated pension total
func (r *PensionRepository) AddToTotal(ctx context.Context, memberID int64, amount decimal.Decimal) error {
	query := `
		UPDATE pension_accounts
		SET total_pension_amount = total_pension_amount + $2, updated_at = NOW()
		WHERE member_id = $1
	`

	result, err := r.q.Exec(ctx, query, memberID, amount)
	if err != nil {
		return fmt.Errorf("failed to credit pension for member %d: %w", memberID, err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("pension account for member %d not found", memberID)
	}

	return nil
}

// GetProvider retrieves a pension provider
func (r *PensionRepository) GetProvider(ctx context.Context, id int64) (*models.PensionProvider, error) {
	query := `SELECT id, name, paybill, status, created_at FROM pension_providers WHERE id = $1`

	var provider models.PensionProvider
	err := r.q.QueryRow(ctx, query, id).Scan(
		&provider.ID,
		&provider.Name,
		&provider.Paybill,
		&provider.Status,
		&provider.CreatedAt,
	)

	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get pension provider %d: %w", id, err)
	}

	return &provider, nil
}

// CreateProvider registers a pension provider
func (r *PensionRepository) CreateProvider(ctx context.Context, provider *models.PensionProvider) error {
	if provider.Status == "" {
		provider.Status = models.PensionProviderStatusActive
	}

	query := `
		INSERT INTO pension_providers (name, paybill, status)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`

	err := r.q.QueryRow(ctx, query, provider.Name, provider.Paybill, provider.Status).Scan(&provider.ID, &provider.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create pension provider %s: %w", provider.Name, err)
	}

	return nil
}
