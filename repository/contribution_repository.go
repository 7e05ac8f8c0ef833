package repository

import (
	"context"
	"fmt"
	"time"

	"sacco/database"
	"sacco/models"

	"github.com/jackc/pgx/v5"
)

// ContributionRepository implements the ContributionRepository interface
type ContributionRepository struct {
	q queryable
}

// NewContributionRepository creates a new contribution repository
func NewContributionRepository(db *database.DB) *ContributionRepository {
	return &ContributionRepository{q: db.Pool}
}

// newContributionRepositoryWithTx creates a new contribution repository with a transaction
func newContributionRepositoryWithTx(tx queryable) *ContributionRepository {
	return &ContributionRepository{q: tx}
}

const contributionColumns = `
	id, member_id, savings_account_id, contributed_amount, pension_amount, vsla_amount,
	collection_transaction_id, pension_transaction_id, created_at, completed_at,
	vsla_applied_at, vsla_reversed_at, collection_confirmed_at, pension_settled_at`

func scanContribution(row pgx.Row) (*models.SavingsContribution, error) {
	var c models.SavingsContribution
	err := row.Scan(
		&c.ID,
		&c.MemberID,
		&c.SavingsAccountID,
		&c.ContributedAmount,
		&c.PensionAmount,
		&c.VSLAAmount,
		&c.CollectionTransactionID,
		&c.PensionTransactionID,
		&c.CreatedAt,
		&c.CompletedAt,
		&c.VSLAAppliedAt,
		&c.VSLAReversedAt,
		&c.CollectionConfirmedAt,
		&c.PensionSettledAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// Create records a contribution
func (r *ContributionRepository) Create(ctx context.Context, c *models.SavingsContribution) error {
	query := `
		INSERT INTO savings_contributions
		(member_id, savings_account_id, contributed_amount, pension_amount, vsla_amount,
		 collection_transaction_id, pension_transaction_id, completed_at, vsla_applied_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at
	`

	err := r.q.QueryRow(ctx, query,
		c.MemberID,
		c.SavingsAccountID,
		c.ContributedAmount,
		c.PensionAmount,
		c.VSLAAmount,
		c.CollectionTransactionID,
		c.PensionTransactionID,
		c.CompletedAt,
		c.VSLAAppliedAt,
	).Scan(&c.ID, &c.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create contribution for member %d: %w", c.MemberID, err)
	}

	return nil
}

func (r *ContributionRepository) getOne(ctx context.Context, where string, arg int64) (*models.SavingsContribution, error) {
	query := `SELECT ` + contributionColumns + ` FROM savings_contributions WHERE ` + where
	c, err := scanContribution(r.q.QueryRow(ctx, query, arg))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	return c, err
}

// GetByID retrieves a contribution by ID
func (r *ContributionRepository) GetByID(ctx context.Context, id int64) (*models.SavingsContribution, error) {
	c, err := r.getOne(ctx, "id = $1", id)
	if err != nil {
		return nil, fmt.Errorf("failed to get contribution %d: %w", id, err)
	}
	return c, nil
}

// GetByCollectionTransaction finds the contribution funded by a C2B transaction
func (r *ContributionRepository) GetByCollectionTransaction(ctx context.Context, transactionID int64) (*models.SavingsContribution, error) {
	c, err := r.getOne(ctx, "collection_transaction_id = $1", transactionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get contribution for collection transaction %d: %w", transactionID, err)
	}
	return c, nil
}

// GetByPensionTransaction finds the contribution whose pension leg is a B2B transaction
func (r *ContributionRepository) GetByPensionTransaction(ctx context.Context, transactionID int64) (*models.SavingsContribution, error) {
	c, err := r.getOne(ctx, "pension_transaction_id = $1", transactionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get contribution for pension transaction %d: %w", transactionID, err)
	}
	return c, nil
}

// markOnce sets a nullable timestamp column only if it is still NULL
func (r *ContributionRepository) markOnce(ctx context.Context, column string, id int64, at time.Time) (bool, error) {
	query := fmt.Sprintf(`UPDATE savings_contributions SET %[1]s = $2 WHERE id = $1 AND %[1]s IS NULL`, column)

	result, err := r.q.Exec(ctx, query, id, at)
	if err != nil {
		return false, fmt.Errorf("failed to set %s on contribution %d: %w", column, id, err)
	}
	return result.RowsAffected() == 1, nil
}

// MarkVSLAApplied sets vsla_applied_at if unset, reporting whether it changed
func (r *ContributionRepository) MarkVSLAApplied(ctx context.Context, id int64, at time.Time) (bool, error) {
	return r.markOnce(ctx, "vsla_applied_at", id, at)
}

// MarkVSLAReversed sets vsla_reversed_at if unset, reporting whether it changed
func (r *ContributionRepository) MarkVSLAReversed(ctx context.Context, id int64, at time.Time) (bool, error) {
	return r.markOnce(ctx, "vsla_reversed_at", id, at)
}

// MarkCollectionConfirmed sets collection_confirmed_at if unset, reporting whether it changed
func (r *ContributionRepository) MarkCollectionConfirmed(ctx context.Context, id int64, at time.Time) (bool, error) {
	return r.markOnce(ctx, "collection_confirmed_at", id, at)
}

// MarkPensionSettled sets pension_settled_at if unset, reporting whether it changed
func (r *ContributionRepository) MarkPensionSettled(ctx context.Context, id int64, at time.Time) (bool, error) {
	return r.markOnce(ctx, "pension_settled_at", id, at)
}
