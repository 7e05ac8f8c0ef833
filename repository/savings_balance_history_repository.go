package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"sacco/database"
	"sacco/models"
)

// SavingsBalanceHistoryRepository implements the SavingsBalanceHistoryRepository interface
type SavingsBalanceHistoryRepository struct {
	q queryable
}

// NewSavingsBalanceHistoryRepository creates a new savings balance history repository
func NewSavingsBalanceHistoryRepository(db *database.DB) *SavingsBalanceHistoryRepository {
	return &SavingsBalanceHistoryRepository{q: db.Pool}
}

// newSavingsBalanceHistoryRepositoryWithTx creates a new savings balance history repository with a transaction
func newSavingsBalanceHistoryRepositoryWithTx(tx queryable) *SavingsBalanceHistoryRepository {
	return &SavingsBalanceHistoryRepository{q: tx}
}

// Record creates a new balance history entry
func (r *SavingsBalanceHistoryRepository) Record(ctx context.Context, history *models.SavingsBalanceHistory) error {
	metadataJSON, err := json.Marshal(history.ChangeMetadata)
	if err != nil {
		return fmt.Errorf("failed to marshal change metadata: %w", err)
	}

	query := `
		INSERT INTO savings_balance_history
		(savings_account_id, member_id, balance_before, balance_after, change_amount, change_type, change_metadata, related_id, related_type)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at
	`

	err = r.q.QueryRow(ctx, query,
		history.SavingsAccountID,
		history.MemberID,
		history.BalanceBefore,
		history.BalanceAfter,
		history.ChangeAmount,
		history.ChangeType,
		metadataJSON,
		history.RelatedID,
		history.RelatedType,
	).Scan(&history.ID, &history.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to record balance history for member %d: %w", history.MemberID, err)
	}

	return nil
}

// GetByAccount returns the most recent entries for an account
func (r *SavingsBalanceHistoryRepository) GetByAccount(ctx context.Context, savingsAccountID int64, limit int) ([]*models.SavingsBalanceHistory, error) {
	query := `
		SELECT id, savings_account_id, member_id, balance_before, balance_after, change_amount,
		       change_type, change_metadata, related_id, related_type, created_at
		FROM savings_balance_history
		WHERE savings_account_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`

	rows, err := r.q.Query(ctx, query, savingsAccountID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get balance history for account %d: %w", savingsAccountID, err)
	}
	defer rows.Close()

	var histories []*models.SavingsBalanceHistory
	for rows.Next() {
		var history models.SavingsBalanceHistory
		var metadataJSON []byte

		err := rows.Scan(
			&history.ID,
			&history.SavingsAccountID,
			&history.MemberID,
			&history.BalanceBefore,
			&history.BalanceAfter,
			&history.ChangeAmount,
			&history.ChangeType,
			&metadataJSON,
			&history.RelatedID,
			&history.RelatedType,
			&history.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan balance history: %w", err)
		}

		if len(metadataJSON) > 0 {
			if err := json.Unmarshal(metadataJSON, &history.ChangeMetadata); err != nil {
				return nil, fmt.Errorf("failed to unmarshal change metadata: %w", err)
			}
		}

		histories = append(histories, &history)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate balance history: %w", err)
	}

	return histories, nil
}
