package repository

import (
	"context"
	"fmt"
	"time"

	"sacco/database"
	"sacco/models"

	"github.com/jackc/pgx/v5"
)

// TransactionRepository implements the TransactionRepository interface
type TransactionRepository struct {
	q queryable
}

// NewTransactionRepository creates a new transaction repository
func NewTransactionRepository(db *database.DB) *TransactionRepository {
	return &TransactionRepository{q: db.Pool}
}

// newTransactionRepositoryWithTx creates a new transaction repository with a transaction
func newTransactionRepositoryWithTx(tx queryable) *TransactionRepository {
	return &TransactionRepository{q: tx}
}

const transactionColumns = `
	id, reference::text, correlation_id, transaction_type, purpose, status, amount, party,
	description, member_id, result_code, result_desc, created_at, updated_at, dispatched_at,
	completed_at`

func scanTransaction(row pgx.Row) (*models.Transaction, error) {
	var tx models.Transaction
	err := row.Scan(
		&tx.ID,
		&tx.Reference,
		&tx.CorrelationID,
		&tx.Type,
		&tx.Purpose,
		&tx.Status,
		&tx.Amount,
		&tx.Party,
		&tx.Description,
		&tx.MemberID,
		&tx.ResultCode,
		&tx.ResultDesc,
		&tx.CreatedAt,
		&tx.UpdatedAt,
		&tx.DispatchedAt,
		&tx.CompletedAt,
	)
	if err != nil {
		return nil, err
	}
	return &tx, nil
}

// Create inserts a transaction in the initiated status
func (r *TransactionRepository) Create(ctx context.Context, tx *models.Transaction) error {
	tx.Status = models.TransactionStatusInitiated

	query := `
		INSERT INTO transactions
		(reference, transaction_type, purpose, status, amount, party, description, member_id)
		VALUES ($1::text::uuid, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at, updated_at
	`

	err := r.q.QueryRow(ctx, query,
		tx.Reference,
		tx.Type,
		tx.Purpose,
		tx.Status,
		tx.Amount,
		tx.Party,
		tx.Description,
		tx.MemberID,
	).Scan(&tx.ID, &tx.CreatedAt, &tx.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create %s transaction %s: %w", tx.Type, tx.Reference, err)
	}

	return nil
}

// GetByID retrieves a transaction by ID
func (r *TransactionRepository) GetByID(ctx context.Context, id int64) (*models.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE id = $1`

	tx, err := scanTransaction(r.q.QueryRow(ctx, query, id))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction %d: %w", id, err)
	}

	return tx, nil
}

// GetByIDForUpdate retrieves a transaction and locks its row
func (r *TransactionRepository) GetByIDForUpdate(ctx context.Context, id int64) (*models.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE id = $1 FOR UPDATE`

	tx, err := scanTransaction(r.q.QueryRow(ctx, query, id))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock transaction %d: %w", id, err)
	}

	return tx, nil
}

// FindForCallback locks the transaction of txType matching the core reference or
// gateway correlation id. The reference wins when both are present.
func (r *TransactionRepository) FindForCallback(ctx context.Context, txType models.TransactionType, reference, correlationID string) (*models.Transaction, error) {
	query := `
		SELECT ` + transactionColumns + `
		FROM transactions
		WHERE transaction_type = $1
		  AND (($2 <> '' AND reference::text = $2) OR ($3 <> '' AND correlation_id = $3))
		ORDER BY (reference::text = $2) DESC
		LIMIT 1
		FOR UPDATE
	`

	tx, err := scanTransaction(r.q.QueryRow(ctx, query, txType, reference, correlationID))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find %s transaction for callback (ref=%q, correlation=%q): %w",
			txType, reference, correlationID, err)
	}

	return tx, nil
}

// ClaimDispatch records that an initiated transaction is being sent to the gateway.
// Only one caller can claim a transaction.
func (r *TransactionRepository) ClaimDispatch(ctx context.Context, id int64, at time.Time) (bool, error) {
	query := `
		UPDATE transactions
		SET dispatched_at = $2, updated_at = $2
		WHERE id = $1 AND status = 'initiated' AND dispatched_at IS NULL
	`

	result, err := r.q.Exec(ctx, query, id, at)
	if err != nil {
		return false, fmt.Errorf("failed to claim transaction %d for dispatch: %w", id, err)
	}

	return result.RowsAffected() == 1, nil
}

// ListUndispatched returns initiated transactions created before cutoff that were never sent
func (r *TransactionRepository) ListUndispatched(ctx context.Context, cutoff time.Time, limit int) ([]*models.Transaction, error) {
	query := `
		SELECT ` + transactionColumns + `
		FROM transactions
		WHERE status = 'initiated' AND dispatched_at IS NULL AND created_at < $1
		ORDER BY created_at
		LIMIT $2
	`

	rows, err := r.q.Query(ctx, query, cutoff, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list undispatched transactions: %w", err)
	}
	defer rows.Close()

	var transactions []*models.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		transactions = append(transactions, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate transactions: %w", err)
	}

	return transactions, nil
}

// MarkProcessing moves an initiated transaction to processing. An empty
// correlationID leaves it unset for the callback to fill in.
func (r *TransactionRepository) MarkProcessing(ctx context.Context, id int64, correlationID string) (bool, error) {
	query := `
		UPDATE transactions
		SET status = 'processing', correlation_id = NULLIF($2, ''), updated_at = NOW()
		WHERE id = $1 AND status = 'initiated'
	`

	result, err := r.q.Exec(ctx, query, id, correlationID)
	if err != nil {
		return false, fmt.Errorf("failed to mark transaction %d processing: %w", id, err)
	}

	return result.RowsAffected() == 1, nil
}

// SetCorrelationID fills the correlation id if it is still unset
func (r *TransactionRepository) SetCorrelationID(ctx context.Context, id int64, correlationID string) error {
	query := `
		UPDATE transactions
		SET correlation_id = $2, updated_at = NOW()
		WHERE id = $1 AND correlation_id IS NULL
	`

	if _, err := r.q.Exec(ctx, query, id, correlationID); err != nil {
		return fmt.Errorf("failed to set correlation id on transaction %d: %w", id, err)
	}

	return nil
}

// Settle writes a terminal status if the transaction is not terminal yet
func (r *TransactionRepository) Settle(ctx context.Context, tx *models.Transaction) (bool, error) {
	query := `
		UPDATE transactions
		SET status = $2, result_code = $3, result_desc = $4, completed_at = $5, updated_at = $5
		WHERE id = $1 AND status IN ('initiated', 'processing')
	`

	result, err := r.q.Exec(ctx, query, tx.ID, tx.Status, tx.ResultCode, tx.ResultDesc, tx.CompletedAt)
	if err != nil {
		return false, fmt.Errorf("failed to settle transaction %d: %w", tx.ID, err)
	}

	return result.RowsAffected() == 1, nil
}
