package repository

import (
	"context"
	"fmt"
	"time"

	"sacco/database"
	"sacco/models"

	"github.com/jackc/pgx/v5"
)

// GuarantorRepository implements the GuarantorRepository interface
type GuarantorRepository struct {
	q queryable
}

// NewGuarantorRepository creates a new guarantor repository
func NewGuarantorRepository(db *database.DB) *GuarantorRepository {
	return &GuarantorRepository{q: db.Pool}
}

// newGuarantorRepositoryWithTx creates a new guarantor repository with a transaction
func newGuarantorRepositoryWithTx(tx queryable) *GuarantorRepository {
	return &GuarantorRepository{q: tx}
}

const guarantorColumns = `id, loan_id, member_id, status, created_at, responded_at, replaced_at`

func scanGuarantor(row pgx.Row) (*models.Guarantor, error) {
	var g models.Guarantor
	err := row.Scan(
		&g.ID,
		&g.LoanID,
		&g.MemberID,
		&g.Status,
		&g.CreatedAt,
		&g.RespondedAt,
		&g.ReplacedAt,
	)
	if err != nil {
		return nil, err
	}
	return &g, nil
}

func collectGuarantors(rows pgx.Rows) ([]*models.Guarantor, error) {
	defer rows.Close()

	var guarantors []*models.Guarantor
	for rows.Next() {
		g, err := scanGuarantor(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan guarantor: %w", err)
		}
		guarantors = append(guarantors, g)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate guarantors: %w", err)
	}

	return guarantors, nil
}

// Create inserts a guarantor slot
func (r *GuarantorRepository) Create(ctx context.Context, g *models.Guarantor) error {
	query := `
		INSERT INTO guarantors (loan_id, member_id, status, created_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`

	err := r.q.QueryRow(ctx, query, g.LoanID, g.MemberID, g.Status, g.CreatedAt).Scan(&g.ID)
	if err != nil {
		return fmt.Errorf("failed to add guarantor %d to loan %d: %w", g.MemberID, g.LoanID, err)
	}

	return nil
}

// GetByID retrieves a guarantor by ID
func (r *GuarantorRepository) GetByID(ctx context.Context, id int64) (*models.Guarantor, error) {
	query := `SELECT ` + guarantorColumns + ` FROM guarantors WHERE id = $1`

	g, err := scanGuarantor(r.q.QueryRow(ctx, query, id))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get guarantor %d: %w", id, err)
	}

	return g, nil
}

// ListActiveByLoan returns the loan's non-replaced guarantors
func (r *GuarantorRepository) ListActiveByLoan(ctx context.Context, loanID int64) ([]*models.Guarantor, error) {
	query := `
		SELECT ` + guarantorColumns + `
		FROM guarantors
		WHERE loan_id = $1 AND replaced_at IS NULL
		ORDER BY id
	`

	rows, err := r.q.Query(ctx, query, loanID)
	if err != nil {
		return nil, fmt.Errorf("failed to list guarantors for loan %d: %w", loanID, err)
	}

	return collectGuarantors(rows)
}

// ListByLoan returns every guarantor slot the loan ever had, including replaced ones
func (r *GuarantorRepository) ListByLoan(ctx context.Context, loanID int64) ([]*models.Guarantor, error) {
	query := `
		SELECT ` + guarantorColumns + `
		FROM guarantors
		WHERE loan_id = $1
		ORDER BY id
	`

	rows, err := r.q.Query(ctx, query, loanID)
	if err != nil {
		return nil, fmt.Errorf("failed to list guarantor history for loan %d: %w", loanID, err)
	}

	return collectGuarantors(rows)
}

// Respond writes a response if the guarantor is still Pending
func (r *GuarantorRepository) Respond(ctx context.Context, id int64, status models.GuarantorStatus, at time.Time) (bool, error) {
	query := `
		UPDATE guarantors
		SET status = $2, responded_at = $3
		WHERE id = $1 AND status = 'Pending' AND replaced_at IS NULL
	`

	result, err := r.q.Exec(ctx, query, id, status, at)
	if err != nil {
		return false, fmt.Errorf("failed to record response for guarantor %d: %w", id, err)
	}

	return result.RowsAffected() == 1, nil
}

// MarkReplaced retires a guarantor slot if it is still active
func (r *GuarantorRepository) MarkReplaced(ctx context.Context, id int64, at time.Time) (bool, error) {
	query := `UPDATE guarantors SET replaced_at = $2 WHERE id = $1 AND replaced_at IS NULL`

	result, err := r.q.Exec(ctx, query, id, at)
	if err != nil {
		return false, fmt.Errorf("failed to retire guarantor %d: %w", id, err)
	}

	return result.RowsAffected() == 1, nil
}

// ExpirePendingBefore expires every active Pending guarantor created before cutoff.
// Rows locked by a concurrent response are skipped and picked up by the next sweep.
func (r *GuarantorRepository) ExpirePendingBefore(ctx context.Context, cutoff time.Time) ([]*models.Guarantor, error) {
	query := `
		UPDATE guarantors
		SET status = 'Expired', responded_at = NOW()
		WHERE id IN (
			SELECT id FROM guarantors
			WHERE status = 'Pending' AND replaced_at IS NULL AND created_at < $1
			FOR UPDATE SKIP LOCKED
		)
		RETURNING ` + guarantorColumns

	rows, err := r.q.Query(ctx, query, cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to expire guarantors created before %s: %w", cutoff.Format(time.RFC3339), err)
	}

	return collectGuarantors(rows)
}
