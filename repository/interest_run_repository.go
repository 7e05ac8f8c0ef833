package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"sacco/database"
	"sacco/models"

	"github.com/jackc/pgx/v5"
)

// InterestRunRepository implements the InterestRunRepository interface
type InterestRunRepository struct {
	q queryable
}

// NewInterestRunRepository creates a new interest run repository
func NewInterestRunRepository(db *database.DB) *InterestRunRepository {
	return &InterestRunRepository{q: db.Pool}
}

// newInterestRunRepositoryWithTx creates a new interest run repository with a transaction
func newInterestRunRepositoryWithTx(tx queryable) *InterestRunRepository {
	return &InterestRunRepository{q: tx}
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func scanInterestRun(row pgx.Row) (*models.InterestRun, error) {
	var run models.InterestRun
	var summaryJSON []byte

	err := row.Scan(
		&run.ID,
		&run.RunDate,
		&run.TotalInterestDistributed,
		&run.AccountsAffected,
		&summaryJSON,
		&run.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(summaryJSON) > 0 {
		if err := json.Unmarshal(summaryJSON, &run.ExecutionSummary); err != nil {
			return nil, fmt.Errorf("failed to unmarshal execution summary: %w", err)
		}
	}

	return &run, nil
}

// GetByDate checks if an interest run exists for a specific date
func (r *InterestRunRepository) GetByDate(ctx context.Context, date time.Time) (*models.InterestRun, error) {
	dateOnly := startOfDay(date)

	query := `
		SELECT id, run_date, total_interest_distributed, accounts_affected,
		       execution_summary, created_at
		FROM interest_runs
		WHERE run_date = $1
	`

	run, err := scanInterestRun(r.q.QueryRow(ctx, query, dateOnly))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get interest run for date %s: %w", dateOnly.Format("2006-01-02"), err)
	}

	return run, nil
}

// Create creates a new interest run record
func (r *InterestRunRepository) Create(ctx context.Context, run *models.InterestRun) error {
	run.RunDate = startOfDay(run.RunDate)

	summaryJSON, err := json.Marshal(run.ExecutionSummary)
	if err != nil {
		return fmt.Errorf("failed to marshal execution summary: %w", err)
	}

	query := `
		INSERT INTO interest_runs
		(run_date, total_interest_distributed, accounts_affected, execution_summary)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`

	err = r.q.QueryRow(ctx, query,
		run.RunDate,
		run.TotalInterestDistributed,
		run.AccountsAffected,
		summaryJSON,
	).Scan(&run.ID, &run.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to create interest run for date %s: %w",
			run.RunDate.Format("2006-01-02"), err)
	}

	return nil
}

// GetLatest returns the most recent interest run
func (r *InterestRunRepository) GetLatest(ctx context.Context) (*models.InterestRun, error) {
	query := `
		SELECT id, run_date, total_interest_distributed, accounts_affected,
		       execution_summary, created_at
		FROM interest_runs
		ORDER BY run_date DESC
		LIMIT 1
	`

	run, err := scanInterestRun(r.q.QueryRow(ctx, query))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest interest run: %w", err)
	}

	return run, nil
}
