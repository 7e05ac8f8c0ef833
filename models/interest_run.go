package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// InterestRun represents one day's savings interest application
type InterestRun struct {
	ID                       int64                  `db:"id" json:"id"`
	RunDate                  time.Time              `db:"run_date" json:"run_date"`
	TotalInterestDistributed decimal.Decimal        `db:"total_interest_distributed" json:"total_interest_distributed"`
	AccountsAffected         int                    `db:"accounts_affected" json:"accounts_affected"`
	ExecutionSummary         map[string]interface{} `db:"execution_summary" json:"execution_summary,omitempty"`
	CreatedAt                time.Time              `db:"created_at" json:"created_at"`
}
