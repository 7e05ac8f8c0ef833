package testutil

import (
	"context"
	"testing"
	"time"

	"sacco/database"
	"sacco/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

// Money parses a decimal literal, panicking on bad input
func Money(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// SeedMember inserts a member and a savings account holding balance
func SeedMember(t *testing.T, db *database.DB, name string, balance decimal.Decimal) (*models.Member, *models.SavingsAccount) {
	t.Helper()
	ctx := context.Background()

	member := &models.Member{FullName: name, PhoneNumber: "254700000000"}
	err := db.QueryRow(ctx,
		`INSERT INTO members (full_name, phone_number) VALUES ($1, $2) RETURNING id, created_at`,
		member.FullName, member.PhoneNumber,
	).Scan(&member.ID, &member.CreatedAt)
	require.NoError(t, err)

	account := &models.SavingsAccount{MemberID: member.ID, Balance: balance}
	err = db.QueryRow(ctx,
		`INSERT INTO savings_accounts (member_id, balance) VALUES ($1, $2) RETURNING id, interest_accrued, created_at, updated_at`,
		member.ID, balance,
	).Scan(&account.ID, &account.InterestAccrued, &account.CreatedAt, &account.UpdatedAt)
	require.NoError(t, err)

	return member, account
}

// SeedPension opts a member into a pension provider at pct percent
func SeedPension(t *testing.T, db *database.DB, memberID int64, pct decimal.Decimal, providerStatus models.PensionProviderStatus) *models.PensionProvider {
	t.Helper()
	ctx := context.Background()

	provider := &models.PensionProvider{Name: "Test Pension Scheme", Paybill: "600100", Status: providerStatus}
	err := db.QueryRow(ctx,
		`INSERT INTO pension_providers (name, paybill, status) VALUES ($1, $2, $3) RETURNING id, created_at`,
		provider.Name, provider.Paybill, provider.Status,
	).Scan(&provider.ID, &provider.CreatedAt)
	require.NoError(t, err)

	_, err = db.Exec(ctx,
		`INSERT INTO pension_accounts (member_id, opted_in, contribution_percentage, provider_id) VALUES ($1, TRUE, $2, $3)`,
		memberID, pct, provider.ID,
	)
	require.NoError(t, err)

	return provider
}

// CreateTestLoan creates an unsaved draft loan with default terms
func CreateTestLoan(memberID int64, amount decimal.Decimal) *models.LoanAccount {
	now := time.Now().UTC()
	return &models.LoanAccount{
		MemberID:           memberID,
		RequestedAmount:    amount,
		InterestRate:       Money("5.00"),
		TimelineMonths:     12,
		Reason:             models.LoanReasonPersonal,
		RepaymentFrequency: models.RepaymentFrequencyMonthly,
		Status:             models.LoanStatusDraft,
		TotalRepaid:        decimal.Zero,
		RequestedAt:        now,
		UpdatedAt:          now,
	}
}

// CreateTestGuarantor creates an unsaved pending guarantor
func CreateTestGuarantor(loanID, memberID int64, createdAt time.Time) *models.Guarantor {
	return &models.Guarantor{
		LoanID:    loanID,
		MemberID:  memberID,
		Status:    models.GuarantorStatusPending,
		CreatedAt: createdAt,
	}
}

// CreateTestTransaction creates an unsaved transaction with a fresh reference
func CreateTestTransaction(memberID int64, txType models.TransactionType, purpose models.TransactionPurpose, amount decimal.Decimal) *models.Transaction {
	return &models.Transaction{
		Reference:   uuid.NewString(),
		Type:        txType,
		Purpose:     purpose,
		Amount:      amount,
		Party:       "254700000000",
		Description: "test transaction",
		MemberID:    memberID,
	}
}

// CreateTestInterestRun creates a test interest run
func CreateTestInterestRun(runDate time.Time) *models.InterestRun {
	return &models.InterestRun{
		RunDate:                  runDate,
		TotalInterestDistributed: Money("50.00"),
		AccountsAffected:         10,
		ExecutionSummary: map[string]interface{}{
			"annual_rate":     "2.5",
			"accounts_listed": 12,
		},
	}
}

// CreateTestInterestRunWithDetails creates a test interest run with specific values
func CreateTestInterestRunWithDetails(runDate time.Time, totalInterest decimal.Decimal, accountsAffected int) *models.InterestRun {
	run := CreateTestInterestRun(runDate)
	run.TotalInterestDistributed = totalInterest
	run.AccountsAffected = accountsAffected
	return run
}
