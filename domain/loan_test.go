package domain

import (
	"testing"
	"time"

	"sacco/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func money(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func validApplication() LoanApplication {
	return LoanApplication{
		MemberID:           1,
		Amount:             money("1500.00"),
		InterestRate:       money("5.00"),
		TimelineMonths:     6,
		Reason:             models.LoanReasonBusiness,
		RepaymentFrequency: models.RepaymentFrequencyMonthly,
		GuarantorMemberIDs: []int64{2, 3},
	}
}

func TestValidateApplication(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*LoanApplication)
		wantErr string
	}{
		{name: "valid", mutate: func(a *LoanApplication) {}},
		{
			name:    "zero amount",
			mutate:  func(a *LoanApplication) { a.Amount = decimal.Zero },
			wantErr: "loan amount must be a positive whole shilling amount",
		},
		{
			name:    "amount with cents",
			mutate:  func(a *LoanApplication) { a.Amount = money("1500.50") },
			wantErr: "loan amount must be a positive whole shilling amount",
		},
		{
			name:    "no timeline",
			mutate:  func(a *LoanApplication) { a.TimelineMonths = 0 },
			wantErr: "at least one month",
		},
		{
			name:    "unknown reason",
			mutate:  func(a *LoanApplication) { a.Reason = "holiday" },
			wantErr: "invalid loan reason",
		},
		{
			name:    "unknown frequency",
			mutate:  func(a *LoanApplication) { a.RepaymentFrequency = "yearly" },
			wantErr: "invalid repayment frequency",
		},
		{
			name:    "one guarantor",
			mutate:  func(a *LoanApplication) { a.GuarantorMemberIDs = []int64{2} },
			wantErr: "Exactly 2 guarantors are required.",
		},
		{
			name:    "self guarantee",
			mutate:  func(a *LoanApplication) { a.GuarantorMemberIDs = []int64{1, 3} },
			wantErr: "You cannot guarantee your own loan.",
		},
		{
			name:    "duplicate guarantor",
			mutate:  func(a *LoanApplication) { a.GuarantorMemberIDs = []int64{2, 2} },
			wantErr: "This user is already a guarantor for this loan.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := validApplication()
			tt.mutate(&app)

			err := ValidateApplication(app)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, IsValidation(err))
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestCheckEligibility(t *testing.T) {
	multiplier := decimal.NewFromInt(3)

	t.Run("over the cap", func(t *testing.T) {
		err := CheckEligibility(money("3500.00"), money("1000.00"), multiplier)
		require.Error(t, err)
		assert.True(t, IsValidation(err))
		assert.Equal(t, "You can only borrow up to 3x your savings (KES 3000.00). Your current savings: KES 1000.00", err.Error())
	})

	t.Run("exactly the cap", func(t *testing.T) {
		assert.NoError(t, CheckEligibility(money("3000.00"), money("1000.00"), multiplier))
	})

	t.Run("no savings", func(t *testing.T) {
		assert.Error(t, CheckEligibility(money("1.00"), decimal.Zero, multiplier))
	})
}

func pendingLoan() *models.LoanAccount {
	loan := NewLoan(validApplication(), time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))
	loan.ID = 10
	loan.Status = models.LoanStatusPendingGuarantor
	return loan
}

func guarantorPair() []*models.Guarantor {
	return []*models.Guarantor{
		{ID: 100, LoanID: 10, MemberID: 2, Status: models.GuarantorStatusPending},
		{ID: 101, LoanID: 10, MemberID: 3, Status: models.GuarantorStatusPending},
	}
}

func TestSubmitForGuarantors(t *testing.T) {
	loan := NewLoan(validApplication(), time.Now())
	loan.ID = 10

	next, effects, err := SubmitForGuarantors(loan, guarantorPair())
	require.NoError(t, err)
	assert.Equal(t, models.LoanStatusPendingGuarantor, next.Status)
	assert.Equal(t, models.LoanStatusDraft, loan.Status, "input must not be mutated")
	require.Len(t, effects, 2)
	for _, e := range effects {
		n, ok := e.(Notify)
		require.True(t, ok)
		assert.Equal(t, models.NotificationGuarantorRequested, n.Notification.Kind)
	}

	_, _, err = SubmitForGuarantors(next, guarantorPair())
	assert.True(t, IsConflict(err))
}

func TestRespondGuarantor_BothApproveInEitherOrder(t *testing.T) {
	now := time.Now()

	for _, order := range [][2]int64{{100, 101}, {101, 100}} {
		loan := pendingLoan()
		active := guarantorPair()

		first, err := RespondGuarantor(loan, active, order[0], models.GuarantorActionApprove, now)
		require.NoError(t, err)
		assert.Nil(t, first.Loan, "one approval must not move the loan")

		for _, g := range active {
			if g.ID == order[0] {
				g.Status = first.Guarantor.Status
			}
		}

		second, err := RespondGuarantor(loan, active, order[1], models.GuarantorActionApprove, now)
		require.NoError(t, err)
		require.NotNil(t, second.Loan)
		assert.Equal(t, models.LoanStatusPendingManager, second.Loan.Status)
		require.Len(t, second.Effects, 1)
	}
}

func TestRespondGuarantor_Reject(t *testing.T) {
	loan := pendingLoan()

	decision, err := RespondGuarantor(loan, guarantorPair(), 100, models.GuarantorActionReject, time.Now())
	require.NoError(t, err)
	assert.Equal(t, models.GuarantorStatusRejected, decision.Guarantor.Status)
	assert.Nil(t, decision.Loan)
	require.Len(t, decision.Effects, 1)
	assert.Equal(t, models.NotificationGuarantorRejected, decision.Effects[0].(Notify).Notification.Kind)
}

func TestRespondGuarantor_Errors(t *testing.T) {
	now := time.Now()

	t.Run("already responded", func(t *testing.T) {
		active := guarantorPair()
		active[0].Status = models.GuarantorStatusExpired
		_, err := RespondGuarantor(pendingLoan(), active, 100, models.GuarantorActionApprove, now)
		assert.True(t, IsConflict(err))
		assert.Equal(t, "Already responded or expired.", err.Error())
	})

	t.Run("unknown guarantor", func(t *testing.T) {
		_, err := RespondGuarantor(pendingLoan(), guarantorPair(), 999, models.GuarantorActionApprove, now)
		assert.True(t, IsNotFound(err))
	})

	t.Run("invalid action", func(t *testing.T) {
		_, err := RespondGuarantor(pendingLoan(), guarantorPair(), 100, "maybe", now)
		assert.True(t, IsValidation(err))
	})

	t.Run("loan past guarantor stage", func(t *testing.T) {
		loan := pendingLoan()
		loan.Status = models.LoanStatusPendingManager
		_, err := RespondGuarantor(loan, guarantorPair(), 100, models.GuarantorActionApprove, now)
		assert.True(t, IsConflict(err))
	})
}

func TestReplaceGuarantor(t *testing.T) {
	now := time.Now()

	t.Run("replaces expired slot", func(t *testing.T) {
		loan := pendingLoan()
		active := guarantorPair()
		active[1].Status = models.GuarantorStatusExpired
		assert.Equal(t, models.LoanActionReplaceGuarantor, RequiredAction(loan, active))

		retired, replacement, effects, err := ReplaceGuarantor(loan, active, 101, 4, now)
		require.NoError(t, err)
		assert.Equal(t, &now, retired.ReplacedAt)
		assert.Equal(t, int64(4), replacement.MemberID)
		assert.Equal(t, models.GuarantorStatusPending, replacement.Status)
		assert.Len(t, effects, 1)
	})

	t.Run("pending slot cannot be replaced", func(t *testing.T) {
		_, _, _, err := ReplaceGuarantor(pendingLoan(), guarantorPair(), 101, 4, now)
		assert.True(t, IsConflict(err))
	})

	t.Run("new member already guarantees", func(t *testing.T) {
		active := guarantorPair()
		active[1].Status = models.GuarantorStatusRejected
		_, _, _, err := ReplaceGuarantor(pendingLoan(), active, 101, 2, now)
		assert.True(t, IsValidation(err))
	})

	t.Run("applicant cannot guarantee", func(t *testing.T) {
		active := guarantorPair()
		active[1].Status = models.GuarantorStatusRejected
		_, _, _, err := ReplaceGuarantor(pendingLoan(), active, 101, 1, now)
		assert.True(t, IsValidation(err))
	})

	t.Run("member of a replaced slot cannot return", func(t *testing.T) {
		replacedAt := now.Add(-time.Hour)
		history := append([]*models.Guarantor{
			{ID: 99, LoanID: 1, MemberID: 7, Status: models.GuarantorStatusRejected, ReplacedAt: &replacedAt},
		}, guarantorPair()...)
		history[2].Status = models.GuarantorStatusRejected

		_, _, _, err := ReplaceGuarantor(pendingLoan(), history, 101, 7, now)
		require.Error(t, err)
		assert.True(t, IsValidation(err))
	})

	t.Run("replaced slot cannot be replaced again", func(t *testing.T) {
		replacedAt := now.Add(-time.Hour)
		history := guarantorPair()
		history[1].Status = models.GuarantorStatusRejected
		history[1].ReplacedAt = &replacedAt

		_, _, _, err := ReplaceGuarantor(pendingLoan(), history, 101, 4, now)
		assert.True(t, IsNotFound(err))
	})
}

func TestDecideManager(t *testing.T) {
	now := time.Date(2026, 1, 31, 12, 0, 0, 0, time.UTC)

	managerLoan := func() *models.LoanAccount {
		loan := pendingLoan()
		loan.Status = models.LoanStatusPendingManager
		loan.TimelineMonths = 1
		return loan
	}

	t.Run("approve sets due date", func(t *testing.T) {
		next, effects, err := DecideManager(managerLoan(), ManagerActionApprove, "", now)
		require.NoError(t, err)
		assert.Equal(t, models.LoanStatusApproved, next.Status)
		require.NotNil(t, next.RepaymentDueDate)
		assert.Equal(t, time.Date(2026, 2, 28, 12, 0, 0, 0, time.UTC), *next.RepaymentDueDate)
		assert.Len(t, effects, 1)
	})

	t.Run("reject needs a reason", func(t *testing.T) {
		_, _, err := DecideManager(managerLoan(), ManagerActionReject, "  ", now)
		assert.True(t, IsValidation(err))
	})

	t.Run("reject keeps reason", func(t *testing.T) {
		next, _, err := DecideManager(managerLoan(), ManagerActionReject, "insufficient history", now)
		require.NoError(t, err)
		assert.Equal(t, models.LoanStatusRejected, next.Status)
		assert.Equal(t, "insufficient history", *next.RejectionReason)
	})

	t.Run("wrong state", func(t *testing.T) {
		_, _, err := DecideManager(pendingLoan(), ManagerActionApprove, "", now)
		assert.True(t, IsConflict(err))
	})
}

func TestCanDisburse(t *testing.T) {
	approved := pendingLoan()
	approved.Status = models.LoanStatusApproved

	tests := []struct {
		name     string
		loan     *models.LoanAccount
		previous *models.Transaction
		conflict bool
	}{
		{name: "first attempt", loan: approved},
		{name: "retry after failure", loan: approved, previous: &models.Transaction{Status: models.TransactionStatusFailed}},
		{name: "retry after timeout", loan: approved, previous: &models.Transaction{Status: models.TransactionStatusTimeout}},
		{name: "in flight", loan: approved, previous: &models.Transaction{Status: models.TransactionStatusProcessing}, conflict: true},
		{name: "already paid out", loan: approved, previous: &models.Transaction{Status: models.TransactionStatusSuccess}, conflict: true},
		{name: "not approved", loan: pendingLoan(), conflict: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CanDisburse(tt.loan, tt.previous)
			if tt.conflict {
				assert.True(t, IsConflict(err))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestApplyRepayment_CompletesLoan(t *testing.T) {
	// 1600 at 25% over 12 months is 2000 in total
	loan := &models.LoanAccount{
		ID:              7,
		MemberID:        1,
		RequestedAmount: money("1600.00"),
		InterestRate:    money("25"),
		TimelineMonths:  12,
		Status:          models.LoanStatusDisbursed,
		TotalRepaid:     money("1500.00"),
	}
	require.True(t, loan.TotalRepayment().Equal(money("2000.00")))
	require.NoError(t, ValidateRepayment(loan, money("500.00")))

	now := time.Now()
	next, effects := ApplyRepayment(loan, money("500.00"), now)

	assert.True(t, next.TotalRepaid.Equal(money("2000.00")))
	assert.Equal(t, models.LoanStatusCompleted, next.Status)
	assert.Equal(t, &now, next.CompletedAt)
	assert.True(t, next.OutstandingBalance().IsZero())
	require.Len(t, effects, 1)
	assert.Equal(t, models.NotificationLoanCompleted, effects[0].(Notify).Notification.Kind)
}

func TestApplyRepayment_Partial(t *testing.T) {
	loan := &models.LoanAccount{
		RequestedAmount: money("1000.00"),
		InterestRate:    decimal.Zero,
		TimelineMonths:  3,
		Status:          models.LoanStatusDisbursed,
		TotalRepaid:     decimal.Zero,
	}

	next, effects := ApplyRepayment(loan, money("400.00"), time.Now())
	assert.Equal(t, models.LoanStatusDisbursed, next.Status)
	assert.True(t, next.OutstandingBalance().Equal(money("600.00")))
	assert.Empty(t, effects)
}

func TestValidateRepayment(t *testing.T) {
	loan := &models.LoanAccount{
		RequestedAmount: money("1000.00"),
		InterestRate:    decimal.Zero,
		TimelineMonths:  3,
		Status:          models.LoanStatusDisbursed,
		TotalRepaid:     money("900.00"),
	}

	err := ValidateRepayment(loan, money("101.00"))
	assert.True(t, IsValidation(err))
	assert.Contains(t, err.Error(), "KES 100.00")

	err = ValidateRepayment(loan, money("50.50"))
	assert.True(t, IsValidation(err))
	assert.Contains(t, err.Error(), "whole shilling")

	loan.Status = models.LoanStatusApproved
	assert.True(t, IsConflict(ValidateRepayment(loan, money("10.00"))))
}

func TestRepayment_FinalShillingCompletesLoan(t *testing.T) {
	// 1000 at 5% over 7 months owes 1029.17, leaving 0.17 after 1029 is repaid
	loan := &models.LoanAccount{
		ID:              8,
		MemberID:        1,
		RequestedAmount: money("1000.00"),
		InterestRate:    money("5"),
		TimelineMonths:  7,
		Status:          models.LoanStatusDisbursed,
		TotalRepaid:     money("1029.00"),
	}
	require.True(t, loan.TotalRepayment().Equal(money("1029.17")))
	require.True(t, MaxRepayment(loan).Equal(money("1.00")))

	assert.True(t, IsValidation(ValidateRepayment(loan, money("2.00"))))
	require.NoError(t, ValidateRepayment(loan, money("1.00")))

	next, effects := ApplyRepayment(loan, money("1.00"), time.Now())

	assert.Equal(t, models.LoanStatusCompleted, next.Status)
	assert.True(t, next.TotalRepaid.Equal(money("1030.00")))
	assert.True(t, next.OutstandingBalance().IsZero())
	require.Len(t, effects, 1)
}

func TestAddMonths(t *testing.T) {
	tests := []struct {
		from   time.Time
		months int
		want   time.Time
	}{
		{time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC), 1, time.Date(2026, 2, 28, 0, 0, 0, 0, time.UTC)},
		{time.Date(2028, 1, 31, 0, 0, 0, 0, time.UTC), 1, time.Date(2028, 2, 29, 0, 0, 0, 0, time.UTC)},
		{time.Date(2026, 3, 15, 8, 30, 0, 0, time.UTC), 6, time.Date(2026, 9, 15, 8, 30, 0, 0, time.UTC)},
		{time.Date(2026, 11, 30, 0, 0, 0, 0, time.UTC), 3, time.Date(2027, 2, 28, 0, 0, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, AddMonths(tt.from, tt.months), "AddMonths(%s, %d)", tt.from.Format("2006-01-02"), tt.months)
	}
}
