package domain

import (
	"fmt"
	"time"

	"sacco/models"

	"github.com/shopspring/decimal"
)

// ContributionSplit is how a contribution divides between savings and pension
type ContributionSplit struct {
	Contributed decimal.Decimal
	Pension     decimal.Decimal
	VSLA        decimal.Decimal
	// TransferPension is set when the pension portion must be sent to a provider
	TransferPension bool
}

// SplitContribution divides amount between the member's savings and pension.
// VSLA is the exact complement of the rounded pension portion. A pension
// portion sent to a provider is cut down to whole shillings and the cents
// stay in savings.
func SplitContribution(amount decimal.Decimal, pension *models.PensionAccount, provider *models.PensionProvider) (ContributionSplit, error) {
	if !models.IsValidAmount(amount) {
		return ContributionSplit{}, Validationf("contribution must be a positive amount with at most 2 decimal places")
	}

	split := ContributionSplit{
		Contributed: amount,
		Pension:     decimal.Zero,
		VSLA:        amount,
	}
	if pension == nil || !pension.OptedIn {
		return split, nil
	}

	split.Pension = models.Percent(amount, pension.ContributionPercentage)
	if provider.IsActive() {
		split.Pension = split.Pension.Floor()
		split.TransferPension = split.Pension.IsPositive()
	}
	split.VSLA = amount.Sub(split.Pension)
	return split, nil
}

// BalanceChange is a computed change to a savings balance
type BalanceChange struct {
	Before decimal.Decimal
	After  decimal.Decimal
	Delta  decimal.Decimal
}

// CreditSavings computes a savings balance change
func CreditSavings(account *models.SavingsAccount, delta decimal.Decimal) BalanceChange {
	return BalanceChange{
		Before: account.Balance,
		After:  account.Balance.Add(delta),
		Delta:  delta,
	}
}

// NeedsVSLACredit reports whether the contribution's savings credit is still owed
func NeedsVSLACredit(c *models.SavingsContribution) bool {
	return c.VSLAAppliedAt == nil && c.VSLAReversedAt == nil && c.VSLAAmount.IsPositive()
}

// NeedsVSLAReversal reports whether a failed collection must take back the optimistic credit
func NeedsVSLAReversal(c *models.SavingsContribution) bool {
	return c.VSLAAppliedAt != nil && c.VSLAReversedAt == nil && c.VSLAAmount.IsPositive()
}

// ReversalNotice tells the member their unconfirmed contribution was taken back
func ReversalNotice(c *models.SavingsContribution) Effect {
	return notify(c.MemberID, models.NotificationContributionReversed,
		fmt.Sprintf("Your contribution of KES %s was not received and has been reversed.", c.ContributedAmount.StringFixed(2)))
}

// PaymentFailedNotice tells the member a payment did not go through
func PaymentFailedNotice(tx *models.Transaction) Effect {
	return notify(tx.MemberID, models.NotificationPaymentFailed,
		fmt.Sprintf("Payment of KES %s (%s) did not complete: %s.", tx.Amount.StringFixed(2), tx.Purpose, tx.Status))
}

// UnconfirmedNotice tells the member a payment was sent but not yet confirmed
func UnconfirmedNotice(tx *models.Transaction) Effect {
	return notify(tx.MemberID, models.NotificationPaymentUnconfirmed,
		fmt.Sprintf("Payment of KES %s (%s) is awaiting confirmation from M-Pesa.", tx.Amount.StringFixed(2), tx.Purpose))
}

// DailyInterest is one day's interest on balance at annualRate percent, rounded to cents
func DailyInterest(balance, annualRate decimal.Decimal) decimal.Decimal {
	if !balance.IsPositive() {
		return decimal.Zero
	}
	return models.RoundMoney(balance.Mul(annualRate).Div(decimal.NewFromInt(36500)))
}

// RunDate normalizes t to midnight UTC of its calendar day
func RunDate(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
