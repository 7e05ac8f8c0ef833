package domain

import (
	"fmt"
	"strings"
	"time"

	"sacco/models"

	"github.com/shopspring/decimal"
)

// LoanApplication is a member's request for a loan
type LoanApplication struct {
	MemberID           int64
	Amount             decimal.Decimal
	InterestRate       decimal.Decimal
	TimelineMonths     int
	Reason             models.LoanReason
	RepaymentFrequency models.RepaymentFrequency
	GuarantorMemberIDs []int64
}

// ValidateApplication checks the shape of a loan application
func ValidateApplication(app LoanApplication) error {
	if !models.IsWholeShillings(app.Amount) {
		return Validationf("loan amount must be a positive whole shilling amount")
	}
	if app.TimelineMonths <= 0 {
		return Validationf("loan timeline must be at least one month")
	}
	if app.InterestRate.IsNegative() {
		return Validationf("interest rate cannot be negative")
	}
	if !app.Reason.IsValid() {
		return Validationf("invalid loan reason %q", app.Reason)
	}
	if !app.RepaymentFrequency.IsValid() {
		return Validationf("invalid repayment frequency %q", app.RepaymentFrequency)
	}
	if len(app.GuarantorMemberIDs) != models.RequiredGuarantors {
		return Validationf("Exactly %d guarantors are required.", models.RequiredGuarantors)
	}

	seen := make(map[int64]bool, len(app.GuarantorMemberIDs))
	for _, id := range app.GuarantorMemberIDs {
		if id == app.MemberID {
			return Validationf("You cannot guarantee your own loan.")
		}
		if seen[id] {
			return Validationf("This user is already a guarantor for this loan.")
		}
		seen[id] = true
	}
	return nil
}

// CheckEligibility enforces the savings multiple cap. It runs only at creation.
func CheckEligibility(amount, savingsBalance, multiplier decimal.Decimal) error {
	maxAllowed := models.RoundMoney(savingsBalance.Mul(multiplier))
	if amount.GreaterThan(maxAllowed) {
		return Validationf("You can only borrow up to %sx your savings (KES %s). Your current savings: KES %s",
			multiplier.String(), maxAllowed.StringFixed(2), savingsBalance.StringFixed(2))
	}
	return nil
}

// NewLoan builds a draft loan from an application
func NewLoan(app LoanApplication, now time.Time) *models.LoanAccount {
	return &models.LoanAccount{
		MemberID:           app.MemberID,
		RequestedAmount:    app.Amount,
		InterestRate:       app.InterestRate,
		TimelineMonths:     app.TimelineMonths,
		Reason:             app.Reason,
		RepaymentFrequency: app.RepaymentFrequency,
		Status:             models.LoanStatusDraft,
		TotalRepaid:        decimal.Zero,
		RequestedAt:        now,
		UpdatedAt:          now,
	}
}

// SubmitForGuarantors moves a draft loan to guarantor review and asks each guarantor to respond
func SubmitForGuarantors(loan *models.LoanAccount, guarantors []*models.Guarantor) (*models.LoanAccount, []Effect, error) {
	if loan.Status != models.LoanStatusDraft {
		return nil, nil, Conflictf("Loan is not a draft.")
	}
	if len(guarantors) != models.RequiredGuarantors {
		return nil, nil, Validationf("Exactly %d guarantors are required.", models.RequiredGuarantors)
	}

	next := *loan
	next.Status = models.LoanStatusPendingGuarantor

	effects := make([]Effect, 0, len(guarantors))
	for _, g := range guarantors {
		effects = append(effects, notify(g.MemberID, models.NotificationGuarantorRequested,
			fmt.Sprintf("You have been asked to guarantee loan #%d of KES %s.", loan.ID, loan.RequestedAmount.StringFixed(2))))
	}
	return &next, effects, nil
}

// GuarantorDecision is the result of a guarantor responding
type GuarantorDecision struct {
	Guarantor *models.Guarantor
	// Loan is nil when the loan status does not change
	Loan    *models.LoanAccount
	Effects []Effect
}

// RespondGuarantor records a guarantor's answer. active must hold every
// non-replaced guarantor of the loan as read under the loan lock.
func RespondGuarantor(loan *models.LoanAccount, active []*models.Guarantor, guarantorID int64, action models.GuarantorAction, now time.Time) (*GuarantorDecision, error) {
	var target *models.Guarantor
	for _, g := range active {
		if g.ID == guarantorID {
			target = g
			break
		}
	}
	if target == nil {
		return nil, NotFound("guarantor", guarantorID)
	}
	if !target.IsPending() {
		return nil, Conflictf("Already responded or expired.")
	}
	if loan.Status != models.LoanStatusPendingGuarantor {
		return nil, Conflictf("Loan is not awaiting guarantors.")
	}

	updated := *target
	updated.RespondedAt = &now

	decision := &GuarantorDecision{Guarantor: &updated}

	switch action {
	case models.GuarantorActionReject:
		updated.Status = models.GuarantorStatusRejected
		decision.Effects = append(decision.Effects, notify(loan.MemberID, models.NotificationGuarantorRejected,
			fmt.Sprintf("A guarantor declined loan #%d. Add a replacement guarantor to continue.", loan.ID)))
		return decision, nil

	case models.GuarantorActionApprove:
		updated.Status = models.GuarantorStatusApproved
	default:
		return nil, Validationf("Invalid action %q. Use approve or reject.", action)
	}

	approved := 0
	for _, g := range active {
		status := g.Status
		if g.ID == updated.ID {
			status = updated.Status
		}
		if status == models.GuarantorStatusApproved {
			approved++
		}
	}

	if approved == models.RequiredGuarantors {
		next := *loan
		next.Status = models.LoanStatusPendingManager
		next.UpdatedAt = now
		decision.Loan = &next
		decision.Effects = append(decision.Effects, notify(loan.MemberID, models.NotificationLoanAwaitingManager,
			fmt.Sprintf("Both guarantors approved loan #%d. It is now awaiting manager approval.", loan.ID)))
	}

	return decision, nil
}

// ReplaceGuarantor retires a rejected or expired guarantor slot and opens a new one.
// history must hold every guarantor row of the loan, including replaced ones.
func ReplaceGuarantor(loan *models.LoanAccount, history []*models.Guarantor, guarantorID, newMemberID int64, now time.Time) (*models.Guarantor, *models.Guarantor, []Effect, error) {
	if loan.Status != models.LoanStatusPendingGuarantor {
		return nil, nil, nil, Conflictf("Guarantors can only be replaced while the loan awaits guarantors.")
	}
	if newMemberID == loan.MemberID {
		return nil, nil, nil, Validationf("You cannot guarantee your own loan.")
	}

	var old *models.Guarantor
	for _, g := range history {
		if g.MemberID == newMemberID {
			return nil, nil, nil, Validationf("This user is already a guarantor for this loan.")
		}
		if g.ID == guarantorID && g.ReplacedAt == nil {
			old = g
		}
	}
	if old == nil {
		return nil, nil, nil, NotFound("guarantor", guarantorID)
	}
	if !old.NeedsReplacement() {
		return nil, nil, nil, Conflictf("Only rejected or expired guarantors can be replaced.")
	}

	retired := *old
	retired.ReplacedAt = &now

	replacement := &models.Guarantor{
		LoanID:    loan.ID,
		MemberID:  newMemberID,
		Status:    models.GuarantorStatusPending,
		CreatedAt: now,
	}

	effects := []Effect{notify(newMemberID, models.NotificationGuarantorRequested,
		fmt.Sprintf("You have been asked to guarantee loan #%d of KES %s.", loan.ID, loan.RequestedAmount.StringFixed(2)))}

	return &retired, replacement, effects, nil
}

// RequiredAction reports the follow-up a loan needs before it can progress
func RequiredAction(loan *models.LoanAccount, active []*models.Guarantor) models.LoanAction {
	if loan.Status != models.LoanStatusPendingGuarantor {
		return models.LoanActionNone
	}
	for _, g := range active {
		if g.NeedsReplacement() {
			return models.LoanActionReplaceGuarantor
		}
	}
	return models.LoanActionNone
}

// ManagerAction is a manager's decision on a loan
type ManagerAction string

const (
	ManagerActionApprove ManagerAction = "approve"
	ManagerActionReject  ManagerAction = "reject"
)

// DecideManager applies a manager's approve or reject decision
func DecideManager(loan *models.LoanAccount, action ManagerAction, reason string, now time.Time) (*models.LoanAccount, []Effect, error) {
	if loan.Status != models.LoanStatusPendingManager {
		return nil, nil, Conflictf("Loan is not pending manager approval.")
	}

	next := *loan
	next.UpdatedAt = now

	switch action {
	case ManagerActionApprove:
		due := AddMonths(now, loan.TimelineMonths)
		next.Status = models.LoanStatusApproved
		next.ApprovedAt = &now
		next.RepaymentDueDate = &due
		return &next, []Effect{notify(loan.MemberID, models.NotificationLoanApproved,
			fmt.Sprintf("Loan #%d was approved. Repayment of KES %s is due by %s.",
				loan.ID, next.TotalRepayment().StringFixed(2), due.Format("2006-01-02")))}, nil

	case ManagerActionReject:
		reason = strings.TrimSpace(reason)
		if reason == "" {
			return nil, nil, Validationf("A reason is required to reject a loan.")
		}
		next.Status = models.LoanStatusRejected
		next.RejectionReason = &reason
		return &next, []Effect{notify(loan.MemberID, models.NotificationLoanRejected,
			fmt.Sprintf("Loan #%d was rejected: %s", loan.ID, reason))}, nil

	default:
		return nil, nil, Validationf("Invalid action. Use 'approve' or 'reject'.")
	}
}

// CanDisburse checks that a loan is approved and has no live or successful disbursement.
// previous is the currently linked disbursement transaction, if any.
func CanDisburse(loan *models.LoanAccount, previous *models.Transaction) error {
	if loan.Status != models.LoanStatusApproved {
		return Conflictf("Only approved loans can be disbursed.")
	}
	if previous == nil {
		return nil
	}
	switch previous.Status {
	case models.TransactionStatusFailed, models.TransactionStatusTimeout:
		return nil
	case models.TransactionStatusSuccess:
		return Conflictf("Loan has already been disbursed.")
	default:
		return Conflictf("A disbursement for this loan is already in progress.")
	}
}

// MarkDisbursed records a successful disbursement
func MarkDisbursed(loan *models.LoanAccount, now time.Time) (*models.LoanAccount, []Effect, error) {
	if loan.Status != models.LoanStatusApproved {
		return nil, nil, Conflictf("loan %d is %s, not Approved", loan.ID, loan.Status)
	}

	next := *loan
	next.Status = models.LoanStatusDisbursed
	next.DisbursedAt = &now
	next.UpdatedAt = now
	return &next, []Effect{notify(loan.MemberID, models.NotificationLoanDisbursed,
		fmt.Sprintf("KES %s for loan #%d has been sent to your phone.", loan.RequestedAmount.StringFixed(2), loan.ID))}, nil
}

// ValidateRepayment checks a repayment request against the loan. Repayments
// are collected in whole shillings, so the final one may round the balance up.
func ValidateRepayment(loan *models.LoanAccount, amount decimal.Decimal) error {
	if !models.IsWholeShillings(amount) {
		return Validationf("repayment amount must be a positive whole shilling amount")
	}
	if loan.Status != models.LoanStatusDisbursed {
		return Conflictf("Only disbursed loans can be repaid.")
	}
	outstanding := loan.OutstandingBalance()
	if payable := MaxRepayment(loan); amount.GreaterThan(payable) {
		return Validationf("Repayment amount exceeds outstanding balance of KES %s. Pay at most KES %s.",
			outstanding.StringFixed(2), payable.StringFixed(2))
	}
	return nil
}

// MaxRepayment is the outstanding balance rounded up to the whole shilling
func MaxRepayment(loan *models.LoanAccount) decimal.Decimal {
	return loan.OutstandingBalance().Ceil()
}

// ApplyRepayment adds a confirmed repayment to the loan and completes it once fully repaid.
// Money already received is always counted, even on a completed loan.
func ApplyRepayment(loan *models.LoanAccount, amount decimal.Decimal, now time.Time) (*models.LoanAccount, []Effect) {
	next := *loan
	next.TotalRepaid = loan.TotalRepaid.Add(amount)
	next.UpdatedAt = now

	var effects []Effect
	if next.Status == models.LoanStatusDisbursed && next.IsFullyRepaid() {
		next.Status = models.LoanStatusCompleted
		next.CompletedAt = &now
		effects = append(effects, notify(loan.MemberID, models.NotificationLoanCompleted,
			fmt.Sprintf("Loan #%d is fully repaid. Thank you.", loan.ID)))
	}
	return &next, effects
}

// ExpiryNotice tells the applicant a guarantor slot expired and must be replaced
func ExpiryNotice(loan *models.LoanAccount, g *models.Guarantor) Effect {
	return notify(loan.MemberID, models.NotificationGuarantorExpired,
		fmt.Sprintf("Guarantor request #%d for loan #%d expired without a response. Add a replacement guarantor to continue.", g.ID, loan.ID))
}
