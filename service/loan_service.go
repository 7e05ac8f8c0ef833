package service

import (
	"context"
	"fmt"
	"time"

	"sacco/config"
	"sacco/domain"
	"sacco/events"
	"sacco/models"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

type loanService struct {
	uowFactory UnitOfWorkFactory
	ledger     TransactionLedger
	executor   EffectExecutor
	config     *config.Config
	now        func() time.Time
}

// NewLoanService creates a new loan service
func NewLoanService(uowFactory UnitOfWorkFactory, ledger TransactionLedger, executor EffectExecutor, cfg *config.Config) LoanService {
	return &loanService{
		uowFactory: uowFactory,
		ledger:     ledger,
		executor:   executor,
		config:     cfg,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

func newLoanDetail(loan *models.LoanAccount, guarantors []*models.Guarantor) *models.LoanDetail {
	return &models.LoanDetail{
		Loan:               loan,
		Guarantors:         guarantors,
		TotalRepayment:     loan.TotalRepayment(),
		OutstandingBalance: loan.OutstandingBalance(),
		RequiredAction:     domain.RequiredAction(loan, guarantors),
	}
}

func (s *loanService) CreateLoan(ctx context.Context, req CreateLoanRequest) (*models.LoanDetail, error) {
	app := domain.LoanApplication{
		MemberID:           req.MemberID,
		Amount:             req.Amount,
		InterestRate:       s.config.DefaultLoanInterestRate,
		TimelineMonths:     req.TimelineMonths,
		Reason:             req.Reason,
		RepaymentFrequency: req.RepaymentFrequency,
		GuarantorMemberIDs: req.GuarantorMemberIDs,
	}
	if err := domain.ValidateApplication(app); err != nil {
		return nil, err
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	if err := requireMember(ctx, uow, req.MemberID); err != nil {
		return nil, err
	}

	savings, err := uow.SavingsAccountRepository().GetByMemberID(ctx, req.MemberID)
	if err != nil {
		return nil, fmt.Errorf("failed to get savings account: %w", err)
	}
	if savings == nil {
		return nil, domain.Validationf("You need a savings account before applying for a loan.")
	}
	if err := domain.CheckEligibility(req.Amount, savings.Balance, s.config.LoanSavingsMultiplier); err != nil {
		return nil, err
	}

	for _, guarantorID := range req.GuarantorMemberIDs {
		if err := requireMember(ctx, uow, guarantorID); err != nil {
			return nil, err
		}
	}

	now := s.now()
	loan := domain.NewLoan(app, now)
	if err := uow.LoanRepository().Create(ctx, loan); err != nil {
		return nil, fmt.Errorf("failed to create loan: %w", err)
	}

	guarantors := make([]*models.Guarantor, 0, len(req.GuarantorMemberIDs))
	for _, memberID := range req.GuarantorMemberIDs {
		g := &models.Guarantor{
			LoanID:    loan.ID,
			MemberID:  memberID,
			Status:    models.GuarantorStatusPending,
			CreatedAt: now,
		}
		if err := uow.GuarantorRepository().Create(ctx, g); err != nil {
			return nil, fmt.Errorf("failed to add guarantor: %w", err)
		}
		guarantors = append(guarantors, g)
	}

	submitted, effects, err := domain.SubmitForGuarantors(loan, guarantors)
	if err != nil {
		return nil, err
	}
	if err := updateLoan(ctx, uow, loan, submitted); err != nil {
		return nil, err
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.WithFields(log.Fields{
		"loanID":   submitted.ID,
		"memberID": submitted.MemberID,
		"amount":   submitted.RequestedAmount.StringFixed(2),
	}).Info("Loan application submitted")

	s.executor.Execute(ctx, effects)

	return newLoanDetail(submitted, guarantors), nil
}

// requireMember fails with NotFound unless the member exists
func requireMember(ctx context.Context, uow UnitOfWork, memberID int64) error {
	member, err := uow.MemberRepository().GetByID(ctx, memberID)
	if err != nil {
		return fmt.Errorf("failed to get member: %w", err)
	}
	if member == nil {
		return domain.NotFound("member", memberID)
	}
	return nil
}

func (s *loanService) GetLoan(ctx context.Context, loanID int64) (*models.LoanDetail, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	loan, err := uow.LoanRepository().GetByID(ctx, loanID)
	if err != nil {
		return nil, fmt.Errorf("failed to get loan: %w", err)
	}
	if loan == nil {
		return nil, domain.NotFound("loan", loanID)
	}

	guarantors, err := uow.GuarantorRepository().ListActiveByLoan(ctx, loanID)
	if err != nil {
		return nil, fmt.Errorf("failed to get guarantors: %w", err)
	}

	return newLoanDetail(loan, guarantors), nil
}

// lockLoan loads a loan under a row lock
func lockLoan(ctx context.Context, uow UnitOfWork, loanID int64) (*models.LoanAccount, error) {
	loan, err := uow.LoanRepository().GetByIDForUpdate(ctx, loanID)
	if err != nil {
		return nil, fmt.Errorf("failed to get loan: %w", err)
	}
	if loan == nil {
		return nil, domain.NotFound("loan", loanID)
	}
	return loan, nil
}

func (s *loanService) RespondAsGuarantor(ctx context.Context, guarantorID int64, action models.GuarantorAction) (*models.Guarantor, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	guarantor, err := uow.GuarantorRepository().GetByID(ctx, guarantorID)
	if err != nil {
		return nil, fmt.Errorf("failed to get guarantor: %w", err)
	}
	if guarantor == nil {
		return nil, domain.NotFound("guarantor", guarantorID)
	}
	if guarantor.ReplacedAt != nil {
		return nil, domain.Conflictf("Already responded or expired.")
	}

	// Responses to the same loan serialize here; both guarantors are re-read under the lock
	loan, err := lockLoan(ctx, uow, guarantor.LoanID)
	if err != nil {
		return nil, err
	}
	active, err := uow.GuarantorRepository().ListActiveByLoan(ctx, loan.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to get guarantors: %w", err)
	}

	now := s.now()
	decision, err := domain.RespondGuarantor(loan, active, guarantorID, action, now)
	if err != nil {
		return nil, err
	}

	responded, err := uow.GuarantorRepository().Respond(ctx, guarantorID, decision.Guarantor.Status, now)
	if err != nil {
		return nil, err
	}
	if !responded {
		// Lost to the expiry sweep
		return nil, domain.Conflictf("Already responded or expired.")
	}

	uow.EventBus().Publish(events.GuarantorRespondedEvent{
		GuarantorID: guarantorID,
		LoanID:      loan.ID,
		MemberID:    decision.Guarantor.MemberID,
		Status:      decision.Guarantor.Status,
	})

	if decision.Loan != nil {
		if err := updateLoan(ctx, uow, loan, decision.Loan); err != nil {
			return nil, err
		}
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.WithFields(log.Fields{
		"guarantorID": guarantorID,
		"loanID":      loan.ID,
		"status":      decision.Guarantor.Status,
	}).Info("Guarantor responded")

	s.executor.Execute(ctx, decision.Effects)

	return decision.Guarantor, nil
}

func (s *loanService) ReplaceGuarantor(ctx context.Context, loanID, guarantorID, newMemberID int64) (*models.Guarantor, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	loan, err := lockLoan(ctx, uow, loanID)
	if err != nil {
		return nil, err
	}
	if err := requireMember(ctx, uow, newMemberID); err != nil {
		return nil, err
	}
	history, err := uow.GuarantorRepository().ListByLoan(ctx, loanID)
	if err != nil {
		return nil, fmt.Errorf("failed to get guarantors: %w", err)
	}

	now := s.now()
	retired, replacement, effects, err := domain.ReplaceGuarantor(loan, history, guarantorID, newMemberID, now)
	if err != nil {
		return nil, err
	}

	ok, err := uow.GuarantorRepository().MarkReplaced(ctx, retired.ID, now)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, domain.Conflictf("Guarantor was already replaced.")
	}
	if err := uow.GuarantorRepository().Create(ctx, replacement); err != nil {
		return nil, fmt.Errorf("failed to add replacement guarantor: %w", err)
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.WithFields(log.Fields{
		"loanID":         loanID,
		"oldGuarantorID": retired.ID,
		"newGuarantorID": replacement.ID,
	}).Info("Guarantor replaced")

	s.executor.Execute(ctx, effects)

	return replacement, nil
}

func (s *loanService) DecideLoan(ctx context.Context, loanID int64, action domain.ManagerAction, reason string) (*models.LoanAccount, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	loan, err := lockLoan(ctx, uow, loanID)
	if err != nil {
		return nil, err
	}

	decided, effects, err := domain.DecideManager(loan, action, reason, s.now())
	if err != nil {
		return nil, err
	}
	if err := updateLoan(ctx, uow, loan, decided); err != nil {
		return nil, err
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	s.executor.Execute(ctx, effects)

	return decided, nil
}

func (s *loanService) DisburseLoan(ctx context.Context, loanID int64) (*DisbursementResult, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	loan, err := lockLoan(ctx, uow, loanID)
	if err != nil {
		return nil, err
	}

	var previous *models.Transaction
	if loan.DisbursementTransactionID != nil {
		previous, err = uow.TransactionRepository().GetByID(ctx, *loan.DisbursementTransactionID)
		if err != nil {
			return nil, fmt.Errorf("failed to get previous disbursement: %w", err)
		}
	}
	if err := domain.CanDisburse(loan, previous); err != nil {
		return nil, err
	}

	member, err := uow.MemberRepository().GetByID(ctx, loan.MemberID)
	if err != nil {
		return nil, fmt.Errorf("failed to get member: %w", err)
	}
	if member == nil {
		return nil, domain.NotFound("member", loan.MemberID)
	}

	tx, err := s.ledger.Open(ctx, uow, models.NewTransaction{
		Type:        models.TransactionTypeB2C,
		Purpose:     models.TransactionPurposeLoanDisbursement,
		Amount:      loan.RequestedAmount,
		Party:       member.PhoneNumber,
		Description: fmt.Sprintf("Loan %d disbursement", loan.ID),
		MemberID:    loan.MemberID,
	})
	if err != nil {
		return nil, err
	}

	linked := *loan
	linked.DisbursementTransactionID = &tx.ID
	linked.UpdatedAt = s.now()
	if err := updateLoan(ctx, uow, loan, &linked); err != nil {
		return nil, err
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	if dispatched := s.executor.Execute(ctx, []domain.Effect{domain.DispatchTransaction{TransactionID: tx.ID}}); len(dispatched) == 1 {
		tx = dispatched[0]
	}

	return &DisbursementResult{Loan: &linked, Transaction: tx}, nil
}

func (s *loanService) RepayLoan(ctx context.Context, loanID int64, amount decimal.Decimal, phone string) (*RepaymentResult, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	loan, err := lockLoan(ctx, uow, loanID)
	if err != nil {
		return nil, err
	}
	if err := domain.ValidateRepayment(loan, amount); err != nil {
		return nil, err
	}

	if phone == "" {
		member, err := uow.MemberRepository().GetByID(ctx, loan.MemberID)
		if err != nil {
			return nil, fmt.Errorf("failed to get member: %w", err)
		}
		if member == nil {
			return nil, domain.NotFound("member", loan.MemberID)
		}
		phone = member.PhoneNumber
	}

	tx, err := s.ledger.Open(ctx, uow, models.NewTransaction{
		Type:        models.TransactionTypeC2B,
		Purpose:     models.TransactionPurposeLoanRepayment,
		Amount:      amount,
		Party:       phone,
		Description: fmt.Sprintf("Loan %d repayment", loan.ID),
		MemberID:    loan.MemberID,
	})
	if err != nil {
		return nil, err
	}

	repayment := &models.LoanRepayment{
		LoanID:        loan.ID,
		Amount:        amount,
		Status:        models.RepaymentStatusPending,
		TransactionID: &tx.ID,
	}
	if err := uow.RepaymentRepository().Create(ctx, repayment); err != nil {
		return nil, fmt.Errorf("failed to create repayment: %w", err)
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	if dispatched := s.executor.Execute(ctx, []domain.Effect{domain.DispatchTransaction{TransactionID: tx.ID}}); len(dispatched) == 1 {
		tx = dispatched[0]
	}
	if tx.Status == models.TransactionStatusFailed {
		repayment.Status = models.RepaymentStatusFailed
	}

	return &RepaymentResult{Repayment: repayment, Transaction: tx}, nil
}
