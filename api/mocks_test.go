package api

import (
	"context"
	"time"

	"sacco/domain"
	"sacco/models"
	"sacco/service"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

type MockLoanService struct {
	mock.Mock
}

func (m *MockLoanService) CreateLoan(ctx context.Context, req service.CreateLoanRequest) (*models.LoanDetail, error) {
	args := m.Called(ctx, req)
	detail, _ := args.Get(0).(*models.LoanDetail)
	return detail, args.Error(1)
}

func (m *MockLoanService) GetLoan(ctx context.Context, loanID int64) (*models.LoanDetail, error) {
	args := m.Called(ctx, loanID)
	detail, _ := args.Get(0).(*models.LoanDetail)
	return detail, args.Error(1)
}

func (m *MockLoanService) RespondAsGuarantor(ctx context.Context, guarantorID int64, action models.GuarantorAction) (*models.Guarantor, error) {
	args := m.Called(ctx, guarantorID, action)
	guarantor, _ := args.Get(0).(*models.Guarantor)
	return guarantor, args.Error(1)
}

func (m *MockLoanService) ReplaceGuarantor(ctx context.Context, loanID, guarantorID, newMemberID int64) (*models.Guarantor, error) {
	args := m.Called(ctx, loanID, guarantorID, newMemberID)
	guarantor, _ := args.Get(0).(*models.Guarantor)
	return guarantor, args.Error(1)
}

func (m *MockLoanService) DecideLoan(ctx context.Context, loanID int64, action domain.ManagerAction, reason string) (*models.LoanAccount, error) {
	args := m.Called(ctx, loanID, action, reason)
	loan, _ := args.Get(0).(*models.LoanAccount)
	return loan, args.Error(1)
}

func (m *MockLoanService) DisburseLoan(ctx context.Context, loanID int64) (*service.DisbursementResult, error) {
	args := m.Called(ctx, loanID)
	result, _ := args.Get(0).(*service.DisbursementResult)
	return result, args.Error(1)
}

func (m *MockLoanService) RepayLoan(ctx context.Context, loanID int64, amount decimal.Decimal, phone string) (*service.RepaymentResult, error) {
	args := m.Called(ctx, loanID, amount, phone)
	result, _ := args.Get(0).(*service.RepaymentResult)
	return result, args.Error(1)
}

type MockContributionService struct {
	mock.Mock
}

func (m *MockContributionService) Contribute(ctx context.Context, req service.ContributionRequest) (*models.ContributionResult, error) {
	args := m.Called(ctx, req)
	result, _ := args.Get(0).(*models.ContributionResult)
	return result, args.Error(1)
}

type MockCallbackReconciler struct {
	mock.Mock
}

func (m *MockCallbackReconciler) Reconcile(ctx context.Context, callback models.GatewayCallback) (*models.CallbackResult, error) {
	args := m.Called(ctx, callback)
	result, _ := args.Get(0).(*models.CallbackResult)
	return result, args.Error(1)
}

type MockGuarantorExpiryService struct {
	mock.Mock
}

func (m *MockGuarantorExpiryService) ExpireStale(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

type MockRedispatchService struct {
	mock.Mock
}

func (m *MockRedispatchService) RedispatchStale(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

type MockInterestService struct {
	mock.Mock
}

func (m *MockInterestService) ApplyDailyInterest(ctx context.Context, day time.Time) (*models.InterestRun, error) {
	args := m.Called(ctx, day)
	run, _ := args.Get(0).(*models.InterestRun)
	return run, args.Error(1)
}
