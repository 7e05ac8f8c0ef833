package service

import (
	"context"
	"time"

	"sacco/domain"
	"sacco/events"
	"sacco/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

// MockMemberRepository is a mock implementation of MemberRepository
type MockMemberRepository struct {
	mock.Mock
}

func (m *MockMemberRepository) GetByID(ctx context.Context, id int64) (*models.Member, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Member), args.Error(1)
}

func (m *MockMemberRepository) Create(ctx context.Context, member *models.Member) error {
	args := m.Called(ctx, member)
	return args.Error(0)
}

// MockSavingsAccountRepository is a mock implementation of SavingsAccountRepository
type MockSavingsAccountRepository struct {
	mock.Mock
}

func (m *MockSavingsAccountRepository) GetByMemberID(ctx context.Context, memberID int64) (*models.SavingsAccount, error) {
	args := m.Called(ctx, memberID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.SavingsAccount), args.Error(1)
}

func (m *MockSavingsAccountRepository) GetByIDForUpdate(ctx context.Context, id int64) (*models.SavingsAccount, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.SavingsAccount), args.Error(1)
}

func (m *MockSavingsAccountRepository) Create(ctx context.Context, account *models.SavingsAccount) error {
	args := m.Called(ctx, account)
	return args.Error(0)
}

func (m *MockSavingsAccountRepository) AddBalance(ctx context.Context, id int64, amount decimal.Decimal) error {
	args := m.Called(ctx, id, amount)
	return args.Error(0)
}

func (m *MockSavingsAccountRepository) AddInterest(ctx context.Context, id int64, amount decimal.Decimal) error {
	args := m.Called(ctx, id, amount)
	return args.Error(0)
}

func (m *MockSavingsAccountRepository) ListWithPositiveBalance(ctx context.Context) ([]*models.SavingsAccount, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.SavingsAccount), args.Error(1)
}

// MockSavingsBalanceHistoryRepository is a mock implementation of SavingsBalanceHistoryRepository
type MockSavingsBalanceHistoryRepository struct {
	mock.Mock
}

func (m *MockSavingsBalanceHistoryRepository) Record(ctx context.Context, history *models.SavingsBalanceHistory) error {
	args := m.Called(ctx, history)
	return args.Error(0)
}

func (m *MockSavingsBalanceHistoryRepository) GetByAccount(ctx context.Context, savingsAccountID int64, limit int) ([]*models.SavingsBalanceHistory, error) {
	args := m.Called(ctx, savingsAccountID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.SavingsBalanceHistory), args.Error(1)
}

// MockContributionRepository is a mock implementation of ContributionRepository
type MockContributionRepository struct {
	mock.Mock
}

func (m *MockContributionRepository) Create(ctx context.Context, contribution *models.SavingsContribution) error {
	args := m.Called(ctx, contribution)
	return args.Error(0)
}

func (m *MockContributionRepository) GetByID(ctx context.Context, id int64) (*models.SavingsContribution, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.SavingsContribution), args.Error(1)
}

func (m *MockContributionRepository) GetByCollectionTransaction(ctx context.Context, transactionID int64) (*models.SavingsContribution, error) {
	args := m.Called(ctx, transactionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.SavingsContribution), args.Error(1)
}

func (m *MockContributionRepository) GetByPensionTransaction(ctx context.Context, transactionID int64) (*models.SavingsContribution, error) {
	args := m.Called(ctx, transactionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.SavingsContribution), args.Error(1)
}

func (m *MockContributionRepository) MarkVSLAApplied(ctx context.Context, id int64, at time.Time) (bool, error) {
	args := m.Called(ctx, id, at)
	return args.Bool(0), args.Error(1)
}

func (m *MockContributionRepository) MarkVSLAReversed(ctx context.Context, id int64, at time.Time) (bool, error) {
	args := m.Called(ctx, id, at)
	return args.Bool(0), args.Error(1)
}

func (m *MockContributionRepository) MarkCollectionConfirmed(ctx context.Context, id int64, at time.Time) (bool, error) {
	args := m.Called(ctx, id, at)
	return args.Bool(0), args.Error(1)
}

func (m *MockContributionRepository) MarkPensionSettled(ctx context.Context, id int64, at time.Time) (bool, error) {
	args := m.Called(ctx, id, at)
	return args.Bool(0), args.Error(1)
}

// MockPensionRepository is a mock implementation of PensionRepository
type MockPensionRepository struct {
	mock.Mock
}

func (m *MockPensionRepository) GetAccountByMemberID(ctx context.Context, memberID int64) (*models.PensionAccount, error) {
	args := m.Called(ctx, memberID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.PensionAccount), args.Error(1)
}

func (m *MockPensionRepository) CreateAccount(ctx context.Context, account *models.PensionAccount) error {
	args := m.Called(ctx, account)
	return args.Error(0)
}

func (m *MockPensionRepository) AddToTotal(ctx context.Context, memberID int64, amount decimal.Decimal) error {
	args := m.Called(ctx, memberID, amount)
	return args.Error(0)
}

func (m *MockPensionRepository) GetProvider(ctx context.Context, id int64) (*models.PensionProvider, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.PensionProvider), args.Error(1)
}

func (m *MockPensionRepository) CreateProvider(ctx context.Context, provider *models.PensionProvider) error {
	args := m.Called(ctx, provider)
	return args.Error(0)
}

// MockLoanRepository is a mock implementation of LoanRepository
type MockLoanRepository struct {
	mock.Mock
}

func (m *MockLoanRepository) Create(ctx context.Context, loan *models.LoanAccount) error {
	args := m.Called(ctx, loan)
	return args.Error(0)
}

func (m *MockLoanRepository) GetByID(ctx context.Context, id int64) (*models.LoanAccount, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.LoanAccount), args.Error(1)
}

func (m *MockLoanRepository) GetByIDForUpdate(ctx context.Context, id int64) (*models.LoanAccount, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.LoanAccount), args.Error(1)
}

func (m *MockLoanRepository) GetByDisbursementTransaction(ctx context.Context, transactionID int64) (*models.LoanAccount, error) {
	args := m.Called(ctx, transactionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.LoanAccount), args.Error(1)
}

func (m *MockLoanRepository) Update(ctx context.Context, loan *models.LoanAccount, expectedStatus models.LoanStatus) (bool, error) {
	args := m.Called(ctx, loan, expectedStatus)
	return args.Bool(0), args.Error(1)
}

// MockGuarantorRepository is a mock implementation of GuarantorRepository
type MockGuarantorRepository struct {
	mock.Mock
}

func (m *MockGuarantorRepository) Create(ctx context.Context, guarantor *models.Guarantor) error {
	args := m.Called(ctx, guarantor)
	return args.Error(0)
}

func (m *MockGuarantorRepository) GetByID(ctx context.Context, id int64) (*models.Guarantor, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Guarantor), args.Error(1)
}

func (m *MockGuarantorRepository) ListActiveByLoan(ctx context.Context, loanID int64) ([]*models.Guarantor, error) {
	args := m.Called(ctx, loanID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Guarantor), args.Error(1)
}

func (m *MockGuarantorRepository) ListByLoan(ctx context.Context, loanID int64) ([]*models.Guarantor, error) {
	args := m.Called(ctx, loanID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Guarantor), args.Error(1)
}

func (m *MockGuarantorRepository) Respond(ctx context.Context, id int64, status models.GuarantorStatus, at time.Time) (bool, error) {
	args := m.Called(ctx, id, status, at)
	return args.Bool(0), args.Error(1)
}

func (m *MockGuarantorRepository) MarkReplaced(ctx context.Context, id int64, at time.Time) (bool, error) {
	args := m.Called(ctx, id, at)
	return args.Bool(0), args.Error(1)
}

func (m *MockGuarantorRepository) ExpirePendingBefore(ctx context.Context, cutoff time.Time) ([]*models.Guarantor, error) {
	args := m.Called(ctx, cutoff)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Guarantor), args.Error(1)
}

// MockRepaymentRepository is a mock implementation of RepaymentRepository
type MockRepaymentRepository struct {
	mock.Mock
}

func (m *MockRepaymentRepository) Create(ctx context.Context, repayment *models.LoanRepayment) error {
	args := m.Called(ctx, repayment)
	return args.Error(0)
}

func (m *MockRepaymentRepository) GetByTransaction(ctx context.Context, transactionID int64) (*models.LoanRepayment, error) {
	args := m.Called(ctx, transactionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.LoanRepayment), args.Error(1)
}

func (m *MockRepaymentRepository) UpdateStatus(ctx context.Context, id int64, from, to models.RepaymentStatus, at time.Time) (bool, error) {
	args := m.Called(ctx, id, from, to, at)
	return args.Bool(0), args.Error(1)
}

// MockTransactionRepository is a mock implementation of TransactionRepository
type MockTransactionRepository struct {
	mock.Mock
}

func (m *MockTransactionRepository) Create(ctx context.Context, tx *models.Transaction) error {
	args := m.Called(ctx, tx)
	return args.Error(0)
}

func (m *MockTransactionRepository) GetByID(ctx context.Context, id int64) (*models.Transaction, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Transaction), args.Error(1)
}

func (m *MockTransactionRepository) GetByIDForUpdate(ctx context.Context, id int64) (*models.Transaction, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Transaction), args.Error(1)
}

func (m *MockTransactionRepository) FindForCallback(ctx context.Context, txType models.TransactionType, reference, correlationID string) (*models.Transaction, error) {
	args := m.Called(ctx, txType, reference, correlationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Transaction), args.Error(1)
}

func (m *MockTransactionRepository) ClaimDispatch(ctx context.Context, id int64, at time.Time) (bool, error) {
	args := m.Called(ctx, id, at)
	return args.Bool(0), args.Error(1)
}

func (m *MockTransactionRepository) ListUndispatched(ctx context.Context, cutoff time.Time, limit int) ([]*models.Transaction, error) {
	args := m.Called(ctx, cutoff, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Transaction), args.Error(1)
}

func (m *MockTransactionRepository) MarkProcessing(ctx context.Context, id int64, correlationID string) (bool, error) {
	args := m.Called(ctx, id, correlationID)
	return args.Bool(0), args.Error(1)
}

func (m *MockTransactionRepository) SetCorrelationID(ctx context.Context, id int64, correlationID string) error {
	args := m.Called(ctx, id, correlationID)
	return args.Error(0)
}

func (m *MockTransactionRepository) Settle(ctx context.Context, tx *models.Transaction) (bool, error) {
	args := m.Called(ctx, tx)
	return args.Bool(0), args.Error(1)
}

// MockInterestRunRepository is a mock implementation of InterestRunRepository
type MockInterestRunRepository struct {
	mock.Mock
}

func (m *MockInterestRunRepository) GetByDate(ctx context.Context, date time.Time) (*models.InterestRun, error) {
	args := m.Called(ctx, date)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.InterestRun), args.Error(1)
}

func (m *MockInterestRunRepository) Create(ctx context.Context, run *models.InterestRun) error {
	args := m.Called(ctx, run)
	return args.Error(0)
}

func (m *MockInterestRunRepository) GetLatest(ctx context.Context) (*models.InterestRun, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.InterestRun), args.Error(1)
}

// MockEventPublisher is a mock implementation of EventPublisher
type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) Publish(event events.Event) {
	m.Called(event)
}

// MockUnitOfWork is a mock implementation of UnitOfWork.
// Repositories left nil are reported as unexpected calls.
type MockUnitOfWork struct {
	mock.Mock

	Members      *MockMemberRepository
	Savings      *MockSavingsAccountRepository
	History      *MockSavingsBalanceHistoryRepository
	Contribution *MockContributionRepository
	Pensions     *MockPensionRepository
	Loans        *MockLoanRepository
	Guarantors   *MockGuarantorRepository
	Repayments   *MockRepaymentRepository
	Transactions *MockTransactionRepository
	InterestRuns *MockInterestRunRepository
	Events       *MockEventPublisher
}

// NewMockUnitOfWork returns a unit of work wired to fresh repository mocks
func NewMockUnitOfWork() *MockUnitOfWork {
	return &MockUnitOfWork{
		Members:      new(MockMemberRepository),
		Savings:      new(MockSavingsAccountRepository),
		History:      new(MockSavingsBalanceHistoryRepository),
		Contribution: new(MockContributionRepository),
		Pensions:     new(MockPensionRepository),
		Loans:        new(MockLoanRepository),
		Guarantors:   new(MockGuarantorRepository),
		Repayments:   new(MockRepaymentRepository),
		Transactions: new(MockTransactionRepository),
		InterestRuns: new(MockInterestRunRepository),
		Events:       new(MockEventPublisher),
	}
}

// ExpectTransaction sets up Begin, Rollback and optionally Commit
func (m *MockUnitOfWork) ExpectTransaction(ctx context.Context, commit bool) {
	m.On("Begin", ctx).Return(nil)
	m.On("Rollback").Return(nil)
	if commit {
		m.On("Commit").Return(nil)
	}
}

// AssertRepositories asserts expectations on every repository mock
func (m *MockUnitOfWork) AssertRepositories(t mock.TestingT) {
	m.Members.AssertExpectations(t)
	m.Savings.AssertExpectations(t)
	m.History.AssertExpectations(t)
	m.Contribution.AssertExpectations(t)
	m.Pensions.AssertExpectations(t)
	m.Loans.AssertExpectations(t)
	m.Guarantors.AssertExpectations(t)
	m.Repayments.AssertExpectations(t)
	m.Transactions.AssertExpectations(t)
	m.InterestRuns.AssertExpectations(t)
}

func (m *MockUnitOfWork) Begin(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockUnitOfWork) Commit() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockUnitOfWork) Rollback() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockUnitOfWork) MemberRepository() MemberRepository {
	return m.Members
}

func (m *MockUnitOfWork) SavingsAccountRepository() SavingsAccountRepository {
	return m.Savings
}

func (m *MockUnitOfWork) SavingsBalanceHistoryRepository() SavingsBalanceHistoryRepository {
	return m.History
}

func (m *MockUnitOfWork) ContributionRepository() ContributionRepository {
	return m.Contribution
}

func (m *MockUnitOfWork) PensionRepository() PensionRepository {
	return m.Pensions
}

func (m *MockUnitOfWork) LoanRepository() LoanRepository {
	return m.Loans
}

func (m *MockUnitOfWork) GuarantorRepository() GuarantorRepository {
	return m.Guarantors
}

func (m *MockUnitOfWork) RepaymentRepository() RepaymentRepository {
	return m.Repayments
}

func (m *MockUnitOfWork) TransactionRepository() TransactionRepository {
	return m.Transactions
}

func (m *MockUnitOfWork) InterestRunRepository() InterestRunRepository {
	return m.InterestRuns
}

func (m *MockUnitOfWork) EventBus() EventPublisher {
	return m.Events
}

// MockUnitOfWorkFactory is a mock implementation of UnitOfWorkFactory
type MockUnitOfWorkFactory struct {
	mock.Mock
}

func (m *MockUnitOfWorkFactory) Create() UnitOfWork {
	args := m.Called()
	return args.Get(0).(UnitOfWork)
}

// MockPaymentGateway is a mock implementation of PaymentGateway
type MockPaymentGateway struct {
	mock.Mock
}

func (m *MockPaymentGateway) InitiateCollection(ctx context.Context, req models.GatewayRequest) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

func (m *MockPaymentGateway) InitiateDisbursement(ctx context.Context, req models.GatewayRequest) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

func (m *MockPaymentGateway) InitiateTransfer(ctx context.Context, req models.GatewayRequest) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

// MockNotifier is a mock implementation of Notifier
type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) Notify(ctx context.Context, notification models.Notification) error {
	args := m.Called(ctx, notification)
	return args.Error(0)
}

// MockEffectExecutor is a mock implementation of EffectExecutor
type MockEffectExecutor struct {
	mock.Mock
}

func (m *MockEffectExecutor) Execute(ctx context.Context, effects []domain.Effect) []*models.Transaction {
	args := m.Called(ctx, effects)
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).([]*models.Transaction)
}

// MockTransactionLedger is a mock implementation of TransactionLedger
type MockTransactionLedger struct {
	mock.Mock
}

func (m *MockTransactionLedger) Open(ctx context.Context, uow UnitOfWork, newTx models.NewTransaction) (*models.Transaction, error) {
	args := m.Called(ctx, uow, newTx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Transaction), args.Error(1)
}

func (m *MockTransactionLedger) Dispatch(ctx context.Context, transactionID int64) (*models.Transaction, []domain.Effect, error) {
	args := m.Called(ctx, transactionID)
	var tx *models.Transaction
	if args.Get(0) != nil {
		tx = args.Get(0).(*models.Transaction)
	}
	var effects []domain.Effect
	if args.Get(1) != nil {
		effects = args.Get(1).([]domain.Effect)
	}
	return tx, effects, args.Error(2)
}

func (m *MockTransactionLedger) Settle(ctx context.Context, uow UnitOfWork, tx *models.Transaction, status models.TransactionStatus, resultCode int, resultDesc string) (*models.Transaction, []domain.Effect, error) {
	args := m.Called(ctx, uow, tx, status, resultCode, resultDesc)
	var settled *models.Transaction
	if args.Get(0) != nil {
		settled = args.Get(0).(*models.Transaction)
	}
	var effects []domain.Effect
	if args.Get(1) != nil {
		effects = args.Get(1).([]domain.Effect)
	}
	return settled, effects, args.Error(2)
}
