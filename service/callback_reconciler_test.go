package service

import (
	"context"
	"errors"
	"testing"

	"sacco/domain"
	"sacco/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestCallbackReconciler_RejectsCallbackWithoutIdentifiers(t *testing.T) {
	factory := new(MockUnitOfWorkFactory)
	reconciler := NewCallbackReconciler(factory, new(MockTransactionLedger), new(MockEffectExecutor))

	_, err := reconciler.Reconcile(context.Background(), models.GatewayCallback{Type: models.TransactionTypeC2B, ResultCode: 0})

	assert.ErrorIs(t, err, domain.ErrUnresolvableCallback)
	factory.AssertNotCalled(t, "Create")
}

func TestCallbackReconciler_UnknownTransaction(t *testing.T) {
	ctx := context.Background()
	uow := NewMockUnitOfWork()
	uow.ExpectTransaction(ctx, false)
	reconciler := NewCallbackReconciler(newMockFactory(uow), new(MockTransactionLedger), new(MockEffectExecutor))

	uow.Transactions.On("FindForCallback", ctx, models.TransactionTypeC2B, "", "ws_CO_unknown").Return(nil, nil)

	_, err := reconciler.Reconcile(ctx, models.GatewayCallback{Type: models.TransactionTypeC2B, CorrelationID: "ws_CO_unknown"})

	assert.ErrorIs(t, err, domain.ErrTransactionNotFound)
}

func TestCallbackReconciler_ConflictingIdentifiers(t *testing.T) {
	ctx := context.Background()
	uow := NewMockUnitOfWork()
	uow.ExpectTransaction(ctx, false)
	ledger := new(MockTransactionLedger)
	reconciler := NewCallbackReconciler(newMockFactory(uow), ledger, new(MockEffectExecutor))

	corr := "AG_0001"
	tx := &models.Transaction{ID: 1, Reference: "ref-1", CorrelationID: &corr, Type: models.TransactionTypeB2C, Status: models.TransactionStatusProcessing}
	uow.Transactions.On("FindForCallback", ctx, models.TransactionTypeB2C, "ref-1", "AG_0002").Return(tx, nil)

	_, err := reconciler.Reconcile(ctx, models.GatewayCallback{Type: models.TransactionTypeB2C, Reference: "ref-1", CorrelationID: "AG_0002"})

	assert.ErrorIs(t, err, domain.ErrUnresolvableCallback)
	ledger.AssertNotCalled(t, "Settle", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestCallbackReconciler_DuplicateIsNoOp(t *testing.T) {
	ctx := context.Background()
	uow := NewMockUnitOfWork()
	uow.ExpectTransaction(ctx, false)
	ledger := new(MockTransactionLedger)
	executor := new(MockEffectExecutor)
	reconciler := NewCallbackReconciler(newMockFactory(uow), ledger, executor)

	corr := "ws_CO_0001"
	tx := &models.Transaction{ID: 1, Reference: "ref-1", CorrelationID: &corr, Type: models.TransactionTypeC2B, Status: models.TransactionStatusSuccess}
	uow.Transactions.On("FindForCallback", ctx, models.TransactionTypeC2B, "", corr).Return(tx, nil)

	result, err := reconciler.Reconcile(ctx, models.GatewayCallback{Type: models.TransactionTypeC2B, CorrelationID: corr, ResultCode: 0})

	require.NoError(t, err)
	assert.Equal(t, models.CallbackOutcomeDuplicate, result.Outcome)
	assert.Equal(t, tx, result.Transaction)
	uow.AssertNotCalled(t, "Commit")
	ledger.AssertNotCalled(t, "Settle", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	executor.AssertNotCalled(t, "Execute", mock.Anything, mock.Anything)
}

func TestCallbackReconciler_AppliesOutcome(t *testing.T) {
	ctx := context.Background()
	uow := NewMockUnitOfWork()
	uow.ExpectTransaction(ctx, true)
	ledger := new(MockTransactionLedger)
	executor := new(MockEffectExecutor)
	reconciler := NewCallbackReconciler(newMockFactory(uow), ledger, executor)

	tx := &models.Transaction{ID: 1, Reference: "ref-1", Type: models.TransactionTypeC2B, Status: models.TransactionStatusInitiated}
	settled := *tx
	settled.Status = models.TransactionStatusTimeout
	effects := []domain.Effect{domain.Notify{Notification: models.Notification{MemberID: 1, Kind: models.NotificationPaymentFailed}}}

	uow.Transactions.On("FindForCallback", ctx, models.TransactionTypeC2B, "ref-1", "ws_CO_0001").Return(tx, nil)
	uow.Transactions.On("SetCorrelationID", ctx, int64(1), "ws_CO_0001").Return(nil)
	ledger.On("Settle", ctx, uow, tx, models.TransactionStatusTimeout, 1037, "DS timeout user cannot be reached").
		Return(&settled, effects, nil)
	executor.On("Execute", ctx, effects).Return(nil)

	result, err := reconciler.Reconcile(ctx, models.GatewayCallback{
		Type:          models.TransactionTypeC2B,
		Reference:     "ref-1",
		CorrelationID: "ws_CO_0001",
		ResultCode:    1037,
		ResultDesc:    "DS timeout user cannot be reached",
	})

	require.NoError(t, err)
	assert.Equal(t, models.CallbackOutcomeApplied, result.Outcome)
	assert.Equal(t, models.TransactionStatusTimeout, result.Transaction.Status)
	assert.Equal(t, "ws_CO_0001", *tx.CorrelationID)
	uow.AssertExpectations(t)
	ledger.AssertExpectations(t)
	executor.AssertExpectations(t)
}

func TestCallbackReconciler_SettleErrorRollsBack(t *testing.T) {
	ctx := context.Background()
	uow := NewMockUnitOfWork()
	uow.ExpectTransaction(ctx, false)
	ledger := new(MockTransactionLedger)
	executor := new(MockEffectExecutor)
	reconciler := NewCallbackReconciler(newMockFactory(uow), ledger, executor)

	corr := "AG_0001"
	tx := &models.Transaction{ID: 1, Reference: "ref-1", CorrelationID: &corr, Type: models.TransactionTypeB2C, Status: models.TransactionStatusProcessing}
	uow.Transactions.On("FindForCallback", ctx, models.TransactionTypeB2C, "ref-1", "").Return(tx, nil)
	ledger.On("Settle", ctx, uow, tx, models.TransactionStatusSuccess, 0, "ok").Return(nil, nil, errors.New("deadlock detected"))

	_, err := reconciler.Reconcile(ctx, models.GatewayCallback{Type: models.TransactionTypeB2C, Reference: "ref-1", ResultDesc: "ok"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "deadlock detected")
	uow.AssertNotCalled(t, "Commit")
	executor.AssertNotCalled(t, "Execute", mock.Anything, mock.Anything)
}

func TestCallbackReconciler_SettlesTransactionWithUnknownInitiationOutcome(t *testing.T) {
	ctx := context.Background()
	uow := NewMockUnitOfWork()
	uow.ExpectTransaction(ctx, true)
	ledger := new(MockTransactionLedger)
	executor := new(MockEffectExecutor)
	reconciler := NewCallbackReconciler(newMockFactory(uow), ledger, executor)

	// dispatch timed out, so the row is processing without a correlation id
	tx := &models.Transaction{ID: 1, Reference: "ref-1", Type: models.TransactionTypeC2B, Status: models.TransactionStatusProcessing}
	settled := *tx
	settled.Status = models.TransactionStatusSuccess

	uow.Transactions.On("FindForCallback", ctx, models.TransactionTypeC2B, "ref-1", "ws_CO_0002").Return(tx, nil)
	uow.Transactions.On("SetCorrelationID", ctx, int64(1), "ws_CO_0002").Return(nil)
	ledger.On("Settle", ctx, uow, tx, models.TransactionStatusSuccess, 0, "The service request is processed successfully.").
		Return(&settled, []domain.Effect(nil), nil)
	executor.On("Execute", ctx, []domain.Effect(nil)).Return(nil)

	result, err := reconciler.Reconcile(ctx, models.GatewayCallback{
		Type:          models.TransactionTypeC2B,
		Reference:     "ref-1",
		CorrelationID: "ws_CO_0002",
		ResultCode:    0,
		ResultDesc:    "The service request is processed successfully.",
	})

	require.NoError(t, err)
	assert.Equal(t, models.CallbackOutcomeApplied, result.Outcome)
	assert.Equal(t, models.TransactionStatusSuccess, result.Transaction.Status)
	uow.AssertRepositories(t)
	ledger.AssertExpectations(t)
}
