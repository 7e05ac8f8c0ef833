package repository

import (
	"context"
	"testing"
	"time"

	"sacco/events"
	"sacco/models"
	"sacco/repository/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnitOfWork_CommitFlushesEvents(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)
	bus := events.NewBus()
	factory := NewUnitOfWorkFactory(testDB.DB, bus)
	ctx := context.Background()

	received := make(chan events.Event, 1)
	bus.Subscribe(events.EventTypeTransactionInitiated, func(ctx context.Context, e events.Event) {
		received <- e
	})

	member, _ := testutil.SeedMember(t, testDB.DB, "Kiprop", testutil.Money("0"))

	uow := factory.Create()
	require.NoError(t, uow.Begin(ctx))
	defer uow.Rollback()

	tx := testutil.CreateTestTransaction(member.ID, models.TransactionTypeC2B, models.TransactionPurposeSavings, testutil.Money("10.00"))
	require.NoError(t, uow.TransactionRepository().Create(ctx, tx))
	uow.EventBus().Publish(events.TransactionInitiatedEvent{TransactionID: tx.ID, Reference: tx.Reference})

	select {
	case <-received:
		t.Fatal("event delivered before commit")
	case <-time.After(50 * time.Millisecond):
	}

	require.NoError(t, uow.Commit())

	select {
	case e := <-received:
		assert.Equal(t, events.EventTypeTransactionInitiated, e.Type())
	case <-time.After(2 * time.Second):
		t.Fatal("event not delivered after commit")
	}

	stored, err := NewTransactionRepository(testDB.DB).GetByID(ctx, tx.ID)
	require.NoError(t, err)
	assert.NotNil(t, stored)
}

func TestUnitOfWork_RollbackDiscardsWrites(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)
	factory := NewUnitOfWorkFactory(testDB.DB, events.NewBus())
	ctx := context.Background()

	member, account := testutil.SeedMember(t, testDB.DB, "Atieno", testutil.Money("100.00"))

	uow := factory.Create()
	require.NoError(t, uow.Begin(ctx))
	require.NoError(t, uow.SavingsAccountRepository().AddBalance(ctx, account.ID, testutil.Money("50.00")))
	require.NoError(t, uow.Rollback())

	stored, err := NewSavingsAccountRepository(testDB.DB).GetByMemberID(ctx, member.ID)
	require.NoError(t, err)
	assert.True(t, testutil.Money("100.00").Equal(stored.Balance))
}

func TestUnitOfWork_RepositoriesRequireBegin(t *testing.T) {
	uow := (&unitOfWorkFactory{}).Create()
	assert.PanicsWithValue(t, "unit of work not started - call Begin() first", func() {
		uow.LoanRepository()
	})
}
