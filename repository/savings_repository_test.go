package repository

import (
	"context"
	"testing"
	"time"

	"sacco/models"
	"sacco/repository/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSavingsAccountRepository_Balances(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)
	repo := NewSavingsAccountRepository(testDB.DB)
	ctx := context.Background()

	member, account := testutil.SeedMember(t, testDB.DB, "Njeri", testutil.Money("1000.00"))
	_, _ = testutil.SeedMember(t, testDB.DB, "Empty", testutil.Money("0"))

	require.NoError(t, repo.AddBalance(ctx, account.ID, testutil.Money("900.00")))
	require.NoError(t, repo.AddBalance(ctx, account.ID, testutil.Money("-400.00")))
	require.NoError(t, repo.AddInterest(ctx, account.ID, testutil.Money("0.10")))

	stored, err := repo.GetByMemberID(ctx, member.ID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.True(t, testutil.Money("1500.10").Equal(stored.Balance), "balance %s", stored.Balance)
	assert.True(t, testutil.Money("0.10").Equal(stored.InterestAccrued))

	positive, err := repo.ListWithPositiveBalance(ctx)
	require.NoError(t, err)
	require.Len(t, positive, 1)
	assert.Equal(t, account.ID, positive[0].ID)

	err = repo.AddBalance(ctx, account.ID+1000, testutil.Money("1.00"))
	assert.Error(t, err)
}

func TestSavingsBalanceHistoryRepository_RecordAndList(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)
	repo := NewSavingsBalanceHistoryRepository(testDB.DB)
	ctx := context.Background()

	member, account := testutil.SeedMember(t, testDB.DB, "Mutua", testutil.Money("1000.00"))

	relatedID := int64(42)
	relatedType := models.RelatedTypeContribution
	history := &models.SavingsBalanceHistory{
		SavingsAccountID: account.ID,
		MemberID:         member.ID,
		BalanceBefore:    testutil.Money("1000.00"),
		BalanceAfter:     testutil.Money("1900.00"),
		ChangeAmount:     testutil.Money("900.00"),
		ChangeType:       models.BalanceChangeContribution,
		ChangeMetadata:   map[string]any{"contributed_amount": "1000.00"},
		RelatedID:        &relatedID,
		RelatedType:      &relatedType,
	}
	require.NoError(t, repo.Record(ctx, history))
	assert.NotZero(t, history.ID)

	entries, err := repo.GetByAccount(ctx, account.ID, 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, models.BalanceChangeContribution, entries[0].ChangeType)
	assert.True(t, testutil.Money("900.00").Equal(entries[0].ChangeAmount))
	assert.Equal(t, "1000.00", entries[0].ChangeMetadata["contributed_amount"])
	require.NotNil(t, entries[0].RelatedID)
	assert.Equal(t, relatedID, *entries[0].RelatedID)
}

func TestContributionRepository_MarksAreOneShot(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)
	repo := NewContributionRepository(testDB.DB)
	transactions := NewTransactionRepository(testDB.DB)
	ctx := context.Background()

	member, account := testutil.SeedMember(t, testDB.DB, "Chebet", testutil.Money("0"))

	collection := testutil.CreateTestTransaction(member.ID, models.TransactionTypeC2B, models.TransactionPurposeSavings, testutil.Money("1000.00"))
	require.NoError(t, transactions.Create(ctx, collection))

	now := time.Now().UTC()
	contribution := &models.SavingsContribution{
		MemberID:                member.ID,
		SavingsAccountID:        account.ID,
		ContributedAmount:       testutil.Money("1000.00"),
		PensionAmount:           testutil.Money("100.00"),
		VSLAAmount:              testutil.Money("900.00"),
		CollectionTransactionID: &collection.ID,
		CompletedAt:             &now,
		VSLAAppliedAt:           &now,
	}
	require.NoError(t, repo.Create(ctx, contribution))

	found, err := repo.GetByCollectionTransaction(ctx, collection.ID)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, contribution.ID, found.ID)
	assert.NotNil(t, found.VSLAAppliedAt)
	assert.Nil(t, found.VSLAReversedAt)

	// Already applied at creation
	changed, err := repo.MarkVSLAApplied(ctx, contribution.ID, now)
	require.NoError(t, err)
	assert.False(t, changed)

	changed, err = repo.MarkVSLAReversed(ctx, contribution.ID, now)
	require.NoError(t, err)
	assert.True(t, changed)

	changed, err = repo.MarkVSLAReversed(ctx, contribution.ID, now)
	require.NoError(t, err)
	assert.False(t, changed)

	t.Run("split must add up", func(t *testing.T) {
		bad := &models.SavingsContribution{
			MemberID:          member.ID,
			SavingsAccountID:  account.ID,
			ContributedAmount: testutil.Money("1000.00"),
			PensionAmount:     testutil.Money("100.00"),
			VSLAAmount:        testutil.Money("800.00"),
		}
		assert.Error(t, repo.Create(ctx, bad))
	})
}

func TestPensionRepository_AddToTotal(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)
	repo := NewPensionRepository(testDB.DB)
	ctx := context.Background()

	member, _ := testutil.SeedMember(t, testDB.DB, "Wambui", testutil.Money("0"))
	provider := testutil.SeedPension(t, testDB.DB, member.ID, testutil.Money("10"), models.PensionProviderStatusActive)

	require.NoError(t, repo.AddToTotal(ctx, member.ID, testutil.Money("100.00")))
	require.NoError(t, repo.AddToTotal(ctx, member.ID, testutil.Money("50.50")))

	account, err := repo.GetAccountByMemberID(ctx, member.ID)
	require.NoError(t, err)
	require.NotNil(t, account)
	assert.True(t, account.OptedIn)
	assert.True(t, testutil.Money("150.50").Equal(account.TotalPensionAmount))
	require.NotNil(t, account.ProviderID)
	assert.Equal(t, provider.ID, *account.ProviderID)

	stored, err := repo.GetProvider(ctx, provider.ID)
	require.NoError(t, err)
	assert.True(t, stored.IsActive())

	none, err := repo.GetAccountByMemberID(ctx, member.ID+1000)
	require.NoError(t, err)
	assert.Nil(t, none)
}
