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

func TestInterestRunRepository_GetByDate(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)

	repo := NewInterestRunRepository(testDB.DB)
	ctx := context.Background()

	testDate := time.Date(2024, 1, 15, 12, 30, 45, 0, time.UTC)

	t.Run("no run found", func(t *testing.T) {
		run, err := repo.GetByDate(ctx, testDate)
		require.NoError(t, err)
		assert.Nil(t, run)
	})

	t.Run("run found", func(t *testing.T) {
		originalRun := testutil.CreateTestInterestRun(testDate)
		err := repo.Create(ctx, originalRun)
		require.NoError(t, err)

		run, err := repo.GetByDate(ctx, testDate)
		require.NoError(t, err)
		require.NotNil(t, run)

		assert.True(t, originalRun.TotalInterestDistributed.Equal(run.TotalInterestDistributed))
		assert.Equal(t, originalRun.AccountsAffected, run.AccountsAffected)
		assert.NotNil(t, run.ExecutionSummary)

		// Date should be normalized to start of day
		expectedDate := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
		assert.True(t, expectedDate.Equal(run.RunDate))
	})

	t.Run("date normalization", func(t *testing.T) {
		runDate := time.Date(2024, 2, 20, 14, 25, 30, 500, time.UTC)
		run := testutil.CreateTestInterestRun(runDate)
		err := repo.Create(ctx, run)
		require.NoError(t, err)

		// Same calendar day, different time
		queryDate := time.Date(2024, 2, 20, 9, 45, 15, 123, time.UTC)
		retrievedRun, err := repo.GetByDate(ctx, queryDate)
		require.NoError(t, err)
		require.NotNil(t, retrievedRun)

		assert.Equal(t, run.ID, retrievedRun.ID)
	})
}

func TestInterestRunRepository_Create(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)

	repo := NewInterestRunRepository(testDB.DB)
	ctx := context.Background()

	t.Run("successful creation", func(t *testing.T) {
		testDate := time.Date(2024, 3, 10, 15, 30, 0, 0, time.UTC)
		run := testutil.CreateTestInterestRunWithDetails(testDate, testutil.Money("250.75"), 50)
		run.ExecutionSummary = map[string]interface{}{
			"accounts_listed":   75,
			"accounts_credited": 50,
			"annual_rate":       "2.5",
		}

		err := repo.Create(ctx, run)
		require.NoError(t, err)
		assert.NotZero(t, run.ID)
		assert.False(t, run.CreatedAt.IsZero())

		expectedDate := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)
		assert.Equal(t, expectedDate, run.RunDate)
	})

	t.Run("duplicate date constraint", func(t *testing.T) {
		testDate := time.Date(2024, 4, 5, 10, 0, 0, 0, time.UTC)

		run1 := testutil.CreateTestInterestRun(testDate)
		err := repo.Create(ctx, run1)
		require.NoError(t, err)

		// A second run for the same day must be refused
		run2 := testutil.CreateTestInterestRun(testDate)
		err = repo.Create(ctx, run2)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "unique")
	})

	t.Run("empty execution summary", func(t *testing.T) {
		testDate := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
		run := testutil.CreateTestInterestRun(testDate)
		run.ExecutionSummary = nil

		err := repo.Create(ctx, run)
		require.NoError(t, err)
		assert.NotZero(t, run.ID)
	})
}

func TestInterestRunRepository_GetLatest(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)

	repo := NewInterestRunRepository(testDB.DB)
	ctx := context.Background()

	t.Run("no runs exist", func(t *testing.T) {
		run, err := repo.GetLatest(ctx)
		require.NoError(t, err)
		assert.Nil(t, run)
	})

	t.Run("multiple runs returns latest", func(t *testing.T) {
		dates := []time.Time{
			time.Date(2024, 8, 5, 0, 0, 0, 0, time.UTC),
			time.Date(2024, 8, 1, 0, 0, 0, 0, time.UTC),
			time.Date(2024, 8, 10, 0, 0, 0, 0, time.UTC),
			time.Date(2024, 8, 3, 0, 0, 0, 0, time.UTC),
		}

		var latestRun *models.InterestRun
		for i, date := range dates {
			run := testutil.CreateTestInterestRunWithDetails(date, testutil.Money("15.00"), i+5)
			err := repo.Create(ctx, run)
			require.NoError(t, err)
			if latestRun == nil || date.After(latestRun.RunDate) {
				latestRun = run
			}
		}

		latest, err := repo.GetLatest(ctx)
		require.NoError(t, err)
		require.NotNil(t, latest)

		assert.Equal(t, latestRun.ID, latest.ID)
		assert.Equal(t, "2024-08-10", latest.RunDate.Format("2006-01-02"))
	})

	t.Run("metadata preservation in latest", func(t *testing.T) {
		testDate := time.Date(2024, 9, 20, 0, 0, 0, 0, time.UTC)
		run := testutil.CreateTestInterestRun(testDate)
		run.ExecutionSummary = map[string]interface{}{
			"test_mode":       true,
			"total_processed": 100,
			"execution_stats": map[string]interface{}{
				"duration_ms": 1500,
			},
		}
		err := repo.Create(ctx, run)
		require.NoError(t, err)

		latest, err := repo.GetLatest(ctx)
		require.NoError(t, err)
		require.NotNil(t, latest)

		assert.Equal(t, true, latest.ExecutionSummary["test_mode"])
		assert.Equal(t, float64(100), latest.ExecutionSummary["total_processed"])

		execStats := latest.ExecutionSummary["execution_stats"].(map[string]interface{})
		assert.Equal(t, float64(1500), execStats["duration_ms"])
	})
}
