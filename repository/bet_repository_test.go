package repository

import (
	"context"
	"testing"
	"time"

	"scrimbet/models"
	"scrimbet/repository/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBetRepository_CreateAndResolve(t *testing.T) {
	t.Parallel()
	testDB := testutil.SetupTestDatabase(t)

	users := NewUserRepository(testDB.DB)
	matches := NewMatchRepository(testDB.DB)
	repo := NewBetRepository(testDB.DB)
	ctx := context.Background()

	_, err := users.Create(ctx, 100, "bettor", 10000)
	require.NoError(t, err)

	match := testutil.CreateTestMatch("Scrims", "Rival")
	require.NoError(t, matches.Create(ctx, match))

	bet := testutil.CreateTestBet(100, match.ID, "Scrims", 500, 1.85)
	require.NoError(t, repo.Create(ctx, bet))
	require.NotZero(t, bet.ID)

	t.Run("created bet is active", func(t *testing.T) {
		got, err := repo.GetByID(ctx, bet.ID)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, models.BetStatusActive, got.Status)
		assert.Equal(t, 1.85, got.Odds)
		assert.Nil(t, got.ResolvedAt)
	})

	t.Run("resolve applies once", func(t *testing.T) {
		resolved, err := repo.ResolveActive(ctx, bet.ID, models.BetStatusWon, time.Now())
		require.NoError(t, err)
		assert.True(t, resolved)

		// Second attempt no longer matches the active status guard
		resolved, err = repo.ResolveActive(ctx, bet.ID, models.BetStatusLost, time.Now())
		require.NoError(t, err)
		assert.False(t, resolved)

		got, err := repo.GetByID(ctx, bet.ID)
		require.NoError(t, err)
		assert.Equal(t, models.BetStatusWon, got.Status)
		require.NotNil(t, got.ResolvedAt)
	})
}

func TestBetRepository_SumActiveByMatchSelection(t *testing.T) {
	t.Parallel()
	testDB := testutil.SetupTestDatabase(t)

	users := NewUserRepository(testDB.DB)
	matches := NewMatchRepository(testDB.DB)
	repo := NewBetRepository(testDB.DB)
	ctx := context.Background()

	_, err := users.Create(ctx, 100, "one", 10000)
	require.NoError(t, err)
	_, err = users.Create(ctx, 200, "two", 10000)
	require.NoError(t, err)

	match := testutil.CreateTestMatch("Scrims", "Rival")
	require.NoError(t, matches.Create(ctx, match))

	require.NoError(t, repo.Create(ctx, testutil.CreateTestBet(100, match.ID, "Scrims", 300, 1.9)))
	require.NoError(t, repo.Create(ctx, testutil.CreateTestBet(200, match.ID, "Scrims", 450, 1.9)))
	require.NoError(t, repo.Create(ctx, testutil.CreateTestBet(200, match.ID, "Rival", 1000, 2.1)))

	sum, err := repo.SumActiveByMatchSelection(ctx, match.ID, models.BetKindTeam, "Scrims")
	require.NoError(t, err)
	assert.Equal(t, int64(750), sum)

	sum, err = repo.SumActiveByMatchSelection(ctx, match.ID, models.BetKindTeam, "Rival")
	require.NoError(t, err)
	assert.Equal(t, int64(1000), sum)

	t.Run("resolved bets drop out", func(t *testing.T) {
		bets, err := repo.GetActiveByMatch(ctx, match.ID)
		require.NoError(t, err)
		require.Len(t, bets, 3)

		_, err = repo.ResolveActive(ctx, bets[0].ID, models.BetStatusLost, time.Now())
		require.NoError(t, err)

		remaining, err := repo.GetActiveByMatch(ctx, match.ID)
		require.NoError(t, err)
		assert.Len(t, remaining, 2)
	})
}

func TestBetRepository_GetStats(t *testing.T) {
	t.Parallel()
	testDB := testutil.SetupTestDatabase(t)

	users := NewUserRepository(testDB.DB)
	matches := NewMatchRepository(testDB.DB)
	repo := NewBetRepository(testDB.DB)
	ctx := context.Background()

	_, err := users.Create(ctx, 100, "bettor", 10000)
	require.NoError(t, err)

	match := testutil.CreateTestMatch("Scrims", "Rival")
	require.NoError(t, matches.Create(ctx, match))

	statuses := []models.BetStatus{
		models.BetStatusWon,
		models.BetStatusWon,
		models.BetStatusLost,
		models.BetStatusCancelled,
	}
	for _, status := range statuses {
		bet := testutil.CreateTestBet(100, match.ID, "Scrims", 100, 1.8)
		require.NoError(t, repo.Create(ctx, bet))
		resolved, err := repo.ResolveActive(ctx, bet.ID, status, time.Now())
		require.NoError(t, err)
		require.True(t, resolved)
	}
	// One still active
	require.NoError(t, repo.Create(ctx, testutil.CreateTestBet(100, match.ID, "Scrims", 100, 1.8)))

	stats, err := repo.GetStats(ctx, 100)
	require.NoError(t, err)
	assert.Equal(t, 5, stats.Total)
	assert.Equal(t, 2, stats.Won)
	assert.Equal(t, 1, stats.Lost)
	assert.Equal(t, 1, stats.Pushed)
}
