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

func TestMatchRepository_CreateAndGet(t *testing.T) {
	t.Parallel()
	testDB := testutil.SetupTestDatabase(t)

	repo := NewMatchRepository(testDB.DB)
	ctx := context.Background()

	t.Run("round trip", func(t *testing.T) {
		match := testutil.CreateTestMatch("Scrims", "Rival")
		err := repo.Create(ctx, match)
		require.NoError(t, err)
		require.NotZero(t, match.ID)

		got, err := repo.GetByID(ctx, match.ID)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, "Scrims", got.TeamA)
		assert.Equal(t, "Rival", got.TeamB)
		assert.Equal(t, models.MatchStatusNotStarted, got.Status)
		assert.Nil(t, got.Score)
	})

	t.Run("not found", func(t *testing.T) {
		got, err := repo.GetByID(ctx, 999999)
		require.NoError(t, err)
		assert.Nil(t, got)
	})
}

func TestMatchRepository_MarkFinished(t *testing.T) {
	t.Parallel()
	testDB := testutil.SetupTestDatabase(t)

	repo := NewMatchRepository(testDB.DB)
	ctx := context.Background()

	match := testutil.CreateTestMatch("Scrims", "Rival")
	require.NoError(t, repo.Create(ctx, match))

	err := repo.MarkFinished(ctx, match.ID, "2-1")
	require.NoError(t, err)

	got, err := repo.GetByID(ctx, match.ID)
	require.NoError(t, err)
	assert.Equal(t, models.MatchStatusFinished, got.Status)
	require.NotNil(t, got.Score)
	assert.Equal(t, "2-1", *got.Score)

	t.Run("unknown match", func(t *testing.T) {
		err := repo.MarkFinished(ctx, 999999, "2-0")
		assert.Error(t, err)
	})
}

func TestMatchRepository_GetFinishedAgainst(t *testing.T) {
	t.Parallel()
	testDB := testutil.SetupTestDatabase(t)

	repo := NewMatchRepository(testDB.DB)
	ctx := context.Background()

	testutil.SeedFinishedMatches(t, testDB.DB, []*models.Match{
		testutil.CreateFinishedMatch("Scrims", "Rival", "2-0", 10),
		testutil.CreateFinishedMatch("Scrims", "Rival", "1-2", 40),
		testutil.CreateFinishedMatch("Scrims", "Rival", "2-1", 700),
		testutil.CreateFinishedMatch("Scrims", "Others", "2-0", 5),
	})

	t.Run("filters by opponent and window", func(t *testing.T) {
		since := time.Now().AddDate(0, -18, 0)
		matches, err := repo.GetFinishedAgainst(ctx, "Rival", since, 50)
		require.NoError(t, err)
		require.Len(t, matches, 2)
		// Most recent first
		assert.Equal(t, "2-0", *matches[0].Score)
		assert.Equal(t, "1-2", *matches[1].Score)
	})

	t.Run("respects limit", func(t *testing.T) {
		since := time.Now().AddDate(-10, 0, 0)
		matches, err := repo.GetFinishedAgainst(ctx, "Rival", since, 1)
		require.NoError(t, err)
		require.Len(t, matches, 1)
		assert.Equal(t, "2-0", *matches[0].Score)
	})

	t.Run("unknown opponent", func(t *testing.T) {
		matches, err := repo.GetFinishedAgainst(ctx, "Nobody", time.Time{}, 10)
		require.NoError(t, err)
		assert.Empty(t, matches)
	})
}

func TestMatchRepository_GetUpcoming(t *testing.T) {
	t.Parallel()
	testDB := testutil.SetupTestDatabase(t)

	repo := NewMatchRepository(testDB.DB)
	ctx := context.Background()

	later := testutil.CreateTestMatch("Scrims", "Rival")
	later.ScheduledAt = time.Now().Add(48 * time.Hour)
	require.NoError(t, repo.Create(ctx, later))

	sooner := testutil.CreateTestMatch("Scrims", "Others")
	require.NoError(t, repo.Create(ctx, sooner))

	finished := testutil.CreateFinishedMatch("Scrims", "Past", "2-0", 1)
	require.NoError(t, repo.Create(ctx, finished))

	upcoming, err := repo.GetUpcoming(ctx, 10)
	require.NoError(t, err)
	require.Len(t, upcoming, 2)
	assert.Equal(t, "Others", upcoming[0].TeamB)
	assert.Equal(t, "Rival", upcoming[1].TeamB)
}
