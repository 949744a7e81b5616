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

func TestTournamentRepository_Lifecycle(t *testing.T) {
	t.Parallel()
	testDB := testutil.SetupTestDatabase(t)

	repo := NewTournamentRepository(testDB.DB)
	ctx := context.Background()

	tournament := testutil.CreateTestTournament(9001, "Summer Ladder")
	require.NoError(t, repo.Create(ctx, tournament))
	require.NotZero(t, tournament.ID)

	t.Run("current by guild", func(t *testing.T) {
		current, err := repo.GetCurrentByGuild(ctx, 9001)
		require.NoError(t, err)
		require.NotNil(t, current)
		assert.Equal(t, tournament.ID, current.ID)

		none, err := repo.GetCurrentByGuild(ctx, 12345)
		require.NoError(t, err)
		assert.Nil(t, none)
	})

	t.Run("transition applies once", func(t *testing.T) {
		moved, err := repo.TransitionStatus(ctx, tournament.ID, models.TournamentStatusRegistration, models.TournamentStatusActive)
		require.NoError(t, err)
		assert.True(t, moved)

		// The from-status guard no longer matches
		moved, err = repo.TransitionStatus(ctx, tournament.ID, models.TournamentStatusRegistration, models.TournamentStatusActive)
		require.NoError(t, err)
		assert.False(t, moved)

		got, err := repo.GetByID(ctx, tournament.ID)
		require.NoError(t, err)
		assert.Equal(t, models.TournamentStatusActive, got.Status)
	})
}

func TestTournamentRepository_Ladder(t *testing.T) {
	t.Parallel()
	testDB := testutil.SetupTestDatabase(t)

	users := NewUserRepository(testDB.DB)
	repo := NewTournamentRepository(testDB.DB)
	ctx := context.Background()

	for id, name := range map[int64]string{1: "first", 2: "second", 3: "third"} {
		_, err := users.Create(ctx, id, name, 10000)
		require.NoError(t, err)
	}

	tournament := testutil.CreateTestTournament(9001, "Summer Ladder")
	require.NoError(t, repo.Create(ctx, tournament))

	t.Run("join is idempotent", func(t *testing.T) {
		require.NoError(t, repo.Join(ctx, tournament.ID, 1))
		require.NoError(t, repo.Join(ctx, tournament.ID, 1))
		require.NoError(t, repo.Join(ctx, tournament.ID, 2))
		require.NoError(t, repo.Join(ctx, tournament.ID, 3))

		count, err := repo.CountParticipants(ctx, tournament.ID)
		require.NoError(t, err)
		assert.Equal(t, 3, count)
	})

	t.Run("results move points and counters", func(t *testing.T) {
		require.NoError(t, repo.ApplyResult(ctx, tournament.ID, 1, 85, "bet", true))
		require.NoError(t, repo.ApplyResult(ctx, tournament.ID, 1, -100, "duel", false))
		require.NoError(t, repo.ApplyResult(ctx, tournament.ID, 2, 240, "parlay", true))

		p, err := repo.GetParticipant(ctx, tournament.ID, 1)
		require.NoError(t, err)
		require.NotNil(t, p)
		assert.Equal(t, int64(-15), p.Points)
		assert.Equal(t, 1, p.BetWins)
		assert.Equal(t, 1, p.DuelLosses)

		_, err = repo.GetParticipant(ctx, tournament.ID, 99)
		require.NoError(t, err)
	})

	t.Run("standings order by points", func(t *testing.T) {
		standings, err := repo.GetStandings(ctx, tournament.ID, 10)
		require.NoError(t, err)
		require.Len(t, standings, 3)
		assert.Equal(t, int64(2), standings[0].DiscordID)
		assert.Equal(t, int64(3), standings[1].DiscordID)
		assert.Equal(t, int64(1), standings[2].DiscordID)
	})

	t.Run("result for non-participant fails", func(t *testing.T) {
		err := repo.ApplyResult(ctx, tournament.ID, 99, 10, "bet", true)
		assert.Error(t, err)
	})

	t.Run("unknown wager kind rejected", func(t *testing.T) {
		err := repo.ApplyResult(ctx, tournament.ID, 1, 10, "roulette", true)
		assert.Error(t, err)
	})
}

func TestTournamentRepository_GetDueForTransition(t *testing.T) {
	t.Parallel()
	testDB := testutil.SetupTestDatabase(t)

	repo := NewTournamentRepository(testDB.DB)
	ctx := context.Background()

	due := testutil.CreateTestTournament(9001, "Stale")
	due.RegistrationEndsAt = time.Now().Add(-time.Hour)
	due.StartsAt = due.RegistrationEndsAt
	due.EndsAt = time.Now().AddDate(0, 0, 7)
	require.NoError(t, repo.Create(ctx, due))

	fresh := testutil.CreateTestTournament(9002, "Fresh")
	require.NoError(t, repo.Create(ctx, fresh))

	tournaments, err := repo.GetDueForTransition(ctx, time.Now())
	require.NoError(t, err)
	require.Len(t, tournaments, 1)
	assert.Equal(t, due.ID, tournaments[0].ID)
}
