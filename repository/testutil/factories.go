package testutil

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/require"

	"scrimbet/database"
	"scrimbet/models"
)

// CreateTestUser creates a test user with default values
func CreateTestUser(discordID int64, username string) *models.User {
	now := time.Now()
	return &models.User{
		DiscordID: discordID,
		Username:  username,
		Balance:   10000,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// CreateTestMatch creates a bettable best-of-3 match one hour out
func CreateTestMatch(teamA, teamB string) *models.Match {
	return &models.Match{
		TeamA:         teamA,
		TeamB:         teamB,
		NumberOfGames: 3,
		Status:        models.MatchStatusNotStarted,
		ScheduledAt:   time.Now().Add(time.Hour),
	}
}

// CreateFinishedMatch creates a finished match with the given score,
// scheduled the given number of days in the past
func CreateFinishedMatch(teamA, teamB, score string, daysAgo int) *models.Match {
	return &models.Match{
		TeamA:         teamA,
		TeamB:         teamB,
		NumberOfGames: 3,
		Status:        models.MatchStatusFinished,
		Score:         &score,
		ScheduledAt:   time.Now().AddDate(0, 0, -daysAgo),
	}
}

// CreateTestBet creates an active bet on the given match
func CreateTestBet(discordID, matchID int64, selection string, amount int64, odds float64) *models.Bet {
	return &models.Bet{
		DiscordID: discordID,
		MatchID:   matchID,
		Kind:      models.BetKindTeam,
		Selection: selection,
		Amount:    amount,
		Odds:      odds,
		Status:    models.BetStatusActive,
	}
}

// SeedFinishedMatches inserts a batch of finished matches in one transaction
func SeedFinishedMatches(t *testing.T, db *database.DB, matches []*models.Match) {
	err := db.WithTransaction(context.Background(), func(tx pgx.Tx) error {
		for _, m := range matches {
			_, err := tx.Exec(context.Background(), `
				INSERT INTO matches (team_a, team_b, number_of_games, status, score, scheduled_at)
				VALUES ($1, $2, $3, $4, $5, $6)
			`, m.TeamA, m.TeamB, m.NumberOfGames, m.Status, m.Score, m.ScheduledAt)
			if err != nil {
				return fmt.Errorf("failed to seed match: %w", err)
			}
		}
		return nil
	})
	require.NoError(t, err)
}

// CreateTestTournament creates a tournament in the registration phase with a
// one hour registration window and a one week run
func CreateTestTournament(guildID int64, name string) *models.Tournament {
	now := time.Now()
	return &models.Tournament{
		GuildID:            guildID,
		Name:               name,
		Status:             models.TournamentStatusRegistration,
		VirtualStake:       100,
		RegistrationEndsAt: now.Add(time.Hour),
		StartsAt:           now.Add(time.Hour),
		EndsAt:             now.Add(time.Hour).AddDate(0, 0, 7),
	}
}
