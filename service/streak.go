package service

import (
	"context"
	"fmt"

	"scrimbet/models"
)

// streakScanLimit bounds how far back the streak scan looks. The deepest
// milestone sits at 50, so anything past that is already "50 or more".
const streakScanLimit = 50

type historyStreakCounter struct{}

// NewStreakCounter returns the default streak counter, which derives the
// current run from the user's resolved-wager history
func NewStreakCounter() StreakCounter {
	return historyStreakCounter{}
}

// BetStreak counts consecutive won bets, most recent first
func (historyStreakCounter) BetStreak(ctx context.Context, uow UnitOfWork, discordID int64) (int, error) {
	bets, err := uow.BetRepository().GetRecentResolvedByUser(ctx, discordID, streakScanLimit)
	if err != nil {
		return 0, fmt.Errorf("failed to load resolved bets: %w", err)
	}
	streak := 0
	for _, bet := range bets {
		if bet.Status != models.BetStatusWon {
			break
		}
		streak++
	}
	return streak, nil
}

// DuelStreak counts consecutive won duels, most recent first. Drawn duels
// are cancelled rather than resolved, so they neither extend nor break a run.
func (historyStreakCounter) DuelStreak(ctx context.Context, uow UnitOfWork, discordID int64) (int, error) {
	duels, err := uow.DuelRepository().GetRecentResolvedByUser(ctx, discordID, streakScanLimit)
	if err != nil {
		return 0, fmt.Errorf("failed to load resolved duels: %w", err)
	}
	streak := 0
	for _, duel := range duels {
		if duel.WinnerID == nil || *duel.WinnerID != discordID {
			break
		}
		streak++
	}
	return streak, nil
}

// ParlayStreak counts consecutive won parlays, most recent first
func (historyStreakCounter) ParlayStreak(ctx context.Context, uow UnitOfWork, discordID int64) (int, error) {
	parlays, err := uow.ParlayRepository().GetRecentResolvedByUser(ctx, discordID, streakScanLimit)
	if err != nil {
		return 0, fmt.Errorf("failed to load resolved parlays: %w", err)
	}
	streak := 0
	for _, parlay := range parlays {
		if parlay.Status != models.ParlayStatusWon {
			break
		}
		streak++
	}
	return streak, nil
}
