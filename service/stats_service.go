package service

import (
	"context"
	"fmt"

	"scrimbet/models"
)

type statsService struct {
	uowFactory UnitOfWorkFactory
}

// NewStatsService creates a new stats service
func NewStatsService(uowFactory UnitOfWorkFactory) StatsService {
	return &statsService{
		uowFactory: uowFactory,
	}
}

// GetUserStats returns the profile-level summary for one user
func (s *statsService) GetUserStats(ctx context.Context, discordID int64) (*models.UserStats, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback() // No-op if already committed

	user, err := uow.UserRepository().GetByDiscordID(ctx, discordID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return nil, fmt.Errorf("user %d not found", discordID)
	}

	betStats, err := uow.BetRepository().GetStats(ctx, discordID)
	if err != nil {
		return nil, fmt.Errorf("failed to get bet stats: %w", err)
	}
	duelStats, err := uow.DuelRepository().GetStats(ctx, discordID)
	if err != nil {
		return nil, fmt.Errorf("failed to get duel stats: %w", err)
	}
	parlayStats, err := uow.ParlayRepository().GetStats(ctx, discordID)
	if err != nil {
		return nil, fmt.Errorf("failed to get parlay stats: %w", err)
	}
	titleName, err := uow.TitleRepository().GetDisplayedTitle(ctx, discordID)
	if err != nil {
		return nil, fmt.Errorf("failed to get displayed title: %w", err)
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return &models.UserStats{
		DiscordID: discordID,
		Username:  user.Username,
		Balance:   user.Balance,
		Bets:      *betStats,
		Duels:     *duelStats,
		Parlays:   *parlayStats,
		TitleName: titleName,
	}, nil
}

// GetScoreboard returns the balance leaderboard with per-user bet records
func (s *statsService) GetScoreboard(ctx context.Context, limit int) ([]*models.ScoreboardEntry, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	users, err := uow.UserRepository().GetTopByBalance(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get top users: %w", err)
	}

	entries := make([]*models.ScoreboardEntry, 0, len(users))
	for i, user := range users {
		betStats, err := uow.BetRepository().GetStats(ctx, user.DiscordID)
		if err != nil {
			return nil, fmt.Errorf("failed to get bet stats: %w", err)
		}
		entries = append(entries, &models.ScoreboardEntry{
			Rank:      i + 1,
			DiscordID: user.DiscordID,
			Username:  user.Username,
			Balance:   user.Balance,
			BetsWon:   betStats.Won,
			BetsTotal: betStats.Total,
		})
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return entries, nil
}
