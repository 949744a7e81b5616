package service

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"scrimbet/models"
)

type matchService struct {
	uowFactory UnitOfWorkFactory
	settlement SettlementService
	teamName   string
	now        func() time.Time
}

// NewMatchService creates a new match service
func NewMatchService(uowFactory UnitOfWorkFactory, settlement SettlementService, teamName string) MatchService {
	return &matchService{
		uowFactory: uowFactory,
		settlement: settlement,
		teamName:   teamName,
		now:        time.Now,
	}
}

// ScheduleMatch records an upcoming match of the org's team against an opponent
func (s *matchService) ScheduleMatch(ctx context.Context, opponent string, numberOfGames int, scheduledAt time.Time) (*models.Match, error) {
	if opponent == "" {
		return nil, fmt.Errorf("opponent is required")
	}
	if numberOfGames < 1 || numberOfGames%2 == 0 {
		return nil, fmt.Errorf("number of games must be an odd series length, got %d", numberOfGames)
	}
	if !scheduledAt.After(s.now()) {
		return nil, fmt.Errorf("scheduled time must be in the future")
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback() // No-op if already committed

	match := &models.Match{
		TeamA:         s.teamName,
		TeamB:         opponent,
		NumberOfGames: numberOfGames,
		Status:        models.MatchStatusNotStarted,
		ScheduledAt:   scheduledAt,
	}
	if err := uow.MatchRepository().Create(ctx, match); err != nil {
		return nil, fmt.Errorf("failed to create match: %w", err)
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.WithFields(log.Fields{
		"matchID":     match.ID,
		"opponent":    opponent,
		"games":       numberOfGames,
		"scheduledAt": scheduledAt,
	}).Info("Match scheduled")
	return match, nil
}

// FinishMatch records the final score and settles every open wager on the
// match. The score must parse and fit the series length; draws are allowed
// and push all straight wagers.
func (s *matchService) FinishMatch(ctx context.Context, matchID int64, score string) (*SettlementSummary, error) {
	a, b, err := models.ParseScore(score)
	if err != nil {
		return nil, err
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	match, err := uow.MatchRepository().GetByID(ctx, matchID)
	if err != nil {
		return nil, fmt.Errorf("failed to get match: %w", err)
	}
	if match == nil {
		return nil, fmt.Errorf("match %d not found", matchID)
	}
	if match.Status == models.MatchStatusFinished {
		return nil, fmt.Errorf("match %d is already finished", matchID)
	}
	if a+b > match.NumberOfGames {
		return nil, fmt.Errorf("score %s does not fit a best-of-%d series", score, match.NumberOfGames)
	}

	if err := uow.MatchRepository().MarkFinished(ctx, matchID, score); err != nil {
		return nil, fmt.Errorf("failed to finish match: %w", err)
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return s.settlement.SettleMatch(ctx, matchID)
}

// GetUpcoming returns bettable matches, soonest first
func (s *matchService) GetUpcoming(ctx context.Context, limit int) ([]*models.Match, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	matches, err := uow.MatchRepository().GetUpcoming(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get upcoming matches: %w", err)
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return matches, nil
}

// GetMatch returns one match by ID
func (s *matchService) GetMatch(ctx context.Context, matchID int64) (*models.Match, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	match, err := uow.MatchRepository().GetByID(ctx, matchID)
	if err != nil {
		return nil, fmt.Errorf("failed to get match: %w", err)
	}
	if match == nil {
		return nil, fmt.Errorf("match %d not found", matchID)
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return match, nil
}
