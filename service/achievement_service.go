package service

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"scrimbet/events"
	"scrimbet/models"
)

// millionaireThreshold is the balance that unlocks the wealth title
const millionaireThreshold = 1_000_000

// podiumMinimum is the smallest tournament whose podium awards titles
const podiumMinimum = 20

var (
	betCountMilestones = map[int]string{
		25:  "bet_count_25",
		50:  "bet_count_50",
		100: "bet_count_100",
		500: "bet_count_500",
	}
	streakMilestones = []int{5, 10, 25, 50}
	godTitleKeys     = []string{"bet_streak_50", "duel_streak_50", "parlay_streak_50"}
	podiumTitleKeys  = []string{"tourney_first", "tourney_second", "tourney_third"}
)

// achievementService evaluates title predicates off the event stream. Every
// handler swallows its own errors: a failed evaluation is logged and the
// wager flow that raised the event never notices.
type achievementService struct {
	uowFactory UnitOfWorkFactory
	streaks    StreakCounter
}

// NewAchievementService creates a new achievement service
func NewAchievementService(uowFactory UnitOfWorkFactory, streaks StreakCounter) AchievementService {
	return &achievementService{
		uowFactory: uowFactory,
		streaks:    streaks,
	}
}

// Register subscribes the evaluator to every event type it cares about
func (s *achievementService) Register(bus *events.Bus) {
	bus.Subscribe(events.EventTypeBetPlaced, s.onBetPlaced)
	bus.Subscribe(events.EventTypeBetResolved, s.onBetResolved)
	bus.Subscribe(events.EventTypeDuelResolved, s.onDuelResolved)
	bus.Subscribe(events.EventTypeParlayPlaced, s.onParlayPlaced)
	bus.Subscribe(events.EventTypeParlayResolved, s.onParlayResolved)
	bus.Subscribe(events.EventTypeDailyClaimed, s.onDailyClaimed)
	bus.Subscribe(events.EventTypeTransferMade, s.onTransferMade)
	bus.Subscribe(events.EventTypeTournamentFinished, s.onTournamentFinished)
}

// UnlockedTitles returns the keys of every title the user holds
func (s *achievementService) UnlockedTitles(ctx context.Context, discordID int64) ([]string, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback() // No-op if already committed

	keys, err := uow.TitleRepository().GetUnlockedKeys(ctx, discordID)
	if err != nil {
		return nil, fmt.Errorf("failed to get unlocked titles: %w", err)
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return keys, nil
}

// SetDisplayedTitle sets which unlocked title shows on the user's profile
func (s *achievementService) SetDisplayedTitle(ctx context.Context, discordID int64, titleKey string) error {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	title, err := uow.TitleRepository().GetByKey(ctx, titleKey)
	if err != nil {
		return fmt.Errorf("failed to get title: %w", err)
	}
	if title == nil {
		return fmt.Errorf("unknown title %q", titleKey)
	}
	held, err := uow.TitleRepository().HasUnlocked(ctx, discordID, titleKey)
	if err != nil {
		return fmt.Errorf("failed to check title: %w", err)
	}
	if !held {
		return fmt.Errorf("title %q is not unlocked", titleKey)
	}

	if err := uow.TitleRepository().SetDisplayedTitle(ctx, discordID, &title.ID); err != nil {
		return fmt.Errorf("failed to set displayed title: %w", err)
	}
	return uow.Commit()
}

// evaluate runs one predicate pass in its own transaction, logging failures
// instead of surfacing them
func (s *achievementService) evaluate(ctx context.Context, trigger string, fn func(ctx context.Context, uow UnitOfWork) error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		log.WithError(err).WithField("trigger", trigger).Error("Achievement evaluation failed to start")
		return
	}
	defer uow.Rollback()

	if err := fn(ctx, uow); err != nil {
		log.WithError(err).WithField("trigger", trigger).Error("Achievement evaluation failed")
		return
	}
	if err := uow.Commit(); err != nil {
		log.WithError(err).WithField("trigger", trigger).Error("Achievement evaluation failed to commit")
	}
}

// unlock grants a title once, reporting whether this call was the first
func (s *achievementService) unlock(ctx context.Context, uow UnitOfWork, discordID int64, key string) (bool, error) {
	title, err := uow.TitleRepository().GetByKey(ctx, key)
	if err != nil {
		return false, fmt.Errorf("failed to get title %q: %w", key, err)
	}
	if title == nil {
		return false, fmt.Errorf("title %q is not seeded", key)
	}
	newly, err := uow.TitleRepository().Unlock(ctx, discordID, title.ID)
	if err != nil {
		return false, fmt.Errorf("failed to unlock title %q: %w", key, err)
	}
	if newly {
		log.WithFields(log.Fields{
			"discordID": discordID,
			"title":     key,
		}).Info("Title unlocked")
	}
	return newly, nil
}

func (s *achievementService) onBetPlaced(ctx context.Context, event events.Event) {
	e, ok := event.(events.BetPlacedEvent)
	if !ok {
		return
	}
	s.evaluate(ctx, "bet_placed", func(ctx context.Context, uow UnitOfWork) error {
		count, err := uow.BetRepository().CountByUser(ctx, e.UserID)
		if err != nil {
			return err
		}
		if count >= 1 {
			if _, err := s.unlock(ctx, uow, e.UserID, "first_bet"); err != nil {
				return err
			}
		}
		for threshold, key := range betCountMilestones {
			if count >= threshold {
				if _, err := s.unlock(ctx, uow, e.UserID, key); err != nil {
					return err
				}
			}
		}
		return nil
	})
}

func (s *achievementService) onBetResolved(ctx context.Context, event events.Event) {
	e, ok := event.(events.BetResolvedEvent)
	if !ok {
		return
	}
	if e.Status != models.BetStatusWon {
		return
	}
	s.evaluate(ctx, "bet_resolved", func(ctx context.Context, uow UnitOfWork) error {
		streak, err := s.streaks.BetStreak(ctx, uow, e.UserID)
		if err != nil {
			return err
		}
		if err := s.unlockStreakMilestones(ctx, uow, e.UserID, "bet_streak", streak); err != nil {
			return err
		}
		return s.checkWealth(ctx, uow, e.UserID)
	})
}

func (s *achievementService) onDuelResolved(ctx context.Context, event events.Event) {
	e, ok := event.(events.DuelResolvedEvent)
	if !ok || e.Cancelled {
		return
	}
	s.evaluate(ctx, "duel_resolved", func(ctx context.Context, uow UnitOfWork) error {
		for _, partyID := range []int64{e.ChallengerID, e.OpponentID} {
			count, err := uow.DuelRepository().CountResolvedByUser(ctx, partyID)
			if err != nil {
				return err
			}
			if count >= 1 {
				if _, err := s.unlock(ctx, uow, partyID, "first_duel"); err != nil {
					return err
				}
			}
		}

		streak, err := s.streaks.DuelStreak(ctx, uow, e.WinnerID)
		if err != nil {
			return err
		}
		if err := s.unlockStreakMilestones(ctx, uow, e.WinnerID, "duel_streak", streak); err != nil {
			return err
		}
		return s.checkWealth(ctx, uow, e.WinnerID)
	})
}

func (s *achievementService) onParlayPlaced(ctx context.Context, event events.Event) {
	e, ok := event.(events.ParlayPlacedEvent)
	if !ok {
		return
	}
	s.evaluate(ctx, "parlay_placed", func(ctx context.Context, uow UnitOfWork) error {
		count, err := uow.ParlayRepository().CountByUser(ctx, e.UserID)
		if err != nil {
			return err
		}
		if count >= 1 {
			if _, err := s.unlock(ctx, uow, e.UserID, "first_parlay"); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *achievementService) onParlayResolved(ctx context.Context, event events.Event) {
	e, ok := event.(events.ParlayResolvedEvent)
	if !ok {
		return
	}
	if e.Status != models.ParlayStatusWon {
		return
	}
	s.evaluate(ctx, "parlay_resolved", func(ctx context.Context, uow UnitOfWork) error {
		streak, err := s.streaks.ParlayStreak(ctx, uow, e.UserID)
		if err != nil {
			return err
		}
		if err := s.unlockStreakMilestones(ctx, uow, e.UserID, "parlay_streak", streak); err != nil {
			return err
		}
		return s.checkWealth(ctx, uow, e.UserID)
	})
}

func (s *achievementService) onDailyClaimed(ctx context.Context, event events.Event) {
	e, ok := event.(events.DailyClaimedEvent)
	if !ok || !e.First {
		return
	}
	s.evaluate(ctx, "daily_claimed", func(ctx context.Context, uow UnitOfWork) error {
		_, err := s.unlock(ctx, uow, e.UserID, "first_daily")
		return err
	})
}

func (s *achievementService) onTransferMade(ctx context.Context, event events.Event) {
	e, ok := event.(events.TransferMadeEvent)
	if !ok {
		return
	}
	s.evaluate(ctx, "transfer_made", func(ctx context.Context, uow UnitOfWork) error {
		total, err := uow.BalanceHistoryRepository().SumAmountByType(ctx, e.FromUserID, models.TransactionTypeTransferOut)
		if err != nil {
			return err
		}
		if total >= 10_000 {
			if _, err := s.unlock(ctx, uow, e.FromUserID, "transfer_total_10000"); err != nil {
				return err
			}
		}

		largest, err := uow.BalanceHistoryRepository().MaxAmountByType(ctx, e.FromUserID, models.TransactionTypeTransferOut)
		if err != nil {
			return err
		}
		if largest >= 5_000 {
			if _, err := s.unlock(ctx, uow, e.FromUserID, "transfer_single_5000"); err != nil {
				return err
			}
		}
		return s.checkWealth(ctx, uow, e.ToUserID)
	})
}

func (s *achievementService) onTournamentFinished(ctx context.Context, event events.Event) {
	e, ok := event.(events.TournamentFinishedEvent)
	if !ok {
		return
	}
	if e.ParticipantCount < podiumMinimum {
		return
	}
	s.evaluate(ctx, "tournament_finished", func(ctx context.Context, uow UnitOfWork) error {
		for place, discordID := range e.Podium {
			if place >= len(podiumTitleKeys) {
				break
			}
			if _, err := s.unlock(ctx, uow, discordID, podiumTitleKeys[place]); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *achievementService) unlockStreakMilestones(ctx context.Context, uow UnitOfWork, discordID int64, prefix string, streak int) error {
	for _, milestone := range streakMilestones {
		if streak < milestone {
			break
		}
		key := fmt.Sprintf("%s_%d", prefix, milestone)
		newly, err := s.unlock(ctx, uow, discordID, key)
		if err != nil {
			return err
		}
		if newly && milestone == 50 {
			if err := s.checkPantheon(ctx, uow, discordID); err != nil {
				return err
			}
		}
	}
	return nil
}

// checkPantheon grants the capstone once all three god-tier streak titles
// are held
func (s *achievementService) checkPantheon(ctx context.Context, uow UnitOfWork, discordID int64) error {
	for _, key := range godTitleKeys {
		held, err := uow.TitleRepository().HasUnlocked(ctx, discordID, key)
		if err != nil {
			return err
		}
		if !held {
			return nil
		}
	}
	_, err := s.unlock(ctx, uow, discordID, "pantheon")
	return err
}

// checkWealth grants the millionaire title when the balance crosses the bar
func (s *achievementService) checkWealth(ctx context.Context, uow UnitOfWork, discordID int64) error {
	user, err := uow.UserRepository().GetByDiscordID(ctx, discordID)
	if err != nil {
		return err
	}
	if user == nil || user.Balance < millionaireThreshold {
		return nil
	}
	_, err = s.unlock(ctx, uow, discordID, "wealth_millionaire")
	return err
}
