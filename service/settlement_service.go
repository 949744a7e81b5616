package service

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"scrimbet/events"
	"scrimbet/models"
)

// SettlementSummary reports what one settlement pass did. Settlement is
// repeatable: re-running it over an already-settled match touches nothing.
type SettlementSummary struct {
	MatchID        int64
	BetsSettled    int
	DuelsSettled   int
	ParlaysSettled int
	ParlaysPending int
	Failures       int
}

type settlementService struct {
	uowFactory UnitOfWorkFactory
	linker     TournamentLinker
	now        func() time.Time
}

// NewSettlementService creates a new settlement service
func NewSettlementService(uowFactory UnitOfWorkFactory, linker TournamentLinker) SettlementService {
	return &settlementService{
		uowFactory: uowFactory,
		linker:     linker,
		now:        time.Now,
	}
}

// SettleMatch settles every open wager on a finished match. Each wager is
// settled in its own transaction: one failure is logged and skipped, the
// rest still settle, and the failed wager is picked up by the next run.
func (s *settlementService) SettleMatch(ctx context.Context, matchID int64) (*SettlementSummary, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback() // No-op if already committed

	match, err := uow.MatchRepository().GetByID(ctx, matchID)
	if err != nil {
		return nil, fmt.Errorf("failed to get match: %w", err)
	}
	if match == nil {
		return nil, fmt.Errorf("match %d not found", matchID)
	}
	if match.Status != models.MatchStatusFinished || match.Score == nil {
		return nil, fmt.Errorf("match %d is not finished", matchID)
	}
	winner, err := match.Winner()
	if err != nil {
		return nil, fmt.Errorf("cannot settle match %d: %w", matchID, err)
	}
	draw := winner == ""

	bets, err := uow.BetRepository().GetActiveByMatch(ctx, matchID)
	if err != nil {
		return nil, fmt.Errorf("failed to load active bets: %w", err)
	}
	duels, err := uow.DuelRepository().GetAcceptedByMatch(ctx, matchID)
	if err != nil {
		return nil, fmt.Errorf("failed to load accepted duels: %w", err)
	}
	parlays, err := uow.ParlayRepository().GetActiveByMatch(ctx, matchID)
	if err != nil {
		return nil, fmt.Errorf("failed to load active parlays: %w", err)
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	summary := &SettlementSummary{MatchID: matchID}

	for _, bet := range bets {
		if err := s.settleBet(ctx, match, bet, winner, draw); err != nil {
			summary.Failures++
			log.WithError(err).WithFields(log.Fields{
				"matchID": matchID,
				"betID":   bet.ID,
			}).Error("Failed to settle bet")
			continue
		}
		summary.BetsSettled++
	}

	for _, duel := range duels {
		if err := s.settleDuel(ctx, duel, winner, draw); err != nil {
			summary.Failures++
			log.WithError(err).WithFields(log.Fields{
				"matchID": matchID,
				"duelID":  duel.ID,
			}).Error("Failed to settle duel")
			continue
		}
		summary.DuelsSettled++
	}

	for _, parlay := range parlays {
		settled, err := s.settleParlay(ctx, parlay)
		if err != nil {
			summary.Failures++
			log.WithError(err).WithFields(log.Fields{
				"matchID":  matchID,
				"parlayID": parlay.ID,
			}).Error("Failed to settle parlay")
			continue
		}
		if settled {
			summary.ParlaysSettled++
		} else {
			summary.ParlaysPending++
		}
	}

	log.WithFields(log.Fields{
		"matchID":        matchID,
		"bets":           summary.BetsSettled,
		"duels":          summary.DuelsSettled,
		"parlays":        summary.ParlaysSettled,
		"parlaysPending": summary.ParlaysPending,
		"failures":       summary.Failures,
	}).Info("Match settled")

	return summary, nil
}

// settleBet settles one straight bet in its own transaction
func (s *settlementService) settleBet(ctx context.Context, match *models.Match, bet *models.Bet, winner string, draw bool) error {
	var (
		status models.BetStatus
		credit int64
		txType models.TransactionType
		betWon bool
	)
	switch {
	case draw:
		// Drawn match: the bet pushes and the stake comes back
		status = models.BetStatusCancelled
		credit = bet.Amount
		txType = models.TransactionTypeBetRefund
	case bet.Kind == models.BetKindTeam && bet.Selection == winner,
		bet.Kind == models.BetKindScore && bet.Selection == *match.Score:
		status = models.BetStatusWon
		credit = bet.Payout()
		txType = models.TransactionTypeBetWin
		betWon = true
	default:
		status = models.BetStatusLost
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	resolved, err := uow.BetRepository().ResolveActive(ctx, bet.ID, status, s.now())
	if err != nil {
		return fmt.Errorf("failed to resolve bet: %w", err)
	}
	if !resolved {
		// Already settled by an earlier or concurrent run
		return uow.Rollback()
	}

	if credit > 0 {
		if err := s.credit(ctx, uow, bet.DiscordID, credit, txType, map[string]any{
			"bet_id":   bet.ID,
			"match_id": bet.MatchID,
		}); err != nil {
			return err
		}
	}

	// Ladder points mirror wins and losses only; a push leaves them alone
	if bet.TournamentID != nil && !draw {
		if err := s.linker.MirrorResult(ctx, uow, *bet.TournamentID, bet.DiscordID, "bet", bet.Odds, betWon); err != nil {
			return err
		}
	}

	uow.EventBus().Publish(events.BetResolvedEvent{
		UserID: bet.DiscordID,
		BetID:  bet.ID,
		Status: status,
		Payout: credit,
	})

	return uow.Commit()
}

// settleDuel settles one accepted duel in its own transaction
func (s *settlementService) settleDuel(ctx context.Context, duel *models.Duel, winner string, draw bool) error {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	if draw {
		resolved, err := uow.DuelRepository().ResolveAccepted(ctx, duel.ID, nil, s.now())
		if err != nil {
			return fmt.Errorf("failed to resolve duel: %w", err)
		}
		if !resolved {
			return uow.Rollback()
		}

		// Both stakes come back untouched
		for _, partyID := range []int64{duel.ChallengerID, duel.OpponentID} {
			if err := s.credit(ctx, uow, partyID, duel.Amount, models.TransactionTypeDuelRefund, map[string]any{
				"duel_id": duel.ID,
			}); err != nil {
				return err
			}
		}

		uow.EventBus().Publish(events.DuelResolvedEvent{
			DuelID:       duel.ID,
			ChallengerID: duel.ChallengerID,
			OpponentID:   duel.OpponentID,
			Pot:          2 * duel.Amount,
			Cancelled:    true,
		})
		return uow.Commit()
	}

	var winnerID int64
	switch winner {
	case duel.ChallengerTeam:
		winnerID = duel.ChallengerID
	case duel.OpponentTeam:
		winnerID = duel.OpponentID
	default:
		return fmt.Errorf("duel %d backs neither side of winner %q", duel.ID, winner)
	}
	loserID := duel.ChallengerID
	if winnerID == duel.ChallengerID {
		loserID = duel.OpponentID
	}

	resolved, err := uow.DuelRepository().ResolveAccepted(ctx, duel.ID, &winnerID, s.now())
	if err != nil {
		return fmt.Errorf("failed to resolve duel: %w", err)
	}
	if !resolved {
		return uow.Rollback()
	}

	pot := 2 * duel.Amount
	if err := s.credit(ctx, uow, winnerID, pot, models.TransactionTypeDuelWin, map[string]any{
		"duel_id": duel.ID,
	}); err != nil {
		return err
	}

	if duel.TournamentID != nil {
		if err := s.linker.MirrorResult(ctx, uow, *duel.TournamentID, winnerID, "duel", 0, true); err != nil {
			return err
		}
		if err := s.linker.MirrorResult(ctx, uow, *duel.TournamentID, loserID, "duel", 0, false); err != nil {
			return err
		}
	}

	uow.EventBus().Publish(events.DuelResolvedEvent{
		DuelID:       duel.ID,
		ChallengerID: duel.ChallengerID,
		OpponentID:   duel.OpponentID,
		WinnerID:     winnerID,
		Pot:          pot,
	})
	return uow.Commit()
}

// legWon evaluates one parlay leg against its finished match
func legWon(leg *models.ParlayLeg, match *models.Match) (bool, error) {
	winner, err := match.Winner()
	if err != nil {
		return false, err
	}
	if leg.Kind == models.BetKindScore {
		return leg.Selection == *match.Score, nil
	}
	// A drawn match has no winner, so a team leg cannot win it
	return winner != "" && leg.Selection == winner, nil
}

// settleParlay re-evaluates every leg of one parlay. It resolves the parlay
// the moment any leg is known lost; a win requires every leg's match to be
// finished and every leg to have won. Returns false when the parlay must
// stay open for matches still to be played.
func (s *settlementService) settleParlay(ctx context.Context, parlay *models.Parlay) (bool, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	anyLost := false
	allFinished := true
	for _, leg := range parlay.Legs {
		match, err := uow.MatchRepository().GetByID(ctx, leg.MatchID)
		if err != nil {
			return false, fmt.Errorf("failed to get match %d: %w", leg.MatchID, err)
		}
		if match == nil {
			return false, fmt.Errorf("leg match %d not found", leg.MatchID)
		}
		if match.Status != models.MatchStatusFinished || match.Score == nil {
			allFinished = false
			continue
		}
		won, err := legWon(leg, match)
		if err != nil {
			return false, fmt.Errorf("cannot evaluate leg on match %d: %w", leg.MatchID, err)
		}
		if !won {
			anyLost = true
		}
	}

	if !anyLost && !allFinished {
		// Nothing decided yet: matches remain to be played
		return false, uow.Rollback()
	}

	status := models.ParlayStatusWon
	if anyLost {
		status = models.ParlayStatusLost
	}

	resolved, err := uow.ParlayRepository().ResolveActive(ctx, parlay.ID, status, s.now())
	if err != nil {
		return false, fmt.Errorf("failed to resolve parlay: %w", err)
	}
	if !resolved {
		return true, uow.Rollback()
	}

	if status == models.ParlayStatusWon {
		if err := s.credit(ctx, uow, parlay.DiscordID, parlay.Payout(), models.TransactionTypeParlayWin, map[string]any{
			"parlay_id": parlay.ID,
		}); err != nil {
			return false, err
		}
	}

	if parlay.TournamentID != nil {
		if err := s.linker.MirrorResult(ctx, uow, *parlay.TournamentID, parlay.DiscordID, "parlay", parlay.TotalOdds, status == models.ParlayStatusWon); err != nil {
			return false, err
		}
	}

	payout := int64(0)
	if status == models.ParlayStatusWon {
		payout = parlay.Payout()
	}
	uow.EventBus().Publish(events.ParlayResolvedEvent{
		UserID:   parlay.DiscordID,
		ParlayID: parlay.ID,
		Status:   status,
		Payout:   payout,
	})

	return true, uow.Commit()
}

// credit adds winnings or refunds to a user inside the settlement transaction
func (s *settlementService) credit(ctx context.Context, uow UnitOfWork, discordID, amount int64, txType models.TransactionType, metadata map[string]any) error {
	user, err := uow.UserRepository().GetByDiscordID(ctx, discordID)
	if err != nil {
		return fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return fmt.Errorf("user %d not found", discordID)
	}
	if err := uow.UserRepository().AddBalance(ctx, discordID, amount); err != nil {
		return fmt.Errorf("failed to credit user: %w", err)
	}

	history := &models.BalanceHistory{
		DiscordID:           discordID,
		BalanceBefore:       user.Balance,
		BalanceAfter:        user.Balance + amount,
		ChangeAmount:        amount,
		TransactionType:     txType,
		TransactionMetadata: metadata,
	}
	return RecordBalanceChange(ctx, uow, history)
}
