package service

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"scrimbet/config"
	"scrimbet/models"
)

type duelService struct {
	uowFactory UnitOfWorkFactory
	linker     TournamentLinker
	now        func() time.Time
}

// NewDuelService creates a new duel service
func NewDuelService(uowFactory UnitOfWorkFactory, linker TournamentLinker) DuelService {
	return &duelService{
		uowFactory: uowFactory,
		linker:     linker,
		now:        time.Now,
	}
}

// Propose opens a pending duel. Nothing is debited yet; the challenger's
// balance is only checked so obviously unfundable challenges fail fast.
func (s *duelService) Propose(ctx context.Context, challengerID, opponentID, matchID int64, challengerTeam string, amount int64) (*models.Duel, error) {
	if amount < config.Get().MinimumStake {
		return nil, models.ErrInvalidStake
	}
	if challengerID == opponentID {
		return nil, fmt.Errorf("cannot duel yourself")
	}
	now := s.now()

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback() // No-op if already committed

	match, err := uow.MatchRepository().GetByID(ctx, matchID)
	if err != nil {
		return nil, fmt.Errorf("failed to get match: %w", err)
	}
	if match == nil || !match.IsBettable(now) {
		return nil, models.ErrMatchNotBettable
	}

	var opponentTeam string
	switch challengerTeam {
	case match.TeamA:
		opponentTeam = match.TeamB
	case match.TeamB:
		opponentTeam = match.TeamA
	default:
		return nil, models.ErrInvalidSelection
	}

	challenger, err := uow.UserRepository().GetByDiscordID(ctx, challengerID)
	if err != nil {
		return nil, fmt.Errorf("failed to get challenger: %w", err)
	}
	if challenger == nil {
		return nil, fmt.Errorf("user %d not found", challengerID)
	}
	if challenger.Balance < amount {
		return nil, models.ErrInsufficientFunds
	}

	duel := &models.Duel{
		MatchID:        matchID,
		ChallengerID:   challengerID,
		OpponentID:     opponentID,
		ChallengerTeam: challengerTeam,
		OpponentTeam:   opponentTeam,
		Amount:         amount,
		Status:         models.DuelStatusPending,
	}
	if err := uow.DuelRepository().Create(ctx, duel); err != nil {
		return nil, fmt.Errorf("failed to create duel: %w", err)
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.WithFields(log.Fields{
		"duelID":       duel.ID,
		"challengerID": challengerID,
		"opponentID":   opponentID,
		"matchID":      matchID,
		"amount":       amount,
	}).Info("Duel proposed")

	return duel, nil
}

// Accept locks in a pending duel. Both parties' stakes are escrowed in the
// same transaction; either side lacking funds aborts the whole acceptance
// and the duel stays pending.
func (s *duelService) Accept(ctx context.Context, duelID, responderID int64) (*models.Duel, error) {
	now := s.now()

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	duel, err := uow.DuelRepository().GetByID(ctx, duelID)
	if err != nil {
		return nil, fmt.Errorf("failed to get duel: %w", err)
	}
	if duel == nil {
		return nil, fmt.Errorf("duel %d not found", duelID)
	}
	if !duel.CanBeAccepted(responderID) {
		return nil, fmt.Errorf("duel %d cannot be accepted by user %d", duelID, responderID)
	}

	match, err := uow.MatchRepository().GetByID(ctx, duel.MatchID)
	if err != nil {
		return nil, fmt.Errorf("failed to get match: %w", err)
	}
	if match == nil || !match.IsBettable(now) {
		return nil, models.ErrMatchNotBettable
	}

	accepted, err := uow.DuelRepository().AcceptPending(ctx, duelID, now)
	if err != nil {
		return nil, fmt.Errorf("failed to accept duel: %w", err)
	}
	if !accepted {
		return nil, fmt.Errorf("duel %d is no longer pending", duelID)
	}

	for _, partyID := range []int64{duel.ChallengerID, duel.OpponentID} {
		user, err := uow.UserRepository().GetByDiscordID(ctx, partyID)
		if err != nil {
			return nil, fmt.Errorf("failed to get user: %w", err)
		}
		if user == nil {
			return nil, fmt.Errorf("user %d not found", partyID)
		}
		if err := uow.UserRepository().DeductBalance(ctx, partyID, duel.Amount); err != nil {
			return nil, err
		}
		history := &models.BalanceHistory{
			DiscordID:       partyID,
			BalanceBefore:   user.Balance,
			BalanceAfter:    user.Balance - duel.Amount,
			ChangeAmount:    -duel.Amount,
			TransactionType: models.TransactionTypeDuelStake,
			TransactionMetadata: map[string]any{
				"duel_id":  duelID,
				"match_id": duel.MatchID,
			},
		}
		if err := RecordBalanceChange(ctx, uow, history); err != nil {
			return nil, err
		}
	}

	// A duel counts toward a tournament only when both parties compete in it
	tournamentID, err := s.linker.LinkDuel(ctx, uow, duel.ChallengerID, duel.OpponentID, now)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve tournament link: %w", err)
	}
	if tournamentID != nil {
		if err := uow.DuelRepository().SetTournament(ctx, duelID, tournamentID); err != nil {
			return nil, fmt.Errorf("failed to link duel to tournament: %w", err)
		}
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	duel.Status = models.DuelStatusAccepted
	duel.AcceptedAt = &now
	duel.TournamentID = tournamentID

	log.WithFields(log.Fields{
		"duelID":      duelID,
		"responderID": responderID,
		"amount":      duel.Amount,
	}).Info("Duel accepted")

	return duel, nil
}

// Decline lets the challenged party refuse a pending duel
func (s *duelService) Decline(ctx context.Context, duelID, responderID int64) error {
	return s.cancelPending(ctx, duelID, responderID, func(d *models.Duel, id int64) bool {
		return d.Status == models.DuelStatusPending && d.OpponentID == id
	}, "declined")
}

// Cancel lets the challenger withdraw a pending duel
func (s *duelService) Cancel(ctx context.Context, duelID, challengerID int64) error {
	return s.cancelPending(ctx, duelID, challengerID, func(d *models.Duel, id int64) bool {
		return d.CanBeCancelled(id)
	}, "cancelled")
}

func (s *duelService) cancelPending(ctx context.Context, duelID, actorID int64, allowed func(*models.Duel, int64) bool, verb string) error {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	duel, err := uow.DuelRepository().GetByID(ctx, duelID)
	if err != nil {
		return fmt.Errorf("failed to get duel: %w", err)
	}
	if duel == nil {
		return fmt.Errorf("duel %d not found", duelID)
	}
	if !allowed(duel, actorID) {
		return fmt.Errorf("duel %d cannot be %s by user %d", duelID, verb, actorID)
	}

	cancelled, err := uow.DuelRepository().CancelPending(ctx, duelID)
	if err != nil {
		return fmt.Errorf("failed to cancel duel: %w", err)
	}
	if !cancelled {
		return fmt.Errorf("duel %d is no longer pending", duelID)
	}

	if err := uow.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.WithFields(log.Fields{
		"duelID":  duelID,
		"actorID": actorID,
	}).Info("Duel " + verb)
	return nil
}

// PendingFor returns the duels waiting on the given user's answer
func (s *duelService) PendingFor(ctx context.Context, opponentID int64) ([]*models.Duel, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	duels, err := uow.DuelRepository().GetPendingByOpponent(ctx, opponentID)
	if err != nil {
		return nil, fmt.Errorf("failed to get pending duels: %w", err)
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return duels, nil
}
