package service

import (
	"context"
	"fmt"
	"math"
	"time"

	log "github.com/sirupsen/logrus"

	"scrimbet/config"
	"scrimbet/events"
	"scrimbet/models"
	"scrimbet/odds"
)

// oddsTolerance is how far the live price may drift from a quote before the
// confirmation is rejected
const oddsTolerance = 0.01

// BetQuote is a priced, short-lived offer for a straight bet
type BetQuote struct {
	FlowID    string
	MatchID   int64
	Kind      models.BetKind
	Selection string
	Odds      float64
	ExpiresAt time.Time
}

// ParlayLegRequest is one requested prediction in a parlay quote
type ParlayLegRequest struct {
	MatchID   int64
	Kind      models.BetKind
	Selection string
}

// ParlayQuote is a priced, short-lived offer for a parlay
type ParlayQuote struct {
	FlowID    string
	Legs      []*models.ParlayLeg
	TotalOdds float64
	ExpiresAt time.Time
}

type bettingService struct {
	uowFactory UnitOfWorkFactory
	sessions   *SessionStore
	linker     TournamentLinker
	now        func() time.Time
}

// NewBettingService creates a new betting service
func NewBettingService(uowFactory UnitOfWorkFactory, sessions *SessionStore, linker TournamentLinker) BettingService {
	return &bettingService{
		uowFactory: uowFactory,
		sessions:   sessions,
		linker:     linker,
		now:        time.Now,
	}
}

// priceBet computes the current live odds for one prediction. The match must
// already be validated as bettable.
func priceBet(ctx context.Context, uow UnitOfWork, match *models.Match, kind models.BetKind, selection string, now time.Time) (float64, error) {
	switch kind {
	case models.BetKindTeam:
		if selection != match.TeamA && selection != match.TeamB {
			return 0, models.ErrInvalidSelection
		}

		history, err := uow.MatchRepository().GetFinishedAgainst(ctx, match.TeamB, odds.BaseHistorySince(now), odds.BaseHistoryLimit)
		if err != nil {
			return 0, fmt.Errorf("failed to load match history: %w", err)
		}
		base := odds.Base(now, history)

		pooledA, err := uow.BetRepository().SumActiveByMatchSelection(ctx, match.ID, models.BetKindTeam, match.TeamA)
		if err != nil {
			return 0, fmt.Errorf("failed to sum pooled stakes: %w", err)
		}
		pooledB, err := uow.BetRepository().SumActiveByMatchSelection(ctx, match.ID, models.BetKindTeam, match.TeamB)
		if err != nil {
			return 0, fmt.Errorf("failed to sum pooled stakes: %w", err)
		}

		pair := odds.Dynamic(base.A, base.B, pooledA, pooledB)
		if selection == match.TeamA {
			return pair.A, nil
		}
		return pair.B, nil

	case models.BetKindScore:
		history, err := uow.MatchRepository().GetFinishedAgainst(ctx, match.TeamB, odds.ScoreHistorySince(now), odds.ScoreHistoryLimit)
		if err != nil {
			return 0, fmt.Errorf("failed to load match history: %w", err)
		}
		table := odds.Score(now, history, match.NumberOfGames)
		price, ok := table[selection]
		if !ok {
			return 0, models.ErrInvalidSelection
		}
		return price, nil

	default:
		return 0, fmt.Errorf("unknown bet kind %q", kind)
	}
}

// QuoteBet prices a prospective bet and opens a confirmation flow
func (s *bettingService) QuoteBet(ctx context.Context, discordID, matchID int64, kind models.BetKind, selection string) (*BetQuote, error) {
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

	price, err := priceBet(ctx, uow, match, kind, selection, now)
	if err != nil {
		return nil, err
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	quote := &BetQuote{
		MatchID:   matchID,
		Kind:      kind,
		Selection: selection,
		Odds:      price,
		ExpiresAt: now.Add(DefaultQuoteTTL),
	}
	quote.FlowID = s.sessions.Put(discordID, quote)
	return quote, nil
}

// ConfirmBet places the bet quoted in the given flow
func (s *bettingService) ConfirmBet(ctx context.Context, discordID int64, flowID string, amount int64) (*models.BetReceipt, error) {
	payload, ok := s.sessions.Get(discordID, flowID)
	if !ok {
		return nil, models.ErrQuoteExpired
	}
	quote, ok := payload.(*BetQuote)
	if !ok {
		return nil, models.ErrQuoteExpired
	}

	receipt, err := s.PlaceBet(ctx, discordID, quote.MatchID, quote.Kind, quote.Selection, amount, quote.Odds)
	if err == nil || err == models.ErrOddsChanged {
		// The flow is spent either way: a moved price requires a fresh quote
		s.sessions.Delete(flowID)
	}
	return receipt, err
}

// PlaceBet validates the quoted price against the live market, debits the
// stake and creates the bet, all in one transaction
func (s *bettingService) PlaceBet(ctx context.Context, discordID, matchID int64, kind models.BetKind, selection string, amount int64, quotedOdds float64) (*models.BetReceipt, error) {
	if amount < config.Get().MinimumStake {
		return nil, models.ErrInvalidStake
	}
	now := s.now()

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	match, err := uow.MatchRepository().GetByID(ctx, matchID)
	if err != nil {
		return nil, fmt.Errorf("failed to get match: %w", err)
	}
	if match == nil || !match.IsBettable(now) {
		return nil, models.ErrMatchNotBettable
	}

	price, err := priceBet(ctx, uow, match, kind, selection, now)
	if err != nil {
		return nil, err
	}
	if math.Abs(price-quotedOdds) > oddsTolerance+1e-9 {
		return nil, models.ErrOddsChanged
	}

	user, err := uow.UserRepository().GetByDiscordID(ctx, discordID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return nil, fmt.Errorf("user %d not found", discordID)
	}

	if err := uow.UserRepository().DeductBalance(ctx, discordID, amount); err != nil {
		return nil, err
	}

	tournamentID, err := s.linker.LinkWager(ctx, uow, discordID, now)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve tournament link: %w", err)
	}

	bet := &models.Bet{
		DiscordID:    discordID,
		MatchID:      matchID,
		Kind:         kind,
		Selection:    selection,
		Amount:       amount,
		Odds:         price,
		Status:       models.BetStatusActive,
		TournamentID: tournamentID,
	}
	if err := uow.BetRepository().Create(ctx, bet); err != nil {
		return nil, fmt.Errorf("failed to create bet: %w", err)
	}

	history := &models.BalanceHistory{
		DiscordID:       discordID,
		BalanceBefore:   user.Balance,
		BalanceAfter:    user.Balance - amount,
		ChangeAmount:    -amount,
		TransactionType: models.TransactionTypeBetPlaced,
		TransactionMetadata: map[string]any{
			"bet_id":    bet.ID,
			"match_id":  matchID,
			"kind":      string(kind),
			"selection": selection,
			"odds":      price,
		},
	}
	if err := RecordBalanceChange(ctx, uow, history); err != nil {
		return nil, err
	}

	uow.EventBus().Publish(events.BetPlacedEvent{
		UserID: discordID,
		BetID:  bet.ID,
		Amount: amount,
		Odds:   price,
	})

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.WithFields(log.Fields{
		"discordID": discordID,
		"betID":     bet.ID,
		"matchID":   matchID,
		"amount":    amount,
		"odds":      price,
	}).Info("Bet placed")

	return &models.BetReceipt{
		Bet:             bet,
		NewBalance:      user.Balance - amount,
		PotentialPayout: bet.Payout(),
	}, nil
}

// QuoteParlay prices every requested leg and opens a confirmation flow
func (s *bettingService) QuoteParlay(ctx context.Context, discordID int64, legs []ParlayLegRequest) (*ParlayQuote, error) {
	if len(legs) < 2 {
		return nil, models.ErrTooFewLegs
	}
	seen := make(map[int64]bool, len(legs))
	for _, leg := range legs {
		if seen[leg.MatchID] {
			return nil, fmt.Errorf("parlay may carry only one leg per match")
		}
		seen[leg.MatchID] = true
	}
	now := s.now()

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	priced, total, err := priceParlayLegs(ctx, uow, legs, now)
	if err != nil {
		return nil, err
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	quote := &ParlayQuote{
		Legs:      priced,
		TotalOdds: total,
		ExpiresAt: now.Add(DefaultQuoteTTL),
	}
	quote.FlowID = s.sessions.Put(discordID, quote)
	return quote, nil
}

func priceParlayLegs(ctx context.Context, uow UnitOfWork, legs []ParlayLegRequest, now time.Time) ([]*models.ParlayLeg, float64, error) {
	priced := make([]*models.ParlayLeg, 0, len(legs))
	total := 1.0
	for _, leg := range legs {
		match, err := uow.MatchRepository().GetByID(ctx, leg.MatchID)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to get match %d: %w", leg.MatchID, err)
		}
		if match == nil || !match.IsBettable(now) {
			return nil, 0, models.ErrMatchNotBettable
		}

		price, err := priceBet(ctx, uow, match, leg.Kind, leg.Selection, now)
		if err != nil {
			return nil, 0, err
		}

		priced = append(priced, &models.ParlayLeg{
			MatchID:   leg.MatchID,
			Kind:      leg.Kind,
			Selection: leg.Selection,
			Odds:      price,
		})
		total *= price
	}
	return priced, math.Round(total*100) / 100, nil
}

// ConfirmParlay places the parlay quoted in the given flow
func (s *bettingService) ConfirmParlay(ctx context.Context, discordID int64, flowID string, amount int64) (*models.ParlayReceipt, error) {
	payload, ok := s.sessions.Get(discordID, flowID)
	if !ok {
		return nil, models.ErrQuoteExpired
	}
	quote, ok := payload.(*ParlayQuote)
	if !ok {
		return nil, models.ErrQuoteExpired
	}
	if amount < config.Get().MinimumStake {
		return nil, models.ErrInvalidStake
	}
	now := s.now()

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	requests := make([]ParlayLegRequest, len(quote.Legs))
	for i, leg := range quote.Legs {
		requests[i] = ParlayLegRequest{MatchID: leg.MatchID, Kind: leg.Kind, Selection: leg.Selection}
	}
	priced, total, err := priceParlayLegs(ctx, uow, requests, now)
	if err != nil {
		return nil, err
	}
	if math.Abs(total-quote.TotalOdds) > oddsTolerance+1e-9 {
		s.sessions.Delete(flowID)
		return nil, models.ErrOddsChanged
	}

	user, err := uow.UserRepository().GetByDiscordID(ctx, discordID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return nil, fmt.Errorf("user %d not found", discordID)
	}

	if err := uow.UserRepository().DeductBalance(ctx, discordID, amount); err != nil {
		return nil, err
	}

	tournamentID, err := s.linker.LinkWager(ctx, uow, discordID, now)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve tournament link: %w", err)
	}

	parlay := &models.Parlay{
		DiscordID:    discordID,
		Amount:       amount,
		TotalOdds:    total,
		Status:       models.ParlayStatusActive,
		TournamentID: tournamentID,
		Legs:         priced,
	}
	if err := uow.ParlayRepository().CreateWithLegs(ctx, parlay); err != nil {
		return nil, fmt.Errorf("failed to create parlay: %w", err)
	}

	history := &models.BalanceHistory{
		DiscordID:       discordID,
		BalanceBefore:   user.Balance,
		BalanceAfter:    user.Balance - amount,
		ChangeAmount:    -amount,
		TransactionType: models.TransactionTypeParlayPlaced,
		TransactionMetadata: map[string]any{
			"parlay_id":  parlay.ID,
			"leg_count":  len(priced),
			"total_odds": total,
		},
	}
	if err := RecordBalanceChange(ctx, uow, history); err != nil {
		return nil, err
	}

	uow.EventBus().Publish(events.ParlayPlacedEvent{
		UserID:    discordID,
		ParlayID:  parlay.ID,
		Amount:    amount,
		TotalOdds: total,
		LegCount:  len(priced),
	})

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	s.sessions.Delete(flowID)

	log.WithFields(log.Fields{
		"discordID": discordID,
		"parlayID":  parlay.ID,
		"legs":      len(priced),
		"amount":    amount,
		"totalOdds": total,
	}).Info("Parlay placed")

	return &models.ParlayReceipt{
		Parlay:          parlay,
		NewBalance:      user.Balance - amount,
		PotentialPayout: parlay.Payout(),
	}, nil
}
