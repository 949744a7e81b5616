package service

import (
	"context"
	"testing"
	"time"

	"scrimbet/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// settlementFixture wires a settlement service over one shared mock unit of
// work. The service opens a fresh transaction per wager, but the factory
// hands back the same mock every time, which keeps the expectations simple.
type settlementFixture struct {
	service SettlementService

	factory *MockUnitOfWorkFactory
	uow     *MockUnitOfWork
	users   *MockUserRepository
	history *MockBalanceHistoryRepository
	matches *MockMatchRepository
	bets    *MockBetRepository
	duels   *MockDuelRepository
	parlays *MockParlayRepository
	bus     *MockEventPublisher
	linker  *MockTournamentLinker
}

func newSettlementFixture(t *testing.T) *settlementFixture {
	t.Helper()

	f := &settlementFixture{
		factory: new(MockUnitOfWorkFactory),
		uow:     new(MockUnitOfWork),
		users:   new(MockUserRepository),
		history: new(MockBalanceHistoryRepository),
		matches: new(MockMatchRepository),
		bets:    new(MockBetRepository),
		duels:   new(MockDuelRepository),
		parlays: new(MockParlayRepository),
		bus:     new(MockEventPublisher),
		linker:  new(MockTournamentLinker),
	}
	f.uow.SetRepositories(f.users, f.history, f.matches, f.bets, f.duels, f.parlays, nil, nil, f.bus)
	f.uow.On("Begin", mock.Anything).Return(nil).Maybe()
	f.uow.On("Commit").Return(nil).Maybe()
	f.uow.On("Rollback").Return(nil).Maybe()
	f.factory.On("Create").Return(f.uow).Maybe()

	f.service = NewSettlementService(f.factory, f.linker)
	return f
}

func (f *settlementFixture) finishedMatch(id int64, score string) *models.Match {
	return &models.Match{
		ID:            id,
		TeamA:         "Scrims",
		TeamB:         "Rival",
		NumberOfGames: 3,
		Status:        models.MatchStatusFinished,
		Score:         &score,
		ScheduledAt:   time.Now().Add(-2 * time.Hour),
	}
}

// expectWagers sets up the read phase for one match
func (f *settlementFixture) expectWagers(match *models.Match, bets []*models.Bet, duels []*models.Duel, parlays []*models.Parlay) {
	f.matches.On("GetByID", mock.Anything, match.ID).Return(match, nil)
	f.bets.On("GetActiveByMatch", mock.Anything, match.ID).Return(bets, nil)
	f.duels.On("GetAcceptedByMatch", mock.Anything, match.ID).Return(duels, nil)
	f.parlays.On("GetActiveByMatch", mock.Anything, match.ID).Return(parlays, nil)
}

// expectCredit sets up a balance credit for one user
func (f *settlementFixture) expectCredit(discordID, balance, amount int64, txType models.TransactionType) {
	f.users.On("GetByDiscordID", mock.Anything, discordID).Return(
		&models.User{DiscordID: discordID, Balance: balance}, nil)
	f.users.On("AddBalance", mock.Anything, discordID, amount).Return(nil)
	f.history.On("Record", mock.Anything, mock.MatchedBy(func(h *models.BalanceHistory) bool {
		return h.DiscordID == discordID &&
			h.ChangeAmount == amount &&
			h.BalanceAfter == balance+amount &&
			h.TransactionType == txType
	})).Return(nil)
	f.bus.On("Publish", mock.AnythingOfType("events.BalanceChangeEvent")).Return().Maybe()
}

func TestSettlementService_SettleMatch_TeamBets(t *testing.T) {
	ctx := context.Background()
	f := newSettlementFixture(t)

	match := f.finishedMatch(10, "2-1")
	winningBet := &models.Bet{ID: 1, DiscordID: 100, MatchID: 10, Kind: models.BetKindTeam, Selection: "Scrims", Amount: 500, Odds: 1.8, Status: models.BetStatusActive}
	losingBet := &models.Bet{ID: 2, DiscordID: 200, MatchID: 10, Kind: models.BetKindTeam, Selection: "Rival", Amount: 300, Odds: 2.2, Status: models.BetStatusActive}
	f.expectWagers(match, []*models.Bet{winningBet, losingBet}, nil, nil)

	f.bets.On("ResolveActive", mock.Anything, int64(1), models.BetStatusWon, mock.Anything).Return(true, nil)
	f.bets.On("ResolveActive", mock.Anything, int64(2), models.BetStatusLost, mock.Anything).Return(true, nil)
	// 500 * 1.8 = 900 credited to the winner; the loser gets nothing
	f.expectCredit(100, 1000, 900, models.TransactionTypeBetWin)
	f.bus.On("Publish", mock.AnythingOfType("events.BetResolvedEvent")).Return()

	summary, err := f.service.SettleMatch(ctx, 10)

	require.NoError(t, err)
	assert.Equal(t, 2, summary.BetsSettled)
	assert.Equal(t, 0, summary.Failures)
	f.users.AssertNotCalled(t, "AddBalance", mock.Anything, int64(200), mock.Anything)
	f.bets.AssertExpectations(t)
	f.users.AssertExpectations(t)
}

func TestSettlementService_SettleMatch_ScoreBets(t *testing.T) {
	ctx := context.Background()
	f := newSettlementFixture(t)

	match := f.finishedMatch(10, "2-1")
	exact := &models.Bet{ID: 1, DiscordID: 100, MatchID: 10, Kind: models.BetKindScore, Selection: "2-1", Amount: 100, Odds: 6.5, Status: models.BetStatusActive}
	near := &models.Bet{ID: 2, DiscordID: 200, MatchID: 10, Kind: models.BetKindScore, Selection: "2-0", Amount: 100, Odds: 5.0, Status: models.BetStatusActive}
	f.expectWagers(match, []*models.Bet{exact, near}, nil, nil)

	f.bets.On("ResolveActive", mock.Anything, int64(1), models.BetStatusWon, mock.Anything).Return(true, nil)
	f.bets.On("ResolveActive", mock.Anything, int64(2), models.BetStatusLost, mock.Anything).Return(true, nil)
	f.expectCredit(100, 1000, 650, models.TransactionTypeBetWin)
	f.bus.On("Publish", mock.AnythingOfType("events.BetResolvedEvent")).Return()

	summary, err := f.service.SettleMatch(ctx, 10)

	require.NoError(t, err)
	assert.Equal(t, 2, summary.BetsSettled)
	f.bets.AssertExpectations(t)
}

func TestSettlementService_SettleMatch_DrawRefundsBet(t *testing.T) {
	ctx := context.Background()
	f := newSettlementFixture(t)

	match := f.finishedMatch(10, "1-1")
	bet := &models.Bet{ID: 1, DiscordID: 100, MatchID: 10, Kind: models.BetKindTeam, Selection: "Scrims", Amount: 500, Odds: 1.8, Status: models.BetStatusActive}
	f.expectWagers(match, []*models.Bet{bet}, nil, nil)

	f.bets.On("ResolveActive", mock.Anything, int64(1), models.BetStatusCancelled, mock.Anything).Return(true, nil)
	f.expectCredit(100, 1000, 500, models.TransactionTypeBetRefund)
	f.bus.On("Publish", mock.AnythingOfType("events.BetResolvedEvent")).Return()

	summary, err := f.service.SettleMatch(ctx, 10)

	require.NoError(t, err)
	assert.Equal(t, 1, summary.BetsSettled)
	// A push never reaches the tournament ladder
	f.linker.AssertNotCalled(t, "MirrorResult", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestSettlementService_SettleMatch_AlreadySettled(t *testing.T) {
	ctx := context.Background()
	f := newSettlementFixture(t)

	match := f.finishedMatch(10, "2-0")
	bet := &models.Bet{ID: 1, DiscordID: 100, MatchID: 10, Kind: models.BetKindTeam, Selection: "Scrims", Amount: 500, Odds: 1.8, Status: models.BetStatusActive}
	f.expectWagers(match, []*models.Bet{bet}, nil, nil)

	// The status guard reports the bet was resolved by an earlier run
	f.bets.On("ResolveActive", mock.Anything, int64(1), models.BetStatusWon, mock.Anything).Return(false, nil)

	summary, err := f.service.SettleMatch(ctx, 10)

	require.NoError(t, err)
	assert.Equal(t, 1, summary.BetsSettled)
	assert.Equal(t, 0, summary.Failures)
	f.users.AssertNotCalled(t, "AddBalance", mock.Anything, mock.Anything, mock.Anything)
	f.bus.AssertNotCalled(t, "Publish", mock.AnythingOfType("events.BetResolvedEvent"))
}

func TestSettlementService_SettleMatch_NotFinished(t *testing.T) {
	ctx := context.Background()
	f := newSettlementFixture(t)

	open := &models.Match{ID: 10, TeamA: "Scrims", TeamB: "Rival", Status: models.MatchStatusNotStarted}
	f.matches.On("GetByID", mock.Anything, int64(10)).Return(open, nil)

	summary, err := f.service.SettleMatch(ctx, 10)
	require.Error(t, err)
	assert.Nil(t, summary)
	assert.Contains(t, err.Error(), "not finished")
}

func TestSettlementService_SettleMatch_Duel(t *testing.T) {
	ctx := context.Background()
	f := newSettlementFixture(t)

	match := f.finishedMatch(10, "2-1")
	duel := &models.Duel{
		ID: 5, MatchID: 10,
		ChallengerID: 100, OpponentID: 200,
		ChallengerTeam: "Scrims", OpponentTeam: "Rival",
		Amount: 400, Status: models.DuelStatusAccepted,
	}
	f.expectWagers(match, nil, []*models.Duel{duel}, nil)

	f.duels.On("ResolveAccepted", mock.Anything, int64(5), mock.MatchedBy(func(w *int64) bool {
		return w != nil && *w == 100
	}), mock.Anything).Return(true, nil)
	// The winner collects the whole 800 pot
	f.expectCredit(100, 1000, 800, models.TransactionTypeDuelWin)
	f.bus.On("Publish", mock.AnythingOfType("events.DuelResolvedEvent")).Return()

	summary, err := f.service.SettleMatch(ctx, 10)

	require.NoError(t, err)
	assert.Equal(t, 1, summary.DuelsSettled)
	f.duels.AssertExpectations(t)
	f.users.AssertExpectations(t)
}

func TestSettlementService_SettleMatch_DuelDraw(t *testing.T) {
	ctx := context.Background()
	f := newSettlementFixture(t)

	match := f.finishedMatch(10, "1-1")
	duel := &models.Duel{
		ID: 5, MatchID: 10,
		ChallengerID: 100, OpponentID: 200,
		ChallengerTeam: "Scrims", OpponentTeam: "Rival",
		Amount: 400, Status: models.DuelStatusAccepted,
	}
	f.expectWagers(match, nil, []*models.Duel{duel}, nil)

	f.duels.On("ResolveAccepted", mock.Anything, int64(5), (*int64)(nil), mock.Anything).Return(true, nil)
	// Both stakes come back
	f.expectCredit(100, 1000, 400, models.TransactionTypeDuelRefund)
	f.expectCredit(200, 2000, 400, models.TransactionTypeDuelRefund)
	f.bus.On("Publish", mock.AnythingOfType("events.DuelResolvedEvent")).Return()

	summary, err := f.service.SettleMatch(ctx, 10)

	require.NoError(t, err)
	assert.Equal(t, 1, summary.DuelsSettled)
	f.users.AssertExpectations(t)
	f.history.AssertExpectations(t)
}

func TestSettlementService_SettleMatch_ParlayFailFast(t *testing.T) {
	ctx := context.Background()
	f := newSettlementFixture(t)

	match := f.finishedMatch(10, "1-2")
	parlay := &models.Parlay{
		ID: 7, DiscordID: 100, Amount: 100, TotalOdds: 4.0,
		Status: models.ParlayStatusActive,
		Legs: []*models.ParlayLeg{
			{MatchID: 10, Kind: models.BetKindTeam, Selection: "Scrims"},
			{MatchID: 20, Kind: models.BetKindTeam, Selection: "Scrims"},
		},
	}
	f.expectWagers(match, nil, nil, []*models.Parlay{parlay})

	// The second leg's match is still open, but the first leg already lost
	pending := &models.Match{ID: 20, TeamA: "Scrims", TeamB: "Others", NumberOfGames: 3, Status: models.MatchStatusNotStarted, ScheduledAt: time.Now().Add(time.Hour)}
	f.matches.On("GetByID", mock.Anything, int64(20)).Return(pending, nil)
	f.parlays.On("ResolveActive", mock.Anything, int64(7), models.ParlayStatusLost, mock.Anything).Return(true, nil)
	f.bus.On("Publish", mock.AnythingOfType("events.ParlayResolvedEvent")).Return()

	summary, err := f.service.SettleMatch(ctx, 10)

	require.NoError(t, err)
	assert.Equal(t, 1, summary.ParlaysSettled)
	f.users.AssertNotCalled(t, "AddBalance", mock.Anything, mock.Anything, mock.Anything)
	f.parlays.AssertExpectations(t)
}

func TestSettlementService_SettleMatch_ParlayStaysOpen(t *testing.T) {
	ctx := context.Background()
	f := newSettlementFixture(t)

	match := f.finishedMatch(10, "2-1")
	parlay := &models.Parlay{
		ID: 7, DiscordID: 100, Amount: 100, TotalOdds: 4.0,
		Status: models.ParlayStatusActive,
		Legs: []*models.ParlayLeg{
			{MatchID: 10, Kind: models.BetKindTeam, Selection: "Scrims"},
			{MatchID: 20, Kind: models.BetKindTeam, Selection: "Scrims"},
		},
	}
	f.expectWagers(match, nil, nil, []*models.Parlay{parlay})

	pending := &models.Match{ID: 20, TeamA: "Scrims", TeamB: "Others", NumberOfGames: 3, Status: models.MatchStatusNotStarted, ScheduledAt: time.Now().Add(time.Hour)}
	f.matches.On("GetByID", mock.Anything, int64(20)).Return(pending, nil)

	summary, err := f.service.SettleMatch(ctx, 10)

	require.NoError(t, err)
	assert.Equal(t, 0, summary.ParlaysSettled)
	assert.Equal(t, 1, summary.ParlaysPending)
	f.parlays.AssertNotCalled(t, "ResolveActive", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestSettlementService_SettleMatch_ParlayWins(t *testing.T) {
	ctx := context.Background()
	f := newSettlementFixture(t)

	match := f.finishedMatch(10, "2-1")
	other := f.finishedMatch(20, "2-0")
	other.TeamB = "Others"
	parlay := &models.Parlay{
		ID: 7, DiscordID: 100, Amount: 100, TotalOdds: 4.5,
		Status: models.ParlayStatusActive,
		Legs: []*models.ParlayLeg{
			{MatchID: 10, Kind: models.BetKindTeam, Selection: "Scrims"},
			{MatchID: 20, Kind: models.BetKindScore, Selection: "2-0"},
		},
	}
	f.expectWagers(match, nil, nil, []*models.Parlay{parlay})

	f.matches.On("GetByID", mock.Anything, int64(20)).Return(other, nil)
	f.parlays.On("ResolveActive", mock.Anything, int64(7), models.ParlayStatusWon, mock.Anything).Return(true, nil)
	// 100 * 4.5 = 450
	f.expectCredit(100, 1000, 450, models.TransactionTypeParlayWin)
	f.bus.On("Publish", mock.AnythingOfType("events.ParlayResolvedEvent")).Return()

	summary, err := f.service.SettleMatch(ctx, 10)

	require.NoError(t, err)
	assert.Equal(t, 1, summary.ParlaysSettled)
	f.users.AssertExpectations(t)
}

func TestSettlementService_SettleMatch_MirrorsTournamentResult(t *testing.T) {
	ctx := context.Background()
	f := newSettlementFixture(t)

	tournamentID := int64(77)
	match := f.finishedMatch(10, "2-1")
	bet := &models.Bet{ID: 1, DiscordID: 100, MatchID: 10, Kind: models.BetKindTeam, Selection: "Scrims", Amount: 500, Odds: 1.8, Status: models.BetStatusActive, TournamentID: &tournamentID}
	f.expectWagers(match, []*models.Bet{bet}, nil, nil)

	f.bets.On("ResolveActive", mock.Anything, int64(1), models.BetStatusWon, mock.Anything).Return(true, nil)
	f.expectCredit(100, 1000, 900, models.TransactionTypeBetWin)
	f.linker.On("MirrorResult", mock.Anything, f.uow, int64(77), int64(100), "bet", 1.8, true).Return(nil)
	f.bus.On("Publish", mock.AnythingOfType("events.BetResolvedEvent")).Return()

	summary, err := f.service.SettleMatch(ctx, 10)

	require.NoError(t, err)
	assert.Equal(t, 1, summary.BetsSettled)
	f.linker.AssertExpectations(t)
}

func TestSettlementService_SettleMatch_FailureSkipsOneWager(t *testing.T) {
	ctx := context.Background()
	f := newSettlementFixture(t)

	match := f.finishedMatch(10, "2-1")
	broken := &models.Bet{ID: 1, DiscordID: 100, MatchID: 10, Kind: models.BetKindTeam, Selection: "Scrims", Amount: 500, Odds: 1.8, Status: models.BetStatusActive}
	healthy := &models.Bet{ID: 2, DiscordID: 200, MatchID: 10, Kind: models.BetKindTeam, Selection: "Rival", Amount: 300, Odds: 2.2, Status: models.BetStatusActive}
	f.expectWagers(match, []*models.Bet{broken, healthy}, nil, nil)

	f.bets.On("ResolveActive", mock.Anything, int64(1), models.BetStatusWon, mock.Anything).Return(false, assert.AnError)
	f.bets.On("ResolveActive", mock.Anything, int64(2), models.BetStatusLost, mock.Anything).Return(true, nil)
	f.bus.On("Publish", mock.AnythingOfType("events.BetResolvedEvent")).Return()

	summary, err := f.service.SettleMatch(ctx, 10)

	require.NoError(t, err)
	assert.Equal(t, 1, summary.BetsSettled)
	assert.Equal(t, 1, summary.Failures)
}
