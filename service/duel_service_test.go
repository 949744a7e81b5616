package service

import (
	"context"
	"testing"
	"time"

	"scrimbet/config"
	"scrimbet/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type duelFixture struct {
	service DuelService

	factory *MockUnitOfWorkFactory
	uow     *MockUnitOfWork
	users   *MockUserRepository
	history *MockBalanceHistoryRepository
	matches *MockMatchRepository
	duels   *MockDuelRepository
	bus     *MockEventPublisher
	linker  *MockTournamentLinker
	now     time.Time
}

func newDuelFixture(t *testing.T) *duelFixture {
	t.Helper()
	config.SetTestConfig(config.NewTestConfig())
	t.Cleanup(config.ResetConfig)

	f := &duelFixture{
		factory: new(MockUnitOfWorkFactory),
		uow:     new(MockUnitOfWork),
		users:   new(MockUserRepository),
		history: new(MockBalanceHistoryRepository),
		matches: new(MockMatchRepository),
		duels:   new(MockDuelRepository),
		bus:     new(MockEventPublisher),
		linker:  new(MockTournamentLinker),
		now:     time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
	f.uow.SetRepositories(f.users, f.history, f.matches, nil, f.duels, nil, nil, nil, f.bus)
	f.uow.On("Begin", mock.Anything).Return(nil).Maybe()
	f.uow.On("Commit").Return(nil).Maybe()
	f.uow.On("Rollback").Return(nil).Maybe()
	f.factory.On("Create").Return(f.uow).Maybe()

	svc := NewDuelService(f.factory, f.linker).(*duelService)
	svc.now = func() time.Time { return f.now }
	f.service = svc
	return f
}

func (f *duelFixture) upcomingMatch(id int64) *models.Match {
	return &models.Match{
		ID:            id,
		TeamA:         "Scrims",
		TeamB:         "Rival",
		NumberOfGames: 3,
		Status:        models.MatchStatusNotStarted,
		ScheduledAt:   f.now.Add(time.Hour),
	}
}

func TestDuelService_Propose(t *testing.T) {
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		f := newDuelFixture(t)
		f.matches.On("GetByID", mock.Anything, int64(10)).Return(f.upcomingMatch(10), nil)
		f.users.On("GetByDiscordID", ctx, int64(100)).Return(
			&models.User{DiscordID: 100, Balance: 5000}, nil)
		f.duels.On("Create", ctx, mock.MatchedBy(func(d *models.Duel) bool {
			return d.ChallengerID == 100 &&
				d.OpponentID == 200 &&
				d.ChallengerTeam == "Scrims" &&
				d.OpponentTeam == "Rival" &&
				d.Amount == 400 &&
				d.Status == models.DuelStatusPending
		})).Return(nil)

		duel, err := f.service.Propose(ctx, 100, 200, 10, "Scrims", 400)
		require.NoError(t, err)
		require.NotNil(t, duel)
		// No money moves at proposal time
		f.users.AssertNotCalled(t, "DeductBalance", mock.Anything, mock.Anything, mock.Anything)
		f.duels.AssertExpectations(t)
	})

	t.Run("self duel rejected", func(t *testing.T) {
		f := newDuelFixture(t)
		_, err := f.service.Propose(ctx, 100, 100, 10, "Scrims", 400)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "yourself")
	})

	t.Run("below minimum stake", func(t *testing.T) {
		f := newDuelFixture(t)
		_, err := f.service.Propose(ctx, 100, 200, 10, "Scrims", 1)
		assert.ErrorIs(t, err, models.ErrInvalidStake)
	})

	t.Run("unknown team", func(t *testing.T) {
		f := newDuelFixture(t)
		f.matches.On("GetByID", mock.Anything, int64(10)).Return(f.upcomingMatch(10), nil)
		_, err := f.service.Propose(ctx, 100, 200, 10, "Nobody", 400)
		assert.ErrorIs(t, err, models.ErrInvalidSelection)
	})

	t.Run("challenger cannot cover stake", func(t *testing.T) {
		f := newDuelFixture(t)
		f.matches.On("GetByID", mock.Anything, int64(10)).Return(f.upcomingMatch(10), nil)
		f.users.On("GetByDiscordID", ctx, int64(100)).Return(
			&models.User{DiscordID: 100, Balance: 50}, nil)
		_, err := f.service.Propose(ctx, 100, 200, 10, "Scrims", 400)
		assert.ErrorIs(t, err, models.ErrInsufficientFunds)
	})
}

func TestDuelService_Accept(t *testing.T) {
	ctx := context.Background()

	pendingDuel := func() *models.Duel {
		return &models.Duel{
			ID: 5, MatchID: 10,
			ChallengerID: 100, OpponentID: 200,
			ChallengerTeam: "Scrims", OpponentTeam: "Rival",
			Amount: 400, Status: models.DuelStatusPending,
		}
	}

	t.Run("escrows both stakes", func(t *testing.T) {
		f := newDuelFixture(t)
		f.duels.On("GetByID", ctx, int64(5)).Return(pendingDuel(), nil)
		f.matches.On("GetByID", mock.Anything, int64(10)).Return(f.upcomingMatch(10), nil)
		f.duels.On("AcceptPending", ctx, int64(5), f.now).Return(true, nil)

		for _, partyID := range []int64{100, 200} {
			id := partyID
			f.users.On("GetByDiscordID", ctx, id).Return(
				&models.User{DiscordID: id, Balance: 5000}, nil)
			f.users.On("DeductBalance", ctx, id, int64(400)).Return(nil)
			f.history.On("Record", ctx, mock.MatchedBy(func(h *models.BalanceHistory) bool {
				return h.DiscordID == id &&
					h.ChangeAmount == -400 &&
					h.TransactionType == models.TransactionTypeDuelStake
			})).Return(nil)
		}
		f.bus.On("Publish", mock.AnythingOfType("events.BalanceChangeEvent")).Return()
		f.linker.On("LinkDuel", ctx, f.uow, int64(100), int64(200), f.now).Return(nil, nil)

		duel, err := f.service.Accept(ctx, 5, 200)
		require.NoError(t, err)
		assert.Equal(t, models.DuelStatusAccepted, duel.Status)
		require.NotNil(t, duel.AcceptedAt)

		f.users.AssertExpectations(t)
		f.history.AssertExpectations(t)
		f.duels.AssertNotCalled(t, "SetTournament", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("responder short on funds aborts", func(t *testing.T) {
		f := newDuelFixture(t)
		f.duels.On("GetByID", ctx, int64(5)).Return(pendingDuel(), nil)
		f.matches.On("GetByID", mock.Anything, int64(10)).Return(f.upcomingMatch(10), nil)
		f.duels.On("AcceptPending", ctx, int64(5), f.now).Return(true, nil)

		f.users.On("GetByDiscordID", ctx, int64(100)).Return(
			&models.User{DiscordID: 100, Balance: 5000}, nil)
		f.users.On("DeductBalance", ctx, int64(100), int64(400)).Return(nil)
		f.history.On("Record", ctx, mock.AnythingOfType("*models.BalanceHistory")).Return(nil)
		f.bus.On("Publish", mock.AnythingOfType("events.BalanceChangeEvent")).Return()

		f.users.On("GetByDiscordID", ctx, int64(200)).Return(
			&models.User{DiscordID: 200, Balance: 100}, nil)
		f.users.On("DeductBalance", ctx, int64(200), int64(400)).Return(models.ErrInsufficientFunds)

		_, err := f.service.Accept(ctx, 5, 200)
		assert.ErrorIs(t, err, models.ErrInsufficientFunds)
		f.uow.AssertNotCalled(t, "Commit")
	})

	t.Run("only the challenged party may accept", func(t *testing.T) {
		f := newDuelFixture(t)
		f.duels.On("GetByID", ctx, int64(5)).Return(pendingDuel(), nil)

		_, err := f.service.Accept(ctx, 5, 999)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "cannot be accepted")
	})

	t.Run("raced acceptance loses the guard", func(t *testing.T) {
		f := newDuelFixture(t)
		f.duels.On("GetByID", ctx, int64(5)).Return(pendingDuel(), nil)
		f.matches.On("GetByID", mock.Anything, int64(10)).Return(f.upcomingMatch(10), nil)
		f.duels.On("AcceptPending", ctx, int64(5), f.now).Return(false, nil)

		_, err := f.service.Accept(ctx, 5, 200)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "no longer pending")
		f.users.AssertNotCalled(t, "DeductBalance", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("links tournament when both compete", func(t *testing.T) {
		f := newDuelFixture(t)
		tournamentID := int64(77)
		f.duels.On("GetByID", ctx, int64(5)).Return(pendingDuel(), nil)
		f.matches.On("GetByID", mock.Anything, int64(10)).Return(f.upcomingMatch(10), nil)
		f.duels.On("AcceptPending", ctx, int64(5), f.now).Return(true, nil)
		f.users.On("GetByDiscordID", ctx, mock.AnythingOfType("int64")).Return(
			&models.User{DiscordID: 100, Balance: 5000}, nil)
		f.users.On("DeductBalance", ctx, mock.AnythingOfType("int64"), int64(400)).Return(nil)
		f.history.On("Record", ctx, mock.AnythingOfType("*models.BalanceHistory")).Return(nil)
		f.bus.On("Publish", mock.AnythingOfType("events.BalanceChangeEvent")).Return()
		f.linker.On("LinkDuel", ctx, f.uow, int64(100), int64(200), f.now).Return(&tournamentID, nil)
		f.duels.On("SetTournament", ctx, int64(5), &tournamentID).Return(nil)

		duel, err := f.service.Accept(ctx, 5, 200)
		require.NoError(t, err)
		require.NotNil(t, duel.TournamentID)
		assert.Equal(t, int64(77), *duel.TournamentID)
		f.duels.AssertExpectations(t)
	})
}

func TestDuelService_DeclineAndCancel(t *testing.T) {
	ctx := context.Background()

	pendingDuel := func() *models.Duel {
		return &models.Duel{
			ID: 5, MatchID: 10,
			ChallengerID: 100, OpponentID: 200,
			Amount: 400, Status: models.DuelStatusPending,
		}
	}

	t.Run("opponent declines", func(t *testing.T) {
		f := newDuelFixture(t)
		f.duels.On("GetByID", ctx, int64(5)).Return(pendingDuel(), nil)
		f.duels.On("CancelPending", ctx, int64(5)).Return(true, nil)

		require.NoError(t, f.service.Decline(ctx, 5, 200))
	})

	t.Run("challenger cannot decline own duel", func(t *testing.T) {
		f := newDuelFixture(t)
		f.duels.On("GetByID", ctx, int64(5)).Return(pendingDuel(), nil)

		err := f.service.Decline(ctx, 5, 100)
		require.Error(t, err)
		f.duels.AssertNotCalled(t, "CancelPending", mock.Anything, mock.Anything)
	})

	t.Run("challenger cancels", func(t *testing.T) {
		f := newDuelFixture(t)
		f.duels.On("GetByID", ctx, int64(5)).Return(pendingDuel(), nil)
		f.duels.On("CancelPending", ctx, int64(5)).Return(true, nil)

		require.NoError(t, f.service.Cancel(ctx, 5, 100))
	})

	t.Run("stranger cannot cancel", func(t *testing.T) {
		f := newDuelFixture(t)
		f.duels.On("GetByID", ctx, int64(5)).Return(pendingDuel(), nil)

		err := f.service.Cancel(ctx, 5, 999)
		require.Error(t, err)
	})
}
