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

type economyFixture struct {
	service EconomyService

	factory *MockUnitOfWorkFactory
	uow     *MockUnitOfWork
	users   *MockUserRepository
	history *MockBalanceHistoryRepository
	bus     *MockEventPublisher
	now     time.Time
}

func newEconomyFixture(t *testing.T) *economyFixture {
	t.Helper()
	config.SetTestConfig(config.NewTestConfig())
	t.Cleanup(config.ResetConfig)

	f := &economyFixture{
		factory: new(MockUnitOfWorkFactory),
		uow:     new(MockUnitOfWork),
		users:   new(MockUserRepository),
		history: new(MockBalanceHistoryRepository),
		bus:     new(MockEventPublisher),
		now:     time.Date(2025, 6, 1, 18, 30, 0, 0, time.UTC),
	}
	f.uow.SetRepositories(f.users, f.history, nil, nil, nil, nil, nil, nil, f.bus)
	f.uow.On("Begin", mock.Anything).Return(nil).Maybe()
	f.uow.On("Commit").Return(nil).Maybe()
	f.uow.On("Rollback").Return(nil).Maybe()
	f.factory.On("Create").Return(f.uow).Maybe()

	svc := NewEconomyService(f.factory).(*economyService)
	svc.now = func() time.Time { return f.now }
	f.service = svc
	return f
}

func TestEconomyService_ClaimDaily(t *testing.T) {
	ctx := context.Background()
	startOfDay := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	t.Run("first claim ever", func(t *testing.T) {
		f := newEconomyFixture(t)
		f.users.On("GetByDiscordID", ctx, int64(100)).Return(
			&models.User{DiscordID: 100, Balance: 1000}, nil)
		f.history.On("CountByTypeSince", ctx, int64(100), models.TransactionTypeDailyClaim, startOfDay).Return(0, nil)
		f.history.On("CountByTypeSince", ctx, int64(100), models.TransactionTypeDailyClaim, time.Time{}).Return(0, nil)
		f.users.On("AddBalance", ctx, int64(100), int64(250)).Return(nil)
		f.history.On("Record", ctx, mock.MatchedBy(func(h *models.BalanceHistory) bool {
			return h.ChangeAmount == 250 &&
				h.BalanceAfter == 1250 &&
				h.TransactionType == models.TransactionTypeDailyClaim
		})).Return(nil)
		f.bus.On("Publish", mock.AnythingOfType("events.BalanceChangeEvent")).Return()
		f.bus.On("Publish", mock.AnythingOfType("events.DailyClaimedEvent")).Return()

		result, err := f.service.ClaimDaily(ctx, 100)
		require.NoError(t, err)
		assert.Equal(t, int64(250), result.Amount)
		assert.Equal(t, int64(1250), result.NewBalance)
		assert.True(t, result.First)
		assert.Equal(t, time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC), result.NextReset)
	})

	t.Run("repeat claim on a later day", func(t *testing.T) {
		f := newEconomyFixture(t)
		f.users.On("GetByDiscordID", ctx, int64(100)).Return(
			&models.User{DiscordID: 100, Balance: 1000}, nil)
		f.history.On("CountByTypeSince", ctx, int64(100), models.TransactionTypeDailyClaim, startOfDay).Return(0, nil)
		f.history.On("CountByTypeSince", ctx, int64(100), models.TransactionTypeDailyClaim, time.Time{}).Return(14, nil)
		f.users.On("AddBalance", ctx, int64(100), int64(250)).Return(nil)
		f.history.On("Record", ctx, mock.AnythingOfType("*models.BalanceHistory")).Return(nil)
		f.bus.On("Publish", mock.Anything).Return()

		result, err := f.service.ClaimDaily(ctx, 100)
		require.NoError(t, err)
		assert.False(t, result.First)
	})

	t.Run("already claimed today", func(t *testing.T) {
		f := newEconomyFixture(t)
		f.users.On("GetByDiscordID", ctx, int64(100)).Return(
			&models.User{DiscordID: 100, Balance: 1000}, nil)
		f.history.On("CountByTypeSince", ctx, int64(100), models.TransactionTypeDailyClaim, startOfDay).Return(1, nil)

		result, err := f.service.ClaimDaily(ctx, 100)
		assert.ErrorIs(t, err, models.ErrAlreadyClaimed)
		assert.Nil(t, result)
		f.users.AssertNotCalled(t, "AddBalance", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestEconomyService_Transfer(t *testing.T) {
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		f := newEconomyFixture(t)
		f.users.On("GetByDiscordID", ctx, int64(100)).Return(
			&models.User{DiscordID: 100, Username: "sender", Balance: 5000}, nil)
		f.users.On("GetByDiscordID", ctx, int64(200)).Return(
			&models.User{DiscordID: 200, Username: "friend", Balance: 300}, nil)
		f.users.On("DeductBalance", ctx, int64(100), int64(1500)).Return(nil)
		f.users.On("AddBalance", ctx, int64(200), int64(1500)).Return(nil)
		f.history.On("Record", ctx, mock.MatchedBy(func(h *models.BalanceHistory) bool {
			return h.DiscordID == 100 && h.ChangeAmount == -1500 && h.TransactionType == models.TransactionTypeTransferOut
		})).Return(nil)
		f.history.On("Record", ctx, mock.MatchedBy(func(h *models.BalanceHistory) bool {
			return h.DiscordID == 200 && h.ChangeAmount == 1500 && h.TransactionType == models.TransactionTypeTransferIn
		})).Return(nil)
		f.bus.On("Publish", mock.AnythingOfType("events.BalanceChangeEvent")).Return()
		f.bus.On("Publish", mock.AnythingOfType("events.TransferMadeEvent")).Return()

		result, err := f.service.Transfer(ctx, 100, 200, 1500)
		require.NoError(t, err)
		assert.Equal(t, int64(3500), result.NewBalance)
		assert.Equal(t, "friend", result.RecipientName)
		f.history.AssertExpectations(t)
	})

	t.Run("self transfer rejected", func(t *testing.T) {
		f := newEconomyFixture(t)
		_, err := f.service.Transfer(ctx, 100, 100, 500)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "yourself")
	})

	t.Run("non-positive amount rejected", func(t *testing.T) {
		f := newEconomyFixture(t)
		_, err := f.service.Transfer(ctx, 100, 200, 0)
		require.Error(t, err)
	})

	t.Run("sender short on funds", func(t *testing.T) {
		f := newEconomyFixture(t)
		f.users.On("GetByDiscordID", ctx, int64(100)).Return(
			&models.User{DiscordID: 100, Balance: 100}, nil)
		f.users.On("GetByDiscordID", ctx, int64(200)).Return(
			&models.User{DiscordID: 200, Balance: 300}, nil)
		f.users.On("DeductBalance", ctx, int64(100), int64(1500)).Return(models.ErrInsufficientFunds)

		_, err := f.service.Transfer(ctx, 100, 200, 1500)
		assert.ErrorIs(t, err, models.ErrInsufficientFunds)
		f.users.AssertNotCalled(t, "AddBalance", mock.Anything, mock.Anything, mock.Anything)
	})
}
