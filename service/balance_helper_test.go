package service

import (
	"context"
	"errors"
	"testing"

	"scrimbet/events"
	"scrimbet/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newBalanceHelperUow(history *MockBalanceHistoryRepository, bus *MockEventPublisher) *MockUnitOfWork {
	uow := new(MockUnitOfWork)
	uow.SetRepositories(nil, history, nil, nil, nil, nil, nil, nil, bus)
	return uow
}

func TestRecordBalanceChange_PublishesBalanceChange(t *testing.T) {
	ctx := context.Background()
	history := new(MockBalanceHistoryRepository)
	bus := new(MockEventPublisher)
	uow := newBalanceHelperUow(history, bus)

	entry := &models.BalanceHistory{
		DiscordID:       100,
		BalanceBefore:   1000,
		BalanceAfter:    1500,
		ChangeAmount:    500,
		TransactionType: models.TransactionTypeBetWin,
	}
	history.On("Record", ctx, entry).Return(nil)
	bus.On("Publish", events.BalanceChangeEvent{
		UserID:          100,
		OldBalance:      1000,
		NewBalance:      1500,
		TransactionType: models.TransactionTypeBetWin,
		ChangeAmount:    500,
	}).Return()

	err := RecordBalanceChange(ctx, uow, entry)

	require.NoError(t, err)
	history.AssertExpectations(t)
	bus.AssertExpectations(t)
	bus.AssertNotCalled(t, "Publish", mock.AnythingOfType("events.UserCreatedEvent"))
}

func TestRecordBalanceChange_InitialEmitsUserCreated(t *testing.T) {
	ctx := context.Background()
	history := new(MockBalanceHistoryRepository)
	bus := new(MockEventPublisher)
	uow := newBalanceHelperUow(history, bus)

	entry := &models.BalanceHistory{
		DiscordID:       100,
		BalanceBefore:   0,
		BalanceAfter:    1000,
		ChangeAmount:    1000,
		TransactionType: models.TransactionTypeInitial,
		TransactionMetadata: map[string]any{
			"username": "newcomer",
		},
	}
	history.On("Record", ctx, entry).Return(nil)
	bus.On("Publish", mock.AnythingOfType("events.BalanceChangeEvent")).Return()
	bus.On("Publish", events.UserCreatedEvent{
		DiscordID:      100,
		Username:       "newcomer",
		InitialBalance: 1000,
	}).Return()

	err := RecordBalanceChange(ctx, uow, entry)

	require.NoError(t, err)
	bus.AssertExpectations(t)
}

func TestRecordBalanceChange_RecordError(t *testing.T) {
	ctx := context.Background()
	history := new(MockBalanceHistoryRepository)
	bus := new(MockEventPublisher)
	uow := newBalanceHelperUow(history, bus)

	entry := &models.BalanceHistory{DiscordID: 100, TransactionType: models.TransactionTypeBetWin}
	history.On("Record", ctx, entry).Return(errors.New("database error"))

	err := RecordBalanceChange(ctx, uow, entry)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to record balance history")
	bus.AssertNotCalled(t, "Publish", mock.Anything)
}
