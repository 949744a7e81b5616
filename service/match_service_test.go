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

type MockSettlementService struct {
	mock.Mock
}

func (m *MockSettlementService) SettleMatch(ctx context.Context, matchID int64) (*SettlementSummary, error) {
	args := m.Called(ctx, matchID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*SettlementSummary), args.Error(1)
}

type matchFixture struct {
	service MatchService

	factory    *MockUnitOfWorkFactory
	uow        *MockUnitOfWork
	matches    *MockMatchRepository
	settlement *MockSettlementService

	now time.Time
}

func newMatchFixture(t *testing.T) *matchFixture {
	t.Helper()

	f := &matchFixture{
		factory:    new(MockUnitOfWorkFactory),
		uow:        new(MockUnitOfWork),
		matches:    new(MockMatchRepository),
		settlement: new(MockSettlementService),
		now:        time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
	f.uow.SetRepositories(nil, nil, f.matches, nil, nil, nil, nil, nil, nil)
	f.uow.On("Begin", mock.Anything).Return(nil).Maybe()
	f.uow.On("Commit").Return(nil).Maybe()
	f.uow.On("Rollback").Return(nil).Maybe()
	f.factory.On("Create").Return(f.uow).Maybe()

	svc := NewMatchService(f.factory, f.settlement, "Scrims").(*matchService)
	svc.now = func() time.Time { return f.now }
	f.service = svc
	return f
}

func TestMatchService_ScheduleMatch_Success(t *testing.T) {
	ctx := context.Background()
	f := newMatchFixture(t)

	scheduledAt := f.now.Add(3 * time.Hour)
	f.matches.On("Create", ctx, mock.MatchedBy(func(m *models.Match) bool {
		return m.TeamA == "Scrims" &&
			m.TeamB == "Rivals" &&
			m.NumberOfGames == 3 &&
			m.Status == models.MatchStatusNotStarted &&
			m.ScheduledAt.Equal(scheduledAt)
	})).Return(nil)

	match, err := f.service.ScheduleMatch(ctx, "Rivals", 3, scheduledAt)

	require.NoError(t, err)
	assert.Equal(t, "Rivals", match.TeamB)
	f.uow.AssertCalled(t, "Commit")
}

func TestMatchService_ScheduleMatch_Validation(t *testing.T) {
	ctx := context.Background()
	future := time.Date(2025, 6, 2, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name        string
		opponent    string
		games       int
		scheduledAt time.Time
		wantErr     string
	}{
		{"missing opponent", "", 3, future, "opponent is required"},
		{"even series", "Rivals", 4, future, "odd series length"},
		{"zero games", "Rivals", 0, future, "odd series length"},
		{"in the past", "Rivals", 3, time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC), "in the future"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newMatchFixture(t)

			match, err := f.service.ScheduleMatch(ctx, tt.opponent, tt.games, tt.scheduledAt)

			require.Error(t, err)
			assert.Nil(t, match)
			assert.Contains(t, err.Error(), tt.wantErr)
			f.matches.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
		})
	}
}

func TestMatchService_FinishMatch_Success(t *testing.T) {
	ctx := context.Background()
	f := newMatchFixture(t)

	f.matches.On("GetByID", ctx, int64(42)).Return(&models.Match{
		ID:            42,
		TeamA:         "Scrims",
		TeamB:         "Rivals",
		NumberOfGames: 3,
		Status:        models.MatchStatusLive,
	}, nil)
	f.matches.On("MarkFinished", ctx, int64(42), "2-1").Return(nil)
	f.settlement.On("SettleMatch", ctx, int64(42)).Return(&SettlementSummary{
		MatchID:     42,
		BetsSettled: 3,
	}, nil)

	summary, err := f.service.FinishMatch(ctx, 42, "2-1")

	require.NoError(t, err)
	assert.Equal(t, 3, summary.BetsSettled)
	f.uow.AssertCalled(t, "Commit")
	f.settlement.AssertExpectations(t)
}

func TestMatchService_FinishMatch_Rejections(t *testing.T) {
	ctx := context.Background()

	t.Run("malformed score", func(t *testing.T) {
		f := newMatchFixture(t)

		summary, err := f.service.FinishMatch(ctx, 42, "two-one")

		require.Error(t, err)
		assert.Nil(t, summary)
		assert.Contains(t, err.Error(), "malformed score")
		f.matches.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
	})

	t.Run("already finished", func(t *testing.T) {
		f := newMatchFixture(t)
		f.matches.On("GetByID", ctx, int64(42)).Return(&models.Match{
			ID:            42,
			NumberOfGames: 3,
			Status:        models.MatchStatusFinished,
		}, nil)

		_, err := f.service.FinishMatch(ctx, 42, "2-0")

		require.Error(t, err)
		assert.Contains(t, err.Error(), "already finished")
		f.matches.AssertNotCalled(t, "MarkFinished", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("score exceeds series", func(t *testing.T) {
		f := newMatchFixture(t)
		f.matches.On("GetByID", ctx, int64(42)).Return(&models.Match{
			ID:            42,
			NumberOfGames: 3,
			Status:        models.MatchStatusLive,
		}, nil)

		_, err := f.service.FinishMatch(ctx, 42, "3-2")

		require.Error(t, err)
		assert.Contains(t, err.Error(), "does not fit")
		f.settlement.AssertNotCalled(t, "SettleMatch", mock.Anything, mock.Anything)
	})

	t.Run("unknown match", func(t *testing.T) {
		f := newMatchFixture(t)
		f.matches.On("GetByID", ctx, int64(42)).Return(nil, nil)

		_, err := f.service.FinishMatch(ctx, 42, "2-0")

		require.Error(t, err)
		assert.Contains(t, err.Error(), "not found")
	})
}

func TestMatchService_GetMatch(t *testing.T) {
	ctx := context.Background()

	t.Run("found", func(t *testing.T) {
		f := newMatchFixture(t)
		f.matches.On("GetByID", ctx, int64(42)).Return(&models.Match{ID: 42, TeamB: "Rivals"}, nil)

		match, err := f.service.GetMatch(ctx, 42)
		require.NoError(t, err)
		assert.Equal(t, "Rivals", match.TeamB)
	})

	t.Run("not found", func(t *testing.T) {
		f := newMatchFixture(t)
		f.matches.On("GetByID", ctx, int64(42)).Return(nil, nil)

		match, err := f.service.GetMatch(ctx, 42)
		require.Error(t, err)
		assert.Nil(t, match)
	})
}
