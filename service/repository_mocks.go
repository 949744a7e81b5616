package service

import (
	"context"
	"time"

	"scrimbet/events"
	"scrimbet/models"

	"github.com/stretchr/testify/mock"
)

// MockUserRepository is a mock implementation of UserRepository
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) GetByDiscordID(ctx context.Context, discordID int64) (*models.User, error) {
	args := m.Called(ctx, discordID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) Create(ctx context.Context, discordID int64, username string, initialBalance int64) (*models.User, error) {
	args := m.Called(ctx, discordID, username, initialBalance)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) AddBalance(ctx context.Context, discordID int64, amount int64) error {
	args := m.Called(ctx, discordID, amount)
	return args.Error(0)
}

func (m *MockUserRepository) DeductBalance(ctx context.Context, discordID int64, amount int64) error {
	args := m.Called(ctx, discordID, amount)
	return args.Error(0)
}

func (m *MockUserRepository) GetTopByBalance(ctx context.Context, limit int) ([]*models.User, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.User), args.Error(1)
}

// MockBalanceHistoryRepository is a mock implementation of BalanceHistoryRepository
type MockBalanceHistoryRepository struct {
	mock.Mock
}

func (m *MockBalanceHistoryRepository) Record(ctx context.Context, history *models.BalanceHistory) error {
	args := m.Called(ctx, history)
	return args.Error(0)
}

func (m *MockBalanceHistoryRepository) GetByUser(ctx context.Context, discordID int64, limit int) ([]*models.BalanceHistory, error) {
	args := m.Called(ctx, discordID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.BalanceHistory), args.Error(1)
}

func (m *MockBalanceHistoryRepository) SumAmountByType(ctx context.Context, discordID int64, transactionType models.TransactionType) (int64, error) {
	args := m.Called(ctx, discordID, transactionType)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockBalanceHistoryRepository) MaxAmountByType(ctx context.Context, discordID int64, transactionType models.TransactionType) (int64, error) {
	args := m.Called(ctx, discordID, transactionType)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockBalanceHistoryRepository) CountByTypeSince(ctx context.Context, discordID int64, transactionType models.TransactionType, since time.Time) (int, error) {
	args := m.Called(ctx, discordID, transactionType, since)
	return args.Int(0), args.Error(1)
}

// MockMatchRepository is a mock implementation of MatchRepository
type MockMatchRepository struct {
	mock.Mock
}

func (m *MockMatchRepository) GetByID(ctx context.Context, id int64) (*models.Match, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Match), args.Error(1)
}

func (m *MockMatchRepository) GetFinishedAgainst(ctx context.Context, opponent string, since time.Time, limit int) ([]*models.Match, error) {
	args := m.Called(ctx, opponent, since, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Match), args.Error(1)
}

func (m *MockMatchRepository) GetUpcoming(ctx context.Context, limit int) ([]*models.Match, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Match), args.Error(1)
}

func (m *MockMatchRepository) Create(ctx context.Context, match *models.Match) error {
	args := m.Called(ctx, match)
	return args.Error(0)
}

func (m *MockMatchRepository) MarkFinished(ctx context.Context, id int64, score string) error {
	args := m.Called(ctx, id, score)
	return args.Error(0)
}

// MockBetRepository is a mock implementation of BetRepository
type MockBetRepository struct {
	mock.Mock
}

func (m *MockBetRepository) Create(ctx context.Context, bet *models.Bet) error {
	args := m.Called(ctx, bet)
	return args.Error(0)
}

func (m *MockBetRepository) GetByID(ctx context.Context, id int64) (*models.Bet, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Bet), args.Error(1)
}

func (m *MockBetRepository) GetActiveByMatch(ctx context.Context, matchID int64) ([]*models.Bet, error) {
	args := m.Called(ctx, matchID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Bet), args.Error(1)
}

func (m *MockBetRepository) GetByUser(ctx context.Context, discordID int64, limit int) ([]*models.Bet, error) {
	args := m.Called(ctx, discordID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Bet), args.Error(1)
}

func (m *MockBetRepository) GetRecentResolvedByUser(ctx context.Context, discordID int64, limit int) ([]*models.Bet, error) {
	args := m.Called(ctx, discordID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Bet), args.Error(1)
}

func (m *MockBetRepository) CountByUser(ctx context.Context, discordID int64) (int, error) {
	args := m.Called(ctx, discordID)
	return args.Int(0), args.Error(1)
}

func (m *MockBetRepository) SumActiveByMatchSelection(ctx context.Context, matchID int64, kind models.BetKind, selection string) (int64, error) {
	args := m.Called(ctx, matchID, kind, selection)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockBetRepository) ResolveActive(ctx context.Context, betID int64, status models.BetStatus, resolvedAt time.Time) (bool, error) {
	args := m.Called(ctx, betID, status, resolvedAt)
	return args.Bool(0), args.Error(1)
}

func (m *MockBetRepository) GetStats(ctx context.Context, discordID int64) (*models.WagerStats, error) {
	args := m.Called(ctx, discordID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.WagerStats), args.Error(1)
}

// MockDuelRepository is a mock implementation of DuelRepository
type MockDuelRepository struct {
	mock.Mock
}

func (m *MockDuelRepository) Create(ctx context.Context, duel *models.Duel) error {
	args := m.Called(ctx, duel)
	return args.Error(0)
}

func (m *MockDuelRepository) GetByID(ctx context.Context, id int64) (*models.Duel, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Duel), args.Error(1)
}

func (m *MockDuelRepository) GetAcceptedByMatch(ctx context.Context, matchID int64) ([]*models.Duel, error) {
	args := m.Called(ctx, matchID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Duel), args.Error(1)
}

func (m *MockDuelRepository) GetPendingByOpponent(ctx context.Context, opponentID int64) ([]*models.Duel, error) {
	args := m.Called(ctx, opponentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Duel), args.Error(1)
}

func (m *MockDuelRepository) AcceptPending(ctx context.Context, duelID int64, acceptedAt time.Time) (bool, error) {
	args := m.Called(ctx, duelID, acceptedAt)
	return args.Bool(0), args.Error(1)
}

func (m *MockDuelRepository) SetTournament(ctx context.Context, duelID int64, tournamentID *int64) error {
	args := m.Called(ctx, duelID, tournamentID)
	return args.Error(0)
}

func (m *MockDuelRepository) CancelPending(ctx context.Context, duelID int64) (bool, error) {
	args := m.Called(ctx, duelID)
	return args.Bool(0), args.Error(1)
}

func (m *MockDuelRepository) ResolveAccepted(ctx context.Context, duelID int64, winnerID *int64, resolvedAt time.Time) (bool, error) {
	args := m.Called(ctx, duelID, winnerID, resolvedAt)
	return args.Bool(0), args.Error(1)
}

func (m *MockDuelRepository) GetRecentResolvedByUser(ctx context.Context, discordID int64, limit int) ([]*models.Duel, error) {
	args := m.Called(ctx, discordID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Duel), args.Error(1)
}

func (m *MockDuelRepository) CountResolvedByUser(ctx context.Context, discordID int64) (int, error) {
	args := m.Called(ctx, discordID)
	return args.Int(0), args.Error(1)
}

func (m *MockDuelRepository) GetStats(ctx context.Context, discordID int64) (*models.WagerStats, error) {
	args := m.Called(ctx, discordID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.WagerStats), args.Error(1)
}

// MockParlayRepository is a mock implementation of ParlayRepository
type MockParlayRepository struct {
	mock.Mock
}

func (m *MockParlayRepository) CreateWithLegs(ctx context.Context, parlay *models.Parlay) error {
	args := m.Called(ctx, parlay)
	return args.Error(0)
}

func (m *MockParlayRepository) GetByID(ctx context.Context, id int64) (*models.Parlay, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Parlay), args.Error(1)
}

func (m *MockParlayRepository) GetActiveByMatch(ctx context.Context, matchID int64) ([]*models.Parlay, error) {
	args := m.Called(ctx, matchID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Parlay), args.Error(1)
}

func (m *MockParlayRepository) GetByUser(ctx context.Context, discordID int64, limit int) ([]*models.Parlay, error) {
	args := m.Called(ctx, discordID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Parlay), args.Error(1)
}

func (m *MockParlayRepository) GetRecentResolvedByUser(ctx context.Context, discordID int64, limit int) ([]*models.Parlay, error) {
	args := m.Called(ctx, discordID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Parlay), args.Error(1)
}

func (m *MockParlayRepository) CountByUser(ctx context.Context, discordID int64) (int, error) {
	args := m.Called(ctx, discordID)
	return args.Int(0), args.Error(1)
}

func (m *MockParlayRepository) ResolveActive(ctx context.Context, parlayID int64, status models.ParlayStatus, resolvedAt time.Time) (bool, error) {
	args := m.Called(ctx, parlayID, status, resolvedAt)
	return args.Bool(0), args.Error(1)
}

func (m *MockParlayRepository) GetStats(ctx context.Context, discordID int64) (*models.WagerStats, error) {
	args := m.Called(ctx, discordID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.WagerStats), args.Error(1)
}

// MockTournamentRepository is a mock implementation of TournamentRepository
type MockTournamentRepository struct {
	mock.Mock
}

func (m *MockTournamentRepository) Create(ctx context.Context, t *models.Tournament) error {
	args := m.Called(ctx, t)
	return args.Error(0)
}

func (m *MockTournamentRepository) GetByID(ctx context.Context, id int64) (*models.Tournament, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Tournament), args.Error(1)
}

func (m *MockTournamentRepository) GetCurrentByGuild(ctx context.Context, guildID int64) (*models.Tournament, error) {
	args := m.Called(ctx, guildID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Tournament), args.Error(1)
}

func (m *MockTournamentRepository) TransitionStatus(ctx context.Context, id int64, from, to models.TournamentStatus) (bool, error) {
	args := m.Called(ctx, id, from, to)
	return args.Bool(0), args.Error(1)
}

func (m *MockTournamentRepository) Join(ctx context.Context, tournamentID, discordID int64) error {
	args := m.Called(ctx, tournamentID, discordID)
	return args.Error(0)
}

func (m *MockTournamentRepository) GetParticipant(ctx context.Context, tournamentID, discordID int64) (*models.TournamentParticipant, error) {
	args := m.Called(ctx, tournamentID, discordID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.TournamentParticipant), args.Error(1)
}

func (m *MockTournamentRepository) ApplyResult(ctx context.Context, tournamentID, discordID int64, delta int64, kind string, won bool) error {
	args := m.Called(ctx, tournamentID, discordID, delta, kind, won)
	return args.Error(0)
}

func (m *MockTournamentRepository) GetStandings(ctx context.Context, tournamentID int64, limit int) ([]*models.TournamentParticipant, error) {
	args := m.Called(ctx, tournamentID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.TournamentParticipant), args.Error(1)
}

func (m *MockTournamentRepository) CountParticipants(ctx context.Context, tournamentID int64) (int, error) {
	args := m.Called(ctx, tournamentID)
	return args.Int(0), args.Error(1)
}

func (m *MockTournamentRepository) GetDueForTransition(ctx context.Context, now time.Time) ([]*models.Tournament, error) {
	args := m.Called(ctx, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Tournament), args.Error(1)
}

// MockTitleRepository is a mock implementation of TitleRepository
type MockTitleRepository struct {
	mock.Mock
}

func (m *MockTitleRepository) GetByKey(ctx context.Context, key string) (*models.Title, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Title), args.Error(1)
}

func (m *MockTitleRepository) Unlock(ctx context.Context, discordID int64, titleID int64) (bool, error) {
	args := m.Called(ctx, discordID, titleID)
	return args.Bool(0), args.Error(1)
}

func (m *MockTitleRepository) GetUnlockedKeys(ctx context.Context, discordID int64) ([]string, error) {
	args := m.Called(ctx, discordID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockTitleRepository) HasUnlocked(ctx context.Context, discordID int64, key string) (bool, error) {
	args := m.Called(ctx, discordID, key)
	return args.Bool(0), args.Error(1)
}

func (m *MockTitleRepository) SetDisplayedTitle(ctx context.Context, discordID int64, titleID *int64) error {
	args := m.Called(ctx, discordID, titleID)
	return args.Error(0)
}

func (m *MockTitleRepository) GetDisplayedTitle(ctx context.Context, discordID int64) (string, error) {
	args := m.Called(ctx, discordID)
	return args.String(0), args.Error(1)
}

// MockEventPublisher is a mock implementation of EventPublisher for testing
type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) Publish(event events.Event) {
	m.Called(event)
}

// MockTournamentLinker is a mock implementation of TournamentLinker
type MockTournamentLinker struct {
	mock.Mock
}

func (m *MockTournamentLinker) LinkWager(ctx context.Context, uow UnitOfWork, discordID int64, at time.Time) (*int64, error) {
	args := m.Called(ctx, uow, discordID, at)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*int64), args.Error(1)
}

func (m *MockTournamentLinker) LinkDuel(ctx context.Context, uow UnitOfWork, challengerID, opponentID int64, at time.Time) (*int64, error) {
	args := m.Called(ctx, uow, challengerID, opponentID, at)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*int64), args.Error(1)
}

func (m *MockTournamentLinker) MirrorResult(ctx context.Context, uow UnitOfWork, tournamentID, discordID int64, kind string, odds float64, won bool) error {
	args := m.Called(ctx, uow, tournamentID, discordID, kind, odds, won)
	return args.Error(0)
}

// MockStreakCounter is a mock implementation of StreakCounter
type MockStreakCounter struct {
	mock.Mock
}

func (m *MockStreakCounter) BetStreak(ctx context.Context, uow UnitOfWork, discordID int64) (int, error) {
	args := m.Called(ctx, uow, discordID)
	return args.Int(0), args.Error(1)
}

func (m *MockStreakCounter) DuelStreak(ctx context.Context, uow UnitOfWork, discordID int64) (int, error) {
	args := m.Called(ctx, uow, discordID)
	return args.Int(0), args.Error(1)
}

func (m *MockStreakCounter) ParlayStreak(ctx context.Context, uow UnitOfWork, discordID int64) (int, error) {
	args := m.Called(ctx, uow, discordID)
	return args.Int(0), args.Error(1)
}

// MockUnitOfWork is a mock implementation of UnitOfWork. Repositories are
// wired with SetRepositories so tests only configure what they touch.
type MockUnitOfWork struct {
	mock.Mock

	userRepo       UserRepository
	historyRepo    BalanceHistoryRepository
	matchRepo      MatchRepository
	betRepo        BetRepository
	duelRepo       DuelRepository
	parlayRepo     ParlayRepository
	tournamentRepo TournamentRepository
	titleRepo      TitleRepository
	eventBus       EventPublisher
}

// SetRepositories wires the mock repositories the test cares about. Nil
// entries stay nil and will panic if the code under test touches them.
func (m *MockUnitOfWork) SetRepositories(
	userRepo UserRepository,
	historyRepo BalanceHistoryRepository,
	matchRepo MatchRepository,
	betRepo BetRepository,
	duelRepo DuelRepository,
	parlayRepo ParlayRepository,
	tournamentRepo TournamentRepository,
	titleRepo TitleRepository,
	eventBus EventPublisher,
) {
	m.userRepo = userRepo
	m.historyRepo = historyRepo
	m.matchRepo = matchRepo
	m.betRepo = betRepo
	m.duelRepo = duelRepo
	m.parlayRepo = parlayRepo
	m.tournamentRepo = tournamentRepo
	m.titleRepo = titleRepo
	m.eventBus = eventBus
}

func (m *MockUnitOfWork) Begin(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockUnitOfWork) Commit() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockUnitOfWork) Rollback() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockUnitOfWork) UserRepository() UserRepository { return m.userRepo }

func (m *MockUnitOfWork) BalanceHistoryRepository() BalanceHistoryRepository { return m.historyRepo }

func (m *MockUnitOfWork) MatchRepository() MatchRepository { return m.matchRepo }

func (m *MockUnitOfWork) BetRepository() BetRepository { return m.betRepo }

func (m *MockUnitOfWork) DuelRepository() DuelRepository { return m.duelRepo }

func (m *MockUnitOfWork) ParlayRepository() ParlayRepository { return m.parlayRepo }

func (m *MockUnitOfWork) TournamentRepository() TournamentRepository { return m.tournamentRepo }

func (m *MockUnitOfWork) TitleRepository() TitleRepository { return m.titleRepo }

func (m *MockUnitOfWork) EventBus() EventPublisher { return m.eventBus }

// MockUnitOfWorkFactory is a mock implementation of UnitOfWorkFactory
type MockUnitOfWorkFactory struct {
	mock.Mock
}

func (m *MockUnitOfWorkFactory) Create() UnitOfWork {
	args := m.Called()
	return args.Get(0).(UnitOfWork)
}
