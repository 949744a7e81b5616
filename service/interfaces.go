package service

import (
	"context"
	"time"

	"scrimbet/events"
	"scrimbet/models"
)

// UserRepository defines user storage operations
type UserRepository interface {
	// GetByDiscordID retrieves a user by their Discord ID. Returns nil if not found.
	GetByDiscordID(ctx context.Context, discordID int64) (*models.User, error)

	// Create creates a new user with the given initial balance
	Create(ctx context.Context, discordID int64, username string, initialBalance int64) (*models.User, error)

	// AddBalance credits a user's balance
	AddBalance(ctx context.Context, discordID int64, amount int64) error

	// DeductBalance debits a user's balance. The decrement is conditional on
	// sufficient funds and returns models.ErrInsufficientFunds when it loses.
	DeductBalance(ctx context.Context, discordID int64, amount int64) error

	// GetTopByBalance returns the richest users, best first
	GetTopByBalance(ctx context.Context, limit int) ([]*models.User, error)
}

// BalanceHistoryRepository defines the balance audit trail operations
type BalanceHistoryRepository interface {
	Record(ctx context.Context, history *models.BalanceHistory) error
	GetByUser(ctx context.Context, discordID int64, limit int) ([]*models.BalanceHistory, error)
	SumAmountByType(ctx context.Context, discordID int64, transactionType models.TransactionType) (int64, error)
	MaxAmountByType(ctx context.Context, discordID int64, transactionType models.TransactionType) (int64, error)
	CountByTypeSince(ctx context.Context, discordID int64, transactionType models.TransactionType, since time.Time) (int, error)
}

// MatchRepository defines match storage operations
type MatchRepository interface {
	GetByID(ctx context.Context, id int64) (*models.Match, error)

	// GetFinishedAgainst returns finished matches versus the given opponent,
	// newest first, scheduled at or after since
	GetFinishedAgainst(ctx context.Context, opponent string, since time.Time, limit int) ([]*models.Match, error)

	GetUpcoming(ctx context.Context, limit int) ([]*models.Match, error)
	Create(ctx context.Context, match *models.Match) error
	MarkFinished(ctx context.Context, id int64, score string) error
}

// BetRepository defines straight-bet storage operations
type BetRepository interface {
	Create(ctx context.Context, bet *models.Bet) error
	GetByID(ctx context.Context, id int64) (*models.Bet, error)
	GetActiveByMatch(ctx context.Context, matchID int64) ([]*models.Bet, error)
	GetByUser(ctx context.Context, discordID int64, limit int) ([]*models.Bet, error)

	// GetRecentResolvedByUser returns won/lost bets, most recently resolved first
	GetRecentResolvedByUser(ctx context.Context, discordID int64, limit int) ([]*models.Bet, error)

	CountByUser(ctx context.Context, discordID int64) (int, error)

	// SumActiveByMatchSelection sums the active stake pooled on one side of a match
	SumActiveByMatchSelection(ctx context.Context, matchID int64, kind models.BetKind, selection string) (int64, error)

	// ResolveActive moves an active bet to a terminal status. Returns false
	// without error when the bet was not active, which makes settlement safe
	// to repeat.
	ResolveActive(ctx context.Context, betID int64, status models.BetStatus, resolvedAt time.Time) (bool, error)

	GetStats(ctx context.Context, discordID int64) (*models.WagerStats, error)
}

// DuelRepository defines duel storage operations
type DuelRepository interface {
	Create(ctx context.Context, duel *models.Duel) error
	GetByID(ctx context.Context, id int64) (*models.Duel, error)
	GetAcceptedByMatch(ctx context.Context, matchID int64) ([]*models.Duel, error)
	GetPendingByOpponent(ctx context.Context, opponentID int64) ([]*models.Duel, error)

	// AcceptPending moves a pending duel to accepted. Returns false when the
	// duel was not pending.
	AcceptPending(ctx context.Context, duelID int64, acceptedAt time.Time) (bool, error)

	// SetTournament stamps the tournament a duel counts toward
	SetTournament(ctx context.Context, duelID int64, tournamentID *int64) error

	// CancelPending cancels a pending duel. Returns false when the duel was
	// not pending.
	CancelPending(ctx context.Context, duelID int64) (bool, error)

	// ResolveAccepted settles an accepted duel. A nil winner records a
	// cancellation (draw). Returns false when the duel was not accepted.
	ResolveAccepted(ctx context.Context, duelID int64, winnerID *int64, resolvedAt time.Time) (bool, error)

	GetRecentResolvedByUser(ctx context.Context, discordID int64, limit int) ([]*models.Duel, error)
	CountResolvedByUser(ctx context.Context, discordID int64) (int, error)
	GetStats(ctx context.Context, discordID int64) (*models.WagerStats, error)
}

// ParlayRepository defines parlay storage operations
type ParlayRepository interface {
	// CreateWithLegs inserts the parlay and all of its legs
	CreateWithLegs(ctx context.Context, parlay *models.Parlay) error

	GetByID(ctx context.Context, id int64) (*models.Parlay, error)

	// GetActiveByMatch returns active parlays that carry at least one leg on
	// the given match, legs loaded
	GetActiveByMatch(ctx context.Context, matchID int64) ([]*models.Parlay, error)

	GetByUser(ctx context.Context, discordID int64, limit int) ([]*models.Parlay, error)
	GetRecentResolvedByUser(ctx context.Context, discordID int64, limit int) ([]*models.Parlay, error)
	CountByUser(ctx context.Context, discordID int64) (int, error)

	// ResolveActive moves an active parlay to a terminal status. Returns
	// false when the parlay was not active.
	ResolveActive(ctx context.Context, parlayID int64, status models.ParlayStatus, resolvedAt time.Time) (bool, error)

	GetStats(ctx context.Context, discordID int64) (*models.WagerStats, error)
}

// TournamentRepository defines tournament and ladder storage operations
type TournamentRepository interface {
	Create(ctx context.Context, t *models.Tournament) error
	GetByID(ctx context.Context, id int64) (*models.Tournament, error)

	// GetCurrentByGuild returns the newest non-finished tournament for a guild
	GetCurrentByGuild(ctx context.Context, guildID int64) (*models.Tournament, error)

	// TransitionStatus advances a tournament's lifecycle. Returns false when
	// the tournament was not in the expected state, so concurrent sweeps
	// cannot double-fire.
	TransitionStatus(ctx context.Context, id int64, from, to models.TournamentStatus) (bool, error)

	// Join registers a participant. Joining twice is a no-op.
	Join(ctx context.Context, tournamentID, discordID int64) error

	GetParticipant(ctx context.Context, tournamentID, discordID int64) (*models.TournamentParticipant, error)

	// ApplyResult adjusts a participant's points and bumps the win/loss
	// counter for the given wager kind (bet, duel or parlay)
	ApplyResult(ctx context.Context, tournamentID, discordID int64, delta int64, kind string, won bool) error

	GetStandings(ctx context.Context, tournamentID int64, limit int) ([]*models.TournamentParticipant, error)
	CountParticipants(ctx context.Context, tournamentID int64) (int, error)

	// GetDueForTransition returns tournaments whose lifecycle deadline has passed
	GetDueForTransition(ctx context.Context, now time.Time) ([]*models.Tournament, error)
}

// TitleRepository defines title and profile storage operations
type TitleRepository interface {
	GetByKey(ctx context.Context, key string) (*models.Title, error)

	// Unlock grants a title to a user. Returns true only when the grant is
	// new, false when the user already held it.
	Unlock(ctx context.Context, discordID int64, titleID int64) (bool, error)

	GetUnlockedKeys(ctx context.Context, discordID int64) ([]string, error)
	HasUnlocked(ctx context.Context, discordID int64, key string) (bool, error)
	SetDisplayedTitle(ctx context.Context, discordID int64, titleID *int64) error
	GetDisplayedTitle(ctx context.Context, discordID int64) (string, error)
}

// EventPublisher allows publishing events within a transaction. Published
// events are held until the transaction commits.
type EventPublisher interface {
	Publish(event events.Event)
}

// UnitOfWork represents a transactional boundary for repository operations
type UnitOfWork interface {
	// Begin starts the unit of work
	Begin(ctx context.Context) error

	// Commit commits the transaction and flushes staged events
	Commit() error

	// Rollback rolls back the transaction and discards staged events
	Rollback() error

	UserRepository() UserRepository
	BalanceHistoryRepository() BalanceHistoryRepository
	MatchRepository() MatchRepository
	BetRepository() BetRepository
	DuelRepository() DuelRepository
	ParlayRepository() ParlayRepository
	TournamentRepository() TournamentRepository
	TitleRepository() TitleRepository

	// EventBus returns the transactional event publisher
	EventBus() EventPublisher
}

// UnitOfWorkFactory creates units of work
type UnitOfWorkFactory interface {
	Create() UnitOfWork
}

// UserService defines user lifecycle operations
type UserService interface {
	// GetOrCreateUser fetches a user, creating them with the starting
	// balance on first touch
	GetOrCreateUser(ctx context.Context, discordID int64, username string) (*models.User, error)

	GetUser(ctx context.Context, discordID int64) (*models.User, error)
}

// BettingService defines straight-bet and parlay placement operations
type BettingService interface {
	// QuoteBet prices a prospective bet and opens a short-lived confirmation
	// flow. Nothing is debited until the quote is confirmed.
	QuoteBet(ctx context.Context, discordID, matchID int64, kind models.BetKind, selection string) (*BetQuote, error)

	// ConfirmBet places the bet quoted in the given flow. The price is
	// re-validated against the live market first.
	ConfirmBet(ctx context.Context, discordID int64, flowID string, amount int64) (*models.BetReceipt, error)

	// PlaceBet places a bet directly against a caller-supplied quoted price
	PlaceBet(ctx context.Context, discordID, matchID int64, kind models.BetKind, selection string, amount int64, quotedOdds float64) (*models.BetReceipt, error)

	QuoteParlay(ctx context.Context, discordID int64, legs []ParlayLegRequest) (*ParlayQuote, error)
	ConfirmParlay(ctx context.Context, discordID int64, flowID string, amount int64) (*models.ParlayReceipt, error)
}

// DuelService defines head-to-head duel lifecycle operations
type DuelService interface {
	Propose(ctx context.Context, challengerID, opponentID, matchID int64, challengerTeam string, amount int64) (*models.Duel, error)

	// Accept locks in a pending duel, escrowing both parties' stakes
	Accept(ctx context.Context, duelID, responderID int64) (*models.Duel, error)

	Decline(ctx context.Context, duelID, responderID int64) error
	Cancel(ctx context.Context, duelID, challengerID int64) error
	PendingFor(ctx context.Context, opponentID int64) ([]*models.Duel, error)
}

// SettlementService settles every open wager on a finished match
type SettlementService interface {
	SettleMatch(ctx context.Context, matchID int64) (*SettlementSummary, error)
}

// MatchService defines match scheduling and result entry
type MatchService interface {
	ScheduleMatch(ctx context.Context, opponent string, numberOfGames int, scheduledAt time.Time) (*models.Match, error)

	// FinishMatch records the final score and settles all open wagers on the match
	FinishMatch(ctx context.Context, matchID int64, score string) (*SettlementSummary, error)

	GetUpcoming(ctx context.Context, limit int) ([]*models.Match, error)
	GetMatch(ctx context.Context, matchID int64) (*models.Match, error)
}

// TournamentService defines tournament lifecycle and ladder operations
type TournamentService interface {
	CreateTournament(ctx context.Context, guildID int64, name string, virtualStake int64, registrationEndsAt, startsAt, endsAt time.Time) (*models.Tournament, error)

	// Join registers the user in the guild's current tournament while
	// registration is open
	Join(ctx context.Context, guildID, discordID int64) (*models.Tournament, error)

	// Current returns the guild's current tournament after applying any due
	// lifecycle transitions. Returns nil when no tournament is running.
	Current(ctx context.Context, guildID int64) (*models.Tournament, error)

	Standings(ctx context.Context, guildID int64, limit int) (*models.Tournament, []*models.TournamentParticipant, error)

	// TransitionDue advances every tournament whose lifecycle deadline has
	// passed. Called periodically by the background sweeper.
	TransitionDue(ctx context.Context) error
}

// TournamentLinker stamps wagers with the tournament they count toward and
// mirrors settled results onto the ladder. Kept separate from
// TournamentService so the betting and settlement paths depend only on this
// narrow surface.
type TournamentLinker interface {
	// LinkWager returns the tournament a new wager should count toward, or
	// nil when the user is not competing right now
	LinkWager(ctx context.Context, uow UnitOfWork, discordID int64, at time.Time) (*int64, error)

	// LinkDuel links a duel only when both parties are competing in the same
	// tournament
	LinkDuel(ctx context.Context, uow UnitOfWork, challengerID, opponentID int64, at time.Time) (*int64, error)

	// MirrorResult applies a settled wager to the ladder at the tournament's
	// virtual stake. Odds are ignored for duels, which pay flat.
	MirrorResult(ctx context.Context, uow UnitOfWork, tournamentID, discordID int64, kind string, odds float64, won bool) error
}

// EconomyService defines daily claims and transfers
type EconomyService interface {
	ClaimDaily(ctx context.Context, discordID int64) (*DailyClaimResult, error)
	Transfer(ctx context.Context, fromID, toID int64, amount int64) (*models.TransferResult, error)
}

// StatsService defines read-only statistics operations
type StatsService interface {
	GetUserStats(ctx context.Context, discordID int64) (*models.UserStats, error)
	GetScoreboard(ctx context.Context, limit int) ([]*models.ScoreboardEntry, error)
}

// AchievementService evaluates title predicates off the event stream
type AchievementService interface {
	// Register subscribes the evaluator to every event type it cares about
	Register(bus *events.Bus)

	UnlockedTitles(ctx context.Context, discordID int64) ([]string, error)
	SetDisplayedTitle(ctx context.Context, discordID int64, titleKey string) error
}

// StreakCounter computes a user's current consecutive-win run per wager
// kind. Isolated behind an interface so milestone evaluation can be tested
// without replaying full histories.
type StreakCounter interface {
	BetStreak(ctx context.Context, uow UnitOfWork, discordID int64) (int, error)
	DuelStreak(ctx context.Context, uow UnitOfWork, discordID int64) (int, error)
	ParlayStreak(ctx context.Context, uow UnitOfWork, discordID int64) (int, error)
}
