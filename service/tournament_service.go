package service

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"scrimbet/config"
	"scrimbet/events"
	"scrimbet/models"
)

// TournamentManager implements both TournamentService and TournamentLinker.
// Lifecycle transitions are applied lazily whenever a tournament is read and
// by the background sweeper, whichever comes first; the guarded status
// update keeps the two from double-firing.
type TournamentManager struct {
	uowFactory UnitOfWorkFactory
	now        func() time.Time
}

// NewTournamentManager creates a new tournament manager
func NewTournamentManager(uowFactory UnitOfWorkFactory) *TournamentManager {
	return &TournamentManager{
		uowFactory: uowFactory,
		now:        time.Now,
	}
}

// CreateTournament opens a new tournament in its registration phase. A guild
// runs at most one tournament at a time.
func (m *TournamentManager) CreateTournament(ctx context.Context, guildID int64, name string, virtualStake int64, registrationEndsAt, startsAt, endsAt time.Time) (*models.Tournament, error) {
	if name == "" {
		return nil, fmt.Errorf("tournament name is required")
	}
	if virtualStake <= 0 {
		return nil, fmt.Errorf("virtual stake must be positive")
	}
	if !startsAt.Before(endsAt) {
		return nil, fmt.Errorf("tournament must end after it starts")
	}
	if registrationEndsAt.After(startsAt) {
		return nil, fmt.Errorf("registration must close before the tournament starts")
	}

	uow := m.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback() // No-op if already committed

	existing, err := uow.TournamentRepository().GetCurrentByGuild(ctx, guildID)
	if err != nil {
		return nil, fmt.Errorf("failed to check current tournament: %w", err)
	}
	if existing != nil {
		return nil, fmt.Errorf("guild %d already has a running tournament (%s)", guildID, existing.Name)
	}

	tournament := &models.Tournament{
		GuildID:            guildID,
		Name:               name,
		Status:             models.TournamentStatusRegistration,
		VirtualStake:       virtualStake,
		RegistrationEndsAt: registrationEndsAt,
		StartsAt:           startsAt,
		EndsAt:             endsAt,
	}
	if err := uow.TournamentRepository().Create(ctx, tournament); err != nil {
		return nil, fmt.Errorf("failed to create tournament: %w", err)
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.WithFields(log.Fields{
		"tournamentID": tournament.ID,
		"guildID":      guildID,
		"name":         name,
		"virtualStake": virtualStake,
	}).Info("Tournament created")
	return tournament, nil
}

// Join registers the user in the guild's current tournament while
// registration is open. Joining twice is harmless.
func (m *TournamentManager) Join(ctx context.Context, guildID, discordID int64) (*models.Tournament, error) {
	uow := m.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	tournament, err := m.currentSynced(ctx, uow, guildID)
	if err != nil {
		return nil, err
	}
	if tournament == nil {
		return nil, fmt.Errorf("no tournament is open in guild %d", guildID)
	}
	if tournament.Status != models.TournamentStatusRegistration {
		return nil, fmt.Errorf("registration for %s is closed", tournament.Name)
	}

	if err := uow.TournamentRepository().Join(ctx, tournament.ID, discordID); err != nil {
		return nil, fmt.Errorf("failed to join tournament: %w", err)
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return tournament, nil
}

// Current returns the guild's current tournament after applying any due
// lifecycle transitions
func (m *TournamentManager) Current(ctx context.Context, guildID int64) (*models.Tournament, error) {
	uow := m.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	tournament, err := m.currentSynced(ctx, uow, guildID)
	if err != nil {
		return nil, err
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return tournament, nil
}

// Standings returns the guild's current tournament and its top participants
func (m *TournamentManager) Standings(ctx context.Context, guildID int64, limit int) (*models.Tournament, []*models.TournamentParticipant, error) {
	uow := m.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	tournament, err := m.currentSynced(ctx, uow, guildID)
	if err != nil {
		return nil, nil, err
	}
	if tournament == nil {
		return nil, nil, fmt.Errorf("no tournament is open in guild %d", guildID)
	}

	standings, err := uow.TournamentRepository().GetStandings(ctx, tournament.ID, limit)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get standings: %w", err)
	}

	if err := uow.Commit(); err != nil {
		return nil, nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return tournament, standings, nil
}

// TransitionDue advances every tournament whose lifecycle deadline has passed
func (m *TournamentManager) TransitionDue(ctx context.Context) error {
	uow := m.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	due, err := uow.TournamentRepository().GetDueForTransition(ctx, m.now())
	if err != nil {
		return fmt.Errorf("failed to find due tournaments: %w", err)
	}
	for _, tournament := range due {
		if _, err := m.syncLifecycle(ctx, uow, tournament); err != nil {
			return err
		}
	}

	return uow.Commit()
}

// currentSynced fetches the guild's newest open tournament and applies any
// due lifecycle transitions inside the caller's transaction
func (m *TournamentManager) currentSynced(ctx context.Context, uow UnitOfWork, guildID int64) (*models.Tournament, error) {
	tournament, err := uow.TournamentRepository().GetCurrentByGuild(ctx, guildID)
	if err != nil {
		return nil, fmt.Errorf("failed to get current tournament: %w", err)
	}
	if tournament == nil {
		return nil, nil
	}
	return m.syncLifecycle(ctx, uow, tournament)
}

func (m *TournamentManager) syncLifecycle(ctx context.Context, uow UnitOfWork, tournament *models.Tournament) (*models.Tournament, error) {
	now := m.now()

	if tournament.Status == models.TournamentStatusRegistration && !now.Before(tournament.RegistrationEndsAt) {
		moved, err := uow.TournamentRepository().TransitionStatus(ctx, tournament.ID, models.TournamentStatusRegistration, models.TournamentStatusActive)
		if err != nil {
			return nil, fmt.Errorf("failed to activate tournament: %w", err)
		}
		if moved {
			log.WithField("tournamentID", tournament.ID).Info("Tournament registration closed")
		}
		tournament.Status = models.TournamentStatusActive
	}

	if tournament.Status == models.TournamentStatusActive && now.After(tournament.EndsAt) {
		moved, err := uow.TournamentRepository().TransitionStatus(ctx, tournament.ID, models.TournamentStatusActive, models.TournamentStatusFinished)
		if err != nil {
			return nil, fmt.Errorf("failed to finish tournament: %w", err)
		}
		tournament.Status = models.TournamentStatusFinished
		if moved {
			// This run won the guarded update, so it alone announces the result
			if err := m.announceFinish(ctx, uow, tournament); err != nil {
				return nil, err
			}
		}
	}

	return tournament, nil
}

func (m *TournamentManager) announceFinish(ctx context.Context, uow UnitOfWork, tournament *models.Tournament) error {
	standings, err := uow.TournamentRepository().GetStandings(ctx, tournament.ID, 3)
	if err != nil {
		return fmt.Errorf("failed to get final standings: %w", err)
	}
	count, err := uow.TournamentRepository().CountParticipants(ctx, tournament.ID)
	if err != nil {
		return fmt.Errorf("failed to count participants: %w", err)
	}

	podium := make([]int64, 0, len(standings))
	for _, p := range standings {
		podium = append(podium, p.DiscordID)
	}

	uow.EventBus().Publish(events.TournamentFinishedEvent{
		TournamentID:     tournament.ID,
		GuildID:          tournament.GuildID,
		ParticipantCount: count,
		Podium:           podium,
	})

	log.WithFields(log.Fields{
		"tournamentID": tournament.ID,
		"participants": count,
	}).Info("Tournament finished")
	return nil
}

// LinkWager returns the tournament a new wager should count toward: the
// user must be registered in the guild's active tournament and the wager
// must fall inside its window
func (m *TournamentManager) LinkWager(ctx context.Context, uow UnitOfWork, discordID int64, at time.Time) (*int64, error) {
	return m.link(ctx, uow, at, discordID)
}

// LinkDuel links a duel only when both parties compete in the same tournament
func (m *TournamentManager) LinkDuel(ctx context.Context, uow UnitOfWork, challengerID, opponentID int64, at time.Time) (*int64, error) {
	return m.link(ctx, uow, at, challengerID, opponentID)
}

func (m *TournamentManager) link(ctx context.Context, uow UnitOfWork, at time.Time, discordIDs ...int64) (*int64, error) {
	tournament, err := m.currentSynced(ctx, uow, config.Get().GuildID())
	if err != nil {
		return nil, err
	}
	if tournament == nil || tournament.Status != models.TournamentStatusActive || !tournament.Covers(at) {
		return nil, nil
	}

	for _, discordID := range discordIDs {
		participant, err := uow.TournamentRepository().GetParticipant(ctx, tournament.ID, discordID)
		if err != nil {
			return nil, fmt.Errorf("failed to get participant: %w", err)
		}
		if participant == nil {
			return nil, nil
		}
	}
	return &tournament.ID, nil
}

// MirrorResult applies a settled wager to the ladder at the tournament's
// fixed virtual stake. Wins on priced wagers score the virtual profit at
// the frozen odds; duels pay the virtual stake flat.
func (m *TournamentManager) MirrorResult(ctx context.Context, uow UnitOfWork, tournamentID, discordID int64, kind string, odds float64, won bool) error {
	tournament, err := uow.TournamentRepository().GetByID(ctx, tournamentID)
	if err != nil {
		return fmt.Errorf("failed to get tournament: %w", err)
	}
	if tournament == nil {
		return fmt.Errorf("tournament %d not found", tournamentID)
	}

	var delta int64
	switch {
	case !won:
		delta = -tournament.VirtualStake
	case kind == "duel":
		delta = tournament.VirtualStake
	default:
		delta = models.FloorPayout(tournament.VirtualStake, odds-1)
	}

	if err := uow.TournamentRepository().ApplyResult(ctx, tournamentID, discordID, delta, kind, won); err != nil {
		return fmt.Errorf("failed to apply tournament result: %w", err)
	}
	return nil
}
