package repository

import (
	"context"
	"fmt"
	"time"

	"scrimbet/database"
	"scrimbet/models"

	"github.com/jackc/pgx/v5"
)

// TournamentRepository implements the service.TournamentRepository interface
type TournamentRepository struct {
	q queryable
}

// NewTournamentRepository creates a new tournament repository
func NewTournamentRepository(db *database.DB) *TournamentRepository {
	return &TournamentRepository{q: db.Pool}
}

// newTournamentRepositoryWithTx creates a new tournament repository with a transaction
func newTournamentRepositoryWithTx(tx queryable) *TournamentRepository {
	return &TournamentRepository{q: tx}
}

const tournamentColumns = `id, guild_id, name, status, virtual_stake, registration_ends_at, starts_at, ends_at, created_at`

func scanTournament(row pgx.Row) (*models.Tournament, error) {
	var t models.Tournament
	err := row.Scan(
		&t.ID,
		&t.GuildID,
		&t.Name,
		&t.Status,
		&t.VirtualStake,
		&t.RegistrationEndsAt,
		&t.StartsAt,
		&t.EndsAt,
		&t.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// Create creates a tournament in registration state
func (r *TournamentRepository) Create(ctx context.Context, t *models.Tournament) error {
	query := `
		INSERT INTO tournaments (guild_id, name, status, virtual_stake, registration_ends_at, starts_at, ends_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at
	`

	err := r.q.QueryRow(ctx, query,
		t.GuildID,
		t.Name,
		t.Status,
		t.VirtualStake,
		t.RegistrationEndsAt,
		t.StartsAt,
		t.EndsAt,
	).Scan(&t.ID, &t.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to create tournament: %w", err)
	}

	return nil
}

// GetByID retrieves a tournament by its ID
func (r *TournamentRepository) GetByID(ctx context.Context, id int64) (*models.Tournament, error) {
	query := `SELECT ` + tournamentColumns + ` FROM tournaments WHERE id = $1`

	t, err := scanTournament(r.q.QueryRow(ctx, query, id))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get tournament %d: %w", id, err)
	}

	return t, nil
}

// GetCurrentByGuild returns the guild's newest tournament that has not
// finished yet, or nil.
func (r *TournamentRepository) GetCurrentByGuild(ctx context.Context, guildID int64) (*models.Tournament, error) {
	query := `
		SELECT ` + tournamentColumns + `
		FROM tournaments
		WHERE guild_id = $1 AND status <> 'finished'
		ORDER BY created_at DESC
		LIMIT 1
	`

	t, err := scanTournament(r.q.QueryRow(ctx, query, guildID))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get current tournament for guild %d: %w", guildID, err)
	}

	return t, nil
}

// TransitionStatus advances a tournament's lifecycle exactly once
func (r *TournamentRepository) TransitionStatus(ctx context.Context, id int64, from, to models.TournamentStatus) (bool, error) {
	query := `
		UPDATE tournaments
		SET status = $1
		WHERE id = $2 AND status = $3
	`

	result, err := r.q.Exec(ctx, query, to, id, from)
	if err != nil {
		return false, fmt.Errorf("failed to transition tournament %d: %w", id, err)
	}

	return result.RowsAffected() > 0, nil
}

// Join registers a user as a participant. Re-joining is a no-op.
func (r *TournamentRepository) Join(ctx context.Context, tournamentID, discordID int64) error {
	query := `
		INSERT INTO tournament_participants (tournament_id, discord_id)
		VALUES ($1, $2)
		ON CONFLICT (tournament_id, discord_id) DO NOTHING
	`

	if _, err := r.q.Exec(ctx, query, tournamentID, discordID); err != nil {
		return fmt.Errorf("failed to join tournament %d: %w", tournamentID, err)
	}

	return nil
}

// GetParticipant returns a participant row, or nil when the user never joined
func (r *TournamentRepository) GetParticipant(ctx context.Context, tournamentID, discordID int64) (*models.TournamentParticipant, error) {
	query := `
		SELECT tournament_id, discord_id, points, bet_wins, bet_losses, duel_wins, duel_losses, parlay_wins, parlay_losses, joined_at
		FROM tournament_participants
		WHERE tournament_id = $1 AND discord_id = $2
	`

	var p models.TournamentParticipant
	err := r.q.QueryRow(ctx, query, tournamentID, discordID).Scan(
		&p.TournamentID,
		&p.DiscordID,
		&p.Points,
		&p.BetWins,
		&p.BetLosses,
		&p.DuelWins,
		&p.DuelLosses,
		&p.ParlayWins,
		&p.ParlayLosses,
		&p.JoinedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get participant %d/%d: %w", tournamentID, discordID, err)
	}

	return &p, nil
}

// ApplyResult mirrors one resolved wager into the participant's ladder:
// points move by delta and the per-kind win/loss counter bumps.
func (r *TournamentRepository) ApplyResult(ctx context.Context, tournamentID, discordID int64, delta int64, kind string, won bool) error {
	var counter string
	switch kind {
	case "bet":
		counter = "bet_wins"
		if !won {
			counter = "bet_losses"
		}
	case "duel":
		counter = "duel_wins"
		if !won {
			counter = "duel_losses"
		}
	case "parlay":
		counter = "parlay_wins"
		if !won {
			counter = "parlay_losses"
		}
	default:
		return fmt.Errorf("unknown wager kind %q", kind)
	}

	query := fmt.Sprintf(`
		UPDATE tournament_participants
		SET points = points + $1, %s = %s + 1
		WHERE tournament_id = $2 AND discord_id = $3
	`, counter, counter)

	result, err := r.q.Exec(ctx, query, delta, tournamentID, discordID)
	if err != nil {
		return fmt.Errorf("failed to apply result for participant %d/%d: %w", tournamentID, discordID, err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("participant %d/%d not found", tournamentID, discordID)
	}

	return nil
}

// GetStandings returns participants ordered by ladder points, best first
func (r *TournamentRepository) GetStandings(ctx context.Context, tournamentID int64, limit int) ([]*models.TournamentParticipant, error) {
	query := `
		SELECT tournament_id, discord_id, points, bet_wins, bet_losses, duel_wins, duel_losses, parlay_wins, parlay_losses, joined_at
		FROM tournament_participants
		WHERE tournament_id = $1
		ORDER BY points DESC, joined_at
		LIMIT $2
	`

	rows, err := r.q.Query(ctx, query, tournamentID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get standings for tournament %d: %w", tournamentID, err)
	}
	defer rows.Close()

	var standings []*models.TournamentParticipant
	for rows.Next() {
		var p models.TournamentParticipant
		err := rows.Scan(
			&p.TournamentID,
			&p.DiscordID,
			&p.Points,
			&p.BetWins,
			&p.BetLosses,
			&p.DuelWins,
			&p.DuelLosses,
			&p.ParlayWins,
			&p.ParlayLosses,
			&p.JoinedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan participant: %w", err)
		}
		standings = append(standings, &p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate standings: %w", err)
	}

	return standings, nil
}

// CountParticipants counts participants of a tournament
func (r *TournamentRepository) CountParticipants(ctx context.Context, tournamentID int64) (int, error) {
	var count int
	err := r.q.QueryRow(ctx, `SELECT COUNT(*) FROM tournament_participants WHERE tournament_id = $1`, tournamentID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count participants for tournament %d: %w", tournamentID, err)
	}

	return count, nil
}

// GetDueForTransition returns tournaments whose lazy status transition is
// overdue: registration windows that closed and active windows that ended.
func (r *TournamentRepository) GetDueForTransition(ctx context.Context, now time.Time) ([]*models.Tournament, error) {
	query := `
		SELECT ` + tournamentColumns + `
		FROM tournaments
		WHERE (status = 'registration' AND registration_ends_at <= $1)
		   OR (status = 'active' AND ends_at <= $1)
		ORDER BY id
	`

	rows, err := r.q.Query(ctx, query, now)
	if err != nil {
		return nil, fmt.Errorf("failed to get due tournaments: %w", err)
	}
	defer rows.Close()

	var due []*models.Tournament
	for rows.Next() {
		t, err := scanTournament(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan tournament: %w", err)
		}
		due = append(due, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate tournaments: %w", err)
	}

	return due, nil
}
