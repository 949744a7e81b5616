package repository

import (
	"context"
	"fmt"
	"time"

	"scrimbet/database"
	"scrimbet/models"

	"github.com/jackc/pgx/v5"
)

// DuelRepository implements the service.DuelRepository interface
type DuelRepository struct {
	q queryable
}

// NewDuelRepository creates a new duel repository
func NewDuelRepository(db *database.DB) *DuelRepository {
	return &DuelRepository{q: db.Pool}
}

// newDuelRepositoryWithTx creates a new duel repository with a transaction
func newDuelRepositoryWithTx(tx queryable) *DuelRepository {
	return &DuelRepository{q: tx}
}

const duelColumns = `id, match_id, challenger_id, opponent_id, challenger_team, opponent_team, amount, status, winner_id, tournament_id, created_at, accepted_at, resolved_at`

func scanDuel(row pgx.Row) (*models.Duel, error) {
	var d models.Duel
	err := row.Scan(
		&d.ID,
		&d.MatchID,
		&d.ChallengerID,
		&d.OpponentID,
		&d.ChallengerTeam,
		&d.OpponentTeam,
		&d.Amount,
		&d.Status,
		&d.WinnerID,
		&d.TournamentID,
		&d.CreatedAt,
		&d.AcceptedAt,
		&d.ResolvedAt,
	)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// Create creates a new pending duel
func (r *DuelRepository) Create(ctx context.Context, duel *models.Duel) error {
	query := `
		INSERT INTO duels (match_id, challenger_id, opponent_id, challenger_team, opponent_team, amount, status, tournament_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at
	`

	err := r.q.QueryRow(ctx, query,
		duel.MatchID,
		duel.ChallengerID,
		duel.OpponentID,
		duel.ChallengerTeam,
		duel.OpponentTeam,
		duel.Amount,
		duel.Status,
		duel.TournamentID,
	).Scan(&duel.ID, &duel.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to create duel: %w", err)
	}

	return nil
}

// GetByID retrieves a duel by its ID
func (r *DuelRepository) GetByID(ctx context.Context, id int64) (*models.Duel, error) {
	query := `SELECT ` + duelColumns + ` FROM duels WHERE id = $1`

	duel, err := scanDuel(r.q.QueryRow(ctx, query, id))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get duel %d: %w", id, err)
	}

	return duel, nil
}

// GetAcceptedByMatch returns every accepted duel awaiting settlement on a match
func (r *DuelRepository) GetAcceptedByMatch(ctx context.Context, matchID int64) ([]*models.Duel, error) {
	query := `
		SELECT ` + duelColumns + `
		FROM duels
		WHERE match_id = $1 AND status = 'accepted'
		ORDER BY id
	`

	rows, err := r.q.Query(ctx, query, matchID)
	if err != nil {
		return nil, fmt.Errorf("failed to get accepted duels for match %d: %w", matchID, err)
	}
	defer rows.Close()

	var duels []*models.Duel
	for rows.Next() {
		duel, err := scanDuel(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan duel: %w", err)
		}
		duels = append(duels, duel)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate duels: %w", err)
	}

	return duels, nil
}

// GetPendingByOpponent returns open challenges awaiting the user's response
func (r *DuelRepository) GetPendingByOpponent(ctx context.Context, opponentID int64) ([]*models.Duel, error) {
	query := `
		SELECT ` + duelColumns + `
		FROM duels
		WHERE opponent_id = $1 AND status = 'pending'
		ORDER BY created_at DESC
	`

	rows, err := r.q.Query(ctx, query, opponentID)
	if err != nil {
		return nil, fmt.Errorf("failed to get pending duels for user %d: %w", opponentID, err)
	}
	defer rows.Close()

	var duels []*models.Duel
	for rows.Next() {
		duel, err := scanDuel(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan duel: %w", err)
		}
		duels = append(duels, duel)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate duels: %w", err)
	}

	return duels, nil
}

// AcceptPending flips a pending duel to accepted exactly once
func (r *DuelRepository) AcceptPending(ctx context.Context, duelID int64, acceptedAt time.Time) (bool, error) {
	query := `
		UPDATE duels
		SET status = 'accepted', accepted_at = $1
		WHERE id = $2 AND status = 'pending'
	`

	result, err := r.q.Exec(ctx, query, acceptedAt, duelID)
	if err != nil {
		return false, fmt.Errorf("failed to accept duel %d: %w", duelID, err)
	}

	return result.RowsAffected() > 0, nil
}

// SetTournament stamps the tournament a duel counts toward
func (r *DuelRepository) SetTournament(ctx context.Context, duelID int64, tournamentID *int64) error {
	query := `UPDATE duels SET tournament_id = $1 WHERE id = $2`

	if _, err := r.q.Exec(ctx, query, tournamentID, duelID); err != nil {
		return fmt.Errorf("failed to set tournament for duel %d: %w", duelID, err)
	}
	return nil
}

// CancelPending flips a pending duel to cancelled exactly once
func (r *DuelRepository) CancelPending(ctx context.Context, duelID int64) (bool, error) {
	query := `
		UPDATE duels
		SET status = 'cancelled', resolved_at = NOW()
		WHERE id = $1 AND status = 'pending'
	`

	result, err := r.q.Exec(ctx, query, duelID)
	if err != nil {
		return false, fmt.Errorf("failed to cancel duel %d: %w", duelID, err)
	}

	return result.RowsAffected() > 0, nil
}

// ResolveAccepted settles an accepted duel exactly once. A nil winner marks
// a drawn match: the duel is cancelled rather than resolved.
func (r *DuelRepository) ResolveAccepted(ctx context.Context, duelID int64, winnerID *int64, resolvedAt time.Time) (bool, error) {
	status := models.DuelStatusResolved
	if winnerID == nil {
		status = models.DuelStatusCancelled
	}

	query := `
		UPDATE duels
		SET status = $1, winner_id = $2, resolved_at = $3
		WHERE id = $4 AND status = 'accepted'
	`

	result, err := r.q.Exec(ctx, query, status, winnerID, resolvedAt, duelID)
	if err != nil {
		return false, fmt.Errorf("failed to resolve duel %d: %w", duelID, err)
	}

	return result.RowsAffected() > 0, nil
}

// GetRecentResolvedByUser returns resolved duels involving the user, newest
// first, for the streak scan.
func (r *DuelRepository) GetRecentResolvedByUser(ctx context.Context, discordID int64, limit int) ([]*models.Duel, error) {
	query := `
		SELECT ` + duelColumns + `
		FROM duels
		WHERE (challenger_id = $1 OR opponent_id = $1) AND status = 'resolved'
		ORDER BY resolved_at DESC
		LIMIT $2
	`

	rows, err := r.q.Query(ctx, query, discordID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get resolved duels for user %d: %w", discordID, err)
	}
	defer rows.Close()

	var duels []*models.Duel
	for rows.Next() {
		duel, err := scanDuel(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan duel: %w", err)
		}
		duels = append(duels, duel)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate duels: %w", err)
	}

	return duels, nil
}

// CountResolvedByUser counts resolved duels the user took part in
func (r *DuelRepository) CountResolvedByUser(ctx context.Context, discordID int64) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM duels
		WHERE (challenger_id = $1 OR opponent_id = $1) AND status = 'resolved'
	`

	var count int
	if err := r.q.QueryRow(ctx, query, discordID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count duels for user %d: %w", discordID, err)
	}

	return count, nil
}

// GetStats returns a user's duel record
func (r *DuelRepository) GetStats(ctx context.Context, discordID int64) (*models.WagerStats, error) {
	query := `
		SELECT
			COUNT(*) FILTER (WHERE status IN ('resolved', 'cancelled') AND accepted_at IS NOT NULL),
			COUNT(*) FILTER (WHERE status = 'resolved' AND winner_id = $1),
			COUNT(*) FILTER (WHERE status = 'resolved' AND winner_id IS NOT NULL AND winner_id <> $1),
			COUNT(*) FILTER (WHERE status = 'cancelled' AND accepted_at IS NOT NULL)
		FROM duels
		WHERE challenger_id = $1 OR opponent_id = $1
	`

	var stats models.WagerStats
	err := r.q.QueryRow(ctx, query, discordID).Scan(&stats.Total, &stats.Won, &stats.Lost, &stats.Pushed)
	if err != nil {
		return nil, fmt.Errorf("failed to get duel stats for user %d: %w", discordID, err)
	}

	return &stats, nil
}
