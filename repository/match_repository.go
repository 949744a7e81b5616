package repository

import (
	"context"
	"fmt"
	"time"

	"scrimbet/database"
	"scrimbet/models"

	"github.com/jackc/pgx/v5"
)

// MatchRepository implements the service.MatchRepository interface. The
// betting core treats matches as read-only; Create and MarkFinished exist
// for the ingestion pipeline and for tests.
type MatchRepository struct {
	q queryable
}

// NewMatchRepository creates a new match repository
func NewMatchRepository(db *database.DB) *MatchRepository {
	return &MatchRepository{q: db.Pool}
}

// newMatchRepositoryWithTx creates a new match repository with a transaction
func newMatchRepositoryWithTx(tx queryable) *MatchRepository {
	return &MatchRepository{q: tx}
}

const matchColumns = `id, team_a, team_b, number_of_games, status, score, scheduled_at, created_at, updated_at`

func scanMatch(row pgx.Row) (*models.Match, error) {
	var m models.Match
	err := row.Scan(
		&m.ID,
		&m.TeamA,
		&m.TeamB,
		&m.NumberOfGames,
		&m.Status,
		&m.Score,
		&m.ScheduledAt,
		&m.CreatedAt,
		&m.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// GetByID retrieves a match by its ID
func (r *MatchRepository) GetByID(ctx context.Context, id int64) (*models.Match, error) {
	query := `SELECT ` + matchColumns + ` FROM matches WHERE id = $1`

	match, err := scanMatch(r.q.QueryRow(ctx, query, id))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get match %d: %w", id, err)
	}

	return match, nil
}

// GetFinishedAgainst returns finished matches against the named opponent,
// newest first, within the lookback window. Callers pass the cap they need;
// the odds engine applies its own tighter windows on top.
func (r *MatchRepository) GetFinishedAgainst(ctx context.Context, opponent string, since time.Time, limit int) ([]*models.Match, error) {
	query := `
		SELECT ` + matchColumns + `
		FROM matches
		WHERE team_b = $1 AND status = 'finished' AND score IS NOT NULL AND scheduled_at >= $2
		ORDER BY scheduled_at DESC
		LIMIT $3
	`

	rows, err := r.q.Query(ctx, query, opponent, since, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get history against %s: %w", opponent, err)
	}
	defer rows.Close()

	var matches []*models.Match
	for rows.Next() {
		match, err := scanMatch(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan match: %w", err)
		}
		matches = append(matches, match)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate matches: %w", err)
	}

	return matches, nil
}

// GetUpcoming returns not-yet-started matches, soonest first
func (r *MatchRepository) GetUpcoming(ctx context.Context, limit int) ([]*models.Match, error) {
	query := `
		SELECT ` + matchColumns + `
		FROM matches
		WHERE status = 'not_started' AND scheduled_at > NOW()
		ORDER BY scheduled_at
		LIMIT $1
	`

	rows, err := r.q.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get upcoming matches: %w", err)
	}
	defer rows.Close()

	var matches []*models.Match
	for rows.Next() {
		match, err := scanMatch(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan match: %w", err)
		}
		matches = append(matches, match)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate matches: %w", err)
	}

	return matches, nil
}

// Create inserts a match row. Used by the ingestion collaborator and tests.
func (r *MatchRepository) Create(ctx context.Context, match *models.Match) error {
	query := `
		INSERT INTO matches (team_a, team_b, number_of_games, status, score, scheduled_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at
	`

	err := r.q.QueryRow(ctx, query,
		match.TeamA,
		match.TeamB,
		match.NumberOfGames,
		match.Status,
		match.Score,
		match.ScheduledAt,
	).Scan(&match.ID, &match.CreatedAt, &match.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to create match: %w", err)
	}

	return nil
}

// MarkFinished records a final score and flips the match to finished.
// Used by the ingestion collaborator and tests.
func (r *MatchRepository) MarkFinished(ctx context.Context, id int64, score string) error {
	query := `
		UPDATE matches
		SET status = 'finished', score = $1, updated_at = NOW()
		WHERE id = $2
	`

	result, err := r.q.Exec(ctx, query, score, id)
	if err != nil {
		return fmt.Errorf("failed to mark match %d finished: %w", id, err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("match %d not found", id)
	}

	return nil
}
