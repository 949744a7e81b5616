package repository

import (
	"context"
	"fmt"
	"time"

	"scrimbet/database"
	"scrimbet/models"

	"github.com/jackc/pgx/v5"
)

// ParlayRepository implements the service.ParlayRepository interface
type ParlayRepository struct {
	q queryable
}

// NewParlayRepository creates a new parlay repository
func NewParlayRepository(db *database.DB) *ParlayRepository {
	return &ParlayRepository{q: db.Pool}
}

// newParlayRepositoryWithTx creates a new parlay repository with a transaction
func newParlayRepositoryWithTx(tx queryable) *ParlayRepository {
	return &ParlayRepository{q: tx}
}

const parlayColumns = `id, discord_id, amount, total_odds, status, tournament_id, created_at, resolved_at`

func scanParlay(row pgx.Row) (*models.Parlay, error) {
	var p models.Parlay
	err := row.Scan(
		&p.ID,
		&p.DiscordID,
		&p.Amount,
		&p.TotalOdds,
		&p.Status,
		&p.TournamentID,
		&p.CreatedAt,
		&p.ResolvedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// CreateWithLegs inserts a parlay and all of its legs. Callers run this
// inside a unit of work so the debit, the parlay and the legs commit
// together or not at all.
func (r *ParlayRepository) CreateWithLegs(ctx context.Context, parlay *models.Parlay) error {
	query := `
		INSERT INTO parlays (discord_id, amount, total_odds, status, tournament_id)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`

	err := r.q.QueryRow(ctx, query,
		parlay.DiscordID,
		parlay.Amount,
		parlay.TotalOdds,
		parlay.Status,
		parlay.TournamentID,
	).Scan(&parlay.ID, &parlay.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create parlay: %w", err)
	}

	legQuery := `
		INSERT INTO parlay_legs (parlay_id, match_id, kind, selection, odds)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`

	for _, leg := range parlay.Legs {
		leg.ParlayID = parlay.ID
		err := r.q.QueryRow(ctx, legQuery, leg.ParlayID, leg.MatchID, leg.Kind, leg.Selection, leg.Odds).Scan(&leg.ID)
		if err != nil {
			return fmt.Errorf("failed to create parlay leg: %w", err)
		}
	}

	return nil
}

func (r *ParlayRepository) loadLegs(ctx context.Context, parlays []*models.Parlay) error {
	if len(parlays) == 0 {
		return nil
	}

	byID := make(map[int64]*models.Parlay, len(parlays))
	ids := make([]int64, 0, len(parlays))
	for _, p := range parlays {
		byID[p.ID] = p
		ids = append(ids, p.ID)
	}

	query := `
		SELECT id, parlay_id, match_id, kind, selection, odds
		FROM parlay_legs
		WHERE parlay_id = ANY($1)
		ORDER BY id
	`

	rows, err := r.q.Query(ctx, query, ids)
	if err != nil {
		return fmt.Errorf("failed to load parlay legs: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var leg models.ParlayLeg
		if err := rows.Scan(&leg.ID, &leg.ParlayID, &leg.MatchID, &leg.Kind, &leg.Selection, &leg.Odds); err != nil {
			return fmt.Errorf("failed to scan parlay leg: %w", err)
		}
		if parent, ok := byID[leg.ParlayID]; ok {
			parent.Legs = append(parent.Legs, &leg)
		}
	}

	return rows.Err()
}

// GetByID retrieves a parlay and its legs
func (r *ParlayRepository) GetByID(ctx context.Context, id int64) (*models.Parlay, error) {
	query := `SELECT ` + parlayColumns + ` FROM parlays WHERE id = $1`

	parlay, err := scanParlay(r.q.QueryRow(ctx, query, id))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get parlay %d: %w", id, err)
	}

	if err := r.loadLegs(ctx, []*models.Parlay{parlay}); err != nil {
		return nil, err
	}

	return parlay, nil
}

// GetActiveByMatch returns every active parlay with at least one leg on the
// given match, legs loaded.
func (r *ParlayRepository) GetActiveByMatch(ctx context.Context, matchID int64) ([]*models.Parlay, error) {
	query := `
		SELECT DISTINCT p.id, p.discord_id, p.amount, p.total_odds, p.status, p.tournament_id, p.created_at, p.resolved_at
		FROM parlays p
		JOIN parlay_legs l ON l.parlay_id = p.id
		WHERE l.match_id = $1 AND p.status = 'active'
		ORDER BY p.id
	`

	rows, err := r.q.Query(ctx, query, matchID)
	if err != nil {
		return nil, fmt.Errorf("failed to get active parlays for match %d: %w", matchID, err)
	}
	defer rows.Close()

	var parlays []*models.Parlay
	for rows.Next() {
		parlay, err := scanParlay(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan parlay: %w", err)
		}
		parlays = append(parlays, parlay)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate parlays: %w", err)
	}

	if err := r.loadLegs(ctx, parlays); err != nil {
		return nil, err
	}

	return parlays, nil
}

// GetByUser returns a user's parlays, newest first, legs loaded
func (r *ParlayRepository) GetByUser(ctx context.Context, discordID int64, limit int) ([]*models.Parlay, error) {
	query := `
		SELECT ` + parlayColumns + `
		FROM parlays
		WHERE discord_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := r.q.Query(ctx, query, discordID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get parlays for user %d: %w", discordID, err)
	}
	defer rows.Close()

	var parlays []*models.Parlay
	for rows.Next() {
		parlay, err := scanParlay(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan parlay: %w", err)
		}
		parlays = append(parlays, parlay)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate parlays: %w", err)
	}

	if err := r.loadLegs(ctx, parlays); err != nil {
		return nil, err
	}

	return parlays, nil
}

// GetRecentResolvedByUser returns terminal parlays newest first, for the streak scan
func (r *ParlayRepository) GetRecentResolvedByUser(ctx context.Context, discordID int64, limit int) ([]*models.Parlay, error) {
	query := `
		SELECT ` + parlayColumns + `
		FROM parlays
		WHERE discord_id = $1 AND status IN ('won', 'lost')
		ORDER BY resolved_at DESC
		LIMIT $2
	`

	rows, err := r.q.Query(ctx, query, discordID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get resolved parlays for user %d: %w", discordID, err)
	}
	defer rows.Close()

	var parlays []*models.Parlay
	for rows.Next() {
		parlay, err := scanParlay(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan parlay: %w", err)
		}
		parlays = append(parlays, parlay)
	}

	return parlays, rows.Err()
}

// CountByUser counts all parlays the user ever placed
func (r *ParlayRepository) CountByUser(ctx context.Context, discordID int64) (int, error) {
	var count int
	err := r.q.QueryRow(ctx, `SELECT COUNT(*) FROM parlays WHERE discord_id = $1`, discordID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count parlays for user %d: %w", discordID, err)
	}

	return count, nil
}

// ResolveActive transitions a parlay out of active exactly once
func (r *ParlayRepository) ResolveActive(ctx context.Context, parlayID int64, status models.ParlayStatus, resolvedAt time.Time) (bool, error) {
	query := `
		UPDATE parlays
		SET status = $1, resolved_at = $2
		WHERE id = $3 AND status = 'active'
	`

	result, err := r.q.Exec(ctx, query, status, resolvedAt, parlayID)
	if err != nil {
		return false, fmt.Errorf("failed to resolve parlay %d: %w", parlayID, err)
	}

	return result.RowsAffected() > 0, nil
}

// GetStats returns a user's parlay record
func (r *ParlayRepository) GetStats(ctx context.Context, discordID int64) (*models.WagerStats, error) {
	query := `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE status = 'won'),
			COUNT(*) FILTER (WHERE status = 'lost')
		FROM parlays
		WHERE discord_id = $1
	`

	var stats models.WagerStats
	err := r.q.QueryRow(ctx, query, discordID).Scan(&stats.Total, &stats.Won, &stats.Lost)
	if err != nil {
		return nil, fmt.Errorf("failed to get parlay stats for user %d: %w", discordID, err)
	}

	return &stats, nil
}
