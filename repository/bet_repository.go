package repository

import (
	"context"
	"fmt"
	"time"

	"scrimbet/database"
	"scrimbet/models"

	"github.com/jackc/pgx/v5"
)

// BetRepository implements the service.BetRepository interface
type BetRepository struct {
	q queryable
}

// NewBetRepository creates a new bet repository
func NewBetRepository(db *database.DB) *BetRepository {
	return &BetRepository{q: db.Pool}
}

// newBetRepositoryWithTx creates a new bet repository with a transaction
func newBetRepositoryWithTx(tx queryable) *BetRepository {
	return &BetRepository{q: tx}
}

const betColumns = `id, discord_id, match_id, kind, selection, amount, odds, status, tournament_id, created_at, resolved_at`

func scanBet(row pgx.Row) (*models.Bet, error) {
	var b models.Bet
	err := row.Scan(
		&b.ID,
		&b.DiscordID,
		&b.MatchID,
		&b.Kind,
		&b.Selection,
		&b.Amount,
		&b.Odds,
		&b.Status,
		&b.TournamentID,
		&b.CreatedAt,
		&b.ResolvedAt,
	)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *BetRepository) queryBets(ctx context.Context, query string, args ...any) ([]*models.Bet, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bets []*models.Bet
	for rows.Next() {
		bet, err := scanBet(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan bet: %w", err)
		}
		bets = append(bets, bet)
	}

	return bets, rows.Err()
}

// Create creates a new bet record
func (r *BetRepository) Create(ctx context.Context, bet *models.Bet) error {
	query := `
		INSERT INTO bets (discord_id, match_id, kind, selection, amount, odds, status, tournament_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at
	`

	err := r.q.QueryRow(ctx, query,
		bet.DiscordID,
		bet.MatchID,
		bet.Kind,
		bet.Selection,
		bet.Amount,
		bet.Odds,
		bet.Status,
		bet.TournamentID,
	).Scan(&bet.ID, &bet.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to create bet: %w", err)
	}

	return nil
}

// GetByID retrieves a bet by its ID
func (r *BetRepository) GetByID(ctx context.Context, id int64) (*models.Bet, error) {
	query := `SELECT ` + betColumns + ` FROM bets WHERE id = $1`

	bet, err := scanBet(r.q.QueryRow(ctx, query, id))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get bet %d: %w", id, err)
	}

	return bet, nil
}

// GetActiveByMatch returns every bet on a match still awaiting settlement
func (r *BetRepository) GetActiveByMatch(ctx context.Context, matchID int64) ([]*models.Bet, error) {
	query := `
		SELECT ` + betColumns + `
		FROM bets
		WHERE match_id = $1 AND status = 'active'
		ORDER BY id
	`

	bets, err := r.queryBets(ctx, query, matchID)
	if err != nil {
		return nil, fmt.Errorf("failed to get active bets for match %d: %w", matchID, err)
	}

	return bets, nil
}

// GetByUser returns bets for a specific user, newest first
func (r *BetRepository) GetByUser(ctx context.Context, discordID int64, limit int) ([]*models.Bet, error) {
	query := `
		SELECT ` + betColumns + `
		FROM bets
		WHERE discord_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	bets, err := r.queryBets(ctx, query, discordID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get bets for user %d: %w", discordID, err)
	}

	return bets, nil
}

// GetRecentResolvedByUser returns terminal bets newest first, for the
// streak scan. Cancelled bets are pushes and excluded.
func (r *BetRepository) GetRecentResolvedByUser(ctx context.Context, discordID int64, limit int) ([]*models.Bet, error) {
	query := `
		SELECT ` + betColumns + `
		FROM bets
		WHERE discord_id = $1 AND status IN ('won', 'lost')
		ORDER BY resolved_at DESC
		LIMIT $2
	`

	bets, err := r.queryBets(ctx, query, discordID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get resolved bets for user %d: %w", discordID, err)
	}

	return bets, nil
}

// CountByUser counts all bets the user ever placed
func (r *BetRepository) CountByUser(ctx context.Context, discordID int64) (int, error) {
	var count int
	err := r.q.QueryRow(ctx, `SELECT COUNT(*) FROM bets WHERE discord_id = $1`, discordID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count bets for user %d: %w", discordID, err)
	}

	return count, nil
}

// SumActiveByMatchSelection returns the amount currently pooled on one
// selection of a match. Feeds the market-pressure odds adjustment.
func (r *BetRepository) SumActiveByMatchSelection(ctx context.Context, matchID int64, kind models.BetKind, selection string) (int64, error) {
	query := `
		SELECT COALESCE(SUM(amount), 0)
		FROM bets
		WHERE match_id = $1 AND kind = $2 AND selection = $3 AND status = 'active'
	`

	var total int64
	if err := r.q.QueryRow(ctx, query, matchID, kind, selection).Scan(&total); err != nil {
		return 0, fmt.Errorf("failed to sum pooled bets for match %d: %w", matchID, err)
	}

	return total, nil
}

// ResolveActive transitions a bet out of active exactly once. Returns false
// when the bet was already terminal, which makes settlement re-invocation a
// no-op rather than a double credit.
func (r *BetRepository) ResolveActive(ctx context.Context, betID int64, status models.BetStatus, resolvedAt time.Time) (bool, error) {
	query := `
		UPDATE bets
		SET status = $1, resolved_at = $2
		WHERE id = $3 AND status = 'active'
	`

	result, err := r.q.Exec(ctx, query, status, resolvedAt, betID)
	if err != nil {
		return false, fmt.Errorf("failed to resolve bet %d: %w", betID, err)
	}

	return result.RowsAffected() > 0, nil
}

// GetStats returns a user's win/loss record over terminal bets
func (r *BetRepository) GetStats(ctx context.Context, discordID int64) (*models.WagerStats, error) {
	query := `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE status = 'won'),
			COUNT(*) FILTER (WHERE status = 'lost'),
			COUNT(*) FILTER (WHERE status = 'cancelled')
		FROM bets
		WHERE discord_id = $1
	`

	var stats models.WagerStats
	err := r.q.QueryRow(ctx, query, discordID).Scan(&stats.Total, &stats.Won, &stats.Lost, &stats.Pushed)
	if err != nil {
		return nil, fmt.Errorf("failed to get bet stats for user %d: %w", discordID, err)
	}

	return &stats, nil
}
