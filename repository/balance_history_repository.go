package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"scrimbet/database"
	"scrimbet/models"
)

// BalanceHistoryRepository implements the service.BalanceHistoryRepository interface
type BalanceHistoryRepository struct {
	q queryable
}

// NewBalanceHistoryRepository creates a new balance history repository
func NewBalanceHistoryRepository(db *database.DB) *BalanceHistoryRepository {
	return &BalanceHistoryRepository{q: db.Pool}
}

// newBalanceHistoryRepositoryWithTx creates a new balance history repository with a transaction
func newBalanceHistoryRepositoryWithTx(tx queryable) *BalanceHistoryRepository {
	return &BalanceHistoryRepository{q: tx}
}

// Record creates a new balance history entry
func (r *BalanceHistoryRepository) Record(ctx context.Context, history *models.BalanceHistory) error {
	metadataJSON, err := json.Marshal(history.TransactionMetadata)
	if err != nil {
		return fmt.Errorf("failed to marshal transaction metadata: %w", err)
	}

	query := `
		INSERT INTO balance_history
		(discord_id, balance_before, balance_after, change_amount, transaction_type, transaction_metadata)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`

	err = r.q.QueryRow(ctx, query,
		history.DiscordID,
		history.BalanceBefore,
		history.BalanceAfter,
		history.ChangeAmount,
		history.TransactionType,
		metadataJSON,
	).Scan(&history.ID, &history.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to record balance history: %w", err)
	}

	return nil
}

// GetByUser returns balance history for a specific user, newest first
func (r *BalanceHistoryRepository) GetByUser(ctx context.Context, discordID int64, limit int) ([]*models.BalanceHistory, error) {
	query := `
		SELECT id, discord_id, balance_before, balance_after, change_amount, transaction_type, transaction_metadata, created_at
		FROM balance_history
		WHERE discord_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := r.q.Query(ctx, query, discordID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get balance history for user %d: %w", discordID, err)
	}
	defer rows.Close()

	var entries []*models.BalanceHistory
	for rows.Next() {
		var entry models.BalanceHistory
		var metadataJSON []byte
		err := rows.Scan(
			&entry.ID,
			&entry.DiscordID,
			&entry.BalanceBefore,
			&entry.BalanceAfter,
			&entry.ChangeAmount,
			&entry.TransactionType,
			&metadataJSON,
			&entry.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan balance history: %w", err)
		}
		if len(metadataJSON) > 0 {
			if err := json.Unmarshal(metadataJSON, &entry.TransactionMetadata); err != nil {
				return nil, fmt.Errorf("failed to unmarshal transaction metadata: %w", err)
			}
		}
		entries = append(entries, &entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate balance history: %w", err)
	}

	return entries, nil
}

// SumAmountByType returns the total absolute amount moved by entries of the
// given transaction type. Used by the transfer-threshold title predicates.
func (r *BalanceHistoryRepository) SumAmountByType(ctx context.Context, discordID int64, transactionType models.TransactionType) (int64, error) {
	query := `
		SELECT COALESCE(SUM(ABS(change_amount)), 0)
		FROM balance_history
		WHERE discord_id = $1 AND transaction_type = $2
	`

	var total int64
	if err := r.q.QueryRow(ctx, query, discordID, transactionType).Scan(&total); err != nil {
		return 0, fmt.Errorf("failed to sum balance history for user %d: %w", discordID, err)
	}

	return total, nil
}

// MaxAmountByType returns the largest single absolute amount among entries
// of the given transaction type, or zero if there are none.
func (r *BalanceHistoryRepository) MaxAmountByType(ctx context.Context, discordID int64, transactionType models.TransactionType) (int64, error) {
	query := `
		SELECT COALESCE(MAX(ABS(change_amount)), 0)
		FROM balance_history
		WHERE discord_id = $1 AND transaction_type = $2
	`

	var max int64
	if err := r.q.QueryRow(ctx, query, discordID, transactionType).Scan(&max); err != nil {
		return 0, fmt.Errorf("failed to get max balance change for user %d: %w", discordID, err)
	}

	return max, nil
}

// CountByTypeSince counts entries of the given type created at or after the
// cutoff. The daily-claim flow uses it to enforce one claim per day.
func (r *BalanceHistoryRepository) CountByTypeSince(ctx context.Context, discordID int64, transactionType models.TransactionType, since time.Time) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM balance_history
		WHERE discord_id = $1 AND transaction_type = $2 AND created_at >= $3
	`

	var count int
	if err := r.q.QueryRow(ctx, query, discordID, transactionType, since).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count balance history for user %d: %w", discordID, err)
	}

	return count, nil
}
