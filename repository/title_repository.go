package repository

import (
	"context"
	"fmt"

	"scrimbet/database"
	"scrimbet/models"

	"github.com/jackc/pgx/v5"
)

// TitleRepository implements the service.TitleRepository interface
type TitleRepository struct {
	q queryable
}

// NewTitleRepository creates a new title repository
func NewTitleRepository(db *database.DB) *TitleRepository {
	return &TitleRepository{q: db.Pool}
}

// newTitleRepositoryWithTx creates a new title repository with a transaction
func newTitleRepositoryWithTx(tx queryable) *TitleRepository {
	return &TitleRepository{q: tx}
}

// GetByKey retrieves a title by its stable key
func (r *TitleRepository) GetByKey(ctx context.Context, key string) (*models.Title, error) {
	query := `SELECT id, key, name, description, category FROM titles WHERE key = $1`

	var t models.Title
	err := r.q.QueryRow(ctx, query, key).Scan(&t.ID, &t.Key, &t.Name, &t.Description, &t.Category)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get title %q: %w", key, err)
	}

	return &t, nil
}

// Unlock records that a user holds a title. The upsert key makes repeat
// unlocks harmless; the return value reports whether this call was the
// first, so callers can notify only once.
func (r *TitleRepository) Unlock(ctx context.Context, discordID int64, titleID int64) (bool, error) {
	query := `
		INSERT INTO user_titles (discord_id, title_id)
		VALUES ($1, $2)
		ON CONFLICT (discord_id, title_id) DO NOTHING
	`

	result, err := r.q.Exec(ctx, query, discordID, titleID)
	if err != nil {
		return false, fmt.Errorf("failed to unlock title %d for user %d: %w", titleID, discordID, err)
	}

	return result.RowsAffected() > 0, nil
}

// GetUnlockedKeys returns the keys of every title the user holds
func (r *TitleRepository) GetUnlockedKeys(ctx context.Context, discordID int64) ([]string, error) {
	query := `
		SELECT t.key
		FROM user_titles ut
		JOIN titles t ON t.id = ut.title_id
		WHERE ut.discord_id = $1
		ORDER BY ut.unlocked_at
	`

	rows, err := r.q.Query(ctx, query, discordID)
	if err != nil {
		return nil, fmt.Errorf("failed to get unlocked titles for user %d: %w", discordID, err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("failed to scan title key: %w", err)
		}
		keys = append(keys, key)
	}

	return keys, rows.Err()
}

// HasUnlocked reports whether the user holds the title with the given key
func (r *TitleRepository) HasUnlocked(ctx context.Context, discordID int64, key string) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1
			FROM user_titles ut
			JOIN titles t ON t.id = ut.title_id
			WHERE ut.discord_id = $1 AND t.key = $2
		)
	`

	var has bool
	if err := r.q.QueryRow(ctx, query, discordID, key).Scan(&has); err != nil {
		return false, fmt.Errorf("failed to check title %q for user %d: %w", key, discordID, err)
	}

	return has, nil
}

// SetDisplayedTitle sets the user's displayed title. A nil titleID clears it.
func (r *TitleRepository) SetDisplayedTitle(ctx context.Context, discordID int64, titleID *int64) error {
	query := `
		INSERT INTO user_profiles (discord_id, title_id, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (discord_id) DO UPDATE SET title_id = EXCLUDED.title_id, updated_at = NOW()
	`

	if _, err := r.q.Exec(ctx, query, discordID, titleID); err != nil {
		return fmt.Errorf("failed to set displayed title for user %d: %w", discordID, err)
	}

	return nil
}

// GetDisplayedTitle returns the name of the user's displayed title, or empty
func (r *TitleRepository) GetDisplayedTitle(ctx context.Context, discordID int64) (string, error) {
	query := `
		SELECT COALESCE(t.name, '')
		FROM user_profiles up
		LEFT JOIN titles t ON t.id = up.title_id
		WHERE up.discord_id = $1
	`

	var name string
	err := r.q.QueryRow(ctx, query, discordID).Scan(&name)
	if err == pgx.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to get displayed title for user %d: %w", discordID, err)
	}

	return name, nil
}
