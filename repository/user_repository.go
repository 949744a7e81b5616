package repository

import (
	"context"
	"fmt"

	"scrimbet/database"
	"scrimbet/models"

	"github.com/jackc/pgx/v5"
)

// UserRepository implements the service.UserRepository interface
type UserRepository struct {
	q queryable
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *database.DB) *UserRepository {
	return &UserRepository{q: db.Pool}
}

// newUserRepositoryWithTx creates a new user repository with a transaction
func newUserRepositoryWithTx(tx queryable) *UserRepository {
	return &UserRepository{q: tx}
}

// GetByDiscordID retrieves a user by their Discord ID
func (r *UserRepository) GetByDiscordID(ctx context.Context, discordID int64) (*models.User, error) {
	query := `
		SELECT discord_id, username, balance, created_at, updated_at
		FROM users
		WHERE discord_id = $1
	`

	var user models.User
	err := r.q.QueryRow(ctx, query, discordID).Scan(
		&user.DiscordID,
		&user.Username,
		&user.Balance,
		&user.CreatedAt,
		&user.UpdatedAt,
	)

	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user %d: %w", discordID, err)
	}

	return &user, nil
}

// Create creates a new user with the initial balance
func (r *UserRepository) Create(ctx context.Context, discordID int64, username string, initialBalance int64) (*models.User, error) {
	query := `
		INSERT INTO users (discord_id, username, balance)
		VALUES ($1, $2, $3)
		RETURNING discord_id, username, balance, created_at, updated_at
	`

	var user models.User
	err := r.q.QueryRow(ctx, query, discordID, username, initialBalance).Scan(
		&user.DiscordID,
		&user.Username,
		&user.Balance,
		&user.CreatedAt,
		&user.UpdatedAt,
	)

	if err != nil {
		return nil, fmt.Errorf("failed to create user %d: %w", discordID, err)
	}

	return &user, nil
}

// AddBalance adds to a user's balance atomically
func (r *UserRepository) AddBalance(ctx context.Context, discordID int64, amount int64) error {
	if amount <= 0 {
		return fmt.Errorf("amount must be positive")
	}

	query := `
		UPDATE users
		SET balance = balance + $1, updated_at = NOW()
		WHERE discord_id = $2
	`

	result, err := r.q.Exec(ctx, query, amount, discordID)
	if err != nil {
		return fmt.Errorf("failed to add balance for user %d: %w", discordID, err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("user %d not found", discordID)
	}

	return nil
}

// DeductBalance deducts from a user's balance via a conditional update.
// Concurrent deductions on the same user serialize through the row lock, and
// a decrement that would take the balance negative is rejected by the WHERE
// clause rather than by a racy read-then-check.
func (r *UserRepository) DeductBalance(ctx context.Context, discordID int64, amount int64) error {
	if amount <= 0 {
		return fmt.Errorf("amount must be positive")
	}

	query := `
		UPDATE users
		SET balance = balance - $1, updated_at = NOW()
		WHERE discord_id = $2 AND balance >= $1
	`

	result, err := r.q.Exec(ctx, query, amount, discordID)
	if err != nil {
		return fmt.Errorf("failed to deduct balance for user %d: %w", discordID, err)
	}

	if result.RowsAffected() == 0 {
		// Missing user and shortfall collapse to the same outcome: the
		// conditional update did not apply.
		return models.ErrInsufficientFunds
	}

	return nil
}

// GetTopByBalance returns the richest users, for the scoreboard
func (r *UserRepository) GetTopByBalance(ctx context.Context, limit int) ([]*models.User, error) {
	query := `
		SELECT discord_id, username, balance, created_at, updated_at
		FROM users
		ORDER BY balance DESC, discord_id
		LIMIT $1
	`

	rows, err := r.q.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get top users: %w", err)
	}
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		var user models.User
		if err := rows.Scan(&user.DiscordID, &user.Username, &user.Balance, &user.CreatedAt, &user.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, &user)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate users: %w", err)
	}

	return users, nil
}
