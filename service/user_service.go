package service

import (
	"context"
	"fmt"

	"scrimbet/config"
	"scrimbet/models"
)

type userService struct {
	uowFactory UnitOfWorkFactory
}

// NewUserService creates a new user service
func NewUserService(uowFactory UnitOfWorkFactory) UserService {
	return &userService{
		uowFactory: uowFactory,
	}
}

// GetOrCreateUser retrieves an existing user or creates a new one with the
// configured starting balance
func (s *userService) GetOrCreateUser(ctx context.Context, discordID int64, username string) (*models.User, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback() // No-op if already committed

	user, err := uow.UserRepository().GetByDiscordID(ctx, discordID)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing user: %w", err)
	}
	if user != nil {
		if err := uow.Commit(); err != nil {
			return nil, fmt.Errorf("failed to commit transaction: %w", err)
		}
		return user, nil
	}

	// Database unique constraint on discord_id prevents duplicate users
	startingBalance := config.Get().StartingBalance
	user, err = uow.UserRepository().Create(ctx, discordID, username, startingBalance)
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	history := &models.BalanceHistory{
		DiscordID:       discordID,
		BalanceBefore:   0,
		BalanceAfter:    startingBalance,
		ChangeAmount:    startingBalance,
		TransactionType: models.TransactionTypeInitial,
		TransactionMetadata: map[string]any{
			"username": username,
		},
	}
	if err := RecordBalanceChange(ctx, uow, history); err != nil {
		return nil, fmt.Errorf("failed to record initial balance: %w", err)
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return user, nil
}

// GetUser returns an existing user, or an error when they have never
// interacted with the system
func (s *userService) GetUser(ctx context.Context, discordID int64) (*models.User, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	user, err := uow.UserRepository().GetByDiscordID(ctx, discordID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return nil, fmt.Errorf("user %d not found", discordID)
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return user, nil
}
