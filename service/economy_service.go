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

// DailyClaimResult reports a successful daily claim
type DailyClaimResult struct {
	Amount     int64
	NewBalance int64
	First      bool
	NextReset  time.Time
}

type economyService struct {
	uowFactory UnitOfWorkFactory
	now        func() time.Time
}

// NewEconomyService creates a new economy service
func NewEconomyService(uowFactory UnitOfWorkFactory) EconomyService {
	return &economyService{
		uowFactory: uowFactory,
		now:        time.Now,
	}
}

// ClaimDaily grants the daily reward once per UTC day
func (s *economyService) ClaimDaily(ctx context.Context, discordID int64) (*DailyClaimResult, error) {
	now := s.now()

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback() // No-op if already committed

	user, err := uow.UserRepository().GetByDiscordID(ctx, discordID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return nil, fmt.Errorf("user %d not found", discordID)
	}

	claimedToday, err := uow.BalanceHistoryRepository().CountByTypeSince(ctx, discordID, models.TransactionTypeDailyClaim, StartOfUTCDay(now))
	if err != nil {
		return nil, fmt.Errorf("failed to check daily claims: %w", err)
	}
	if claimedToday > 0 {
		return nil, models.ErrAlreadyClaimed
	}

	claimedEver, err := uow.BalanceHistoryRepository().CountByTypeSince(ctx, discordID, models.TransactionTypeDailyClaim, time.Time{})
	if err != nil {
		return nil, fmt.Errorf("failed to check claim history: %w", err)
	}

	amount := config.Get().DailyClaimAmount
	if err := uow.UserRepository().AddBalance(ctx, discordID, amount); err != nil {
		return nil, fmt.Errorf("failed to credit claim: %w", err)
	}

	history := &models.BalanceHistory{
		DiscordID:           discordID,
		BalanceBefore:       user.Balance,
		BalanceAfter:        user.Balance + amount,
		ChangeAmount:        amount,
		TransactionType:     models.TransactionTypeDailyClaim,
		TransactionMetadata: map[string]any{"day": StartOfUTCDay(now).Format("2006-01-02")},
	}
	if err := RecordBalanceChange(ctx, uow, history); err != nil {
		return nil, err
	}

	first := claimedEver == 0
	uow.EventBus().Publish(events.DailyClaimedEvent{
		UserID: discordID,
		Amount: amount,
		First:  first,
	})

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return &DailyClaimResult{
		Amount:     amount,
		NewBalance: user.Balance + amount,
		First:      first,
		NextReset:  NextUTCMidnight(now),
	}, nil
}

// Transfer moves points from one user to another
func (s *economyService) Transfer(ctx context.Context, fromID, toID int64, amount int64) (*models.TransferResult, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("transfer amount must be positive")
	}
	if fromID == toID {
		return nil, fmt.Errorf("cannot transfer to yourself")
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	sender, err := uow.UserRepository().GetByDiscordID(ctx, fromID)
	if err != nil {
		return nil, fmt.Errorf("failed to get sender: %w", err)
	}
	if sender == nil {
		return nil, fmt.Errorf("user %d not found", fromID)
	}
	recipient, err := uow.UserRepository().GetByDiscordID(ctx, toID)
	if err != nil {
		return nil, fmt.Errorf("failed to get recipient: %w", err)
	}
	if recipient == nil {
		return nil, fmt.Errorf("user %d not found", toID)
	}

	if err := uow.UserRepository().DeductBalance(ctx, fromID, amount); err != nil {
		return nil, err
	}
	if err := uow.UserRepository().AddBalance(ctx, toID, amount); err != nil {
		return nil, fmt.Errorf("failed to credit recipient: %w", err)
	}

	outHistory := &models.BalanceHistory{
		DiscordID:           fromID,
		BalanceBefore:       sender.Balance,
		BalanceAfter:        sender.Balance - amount,
		ChangeAmount:        -amount,
		TransactionType:     models.TransactionTypeTransferOut,
		TransactionMetadata: map[string]any{"recipient_id": toID},
	}
	if err := RecordBalanceChange(ctx, uow, outHistory); err != nil {
		return nil, err
	}
	inHistory := &models.BalanceHistory{
		DiscordID:           toID,
		BalanceBefore:       recipient.Balance,
		BalanceAfter:        recipient.Balance + amount,
		ChangeAmount:        amount,
		TransactionType:     models.TransactionTypeTransferIn,
		TransactionMetadata: map[string]any{"sender_id": fromID},
	}
	if err := RecordBalanceChange(ctx, uow, inHistory); err != nil {
		return nil, err
	}

	uow.EventBus().Publish(events.TransferMadeEvent{
		FromUserID: fromID,
		ToUserID:   toID,
		Amount:     amount,
	})

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.WithFields(log.Fields{
		"fromID": fromID,
		"toID":   toID,
		"amount": amount,
	}).Info("Transfer made")

	return &models.TransferResult{
		Amount:        amount,
		RecipientName: recipient.Username,
		NewBalance:    sender.Balance - amount,
	}, nil
}
