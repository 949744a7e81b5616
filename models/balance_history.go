package models

import (
	"time"
)

// TransactionType represents the type of balance change
type TransactionType string

const (
	TransactionTypeInitial      TransactionType = "initial"
	TransactionTypeBetPlaced    TransactionType = "bet_placed"
	TransactionTypeBetWin       TransactionType = "bet_win"
	TransactionTypeBetRefund    TransactionType = "bet_refund"
	TransactionTypeDuelStake    TransactionType = "duel_stake"
	TransactionTypeDuelWin      TransactionType = "duel_win"
	TransactionTypeDuelRefund   TransactionType = "duel_refund"
	TransactionTypeParlayPlaced TransactionType = "parlay_placed"
	TransactionTypeParlayWin    TransactionType = "parlay_win"
	TransactionTypeTransferIn   TransactionType = "transfer_in"
	TransactionTypeTransferOut  TransactionType = "transfer_out"
	TransactionTypeDailyClaim   TransactionType = "daily_claim"
)

// BalanceHistory represents a historical balance change
type BalanceHistory struct {
	ID                  int64           `db:"id"`
	DiscordID           int64           `db:"discord_id"`
	BalanceBefore       int64           `db:"balance_before"`
	BalanceAfter        int64           `db:"balance_after"`
	ChangeAmount        int64           `db:"change_amount"`
	TransactionType     TransactionType `db:"transaction_type"`
	TransactionMetadata map[string]any  `db:"transaction_metadata"`
	CreatedAt           time.Time       `db:"created_at"`
}
