package models

import (
	"math"
	"time"
)

// BetKind is the closed set of straight-bet predictions
type BetKind string

const (
	BetKindTeam  BetKind = "team"
	BetKindScore BetKind = "score"
)

// BetStatus represents the state of a bet
type BetStatus string

const (
	BetStatusActive    BetStatus = "active"
	BetStatusWon       BetStatus = "won"
	BetStatusLost      BetStatus = "lost"
	BetStatusCancelled BetStatus = "cancelled"
)

// Bet represents a single wager on one match. Odds are frozen at placement
// time and never change afterwards.
type Bet struct {
	ID           int64      `db:"id"`
	DiscordID    int64      `db:"discord_id"`
	MatchID      int64      `db:"match_id"`
	Kind         BetKind    `db:"kind"`
	Selection    string     `db:"selection"`
	Amount       int64      `db:"amount"`
	Odds         float64    `db:"odds"`
	Status       BetStatus  `db:"status"`
	TournamentID *int64     `db:"tournament_id"`
	CreatedAt    time.Time  `db:"created_at"`
	ResolvedAt   *time.Time `db:"resolved_at"`
}

// FloorPayout floors amount*odds while absorbing the binary drift of
// 2-decimal odds values, so 100 at 1.13 pays 113 rather than 112.
func FloorPayout(amount int64, odds float64) int64 {
	return int64(math.Floor(float64(amount)*odds + 1e-9))
}

// Payout returns the total credited on a win (stake included)
func (b *Bet) Payout() int64 {
	return FloorPayout(b.Amount, b.Odds)
}

// BetReceipt is returned to the caller after a successful placement
type BetReceipt struct {
	Bet             *Bet
	NewBalance      int64
	PotentialPayout int64
}
