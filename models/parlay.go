package models

import "time"

// ParlayStatus represents the state of a parlay
type ParlayStatus string

const (
	ParlayStatusActive ParlayStatus = "active"
	ParlayStatusWon    ParlayStatus = "won"
	ParlayStatusLost   ParlayStatus = "lost"
)

// Parlay represents a multi-leg wager. TotalOdds is the product of the leg
// odds at creation time, frozen. The parlay wins only if every leg wins; it
// is lost as soon as any one leg is known to have failed.
type Parlay struct {
	ID           int64        `db:"id"`
	DiscordID    int64        `db:"discord_id"`
	Amount       int64        `db:"amount"`
	TotalOdds    float64      `db:"total_odds"`
	Status       ParlayStatus `db:"status"`
	TournamentID *int64       `db:"tournament_id"`
	CreatedAt    time.Time    `db:"created_at"`
	ResolvedAt   *time.Time   `db:"resolved_at"`
	Legs         []*ParlayLeg `db:"-"`
}

// ParlayLeg is one prediction within a parlay
type ParlayLeg struct {
	ID        int64   `db:"id"`
	ParlayID  int64   `db:"parlay_id"`
	MatchID   int64   `db:"match_id"`
	Kind      BetKind `db:"kind"`
	Selection string  `db:"selection"`
	Odds      float64 `db:"odds"`
}

// Payout returns the total credited on a win (stake included)
func (p *Parlay) Payout() int64 {
	return FloorPayout(p.Amount, p.TotalOdds)
}

// ParlayReceipt is returned to the caller after a successful placement
type ParlayReceipt struct {
	Parlay          *Parlay
	NewBalance      int64
	PotentialPayout int64
}
