package models

import "time"

// TournamentStatus represents the lifecycle state of a tournament
type TournamentStatus string

const (
	TournamentStatusRegistration TournamentStatus = "registration"
	TournamentStatusActive       TournamentStatus = "active"
	TournamentStatusFinished     TournamentStatus = "finished"
)

// Tournament is a guild-scoped, time-boxed ladder overlay. Linked wager
// outcomes are mirrored into participant points at the fixed VirtualStake,
// never at the wager's real amount.
type Tournament struct {
	ID                 int64            `db:"id"`
	GuildID            int64            `db:"guild_id"`
	Name               string           `db:"name"`
	Status             TournamentStatus `db:"status"`
	VirtualStake       int64            `db:"virtual_stake"`
	RegistrationEndsAt time.Time        `db:"registration_ends_at"`
	StartsAt           time.Time        `db:"starts_at"`
	EndsAt             time.Time        `db:"ends_at"`
	CreatedAt          time.Time        `db:"created_at"`
}

// Covers reports whether the tournament's active window covers t
func (t *Tournament) Covers(at time.Time) bool {
	return !at.Before(t.StartsAt) && !at.After(t.EndsAt)
}

// TournamentParticipant is one user's ladder entry in one tournament
type TournamentParticipant struct {
	TournamentID int64     `db:"tournament_id"`
	DiscordID    int64     `db:"discord_id"`
	Points       int64     `db:"points"`
	BetWins      int       `db:"bet_wins"`
	BetLosses    int       `db:"bet_losses"`
	DuelWins     int       `db:"duel_wins"`
	DuelLosses   int       `db:"duel_losses"`
	ParlayWins   int       `db:"parlay_wins"`
	ParlayLosses int       `db:"parlay_losses"`
	JoinedAt     time.Time `db:"joined_at"`
}
