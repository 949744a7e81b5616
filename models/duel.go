package models

import "time"

// DuelStatus represents the state of a duel
type DuelStatus string

const (
	DuelStatusPending   DuelStatus = "pending"
	DuelStatusAccepted  DuelStatus = "accepted"
	DuelStatusCancelled DuelStatus = "cancelled"
	DuelStatusResolved  DuelStatus = "resolved"
)

// Duel represents a symmetric 1v1 wager on a match. Both sides stake the
// same amount; stakes are debited when the opponent accepts, and the winner
// takes the full pot of 2x amount at resolution.
type Duel struct {
	ID             int64      `db:"id"`
	MatchID        int64      `db:"match_id"`
	ChallengerID   int64      `db:"challenger_id"`
	OpponentID     int64      `db:"opponent_id"`
	ChallengerTeam string     `db:"challenger_team"`
	OpponentTeam   string     `db:"opponent_team"`
	Amount         int64      `db:"amount"`
	Status         DuelStatus `db:"status"`
	WinnerID       *int64     `db:"winner_id"`
	TournamentID   *int64     `db:"tournament_id"`
	CreatedAt      time.Time  `db:"created_at"`
	AcceptedAt     *time.Time `db:"accepted_at"`
	ResolvedAt     *time.Time `db:"resolved_at"`
}

// IsParticipant checks if a user is involved in the duel
func (d *Duel) IsParticipant(discordID int64) bool {
	return d.ChallengerID == discordID || d.OpponentID == discordID
}

// SideFor returns the team the given participant backed
func (d *Duel) SideFor(discordID int64) string {
	switch discordID {
	case d.ChallengerID:
		return d.ChallengerTeam
	case d.OpponentID:
		return d.OpponentTeam
	}
	return ""
}

// CanBeAccepted checks if the duel can be accepted by the given user
func (d *Duel) CanBeAccepted(discordID int64) bool {
	return d.Status == DuelStatusPending && d.OpponentID == discordID
}

// CanBeCancelled checks if the duel can be cancelled by the given user
func (d *Duel) CanBeCancelled(discordID int64) bool {
	return d.Status == DuelStatusPending && d.ChallengerID == discordID
}
