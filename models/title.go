package models

import "time"

// TitleCategory groups titles by the predicate family that unlocks them
type TitleCategory string

const (
	TitleCategoryFirsts       TitleCategory = "firsts"
	TitleCategoryBetCount     TitleCategory = "bet_count"
	TitleCategoryBetStreak    TitleCategory = "bet_streak"
	TitleCategoryDuelStreak   TitleCategory = "duel_streak"
	TitleCategoryParlayStreak TitleCategory = "parlay_streak"
	TitleCategoryWealth       TitleCategory = "wealth"
	TitleCategoryTransfer     TitleCategory = "transfer"
	TitleCategoryTournament   TitleCategory = "tournament"
	TitleCategoryCapstone     TitleCategory = "capstone"
)

// Title is a named cosmetic unlockable
type Title struct {
	ID          int64         `db:"id"`
	Key         string        `db:"key"`
	Name        string        `db:"name"`
	Description string        `db:"description"`
	Category    TitleCategory `db:"category"`
}

// UserTitle records that a user has unlocked a title. Written exactly once
// per (user, title) via an idempotent upsert.
type UserTitle struct {
	DiscordID  int64     `db:"discord_id"`
	TitleID    int64     `db:"title_id"`
	UnlockedAt time.Time `db:"unlocked_at"`
}

// UserProfile holds the user's currently displayed title
type UserProfile struct {
	DiscordID int64     `db:"discord_id"`
	TitleID   *int64    `db:"title_id"`
	UpdatedAt time.Time `db:"updated_at"`
}
