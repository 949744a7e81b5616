package models

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// MatchStatus represents the lifecycle state of a match, owned by the
// external ingestion pipeline. This core only ever reads matches.
type MatchStatus string

const (
	MatchStatusNotStarted MatchStatus = "not_started"
	MatchStatusLive       MatchStatus = "live"
	MatchStatusFinished   MatchStatus = "finished"
	MatchStatusAnnounced  MatchStatus = "announced"
)

// Match represents a scheduled or played match of the organization's team
// (TeamA) against an opponent (TeamB).
type Match struct {
	ID            int64       `db:"id"`
	TeamA         string      `db:"team_a"`
	TeamB         string      `db:"team_b"`
	NumberOfGames int         `db:"number_of_games"`
	Status        MatchStatus `db:"status"`
	Score         *string     `db:"score"`
	ScheduledAt   time.Time   `db:"scheduled_at"`
	CreatedAt     time.Time   `db:"created_at"`
	UpdatedAt     time.Time   `db:"updated_at"`
}

// IsBettable reports whether wagers may still be placed on the match
func (m *Match) IsBettable(now time.Time) bool {
	return m.Status == MatchStatusNotStarted && now.Before(m.ScheduledAt)
}

// ParseScore splits a "A-B" score string into the two game counts
func ParseScore(score string) (int, int, error) {
	parts := strings.SplitN(score, "-", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("malformed score %q", score)
	}
	a, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return 0, 0, fmt.Errorf("malformed score %q: %w", score, err)
	}
	b, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return 0, 0, fmt.Errorf("malformed score %q: %w", score, err)
	}
	if a < 0 || b < 0 {
		return 0, 0, fmt.Errorf("malformed score %q", score)
	}
	return a, b, nil
}

// Winner returns the winning team name, or empty string on a draw.
// The error reports a malformed or missing score.
func (m *Match) Winner() (string, error) {
	if m.Score == nil {
		return "", fmt.Errorf("match %d has no score", m.ID)
	}
	a, b, err := ParseScore(*m.Score)
	if err != nil {
		return "", err
	}
	switch {
	case a > b:
		return m.TeamA, nil
	case b > a:
		return m.TeamB, nil
	default:
		return "", nil
	}
}
