package service

import (
	"time"
)

// StartOfUTCDay returns midnight UTC of the day containing t. Daily claims
// reset on this boundary.
func StartOfUTCDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// NextUTCMidnight returns the moment the daily claim next resets after t
func NextUTCMidnight(t time.Time) time.Time {
	return StartOfUTCDay(t).AddDate(0, 0, 1)
}
