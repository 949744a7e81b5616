package models

import "errors"

// Business outcomes of wager placement and settlement. These are expected
// conditions reported to the caller, not failures.
var (
	// ErrInvalidStake: stake below the configured minimum
	ErrInvalidStake = errors.New("stake below minimum")

	// ErrInsufficientFunds: balance too low, possibly discovered only by the
	// conditional decrement losing a race with a concurrent wager
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrMatchNotBettable: match already started, finished, or unknown
	ErrMatchNotBettable = errors.New("match is not open for betting")

	// ErrOddsChanged: the live price moved since the user was quoted; the
	// caller should re-quote, nothing was placed
	ErrOddsChanged = errors.New("odds changed since quote")

	// ErrTooFewLegs: a parlay requires at least two legs
	ErrTooFewLegs = errors.New("parlay requires at least two legs")

	// ErrQuoteExpired: the wager flow session timed out or never existed
	ErrQuoteExpired = errors.New("quote expired")

	// ErrInvalidSelection: the selection names neither team, or a score
	// impossible for the match's series length
	ErrInvalidSelection = errors.New("invalid selection for this match")

	// ErrAlreadyClaimed: the daily reward was already claimed in the current
	// UTC day
	ErrAlreadyClaimed = errors.New("daily reward already claimed today")
)
