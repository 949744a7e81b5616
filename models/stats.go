package models

// WagerStats aggregates a user's record for one wager kind
type WagerStats struct {
	Total  int
	Won    int
	Lost   int
	Pushed int
}

// UserStats is the profile-level summary returned to the chat layer
type UserStats struct {
	DiscordID int64
	Username  string
	Balance   int64
	Bets      WagerStats
	Duels     WagerStats
	Parlays   WagerStats
	TitleName string
}

// ScoreboardEntry is one row of the balance scoreboard
type ScoreboardEntry struct {
	Rank      int
	DiscordID int64
	Username  string
	Balance   int64
	BetsWon   int
	BetsTotal int
}

// TransferResult represents the outcome of a transfer (returned to the user)
type TransferResult struct {
	Amount        int64
	RecipientName string
	NewBalance    int64
}
