package bot

import (
	"fmt"

	"github.com/bwmarrin/discordgo"
)

// registerCommands registers all slash commands with Discord
func (b *Bot) registerCommands() error {
	commands := []*discordgo.ApplicationCommand{
		{
			Name:        "balance",
			Description: "Check your current balance",
		},
		{
			Name:        "daily",
			Description: "Claim your daily points",
		},
		{
			Name:        "transfer",
			Description: "Transfer points to another player",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionUser,
					Name:        "user",
					Description: "User to transfer to",
					Required:    true,
				},
				{
					Type:        discordgo.ApplicationCommandOptionInteger,
					Name:        "amount",
					Description: "Amount to transfer",
					Required:    true,
				},
			},
		},
		{
			Name:        "matches",
			Description: "List upcoming matches open for betting",
		},
		{
			Name:        "bet",
			Description: "Bet on a match",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "quote",
					Description: "Get the current odds for a prediction",
					Options: []*discordgo.ApplicationCommandOption{
						{
							Type:        discordgo.ApplicationCommandOptionInteger,
							Name:        "match",
							Description: "Match ID",
							Required:    true,
						},
						{
							Type:        discordgo.ApplicationCommandOptionString,
							Name:        "kind",
							Description: "Prediction kind",
							Required:    true,
							Choices: []*discordgo.ApplicationCommandOptionChoice{
								{Name: "team", Value: "team"},
								{Name: "score", Value: "score"},
							},
						},
						{
							Type:        discordgo.ApplicationCommandOptionString,
							Name:        "selection",
							Description: "Team name, or exact score like 2-1",
							Required:    true,
						},
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "confirm",
					Description: "Confirm a quoted bet",
					Options: []*discordgo.ApplicationCommandOption{
						{
							Type:        discordgo.ApplicationCommandOptionString,
							Name:        "flow",
							Description: "Quote flow ID",
							Required:    true,
						},
						{
							Type:        discordgo.ApplicationCommandOptionInteger,
							Name:        "amount",
							Description: "Stake amount",
							Required:    true,
						},
					},
				},
			},
		},
		{
			Name:        "parlay",
			Description: "Combine predictions into one wager",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "quote",
					Description: "Price a parlay",
					Options: []*discordgo.ApplicationCommandOption{
						{
							Type:        discordgo.ApplicationCommandOptionString,
							Name:        "legs",
							Description: "Comma-separated legs, each match:kind:selection",
							Required:    true,
						},
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "confirm",
					Description: "Confirm a quoted parlay",
					Options: []*discordgo.ApplicationCommandOption{
						{
							Type:        discordgo.ApplicationCommandOptionString,
							Name:        "flow",
							Description: "Quote flow ID",
							Required:    true,
						},
						{
							Type:        discordgo.ApplicationCommandOptionInteger,
							Name:        "amount",
							Description: "Stake amount",
							Required:    true,
						},
					},
				},
			},
		},
		{
			Name:        "duel",
			Description: "Challenge another player head-to-head",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "propose",
					Description: "Propose a duel",
					Options: []*discordgo.ApplicationCommandOption{
						{
							Type:        discordgo.ApplicationCommandOptionUser,
							Name:        "user",
							Description: "User to challenge",
							Required:    true,
						},
						{
							Type:        discordgo.ApplicationCommandOptionInteger,
							Name:        "match",
							Description: "Match ID",
							Required:    true,
						},
						{
							Type:        discordgo.ApplicationCommandOptionString,
							Name:        "team",
							Description: "Team you back",
							Required:    true,
						},
						{
							Type:        discordgo.ApplicationCommandOptionInteger,
							Name:        "amount",
							Description: "Stake each side puts up",
							Required:    true,
						},
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "accept",
					Description: "Accept a duel",
					Options:     duelIDOption(),
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "decline",
					Description: "Decline a duel",
					Options:     duelIDOption(),
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "cancel",
					Description: "Cancel a duel you proposed",
					Options:     duelIDOption(),
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "pending",
					Description: "List duels waiting on you",
				},
			},
		},
		{
			Name:        "stats",
			Description: "Show a player's record",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionUser,
					Name:        "user",
					Description: "Player (defaults to you)",
					Required:    false,
				},
			},
		},
		{
			Name:        "scoreboard",
			Description: "Show the balance leaderboard",
		},
		{
			Name:        "titles",
			Description: "Manage your titles",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "list",
					Description: "List your unlocked titles",
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "display",
					Description: "Choose your displayed title",
					Options: []*discordgo.ApplicationCommandOption{
						{
							Type:        discordgo.ApplicationCommandOptionString,
							Name:        "title",
							Description: "Title key",
							Required:    true,
						},
					},
				},
			},
		},
		{
			Name:        "tournament",
			Description: "Tournament ladder",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "join",
					Description: "Join the open tournament",
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "standings",
					Description: "Show the ladder",
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "create",
					Description: "Create a tournament (admin)",
					Options: []*discordgo.ApplicationCommandOption{
						{
							Type:        discordgo.ApplicationCommandOptionString,
							Name:        "name",
							Description: "Tournament name",
							Required:    true,
						},
						{
							Type:        discordgo.ApplicationCommandOptionInteger,
							Name:        "stake",
							Description: "Virtual stake per wager",
							Required:    true,
						},
						{
							Type:        discordgo.ApplicationCommandOptionInteger,
							Name:        "registration_hours",
							Description: "Hours registration stays open",
							Required:    true,
						},
						{
							Type:        discordgo.ApplicationCommandOptionInteger,
							Name:        "duration_days",
							Description: "Days the tournament runs",
							Required:    true,
						},
					},
				},
			},
		},
		{
			Name:        "match",
			Description: "Match entry (admin)",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "schedule",
					Description: "Schedule a match",
					Options: []*discordgo.ApplicationCommandOption{
						{
							Type:        discordgo.ApplicationCommandOptionString,
							Name:        "opponent",
							Description: "Opponent team name",
							Required:    true,
						},
						{
							Type:        discordgo.ApplicationCommandOptionInteger,
							Name:        "games",
							Description: "Series length (1, 3, 5...)",
							Required:    true,
						},
						{
							Type:        discordgo.ApplicationCommandOptionInteger,
							Name:        "hours",
							Description: "Hours from now",
							Required:    true,
						},
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "finish",
					Description: "Record a final score and settle",
					Options: []*discordgo.ApplicationCommandOption{
						{
							Type:        discordgo.ApplicationCommandOptionInteger,
							Name:        "match",
							Description: "Match ID",
							Required:    true,
						},
						{
							Type:        discordgo.ApplicationCommandOptionString,
							Name:        "score",
							Description: "Final score like 2-1",
							Required:    true,
						},
					},
				},
			},
		},
	}

	for _, cmd := range commands {
		if _, err := b.session.ApplicationCommandCreate(b.session.State.User.ID, b.config.GuildID, cmd); err != nil {
			return fmt.Errorf("failed to register command %s: %w", cmd.Name, err)
		}
	}
	return nil
}

func duelIDOption() []*discordgo.ApplicationCommandOption {
	return []*discordgo.ApplicationCommandOption{
		{
			Type:        discordgo.ApplicationCommandOptionInteger,
			Name:        "duel",
			Description: "Duel ID",
			Required:    true,
		},
	}
}
