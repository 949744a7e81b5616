package bot

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	log "github.com/sirupsen/logrus"

	"scrimbet/models"
)

// FormatBalance formats a point amount with thousand separators
func FormatBalance(balance int64) string {
	str := fmt.Sprintf("%d", balance)
	n := len(str)
	start := 0
	if strings.HasPrefix(str, "-") {
		start = 1
	}
	if n-start <= 3 {
		return str
	}

	var result strings.Builder
	for i, digit := range str {
		if i > start && (n-i)%3 == 0 {
			result.WriteRune(',')
		}
		result.WriteRune(digit)
	}
	return result.String()
}

// FormatDiscordTimestamp formats a time as a Discord timestamp that displays
// in the reader's local timezone
func FormatDiscordTimestamp(t time.Time, format string) string {
	return fmt.Sprintf("<t:%d:%s>", t.Unix(), format)
}

// respond sends an ephemeral reply to an interaction
func (b *Bot) respond(s *discordgo.Session, i *discordgo.InteractionCreate, content string) {
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: content,
			Flags:   discordgo.MessageFlagsEphemeral,
		},
	})
	if err != nil {
		log.WithError(err).Error("Failed to respond to interaction")
	}
}

// respondError maps service errors onto user-facing messages
func (b *Bot) respondError(s *discordgo.Session, i *discordgo.InteractionCreate, err error) {
	var message string
	switch {
	case errors.Is(err, models.ErrInvalidStake):
		message = "That stake is below the minimum."
	case errors.Is(err, models.ErrInsufficientFunds):
		message = "You don't have enough points for that."
	case errors.Is(err, models.ErrMatchNotBettable):
		message = "That match isn't open for betting."
	case errors.Is(err, models.ErrOddsChanged):
		message = "The odds moved since your quote. Ask for a fresh one."
	case errors.Is(err, models.ErrQuoteExpired):
		message = "That quote has expired. Ask for a fresh one."
	case errors.Is(err, models.ErrTooFewLegs):
		message = "A parlay needs at least two legs."
	case errors.Is(err, models.ErrInvalidSelection):
		message = "That selection doesn't fit this match."
	case errors.Is(err, models.ErrAlreadyClaimed):
		message = "You already claimed your daily points today."
	default:
		log.WithError(err).Error("Command failed")
		message = "Something went wrong."
	}
	b.respond(s, i, "❌ "+message)
}

// interactionUser returns the invoking user for guild and DM interactions
func interactionUser(i *discordgo.InteractionCreate) *discordgo.User {
	if i.Member != nil {
		return i.Member.User
	}
	return i.User
}

// isAdmin reports whether the invoking member holds the admin role
func (b *Bot) isAdmin(i *discordgo.InteractionCreate) bool {
	if b.config.AdminRoleID == "" || i.Member == nil {
		return false
	}
	for _, roleID := range i.Member.Roles {
		if roleID == b.config.AdminRoleID {
			return true
		}
	}
	return false
}

// optionMap flattens interaction options by name
func optionMap(options []*discordgo.ApplicationCommandInteractionDataOption) map[string]*discordgo.ApplicationCommandInteractionDataOption {
	m := make(map[string]*discordgo.ApplicationCommandInteractionDataOption, len(options))
	for _, opt := range options {
		m[opt.Name] = opt
	}
	return m
}
