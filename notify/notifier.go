// Package notify delivers best-effort settlement DMs over Discord. Delivery
// failures are logged and dropped; settlement never depends on them.
package notify

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"
	log "github.com/sirupsen/logrus"

	"scrimbet/events"
	"scrimbet/models"
)

// Notifier DMs users when their wagers settle
type Notifier struct {
	session *discordgo.Session
}

// NewNotifier creates a notifier over an open Discord session
func NewNotifier(session *discordgo.Session) *Notifier {
	return &Notifier{session: session}
}

// Register subscribes the notifier to every settlement event
func (n *Notifier) Register(bus *events.Bus) {
	bus.Subscribe(events.EventTypeBetResolved, n.onBetResolved)
	bus.Subscribe(events.EventTypeDuelResolved, n.onDuelResolved)
	bus.Subscribe(events.EventTypeParlayResolved, n.onParlayResolved)
}

func (n *Notifier) onBetResolved(ctx context.Context, event events.Event) {
	e, ok := event.(events.BetResolvedEvent)
	if !ok {
		return
	}

	var message string
	switch e.Status {
	case models.BetStatusWon:
		message = fmt.Sprintf("Your bet won! %d points have been credited.", e.Payout)
	case models.BetStatusLost:
		message = "Your bet lost. Better luck next time."
	case models.BetStatusCancelled:
		message = fmt.Sprintf("The match ended in a draw; your %d point stake was refunded.", e.Payout)
	default:
		return
	}
	n.dm(e.UserID, message)
}

func (n *Notifier) onDuelResolved(ctx context.Context, event events.Event) {
	e, ok := event.(events.DuelResolvedEvent)
	if !ok {
		return
	}

	if e.Cancelled {
		refund := e.Pot / 2
		message := fmt.Sprintf("Your duel ended in a draw; your %d point stake was refunded.", refund)
		n.dm(e.ChallengerID, message)
		n.dm(e.OpponentID, message)
		return
	}

	loserID := e.ChallengerID
	if e.WinnerID == e.ChallengerID {
		loserID = e.OpponentID
	}
	n.dm(e.WinnerID, fmt.Sprintf("You won your duel! The pot of %d points is yours.", e.Pot))
	n.dm(loserID, "You lost your duel.")
}

func (n *Notifier) onParlayResolved(ctx context.Context, event events.Event) {
	e, ok := event.(events.ParlayResolvedEvent)
	if !ok {
		return
	}

	var message string
	switch e.Status {
	case models.ParlayStatusWon:
		message = fmt.Sprintf("Your parlay hit! %d points have been credited.", e.Payout)
	case models.ParlayStatusLost:
		message = "Your parlay busted."
	default:
		return
	}
	n.dm(e.UserID, message)
}

func (n *Notifier) dm(userID int64, message string) {
	channel, err := n.session.UserChannelCreate(fmt.Sprintf("%d", userID))
	if err != nil {
		log.WithError(err).WithField("userID", userID).Warn("Failed to open DM channel")
		return
	}
	if _, err := n.session.ChannelMessageSend(channel.ID, message); err != nil {
		log.WithError(err).WithField("userID", userID).Warn("Failed to send DM")
	}
}
