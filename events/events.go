package events

import (
	"context"
	"sync"

	"scrimbet/models"

	log "github.com/sirupsen/logrus"
)

// EventType represents different types of events in the system
type EventType string

const (
	EventTypeBalanceChange      EventType = "balance_change"
	EventTypeUserCreated        EventType = "user_created"
	EventTypeBetPlaced          EventType = "bet_placed"
	EventTypeBetResolved        EventType = "bet_resolved"
	EventTypeDuelResolved       EventType = "duel_resolved"
	EventTypeParlayPlaced       EventType = "parlay_placed"
	EventTypeParlayResolved     EventType = "parlay_resolved"
	EventTypeDailyClaimed       EventType = "daily_claimed"
	EventTypeTransferMade       EventType = "transfer_made"
	EventTypeTournamentFinished EventType = "tournament_finished"
)

// Event is the base interface for all events
type Event interface {
	Type() EventType
}

// BalanceChangeEvent represents a balance change that occurred
type BalanceChangeEvent struct {
	UserID          int64
	OldBalance      int64
	NewBalance      int64
	TransactionType models.TransactionType
	ChangeAmount    int64
}

func (e BalanceChangeEvent) Type() EventType {
	return EventTypeBalanceChange
}

// UserCreatedEvent represents a new user creation
type UserCreatedEvent struct {
	DiscordID      int64
	Username       string
	InitialBalance int64
}

func (e UserCreatedEvent) Type() EventType {
	return EventTypeUserCreated
}

// BetPlacedEvent represents a bet that was placed
type BetPlacedEvent struct {
	UserID int64
	BetID  int64
	Amount int64
	Odds   float64
}

func (e BetPlacedEvent) Type() EventType {
	return EventTypeBetPlaced
}

// BetResolvedEvent represents a bet settled by the settlement engine
type BetResolvedEvent struct {
	UserID int64
	BetID  int64
	Status models.BetStatus
	Payout int64
}

func (e BetResolvedEvent) Type() EventType {
	return EventTypeBetResolved
}

// DuelResolvedEvent represents a duel settled by the settlement engine.
// WinnerID is zero when the duel was cancelled on a draw.
type DuelResolvedEvent struct {
	DuelID       int64
	ChallengerID int64
	OpponentID   int64
	WinnerID     int64
	Pot          int64
	Cancelled    bool
}

func (e DuelResolvedEvent) Type() EventType {
	return EventTypeDuelResolved
}

// ParlayPlacedEvent represents a parlay that was placed
type ParlayPlacedEvent struct {
	UserID    int64
	ParlayID  int64
	Amount    int64
	TotalOdds float64
	LegCount  int
}

func (e ParlayPlacedEvent) Type() EventType {
	return EventTypeParlayPlaced
}

// ParlayResolvedEvent represents a parlay reaching a terminal state
type ParlayResolvedEvent struct {
	UserID   int64
	ParlayID int64
	Status   models.ParlayStatus
	Payout   int64
}

func (e ParlayResolvedEvent) Type() EventType {
	return EventTypeParlayResolved
}

// DailyClaimedEvent represents a daily reward claim
type DailyClaimedEvent struct {
	UserID int64
	Amount int64
	First  bool
}

func (e DailyClaimedEvent) Type() EventType {
	return EventTypeDailyClaimed
}

// TransferMadeEvent represents a completed points transfer
type TransferMadeEvent struct {
	FromUserID int64
	ToUserID   int64
	Amount     int64
}

func (e TransferMadeEvent) Type() EventType {
	return EventTypeTransferMade
}

// TournamentFinishedEvent fires once when a tournament transitions to finished
type TournamentFinishedEvent struct {
	TournamentID     int64
	GuildID          int64
	ParticipantCount int
	// Podium holds the discord IDs of the top three, best first
	Podium []int64
}

func (e TournamentFinishedEvent) Type() EventType {
	return EventTypeTournamentFinished
}

// Handler is a function that handles events
type Handler func(ctx context.Context, event Event)

// Bus manages event subscriptions and dispatching
type Bus struct {
	mu       sync.RWMutex
	handlers map[EventType][]Handler
}

// NewBus creates a new event bus
func NewBus() *Bus {
	return &Bus{
		handlers: make(map[EventType][]Handler),
	}
}

// Subscribe adds a handler for a specific event type
func (b *Bus) Subscribe(eventType EventType, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.handlers[eventType] = append(b.handlers[eventType], handler)

	log.WithFields(log.Fields{
		"eventType":    eventType,
		"handlerCount": len(b.handlers[eventType]),
	}).Debug("Subscribed handler to event type")
}

// Emit publishes an event to all registered handlers
func (b *Bus) Emit(ctx context.Context, event Event) {
	b.mu.RLock()
	handlers := make([]Handler, len(b.handlers[event.Type()]))
	copy(handlers, b.handlers[event.Type()])
	b.mu.RUnlock()

	// Call handlers asynchronously to avoid blocking the caller. A handler
	// failure (including the achievement evaluator) must never propagate.
	for i, handler := range handlers {
		go func(h Handler, handlerIndex int) {
			defer func() {
				if r := recover(); r != nil {
					log.WithFields(log.Fields{
						"eventType":    event.Type(),
						"handlerIndex": handlerIndex,
						"panic":        r,
					}).Error("Event handler panicked")
				}
			}()
			h(ctx, event)
		}(handler, i)
	}
}

// TransactionalBus stashes events raised inside a unit of work and forwards
// them to the real bus only after the database commit succeeds.
type TransactionalBus struct {
	real    *Bus
	pending []Event
}

func NewTransactionalBus(real *Bus) *TransactionalBus {
	return &TransactionalBus{real: real}
}

func (b *TransactionalBus) Publish(e Event) {
	b.pending = append(b.pending, e)
}

// Flush is called after a successful DB commit. Events are emitted on a
// background context since they outlive the transaction's lifecycle.
func (b *TransactionalBus) Flush(ctx context.Context) error {
	eventCtx := context.Background()
	for _, ev := range b.pending {
		b.real.Emit(eventCtx, ev)
	}
	b.pending = nil
	return nil
}

// Discard is called after rollback to drop staged events.
func (b *TransactionalBus) Discard() {
	b.pending = nil
}
