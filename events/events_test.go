package events

import (
	"context"
	"sync"
	"testing"
	"time"

	"scrimbet/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestTransactionalBusDelivery tests the complete event flow from
// TransactionalBus to the main Bus
func TestTransactionalBusDelivery(t *testing.T) {
	mainBus := NewBus()
	transactionalBus := NewTransactionalBus(mainBus)

	eventReceived := make(chan BalanceChangeEvent, 1)
	var wg sync.WaitGroup
	wg.Add(1)

	mainBus.Subscribe(EventTypeBalanceChange, func(ctx context.Context, event Event) {
		defer wg.Done()
		if balanceEvent, ok := event.(BalanceChangeEvent); ok {
			eventReceived <- balanceEvent
		} else {
			t.Errorf("Expected BalanceChangeEvent, got %T", event)
		}
	})

	staged := BalanceChangeEvent{
		UserID:          123456,
		OldBalance:      1000,
		NewBalance:      1900,
		TransactionType: models.TransactionTypeBetWin,
		ChangeAmount:    900,
	}
	transactionalBus.Publish(staged)

	// Nothing reaches the main bus before the commit flush
	select {
	case <-eventReceived:
		t.Fatal("Event delivered before Flush")
	case <-time.After(50 * time.Millisecond):
	}

	require.NoError(t, transactionalBus.Flush(context.Background()))
	wg.Wait()

	select {
	case got := <-eventReceived:
		assert.Equal(t, staged, got)
	case <-time.After(time.Second):
		t.Fatal("Event never delivered after Flush")
	}
}

func TestTransactionalBusDiscard(t *testing.T) {
	mainBus := NewBus()
	transactionalBus := NewTransactionalBus(mainBus)

	delivered := make(chan Event, 1)
	mainBus.Subscribe(EventTypeBetPlaced, func(ctx context.Context, event Event) {
		delivered <- event
	})

	transactionalBus.Publish(BetPlacedEvent{UserID: 123456, BetID: 7, Amount: 500, Odds: 1.8})
	transactionalBus.Discard()
	require.NoError(t, transactionalBus.Flush(context.Background()))

	select {
	case <-delivered:
		t.Fatal("Discarded event was delivered")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestBusFanout(t *testing.T) {
	bus := NewBus()

	var wg sync.WaitGroup
	wg.Add(2)
	var mu sync.Mutex
	calls := 0
	handler := func(ctx context.Context, event Event) {
		defer wg.Done()
		mu.Lock()
		calls++
		mu.Unlock()
	}
	bus.Subscribe(EventTypeDuelResolved, handler)
	bus.Subscribe(EventTypeDuelResolved, handler)
	// Unrelated subscription must not fire
	bus.Subscribe(EventTypeBetPlaced, func(ctx context.Context, event Event) {
		t.Error("Wrong event type dispatched")
	})

	bus.Emit(context.Background(), DuelResolvedEvent{DuelID: 5, ChallengerID: 100, OpponentID: 200, WinnerID: 100})
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 2, calls)
}

func TestBusHandlerPanicIsContained(t *testing.T) {
	bus := NewBus()

	var wg sync.WaitGroup
	wg.Add(2)
	bus.Subscribe(EventTypeBetResolved, func(ctx context.Context, event Event) {
		defer wg.Done()
		panic("handler exploded")
	})
	survived := false
	var mu sync.Mutex
	bus.Subscribe(EventTypeBetResolved, func(ctx context.Context, event Event) {
		defer wg.Done()
		mu.Lock()
		survived = true
		mu.Unlock()
	})

	bus.Emit(context.Background(), BetResolvedEvent{UserID: 100, BetID: 1, Status: models.BetStatusWon, Payout: 900})
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	assert.True(t, survived)
}
