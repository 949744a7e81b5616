package repository

import (
	"context"
	"fmt"

	"scrimbet/database"
	"scrimbet/events"
	"scrimbet/service"

	"github.com/jackc/pgx/v5"
)

// unitOfWork implements the service.UnitOfWork interface
type unitOfWork struct {
	db               *database.DB
	tx               pgx.Tx
	ctx              context.Context
	transactionalBus *events.TransactionalBus
	userRepo         service.UserRepository
	historyRepo      service.BalanceHistoryRepository
	matchRepo        service.MatchRepository
	betRepo          service.BetRepository
	duelRepo         service.DuelRepository
	parlayRepo       service.ParlayRepository
	tournamentRepo   service.TournamentRepository
	titleRepo        service.TitleRepository
}

type unitOfWorkFactory struct {
	db       *database.DB
	eventBus *events.Bus
}

// NewUnitOfWorkFactory creates a new UnitOfWork factory
func NewUnitOfWorkFactory(db *database.DB, eventBus *events.Bus) service.UnitOfWorkFactory {
	return &unitOfWorkFactory{
		db:       db,
		eventBus: eventBus,
	}
}

func (f *unitOfWorkFactory) Create() service.UnitOfWork {
	return &unitOfWork{
		db:               f.db,
		transactionalBus: events.NewTransactionalBus(f.eventBus),
	}
}

// Begin starts a new transaction
func (u *unitOfWork) Begin(ctx context.Context) error {
	if u.tx != nil {
		return fmt.Errorf("transaction already started")
	}

	tx, err := u.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	u.tx = tx
	u.ctx = ctx

	// Create repositories bound to the transaction
	u.userRepo = newUserRepositoryWithTx(tx)
	u.historyRepo = newBalanceHistoryRepositoryWithTx(tx)
	u.matchRepo = newMatchRepositoryWithTx(tx)
	u.betRepo = newBetRepositoryWithTx(tx)
	u.duelRepo = newDuelRepositoryWithTx(tx)
	u.parlayRepo = newParlayRepositoryWithTx(tx)
	u.tournamentRepo = newTournamentRepositoryWithTx(tx)
	u.titleRepo = newTitleRepositoryWithTx(tx)

	return nil
}

// Commit commits the transaction and flushes staged events
func (u *unitOfWork) Commit() error {
	if u.tx == nil {
		return fmt.Errorf("no transaction to commit")
	}

	if err := u.tx.Commit(u.ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	u.tx = nil

	if u.transactionalBus != nil {
		u.transactionalBus.Flush(u.ctx)
	}

	return nil
}

// Rollback rolls back the transaction and discards staged events
func (u *unitOfWork) Rollback() error {
	if u.tx == nil {
		return nil // Nothing to rollback
	}

	err := u.tx.Rollback(u.ctx)
	if err != nil && err != pgx.ErrTxClosed {
		return fmt.Errorf("failed to rollback transaction: %w", err)
	}

	u.tx = nil

	if u.transactionalBus != nil {
		u.transactionalBus.Discard()
	}

	return nil
}

func (u *unitOfWork) UserRepository() service.UserRepository {
	if u.userRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.userRepo
}

func (u *unitOfWork) BalanceHistoryRepository() service.BalanceHistoryRepository {
	if u.historyRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.historyRepo
}

func (u *unitOfWork) MatchRepository() service.MatchRepository {
	if u.matchRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.matchRepo
}

func (u *unitOfWork) BetRepository() service.BetRepository {
	if u.betRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.betRepo
}

func (u *unitOfWork) DuelRepository() service.DuelRepository {
	if u.duelRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.duelRepo
}

func (u *unitOfWork) ParlayRepository() service.ParlayRepository {
	if u.parlayRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.parlayRepo
}

func (u *unitOfWork) TournamentRepository() service.TournamentRepository {
	if u.tournamentRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.tournamentRepo
}

func (u *unitOfWork) TitleRepository() service.TitleRepository {
	if u.titleRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.titleRepo
}

func (u *unitOfWork) EventBus() service.EventPublisher {
	if u.transactionalBus == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.transactionalBus
}
