// Package workers runs the periodic background jobs: expiring stale quote
// sessions and advancing tournament lifecycles whose deadlines have passed.
package workers

import (
	"context"
	"time"

	"github.com/go-co-op/gocron/v2"
	log "github.com/sirupsen/logrus"

	"scrimbet/service"
)

const (
	sessionSweepInterval    = 30 * time.Second
	tournamentSweepInterval = time.Minute
)

// Sweeper owns the background scheduler
type Sweeper struct {
	scheduler   gocron.Scheduler
	sessions    *service.SessionStore
	tournaments service.TournamentService
}

// NewSweeper creates the background sweeper
func NewSweeper(sessions *service.SessionStore, tournaments service.TournamentService) (*Sweeper, error) {
	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}
	return &Sweeper{
		scheduler:   scheduler,
		sessions:    sessions,
		tournaments: tournaments,
	}, nil
}

// Start registers the jobs and runs the scheduler until Stop is called
func (s *Sweeper) Start(ctx context.Context) error {
	_, err := s.scheduler.NewJob(
		gocron.DurationJob(sessionSweepInterval),
		gocron.NewTask(func() {
			if removed := s.sessions.Sweep(); removed > 0 {
				log.WithField("removed", removed).Debug("Swept expired quote sessions")
			}
		}),
	)
	if err != nil {
		return err
	}

	_, err = s.scheduler.NewJob(
		gocron.DurationJob(tournamentSweepInterval),
		gocron.NewTask(func() {
			if err := s.tournaments.TransitionDue(ctx); err != nil {
				log.WithError(err).Error("Tournament lifecycle sweep failed")
			}
		}),
	)
	if err != nil {
		return err
	}

	s.scheduler.Start()
	log.Info("Background sweeper started")
	return nil
}

// Stop shuts the scheduler down, waiting for running jobs to finish
func (s *Sweeper) Stop() error {
	return s.scheduler.Shutdown()
}
