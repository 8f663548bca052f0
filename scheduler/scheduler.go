// Package scheduler runs status reconciliation, and optionally fulfillment
// of entries still missing from the library, on a cron schedule.
package scheduler

import (
	"context"
	"fmt"
	"sync"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/s0up4200/watcharr/fulfillment"
	"github.com/s0up4200/watcharr/media"
	"github.com/s0up4200/watcharr/reconcile"
)

// Reconciler refreshes every watchlist entry
type Reconciler interface {
	ReconcileAll(ctx context.Context) (*reconcile.Result, error)
}

// Fulfiller submits entries to their backends
type Fulfiller interface {
	Submit(ctx context.Context, entries []media.Entry) (*fulfillment.Result, error)
}

// Option configures a Scheduler
type Option func(*Scheduler)

// WithFulfiller submits entries that are not in the library after every
// reconciliation
func WithFulfiller(f Fulfiller) Option {
	return func(s *Scheduler) {
		s.fulfiller = f
	}
}

// Scheduler manages the periodic reconciliation job
type Scheduler struct {
	cron       *cron.Cron
	schedule   string
	reconciler Reconciler
	fulfiller  Fulfiller
	logger     zerolog.Logger

	running sync.Mutex
	ctx     context.Context
}

// New creates a scheduler for the given cron schedule
func New(schedule string, reconciler Reconciler, logger zerolog.Logger, opts ...Option) *Scheduler {
	cronLogger := cronLogger{logger: logger}

	s := &Scheduler{
		cron:       cron.New(cron.WithLogger(cronLogger), cron.WithChain(cron.SkipIfStillRunning(cronLogger))),
		schedule:   schedule,
		reconciler: reconciler,
		logger:     logger,
		ctx:        context.Background(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start registers the job, starts the scheduler and runs one pass right away.
// Passes stop being started once ctx is done.
func (s *Scheduler) Start(ctx context.Context) error {
	s.ctx = ctx

	if _, err := s.cron.AddFunc(s.schedule, s.Run); err != nil {
		return fmt.Errorf("failed to add reconcile job: %w", err)
	}

	s.cron.Start()
	s.logger.Info().Str("schedule", s.schedule).Msg("Scheduler started")

	go s.Run()
	return nil
}

// Stop stops the scheduler and waits for a running pass to finish
func (s *Scheduler) Stop() {
	s.logger.Info().Msg("Stopping scheduler")
	<-s.cron.Stop().Done()

	// Wait for the initial pass, which cron does not track
	s.running.Lock()
	defer s.running.Unlock()
}

// Run executes one reconciliation pass. Overlapping passes are skipped.
func (s *Scheduler) Run() {
	if !s.running.TryLock() {
		s.logger.Debug().Msg("Previous pass still running, skipping")
		return
	}
	defer s.running.Unlock()

	ctx := s.ctx
	if ctx.Err() != nil {
		return
	}

	s.logger.Info().Msg("Running scheduled reconciliation")
	result, err := s.reconciler.ReconcileAll(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("Reconciliation job failed")
		return
	}

	if s.fulfiller == nil {
		return
	}

	var missing []media.Entry
	for _, entry := range result.Entries {
		if entry.Status.State == media.StateNotInLibrary {
			missing = append(missing, entry)
		}
	}
	if len(missing) == 0 {
		s.logger.Debug().Msg("Nothing to fulfill")
		return
	}

	submitted, err := s.fulfiller.Submit(ctx, missing)
	if err != nil {
		s.logger.Error().Err(err).Msg("Fulfillment job interrupted")
	}
	if submitted != nil {
		s.logger.Info().
			Int("succeeded", len(submitted.Succeeded)).
			Int("failed", len(submitted.Failed)).
			Msg("Fulfillment job completed")
	}
}

// cronLogger adapts zerolog to cron.Logger
type cronLogger struct {
	logger zerolog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug().Fields(keysAndValues).Msg("cron: " + msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error().Err(err).Fields(keysAndValues).Msg("cron: " + msg)
}
