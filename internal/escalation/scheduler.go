package escalation

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"

	"github.com/gosuda/frontdesk/internal/domain"
)

// cronParser accepts standard 5-field expressions, an optional leading
// seconds field, and descriptors such as "@every 1m".
var cronParser = cron.NewParser( //nolint:gochecknoglobals // immutable parser
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// Scheduler runs Sweep on a cron schedule inside the server process.
type Scheduler struct {
	sweeper   *Sweeper
	schedule  string
	threshold time.Duration
	cron      *cron.Cron
}

// NewScheduler validates schedule. Overlapping runs are skipped.
func NewScheduler(sweeper *Sweeper, schedule string, threshold time.Duration) (*Scheduler, error) {
	if _, err := cronParser.Parse(schedule); err != nil {
		return nil, fmt.Errorf("escalation.NewScheduler: invalid schedule %q: %w", schedule, err)
	}
	if threshold <= 0 {
		return nil, fmt.Errorf("escalation.NewScheduler: %w: threshold must be positive", domain.ErrInvalidArgument)
	}

	s := &Scheduler{
		sweeper:   sweeper,
		schedule:  schedule,
		threshold: threshold,
		cron: cron.New(
			cron.WithParser(cronParser),
			cron.WithChain(cron.Recover(cron.DiscardLogger), cron.SkipIfStillRunning(cron.DiscardLogger)),
		),
	}
	return s, nil
}

// Run starts the cron ticker and blocks until ctx is done, then waits for a
// running sweep to finish.
func (s *Scheduler) Run(ctx context.Context) error {
	_, err := s.cron.AddFunc(s.schedule, func() { s.RunOnce(ctx) })
	if err != nil {
		return fmt.Errorf("escalation.Scheduler.Run: %w", err)
	}

	log.Info().Str("schedule", s.schedule).Str("threshold", s.threshold.String()).Msg("sweep scheduler started")
	s.cron.Start()

	<-ctx.Done()
	<-s.cron.Stop().Done()
	log.Info().Msg("sweep scheduler stopped")
	return nil
}

// RunOnce performs one sweep and logs the outcome.
func (s *Scheduler) RunOnce(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	res, err := s.sweeper.Sweep(ctx, s.threshold, false)
	if err != nil {
		log.Error().Err(err).Msg("scheduled sweep failed")
		return
	}
	log.Debug().
		Str("outcome", res.Outcome().String()).
		Int("count", len(res.Updated)).
		Msg("scheduled sweep finished")
}
