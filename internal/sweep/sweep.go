// Package sweep expires artifacts whose reuse window has closed. The sweep
// transitions rows to expired rather than deleting them; the stats surface
// keeps counting them.
package sweep

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"tuneforge/internal/domain"
	"tuneforge/internal/infra"
)

// DefaultSchedule runs the sweep hourly, matching the artifact TTL's
// day-scale granularity.
const DefaultSchedule = "@hourly"

type Sweeper struct {
	store    domain.ArtifactStore
	schedule string
	logger   infra.Logger
}

// New validates the cron schedule up front so a bad config fails at boot,
// not at the first tick.
func New(store domain.ArtifactStore, schedule string, logger infra.Logger) (*Sweeper, error) {
	if schedule == "" {
		schedule = DefaultSchedule
	}
	if _, err := cron.ParseStandard(schedule); err != nil {
		return nil, fmt.Errorf("sweep: invalid schedule %q: %w", schedule, err)
	}
	return &Sweeper{store: store, schedule: schedule, logger: logger}, nil
}

// RunOnce expires everything past its window and reports the count.
func (s *Sweeper) RunOnce(ctx context.Context) (int64, error) {
	expired, err := s.store.Sweep(ctx, time.Now().UTC())
	if err != nil {
		return 0, fmt.Errorf("sweep: %w", err)
	}
	if expired > 0 {
		s.logger.Info().Int64("expired", expired).Msg("sweep: artifacts expired")
	} else {
		s.logger.Debug().Msg("sweep: nothing to expire")
	}
	return expired, nil
}

// Run schedules RunOnce on the configured cadence and blocks until ctx is
// cancelled. An in-flight sweep finishes before Run returns.
func (s *Sweeper) Run(ctx context.Context) error {
	c := cron.New()
	_, err := c.AddFunc(s.schedule, func() {
		if _, err := s.RunOnce(ctx); err != nil {
			s.logger.Error().Err(err).Msg("sweep: run failed")
		}
	})
	if err != nil {
		return fmt.Errorf("sweep: schedule job: %w", err)
	}
	c.Start()
	s.logger.Info().Str("schedule", s.schedule).Msg("sweep: scheduler started")

	<-ctx.Done()
	<-c.Stop().Done()
	return ctx.Err()
}
