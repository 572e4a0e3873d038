package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var parser = cron.NewParser(
	cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// ParseSchedule parses a six-field cron expression (seconds first) or a descriptor
// such as "@every 5m".
func ParseSchedule(spec string) (cron.Schedule, error) {
	sched, err := parser.Parse(spec)
	if err != nil {
		return nil, fmt.Errorf("parse schedule %q: %w", spec, err)
	}
	return sched, nil
}

// Scheduler triggers a polling cycle at every schedule boundary.
type Scheduler struct {
	schedule   cron.Schedule
	clock      Clock
	orch       *Orchestrator
	runOnStart bool
	logger     zerolog.Logger
}

// NewScheduler creates a Scheduler for the cron expression spec.
func NewScheduler(spec string, clock Clock, orch *Orchestrator, runOnStart bool) (*Scheduler, error) {
	sched, err := ParseSchedule(spec)
	if err != nil {
		return nil, err
	}
	if clock == nil {
		clock = RealClock()
	}
	return &Scheduler{
		schedule:   sched,
		clock:      clock,
		orch:       orch,
		runOnStart: runOnStart,
		logger:     log.With().Str("component", "scheduler").Logger(),
	}, nil
}

// Next returns the first boundary strictly after t.
func (s *Scheduler) Next(t time.Time) time.Time {
	return s.schedule.Next(t)
}

// Run blocks until ctx is cancelled. Each cycle is stamped with its boundary time, so
// a cycle never overlaps the next one: the following boundary is computed after it ends.
func (s *Scheduler) Run(ctx context.Context) {
	s.logger.Info().Msg("scheduler started")
	defer s.logger.Info().Msg("scheduler stopped")

	if s.runOnStart {
		s.orch.RunCycle(ctx, s.clock.Now())
	}

	for {
		now := s.clock.Now()
		next := s.schedule.Next(now)
		s.logger.Debug().Time("next", next).Msg("waiting for next cycle")

		select {
		case <-ctx.Done():
			return
		case <-s.clock.After(next.Sub(now)):
		}
		if ctx.Err() != nil {
			return
		}
		s.orch.RunCycle(ctx, next)
	}
}
