// Package scheduler re-runs scans on a cron schedule. Each tick starts a full
// scan; nothing is carried from one run to the next.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Job is one scheduled run.
type Job func(ctx context.Context) error

// Scheduler triggers a Job on a cron expression. A tick that fires while the
// previous run is still going is skipped.
type Scheduler struct {
	cron  *cron.Cron
	sched cron.Schedule
	job   Job
	log   zerolog.Logger
}

// New parses expr (standard five-field cron or a descriptor such as
// "@every 6h") evaluated in loc.
func New(expr string, loc *time.Location, job Job, log zerolog.Logger) (*Scheduler, error) {
	if job == nil {
		return nil, errors.New("job must not be nil")
	}
	if loc == nil {
		loc = time.Local
	}
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	sched, err := parser.Parse(expr)
	if err != nil {
		return nil, fmt.Errorf("parse schedule %q: %w", expr, err)
	}
	c := cron.New(
		cron.WithLocation(loc),
		cron.WithParser(parser),
		cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
	)
	return &Scheduler{cron: c, sched: sched, job: job, log: log}, nil
}

// Next returns the first activation after t.
func (s *Scheduler) Next(t time.Time) time.Time {
	return s.sched.Next(t)
}

// Run blocks until ctx is done, running the job on every tick. It waits for
// an in-flight run to return before exiting.
func (s *Scheduler) Run(ctx context.Context) error {
	s.cron.Schedule(s.sched, cron.FuncJob(func() {
		started := time.Now()
		s.log.Info().Msg("scheduled scan starting")
		if err := s.job(ctx); err != nil {
			s.log.Error().Err(err).Msg("scheduled scan failed")
			return
		}
		s.log.Info().Dur("took", time.Since(started)).Time("next", s.Next(time.Now())).Msg("scheduled scan finished")
	}))
	s.log.Info().Time("next", s.Next(time.Now())).Msg("scheduler started")
	s.cron.Start()

	<-ctx.Done()
	<-s.cron.Stop().Done()
	return nil
}
