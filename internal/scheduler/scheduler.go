// Package scheduler triggers check cycles on a cron schedule.
package scheduler

import (
	"context"
	"errors"
	"fmt"

	"github.com/abdusco/linkwatch/internal"
	"github.com/abdusco/linkwatch/internal/logger"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"github.com/samber/lo"
)

type Runner interface {
	Run(ctx context.Context) ([]internal.CheckResult, error)
}

type Scheduler struct {
	cron   *cron.Cron
	runner Runner
	ctx    context.Context
	log    zerolog.Logger
}

// New parses schedule (standard five-field cron, or descriptors such as
// "@every 1h") and registers the check cycle under it.
func New(ctx context.Context, schedule string, runner Runner) (*Scheduler, error) {
	s := &Scheduler{
		cron:   cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		runner: runner,
		ctx:    ctx,
		log:    logger.With("component", "scheduler", "schedule", schedule),
	}

	if _, err := s.cron.AddFunc(schedule, s.tick); err != nil {
		return nil, fmt.Errorf("invalid check schedule %q: %w", schedule, err)
	}
	return s, nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info().Int("entries", len(s.cron.Entries())).Msg("check scheduler started")
}

// Stop halts scheduling and waits for a running cycle to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.log.Info().Msg("check scheduler stopped")
}

func (s *Scheduler) tick() {
	results, err := s.runner.Run(s.ctx)
	if errors.Is(err, internal.ErrNoLinks) {
		s.log.Debug().Msg("scheduled check skipped, no links registered")
		return
	}
	if err != nil {
		s.log.Error().Err(err).Msg("scheduled check failed")
		return
	}

	for _, r := range lo.Filter(results, func(r internal.CheckResult, _ int) bool { return r.Changed }) {
		s.log.Info().Str("url", r.URL).Str("summary", r.Summary).Msg("change detected")
	}
}
