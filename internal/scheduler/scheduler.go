// Package scheduler drives the polling front end: one review cycle every
// interval, with overlapping ticks skipped.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jwkim-dev/gitlab-mr-reviewer/internal/logger"
	"github.com/robfig/cron/v3"
)

// Cycle is one full poll pass over the project's open merge requests.
type Cycle func(ctx context.Context) error

// Scheduler wraps the cron runner.
type Scheduler struct {
	cron     *cron.Cron
	interval time.Duration
}

// New builds a scheduler that runs cycle every interval. A tick that
// fires while the previous cycle is still running is skipped, not queued.
func New(ctx context.Context, interval time.Duration, cycle Cycle) (*Scheduler, error) {
	cl := cronLogger{ctx: ctx}
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cl)))

	spec := fmt.Sprintf("@every %s", interval)
	_, err := c.AddFunc(spec, func() {
		if err := cycle(ctx); err != nil {
			logger.Error(ctx, "poll cycle failed", err)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("scheduling poll cycle: %w", err)
	}

	return &Scheduler{cron: c, interval: interval}, nil
}

// Start begins ticking in the background.
func (s *Scheduler) Start(ctx context.Context) {
	logger.Info(ctx, "poll scheduler started", "interval", s.interval.String())
	s.cron.Start()
}

// Stop halts scheduling and waits for a running cycle to finish.
func (s *Scheduler) Stop(ctx context.Context) {
	stopped := s.cron.Stop()
	select {
	case <-stopped.Done():
		logger.Info(ctx, "poll scheduler stopped")
	case <-ctx.Done():
		logger.Warn(ctx, "poll scheduler stop timed out with a cycle still running")
	}
}

// cronLogger adapts slog to the cron.Logger interface. Skipped-tick
// notices arrive through Info.
type cronLogger struct {
	ctx context.Context
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	logger.Debug(l.ctx, "cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	keysAndValues = append(keysAndValues, slog.Any("error", err))
	logger.FromContext(l.ctx).Error("cron: "+msg, keysAndValues...)
}
