package app

import (
	"context"
	"time"

	"docsnap/internal/docsnap"
)

// Scheduler runs one health check at start and, when the store is healthy,
// a backup after InitialDelay and then every Interval. Operations run on the
// calling goroutine, so they never overlap.
type Scheduler struct {
	Interval     time.Duration
	InitialDelay time.Duration
	// Timeout bounds each check and backup. Zero means no limit.
	Timeout time.Duration
	// Check and Backup are the operations to run. Errors are logged by the callee.
	Check  func(ctx context.Context) docsnap.HealthReport
	Backup func(ctx context.Context) error
	Logger docsnap.Logger

	// after is time.After, replaceable in tests.
	after func(time.Duration) <-chan time.Time
}

// Run blocks until ctx is done. It returns without scheduling backups when
// the initial check leaves the store unhealthy.
func (s *Scheduler) Run(ctx context.Context) error {
	after := s.after
	if after == nil {
		after = time.After
	}

	checkCtx, cancel := s.operationContext(ctx)
	report := s.Check(checkCtx)
	cancel()
	if report.Status != docsnap.Healthy {
		s.Logger.Error("store unhealthy, backups not scheduled", "reason", report.Reason)
		return ErrUnhealthy
	}

	s.Logger.Info("backups scheduled", "initial_delay", s.InitialDelay.String(), "interval", s.Interval.String())
	wait := s.InitialDelay
	for {
		select {
		case <-ctx.Done():
			s.Logger.Info("scheduler stopped")
			return nil
		case <-after(wait):
		}

		opCtx, cancel := s.operationContext(ctx)
		err := s.Backup(opCtx)
		cancel()
		if err != nil {
			s.Logger.Error("scheduled backup failed", "error", err)
		}
		wait = s.Interval
	}
}

// operationContext derives the context for one scheduled operation, so a
// hung backup cannot hold up the ones after it.
func (s *Scheduler) operationContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.Timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.Timeout)
}
