package orchestrators

import (
	"context"
	"fmt"
	"time"

	"github.com/adhocore/gronx"
	"go.uber.org/zap"
)

// DefaultSweepCron runs the session sweep every 15 minutes.
const DefaultSweepCron = "*/15 * * * *"

// SessionSweeper removes expired session values.
type SessionSweeper interface {
	Sweep(ctx context.Context, now time.Time) (int, error)
}

// SweepSessionsDeps holds dependencies for the session sweep.
type SweepSessionsDeps struct {
	Store  SessionSweeper
	Logger *zap.Logger
	Now    func() time.Time
}

func (d SweepSessionsDeps) withDefaults() SweepSessionsDeps {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	return d
}

// ExecuteSweepSessions removes every session value that expired by now.
// PRE: deps.Store is non-nil
// POST: Returns the number of values removed
func ExecuteSweepSessions(ctx context.Context, deps SweepSessionsDeps) (int, error) {
	deps = deps.withDefaults()
	start := deps.Now()

	removed, err := deps.Store.Sweep(ctx, start)
	if err != nil {
		return 0, fmt.Errorf("sweep sessions: %w", err)
	}
	deps.Logger.Info("sessions_swept",
		zap.Int("removed", removed),
		zap.Duration("took", time.Since(start)),
	)
	return removed, nil
}

// StartSweeper runs ExecuteSweepSessions on the cron schedule cronExpr until
// ctx is cancelled or the returned stop func is called. An empty expression
// means DefaultSweepCron.
// PRE: cronExpr is a valid cron expression
// POST: Scheduler goroutine running; stop blocks until it has exited
func StartSweeper(ctx context.Context, cronExpr string, deps SweepSessionsDeps) (stop func(), err error) {
	if cronExpr == "" {
		cronExpr = DefaultSweepCron
	}
	if !gronx.IsValid(cronExpr) {
		return nil, fmt.Errorf("invalid sweep cron expression: %q", cronExpr)
	}
	deps = deps.withDefaults()

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		runSweeper(ctx, cronExpr, deps)
	}()

	deps.Logger.Info("sweeper_started", zap.String("cron", cronExpr))
	return func() {
		cancel()
		<-done
	}, nil
}

// runSweeper sleeps until each next cron tick and sweeps.
func runSweeper(ctx context.Context, cronExpr string, deps SweepSessionsDeps) {
	for {
		next, err := nextSweep(cronExpr, deps.Now())
		wait := time.Until(next)
		if err != nil {
			deps.Logger.Error("sweeper_nexttick_failed", zap.String("cron", cronExpr), zap.Error(err))
			wait = 30 * time.Second
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			deps.Logger.Info("sweeper_stopping")
			return
		case <-timer.C:
		}
		if err != nil {
			continue
		}

		if _, err := ExecuteSweepSessions(ctx, deps); err != nil {
			deps.Logger.Error("sweep_failed", zap.Error(err))
		}
	}
}

func nextSweep(cronExpr string, now time.Time) (time.Time, error) {
	return gronx.NextTickAfter(cronExpr, now.UTC(), false)
}
