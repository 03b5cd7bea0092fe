package relay

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

const DefaultPollInterval = 10 * time.Second

// Loop runs coordinator passes on a fixed interval until ctx is done.
type Loop struct {
	coordinator *Coordinator
	interval    time.Duration
	logger      *slog.Logger
	afterPass   func()
}

func NewLoop(coordinator *Coordinator, interval time.Duration, logger *slog.Logger) *Loop {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Loop{coordinator: coordinator, interval: interval, logger: logger}
}

// Run blocks until ctx is cancelled. A pass that panics is logged and the
// loop carries on with the next interval.
func (l *Loop) Run(ctx context.Context) error {
	l.logger.Info("relay_loop_start", "interval", l.interval.String())
	for {
		l.runOnce(ctx)
		if l.afterPass != nil {
			l.afterPass()
		}
		if err := sleepWithContext(ctx, l.interval); err != nil {
			l.logger.Info("relay_loop_stop")
			return nil
		}
	}
}

func (l *Loop) runOnce(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.Error("relay_pass_panic", "error", fmt.Sprint(r))
		}
	}()
	l.coordinator.RunPass(ctx)
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
