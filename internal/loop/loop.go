// Package loop runs a periodic task until its context is cancelled.
package loop

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"swap-sentinel/logging"
	"swap-sentinel/metrics"
)

// Task is one iteration of a loop
type Task func(ctx context.Context) error

// Loop schedules Task every Interval. The next run is scheduled after the
// previous one returns, so runs never overlap. A failed or panicking run
// is retried after Backoff.
type Loop struct {
	Name     string
	Interval time.Duration
	Backoff  time.Duration
	Task     Task
	Logger   logging.LoggerInterface
	OnError  func(name string, err error)
}

// Run blocks until ctx is done and returns ctx.Err()
func (l *Loop) Run(ctx context.Context) error {
	logger := l.Logger
	if logger == nil {
		logger = logging.NopLogger{}
	}
	logger.Info("Starting %s loop (every %v)", l.Name, l.Interval)
	defer logger.Info("%s loop stopped", l.Name)

	for {
		wait := l.Interval
		if err := l.runOnce(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			metrics.LoopErrors.WithLabelValues(l.Name).Inc()
			if l.OnError != nil {
				l.OnError(l.Name, err)
			}
			logger.Error("%s loop iteration failed: %v", l.Name, err)
			if l.Backoff > 0 {
				wait = l.Backoff
			}
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

func (l *Loop) runOnce(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v\n%s", r, debug.Stack())
		}
	}()
	return l.Task(ctx)
}
