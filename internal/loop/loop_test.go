package loop

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestRunStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var runs atomic.Int32
	l := &Loop{Name: "test", Interval: 5 * time.Millisecond, Task: func(context.Context) error {
		if runs.Add(1) == 3 {
			cancel()
		}
		return nil
	}}
	if err := l.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if runs.Load() != 3 {
		t.Fatalf("expected 3 runs, got %d", runs.Load())
	}
}

func TestRunRecoversPanicsAndBacksOff(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	var (
		mu     sync.Mutex
		errs   []error
		runs   int
		active atomic.Int32
	)
	l := &Loop{
		Name:     "test",
		Interval: time.Hour,
		Backoff:  time.Millisecond,
		Task: func(context.Context) error {
			if active.Add(1) != 1 {
				t.Errorf("runs overlapped")
			}
			defer active.Add(-1)
			mu.Lock()
			runs++
			n := runs
			mu.Unlock()
			switch n {
			case 1:
				panic("boom")
			case 2:
				return errors.New("gateway down")
			default:
				cancel()
				return nil
			}
		},
		OnError: func(_ string, err error) {
			mu.Lock()
			errs = append(errs, err)
			mu.Unlock()
		},
	}
	_ = l.Run(ctx)

	mu.Lock()
	defer mu.Unlock()
	if runs != 3 {
		t.Fatalf("expected 3 runs, got %d", runs)
	}
	if len(errs) != 2 || !strings.Contains(errs[0].Error(), "panic: boom") {
		t.Fatalf("unexpected errors: %v", errs)
	}
}
