package strategy

import (
	"fmt"
	"sync"
	"time"

	"swap-sentinel/config"
	"swap-sentinel/internal/constants"
)

// OpenCounter reports how many positions are open
type OpenCounter interface {
	Count() int
}

// Throttle limits how often new positions are opened
type Throttle struct {
	MaxTradesPerHour int
	CoolDown         time.Duration
	MaxOpen          int
	EnforceMaxOpen   bool
	Open             OpenCounter

	mu     sync.Mutex
	trades []time.Time
	now    func() time.Time
}

// NewThrottle creates a throttle from the configured limits
func NewThrottle(cfg *config.Config, open OpenCounter) *Throttle {
	return &Throttle{
		MaxTradesPerHour: cfg.MaxTradesPerHour,
		CoolDown:         cfg.CoolDown,
		MaxOpen:          cfg.MaxOpenPositions,
		EnforceMaxOpen:   cfg.EnforceMaxOpen,
		Open:             open,
		now:              time.Now,
	}
}

// CanTrade reports whether a new entry is allowed now
func (th *Throttle) CanTrade() bool {
	ok, _ := th.Check()
	return ok
}

// Check is CanTrade with the reason for a denial
func (th *Throttle) Check() (bool, string) {
	th.mu.Lock()
	defer th.mu.Unlock()

	now := th.now()
	th.prune(now)

	if len(th.trades) >= th.MaxTradesPerHour {
		return false, fmt.Sprintf("%d trades in the last hour (max %d)", len(th.trades), th.MaxTradesPerHour)
	}
	if n := len(th.trades); n > 0 {
		if since := now.Sub(th.trades[n-1]); since < th.CoolDown {
			return false, fmt.Sprintf("cool-down: last trade %s ago (need %s)", since.Truncate(time.Second), th.CoolDown)
		}
	}
	if th.EnforceMaxOpen && th.Open != nil {
		if open := th.Open.Count(); open > th.MaxOpen {
			return false, fmt.Sprintf("%d open positions (max %d)", open, th.MaxOpen)
		}
	}
	return true, ""
}

// Record stores a successful entry
func (th *Throttle) Record(at time.Time) {
	th.mu.Lock()
	defer th.mu.Unlock()
	th.trades = append(th.trades, at)
}

// History returns the trade times still inside the window
func (th *Throttle) History() []time.Time {
	th.mu.Lock()
	defer th.mu.Unlock()
	th.prune(th.now())
	return append([]time.Time(nil), th.trades...)
}

func (th *Throttle) prune(now time.Time) {
	cutoff := now.Add(-constants.TradeWindowSeconds * time.Second)
	keep := th.trades[:0]
	for _, ts := range th.trades {
		if ts.After(cutoff) {
			keep = append(keep, ts)
		}
	}
	th.trades = keep
}
