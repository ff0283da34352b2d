package position

import (
	"time"

	"swap-sentinel/config"
	"swap-sentinel/models"
)

// TrailPolicy selects how the stop follows a winning position
type TrailPolicy string

const (
	TrailATR        TrailPolicy = "atr"
	TrailProfitLock TrailPolicy = "profitlock"
	TrailNone       TrailPolicy = "none"
)

// ExitRules holds the knobs of the exit loop. Distances are ATR multiples
// unless the name says otherwise.
type ExitRules struct {
	SlippageTolerance    float64
	TrailPolicy          TrailPolicy
	TrailActivationATR   float64
	TrailDistanceATR     float64
	ProfitLockFraction   float64
	StagnationPeriod     time.Duration
	TPRelaxFraction      float64
	MaxHold              time.Duration
	RetraceActivationATR float64
	RetraceKeepFraction  float64
}

// RulesFromConfig copies the exit settings out of cfg
func RulesFromConfig(cfg *config.Config) ExitRules {
	policy := TrailPolicy(cfg.TrailPolicy)
	switch policy {
	case TrailATR, TrailProfitLock, TrailNone:
	default:
		policy = TrailATR
	}
	return ExitRules{
		SlippageTolerance:    cfg.SlippageTolerance,
		TrailPolicy:          policy,
		TrailActivationATR:   cfg.TrailActivationATR,
		TrailDistanceATR:     cfg.TrailDistanceATR,
		ProfitLockFraction:   cfg.ProfitLockFraction,
		StagnationPeriod:     cfg.StagnationPeriod,
		TPRelaxFraction:      cfg.TPRelaxFraction,
		MaxHold:              cfg.MaxHold,
		RetraceActivationATR: cfg.RetraceActivationATR,
		RetraceKeepFraction:  cfg.RetraceKeepFraction,
	}
}

// Adjustment describes what Apply changed on the position
type Adjustment struct {
	StopMoved     bool
	TargetRelaxed bool
	OldStop       float64
	OldTarget     float64
}

// Apply advances the position bookkeeping for one price observation and
// reports the exit reason, or "" to keep the position open.
//
// Order of work: max profit, stop trail, target relax, then exit checks
// (target, stop, hold time, retracement).
func (r ExitRules) Apply(p *models.Position, price, atr float64, now time.Time) (Adjustment, models.ExitReason) {
	adj := Adjustment{OldStop: p.StopLoss, OldTarget: p.TakeProfit}
	sign := p.Side.Sign()
	profit := p.Profit(price)

	if profit > p.MaxProfitSoFar {
		p.MaxProfitSoFar = profit
		p.LastAdjustTime = now
	}

	if atr > 0 && profit > r.TrailActivationATR*atr {
		var candidate float64
		switch r.TrailPolicy {
		case TrailATR:
			candidate = price - sign*r.TrailDistanceATR*atr
		case TrailProfitLock:
			candidate = p.EntryPrice + sign*r.ProfitLockFraction*p.MaxProfitSoFar
		}
		if candidate > 0 && tightens(p, candidate) {
			p.StopLoss = candidate
			p.LastAdjustTime = now
			adj.StopMoved = true
		}
	}

	if r.StagnationPeriod > 0 && r.TPRelaxFraction > 0 && p.TakeProfit > 0 &&
		now.Sub(p.LastAdjustTime) >= r.StagnationPeriod {
		if dist := sign * (p.TakeProfit - price); dist > 0 {
			p.TakeProfit -= sign * r.TPRelaxFraction * dist
			p.LastAdjustTime = now
			adj.TargetRelaxed = true
		}
	}

	slip := atr * r.SlippageTolerance
	if slip < 0 {
		slip = 0
	}
	if p.TakeProfit > 0 && sign*(price-p.TakeProfit) >= -slip {
		return adj, models.ExitTakeProfit
	}
	if p.StopLoss > 0 && sign*(p.StopLoss-price) >= -slip {
		return adj, models.ExitStopLoss
	}
	if r.MaxHold > 0 && now.Sub(p.OpenTime) >= r.MaxHold {
		return adj, models.ExitTimeout
	}
	if atr > 0 && r.RetraceKeepFraction > 0 && p.MaxProfitSoFar > 0 &&
		p.MaxProfitSoFar >= r.RetraceActivationATR*atr &&
		profit < r.RetraceKeepFraction*p.MaxProfitSoFar {
		return adj, models.ExitRetracement
	}
	return adj, ""
}

// tightens reports whether candidate moves the stop toward profit
func tightens(p *models.Position, candidate float64) bool {
	if p.StopLoss <= 0 {
		return true
	}
	if p.Side == models.SideShort {
		return candidate < p.StopLoss
	}
	return candidate > p.StopLoss
}
