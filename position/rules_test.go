package position

import (
	"testing"
	"time"

	"swap-sentinel/models"
)

func testRules() ExitRules {
	return ExitRules{
		SlippageTolerance:    0.1,
		TrailPolicy:          TrailATR,
		TrailActivationATR:   1.5,
		TrailDistanceATR:     1,
		ProfitLockFraction:   0.5,
		RetraceActivationATR: 3,
		RetraceKeepFraction:  0.3,
	}
}

func TestApplyTrailsStopOnlyPastActivation(t *testing.T) {
	rules := testRules()
	start := time.Unix(1700000000, 0)
	p := models.Position{ClientOrderID: "a", Side: models.SideLong, EntryPrice: 100, OpenTime: start,
		StopLoss: 97, TakeProfit: 120, LastAdjustTime: start}

	steps := []struct {
		price    float64
		wantSL   float64
		wantMove bool
	}{
		{100, 97, false},
		{104, 102, true},
		{103, 102, false},
		{108, 106, true},
	}
	for i, s := range steps {
		adj, reason := rules.Apply(&p, s.price, 2, start.Add(time.Duration(i)*time.Minute))
		if reason != "" {
			t.Fatalf("step %d: unexpected exit %s", i, reason)
		}
		if p.StopLoss != s.wantSL || adj.StopMoved != s.wantMove {
			t.Fatalf("step %d: SL %.4f moved=%v, want %.4f moved=%v", i, p.StopLoss, adj.StopMoved, s.wantSL, s.wantMove)
		}
	}
	if p.MaxProfitSoFar != 8 {
		t.Fatalf("expected max profit 8, got %f", p.MaxProfitSoFar)
	}
}

func TestApplyShortTrailsDown(t *testing.T) {
	rules := testRules()
	now := time.Now()
	p := models.Position{Side: models.SideShort, EntryPrice: 100, StopLoss: 103, TakeProfit: 80, OpenTime: now, LastAdjustTime: now}
	adj, reason := rules.Apply(&p, 96, 2, now)
	if reason != "" || !adj.StopMoved || p.StopLoss != 98 {
		t.Fatalf("unexpected short trail: SL %.4f moved=%v reason=%s", p.StopLoss, adj.StopMoved, reason)
	}
}

func TestApplyProfitLockPolicy(t *testing.T) {
	rules := testRules()
	rules.TrailPolicy = TrailProfitLock
	now := time.Now()
	p := models.Position{Side: models.SideLong, EntryPrice: 100, StopLoss: 97, TakeProfit: 120, OpenTime: now, LastAdjustTime: now}
	rules.Apply(&p, 110, 2, now)
	if p.StopLoss != 105 {
		t.Fatalf("expected stop locked at 105, got %f", p.StopLoss)
	}

	rules.TrailPolicy = TrailNone
	q := models.Position{Side: models.SideLong, EntryPrice: 100, StopLoss: 97, TakeProfit: 120, OpenTime: now, LastAdjustTime: now}
	if adj, _ := rules.Apply(&q, 110, 2, now); adj.StopMoved {
		t.Fatalf("policy none must not move the stop")
	}
}

func TestApplyExitReasons(t *testing.T) {
	rules := testRules()
	rules.MaxHold = time.Hour
	open := time.Unix(1700000000, 0)
	cases := []struct {
		name  string
		side  models.Side
		price float64
		max   float64
		at    time.Time
		want  models.ExitReason
	}{
		{"long target", models.SideLong, 105.9, 0, open, models.ExitTakeProfit},
		{"long stop within slippage", models.SideLong, 97.1, 0, open, models.ExitStopLoss},
		{"short target", models.SideShort, 94, 0, open, models.ExitTakeProfit},
		{"short stop", models.SideShort, 103.5, 0, open, models.ExitStopLoss},
		{"hold timeout", models.SideLong, 100.5, 0, open.Add(time.Hour), models.ExitTimeout},
		{"retracement", models.SideLong, 101, 5, open, models.ExitRetracement},
		{"keep", models.SideLong, 102, 5, open, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := testPosition("x", tc.side, 100, open)
			p.MaxProfitSoFar = tc.max
			// trailing would move the stop in the retracement cases
			r := rules
			r.TrailPolicy = TrailNone
			_, got := r.Apply(&p, tc.price, 1, tc.at)
			if got != tc.want {
				t.Fatalf("got %q, want %q", got, tc.want)
			}
		})
	}
}

func TestApplyRelaxesTargetAfterStagnation(t *testing.T) {
	rules := testRules()
	rules.StagnationPeriod = 30 * time.Minute
	rules.TPRelaxFraction = 0.25
	open := time.Unix(1700000000, 0)
	p := models.Position{Side: models.SideLong, EntryPrice: 100, StopLoss: 97, TakeProfit: 110, OpenTime: open, LastAdjustTime: open}

	if adj, _ := rules.Apply(&p, 101, 2, open.Add(10*time.Minute)); adj.TargetRelaxed {
		t.Fatalf("target relaxed before stagnation period")
	}
	// profit grew at +10m, so the clock restarted there
	if adj, _ := rules.Apply(&p, 100.5, 2, open.Add(35*time.Minute)); adj.TargetRelaxed {
		t.Fatalf("target relaxed too early after profit growth")
	}
	adj, reason := rules.Apply(&p, 100.5, 2, open.Add(41*time.Minute))
	if !adj.TargetRelaxed || reason != "" {
		t.Fatalf("expected relax without exit, got %+v %s", adj, reason)
	}
	want := 110 - 0.25*(110-100.5)
	if p.TakeProfit != want {
		t.Fatalf("expected TP %.4f, got %.4f", want, p.TakeProfit)
	}
}

func TestRulesFromConfigFallsBackToATRTrail(t *testing.T) {
	cfg := newExitConfig()
	cfg.TrailPolicy = "bogus"
	if got := RulesFromConfig(cfg).TrailPolicy; got != TrailATR {
		t.Fatalf("expected atr fallback, got %s", got)
	}
}
