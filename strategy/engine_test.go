package strategy

import (
	"math"
	"strings"
	"testing"

	"swap-sentinel/models"
)

func bandSnapshot() models.IndicatorSnapshot {
	return models.IndicatorSnapshot{
		BBUpper: 105, BBMiddle: 100, BBLower: 95,
		RSI: 50, EMA: 100, MACDHist: 0, ADX: 30, ATR: 1,
	}
}

func TestMeanReversionDecisions(t *testing.T) {
	e := &Engine{Policy: PolicyMeanReversion}
	cases := []struct {
		price float64
		want  models.Action
	}{
		{94, models.ActionBuy},
		{106, models.ActionSell},
		{101.2, models.ActionHold},
		{95, models.ActionHold},
	}
	for _, tc := range cases {
		d := e.Evaluate(bandSnapshot(), tc.price)
		if d.Action != tc.want {
			t.Fatalf("price %.2f: got %s want %s (%v)", tc.price, d.Action, tc.want, d.Reasons)
		}
	}
	d := e.Evaluate(bandSnapshot(), 101.2)
	if len(d.Reasons) != 1 || d.Reasons[0] != "price 101.2000 inside bands [95.0000, 105.0000]" {
		t.Fatalf("unexpected hold reasons: %v", d.Reasons)
	}
}

func TestMeanReversionFiltersReportUnmet(t *testing.T) {
	e := &Engine{Policy: PolicyMeanReversion, Filters: Filters{
		UseRSI: true, RSIBuyMax: 35, RSISellMin: 65,
		UseHist: true, HistBuyMin: -0.1, HistSellMax: 0.1,
		UseEMA: true, EMABuyFloor: 0.98, EMASellCeil: 1.02,
		UseADX: true, ADXMin: 20,
	}}
	snap := bandSnapshot()
	snap.RSI = 41.2
	snap.ADX = math.NaN()

	d := e.Evaluate(snap, 94)
	if d.Action != models.ActionHold {
		t.Fatalf("filters should block the buy, got %s", d.Action)
	}
	joined := strings.Join(d.Reasons, "|")
	if !strings.Contains(joined, "rsi 41.20 >= 35.00") {
		t.Fatalf("missing rsi reason: %v", d.Reasons)
	}
	if !strings.Contains(joined, "adx NaN <= 20.00") {
		t.Fatalf("NaN adx should be unmet: %v", d.Reasons)
	}
	if strings.Contains(joined, "macd") {
		t.Fatalf("histogram filter passed and should not be listed: %v", d.Reasons)
	}
	// price 94 vs ema floor 98
	if !strings.Contains(joined, "ema floor") {
		t.Fatalf("missing ema reason: %v", d.Reasons)
	}

	snap.RSI = 30
	snap.ADX = 25
	snap.EMA = 95
	if d := e.Evaluate(snap, 94); d.Action != models.ActionBuy {
		t.Fatalf("all filters pass, expected buy, got %s %v", d.Action, d.Reasons)
	}
}

func TestBreakoutRequiresADX(t *testing.T) {
	e := &Engine{Policy: PolicyBreakout, BreakoutADXMin: 25}
	snap := bandSnapshot()

	if d := e.Evaluate(snap, 106); d.Action != models.ActionBuy {
		t.Fatalf("upper breakout should buy, got %s", d.Action)
	}
	if d := e.Evaluate(snap, 94); d.Action != models.ActionSell {
		t.Fatalf("lower breakout should sell, got %s", d.Action)
	}
	snap.ADX = 24.9
	d := e.Evaluate(snap, 106)
	if d.Action != models.ActionHold || len(d.Reasons) != 2 {
		t.Fatalf("weak trend should hold with reasons, got %s %v", d.Action, d.Reasons)
	}
}

func TestEvaluateWithoutBands(t *testing.T) {
	e := &Engine{Policy: PolicyMeanReversion}
	snap := bandSnapshot()
	snap.BBLower = math.NaN()
	if d := e.Evaluate(snap, 1); d.Action != models.ActionHold || len(d.Reasons) == 0 {
		t.Fatalf("expected hold with reason, got %+v", d)
	}
}
