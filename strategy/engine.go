package strategy

import (
	"fmt"
	"math"
	"strings"

	"swap-sentinel/config"
	"swap-sentinel/models"
)

// Entry policies
const (
	PolicyMeanReversion = "meanreversion"
	PolicyBreakout      = "breakout"
)

// Filters gate mean-reversion entries. A disabled filter always passes.
type Filters struct {
	UseRSI      bool
	RSIBuyMax   float64
	RSISellMin  float64
	UseHist     bool
	HistBuyMin  float64
	HistSellMax float64
	UseEMA      bool
	EMABuyFloor float64
	EMASellCeil float64
	UseADX      bool
	ADXMin      float64
}

// Engine decides entries from one indicator snapshot and the last price
type Engine struct {
	Policy         string
	Filters        Filters
	BreakoutADXMin float64
}

// NewEngine builds the engine for the configured policy
func NewEngine(cfg *config.Config) *Engine {
	policy := strings.ToLower(cfg.EntryPolicy)
	if policy != PolicyBreakout {
		policy = PolicyMeanReversion
	}
	return &Engine{
		Policy: policy,
		Filters: Filters{
			UseRSI:      cfg.UseRSIFilter,
			RSIBuyMax:   cfg.RSIBuyMax,
			RSISellMin:  cfg.RSISellMin,
			UseHist:     cfg.UseHistFilter,
			HistBuyMin:  cfg.HistBuyMin,
			HistSellMax: cfg.HistSellMax,
			UseEMA:      cfg.UseEMAFilter,
			EMABuyFloor: cfg.EMABuyFloor,
			EMASellCeil: cfg.EMASellCeil,
			UseADX:      cfg.UseADXFilter,
			ADXMin:      cfg.ADXMin,
		},
		BreakoutADXMin: cfg.BreakoutADXMin,
	}
}

// Evaluate returns buy, sell or hold. A hold lists every unmet condition.
func (e *Engine) Evaluate(snap models.IndicatorSnapshot, price float64) models.Decision {
	d := models.Decision{Time: snap.Time, Action: models.ActionHold, Policy: e.Policy, Price: price}
	if !valid(price) || price <= 0 {
		d.Reasons = []string{fmt.Sprintf("price %.4f unavailable", price)}
		return d
	}
	if !valid(snap.BBUpper) || !valid(snap.BBLower) {
		d.Reasons = []string{"bollinger bands unavailable"}
		return d
	}

	if e.Policy == PolicyBreakout {
		return e.breakout(d, snap, price)
	}
	return e.meanReversion(d, snap, price)
}

func (e *Engine) meanReversion(d models.Decision, snap models.IndicatorSnapshot, price float64) models.Decision {
	switch {
	case price < snap.BBLower:
		reasons := e.Filters.buyUnmet(snap, price)
		if len(reasons) == 0 {
			d.Action = models.ActionBuy
			d.Reasons = []string{fmt.Sprintf("price %.4f below lower band %.4f", price, snap.BBLower)}
			return d
		}
		d.Reasons = append([]string{fmt.Sprintf("price %.4f below lower band %.4f but filters failed", price, snap.BBLower)}, reasons...)
	case price > snap.BBUpper:
		reasons := e.Filters.sellUnmet(snap, price)
		if len(reasons) == 0 {
			d.Action = models.ActionSell
			d.Reasons = []string{fmt.Sprintf("price %.4f above upper band %.4f", price, snap.BBUpper)}
			return d
		}
		d.Reasons = append([]string{fmt.Sprintf("price %.4f above upper band %.4f but filters failed", price, snap.BBUpper)}, reasons...)
	default:
		d.Reasons = []string{insideBands(price, snap)}
	}
	return d
}

func (e *Engine) breakout(d models.Decision, snap models.IndicatorSnapshot, price float64) models.Decision {
	var action models.Action
	var band string
	switch {
	case price > snap.BBUpper:
		action, band = models.ActionBuy, fmt.Sprintf("price %.4f broke upper band %.4f", price, snap.BBUpper)
	case price < snap.BBLower:
		action, band = models.ActionSell, fmt.Sprintf("price %.4f broke lower band %.4f", price, snap.BBLower)
	default:
		d.Reasons = []string{insideBands(price, snap)}
		return d
	}
	if !valid(snap.ADX) || snap.ADX < e.BreakoutADXMin {
		d.Reasons = []string{band, fmt.Sprintf("adx %.2f < %.2f", snap.ADX, e.BreakoutADXMin)}
		return d
	}
	d.Action = action
	d.Reasons = []string{band, fmt.Sprintf("adx %.2f >= %.2f", snap.ADX, e.BreakoutADXMin)}
	return d
}

func (f Filters) buyUnmet(snap models.IndicatorSnapshot, price float64) []string {
	var out []string
	if f.UseRSI && !(valid(snap.RSI) && snap.RSI < f.RSIBuyMax) {
		out = append(out, fmt.Sprintf("rsi %.2f >= %.2f", snap.RSI, f.RSIBuyMax))
	}
	if f.UseHist && !(valid(snap.MACDHist) && snap.MACDHist > f.HistBuyMin) {
		out = append(out, fmt.Sprintf("macd histogram %.4f <= %.4f", snap.MACDHist, f.HistBuyMin))
	}
	if f.UseEMA && !(valid(snap.EMA) && price >= snap.EMA*f.EMABuyFloor) {
		out = append(out, fmt.Sprintf("price %.4f below ema floor %.4f", price, snap.EMA*f.EMABuyFloor))
	}
	if f.UseADX && !(valid(snap.ADX) && snap.ADX > f.ADXMin) {
		out = append(out, fmt.Sprintf("adx %.2f <= %.2f", snap.ADX, f.ADXMin))
	}
	return out
}

func (f Filters) sellUnmet(snap models.IndicatorSnapshot, price float64) []string {
	var out []string
	if f.UseRSI && !(valid(snap.RSI) && snap.RSI > f.RSISellMin) {
		out = append(out, fmt.Sprintf("rsi %.2f <= %.2f", snap.RSI, f.RSISellMin))
	}
	if f.UseHist && !(valid(snap.MACDHist) && snap.MACDHist < f.HistSellMax) {
		out = append(out, fmt.Sprintf("macd histogram %.4f >= %.4f", snap.MACDHist, f.HistSellMax))
	}
	if f.UseEMA && !(valid(snap.EMA) && price <= snap.EMA*f.EMASellCeil) {
		out = append(out, fmt.Sprintf("price %.4f above ema ceiling %.4f", price, snap.EMA*f.EMASellCeil))
	}
	if f.UseADX && !(valid(snap.ADX) && snap.ADX > f.ADXMin) {
		out = append(out, fmt.Sprintf("adx %.2f <= %.2f", snap.ADX, f.ADXMin))
	}
	return out
}

func insideBands(price float64, snap models.IndicatorSnapshot) string {
	return fmt.Sprintf("price %.4f inside bands [%.4f, %.4f]", price, snap.BBLower, snap.BBUpper)
}

func valid(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
