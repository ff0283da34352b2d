package indicators

import (
	"fmt"
	"time"

	"swap-sentinel/internal/constants"
	"swap-sentinel/models"
)

// Params configures Compute
type Params struct {
	BollingerPeriod int
	BollingerMult   float64
	RSIPeriod       int
	EMAPeriod       int
	MACDFast        int
	MACDSlow        int
	MACDSignal      int
	ADXPeriod       int
	ATRPeriod       int
}

// DefaultParams returns the periods used by the bot
func DefaultParams() Params {
	return Params{
		BollingerPeriod: constants.DefaultBollingerPeriod,
		BollingerMult:   constants.DefaultBollingerMult,
		RSIPeriod:       constants.DefaultRSIPeriod,
		EMAPeriod:       constants.DefaultEMAPeriod,
		MACDFast:        constants.DefaultMACDFast,
		MACDSlow:        constants.DefaultMACDSlow,
		MACDSignal:      constants.DefaultMACDSignal,
		ADXPeriod:       constants.DefaultADXPeriod,
		ATRPeriod:       constants.DefaultATRPeriod,
	}
}

// Compute recomputes every indicator from the candle window.
// Bands and ATR are required; the others may be NaN on short windows.
func Compute(candles []models.Candle, p Params) (models.IndicatorSnapshot, error) {
	if len(candles) < p.BollingerPeriod {
		return models.IndicatorSnapshot{}, fmt.Errorf("%w: bollinger(%d) needs %d candles, have %d",
			models.ErrInsufficientHistory, p.BollingerPeriod, p.BollingerPeriod, len(candles))
	}

	closes := make([]float64, len(candles))
	highs := make([]float64, len(candles))
	lows := make([]float64, len(candles))
	for i, c := range candles {
		closes[i] = c.Close
		highs[i] = c.High
		lows[i] = c.Low
	}

	atr, err := ATR(closes, highs, lows, p.ATRPeriod)
	if err != nil {
		return models.IndicatorSnapshot{}, err
	}

	upper, middle, lower := BollingerBands(closes, p.BollingerPeriod, p.BollingerMult)
	macd, signal, hist := MACD(closes, p.MACDFast, p.MACDSlow, p.MACDSignal)
	last := candles[len(candles)-1]

	ts := last.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	return models.IndicatorSnapshot{
		Time:       ts,
		Close:      last.Close,
		RSI:        RSI(closes, p.RSIPeriod),
		EMA:        EMA(closes, p.EMAPeriod),
		EMAPeriod:  p.EMAPeriod,
		MACD:       macd,
		MACDSignal: signal,
		MACDHist:   hist,
		ADX:        ADX(closes, highs, lows, p.ADXPeriod),
		ATR:        atr,
		BBUpper:    upper,
		BBMiddle:   middle,
		BBLower:    lower,
	}, nil
}

// CandleATR computes ATR straight from candles
func CandleATR(candles []models.Candle, period int) (float64, error) {
	closes := make([]float64, len(candles))
	highs := make([]float64, len(candles))
	lows := make([]float64, len(candles))
	for i, c := range candles {
		closes[i], highs[i], lows[i] = c.Close, c.High, c.Low
	}
	return ATR(closes, highs, lows, period)
}
