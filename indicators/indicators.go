package indicators

import (
	"fmt"
	"math"

	"swap-sentinel/models"
)

// SMA calculates Simple Moving Average
func SMA(data []float64) float64 {
	if len(data) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range data {
		sum += v
	}
	return sum / float64(len(data))
}

// SMAWithPeriod calculates Simple Moving Average over the last period values
func SMAWithPeriod(data []float64, period int) float64 {
	if len(data) < period || period <= 0 {
		return 0
	}
	return SMA(data[len(data)-period:])
}

// StdDev calculates population standard deviation
func StdDev(data []float64) float64 {
	if len(data) == 0 {
		return 0
	}
	m := SMA(data)
	var sum float64
	for _, v := range data {
		d := v - m
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(data)))
}

// BollingerBands returns SMA ± mult·σ over the last period closes.
// All three values are NaN when fewer than period samples exist.
func BollingerBands(prices []float64, period int, mult float64) (upper, middle, lower float64) {
	if period <= 0 || len(prices) < period {
		nan := math.NaN()
		return nan, nan, nan
	}
	window := prices[len(prices)-period:]
	middle = SMA(window)
	sd := StdDev(window)
	return middle + mult*sd, middle, middle - mult*sd
}

// RSI averages gains and losses over the last period deltas only.
// A window without losses returns 100; fewer than period+1 samples return NaN.
func RSI(prices []float64, period int) float64 {
	if period <= 0 || len(prices) < period+1 {
		return math.NaN()
	}
	var gains, losses float64
	n := len(prices)
	for i := 1; i <= period; i++ {
		change := prices[n-i] - prices[n-i-1]
		if change > 0 {
			gains += change
		} else {
			losses -= change
		}
	}
	avgGain := gains / float64(period)
	avgLoss := losses / float64(period)
	if avgLoss == 0 {
		return 100
	}
	rs := avgGain / avgLoss
	return 100 - 100/(1+rs)
}

// EMA is seeded with the first price of the slice, so the result depends on
// how much history is passed in.
func EMA(prices []float64, period int) float64 {
	if len(prices) == 0 || period <= 0 {
		return math.NaN()
	}
	k := 2.0 / float64(period+1)
	ema := prices[0]
	for _, p := range prices[1:] {
		ema = p*k + ema*(1-k)
	}
	return ema
}

// MACD returns the line, signal and histogram. The signal is the EMA of the
// last signalPeriod closes, not of a MACD series.
func MACD(prices []float64, shortPeriod, longPeriod, signalPeriod int) (macd, signal, histogram float64) {
	if len(prices) < longPeriod || len(prices) < signalPeriod {
		nan := math.NaN()
		return nan, nan, nan
	}
	macd = EMA(prices, shortPeriod) - EMA(prices, longPeriod)
	signal = EMA(prices[len(prices)-signalPeriod:], signalPeriod)
	return macd, signal, macd - signal
}

// ADX accumulates true range and directional movement over bars 1..period-1
// of the supplied window, without smoothing. A flat window returns 0.
func ADX(prices, highs, lows []float64, period int) float64 {
	if period < 2 || len(prices) < period || len(highs) < period || len(lows) < period {
		return math.NaN()
	}
	var tr, dmPlus, dmMinus float64
	for i := 1; i < period; i++ {
		tr += trueRange(highs[i], lows[i], prices[i-1])
		up := highs[i] - highs[i-1]
		down := lows[i-1] - lows[i]
		if up > down {
			dmPlus += up
		}
		if down > up {
			dmMinus += down
		}
	}
	if tr == 0 {
		return 0
	}
	diPlus := dmPlus / tr * 100
	diMinus := dmMinus / tr * 100
	if diPlus+diMinus == 0 {
		return 0
	}
	return math.Abs(diPlus-diMinus) / (diPlus + diMinus) * 100
}

// ATR seeds with the mean of the first period true ranges and applies Wilder
// smoothing to the rest.
func ATR(prices, highs, lows []float64, period int) (float64, error) {
	if period <= 0 || len(prices) < period {
		return 0, fmt.Errorf("%w: ATR(%d) needs %d closes, have %d",
			models.ErrInsufficientHistory, period, period, len(prices))
	}
	if len(highs) < len(prices) || len(lows) < len(prices) {
		return 0, fmt.Errorf("%w: ATR needs highs and lows for every close",
			models.ErrInsufficientHistory)
	}

	trs := make([]float64, 0, len(prices)-1)
	for i := 1; i < len(prices); i++ {
		trs = append(trs, trueRange(highs[i], lows[i], prices[i-1]))
	}

	seed := trs
	if len(seed) > period {
		seed = seed[:period]
	}
	var sum float64
	for _, v := range seed {
		sum += v
	}
	atr := sum / float64(period)
	for i := period; i < len(trs); i++ {
		atr = (atr*float64(period-1) + trs[i]) / float64(period)
	}
	return atr, nil
}

func trueRange(high, low, prevClose float64) float64 {
	return math.Max(high-low, math.Max(math.Abs(high-prevClose), math.Abs(low-prevClose)))
}

// MaxSlice returns the maximum value in a slice
func MaxSlice(data []float64) float64 {
	if len(data) == 0 {
		return 0
	}
	m := data[0]
	for _, v := range data[1:] {
		if v > m {
			m = v
		}
	}
	return m
}

// MinSlice returns the minimum value in a slice
func MinSlice(data []float64) float64 {
	if len(data) == 0 {
		return 0
	}
	m := data[0]
	for _, v := range data[1:] {
		if v < m {
			m = v
		}
	}
	return m
}
