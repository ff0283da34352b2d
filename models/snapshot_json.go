package models

import (
	"encoding/json"
	"math"
	"strconv"
	"time"
)

// jsonFloat encodes NaN and infinities as null
type jsonFloat float64

func (f jsonFloat) MarshalJSON() ([]byte, error) {
	v := float64(f)
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return []byte("null"), nil
	}
	return strconv.AppendFloat(nil, v, 'g', -1, 64), nil
}

type snapshotOut struct {
	Time       time.Time `json:"time"`
	Close      jsonFloat `json:"close"`
	RSI        jsonFloat `json:"rsi"`
	EMA        jsonFloat `json:"ema"`
	EMAPeriod  int       `json:"emaPeriod"`
	MACD       jsonFloat `json:"macd"`
	MACDSignal jsonFloat `json:"macdSignal"`
	MACDHist   jsonFloat `json:"macdHist"`
	ADX        jsonFloat `json:"adx"`
	ATR        jsonFloat `json:"atr"`
	BBUpper    jsonFloat `json:"bbUpper"`
	BBMiddle   jsonFloat `json:"bbMiddle"`
	BBLower    jsonFloat `json:"bbLower"`
}

type snapshotIn struct {
	Time       time.Time `json:"time"`
	Close      *float64  `json:"close"`
	RSI        *float64  `json:"rsi"`
	EMA        *float64  `json:"ema"`
	EMAPeriod  int       `json:"emaPeriod"`
	MACD       *float64  `json:"macd"`
	MACDSignal *float64  `json:"macdSignal"`
	MACDHist   *float64  `json:"macdHist"`
	ADX        *float64  `json:"adx"`
	ATR        *float64  `json:"atr"`
	BBUpper    *float64  `json:"bbUpper"`
	BBMiddle   *float64  `json:"bbMiddle"`
	BBLower    *float64  `json:"bbLower"`
}

// MarshalJSON writes unavailable indicators as null
func (s IndicatorSnapshot) MarshalJSON() ([]byte, error) {
	return json.Marshal(snapshotOut{
		Time: s.Time, Close: jsonFloat(s.Close), RSI: jsonFloat(s.RSI), EMA: jsonFloat(s.EMA),
		EMAPeriod: s.EMAPeriod, MACD: jsonFloat(s.MACD), MACDSignal: jsonFloat(s.MACDSignal),
		MACDHist: jsonFloat(s.MACDHist), ADX: jsonFloat(s.ADX), ATR: jsonFloat(s.ATR),
		BBUpper: jsonFloat(s.BBUpper), BBMiddle: jsonFloat(s.BBMiddle), BBLower: jsonFloat(s.BBLower),
	})
}

// UnmarshalJSON reads null or missing indicators back as NaN
func (s *IndicatorSnapshot) UnmarshalJSON(data []byte) error {
	var in snapshotIn
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	f := func(p *float64) float64 {
		if p == nil {
			return math.NaN()
		}
		return *p
	}
	*s = IndicatorSnapshot{
		Time: in.Time, Close: f(in.Close), RSI: f(in.RSI), EMA: f(in.EMA), EMAPeriod: in.EMAPeriod,
		MACD: f(in.MACD), MACDSignal: f(in.MACDSignal), MACDHist: f(in.MACDHist), ADX: f(in.ADX),
		ATR: f(in.ATR), BBUpper: f(in.BBUpper), BBMiddle: f(in.BBMiddle), BBLower: f(in.BBLower),
	}
	return nil
}
