package models

import (
	"strings"
	"sync"
	"time"
)

// Side is the direction of a position
type Side string

const (
	SideLong  Side = "long"
	SideShort Side = "short"
)

// OrderSide returns the exchange order side that opens a position of this side
func (s Side) OrderSide() string {
	if s == SideShort {
		return "sell"
	}
	return "buy"
}

// Sign is +1 for long and -1 for short
func (s Side) Sign() float64 {
	if s == SideShort {
		return -1
	}
	return 1
}

// ParseSide normalises buy/sell/long/short in any case
func ParseSide(v string) (Side, bool) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "buy", "long":
		return SideLong, true
	case "sell", "short":
		return SideShort, true
	default:
		return "", false
	}
}

// Candle is one OHLCV bar
type Candle struct {
	Timestamp time.Time `json:"timestamp"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	Volume    float64   `json:"volume"`
}

// IndicatorSnapshot holds the indicator values computed for one poll cycle.
type IndicatorSnapshot struct {
	Time       time.Time `json:"time"`
	Close      float64   `json:"close"`
	RSI        float64   `json:"rsi"`
	EMA        float64   `json:"ema"`
	EMAPeriod  int       `json:"emaPeriod"`
	MACD       float64   `json:"macd"`
	MACDSignal float64   `json:"macdSignal"`
	MACDHist   float64   `json:"macdHist"`
	ADX        float64   `json:"adx"`
	ATR        float64   `json:"atr"`
	BBUpper    float64   `json:"bbUpper"`
	BBMiddle   float64   `json:"bbMiddle"`
	BBLower    float64   `json:"bbLower"`
}

// Action is the outcome of an entry evaluation
type Action string

const (
	ActionBuy  Action = "buy"
	ActionSell Action = "sell"
	ActionHold Action = "hold"
)

// Decision is produced by the entry engine once per poll cycle.
type Decision struct {
	Time    time.Time `json:"time"`
	Action  Action    `json:"action"`
	Policy  string    `json:"policy"`
	Price   float64   `json:"price"`
	Reasons []string  `json:"reasons,omitempty"`
}

// Side maps buy/sell to the position side; hold yields ""
func (d Decision) Side() Side {
	switch d.Action {
	case ActionBuy:
		return SideLong
	case ActionSell:
		return SideShort
	default:
		return ""
	}
}

// OrderRequest describes a market entry with attached protection levels
type OrderRequest struct {
	ClientOrderID string
	Side          Side
	EntryPrice    float64
	StopLoss      float64
	TakeProfit    float64
	TrailTrigger  float64
	Size          float64
}

// Position is an open position tracked by the registry.
type Position struct {
	ClientOrderID  string    `json:"clientOrderId"`
	Side           Side      `json:"side"`
	EntryPrice     float64   `json:"entryPrice"`
	Size           float64   `json:"size"`
	OpenTime       time.Time `json:"openTime"`
	StopLoss       float64   `json:"stopLoss"`
	TakeProfit     float64   `json:"takeProfit"`
	TrailTrigger   float64   `json:"trailTrigger,omitempty"`
	MaxProfitSoFar float64   `json:"maxProfitSoFar"`
	LastAdjustTime time.Time `json:"lastAdjustTime"`
	Closing        bool      `json:"closing,omitempty"`
}

// Profit returns the unrealized profit in price units at the given price
func (p Position) Profit(price float64) float64 {
	return p.Side.Sign() * (price - p.EntryPrice)
}

// ExitReason tells why a position left the registry
type ExitReason string

const (
	ExitTakeProfit  ExitReason = "takeprofit"
	ExitStopLoss    ExitReason = "stoploss"
	ExitTimeout     ExitReason = "timeout"
	ExitRetracement ExitReason = "retracement"
	ExitExternal    ExitReason = "external"
)

// Journal statuses
const (
	StatusOpen = "open"
	StatusWin  = "win"
	StatusLoss = "loss"
)

// OrderRecord is one element of the order journal.
type OrderRecord struct {
	ID             string            `json:"id"`
	Price          float64           `json:"price"`
	Indicators     IndicatorSnapshot `json:"indicators"`
	StopLoss       float64           `json:"stopLoss"`
	TakeProfit     float64           `json:"takeProfit"`
	Side           Side              `json:"side"`
	Status         string            `json:"status"`
	OpenTimestamp  time.Time         `json:"openTimestamp"`
	CloseTimestamp *time.Time        `json:"closeTimestamp,omitempty"`
	ClosePrice     float64           `json:"closePrice,omitempty"`
	ExitReason     ExitReason        `json:"exitReason,omitempty"`
}

// State holds the latest cycle results for status reporting
type State struct {
	StatusLock     sync.RWMutex
	LastIndicators IndicatorSnapshot
	LastDecision   Decision
	LastPrice      float64
	LastPollAt     time.Time
	LastExitTickAt time.Time
	PollErrors     int
	ExitErrors     int
}

// RecordPoll stores the outcome of a poll cycle
func (s *State) RecordPoll(snap IndicatorSnapshot, d Decision, at time.Time) {
	s.StatusLock.Lock()
	defer s.StatusLock.Unlock()
	s.LastIndicators = snap
	s.LastDecision = d
	s.LastPrice = d.Price
	s.LastPollAt = at
}

// RecordExitTick stores the time of the last exit evaluation and price seen
func (s *State) RecordExitTick(price float64, at time.Time) {
	s.StatusLock.Lock()
	defer s.StatusLock.Unlock()
	s.LastExitTickAt = at
	if price > 0 {
		s.LastPrice = price
	}
}

// RecordError bumps the error counter of a loop
func (s *State) RecordError(loop string) {
	s.StatusLock.Lock()
	defer s.StatusLock.Unlock()
	switch loop {
	case "poll":
		s.PollErrors++
	case "exit":
		s.ExitErrors++
	}
}
