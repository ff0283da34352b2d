package constants

// OKX margin and order settings
const (
	MarginModeCross = "cross"
	OrderTypeMarket = "market"
	InstTypeSwap    = "SWAP"
)

// Order states that mean the exchange accepted the order
const (
	OrderStateLive            = "live"
	OrderStatePartiallyFilled = "partially_filled"
	OrderStateFilled          = "filled"
	OrderStateCanceled        = "canceled"
)

// Loop names used in logs and metrics
const (
	LoopPoll = "poll"
	LoopExit = "exit"
)

// Default indicator periods
const (
	DefaultBollingerPeriod = 20
	DefaultBollingerMult   = 2.0
	DefaultRSIPeriod       = 14
	DefaultEMAPeriod       = 50
	DefaultMACDFast        = 12
	DefaultMACDSlow        = 26
	DefaultMACDSignal      = 9
	DefaultADXPeriod       = 14
	DefaultATRPeriod       = 14
)

// TradeWindowSeconds is the overtrade look-back
const TradeWindowSeconds = 3600
