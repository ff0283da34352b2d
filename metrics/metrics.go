package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	Decisions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sentinel_decisions_total",
			Help: "Entry decisions by action (buy, sell, hold).",
		},
		[]string{"action"},
	)

	ThrottleBlocks = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "sentinel_throttle_blocks_total",
			Help: "Entry signals blocked by the overtrade throttle.",
		},
	)

	OrdersPlaced = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sentinel_orders_placed_total",
			Help: "Entry orders that opened a position, by side.",
		},
		[]string{"side"},
	)

	OrdersFailed = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "sentinel_orders_failed_total",
			Help: "Entry orders that did not open a position.",
		},
	)

	Exits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sentinel_exits_total",
			Help: "Closed positions by exit reason.",
		},
		[]string{"reason"},
	)

	CloseFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "sentinel_close_failures_total",
			Help: "Close requests the exchange did not confirm.",
		},
	)

	StopAdjustments = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sentinel_protection_adjustments_total",
			Help: "Protective level changes (trail, relax).",
		},
		[]string{"kind"},
	)

	PositionsOpen = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "sentinel_positions_open",
			Help: "Current number of tracked open positions.",
		},
	)

	LoopErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sentinel_loop_errors_total",
			Help: "Failed loop iterations by loop.",
		},
		[]string{"loop"},
	)

	LastPrice = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "sentinel_last_price",
			Help: "Last price observed for the instrument.",
		},
	)
)

func init() {
	prometheus.MustRegister(Decisions, ThrottleBlocks, OrdersPlaced, OrdersFailed, Exits,
		CloseFailures, StopAdjustments, PositionsOpen, LoopErrors, LastPrice)
}
