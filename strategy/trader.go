package strategy

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"swap-sentinel/config"
	"swap-sentinel/indicators"
	"swap-sentinel/interfaces"
	"swap-sentinel/logging"
	"swap-sentinel/metrics"
	"swap-sentinel/models"
	"swap-sentinel/order"
	"swap-sentinel/position"
)

// Trader runs the polling cycle: candles, indicators, decision, entry
type Trader struct {
	Market       interfaces.MarketData
	OrderManager *order.OrderManager
	Registry     *position.Registry
	Throttle     *Throttle
	Engine       *Engine
	Config       *config.Config
	State        *models.State
	Logger       logging.LoggerInterface
	Observer     interfaces.TradeObserver

	series  *models.Series
	params  indicators.Params
	running atomic.Bool
	now     func() time.Time

	pendingMu sync.Mutex
	pending   map[string]pendingOrder
}

// pendingOrder is an entry whose placement outcome is not known yet
type pendingOrder struct {
	req   models.OrderRequest
	snap  models.IndicatorSnapshot
	since time.Time
}

// NewTrader creates a new trader instance
func NewTrader(gw interfaces.Gateway, reg *position.Registry, cfg *config.Config, state *models.State,
	logger logging.LoggerInterface, observer interfaces.TradeObserver) *Trader {
	if logger == nil {
		logger = logging.NopLogger{}
	}
	return &Trader{
		Market:       gw,
		OrderManager: order.NewOrderManager(gw, cfg, logger),
		Registry:     reg,
		Throttle:     NewThrottle(cfg, reg),
		Engine:       NewEngine(cfg),
		Config:       cfg,
		State:        state,
		Logger:       logger,
		Observer:     observer,
		series:       models.NewSeries(cfg.CandleLimit),
		params:       ParamsFromConfig(cfg),
		now:          time.Now,
		pending:      make(map[string]pendingOrder),
	}
}

// ParamsFromConfig maps the configured indicator periods
func ParamsFromConfig(cfg *config.Config) indicators.Params {
	return indicators.Params{
		BollingerPeriod: cfg.BollingerPeriod,
		BollingerMult:   cfg.BollingerMult,
		RSIPeriod:       cfg.RSIPeriod,
		EMAPeriod:       cfg.EMAPeriod,
		MACDFast:        cfg.MACDFast,
		MACDSlow:        cfg.MACDSlow,
		MACDSignal:      cfg.MACDSignal,
		ADXPeriod:       cfg.ADXPeriod,
		ATRPeriod:       cfg.ATRPeriod,
	}
}

// RunCycle performs one poll. Data and indicator failures end the cycle
// with an error; a rejected order is logged and the cycle ends normally.
func (t *Trader) RunCycle(ctx context.Context) error {
	if !t.running.CompareAndSwap(false, true) {
		t.Logger.Debug("Poll cycle still running, skipping")
		return nil
	}
	defer t.running.Store(false)

	t.resolvePending(ctx)

	if err := t.refreshCandles(ctx); err != nil {
		return err
	}
	snap, err := indicators.Compute(t.series.Candles(), t.params)
	if err != nil {
		return fmt.Errorf("compute indicators: %w", err)
	}
	price := t.latestPrice(ctx)

	decision := t.Engine.Evaluate(snap, price)
	now := t.now()
	if decision.Time.IsZero() {
		decision.Time = now
	}
	metrics.Decisions.WithLabelValues(string(decision.Action)).Inc()
	metrics.LastPrice.Set(price)
	if t.State != nil {
		t.State.RecordPoll(snap, decision, now)
	}
	t.Logger.Debug("Indicators: close %.6f BB [%.6f %.6f %.6f] RSI %.2f EMA%d %.6f MACD %.6f/%.6f hist %.6f ADX %.2f ATR %.6f",
		snap.Close, snap.BBLower, snap.BBMiddle, snap.BBUpper, snap.RSI, snap.EMAPeriod, snap.EMA,
		snap.MACD, snap.MACDSignal, snap.MACDHist, snap.ADX, snap.ATR)

	side := decision.Side()
	if side == "" {
		t.Logger.Info("No entry at %.6f: %s", price, strings.Join(decision.Reasons, "; "))
		return nil
	}
	t.Logger.Info("%s signal (%s) at %.6f: %s", strings.ToUpper(string(decision.Action)), decision.Policy, price,
		strings.Join(decision.Reasons, "; "))

	if ok, why := t.Throttle.Check(); !ok {
		metrics.ThrottleBlocks.Inc()
		t.Logger.Info("Entry skipped by throttle: %s", why)
		return nil
	}

	req := t.OrderManager.Plan(side, price, snap.ATR)
	pos, err := t.OrderManager.Open(ctx, req)
	switch {
	case errors.Is(err, order.ErrOutcomeUnknown):
		// the exchange may hold this order; count it against the throttle
		t.Throttle.Record(now)
		t.addPending(req, snap, now)
		t.Logger.Error("Entry order %s outcome unknown, will check again next cycle: %v", req.ClientOrderID, err)
		return nil
	case errors.Is(err, order.ErrNoPosition):
		metrics.OrdersFailed.Inc()
		t.Logger.Error("Entry order %s failed: %v", req.ClientOrderID, err)
		return nil
	case err != nil:
		metrics.OrdersFailed.Inc()
		return err
	}

	t.Throttle.Record(now)
	return t.register(ctx, pos, snap)
}

// register tracks an opened position and notifies observers
func (t *Trader) register(ctx context.Context, pos models.Position, snap models.IndicatorSnapshot) error {
	if err := t.Registry.Add(pos); err != nil {
		return fmt.Errorf("register position %s: %w", pos.ClientOrderID, err)
	}
	metrics.OrdersPlaced.WithLabelValues(string(pos.Side)).Inc()
	metrics.PositionsOpen.Set(float64(t.Registry.Count()))

	if t.Observer != nil {
		if err := t.Observer.PositionOpened(ctx, pos, snap); err != nil {
			t.Logger.Warning("Trade observers failed for %s: %v", pos.ClientOrderID, err)
		}
	}
	return nil
}

// PendingOrders lists client order ids whose outcome is still unknown
func (t *Trader) PendingOrders() []string {
	t.pendingMu.Lock()
	defer t.pendingMu.Unlock()
	ids := make([]string, 0, len(t.pending))
	for id := range t.pending {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (t *Trader) addPending(req models.OrderRequest, snap models.IndicatorSnapshot, at time.Time) {
	t.pendingMu.Lock()
	defer t.pendingMu.Unlock()
	t.pending[req.ClientOrderID] = pendingOrder{req: req, snap: snap, since: at}
}

// resolvePending asks the exchange again about orders with an unknown
// outcome. Accepted ones are registered, rejected ones dropped, and the
// rest stay pending for the next cycle.
func (t *Trader) resolvePending(ctx context.Context) {
	t.pendingMu.Lock()
	entries := make([]pendingOrder, 0, len(t.pending))
	for _, e := range t.pending {
		entries = append(entries, e)
	}
	t.pendingMu.Unlock()

	for _, e := range entries {
		id := e.req.ClientOrderID
		pos, err := t.OrderManager.Resolve(ctx, e.req)
		switch {
		case errors.Is(err, order.ErrOutcomeUnknown):
			t.Logger.Warning("Order %s still unresolved since %s: %v", id, e.since.Format(time.RFC3339), err)
			continue
		case err != nil:
			metrics.OrdersFailed.Inc()
			t.Logger.Info("Order %s did not open a position: %v", id, err)
		default:
			if rerr := t.register(ctx, pos, e.snap); rerr != nil {
				t.Logger.Error("Resolved order %s: %v", id, rerr)
			} else {
				t.Logger.Info("Order %s resolved as open %s position", id, pos.Side)
			}
		}
		t.pendingMu.Lock()
		delete(t.pending, id)
		t.pendingMu.Unlock()
	}
}

func (t *Trader) refreshCandles(ctx context.Context) error {
	cctx, cancel := context.WithTimeout(ctx, t.Config.RequestTimeout)
	defer cancel()
	candles, err := t.Market.GetCandles(cctx, t.Config.Timeframe, t.Config.CandleLimit)
	if err != nil {
		return fmt.Errorf("poll candles: %w", err)
	}
	t.series.Reset(candles)
	return nil
}

// latestPrice falls back to the last close when the ticker is unavailable
func (t *Trader) latestPrice(ctx context.Context) float64 {
	pctx, cancel := context.WithTimeout(ctx, t.Config.RequestTimeout)
	defer cancel()
	price, err := t.Market.GetLatestPrice(pctx)
	if err == nil && price > 0 {
		return price
	}
	last, _ := t.series.Last()
	t.Logger.Warning("Latest price unavailable (%v), using last close %.6f", err, last.Close)
	return last.Close
}
