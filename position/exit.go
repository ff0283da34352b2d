package position

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/multierr"

	"swap-sentinel/config"
	"swap-sentinel/indicators"
	"swap-sentinel/interfaces"
	"swap-sentinel/logging"
	"swap-sentinel/metrics"
	"swap-sentinel/models"
)

// ExitController evaluates every open position on a fixed period and
// closes the ones whose exit rules fire.
type ExitController struct {
	Gateway  interfaces.Gateway
	Registry *Registry
	Rules    ExitRules
	Config   *config.Config
	Logger   logging.LoggerInterface
	Observer interfaces.TradeObserver
	State    *models.State

	running atomic.Bool
	now     func() time.Time
}

// NewExitController creates a controller over the shared registry
func NewExitController(gw interfaces.Gateway, reg *Registry, cfg *config.Config, logger logging.LoggerInterface,
	observer interfaces.TradeObserver, state *models.State) *ExitController {
	if logger == nil {
		logger = logging.NopLogger{}
	}
	return &ExitController{
		Gateway:  gw,
		Registry: reg,
		Rules:    RulesFromConfig(cfg),
		Config:   cfg,
		Logger:   logger,
		Observer: observer,
		State:    state,
		now:      time.Now,
	}
}

// Tick runs one exit evaluation. A tick that starts while another is still
// running returns immediately.
func (ec *ExitController) Tick(ctx context.Context) error {
	if !ec.running.CompareAndSwap(false, true) {
		ec.Logger.Debug("Exit tick still running, skipping")
		return nil
	}
	defer ec.running.Store(false)

	if ec.Registry.Count() == 0 {
		metrics.PositionsOpen.Set(0)
		return nil
	}

	price, err := ec.latestPrice(ctx)
	if err != nil {
		return err
	}
	atr, err := ec.currentATR(ctx)
	if err != nil {
		return err
	}
	now := ec.now()
	if ec.State != nil {
		ec.State.RecordExitTick(price, now)
	}
	metrics.LastPrice.Set(price)
	ec.Logger.Debug("Exit tick: price %.6f ATR %.6f slippage band %.6f, %d open", price, atr,
		atr*ec.Rules.SlippageTolerance, ec.Registry.Count())

	var errs error
	if ec.Config.ReconcilePositions {
		errs = multierr.Append(errs, ec.reconcile(ctx, price))
	}

	for _, id := range ec.Registry.IDs() {
		var (
			adj    Adjustment
			reason models.ExitReason
		)
		p, ok := ec.Registry.Update(id, func(p *models.Position) {
			if p.Closing {
				return
			}
			adj, reason = ec.Rules.Apply(p, price, atr, now)
		})
		if !ok {
			continue
		}
		if adj.StopMoved {
			metrics.StopAdjustments.WithLabelValues("trail").Inc()
			ec.Logger.Info("Trailing stop for %s moved %.6f -> %.6f (price %.6f, max profit %.6f)",
				id, adj.OldStop, p.StopLoss, price, p.MaxProfitSoFar)
		}
		if adj.TargetRelaxed {
			metrics.StopAdjustments.WithLabelValues("relax").Inc()
			ec.Logger.Info("Take profit for %s relaxed %.6f -> %.6f after stagnation", id, adj.OldTarget, p.TakeProfit)
		}
		if reason != "" {
			errs = multierr.Append(errs, ec.close(ctx, id, reason, price))
		}
	}
	metrics.PositionsOpen.Set(float64(ec.Registry.Count()))
	return errs
}

// close sends one close request; the position stays registered when the
// exchange does not confirm, so the next tick retries.
func (ec *ExitController) close(ctx context.Context, id string, reason models.ExitReason, price float64) error {
	p, ok := ec.Registry.BeginClose(id)
	if !ok {
		return nil
	}
	ec.Logger.Info("Closing %s %s: %s at %.6f (entry %.6f, SL %.6f, TP %.6f)",
		p.Side, id, reason, price, p.EntryPrice, p.StopLoss, p.TakeProfit)

	cctx, cancel := context.WithTimeout(ctx, ec.Config.RequestTimeout)
	closed, err := ec.Gateway.ClosePosition(cctx, id, p.Side, p.Size)
	cancel()
	if err != nil || !closed {
		ec.Registry.EndClose(id)
		metrics.CloseFailures.Inc()
		if err == nil {
			err = fmt.Errorf("%w: close of %s not confirmed", models.ErrGateway, id)
		}
		ec.Logger.Error("Failed to close position %s: %v", id, err)
		return err
	}

	return ec.finish(ctx, id, reason, price)
}

func (ec *ExitController) finish(ctx context.Context, id string, reason models.ExitReason, price float64) error {
	p, ok := ec.Registry.Remove(id)
	if !ok {
		return nil
	}
	metrics.Exits.WithLabelValues(string(reason)).Inc()
	ec.Logger.Info("Position %s closed by %s at %.6f, profit %.6f", id, reason, price, p.Profit(price))
	if ec.Observer == nil {
		return nil
	}
	if err := ec.Observer.PositionClosed(ctx, p, reason, price); err != nil {
		ec.Logger.Warning("Trade observers failed for %s: %v", id, err)
	}
	return nil
}

// reconcile drops positions the exchange no longer holds, e.g. after an
// attached stop or target filled on the exchange side. Only positions
// registered before the exchange snapshot was requested are candidates:
// an entry added while the request is in flight may be missing from it.
func (ec *ExitController) reconcile(ctx context.Context, price float64) error {
	known := ec.Registry.List()
	if len(known) == 0 {
		return nil
	}

	rctx, cancel := context.WithTimeout(ctx, ec.Config.RequestTimeout)
	held, err := ec.Gateway.GetPositions(rctx)
	cancel()
	if err != nil {
		ec.Logger.Warning("Position reconciliation skipped: %v", err)
		return nil
	}
	for _, p := range known {
		if p.Closing || held[p.Side] > 0 {
			continue
		}
		if _, ok := ec.Registry.BeginClose(p.ClientOrderID); !ok {
			continue
		}
		ec.Logger.Warning("Position %s (%s) no longer held on exchange", p.ClientOrderID, p.Side)
		if err := ec.finish(ctx, p.ClientOrderID, models.ExitExternal, price); err != nil {
			return err
		}
	}
	return nil
}

func (ec *ExitController) latestPrice(ctx context.Context) (float64, error) {
	pctx, cancel := context.WithTimeout(ctx, ec.Config.RequestTimeout)
	defer cancel()
	price, err := ec.Gateway.GetLatestPrice(pctx)
	if err != nil {
		return 0, fmt.Errorf("exit tick price: %w", err)
	}
	return price, nil
}

func (ec *ExitController) currentATR(ctx context.Context) (float64, error) {
	cctx, cancel := context.WithTimeout(ctx, ec.Config.RequestTimeout)
	defer cancel()
	candles, err := ec.Gateway.GetCandles(cctx, ec.Config.Timeframe, ec.Config.ExitCandleLimit)
	if err != nil {
		return 0, fmt.Errorf("exit tick candles: %w", err)
	}
	atr, err := indicators.CandleATR(candles, ec.Config.ATRPeriod)
	if err != nil {
		return 0, fmt.Errorf("exit tick ATR: %w", err)
	}
	return atr, nil
}
