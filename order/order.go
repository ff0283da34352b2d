package order

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"swap-sentinel/config"
	"swap-sentinel/interfaces"
	"swap-sentinel/internal/constants"
	"swap-sentinel/internal/utils"
	"swap-sentinel/logging"
	"swap-sentinel/models"
)

var (
	// ErrNoPosition means the exchange did not open a position for the request
	ErrNoPosition = errors.New("no position opened")
	// ErrOutcomeUnknown means placement failed and the order state could not
	// be read either, so the exchange may hold a position for the request
	ErrOutcomeUnknown = errors.New("order outcome unknown")
)

// MaxClientOrderIDLen is the longest clOrdId OKX accepts
const MaxClientOrderIDLen = 32

// OrderManager turns entry decisions into exchange orders
type OrderManager struct {
	Gateway interfaces.OrderGateway
	Config  *config.Config
	Logger  logging.LoggerInterface

	newID func() string
	now   func() time.Time
}

// NewOrderManager creates a new order manager
func NewOrderManager(gw interfaces.OrderGateway, cfg *config.Config, logger logging.LoggerInterface) *OrderManager {
	return &OrderManager{
		Gateway: gw,
		Config:  cfg,
		Logger:  logger,
		newID:   NewClientOrderID,
		now:     time.Now,
	}
}

// NewClientOrderID returns a 32 character hex id; clOrdId must be
// alphanumeric and at most MaxClientOrderIDLen long
func NewClientOrderID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// Plan builds the order for an entry at price with ATR-based protection:
// stop at entry ∓ AtrSLMult·atr, target at entry ± AtrTPMult·atr.
func (om *OrderManager) Plan(side models.Side, price, atr float64) models.OrderRequest {
	sign := side.Sign()
	tick := om.Config.TickSize
	return models.OrderRequest{
		ClientOrderID: om.newID(),
		Side:          side,
		EntryPrice:    price,
		StopLoss:      utils.FormatPrice(price-sign*om.Config.AtrSLMult*atr, tick),
		TakeProfit:    utils.FormatPrice(price+sign*om.Config.AtrTPMult*atr, tick),
		TrailTrigger:  utils.FormatPrice(price+sign*om.Config.AtrTrailTriggerMult*atr, tick),
		Size:          utils.FormatQuantity(om.Config.OrderSize, om.Config.LotSize),
	}
}

// Open places the planned order. When placement fails the order state is
// queried by client order id, so a lost acknowledgement still yields the
// position the exchange actually opened. If that query fails too the error
// wraps ErrOutcomeUnknown and the caller should Resolve the request later.
func (om *OrderManager) Open(ctx context.Context, req models.OrderRequest) (models.Position, error) {
	if req.Size <= 0 {
		return models.Position{}, fmt.Errorf("%w: size %.8f below lot size", ErrNoPosition, om.Config.OrderSize)
	}

	pctx, cancel := context.WithTimeout(ctx, om.Config.RequestTimeout)
	id, err := om.Gateway.PlaceOrder(pctx, req)
	cancel()

	if err == nil && id != "" {
		om.Logger.Info("Order placed: %s %s size %.4f @ %.6f SL %.6f TP %.6f trail %.6f",
			req.Side.OrderSide(), om.Config.InstID, req.Size, req.EntryPrice, req.StopLoss, req.TakeProfit, req.TrailTrigger)
		return om.position(id, req), nil
	}
	if err == nil {
		err = errors.New("empty order id")
	}
	om.Logger.Warning("Order %s placement failed: %v; checking order state", req.ClientOrderID, err)
	pos, rerr := om.Resolve(ctx, req)
	if rerr != nil {
		return models.Position{}, fmt.Errorf("placement failed (%v): %w", err, rerr)
	}
	return pos, nil
}

// Resolve looks up an order whose placement outcome was not confirmed.
// It returns the position when the exchange accepted the order, an
// ErrNoPosition error when it did not, and ErrOutcomeUnknown when the
// state query itself failed.
func (om *OrderManager) Resolve(ctx context.Context, req models.OrderRequest) (models.Position, error) {
	state, err := om.orderState(ctx, req.ClientOrderID)
	if err != nil {
		return models.Position{}, fmt.Errorf("%w: order %s: %v", ErrOutcomeUnknown, req.ClientOrderID, err)
	}
	if !accepted(state) {
		return models.Position{}, fmt.Errorf("%w: order %s state %q", ErrNoPosition, req.ClientOrderID, state)
	}
	om.Logger.Info("Order %s reconciled: exchange state %s", req.ClientOrderID, state)
	return om.position(req.ClientOrderID, req), nil
}

func (om *OrderManager) position(id string, req models.OrderRequest) models.Position {
	now := om.now()
	return models.Position{
		ClientOrderID:  id,
		Side:           req.Side,
		EntryPrice:     req.EntryPrice,
		Size:           req.Size,
		OpenTime:       now,
		StopLoss:       req.StopLoss,
		TakeProfit:     req.TakeProfit,
		TrailTrigger:   req.TrailTrigger,
		LastAdjustTime: now,
	}
}

func (om *OrderManager) orderState(ctx context.Context, id string) (string, error) {
	qctx, cancel := context.WithTimeout(ctx, om.Config.RequestTimeout)
	defer cancel()
	return om.Gateway.GetOrderState(qctx, id)
}

func accepted(state string) bool {
	switch state {
	case constants.OrderStateLive, constants.OrderStatePartiallyFilled, constants.OrderStateFilled:
		return true
	default:
		return false
	}
}
