package interfaces

import (
	"context"

	"swap-sentinel/models"
)

// MarketData is the read side of the exchange gateway
type MarketData interface {
	// GetCandles returns candles oldest first; failures wrap models.ErrDataUnavailable
	GetCandles(ctx context.Context, timeframe string, limit int) ([]models.Candle, error)
	GetLatestPrice(ctx context.Context) (float64, error)
}

// OrderGateway is the trading side of the exchange gateway
type OrderGateway interface {
	// PlaceOrder returns the client order id accepted by the exchange, or "" and an error
	PlaceOrder(ctx context.Context, req models.OrderRequest) (string, error)
	// ClosePosition reduces the side by size, leaving other positions on the same side open
	ClosePosition(ctx context.Context, clientOrderID string, side models.Side, size float64) (bool, error)
	GetOrderState(ctx context.Context, clientOrderID string) (string, error)
	GetPositions(ctx context.Context) (map[models.Side]float64, error)
}

// Gateway is the full market data and order gateway
type Gateway interface {
	MarketData
	OrderGateway
}

// TradeObserver receives position lifecycle events
type TradeObserver interface {
	PositionOpened(ctx context.Context, p models.Position, snap models.IndicatorSnapshot) error
	PositionClosed(ctx context.Context, p models.Position, reason models.ExitReason, price float64) error
}
