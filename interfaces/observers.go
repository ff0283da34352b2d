package interfaces

import (
	"context"

	"go.uber.org/multierr"

	"swap-sentinel/models"
)

// Observers fans events out to every observer and combines their errors
type Observers []TradeObserver

func (o Observers) PositionOpened(ctx context.Context, p models.Position, snap models.IndicatorSnapshot) error {
	var err error
	for _, obs := range o {
		if obs == nil {
			continue
		}
		err = multierr.Append(err, obs.PositionOpened(ctx, p, snap))
	}
	return err
}

func (o Observers) PositionClosed(ctx context.Context, p models.Position, reason models.ExitReason, price float64) error {
	var err error
	for _, obs := range o {
		if obs == nil {
			continue
		}
		err = multierr.Append(err, obs.PositionClosed(ctx, p, reason, price))
	}
	return err
}
