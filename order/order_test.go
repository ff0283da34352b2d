package order

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"swap-sentinel/config"
	"swap-sentinel/logging"
	"swap-sentinel/models"
)

type fakeGateway struct {
	placeID    string
	placeErr   error
	state      string
	stateErr   error
	placed     []models.OrderRequest
	stateCalls int
}

func (f *fakeGateway) PlaceOrder(_ context.Context, req models.OrderRequest) (string, error) {
	f.placed = append(f.placed, req)
	return f.placeID, f.placeErr
}

func (f *fakeGateway) ClosePosition(context.Context, string, models.Side, float64) (bool, error) {
	return true, nil
}

func (f *fakeGateway) GetOrderState(context.Context, string) (string, error) {
	f.stateCalls++
	return f.state, f.stateErr
}

func (f *fakeGateway) GetPositions(context.Context) (map[models.Side]float64, error) {
	return nil, nil
}

func newTestManager(gw *fakeGateway) *OrderManager {
	cfg := config.LoadConfig()
	cfg.TickSize = 0.01
	om := NewOrderManager(gw, cfg, logging.NopLogger{})
	om.newID = func() string { return "cid1" }
	om.now = func() time.Time { return time.Unix(1700000000, 0) }
	return om
}

func TestPlanUsesATRMultiples(t *testing.T) {
	om := newTestManager(&fakeGateway{})

	long := om.Plan(models.SideLong, 100, 2)
	if long.StopLoss != 97 || long.TakeProfit != 106 || long.TrailTrigger != 102 {
		t.Fatalf("unexpected long levels: %+v", long)
	}
	short := om.Plan(models.SideShort, 100, 2)
	if short.StopLoss != 103 || short.TakeProfit != 94 || short.TrailTrigger != 98 {
		t.Fatalf("unexpected short levels: %+v", short)
	}
	if math.Abs(long.Size-0.1) > 1e-12 || long.ClientOrderID != "cid1" {
		t.Fatalf("unexpected size/id: %+v", long)
	}
}

func TestNewClientOrderIDFormat(t *testing.T) {
	id := NewClientOrderID()
	if len(id) != 32 {
		t.Fatalf("expected 32 chars, got %d (%s)", len(id), id)
	}
	if len(id) > MaxClientOrderIDLen {
		t.Fatalf("id %s exceeds %d characters", id, MaxClientOrderIDLen)
	}
	for _, r := range id {
		if !(r >= '0' && r <= '9' || r >= 'a' && r <= 'f') {
			t.Fatalf("unexpected character %q in %s", r, id)
		}
	}
	if NewClientOrderID() == id {
		t.Fatalf("ids should be unique")
	}
}

func TestOpenReturnsPosition(t *testing.T) {
	gw := &fakeGateway{placeID: "cid1"}
	om := newTestManager(gw)

	pos, err := om.Open(context.Background(), om.Plan(models.SideLong, 100, 2))
	if err != nil {
		t.Fatalf("Open error: %v", err)
	}
	if pos.ClientOrderID != "cid1" || pos.EntryPrice != 100 || pos.StopLoss != 97 || pos.TakeProfit != 106 {
		t.Fatalf("unexpected position: %+v", pos)
	}
	if !pos.OpenTime.Equal(pos.LastAdjustTime) || pos.MaxProfitSoFar != 0 {
		t.Fatalf("unexpected bookkeeping: %+v", pos)
	}
	if gw.stateCalls != 0 {
		t.Fatalf("no reconciliation expected on success")
	}
}

func TestOpenReconcilesLostAcknowledgement(t *testing.T) {
	gw := &fakeGateway{placeErr: errors.New("connection reset"), state: "filled"}
	om := newTestManager(gw)

	pos, err := om.Open(context.Background(), om.Plan(models.SideShort, 100, 2))
	if err != nil {
		t.Fatalf("expected reconciled position, got %v", err)
	}
	if pos.ClientOrderID != "cid1" || gw.stateCalls != 1 {
		t.Fatalf("unexpected reconcile result: %+v calls=%d", pos, gw.stateCalls)
	}
}

func TestOpenRejected(t *testing.T) {
	cases := []struct {
		name string
		gw   *fakeGateway
	}{
		{"rejected and unknown", &fakeGateway{placeErr: models.ErrGateway, state: ""}},
		{"rejected and canceled", &fakeGateway{placeErr: models.ErrGateway, state: "canceled"}},
		{"empty id", &fakeGateway{placeID: ""}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			om := newTestManager(tc.gw)
			_, err := om.Open(context.Background(), om.Plan(models.SideLong, 100, 2))
			if !errors.Is(err, ErrNoPosition) {
				t.Fatalf("expected ErrNoPosition, got %v", err)
			}
		})
	}
}

func TestOpenOutcomeUnknownThenResolved(t *testing.T) {
	gw := &fakeGateway{placeErr: errors.New("timeout"), stateErr: errors.New("timeout")}
	om := newTestManager(gw)
	req := om.Plan(models.SideLong, 100, 2)

	_, err := om.Open(context.Background(), req)
	if !errors.Is(err, ErrOutcomeUnknown) || errors.Is(err, ErrNoPosition) {
		t.Fatalf("expected ErrOutcomeUnknown only, got %v", err)
	}

	if _, err := om.Resolve(context.Background(), req); !errors.Is(err, ErrOutcomeUnknown) {
		t.Fatalf("state still unreadable, got %v", err)
	}

	gw.stateErr = nil
	gw.state = "filled"
	pos, err := om.Resolve(context.Background(), req)
	if err != nil {
		t.Fatalf("Resolve error: %v", err)
	}
	if pos.ClientOrderID != "cid1" || pos.Size != req.Size || pos.StopLoss != 97 {
		t.Fatalf("unexpected resolved position: %+v", pos)
	}

	gw.state = "canceled"
	if _, err := om.Resolve(context.Background(), req); !errors.Is(err, ErrNoPosition) {
		t.Fatalf("expected ErrNoPosition for canceled order, got %v", err)
	}
}
