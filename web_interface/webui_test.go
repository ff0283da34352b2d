package web_interface

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"swap-sentinel/config"
	"swap-sentinel/models"
	"swap-sentinel/position"
)

func TestWebSocketReceivesTradeEvents(t *testing.T) {
	reg := position.NewRegistry()
	state := &models.State{}
	state.RecordExitTick(0.55, time.Now())
	ui := NewWebUI(&config.Config{InstID: "XRP-USDT-SWAP"}, state, reg, nil, nil)
	ui.interval = time.Hour

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go ui.Run(ctx)

	srv := httptest.NewServer(http.HandlerFunc(ui.ServeWS))
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	if err != nil {
		t.Fatalf("dial error: %v", err)
	}
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(3 * time.Second))

	var first struct {
		Type string        `json:"type"`
		Data DashboardData `json:"data"`
	}
	if err := conn.ReadJSON(&first); err != nil {
		t.Fatalf("read initial message: %v", err)
	}
	if first.Type != "dashboard_update" || first.Data.InstID != "XRP-USDT-SWAP" || first.Data.CurrentPrice != 0.55 {
		t.Fatalf("unexpected initial message: %+v", first)
	}

	p := models.Position{ClientOrderID: "a", Side: models.SideLong, EntryPrice: 0.5, Size: 1}
	if err := ui.PositionClosed(context.Background(), p, models.ExitStopLoss, 0.49); err != nil {
		t.Fatalf("PositionClosed error: %v", err)
	}

	var event struct {
		Type string     `json:"type"`
		Data TradeEvent `json:"data"`
	}
	if err := conn.ReadJSON(&event); err != nil {
		t.Fatalf("read event: %v", err)
	}
	if event.Type != "position_closed" || event.Data.Reason != models.ExitStopLoss || event.Data.Position.ClientOrderID != "a" {
		t.Fatalf("unexpected event: %+v", event)
	}
}

func TestDashboardHandler(t *testing.T) {
	reg := position.NewRegistry()
	_ = reg.Add(models.Position{ClientOrderID: "a", Side: models.SideShort, EntryPrice: 0.5, Size: 2})
	state := &models.State{}
	state.RecordExitTick(0.45, time.Now())
	ui := NewWebUI(&config.Config{InstID: "XRP-USDT-SWAP"}, state, reg, nil, nil)

	rec := httptest.NewRecorder()
	ui.DashboardHandler(rec, httptest.NewRequest(http.MethodGet, "/dashboard", nil))
	var data DashboardData
	if err := json.Unmarshal(rec.Body.Bytes(), &data); err != nil {
		t.Fatalf("decode dashboard: %v", err)
	}
	if len(data.OpenPositions) != 1 {
		t.Fatalf("expected one open position, got %d", len(data.OpenPositions))
	}
	if got := data.OpenPositions[0].UnrealizedPnL; got < 0.0999 || got > 0.1001 {
		t.Fatalf("unexpected unrealized pnl %f", got)
	}
}
