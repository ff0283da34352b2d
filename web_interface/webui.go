package web_interface

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"swap-sentinel/config"
	"swap-sentinel/journal"
	"swap-sentinel/logging"
	"swap-sentinel/models"
	"swap-sentinel/position"
)

// WebUI pushes dashboard data and trade events to WebSocket clients
type WebUI struct {
	Config   *config.Config
	State    *models.State
	Registry *position.Registry
	Journal  journal.Reader
	Logger   logging.LoggerInterface

	upgrader  websocket.Upgrader
	mu        sync.Mutex
	clients   map[*websocket.Conn]bool
	broadcast chan Message
	interval  time.Duration
}

// Message represents a WebSocket message
type Message struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// DashboardData represents dashboard statistics
type DashboardData struct {
	InstID        string                   `json:"instId"`
	CurrentPrice  float64                  `json:"currentPrice"`
	LastPollAt    time.Time                `json:"lastPollAt"`
	Indicators    models.IndicatorSnapshot `json:"indicators"`
	LastDecision  models.Decision          `json:"lastDecision"`
	OpenPositions []Position               `json:"openPositions"`
	Summary       *journal.Summary         `json:"summary,omitempty"`
}

// Position represents an open position with its unrealized result
type Position struct {
	models.Position
	MarkPrice     float64 `json:"markPrice"`
	UnrealizedPnL float64 `json:"unrealizedPnL"`
}

// TradeEvent is the payload of position_opened and position_closed messages
type TradeEvent struct {
	Position models.Position   `json:"position"`
	Reason   models.ExitReason `json:"reason,omitempty"`
	Price    float64           `json:"price"`
	Profit   float64           `json:"profit,omitempty"`
}

// NewWebUI creates a new WebUI instance
func NewWebUI(cfg *config.Config, state *models.State, reg *position.Registry, j journal.Reader, logger logging.LoggerInterface) *WebUI {
	if logger == nil {
		logger = logging.NopLogger{}
	}
	return &WebUI{
		Config:   cfg,
		State:    state,
		Registry: reg,
		Journal:  j,
		Logger:   logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		clients:   make(map[*websocket.Conn]bool),
		broadcast: make(chan Message, 64),
		interval:  5 * time.Second,
	}
}

// Run delivers broadcasts and periodic dashboard updates until ctx is done
func (w *WebUI) Run(ctx context.Context) {
	go w.startPeriodicUpdates(ctx)
	w.handleBroadcasts(ctx)
}

// ServeWS upgrades the request and keeps the client registered until it disconnects
func (w *WebUI) ServeWS(rw http.ResponseWriter, r *http.Request) {
	conn, err := w.upgrader.Upgrade(rw, r, nil)
	if err != nil {
		w.Logger.Warning("WebSocket upgrade error: %v", err)
		return
	}
	defer conn.Close()

	w.mu.Lock()
	w.clients[conn] = true
	err = conn.WriteJSON(Message{Type: "dashboard_update", Data: w.GetDashboardData(r.Context())})
	w.mu.Unlock()
	defer w.removeClient(conn)
	if err != nil {
		return
	}

	// Clients only listen; reading detects disconnects
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			w.Logger.Debug("WebSocket client left: %v", err)
			return
		}
	}
}

// DashboardHandler serves the dashboard data as JSON
func (w *WebUI) DashboardHandler(rw http.ResponseWriter, r *http.Request) {
	rw.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(rw).Encode(w.GetDashboardData(r.Context())); err != nil {
		http.Error(rw, "JSON marshaling error", http.StatusInternalServerError)
	}
}

// GetDashboardData collects state, open positions and the journal summary
func (w *WebUI) GetDashboardData(ctx context.Context) DashboardData {
	var data DashboardData
	if w.Config != nil {
		data.InstID = w.Config.InstID
	}
	if w.State != nil {
		w.State.StatusLock.RLock()
		data.CurrentPrice = w.State.LastPrice
		data.LastPollAt = w.State.LastPollAt
		data.Indicators = w.State.LastIndicators
		data.LastDecision = w.State.LastDecision
		w.State.StatusLock.RUnlock()
	}
	data.OpenPositions = w.getOpenPositions(data.CurrentPrice)
	if w.Journal != nil {
		records, err := w.Journal.Records(ctx)
		if err != nil {
			w.Logger.Warning("Dashboard: journal unavailable: %v", err)
		} else {
			sum := journal.Summarize(records)
			data.Summary = &sum
		}
	}
	return data
}

func (w *WebUI) getOpenPositions(mark float64) []Position {
	if w.Registry == nil {
		return nil
	}
	list := w.Registry.List()
	out := make([]Position, 0, len(list))
	for _, p := range list {
		pos := Position{Position: p, MarkPrice: mark}
		if mark > 0 {
			pos.UnrealizedPnL = p.Profit(mark) * p.Size
		}
		out = append(out, pos)
	}
	return out
}

func (w *WebUI) PositionOpened(_ context.Context, p models.Position, _ models.IndicatorSnapshot) error {
	w.BroadcastUpdate("position_opened", TradeEvent{Position: p, Price: p.EntryPrice})
	return nil
}

func (w *WebUI) PositionClosed(_ context.Context, p models.Position, reason models.ExitReason, price float64) error {
	w.BroadcastUpdate("position_closed", TradeEvent{Position: p, Reason: reason, Price: price, Profit: p.Profit(price)})
	return nil
}

// BroadcastUpdate queues a message for every client; it never blocks
func (w *WebUI) BroadcastUpdate(msgType string, data interface{}) {
	select {
	case w.broadcast <- Message{Type: msgType, Data: data}:
	default:
		w.Logger.Warning("Broadcast channel is full, dropping %s", msgType)
	}
}

// ClientCount returns the number of connected clients
func (w *WebUI) ClientCount() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.clients)
}

func (w *WebUI) removeClient(conn *websocket.Conn) {
	w.mu.Lock()
	delete(w.clients, conn)
	w.mu.Unlock()
}
