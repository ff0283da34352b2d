package api

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"swap-sentinel/config"
	"swap-sentinel/internal/utils"
	"swap-sentinel/logging"
)

// TickerStream keeps the last traded price from the public tickers channel
type TickerStream struct {
	URL        string
	InstID     string
	PingPeriod time.Duration
	Logger     logging.LoggerInterface
	Dialer     *websocket.Dialer

	price atomic.Uint64
	at    atomic.Int64
}

// NewTickerStream creates a stream for the configured instrument
func NewTickerStream(cfg *config.Config, logger logging.LoggerInterface) *TickerStream {
	if logger == nil {
		logger = logging.NopLogger{}
	}
	return &TickerStream{
		URL:        cfg.WSPublicURL,
		InstID:     cfg.InstID,
		PingPeriod: cfg.PingPeriod,
		Logger:     logger,
		Dialer:     websocket.DefaultDialer,
	}
}

// Latest returns the last streamed price and when it arrived
func (s *TickerStream) Latest() (float64, time.Time, bool) {
	ns := s.at.Load()
	if ns == 0 {
		return 0, time.Time{}, false
	}
	return math.Float64frombits(s.price.Load()), time.Unix(0, ns), true
}

func (s *TickerStream) store(price float64, at time.Time) {
	s.price.Store(math.Float64bits(price))
	s.at.Store(at.UnixNano())
}

// Run keeps the stream connected until ctx is cancelled
func (s *TickerStream) Run(ctx context.Context) error {
	for attempt := 0; ; attempt++ {
		if attempt > 0 {
			wait := time.Duration(attempt*2) * time.Second
			if wait > 30*time.Second {
				wait = 30 * time.Second
			}
			s.Logger.Info("Attempting reconnect attempt #%d to public WebSocket in %v", attempt, wait)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(wait):
			}
		}

		received, err := s.session(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if received {
			attempt = 0
		}
		s.Logger.Warning("Public WebSocket session ended: %v", err)
	}
}

type tickerMsg struct {
	Event string `json:"event"`
	Msg   string `json:"msg"`
	Data  []struct {
		InstID string `json:"instId"`
		Last   string `json:"last"`
	} `json:"data"`
}

// session runs one connection; received reports whether any price arrived
func (s *TickerStream) session(ctx context.Context) (received bool, err error) {
	conn, _, err := s.Dialer.DialContext(ctx, s.URL, nil)
	if err != nil {
		return false, fmt.Errorf("dial %s: %w", s.URL, err)
	}
	defer conn.Close()
	s.Logger.Info("Successfully connected to public WebSocket: %s", s.URL)

	sub := map[string]interface{}{
		"op":   "subscribe",
		"args": []map[string]string{{"channel": "tickers", "instId": s.InstID}},
	}
	if err := conn.WriteJSON(sub); err != nil {
		return false, fmt.Errorf("subscribe: %w", err)
	}

	pingPeriod := s.PingPeriod
	if pingPeriod <= 0 {
		pingPeriod = 25 * time.Second
	}
	readWait := 2 * pingPeriod

	done := make(chan struct{})
	defer close(done)
	go func() {
		ticker := time.NewTicker(pingPeriod)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ctx.Done():
				conn.Close()
				return
			case <-ticker.C:
				if err := conn.WriteMessage(websocket.TextMessage, []byte("ping")); err != nil {
					return
				}
			}
		}
	}()

	for {
		conn.SetReadDeadline(time.Now().Add(readWait))
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return received, err
		}
		if string(raw) == "pong" {
			continue
		}
		var msg tickerMsg
		if err := json.Unmarshal(raw, &msg); err != nil {
			s.Logger.Debug("Ignoring malformed ticker message: %s", string(raw))
			continue
		}
		switch msg.Event {
		case "error":
			return received, fmt.Errorf("subscription error: %s", msg.Msg)
		case "subscribe":
			s.Logger.Info("Subscribed to tickers for %s", s.InstID)
			continue
		}
		for _, d := range msg.Data {
			if d.InstID != "" && d.InstID != s.InstID {
				continue
			}
			if p, ok := utils.ParseFloat(d.Last); ok && p > 0 {
				s.store(p, time.Now())
				received = true
			}
		}
	}
}
