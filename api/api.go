package api

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"swap-sentinel/config"
	"swap-sentinel/internal/constants"
	"swap-sentinel/internal/utils"
	"swap-sentinel/logging"
	"swap-sentinel/models"
)

// PriceSource supplies a cached last price, typically from the ticker stream
type PriceSource interface {
	Latest() (price float64, at time.Time, ok bool)
}

// Client talks to the OKX v5 REST API for a single instrument
type Client struct {
	Config     *config.Config
	Logger     logging.LoggerInterface
	HTTPClient *http.Client
	Prices     PriceSource

	limiter *rate.Limiter
	now     func() time.Time
}

// NewClient creates a new REST API client
func NewClient(cfg *config.Config, logger logging.LoggerInterface) *Client {
	if logger == nil {
		logger = logging.NopLogger{}
	}
	rps := cfg.RequestsPerSec
	if rps <= 0 {
		rps = 8
	}
	return &Client{
		Config:     cfg,
		Logger:     logger,
		HTTPClient: &http.Client{},
		limiter:    rate.NewLimiter(rate.Limit(rps), int(math.Max(1, rps))),
		now:        time.Now,
	}
}

// Sign returns the base64 HMAC-SHA256 of timestamp+method+requestPath+body
func (c *Client) Sign(timestamp, method, requestPath, body string) string {
	mac := hmac.New(sha256.New, []byte(c.Config.APISecret))
	mac.Write([]byte(timestamp + method + requestPath + body))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

type envelope struct {
	Code string          `json:"code"`
	Msg  string          `json:"msg"`
	Data json.RawMessage `json:"data"`
}

// apiError is a non-zero OKX response code
type apiError struct {
	Code string
	Msg  string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("okx error %s: %s", e.Code, e.Msg)
}

// do sends a request and returns the data field of a successful response
func (c *Client) do(ctx context.Context, method, path string, query url.Values, payload interface{}, private bool) (json.RawMessage, error) {
	requestPath := path
	if len(query) > 0 {
		requestPath += "?" + query.Encode()
	}

	var body []byte
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encode %s body: %w", path, err)
		}
		body = raw
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, method, c.Config.RESTHost+requestPath, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if private {
		ts := c.now().UTC().Format("2006-01-02T15:04:05.000Z")
		req.Header.Set("OK-ACCESS-KEY", c.Config.APIKey)
		req.Header.Set("OK-ACCESS-SIGN", c.Sign(ts, method, requestPath, string(body)))
		req.Header.Set("OK-ACCESS-TIMESTAMP", ts)
		req.Header.Set("OK-ACCESS-PASSPHRASE", c.Config.Passphrase)
	}
	if c.Config.Simulated {
		req.Header.Set("x-simulated-trading", "1")
	}

	if method == http.MethodGet {
		c.Logger.Debug("Sending GET request to exchange: %s", requestPath)
	} else {
		c.Logger.Info("Sending %s request to exchange: %s, Body: %s", method, requestPath, string(body))
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		c.Logger.Error("Failed to send %s request to exchange: %v", method, err)
		return nil, err
	}
	defer resp.Body.Close()
	reply, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s response: %w", path, err)
	}

	c.Logger.Debug("Received response from exchange for %s: Status %d, Body: %s", path, resp.StatusCode, string(reply))

	var env envelope
	if err := json.Unmarshal(reply, &env); err != nil {
		return nil, fmt.Errorf("decode %s response (status %d): %w", path, resp.StatusCode, err)
	}
	if env.Code != "0" {
		c.Logger.Error("Error in %s response: %s: %s", path, env.Code, env.Msg)
		return nil, &apiError{Code: env.Code, Msg: env.Msg}
	}
	return env.Data, nil
}

// GetCandles fetches candles oldest first
func (c *Client) GetCandles(ctx context.Context, timeframe string, limit int) ([]models.Candle, error) {
	q := url.Values{}
	q.Set("instId", c.Config.InstID)
	q.Set("bar", timeframe)
	q.Set("limit", strconv.Itoa(limit))

	data, err := c.do(ctx, http.MethodGet, "/api/v5/market/candles", q, nil, false)
	if err != nil {
		return nil, fmt.Errorf("%w: candles: %v", models.ErrDataUnavailable, err)
	}

	var rows [][]string
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("%w: candles: %v", models.ErrDataUnavailable, err)
	}
	candles := make([]models.Candle, 0, len(rows))
	for _, row := range rows {
		cd, err := parseCandle(row)
		if err != nil {
			return nil, fmt.Errorf("%w: candles: %v", models.ErrDataUnavailable, err)
		}
		candles = append(candles, cd)
	}
	// OKX returns newest first
	sort.Slice(candles, func(i, j int) bool { return candles[i].Timestamp.Before(candles[j].Timestamp) })
	return candles, nil
}

func parseCandle(row []string) (models.Candle, error) {
	if len(row) < 6 {
		return models.Candle{}, fmt.Errorf("short candle row %v", row)
	}
	ms, err := strconv.ParseInt(row[0], 10, 64)
	if err != nil {
		return models.Candle{}, fmt.Errorf("bad candle timestamp %q", row[0])
	}
	vals := make([]float64, 5)
	for i := range vals {
		v, ok := utils.ParseFloat(row[i+1])
		if !ok {
			return models.Candle{}, fmt.Errorf("bad candle value %q", row[i+1])
		}
		vals[i] = v
	}
	return models.Candle{
		Timestamp: time.UnixMilli(ms).UTC(),
		Open:      vals[0],
		High:      vals[1],
		Low:       vals[2],
		Close:     vals[3],
		Volume:    vals[4],
	}, nil
}

// GetLatestPrice prefers a fresh streamed price and falls back to the REST ticker
func (c *Client) GetLatestPrice(ctx context.Context) (float64, error) {
	if c.Prices != nil {
		if p, at, ok := c.Prices.Latest(); ok && c.now().Sub(at) <= c.Config.PriceMaxAge {
			return p, nil
		}
	}

	q := url.Values{}
	q.Set("instId", c.Config.InstID)
	data, err := c.do(ctx, http.MethodGet, "/api/v5/market/ticker", q, nil, false)
	if err != nil {
		return 0, fmt.Errorf("%w: ticker: %v", models.ErrDataUnavailable, err)
	}
	var tickers []struct {
		Last string `json:"last"`
	}
	if err := json.Unmarshal(data, &tickers); err != nil || len(tickers) == 0 {
		return 0, fmt.Errorf("%w: ticker: empty or malformed response", models.ErrDataUnavailable)
	}
	last, ok := utils.ParseFloat(tickers[0].Last)
	if !ok || last <= 0 {
		return 0, fmt.Errorf("%w: ticker: bad last price %q", models.ErrDataUnavailable, tickers[0].Last)
	}
	return last, nil
}

// PlaceOrder sends a cross-margin market order with attached stop-loss and take-profit
func (c *Client) PlaceOrder(ctx context.Context, req models.OrderRequest) (string, error) {
	body := map[string]interface{}{
		"instId":  c.Config.InstID,
		"tdMode":  constants.MarginModeCross,
		"side":    req.Side.OrderSide(),
		"posSide": string(req.Side),
		"ordType": constants.OrderTypeMarket,
		"sz":      utils.FormatQuantityToString(req.Size, c.Config.LotSize),
		"clOrdId": req.ClientOrderID,
	}
	if req.StopLoss > 0 {
		body["slTriggerPx"] = utils.FormatPriceToString(req.StopLoss, c.Config.TickSize)
		body["slOrdPx"] = "-1"
	}
	if req.TakeProfit > 0 {
		body["tpTriggerPx"] = utils.FormatPriceToString(req.TakeProfit, c.Config.TickSize)
		body["tpOrdPx"] = "-1"
	}

	data, err := c.do(ctx, http.MethodPost, "/api/v5/trade/order", nil, body, true)
	if err != nil {
		return "", fmt.Errorf("%w: place order %s: %v", models.ErrGateway, req.ClientOrderID, err)
	}
	var acks []struct {
		ClOrdID string `json:"clOrdId"`
		OrdID   string `json:"ordId"`
		SCode   string `json:"sCode"`
		SMsg    string `json:"sMsg"`
	}
	if err := json.Unmarshal(data, &acks); err != nil || len(acks) == 0 {
		return "", fmt.Errorf("%w: place order %s: malformed acknowledgement", models.ErrGateway, req.ClientOrderID)
	}
	if acks[0].SCode != "" && acks[0].SCode != "0" {
		return "", fmt.Errorf("%w: place order %s rejected: %s %s", models.ErrGateway, req.ClientOrderID, acks[0].SCode, acks[0].SMsg)
	}
	id := acks[0].ClOrdID
	if id == "" {
		id = req.ClientOrderID
	}
	c.Logger.Info("Order accepted: clOrdId=%s ordId=%s", id, acks[0].OrdID)
	return id, nil
}

// ClosePosition sends a reduce-only market order for the size opened by
// clientOrderID. close-position would flatten the whole side, including other
// positions stacked on it.
func (c *Client) ClosePosition(ctx context.Context, clientOrderID string, side models.Side, size float64) (bool, error) {
	closeSide := models.SideShort.OrderSide()
	if side == models.SideShort {
		closeSide = models.SideLong.OrderSide()
	}
	body := map[string]interface{}{
		"instId":     c.Config.InstID,
		"tdMode":     constants.MarginModeCross,
		"side":       closeSide,
		"posSide":    string(side),
		"ordType":    constants.OrderTypeMarket,
		"sz":         utils.FormatQuantityToString(size, c.Config.LotSize),
		"reduceOnly": true,
	}
	data, err := c.do(ctx, http.MethodPost, "/api/v5/trade/order", nil, body, true)
	if err != nil {
		return false, fmt.Errorf("%w: close %s %s: %v", models.ErrGateway, side, clientOrderID, err)
	}
	var acks []struct {
		OrdID string `json:"ordId"`
		SCode string `json:"sCode"`
		SMsg  string `json:"sMsg"`
	}
	if err := json.Unmarshal(data, &acks); err != nil || len(acks) == 0 {
		return false, nil
	}
	if acks[0].SCode != "" && acks[0].SCode != "0" {
		return false, fmt.Errorf("%w: close %s rejected: %s %s", models.ErrGateway, clientOrderID, acks[0].SCode, acks[0].SMsg)
	}
	c.Logger.Info("Close order accepted for %s: ordId=%s", clientOrderID, acks[0].OrdID)
	return true, nil
}

// GetOrderState returns the OKX order state, or "" when the order is unknown
func (c *Client) GetOrderState(ctx context.Context, clientOrderID string) (string, error) {
	q := url.Values{}
	q.Set("instId", c.Config.InstID)
	q.Set("clOrdId", clientOrderID)
	data, err := c.do(ctx, http.MethodGet, "/api/v5/trade/order", q, nil, true)
	if err != nil {
		var apiErr *apiError
		// 51603: order does not exist
		if errors.As(err, &apiErr) && apiErr.Code == "51603" {
			return "", nil
		}
		return "", fmt.Errorf("%w: order state %s: %v", models.ErrGateway, clientOrderID, err)
	}
	var orders []struct {
		State string `json:"state"`
	}
	if err := json.Unmarshal(data, &orders); err != nil {
		return "", fmt.Errorf("%w: order state %s: %v", models.ErrGateway, clientOrderID, err)
	}
	if len(orders) == 0 {
		return "", nil
	}
	return orders[0].State, nil
}

// GetPositions returns the open size per side for the instrument
func (c *Client) GetPositions(ctx context.Context) (map[models.Side]float64, error) {
	q := url.Values{}
	q.Set("instType", constants.InstTypeSwap)
	q.Set("instId", c.Config.InstID)
	data, err := c.do(ctx, http.MethodGet, "/api/v5/account/positions", q, nil, true)
	if err != nil {
		return nil, fmt.Errorf("%w: positions: %v", models.ErrGateway, err)
	}
	var rows []struct {
		PosSide string `json:"posSide"`
		Pos     string `json:"pos"`
	}
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("%w: positions: %v", models.ErrGateway, err)
	}
	out := map[models.Side]float64{}
	for _, r := range rows {
		size, ok := utils.ParseFloat(r.Pos)
		if !ok || size == 0 {
			continue
		}
		side, known := models.ParseSide(r.PosSide)
		if !known {
			// net mode: the sign carries the direction
			side = models.SideLong
			if size < 0 {
				side = models.SideShort
			}
		}
		out[side] += math.Abs(size)
	}
	return out, nil
}

// SetLeverage sets cross-margin leverage for the instrument
func (c *Client) SetLeverage(ctx context.Context, leverage int) error {
	body := map[string]interface{}{
		"instId":  c.Config.InstID,
		"lever":   strconv.Itoa(leverage),
		"mgnMode": constants.MarginModeCross,
	}
	if _, err := c.do(ctx, http.MethodPost, "/api/v5/account/set-leverage", nil, body, true); err != nil {
		return fmt.Errorf("%w: set leverage: %v", models.ErrGateway, err)
	}
	return nil
}
