package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"swap-sentinel/models"
)

type statusResponse struct {
	Time           time.Time                 `json:"time"`
	InstID         string                    `json:"instId"`
	LastPrice      float64                   `json:"lastPrice"`
	LastPollAt     *time.Time                `json:"lastPollAt"`
	LastExitTickAt *time.Time                `json:"lastExitTickAt"`
	PollErrors     int                       `json:"pollErrors"`
	ExitErrors     int                       `json:"exitErrors"`
	OpenPositions  int                       `json:"openPositions"`
	Decision       *models.Decision          `json:"decision"`
	Indicators     *models.IndicatorSnapshot `json:"indicators"`
}

func baseURL(addr string) string {
	url := strings.TrimSpace(addr)
	if url == "" {
		return ""
	}
	if !strings.Contains(url, "://") {
		url = "http://" + url
	}
	return strings.TrimRight(url, "/")
}

func fetch(client *http.Client, url string) ([]byte, error) {
	resp, err := client.Get(url)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("request error: %s\n%s", resp.Status, string(body))
	}
	return body, nil
}

func printStatus(w io.Writer, payload statusResponse, positions []models.Position) {
	fmt.Fprintf(w, "Time: %s\n", formatTime(payload.Time))
	fmt.Fprintf(w, "Instrument: %s last=%.6f\n", payload.InstID, payload.LastPrice)
	fmt.Fprintf(w, "Loops: poll=%s (errors %d) exit=%s (errors %d)\n",
		formatTimePtr(payload.LastPollAt), payload.PollErrors, formatTimePtr(payload.LastExitTickAt), payload.ExitErrors)

	if payload.Decision == nil {
		fmt.Fprintln(w, "Decision: none")
	} else {
		fmt.Fprintf(w, "Decision: %s (%s) price=%.6f\n", payload.Decision.Action, payload.Decision.Policy, payload.Decision.Price)
		if len(payload.Decision.Reasons) > 0 {
			fmt.Fprintf(w, "Reasons: %s\n", strings.Join(payload.Decision.Reasons, "; "))
		}
	}

	if payload.Indicators == nil {
		fmt.Fprintln(w, "Indicators: none")
	} else {
		ind := payload.Indicators
		fmt.Fprintf(w,
			"Indicators: close=%.6f BB=%.6f/%.6f/%.6f RSI=%.2f EMA%d=%.6f MACD=%.6f/%.6f/%.6f ADX=%.2f ATR=%.6f updated=%s\n",
			ind.Close, ind.BBLower, ind.BBMiddle, ind.BBUpper, ind.RSI, ind.EMAPeriod, ind.EMA,
			ind.MACD, ind.MACDSignal, ind.MACDHist, ind.ADX, ind.ATR, formatTime(ind.Time))
	}

	if len(positions) == 0 {
		fmt.Fprintf(w, "Positions: none (%d open)\n", payload.OpenPositions)
		return
	}
	for _, p := range positions {
		fmt.Fprintf(w, "Position %s: side=%s size=%.4f entry=%.6f SL=%.6f TP=%.6f maxProfit=%.6f opened=%s\n",
			p.ClientOrderID, p.Side, p.Size, p.EntryPrice, p.StopLoss, p.TakeProfit, p.MaxProfitSoFar, formatTime(p.OpenTime))
	}
}

func main() {
	defaultAddr := os.Getenv("STATUS_ADDR")
	if defaultAddr == "" {
		defaultAddr = "127.0.0.1:6061"
	}

	addr := flag.String("addr", defaultAddr, "status server address or URL")
	jsonOut := flag.Bool("json", false, "print raw JSON")
	timeout := flag.Duration("timeout", 5*time.Second, "HTTP timeout")
	flag.Parse()

	base := baseURL(*addr)
	if base == "" {
		fmt.Fprintln(os.Stderr, "status address is empty")
		os.Exit(1)
	}

	client := &http.Client{Timeout: *timeout}
	body, err := fetch(client, base+"/status")
	if err != nil {
		fmt.Fprintf(os.Stderr, "status %v\n", err)
		os.Exit(1)
	}
	if *jsonOut {
		fmt.Println(string(body))
		return
	}

	var payload statusResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		fmt.Fprintf(os.Stderr, "failed to parse JSON: %v\n", err)
		os.Exit(1)
	}

	var positions []models.Position
	if raw, err := fetch(client, base+"/positions"); err == nil {
		_ = json.Unmarshal(raw, &positions)
	}
	printStatus(os.Stdout, payload, positions)
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "n/a"
	}
	return t.UTC().Format(time.RFC3339)
}

func formatTimePtr(t *time.Time) string {
	if t == nil {
		return "n/a"
	}
	return formatTime(*t)
}
