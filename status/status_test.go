package status

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"swap-sentinel/config"
	"swap-sentinel/journal"
	"swap-sentinel/logging"
	"swap-sentinel/models"
	"swap-sentinel/position"
)

func newTestServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()
	state := &models.State{}
	snap := models.IndicatorSnapshot{Time: time.Unix(1700000000, 0), Close: 0.5, BBLower: 0.49, BBUpper: 0.51}
	state.RecordPoll(snap, models.Decision{Action: models.ActionHold, Price: 0.5, Reasons: []string{"inside"}}, time.Now())
	reg := position.NewRegistry()
	_ = reg.Add(models.Position{ClientOrderID: "a", Side: models.SideLong, EntryPrice: 0.5, Size: 1})

	fj, err := journal.NewFileJournal(filepath.Join(t.TempDir(), "orders.json"), nil)
	if err != nil {
		t.Fatalf("NewFileJournal: %v", err)
	}
	_ = fj.PositionOpened(context.Background(), models.Position{ClientOrderID: "a", Side: models.SideLong, EntryPrice: 0.5}, snap)

	s := &Server{
		Config:   &config.Config{InstID: "XRP-USDT-SWAP"},
		State:    state,
		Registry: reg,
		Journal:  fj,
		Logger:   logging.NopLogger{},
	}
	srv := httptest.NewServer(s.Handler())
	t.Cleanup(srv.Close)
	return s, srv
}

func getJSON(t *testing.T, url string, v interface{}) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET %s: status %d", url, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("decode %s: %v", url, err)
	}
}

func TestStatusEndpoint(t *testing.T) {
	_, srv := newTestServer(t)
	var got statusResponse
	getJSON(t, srv.URL+"/status", &got)
	if got.InstID != "XRP-USDT-SWAP" || got.LastPrice != 0.5 || got.OpenPositions != 1 {
		t.Fatalf("unexpected status: %+v", got)
	}
	if got.Decision == nil || got.Decision.Action != models.ActionHold || got.Indicators == nil {
		t.Fatalf("missing decision or indicators: %+v", got)
	}
	if got.LastPollAt == nil || got.LastExitTickAt != nil {
		t.Fatalf("unexpected timestamps: %+v", got)
	}
}

func TestPositionsAndJournalEndpoints(t *testing.T) {
	_, srv := newTestServer(t)

	var positions []models.Position
	getJSON(t, srv.URL+"/positions", &positions)
	if len(positions) != 1 || positions[0].ClientOrderID != "a" {
		t.Fatalf("unexpected positions: %+v", positions)
	}

	var j struct {
		Summary journal.Summary      `json:"summary"`
		Records []models.OrderRecord `json:"records"`
	}
	getJSON(t, srv.URL+"/journal", &j)
	if len(j.Records) != 1 || j.Summary.Open != 1 {
		t.Fatalf("unexpected journal: %+v", j)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	_, srv := newTestServer(t)
	resp, err := http.Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK || !strings.Contains(resp.Header.Get("Content-Type"), "text/plain") {
		t.Fatalf("unexpected metrics response: %d %s", resp.StatusCode, resp.Header.Get("Content-Type"))
	}
}

func TestStartServerDisabled(t *testing.T) {
	s := &Server{Config: &config.Config{StatusAddr: "off"}, State: &models.State{}}
	if srv := StartServer(s); srv != nil {
		t.Fatalf("expected no server when disabled")
	}
}
