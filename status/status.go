package status

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"swap-sentinel/config"
	"swap-sentinel/journal"
	"swap-sentinel/logging"
	"swap-sentinel/models"
	"swap-sentinel/position"
	"swap-sentinel/web_interface"
)

type statusResponse struct {
	Time           time.Time                 `json:"time"`
	InstID         string                    `json:"instId"`
	LastPrice      float64                   `json:"lastPrice"`
	LastPollAt     *time.Time                `json:"lastPollAt,omitempty"`
	LastExitTickAt *time.Time                `json:"lastExitTickAt,omitempty"`
	PollErrors     int                       `json:"pollErrors"`
	ExitErrors     int                       `json:"exitErrors"`
	OpenPositions  int                       `json:"openPositions"`
	Decision       *models.Decision          `json:"decision,omitempty"`
	Indicators     *models.IndicatorSnapshot `json:"indicators,omitempty"`
}

// Server bundles what the diagnostics endpoints read
type Server struct {
	Config   *config.Config
	State    *models.State
	Registry *position.Registry
	Journal  journal.Reader
	UI       *web_interface.WebUI
	Logger   logging.LoggerInterface
}

// Handler returns the diagnostics routes
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/status", s.handleStatus)
	mux.HandleFunc("/positions", s.handlePositions)
	mux.HandleFunc("/journal", s.handleJournal)
	mux.Handle("/metrics", promhttp.Handler())
	if s.UI != nil {
		mux.HandleFunc("/ws", s.UI.ServeWS)
		mux.HandleFunc("/dashboard", s.UI.DashboardHandler)
	}
	return mux
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.State.StatusLock.RLock()
	lastIndicators := s.State.LastIndicators
	lastDecision := s.State.LastDecision
	resp := statusResponse{
		Time:       time.Now(),
		InstID:     s.Config.InstID,
		LastPrice:  s.State.LastPrice,
		PollErrors: s.State.PollErrors,
		ExitErrors: s.State.ExitErrors,
	}
	if !s.State.LastPollAt.IsZero() {
		at := s.State.LastPollAt
		resp.LastPollAt = &at
	}
	if !s.State.LastExitTickAt.IsZero() {
		at := s.State.LastExitTickAt
		resp.LastExitTickAt = &at
	}
	s.State.StatusLock.RUnlock()

	if !lastIndicators.Time.IsZero() {
		resp.Indicators = &lastIndicators
	}
	if lastDecision.Action != "" {
		if len(lastDecision.Reasons) > 0 {
			lastDecision.Reasons = append([]string(nil), lastDecision.Reasons...)
		}
		resp.Decision = &lastDecision
	}
	if s.Registry != nil {
		resp.OpenPositions = s.Registry.Count()
	}
	writeJSON(w, resp)
}

func (s *Server) handlePositions(w http.ResponseWriter, r *http.Request) {
	positions := []models.Position{}
	if s.Registry != nil {
		positions = append(positions, s.Registry.List()...)
	}
	writeJSON(w, positions)
}

func (s *Server) handleJournal(w http.ResponseWriter, r *http.Request) {
	if s.Journal == nil {
		http.Error(w, "journal disabled", http.StatusNotFound)
		return
	}
	records, err := s.Journal.Records(r.Context())
	if err != nil {
		s.Logger.Error("Status: journal read failed: %v", err)
		http.Error(w, "failed to read journal", http.StatusInternalServerError)
		return
	}
	if records == nil {
		records = []models.OrderRecord{}
	}
	writeJSON(w, struct {
		Summary journal.Summary      `json:"summary"`
		Records []models.OrderRecord `json:"records"`
	}{journal.Summarize(records), records})
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		http.Error(w, "failed to encode status", http.StatusInternalServerError)
	}
}

// StartServer starts a local HTTP status server for diagnostics.
func StartServer(s *Server) *http.Server {
	if s.Logger == nil {
		s.Logger = logging.NopLogger{}
	}
	addr := strings.TrimSpace(s.Config.StatusAddr)
	if addr == "" || strings.EqualFold(addr, "off") || strings.EqualFold(addr, "disabled") {
		s.Logger.Info("Status server disabled")
		return nil
	}

	server := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		s.Logger.Info("Status server listening on %s", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.Logger.Error("Status server error: %v", err)
		}
	}()

	return server
}
