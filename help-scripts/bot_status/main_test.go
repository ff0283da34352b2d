package main

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"swap-sentinel/models"
)

func TestBaseURL(t *testing.T) {
	cases := map[string]string{
		"127.0.0.1:6061":          "http://127.0.0.1:6061",
		"https://bot.local:8443/": "https://bot.local:8443",
		"  ":                      "",
	}
	for in, want := range cases {
		if got := baseURL(in); got != want {
			t.Fatalf("baseURL(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestFetchError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "journal disabled", http.StatusNotFound)
	}))
	defer srv.Close()
	if _, err := fetch(srv.Client(), srv.URL+"/journal"); err == nil {
		t.Fatalf("expected error on 404")
	}
}

func TestPrintStatus(t *testing.T) {
	var buf bytes.Buffer
	payload := statusResponse{
		InstID:    "XRP-USDT-SWAP",
		LastPrice: 0.5,
		Decision:  &models.Decision{Action: models.ActionHold, Policy: "meanreversion", Reasons: []string{"inside bands"}},
	}
	positions := []models.Position{{ClientOrderID: "abc", Side: models.SideLong, Size: 0.1, EntryPrice: 0.49, OpenTime: time.Unix(0, 0)}}
	printStatus(&buf, payload, positions)
	out := buf.String()
	for _, want := range []string{"Instrument: XRP-USDT-SWAP", "Decision: hold (meanreversion)", "Reasons: inside bands", "Position abc: side=long", "Indicators: none"} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q:\n%s", want, out)
		}
	}
}
