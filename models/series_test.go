package models

import (
	"testing"
	"time"
)

func candleAt(min int, close float64) Candle {
	return Candle{Timestamp: time.Unix(int64(min)*60, 0), Open: close, High: close, Low: close, Close: close}
}

func TestSeriesDropsOldestPastCapacity(t *testing.T) {
	s := NewSeries(3)
	for i := 1; i <= 5; i++ {
		s.Append(candleAt(i, float64(i)))
	}
	closes := s.Closes()
	if len(closes) != 3 || closes[0] != 3 || closes[2] != 5 {
		t.Fatalf("unexpected closes: %v", closes)
	}
}

func TestSeriesIgnoresStaleCandles(t *testing.T) {
	s := NewSeries(0)
	s.Append(candleAt(2, 2), candleAt(1, 1), candleAt(2, 9), candleAt(3, 3))
	if s.Len() != 2 {
		t.Fatalf("expected 2 candles, got %d", s.Len())
	}
	last, ok := s.Last()
	if !ok || last.Close != 3 {
		t.Fatalf("unexpected last candle: %+v", last)
	}
}

func TestParseSide(t *testing.T) {
	cases := map[string]Side{"buy": SideLong, "LONG": SideLong, "Sell": SideShort, "short": SideShort}
	for in, want := range cases {
		got, ok := ParseSide(in)
		if !ok || got != want {
			t.Errorf("ParseSide(%q) = %q, %v", in, got, ok)
		}
	}
	if _, ok := ParseSide("flat"); ok {
		t.Errorf("expected flat to be rejected")
	}
}

func TestPositionProfitBySide(t *testing.T) {
	long := Position{Side: SideLong, EntryPrice: 100}
	short := Position{Side: SideShort, EntryPrice: 100}
	if long.Profit(104) != 4 || short.Profit(104) != -4 {
		t.Fatalf("unexpected profits: %f %f", long.Profit(104), short.Profit(104))
	}
}
