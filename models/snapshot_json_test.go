package models

import (
	"encoding/json"
	"math"
	"strings"
	"testing"
)

func TestIndicatorSnapshotJSONNaNIsNull(t *testing.T) {
	snap := IndicatorSnapshot{Close: 0.5, RSI: math.NaN(), ATR: 0.01, EMAPeriod: 50, ADX: math.Inf(1)}
	raw, err := json.Marshal(snap)
	if err != nil {
		t.Fatalf("marshal error: %v", err)
	}
	if !strings.Contains(string(raw), `"rsi":null`) || !strings.Contains(string(raw), `"adx":null`) {
		t.Fatalf("expected nulls, got %s", raw)
	}

	var back IndicatorSnapshot
	if err := json.Unmarshal(raw, &back); err != nil {
		t.Fatalf("unmarshal error: %v", err)
	}
	if !math.IsNaN(back.RSI) || back.Close != 0.5 || back.ATR != 0.01 || back.EMAPeriod != 50 {
		t.Fatalf("unexpected snapshot: %+v", back)
	}
}
