package features

import (
	"testing"
	"time"

	"wickengine/internal/domain/models"
)

func TestFusionNeverFails(t *testing.T) {
	fu := NewFusion()
	start := time.Date(2025, 6, 6, 18, 0, 0, 0, time.UTC)
	c := &models.Candle{
		StartTS: start, EndTS: start.Add(time.Minute),
		Symbol: "BTC-USDT",
		Open:   100, Close: 101, High: 104, Low: 100,
		BuyVolume: 2, SellVolume: 1, Volume: 3,
		Trades: []models.Trade{{Price: 101, Size: 3}},
	}
	w := &models.WickOccurrence{Side: models.WickUpper, High: 104, Low: 100, Ratio: 3, Candle: c}

	// Nil book and zero macro must still produce a full vector.
	f := fu.Compute(w, nil, models.MacroState{})
	if f.SchemaVersion == 0 {
		t.Fatalf("expected schema version on vector")
	}
	if f.WickToBodyRatio != 3 {
		t.Fatalf("expected geometry in fused vector, got %v", f.WickToBodyRatio)
	}
	if f.SessionLabel != "ny" {
		t.Fatalf("expected ny session, got %s", f.SessionLabel)
	}
	if f.L5DepthBid != 0 || f.L5DepthAsk != 0 {
		t.Fatalf("nil book must leave depth neutral")
	}
}

func TestFusionMergesMacro(t *testing.T) {
	fu := NewFusion()
	start := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	c := &models.Candle{
		StartTS: start, EndTS: start.Add(time.Minute),
		Symbol: "BTC-USDT", Open: 100, Close: 100.5, High: 102, Low: 100,
		BuyVolume: 1, Trades: []models.Trade{{Price: 100.5, Size: 1}},
	}
	w := &models.WickOccurrence{Side: models.WickUpper, Candle: c}

	f := fu.Compute(w, nil, models.MacroState{USDTDominance: 5.5, BTCDominance: 52.1, USDTTrend: "UP"})
	if f.USDTDominance != 5.5 || f.BTCDominance != 52.1 || f.USDTTrend != "UP" {
		t.Fatalf("macro scalars must merge verbatim, got %+v", f)
	}
}
