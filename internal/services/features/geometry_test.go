package features

import (
	"math"
	"testing"
	"time"

	"wickengine/internal/domain/models"
)

func TestGeometryUpperWick(t *testing.T) {
	start := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	c := &models.Candle{
		StartTS: start, EndTS: start.Add(time.Minute),
		Open: 100, Close: 101, High: 104, Low: 100,
		BuyVolume: 2, SellVolume: 2,
	}

	g := ComputeGeometry(c, models.WickUpper)
	if math.Abs(g.WickSizePct-0.75) > 1e-9 {
		t.Fatalf("expected wick 75%% of range, got %v", g.WickSizePct)
	}
	if math.Abs(g.WickToBodyRatio-3) > 1e-9 {
		t.Fatalf("expected ratio 3, got %v", g.WickToBodyRatio)
	}
	if math.Abs(g.RejectionVelocity-0.05) > 1e-9 {
		t.Fatalf("expected velocity 0.05, got %v", g.RejectionVelocity)
	}
	if !g.FinishedAuction {
		t.Fatalf("ratio 3 with volume and 75%% wick is a finished auction")
	}
	if g.ZeroPrintFlag {
		t.Fatalf("candle with volume must not flag zero print")
	}
}

func TestGeometryLowerWick(t *testing.T) {
	c := &models.Candle{Open: 101, Close: 100.5, High: 101, Low: 99, BuyVolume: 1, SellVolume: 3}
	g := ComputeGeometry(c, models.WickLower)
	// Lower wick 1.5, body 0.5.
	if math.Abs(g.WickToBodyRatio-3) > 1e-9 {
		t.Fatalf("expected ratio 3, got %v", g.WickToBodyRatio)
	}
	// Lower wick traps sellers: 3 of 4 volume.
	if g.ImbalanceTrap <= 0 {
		t.Fatalf("expected positive trap score, got %v", g.ImbalanceTrap)
	}
}

func TestGeometryZeroRange(t *testing.T) {
	c := &models.Candle{Open: 100, Close: 100, High: 100, Low: 100}
	if g := ComputeGeometry(c, models.WickUpper); g != (GeometryFeatures{}) {
		t.Fatalf("zero range must be neutral, got %+v", g)
	}
}
