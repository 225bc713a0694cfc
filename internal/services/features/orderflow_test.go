package features

import (
	"math"
	"testing"

	"wickengine/internal/domain/models"
)

func flowCandle(buy, sell float64, open, close, high, low float64, trades int) *models.Candle {
	c := &models.Candle{
		Symbol: "BTC-USDT",
		Open:   open, Close: close, High: high, Low: low,
		BuyVolume: buy, SellVolume: sell, Volume: buy + sell,
	}
	for i := 0; i < trades; i++ {
		c.Trades = append(c.Trades, models.Trade{Price: close, Size: 1})
	}
	return c
}

func TestCVDSlope(t *testing.T) {
	o := NewOrderFlow()
	var f OrderFlowFeatures
	for i := 0; i < 10; i++ {
		f = o.Compute(flowCandle(3, 1, 100, 101, 101, 100, 4))
	}
	// Delta +2 per candle: CVD ramps linearly, slope 2.
	if math.Abs(f.CVDSlope10-2) > 1e-9 {
		t.Fatalf("expected slope 2, got %v", f.CVDSlope10)
	}
	if f.DeltaAtWick != 2 || f.DeltaPrevPivot != 2 {
		t.Fatalf("unexpected deltas %v/%v", f.DeltaAtWick, f.DeltaPrevPivot)
	}
}

func TestDeltaDivergence(t *testing.T) {
	o := NewOrderFlow()
	// Price closes up while sellers dominate the tape.
	f := o.Compute(flowCandle(1, 5, 100, 102, 102, 100, 6))
	if !f.DeltaDivergence {
		t.Fatalf("expected divergence for up-close with negative delta")
	}
	aligned := o.Compute(flowCandle(5, 1, 100, 102, 102, 100, 6))
	if aligned.DeltaDivergence {
		t.Fatalf("aligned delta must not flag divergence")
	}
}

func TestExhaustion(t *testing.T) {
	o := NewOrderFlow()
	o.Compute(flowCandle(9, 0, 100, 101, 101, 100, 9))
	o.Compute(flowCandle(5, 0, 101, 102, 102, 101, 5))
	f := o.Compute(flowCandle(2, 0, 102, 103, 103, 102, 2))
	if !f.ExhaustionFlag {
		t.Fatalf("three shrinking aligned deltas must flag exhaustion")
	}
}

func TestIcebergFlag(t *testing.T) {
	o := NewOrderFlow()
	c := flowCandle(5, 0, 100, 100.1, 100.2, 100, 0)
	for i := 0; i < 5; i++ {
		c.Trades = append(c.Trades, models.Trade{Price: 100.05, Size: 1})
	}
	if f := o.Compute(c); !f.IcebergFlag {
		t.Fatalf("five prints at one price must flag iceberg")
	}
}

func TestAbsorption(t *testing.T) {
	o := NewOrderFlow()
	for i := 0; i < 20; i++ {
		o.Compute(flowCandle(5, 5, 100, 101, 102, 99, 10))
	}
	// Trade count spikes while the close barely moves inside the range.
	f := o.Compute(flowCandle(15, 10, 100, 100.2, 102, 99, 25))
	if !f.AbsorptionFlag {
		t.Fatalf("count spike with flat close must flag absorption")
	}
}

func TestOrderFlowSymbolIsolation(t *testing.T) {
	o := NewOrderFlow()
	o.Compute(flowCandle(100, 0, 100, 101, 101, 100, 3))
	other := &models.Candle{Symbol: "ETH-USDT", Open: 10, Close: 10.1, High: 10.1, Low: 10, BuyVolume: 1, Trades: []models.Trade{{Price: 10.1, Size: 1}}}
	f := o.Compute(other)
	if f.DeltaAtWick != 1 || f.DeltaPrevPivot != 0 {
		t.Fatalf("cross-symbol flow state leaked: %+v", f)
	}
}
