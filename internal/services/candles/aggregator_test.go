package candles

import (
	"testing"
	"time"

	"wickengine/internal/domain/models"
)

func tr(ts time.Time, price, size float64, side models.TradeSide) *models.Trade {
	return &models.Trade{TS: ts, Symbol: "BTC-USDT", Price: price, Size: size, Side: side}
}

func TestAggregatorClosesOnNewBucket(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	a := NewAggregator(time.Minute)

	if c := a.Process(tr(base, 100, 1, models.SideBuy)); c != nil {
		t.Fatalf("first trade should not close a candle")
	}
	if c := a.Process(tr(base.Add(30*time.Second), 105, 2, models.SideSell)); c != nil {
		t.Fatalf("in-bucket trade should not close a candle")
	}

	closed := a.Process(tr(base.Add(61*time.Second), 103, 1, models.SideBuy))
	if closed == nil {
		t.Fatalf("expected closed candle")
	}
	if closed.Open != 100 || closed.High != 105 || closed.Low != 100 || closed.Close != 105 {
		t.Fatalf("unexpected OHLC %+v", closed)
	}
	if closed.Volume != 3 || closed.BuyVolume != 1 || closed.SellVolume != 2 {
		t.Fatalf("unexpected volumes %+v", closed)
	}
	if !closed.StartTS.Equal(base) || !closed.EndTS.Equal(base.Add(time.Minute)) {
		t.Fatalf("unexpected window %v..%v", closed.StartTS, closed.EndTS)
	}
	if len(closed.Trades) != 2 {
		t.Fatalf("expected 2 trades in closed candle, got %d", len(closed.Trades))
	}
}

func TestAggregatorDropsLateTrades(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	a := NewAggregator(time.Minute)

	a.Process(tr(base.Add(2*time.Minute), 100, 1, models.SideBuy))
	if c := a.Process(tr(base, 99, 1, models.SideSell)); c != nil {
		t.Fatalf("late trade must not close a candle")
	}
	if a.Dropped() != 1 {
		t.Fatalf("expected 1 dropped trade, got %d", a.Dropped())
	}
	if cur := a.Current(); cur == nil || cur.Volume != 1 {
		t.Fatalf("late trade must not mutate the open candle")
	}
}

func TestAggregatorNeverSynthesizesGaps(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	a := NewAggregator(time.Minute)

	a.Process(tr(base, 100, 1, models.SideBuy))
	closed := a.Process(tr(base.Add(5*time.Minute), 101, 1, models.SideBuy))
	if closed == nil {
		t.Fatalf("expected one closed candle across the gap")
	}
	if !closed.EndTS.Equal(base.Add(time.Minute)) {
		t.Fatalf("closed candle must keep its own window, got end %v", closed.EndTS)
	}
}
