package features

import (
	"math"
	"testing"

	"wickengine/internal/domain/models"
)

func TestLiquidityBasicDepth(t *testing.T) {
	ob := &models.OrderBookSnapshot{
		Symbol:  "BTC-USDT",
		BestBid: 100, BestAsk: 100.5,
		Bids: []models.BookLevel{{Price: 100, Size: 3}, {Price: 99.5, Size: 2}},
		Asks: []models.BookLevel{{Price: 100.5, Size: 1}, {Price: 101, Size: 1}},
	}
	f := ComputeLiquidity(ob)
	if math.Abs(f.Spread-0.5) > 1e-9 {
		t.Fatalf("expected spread 0.5, got %v", f.Spread)
	}
	if f.L1DepthBid != 3 || f.L1DepthAsk != 1 {
		t.Fatalf("unexpected L1 depth %v/%v", f.L1DepthBid, f.L1DepthAsk)
	}
	if f.L5DepthBid != 5 || f.L5DepthAsk != 2 {
		t.Fatalf("unexpected L5 depth %v/%v", f.L5DepthBid, f.L5DepthAsk)
	}
	// (5-2)/7
	if math.Abs(f.DepthImbalance-3.0/7.0) > 1e-9 {
		t.Fatalf("unexpected imbalance %v", f.DepthImbalance)
	}
}

func TestLiquidityNilSnapshot(t *testing.T) {
	f := ComputeLiquidity(nil)
	if f != (LiquidityFeatures{}) {
		t.Fatalf("nil snapshot must be neutral, got %+v", f)
	}
}

func TestGapVoidDetection(t *testing.T) {
	// Ask gaps 1 and 19: the 19x spread over the minimum flags a void.
	ob := &models.OrderBookSnapshot{
		BestBid: 100, BestAsk: 101,
		Bids: []models.BookLevel{{Price: 100, Size: 1}, {Price: 99, Size: 1}},
		Asks: []models.BookLevel{{Price: 101, Size: 1}, {Price: 102, Size: 1}, {Price: 121, Size: 1}},
	}
	if f := ComputeLiquidity(ob); !f.LiquidityVoidFlag {
		t.Fatalf("expected void flag for 19x gap spread")
	}

	// Uniform spacing: no void.
	even := &models.OrderBookSnapshot{
		BestBid: 100, BestAsk: 101,
		Bids: []models.BookLevel{{Price: 100, Size: 1}, {Price: 99, Size: 1}, {Price: 98, Size: 1}},
		Asks: []models.BookLevel{{Price: 101, Size: 1}, {Price: 102, Size: 1}, {Price: 103, Size: 1}},
	}
	if f := ComputeLiquidity(even); f.LiquidityVoidFlag {
		t.Fatalf("uniform book must not flag a void")
	}
}

func TestStackedImbalance(t *testing.T) {
	ob := &models.OrderBookSnapshot{
		BestBid: 100, BestAsk: 100.1,
		Bids: []models.BookLevel{{Price: 100, Size: 30}},
		Asks: []models.BookLevel{{Price: 100.1, Size: 5}},
	}
	if f := ComputeLiquidity(ob); !f.StackedImbalance {
		t.Fatalf("6x depth ratio must flag stacked imbalance")
	}

	balanced := &models.OrderBookSnapshot{
		BestBid: 100, BestAsk: 100.1,
		Bids: []models.BookLevel{{Price: 100, Size: 10}},
		Asks: []models.BookLevel{{Price: 100.1, Size: 8}},
	}
	if f := ComputeLiquidity(balanced); f.StackedImbalance {
		t.Fatalf("balanced book must not flag stacked imbalance")
	}
}
