package analytics

import (
	"math"
	"testing"
	"time"

	"wickengine/internal/domain/models"
)

func TestPercentileInterpolation(t *testing.T) {
	vals := []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	if got := percentile(vals, 50); math.Abs(got-5.5) > 1e-9 {
		t.Fatalf("expected median 5.5, got %v", got)
	}
	if got := percentile(vals, 0); got != 1 {
		t.Fatalf("expected p0 = min, got %v", got)
	}
	if got := percentile(vals, 100); got != 10 {
		t.Fatalf("expected p100 = max, got %v", got)
	}
}

func TestBootstrapWallThreshold(t *testing.T) {
	d := NewVoidWallDetector()
	// The history is empty at call entry, so the bootstrap notional
	// threshold applies.
	ob := &models.OrderBookSnapshot{
		TS: time.Now(), Symbol: "BTC-USDT",
		BestBid: 100, BestAsk: 100.01,
		Bids: []models.BookLevel{{Price: 100, Size: 6000}, {Price: 99.9, Size: 1}},
		Asks: []models.BookLevel{{Price: 100.01, Size: 5500}, {Price: 100.1, Size: 1}},
	}
	bidWalls, askWalls := d.DetectWalls(ob)
	if len(bidWalls) != 1 || len(askWalls) != 1 {
		t.Fatalf("expected one wall per side above bootstrap, got %d/%d", len(bidWalls), len(askWalls))
	}
	if bidWalls[0].Price != 100 || bidWalls[0].Side != models.WallBid {
		t.Fatalf("unexpected bid wall %+v", bidWalls[0])
	}
	if askWalls[0].Notional < 500_000 {
		t.Fatalf("wall below bootstrap notional leaked through: %+v", askWalls[0])
	}
}

func TestWallsTopNByNotional(t *testing.T) {
	d := NewVoidWallDetector(WithTopWalls(2))
	levels := []models.BookLevel{
		{Price: 100, Size: 7000},
		{Price: 99.9, Size: 6000},
		{Price: 99.8, Size: 5500},
	}
	ob := &models.OrderBookSnapshot{
		TS: time.Now(), Symbol: "BTC-USDT",
		BestBid: 100, BestAsk: 100.01,
		Bids: levels,
		Asks: []models.BookLevel{{Price: 100.01, Size: 1}},
	}
	bidWalls, _ := d.DetectWalls(ob)
	if len(bidWalls) != 2 {
		t.Fatalf("expected top-2 walls, got %d", len(bidWalls))
	}
	if bidWalls[0].Notional < bidWalls[1].Notional {
		t.Fatalf("walls must sort by notional descending")
	}
}

// bandedBook builds a book whose ask side covers every 10 bps band from mid
// except the listed band indices.
func bandedBook(skip map[int]bool) *models.OrderBookSnapshot {
	ob := &models.OrderBookSnapshot{
		TS: time.Now(), Symbol: "BTC-USDT",
		BestBid: 99.995, BestAsk: 100.005,
		Bids: []models.BookLevel{{Price: 99.995, Size: 1}},
	}
	for i := 0; i < 20; i++ {
		if skip[i] {
			continue
		}
		// Mid-band price, away from band boundaries. Sizes normalize to an
		// identical notional so the percentile threshold is exact.
		price := 100 + 0.1*float64(i) + 0.05
		ob.Asks = append(ob.Asks, models.BookLevel{Price: price, Size: 1000 / price})
	}
	return ob
}

func TestDetectVoidsMergesAdjacentBands(t *testing.T) {
	d := NewVoidWallDetector()
	// One dense scan calibrates the threshold for the next call.
	d.DetectVoids(bandedBook(nil), models.VoidAbove)
	ob := bandedBook(map[int]bool{5: true, 6: true})

	voids := d.DetectVoids(ob, models.VoidAbove)
	if len(voids) != 1 {
		t.Fatalf("adjacent empty bands must merge into one void, got %d: %+v", len(voids), voids)
	}
	v := voids[0]
	if v.Direction != models.VoidAbove {
		t.Fatalf("unexpected direction %s", v.Direction)
	}
	if math.Abs(v.StartPrice-100.5) > 1e-6 || math.Abs(v.EndPrice-100.7) > 1e-6 {
		t.Fatalf("unexpected merged span %v..%v", v.StartPrice, v.EndPrice)
	}
	if math.Abs(v.WidthBps-20) > 0.1 {
		t.Fatalf("expected 20 bps width, got %v", v.WidthBps)
	}
}

func TestDetectVoidsSeparateWhenFarApart(t *testing.T) {
	d := NewVoidWallDetector()
	d.DetectVoids(bandedBook(nil), models.VoidAbove)
	ob := bandedBook(map[int]bool{3: true, 15: true})

	voids := d.DetectVoids(ob, models.VoidAbove)
	if len(voids) != 2 {
		t.Fatalf("distant empty bands must stay separate, got %d: %+v", len(voids), voids)
	}
	// Nearest-first ordering.
	if voids[0].StartPrice > voids[1].StartPrice {
		t.Fatalf("voids above mid must sort nearest-first")
	}
}

func TestAnalyzeZeroMid(t *testing.T) {
	d := NewVoidWallDetector()
	res := d.Analyze(&models.OrderBookSnapshot{Symbol: "BTC-USDT"})
	if res.HasVoid || res.HasStack || res.MidPrice != 0 {
		t.Fatalf("empty book must analyze to neutral, got %+v", res)
	}
}

func TestVoidCalibrationIsPerSymbol(t *testing.T) {
	d := NewVoidWallDetector()
	// Warm BTC history with dense books, then confirm an ETH scan does not
	// inherit the BTC thresholds.
	for i := 0; i < 10; i++ {
		d.DetectVoids(bandedBook(nil), models.VoidAbove)
	}
	eth := bandedBook(map[int]bool{2: true})
	eth.Symbol = "ETH-USDT"
	voids := d.DetectVoids(eth, models.VoidAbove)
	// A fresh symbol starts from the bootstrap threshold, which flags the
	// whole scanned range as one wide void. Inheriting BTC's calibrated
	// threshold would instead yield a single 10 bps band.
	if len(voids) != 1 {
		t.Fatalf("expected one merged bootstrap void, got %d", len(voids))
	}
	if voids[0].WidthBps < 100 {
		t.Fatalf("calibration leaked across symbols: width %v bps", voids[0].WidthBps)
	}
}

func TestDetectVoidsFlagsFreshlyEmptiedSide(t *testing.T) {
	d := NewVoidWallDetector()
	d.DetectVoids(bandedBook(nil), models.VoidAbove)

	// The ask side vanishes entirely. The zero-depth bands of this very scan
	// must not drag the threshold down to zero before they are judged.
	ob := bandedBook(nil)
	ob.Asks = nil
	voids := d.DetectVoids(ob, models.VoidAbove)
	if len(voids) != 1 {
		t.Fatalf("empty side must flag as one merged void, got %d: %+v", len(voids), voids)
	}
	if math.Abs(voids[0].WidthBps-200) > 0.5 {
		t.Fatalf("expected a full-width void, got %v bps", voids[0].WidthBps)
	}
}

func TestWallsUseThresholdFromPriorScans(t *testing.T) {
	d := NewVoidWallDetector()
	ob := &models.OrderBookSnapshot{
		TS: time.Now(), Symbol: "BTC-USDT",
		BestBid: 100, BestAsk: 100.01,
	}
	for i := 0; i < 10; i++ {
		price := 100 - 0.01*float64(i)
		notional := 510_000 + 10_000*float64(i)
		ob.Bids = append(ob.Bids, models.BookLevel{Price: price, Size: notional / price})
	}

	// The history is empty at entry, so every level clears the bootstrap.
	// Folding this scan's own levels in first would push the percentile to
	// ~591k and flag only the largest one.
	bidWalls, _ := d.DetectWalls(ob)
	if len(bidWalls) != 3 {
		t.Fatalf("expected top-3 walls under the bootstrap threshold, got %d", len(bidWalls))
	}
	if math.Abs(bidWalls[0].Notional-600_000) > 1 {
		t.Fatalf("expected the largest wall first, got %+v", bidWalls[0])
	}
}
