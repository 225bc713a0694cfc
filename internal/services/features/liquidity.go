package features

import "wickengine/internal/domain/models"

// LiquidityFeatures is the order-book slice of the feature vector.
type LiquidityFeatures struct {
	Spread            float64
	L1DepthBid        float64
	L1DepthAsk        float64
	L5DepthBid        float64
	L5DepthAsk        float64
	DepthImbalance    float64
	LiquidityVoidFlag bool
	StackedImbalance  bool
}

// ComputeLiquidity derives book features from the latest cached snapshot.
// A nil snapshot yields the all-neutral result.
func ComputeLiquidity(ob *models.OrderBookSnapshot) LiquidityFeatures {
	var f LiquidityFeatures
	if ob == nil {
		return f
	}

	if len(ob.Bids) > 0 && len(ob.Asks) > 0 {
		f.Spread = ob.Asks[0].Price - ob.Bids[0].Price
	}
	if len(ob.Bids) > 0 {
		f.L1DepthBid = ob.Bids[0].Size
	}
	if len(ob.Asks) > 0 {
		f.L1DepthAsk = ob.Asks[0].Size
	}
	f.L5DepthBid = sumDepth(ob.Bids, 5)
	f.L5DepthAsk = sumDepth(ob.Asks, 5)

	if total := f.L5DepthBid + f.L5DepthAsk; total > 0 {
		f.DepthImbalance = (f.L5DepthBid - f.L5DepthAsk) / total
	}

	f.LiquidityVoidFlag = detectGapVoid(ob.Bids, ob.Asks)
	f.StackedImbalance = detectStackedImbalance(f.L5DepthBid, f.L5DepthAsk)
	return f
}

// Apply copies the liquidity features into a vector.
func (f LiquidityFeatures) Apply(v *models.WickFeatures) {
	v.Spread = f.Spread
	v.L1DepthBid = f.L1DepthBid
	v.L1DepthAsk = f.L1DepthAsk
	v.L5DepthBid = f.L5DepthBid
	v.L5DepthAsk = f.L5DepthAsk
	v.DepthImbalance = f.DepthImbalance
	v.LiquidityVoidFlag = f.LiquidityVoidFlag
	v.StackedImbalance = f.StackedImbalance
}

func sumDepth(levels []models.BookLevel, n int) float64 {
	if len(levels) < n {
		n = len(levels)
	}
	var sum float64
	for _, l := range levels[:n] {
		sum += l.Size
	}
	return sum
}

// detectGapVoid flags a book whose largest inter-level gap is at least 5x
// its smallest. Needs two gaps to compare.
func detectGapVoid(bids, asks []models.BookLevel) bool {
	var gaps []float64
	for i := 0; i < len(bids)-1; i++ {
		if g := bids[i].Price - bids[i+1].Price; g > 0 {
			gaps = append(gaps, g)
		}
	}
	for i := 0; i < len(asks)-1; i++ {
		if g := asks[i+1].Price - asks[i].Price; g > 0 {
			gaps = append(gaps, g)
		}
	}
	if len(gaps) < 2 {
		return false
	}
	minGap, maxGap := gaps[0], gaps[0]
	for _, g := range gaps[1:] {
		if g < minGap {
			minGap = g
		}
		if g > maxGap {
			maxGap = g
		}
	}
	return minGap > 0 && maxGap >= 5*minGap
}

// detectStackedImbalance flags one side holding at least 3x the other's depth.
func detectStackedImbalance(bidDepth, askDepth float64) bool {
	if bidDepth <= 0 && askDepth <= 0 {
		return false
	}
	if bidDepth <= 0 || askDepth <= 0 {
		return true
	}
	ratio := bidDepth / askDepth
	if ratio < 1 {
		ratio = 1 / ratio
	}
	return ratio >= 3.0
}
