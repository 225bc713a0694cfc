package features

import "wickengine/internal/domain/models"

// GeometryFeatures describes the shape of one wick on a closed candle.
// Pure function of the candle; no per-symbol state.
type GeometryFeatures struct {
	WickSizePct       float64
	BodySizePct       float64
	WickToBodyRatio   float64
	ProtrusionPct     float64
	RejectionVelocity float64
	DisplacementIdx   float64
	FinishedAuction   bool
	UnfinishedBiz     bool
	ZeroPrintFlag     bool
	ImbalanceTrap     float64
}

const dojiBodyEps = 1e-8

// ComputeGeometry derives the wick geometry for one side of a candle.
// A zero-range candle yields the all-neutral result.
func ComputeGeometry(c *models.Candle, side models.WickSide) GeometryFeatures {
	var g GeometryFeatures
	rangeSize := c.Range()
	if rangeSize <= 0 {
		return g
	}

	bodyTop := max(c.Open, c.Close)
	bodyBottom := min(c.Open, c.Close)
	body := bodyTop - bodyBottom

	var wick float64
	if side == models.WickUpper {
		wick = c.High - bodyTop
	} else {
		wick = bodyBottom - c.Low
	}

	g.WickSizePct = wick / rangeSize
	g.BodySizePct = body / rangeSize
	g.ProtrusionPct = g.WickSizePct

	if body > dojiBodyEps {
		g.WickToBodyRatio = wick / body
	} else if wick > 0 {
		// Doji: treat the wick as dominant.
		g.WickToBodyRatio = wick * 100
	}

	if dur := c.Duration().Seconds(); dur > 0 {
		g.RejectionVelocity = wick / dur
	}
	g.DisplacementIdx = g.WickSizePct * g.WickToBodyRatio

	total := c.BuyVolume + c.SellVolume
	if total > 0 {
		// Upper wick traps buyers at the high, lower wick traps sellers.
		imbalance := c.BuyVolume / total
		if side == models.WickLower {
			imbalance = c.SellVolume / total
		}
		g.ImbalanceTrap = min(100, imbalance*100*g.WickToBodyRatio)
	}

	g.FinishedAuction = g.WickToBodyRatio >= 2.0 && total > 0 && g.WickSizePct >= 0.3
	g.UnfinishedBiz = g.WickToBodyRatio >= 1.0 && g.WickToBodyRatio < 2.0 && g.WickSizePct >= 0.2
	g.ZeroPrintFlag = total < 0.001 && g.WickSizePct > 0.1

	return g
}

// Apply copies the geometry features into a vector.
func (g GeometryFeatures) Apply(f *models.WickFeatures) {
	f.WickSizePct = g.WickSizePct
	f.BodySizePct = g.BodySizePct
	f.WickToBodyRatio = g.WickToBodyRatio
	f.ProtrusionPct = g.ProtrusionPct
	f.RejectionVelocity = g.RejectionVelocity
	f.DisplacementIdx = g.DisplacementIdx
	f.FinishedAuction = g.FinishedAuction
	f.UnfinishedBiz = g.UnfinishedBiz
	f.ZeroPrintFlag = g.ZeroPrintFlag
	f.ImbalanceTrap = g.ImbalanceTrap
}
