package analytics

import (
	"math"

	"wickengine/internal/domain/models"
)

// integrityFieldCount is the denominator for the data-integrity ratio. The
// three feed checks cover depth, open interest, and funding; the remaining
// weight keeps a fully missing feature set above zero.
const integrityFieldCount = 5

// Scorer converts a feature vector into bounded magnet and confidence scores.
// Stateless; safe for concurrent use.
type Scorer struct{}

func NewScorer() *Scorer { return &Scorer{} }

// Score computes both scores with an itemized breakdown of every point
// contribution. Missing inputs contribute zero points rather than failing.
func (s *Scorer) Score(f *models.WickFeatures) models.ScoreResult {
	res := models.ScoreResult{Breakdown: make(map[string]float64)}
	res.Integrity, res.MissingFlags = integrity(f)
	res.MagnetScore = s.magnetScore(f, res.Breakdown)
	res.Confidence = s.confidence(f, res.Integrity, res.Breakdown)
	return res
}

// AttentionScore ranks an event for display: magnet weighted by confidence
// and integrity, boosted when microstructure flags fired.
func (s *Scorer) AttentionScore(r models.ScoreResult, f *models.WickFeatures) float64 {
	boost := 1.0
	if f.LiquidityVoidFlag {
		boost += 0.15
	}
	if f.StackedImbalance {
		boost += 0.15
	}
	return r.MagnetScore * (r.Confidence / 100) * r.Integrity * boost
}

func (s *Scorer) magnetScore(f *models.WickFeatures, breakdown map[string]float64) float64 {
	add := func(key string, pts float64) float64 {
		if pts != 0 {
			breakdown[key] = pts
		}
		return pts
	}

	var score float64
	switch {
	case f.WickToBodyRatio >= 2:
		score += add("wick_ratio", 15)
	case f.WickToBodyRatio >= 1:
		score += add("wick_ratio", 8)
	}

	switch {
	case f.VWAPMeanReversion >= 70:
		score += add("vwap_reversion", 20)
	case f.VWAPMeanReversion >= 40:
		score += add("vwap_reversion", 10)
	}

	if depth := f.L5DepthBid + f.L5DepthAsk; depth > 0 {
		score += add("depth", math.Min(15, depth/10))
	}

	switch {
	case f.RejectionVelocity > 0.1:
		score += add("rejection_velocity", 15)
	case f.RejectionVelocity > 0.05:
		score += add("rejection_velocity", 8)
	}

	if f.LiquidityVoidFlag {
		score += add("liquidity_void", 10)
	}
	if f.StackedImbalance {
		score += add("stacked_imbalance", 10)
	}
	if math.Abs(f.OIChangePct*100) > 0.05 {
		score += add("oi_change", 5)
	}
	return math.Min(100, score)
}

func (s *Scorer) confidence(f *models.WickFeatures, integrity float64, breakdown map[string]float64) float64 {
	conf := 50.0
	breakdown["conf_base"] = 50
	if pts := integrity * 20; pts != 0 {
		breakdown["conf_integrity"] = pts
		conf += pts
	}

	switch delta := math.Abs(f.DeltaAtWick); {
	case delta > 50:
		breakdown["conf_delta"] = 15
		conf += 15
	case delta > 10:
		breakdown["conf_delta"] = 8
		conf += 8
	}

	if math.Abs(f.DepthImbalance) > 0.5 {
		breakdown["conf_imbalance"] = 10
		conf += 10
	}
	return math.Min(100, conf)
}

// integrity reports which upstream feeds contributed to the vector.
func integrity(f *models.WickFeatures) (float64, []string) {
	var missing []string
	if f.L5DepthBid == 0 && f.L5DepthAsk == 0 {
		missing = append(missing, "NO_DEPTH")
	}
	if f.OIChangePct == 0 {
		missing = append(missing, "NO_OI")
	}
	if f.FundingRateNow == 0 {
		missing = append(missing, "NO_FUND")
	}
	return float64(integrityFieldCount-len(missing)) / integrityFieldCount, missing
}
