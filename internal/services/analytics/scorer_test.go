package analytics

import (
	"math"
	"testing"

	"wickengine/internal/domain/models"
)

func TestScoreMagnetComponents(t *testing.T) {
	s := NewScorer()
	f := &models.WickFeatures{
		WickToBodyRatio:   2.5,  // 15
		VWAPMeanReversion: 75,   // 20
		L5DepthBid:        60,   // depth 110/10 = 11
		L5DepthAsk:        50,   //
		RejectionVelocity: 0.2,  // 15
		LiquidityVoidFlag: true, // 10
		StackedImbalance:  true, // 10
		OIChangePct:       0.01, // |1| > 0.05 -> 5
		FundingRateNow:    0.0001,
	}
	res := s.Score(f)
	if math.Abs(res.MagnetScore-86) > 1e-9 {
		t.Fatalf("expected magnet 86, got %v", res.MagnetScore)
	}
	for _, key := range []string{"wick_ratio", "vwap_reversion", "depth", "rejection_velocity", "liquidity_void", "stacked_imbalance", "oi_change"} {
		if _, ok := res.Breakdown[key]; !ok {
			t.Fatalf("breakdown missing %s: %v", key, res.Breakdown)
		}
	}
}

func TestScoreBounded(t *testing.T) {
	s := NewScorer()
	f := &models.WickFeatures{
		WickToBodyRatio:   10,
		VWAPMeanReversion: 100,
		L5DepthBid:        10000,
		L5DepthAsk:        10000,
		RejectionVelocity: 5,
		LiquidityVoidFlag: true,
		StackedImbalance:  true,
		OIChangePct:       0.5,
		DeltaAtWick:       500,
		DepthImbalance:    0.9,
		FundingRateNow:    0.001,
	}
	res := s.Score(f)
	if res.MagnetScore > 100 || res.Confidence > 100 {
		t.Fatalf("scores must cap at 100, got %v/%v", res.MagnetScore, res.Confidence)
	}
}

func TestScoreIntegrityFlags(t *testing.T) {
	s := NewScorer()
	res := s.Score(&models.WickFeatures{})
	if len(res.MissingFlags) != 3 {
		t.Fatalf("empty vector should miss all three feeds, got %v", res.MissingFlags)
	}
	if math.Abs(res.Integrity-0.4) > 1e-9 {
		t.Fatalf("expected integrity 0.4, got %v", res.Integrity)
	}
	// Base 50 + 0.4*20 integrity.
	if math.Abs(res.Confidence-58) > 1e-9 {
		t.Fatalf("expected confidence 58, got %v", res.Confidence)
	}

	full := s.Score(&models.WickFeatures{L5DepthBid: 1, OIChangePct: 0.01, FundingRateNow: 0.0001})
	if len(full.MissingFlags) != 0 || full.Integrity != 1 {
		t.Fatalf("complete feeds must yield integrity 1, got %+v", full)
	}
}

func TestConfidenceDeltaTiers(t *testing.T) {
	s := NewScorer()
	mid := s.Score(&models.WickFeatures{DeltaAtWick: -20})
	if mid.Breakdown["conf_delta"] != 8 {
		t.Fatalf("|delta| 20 should add 8, got %v", mid.Breakdown["conf_delta"])
	}
	big := s.Score(&models.WickFeatures{DeltaAtWick: 80})
	if big.Breakdown["conf_delta"] != 15 {
		t.Fatalf("|delta| 80 should add 15, got %v", big.Breakdown["conf_delta"])
	}
}

func TestAttentionScore(t *testing.T) {
	s := NewScorer()
	res := models.ScoreResult{MagnetScore: 80, Confidence: 75, Integrity: 1}
	plain := s.AttentionScore(res, &models.WickFeatures{})
	if math.Abs(plain-60) > 1e-9 {
		t.Fatalf("expected attention 60, got %v", plain)
	}
	boosted := s.AttentionScore(res, &models.WickFeatures{LiquidityVoidFlag: true, StackedImbalance: true})
	if math.Abs(boosted-78) > 1e-9 {
		t.Fatalf("expected boosted attention 78, got %v", boosted)
	}
}
