package detector

import "wickengine/internal/domain/models"

// bodyEpsilon separates a true doji from a hairline body.
const bodyEpsilon = 1e-8

// DetectWicks classifies a finalized candle's extremities against a minimum
// wick-to-body ratio. Both sides can qualify on the same candle. A doji body
// falls back to "any non-zero wick qualifies" since the ratio diverges.
// Zero-range candles produce no detections.
func DetectWicks(c *models.Candle, minRatio float64) []models.WickOccurrence {
	if c == nil || c.Range() <= 0 {
		return nil
	}

	body := c.Body()
	upper := c.High - max(c.Open, c.Close)
	lower := min(c.Open, c.Close) - c.Low

	var out []models.WickOccurrence
	if ratio, ok := qualifies(upper, body, minRatio); ok {
		out = append(out, models.WickOccurrence{
			Side:   models.WickUpper,
			High:   c.High,
			Low:    c.Low,
			Ratio:  ratio,
			Candle: c,
		})
	}
	if ratio, ok := qualifies(lower, body, minRatio); ok {
		out = append(out, models.WickOccurrence{
			Side:   models.WickLower,
			High:   c.High,
			Low:    c.Low,
			Ratio:  ratio,
			Candle: c,
		})
	}
	return out
}

func qualifies(wick, body, minRatio float64) (float64, bool) {
	if wick <= 0 {
		return 0, false
	}
	if body <= bodyEpsilon {
		// Doji: scale the wick so downstream consumers still see a ratio.
		return wick * 100, true
	}
	ratio := wick / body
	return ratio, ratio >= minRatio
}
