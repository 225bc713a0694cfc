package features

import "wickengine/internal/domain/models"

// Fusion owns the stateful feature domains and fuses their outputs into one
// flat vector per wick event. One Fusion serves all symbols; each domain
// isolates its state per symbol internally.
type Fusion struct {
	Flow   *OrderFlow
	VWAP   *VWAP
	Derivs *Derivatives
}

func NewFusion() *Fusion {
	return &Fusion{
		Flow:   NewOrderFlow(),
		VWAP:   NewVWAP(),
		Derivs: NewDerivatives(),
	}
}

// ResetSymbol clears every domain's state for exactly one symbol.
func (fu *Fusion) ResetSymbol(symbol string) {
	fu.Flow.Reset(symbol)
	fu.VWAP.Reset(symbol)
	fu.Derivs.Reset(symbol)
}

// Compute builds the complete feature vector for a wick on a closed candle.
// book may be nil and macro may be the zero value; the affected slices stay
// at their neutral defaults. Compute never fails.
func (fu *Fusion) Compute(
	w *models.WickOccurrence,
	book *models.OrderBookSnapshot,
	macro models.MacroState,
) models.WickFeatures {
	c := w.Candle
	f := models.NewWickFeatures()

	ComputeGeometry(c, w.Side).Apply(&f)
	fu.Flow.Compute(c).Apply(&f)
	ComputeLiquidity(book).Apply(&f)

	sess := ComputeSession(c.EndTS)
	sess.Apply(&f)

	fu.VWAP.Compute(c.Symbol, sess.Label, c.Trades, c.Close).Apply(&f)
	fu.Derivs.Compute(c.Symbol, c.EndTS).Apply(&f)

	// Macro scalars merge verbatim.
	f.USDTDominance = macro.USDTDominance
	f.BTCDominance = macro.BTCDominance
	if macro.USDTTrend != "" {
		f.USDTTrend = macro.USDTTrend
	}
	return f
}
