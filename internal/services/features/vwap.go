package features

import (
	"math"
	"sync"

	"wickengine/internal/domain/models"
)

// vwapAccumulator keeps the three sums needed to derive volume-weighted mean
// and variance in O(1) per update, without retaining raw prices.
type vwapAccumulator struct {
	sumPV  float64 // Σ price·size
	sumV   float64 // Σ size
	sumPV2 float64 // Σ price²·size
}

func (a *vwapAccumulator) add(price, size float64) {
	a.sumPV += price * size
	a.sumV += size
	a.sumPV2 += price * price * size
}

func (a *vwapAccumulator) vwap() float64 {
	if a.sumV <= 0 {
		return 0
	}
	return a.sumPV / a.sumV
}

func (a *vwapAccumulator) variance() float64 {
	if a.sumV <= 0 {
		return 0
	}
	mean := a.vwap()
	return math.Max(0, a.sumPV2/a.sumV-mean*mean)
}

func (a *vwapAccumulator) stdev() float64 { return math.Sqrt(a.variance()) }

type vwapState struct {
	global  vwapAccumulator
	session map[string]*vwapAccumulator
}

// VWAP maintains one global and per-session-label accumulator per symbol.
type VWAP struct {
	mu    sync.Mutex
	state map[string]*vwapState
}

func NewVWAP() *VWAP {
	return &VWAP{state: make(map[string]*vwapState)}
}

// Reset clears state for one symbol, or all symbols when symbol is empty.
func (v *VWAP) Reset(symbol string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if symbol == "" {
		v.state = make(map[string]*vwapState)
		return
	}
	delete(v.state, symbol)
}

// VWAPFeatures is the VWAP slice of the feature vector.
type VWAPFeatures struct {
	SessionVWAPDistance float64
	GlobalVWAPDistance  float64
	Band1SD             bool
	Band2SD             bool
	MeanReversionScore  float64
}

// Compute absorbs the candle's trades into the symbol's accumulators and
// derives distance and band features against lastPrice. Recording zero new
// trades at an unchanged price leaves the result unchanged on re-query.
func (v *VWAP) Compute(symbol, sessionLabel string, trades []models.Trade, lastPrice float64) VWAPFeatures {
	v.mu.Lock()
	defer v.mu.Unlock()

	st, ok := v.state[symbol]
	if !ok {
		st = &vwapState{session: make(map[string]*vwapAccumulator)}
		v.state[symbol] = st
	}
	sess, ok := st.session[sessionLabel]
	if !ok {
		sess = &vwapAccumulator{}
		st.session[sessionLabel] = sess
	}
	for _, t := range trades {
		st.global.add(t.Price, t.Size)
		sess.add(t.Price, t.Size)
	}

	var f VWAPFeatures
	globalVWAP := st.global.vwap()
	sessionVWAP := sess.vwap()
	if sessionVWAP == 0 {
		sessionVWAP = globalVWAP
	}

	if globalVWAP > 0 {
		f.GlobalVWAPDistance = (lastPrice - globalVWAP) / globalVWAP
	}
	if sessionVWAP > 0 {
		f.SessionVWAPDistance = (lastPrice - sessionVWAP) / sessionVWAP
	}

	if sd := st.global.stdev(); sd > 0 {
		z := (lastPrice - globalVWAP) / sd
		f.Band1SD = math.Abs(z) >= 1.0
		f.Band2SD = math.Abs(z) >= 2.0

		// 3σ deviation maps to magnitude 100. Negative when price sits above
		// VWAP (reversion pushes down), positive when below.
		magnitude := math.Min(100, math.Abs(z)/3.0*100)
		if z > 0 {
			f.MeanReversionScore = -magnitude
		} else {
			f.MeanReversionScore = magnitude
		}
	}
	return f
}

// Apply copies the VWAP features into a vector.
func (f VWAPFeatures) Apply(v *models.WickFeatures) {
	v.SessionVWAPDistance = f.SessionVWAPDistance
	v.GlobalVWAPDistance = f.GlobalVWAPDistance
	v.VWAPBand1SD = f.Band1SD
	v.VWAPBand2SD = f.Band2SD
	v.VWAPMeanReversion = f.MeanReversionScore
}
