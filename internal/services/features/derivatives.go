package features

import (
	"sync"
	"time"

	"wickengine/internal/domain/models"
)

const (
	oiHistoryCap   = 100
	fundHistoryCap = 100
	liqHistoryCap  = 1000

	// liqNotionalThreshold flags a lookback window with meaningful forced
	// volume behind it.
	liqNotionalThreshold = 1.0

	defaultLookback = 15 * time.Minute
)

type derivState struct {
	oi      []models.OIDeltaSnapshot
	funding []models.FundingSnapshot
	liqs    []models.LiquidationEvent
}

// Derivatives holds per-symbol OI, funding, and liquidation histories fed by
// the poller and read on each wick event.
type Derivatives struct {
	mu       sync.Mutex
	state    map[string]*derivState
	lookback time.Duration
}

func NewDerivatives() *Derivatives {
	return &Derivatives{state: make(map[string]*derivState), lookback: defaultLookback}
}

// Reset clears state for one symbol, or all symbols when symbol is empty.
func (d *Derivatives) Reset(symbol string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if symbol == "" {
		d.state = make(map[string]*derivState)
		return
	}
	delete(d.state, symbol)
}

func (d *Derivatives) get(symbol string) *derivState {
	st, ok := d.state[symbol]
	if !ok {
		st = &derivState{}
		d.state[symbol] = st
	}
	return st
}

// RegisterOI records an open-interest snapshot.
func (d *Derivatives) RegisterOI(s models.OIDeltaSnapshot) {
	d.mu.Lock()
	defer d.mu.Unlock()
	st := d.get(s.Symbol)
	st.oi = append(st.oi, s)
	if len(st.oi) > oiHistoryCap {
		st.oi = st.oi[len(st.oi)-oiHistoryCap:]
	}
}

// RegisterFunding records a funding snapshot.
func (d *Derivatives) RegisterFunding(s models.FundingSnapshot) {
	d.mu.Lock()
	defer d.mu.Unlock()
	st := d.get(s.Symbol)
	st.funding = append(st.funding, s)
	if len(st.funding) > fundHistoryCap {
		st.funding = st.funding[len(st.funding)-fundHistoryCap:]
	}
}

// RegisterLiquidation records a liquidation print.
func (d *Derivatives) RegisterLiquidation(e models.LiquidationEvent) {
	d.mu.Lock()
	defer d.mu.Unlock()
	st := d.get(e.Symbol)
	st.liqs = append(st.liqs, e)
	if len(st.liqs) > liqHistoryCap {
		st.liqs = st.liqs[len(st.liqs)-liqHistoryCap:]
	}
}

// DerivativesFeatures is the derivatives slice of the feature vector.
type DerivativesFeatures struct {
	OIChangePct     float64
	OIDirection     string
	LiquidationFlag bool
	LiqDensity      float64
	FundingRateNow  float64
	FundingRateNext float64
	FundingDistance float64
}

// Compute derives derivatives features at wickTS from the lookback window.
// Missing data yields the neutral defaults.
func (d *Derivatives) Compute(symbol string, wickTS time.Time) DerivativesFeatures {
	d.mu.Lock()
	defer d.mu.Unlock()

	f := DerivativesFeatures{OIDirection: "inc"}
	st, ok := d.state[symbol]
	if !ok {
		return f
	}
	cutoff := wickTS.Add(-d.lookback)

	// OI change over the window: first vs last snapshot, or a single
	// snapshot's own open/close as fallback.
	var relevant []models.OIDeltaSnapshot
	for _, s := range st.oi {
		if !s.TS.Before(cutoff) {
			relevant = append(relevant, s)
		}
	}
	switch {
	case len(relevant) >= 2:
		start, end := relevant[0].OIOpen, relevant[len(relevant)-1].OIClose
		if start > 0 {
			f.OIChangePct = (end - start) / start
			if end <= start {
				f.OIDirection = "dec"
			}
		}
	case len(relevant) == 1:
		s := relevant[0]
		if s.OIOpen > 0 {
			f.OIChangePct = (s.OIClose - s.OIOpen) / s.OIOpen
			if s.OIClose <= s.OIOpen {
				f.OIDirection = "dec"
			}
		}
	}

	for _, e := range st.liqs {
		if !e.TS.Before(cutoff) {
			f.LiqDensity += e.Volume
		}
	}
	f.LiquidationFlag = f.LiqDensity > liqNotionalThreshold

	if len(st.funding) > 0 {
		latest := st.funding[0]
		for _, s := range st.funding[1:] {
			if s.TS.After(latest.TS) {
				latest = s
			}
		}
		f.FundingRateNow = latest.FundingRateNow
		f.FundingRateNext = latest.FundingRateNext
		if latest.NextFundingTS.After(wickTS) {
			f.FundingDistance = latest.NextFundingTS.Sub(wickTS).Minutes()
		}
	}
	return f
}

// Apply copies the derivatives features into a vector.
func (f DerivativesFeatures) Apply(v *models.WickFeatures) {
	v.OIChangePct = f.OIChangePct
	v.OIDirection = f.OIDirection
	v.OILiquidationFlag = f.LiquidationFlag
	v.LiqDensity = f.LiqDensity
	v.FundingRateNow = f.FundingRateNow
	v.FundingRateNext = f.FundingRateNext
	v.FundingDistance = f.FundingDistance
}
