package features

import (
	"math"
	"sync"

	"wickengine/internal/domain/models"
)

const (
	flowHistoryCap  = 100
	slopeWindow     = 10
	freqWindow      = 20
	icebergMinCount = 5
)

type flowState struct {
	cvd          float64
	cvdHistory   []float64
	deltaHistory []float64
	countHistory []int
}

// OrderFlow maintains per-symbol cumulative volume delta and bounded rolling
// histories, and derives flow features on each closed candle.
type OrderFlow struct {
	mu    sync.Mutex
	state map[string]*flowState
}

func NewOrderFlow() *OrderFlow {
	return &OrderFlow{state: make(map[string]*flowState)}
}

// Reset clears state for one symbol, or all symbols when symbol is empty.
func (o *OrderFlow) Reset(symbol string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if symbol == "" {
		o.state = make(map[string]*flowState)
		return
	}
	delete(o.state, symbol)
}

// OrderFlowFeatures is the flow slice of the feature vector.
type OrderFlowFeatures struct {
	DeltaAtWick       float64
	DeltaPrevPivot    float64
	DeltaDivergence   bool
	CVDSlope10        float64
	AbsorptionFlag    bool
	ExhaustionFlag    bool
	TradeFreqSpike    float64
	BidAskRefreshRate float64
	IcebergFlag       bool
}

// Compute folds the closed candle into the symbol's flow state and derives
// the features. Never fails; insufficient history yields neutral values.
func (o *OrderFlow) Compute(c *models.Candle) OrderFlowFeatures {
	o.mu.Lock()
	defer o.mu.Unlock()

	st, ok := o.state[c.Symbol]
	if !ok {
		st = &flowState{}
		o.state[c.Symbol] = st
	}

	delta := c.BuyVolume - c.SellVolume
	st.cvd += delta
	st.cvdHistory = appendBounded(st.cvdHistory, st.cvd, flowHistoryCap)
	st.deltaHistory = appendBounded(st.deltaHistory, delta, flowHistoryCap)
	st.countHistory = appendBoundedInt(st.countHistory, len(c.Trades), flowHistoryCap)

	var f OrderFlowFeatures
	f.DeltaAtWick = delta
	if n := len(st.deltaHistory); n >= 2 {
		f.DeltaPrevPivot = st.deltaHistory[n-2]
	}

	f.CVDSlope10 = olsSlope(tail(st.cvdHistory, slopeWindow))

	priceChange := c.Close - c.Open
	f.DeltaDivergence = (priceChange > 0 && delta < 0) || (priceChange < 0 && delta > 0)

	// Absorption: trade count spikes while price barely moves within range.
	if rng := c.Range(); rng > 0 && len(st.countHistory) >= freqWindow {
		avg := meanInt(tailInt(st.countHistory, freqWindow))
		if float64(len(c.Trades)) > avg*2 && math.Abs(priceChange)/rng < 0.3 {
			f.AbsorptionFlag = true
		}
	}

	// Exhaustion: three deltas aligned with price direction, strictly
	// shrinking in magnitude.
	if n := len(st.deltaHistory); n >= 3 {
		d := st.deltaHistory[n-3:]
		aligned := d[0]*priceChange > 0 && d[1]*priceChange > 0 && d[2]*priceChange > 0
		if aligned && math.Abs(d[2]) < math.Abs(d[1]) && math.Abs(d[1]) < math.Abs(d[0]) {
			f.ExhaustionFlag = true
		}
	}

	if len(st.countHistory) >= freqWindow {
		counts := tailInt(st.countHistory, freqWindow)
		mean := meanInt(counts)
		if sd := stdevInt(counts, mean); sd > 0 {
			f.TradeFreqSpike = (float64(len(c.Trades)) - mean) / sd
		}
	}

	if len(c.Trades) > 0 {
		f.BidAskRefreshRate = float64(len(c.Trades)) / 60.0
	}

	// Iceberg: repeated prints at one identical price inside the candle.
	if len(c.Trades) >= icebergMinCount {
		priceCounts := make(map[float64]int, len(c.Trades))
		for _, t := range c.Trades {
			priceCounts[t.Price]++
			if priceCounts[t.Price] >= icebergMinCount {
				f.IcebergFlag = true
				break
			}
		}
	}

	return f
}

// Apply copies the flow features into a vector.
func (f OrderFlowFeatures) Apply(v *models.WickFeatures) {
	v.DeltaAtWick = f.DeltaAtWick
	v.DeltaPrevPivot = f.DeltaPrevPivot
	v.DeltaDivergence = f.DeltaDivergence
	v.CVDSlope10 = f.CVDSlope10
	v.AbsorptionFlag = f.AbsorptionFlag
	v.ExhaustionFlag = f.ExhaustionFlag
	v.TradeFreqSpike = f.TradeFreqSpike
	v.BidAskRefreshRate = f.BidAskRefreshRate
	v.IcebergFlag = f.IcebergFlag
}

// olsSlope fits y = a + b*i over sample index and returns b.
// Fewer than two samples or zero index variance yield 0.
func olsSlope(ys []float64) float64 {
	n := len(ys)
	if n < 2 {
		return 0
	}
	xMean := float64(n-1) / 2
	var yMean float64
	for _, y := range ys {
		yMean += y
	}
	yMean /= float64(n)

	var num, den float64
	for i, y := range ys {
		dx := float64(i) - xMean
		num += dx * (y - yMean)
		den += dx * dx
	}
	if den == 0 {
		return 0
	}
	return num / den
}

func appendBounded(s []float64, v float64, cap int) []float64 {
	s = append(s, v)
	if len(s) > cap {
		s = s[len(s)-cap:]
	}
	return s
}

func appendBoundedInt(s []int, v, cap int) []int {
	s = append(s, v)
	if len(s) > cap {
		s = s[len(s)-cap:]
	}
	return s
}

func tail(s []float64, n int) []float64 {
	if len(s) > n {
		return s[len(s)-n:]
	}
	return s
}

func tailInt(s []int, n int) []int {
	if len(s) > n {
		return s[len(s)-n:]
	}
	return s
}

func meanInt(s []int) float64 {
	if len(s) == 0 {
		return 0
	}
	var sum float64
	for _, v := range s {
		sum += float64(v)
	}
	return sum / float64(len(s))
}

func stdevInt(s []int, mean float64) float64 {
	if len(s) < 2 {
		return 0
	}
	var ss float64
	for _, v := range s {
		d := float64(v) - mean
		ss += d * d
	}
	return math.Sqrt(ss / float64(len(s)-1))
}
