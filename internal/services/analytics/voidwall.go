package analytics

import (
	"math"
	"sort"
	"sync"

	"wickengine/internal/domain/models"
)

const (
	defaultBandWidthBps = 10.0
	defaultVoidPct      = 10.0
	defaultStackPct     = 90.0
	defaultMaxBands     = 20
	defaultHistorySize  = 100
	defaultTopWalls     = 3

	// Bootstrap thresholds used until a symbol has accumulated at least
	// minCalibrationSamples observations.
	bootstrapVoidNotional  = 50_000.0
	bootstrapStackNotional = 500_000.0
	minCalibrationSamples  = 10

	// Void bands separated by at most this many band-widths merge into one.
	mergeAdjacencyFactor = 1.5
)

// VoidWallOption configures a VoidWallDetector.
type VoidWallOption func(*VoidWallDetector)

// WithBandWidth sets the scan band width in basis points.
func WithBandWidth(bps float64) VoidWallOption {
	return func(d *VoidWallDetector) {
		if bps > 0 {
			d.bandWidthBps = bps
		}
	}
}

// WithPercentiles sets the void and stack calibration percentiles.
func WithPercentiles(voidPct, stackPct float64) VoidWallOption {
	return func(d *VoidWallDetector) {
		d.voidPct = voidPct
		d.stackPct = stackPct
	}
}

// WithMaxBands sets how many bands to scan out from mid-price per direction.
func WithMaxBands(n int) VoidWallOption {
	return func(d *VoidWallDetector) {
		if n > 0 {
			d.maxBands = n
		}
	}
}

// WithTopWalls sets how many walls to return per side.
func WithTopWalls(n int) VoidWallOption {
	return func(d *VoidWallDetector) {
		if n > 0 {
			d.topWalls = n
		}
	}
}

// VoidWallDetector scans order-book snapshots for low-depth void bands and
// high-depth stacked walls. Thresholds self-calibrate from rolling per-symbol
// histories of observed band and level notionals, so the detector auto-scales
// across instruments of very different magnitude.
type VoidWallDetector struct {
	bandWidthBps float64
	voidPct      float64
	stackPct     float64
	maxBands     int
	historySize  int
	topWalls     int

	mu           sync.Mutex
	depthHistory map[string][]float64
	wallHistory  map[string][]float64
}

func NewVoidWallDetector(opts ...VoidWallOption) *VoidWallDetector {
	d := &VoidWallDetector{
		bandWidthBps: defaultBandWidthBps,
		voidPct:      defaultVoidPct,
		stackPct:     defaultStackPct,
		maxBands:     defaultMaxBands,
		historySize:  defaultHistorySize,
		topWalls:     defaultTopWalls,
		depthHistory: make(map[string][]float64),
		wallHistory:  make(map[string][]float64),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// ResetSymbol drops the calibration histories for one symbol.
func (d *VoidWallDetector) ResetSymbol(symbol string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.depthHistory, symbol)
	delete(d.wallHistory, symbol)
}

// Analyze runs a full void + wall scan of one snapshot. Voids are returned
// nearest-first per direction; walls top-N by notional per side.
func (d *VoidWallDetector) Analyze(ob *models.OrderBookSnapshot) models.BookAnalysis {
	res := models.BookAnalysis{Symbol: ob.Symbol, TS: ob.TS, MidPrice: ob.MidPrice()}
	if res.MidPrice <= 0 {
		return res
	}

	res.VoidsAbove = d.DetectVoids(ob, models.VoidAbove)
	res.VoidsBelow = d.DetectVoids(ob, models.VoidBelow)
	res.BidWalls, res.AskWalls = d.DetectWalls(ob)

	res.HasVoid = len(res.VoidsAbove) > 0 || len(res.VoidsBelow) > 0
	res.HasStack = len(res.BidWalls) > 0 || len(res.AskWalls) > 0
	return res
}

// DetectVoids scans one direction outward from mid-price in equal-width bps
// bands, marks bands whose resting notional sits below the calibrated
// percentile, and merges near-adjacent void bands into contiguous records.
func (d *VoidWallDetector) DetectVoids(ob *models.OrderBookSnapshot, dir models.VoidDirection) []models.VoidBand {
	ref := ob.MidPrice()
	if ref <= 0 {
		return nil
	}
	levels := ob.Asks
	if dir == models.VoidBelow {
		levels = ob.Bids
	}

	type scanBand struct {
		start, end, depth float64
	}
	bands := make([]scanBand, 0, d.maxBands)
	for i := 0; i < d.maxBands; i++ {
		var start, end float64
		if dir == models.VoidAbove {
			start = bpsToPrice(float64(i)*d.bandWidthBps, ref)
			end = bpsToPrice(float64(i+1)*d.bandWidthBps, ref)
		} else {
			start = bpsToPrice(-float64(i)*d.bandWidthBps, ref)
			end = bpsToPrice(-float64(i+1)*d.bandWidthBps, ref)
		}
		depth := bandNotional(levels, start, end)
		bands = append(bands, scanBand{start, end, depth})
	}

	// Threshold reflects the history as it stood at call entry; this scan's
	// own observations feed only future thresholds.
	d.mu.Lock()
	hist := d.depthHistory[ob.Symbol]
	threshold := thresholdFrom(hist, d.voidPct, bootstrapVoidNotional)
	for _, b := range bands {
		hist = appendBounded(hist, b.depth, d.historySize)
	}
	d.depthHistory[ob.Symbol] = hist
	d.mu.Unlock()

	var voids []scanBand
	for _, b := range bands {
		if b.depth < threshold {
			voids = append(voids, b)
		}
	}
	if len(voids) == 0 {
		return nil
	}

	// Nearest-first: ascending start above mid, descending below.
	sort.Slice(voids, func(i, j int) bool {
		if dir == models.VoidBelow {
			return voids[i].start > voids[j].start
		}
		return voids[i].start < voids[j].start
	})

	// Merge bands whose gap is within 1.5 band-widths.
	adjacency := math.Abs(bpsToPrice(d.bandWidthBps*mergeAdjacencyFactor, ref) - ref)
	var merged []models.VoidBand
	curStart, curEnd, curDepth := voids[0].start, voids[0].end, voids[0].depth
	flush := func() {
		merged = append(merged, models.VoidBand{
			StartPrice: math.Min(curStart, curEnd),
			EndPrice:   math.Max(curStart, curEnd),
			WidthBps:   math.Abs(priceToBps(curEnd, ref) - priceToBps(curStart, ref)),
			CumDepth:   curDepth,
			Direction:  dir,
		})
	}
	for _, b := range voids[1:] {
		if math.Abs(b.start-curEnd) <= adjacency {
			curEnd = b.end
			curDepth += b.depth
		} else {
			flush()
			curStart, curEnd, curDepth = b.start, b.end, b.depth
		}
	}
	flush()
	return merged
}

// DetectWalls finds resting levels whose notional clears the calibrated
// percentile, returning the top-N per side by notional.
func (d *VoidWallDetector) DetectWalls(ob *models.OrderBookSnapshot) (bidWalls, askWalls []models.StackedWall) {
	ref := ob.MidPrice()
	if ref <= 0 {
		return nil, nil
	}

	d.mu.Lock()
	hist := d.wallHistory[ob.Symbol]
	threshold := thresholdFrom(hist, d.stackPct, bootstrapStackNotional)
	for _, l := range ob.Bids {
		hist = appendBounded(hist, l.Notional(), d.historySize)
	}
	for _, l := range ob.Asks {
		hist = appendBounded(hist, l.Notional(), d.historySize)
	}
	d.wallHistory[ob.Symbol] = hist
	d.mu.Unlock()

	collect := func(levels []models.BookLevel, side models.WallSide) []models.StackedWall {
		var walls []models.StackedWall
		for _, l := range levels {
			if n := l.Notional(); n >= threshold {
				walls = append(walls, models.StackedWall{
					Price:       l.Price,
					Size:        l.Size,
					Notional:    n,
					DistanceBps: priceToBps(l.Price, ref),
					Side:        side,
				})
			}
		}
		sort.Slice(walls, func(i, j int) bool { return walls[i].Notional > walls[j].Notional })
		if len(walls) > d.topWalls {
			walls = walls[:d.topWalls]
		}
		return walls
	}
	return collect(ob.Bids, models.WallBid), collect(ob.Asks, models.WallAsk)
}

func bandNotional(levels []models.BookLevel, bandStart, bandEnd float64) float64 {
	lo, hi := math.Min(bandStart, bandEnd), math.Max(bandStart, bandEnd)
	var total float64
	for _, l := range levels {
		if l.Price >= lo && l.Price <= hi {
			total += l.Notional()
		}
	}
	return total
}

func priceToBps(price, ref float64) float64 {
	if ref == 0 {
		return 0
	}
	return (price - ref) / ref * 10_000
}

func bpsToPrice(bps, ref float64) float64 {
	return ref * (1 + bps/10_000)
}

// thresholdFrom returns the p-th percentile of the history, or the bootstrap
// default while the sample is thin.
func thresholdFrom(hist []float64, pct, bootstrap float64) float64 {
	if len(hist) < minCalibrationSamples {
		return bootstrap
	}
	return percentile(hist, pct)
}

// percentile computes the pct-th percentile with linear interpolation.
func percentile(vals []float64, pct float64) float64 {
	sorted := make([]float64, len(vals))
	copy(sorted, vals)
	sort.Float64s(sorted)

	if pct <= 0 {
		return sorted[0]
	}
	if pct >= 100 {
		return sorted[len(sorted)-1]
	}
	rank := pct / 100 * float64(len(sorted)-1)
	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))
	if lo == hi {
		return sorted[lo]
	}
	frac := rank - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}

func appendBounded(s []float64, v float64, cap int) []float64 {
	s = append(s, v)
	if len(s) > cap {
		s = s[len(s)-cap:]
	}
	return s
}
