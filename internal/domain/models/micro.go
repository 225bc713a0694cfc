package models

import "time"

// VoidDirection locates a void band relative to mid-price.
type VoidDirection string

const (
	VoidAbove VoidDirection = "above"
	VoidBelow VoidDirection = "below"
)

// VoidBand is a contiguous price region with abnormally low resting depth.
// Derived per analysis call; only the calibration history behind its
// threshold persists.
type VoidBand struct {
	StartPrice float64       `json:"start_price"`
	EndPrice   float64       `json:"end_price"`
	WidthBps   float64       `json:"width_bps"`
	CumDepth   float64       `json:"cum_depth"`
	Direction  VoidDirection `json:"direction"`
}

// WallSide is the book side a wall rests on.
type WallSide string

const (
	WallBid WallSide = "bid"
	WallAsk WallSide = "ask"
)

// StackedWall is a price level with abnormally high resting depth.
type StackedWall struct {
	Price       float64  `json:"price"`
	Size        float64  `json:"size"`
	Notional    float64  `json:"notional"`
	DistanceBps float64  `json:"distance_bps"`
	Side        WallSide `json:"side"`
}

// BookAnalysis is the result of one void/wall scan of a snapshot.
type BookAnalysis struct {
	Symbol     string        `json:"symbol"`
	TS         time.Time     `json:"ts"`
	MidPrice   float64       `json:"mid_price"`
	VoidsAbove []VoidBand    `json:"voids_above"`
	VoidsBelow []VoidBand    `json:"voids_below"`
	BidWalls   []StackedWall `json:"bid_walls"`
	AskWalls   []StackedWall `json:"ask_walls"`
	HasVoid    bool          `json:"has_void"`
	HasStack   bool          `json:"has_stack"`
}

// OIDeltaSnapshot is one open-interest observation from the derivatives poller.
type OIDeltaSnapshot struct {
	TS      time.Time
	Symbol  string
	OIOpen  float64
	OIClose float64
	DeltaOI float64
}

// FundingSnapshot is one funding-rate observation.
type FundingSnapshot struct {
	TS              time.Time
	Symbol          string
	FundingRateNow  float64
	FundingRateNext float64
	NextFundingTS   time.Time
}

// LiquidationSide is the liquidated position direction.
type LiquidationSide string

const (
	LiqLong  LiquidationSide = "long"
	LiqShort LiquidationSide = "short"
)

// LiquidationEvent is one forced-liquidation print.
type LiquidationEvent struct {
	TS     time.Time
	Symbol string
	Side   LiquidationSide
	Volume float64
	Price  float64
}

// MacroState is the dominance snapshot merged verbatim into feature vectors.
type MacroState struct {
	USDTDominance float64
	BTCDominance  float64
	USDTTrend     string
	LastUpdate    time.Time
}
