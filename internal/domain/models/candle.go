package models

import "time"

// Candle is a fixed-interval OHLCV aggregate of trades. It is mutable while
// its window is open and becomes immutable once the aggregator closes it.
type Candle struct {
	StartTS    time.Time
	EndTS      time.Time
	Symbol     string
	Open       float64
	High       float64
	Low        float64
	Close      float64
	Volume     float64
	BuyVolume  float64
	SellVolume float64
	Trades     []Trade
}

// Duration returns the candle window length.
func (c *Candle) Duration() time.Duration { return c.EndTS.Sub(c.StartTS) }

// Range returns high minus low.
func (c *Candle) Range() float64 { return c.High - c.Low }

// Body returns the absolute open/close distance.
func (c *Candle) Body() float64 {
	if c.Close >= c.Open {
		return c.Close - c.Open
	}
	return c.Open - c.Close
}

// WickSide identifies which extremity of a candle was rejected.
type WickSide string

const (
	WickUpper WickSide = "upper"
	WickLower WickSide = "lower"
)

// WickOccurrence is a detected price rejection on one side of a closed candle.
// It only lives for the duration of the fuse/score/persist sequence.
type WickOccurrence struct {
	Side   WickSide
	High   float64
	Low    float64
	Ratio  float64
	Candle *Candle
}
