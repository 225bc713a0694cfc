package models

import "time"

// TradeSide is the taker side of an executed trade.
type TradeSide string

const (
	SideBuy  TradeSide = "buy"
	SideSell TradeSide = "sell"
)

// Trade is a single executed trade from the tape.
type Trade struct {
	TS     time.Time
	Symbol string
	Price  float64
	Size   float64
	Side   TradeSide
}

// BookLevel is one resting level of the order book.
type BookLevel struct {
	Price float64
	Size  float64
}

// Notional returns the resting value in quote currency.
func (l BookLevel) Notional() float64 { return l.Price * l.Size }

// OrderBookSnapshot is the top-N levels of one side of the book at an instant.
// Bids are sorted descending by price, asks ascending. Snapshots are immutable;
// the per-symbol cache replaces the whole value, never merges.
type OrderBookSnapshot struct {
	TS      time.Time
	Symbol  string
	BestBid float64
	BestAsk float64
	Bids    []BookLevel
	Asks    []BookLevel
}

// MidPrice returns the bid/ask midpoint, or 0 when either side is empty.
func (ob *OrderBookSnapshot) MidPrice() float64 {
	if ob == nil || ob.BestBid <= 0 || ob.BestAsk <= 0 {
		return 0
	}
	return (ob.BestBid + ob.BestAsk) / 2
}

// TopLevels returns up to n levels per side for embedding into persisted events.
func (ob *OrderBookSnapshot) TopLevels(n int) (bids, asks []BookLevel) {
	if ob == nil {
		return nil, nil
	}
	bids, asks = ob.Bids, ob.Asks
	if len(bids) > n {
		bids = bids[:n]
	}
	if len(asks) > n {
		asks = asks[:n]
	}
	return bids, asks
}
