package models

import "time"

// ScoreResult is the scorer output: bounded scores plus the itemized point
// breakdown that produced them.
type ScoreResult struct {
	MagnetScore  float64            `json:"wick_magnet_score"`
	Confidence   float64            `json:"confidence"`
	Integrity    float64            `json:"integrity"`
	MissingFlags []string           `json:"missing_flags,omitempty"`
	Breakdown    map[string]float64 `json:"breakdown"`
}

// EmbeddedBook is the order-book snapshot stored alongside an event so the
// microstructure analysis can be re-run offline.
type EmbeddedBook struct {
	Symbol    string      `json:"symbol"`
	Timestamp time.Time   `json:"timestamp"`
	MidPrice  float64     `json:"mid_price"`
	Bids      [][2]float64 `json:"bids"`
	Asks      [][2]float64 `json:"asks"`
}

// EmbedBook converts a snapshot into its persisted top-20 form.
func EmbedBook(ob *OrderBookSnapshot) *EmbeddedBook {
	if ob == nil {
		return nil
	}
	bids, asks := ob.TopLevels(20)
	eb := &EmbeddedBook{
		Symbol:    ob.Symbol,
		Timestamp: ob.TS,
		MidPrice:  ob.MidPrice(),
		Bids:      make([][2]float64, 0, len(bids)),
		Asks:      make([][2]float64, 0, len(asks)),
	}
	for _, l := range bids {
		eb.Bids = append(eb.Bids, [2]float64{l.Price, l.Size})
	}
	for _, l := range asks {
		eb.Asks = append(eb.Asks, [2]float64{l.Price, l.Size})
	}
	return eb
}

// WickEvent is the fully scored, persisted record for one detected wick.
type WickEvent struct {
	TS        time.Time     `json:"ts"`
	Symbol    string        `json:"symbol"`
	Timeframe string        `json:"timeframe"`
	WickSide  WickSide      `json:"wick_side"`
	WickHigh  float64       `json:"wick_high"`
	WickLow   float64       `json:"wick_low"`
	Features  WickFeatures  `json:"features"`
	Score     ScoreResult   `json:"score"`
	OrderBook *EmbeddedBook `json:"orderbook,omitempty"`
}

// SymbolSnapshot summarizes the last event seen for a symbol, for status output.
type SymbolSnapshot struct {
	LastCandleTS time.Time `json:"last_candle_ts"`
	LastWickSide WickSide  `json:"last_wick_side"`
	LastScore    float64   `json:"last_score"`
}

// EngineStatus is the periodic atomic status snapshot.
type EngineStatus struct {
	Timestamp       time.Time                 `json:"timestamp"`
	UptimeSeconds   int64                     `json:"uptime_seconds"`
	Running         bool                      `json:"running"`
	WicksDetected   int64                     `json:"wicks_detected"`
	AlertsSent      int64                     `json:"alerts_sent"`
	DroppedTrades   int64                     `json:"dropped_trades"`
	USDTDominance   float64                   `json:"usdt_dominance"`
	AlertMinRatio   float64                   `json:"alert_min_ratio"`
	LastAlertError  string                    `json:"last_alert_error"`
	FeedAgeSeconds  map[string]int64          `json:"feed_age"`
	DeadFeeds       []string                  `json:"dead_feeds,omitempty"`
	SymbolSnapshots map[string]SymbolSnapshot `json:"symbol_snapshots"`
}
