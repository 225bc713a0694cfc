package candles

import (
	"time"

	"wickengine/internal/domain/models"
)

// Aggregator folds trades for one symbol into tumbling time-bucketed candles.
// It is not safe for concurrent use; the engine owns one per symbol and feeds
// it from a single goroutine.
type Aggregator struct {
	interval time.Duration
	bucket   time.Time
	current  *models.Candle
	dropped  int64
}

// NewAggregator creates an aggregator with the given tumbling interval.
func NewAggregator(interval time.Duration) *Aggregator {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Aggregator{interval: interval}
}

// Process ingests one trade. When the trade opens a new bucket, the previous
// candle is finalized and returned. Buckets with no trades are never
// synthesized; gaps are simply absent.
//
// Out-of-order policy: a trade whose timestamp still falls inside the open
// bucket is merged normally. A trade older than the open bucket is dropped
// and counted; late merges into already-emitted candles would break the
// emit-exactly-once contract.
func (a *Aggregator) Process(t *models.Trade) *models.Candle {
	bucket := t.TS.Truncate(a.interval)

	if a.current == nil {
		a.open(bucket, t)
		return nil
	}

	switch {
	case bucket.After(a.bucket):
		closed := a.current
		closed.EndTS = a.bucket.Add(a.interval)
		a.open(bucket, t)
		return closed
	case bucket.Before(a.bucket):
		a.dropped++
		return nil
	default:
		a.update(t)
		return nil
	}
}

// Dropped reports how many out-of-order trades were discarded.
func (a *Aggregator) Dropped() int64 { return a.dropped }

// Current returns the open candle, or nil before the first trade.
func (a *Aggregator) Current() *models.Candle { return a.current }

func (a *Aggregator) open(bucket time.Time, t *models.Trade) {
	a.bucket = bucket
	c := &models.Candle{
		StartTS: bucket,
		EndTS:   bucket.Add(a.interval),
		Symbol:  t.Symbol,
		Open:    t.Price,
		High:    t.Price,
		Low:     t.Price,
		Close:   t.Price,
		Volume:  t.Size,
		Trades:  []models.Trade{*t},
	}
	if t.Side == models.SideBuy {
		c.BuyVolume = t.Size
	} else {
		c.SellVolume = t.Size
	}
	a.current = c
}

func (a *Aggregator) update(t *models.Trade) {
	c := a.current
	if t.Price > c.High {
		c.High = t.Price
	}
	if t.Price < c.Low {
		c.Low = t.Price
	}
	c.Close = t.Price
	c.Volume += t.Size
	if t.Side == models.SideBuy {
		c.BuyVolume += t.Size
	} else {
		c.SellVolume += t.Size
	}
	c.Trades = append(c.Trades, *t)
}
