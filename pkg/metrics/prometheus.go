package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	tradesIngested  *prometheus.CounterVec
	candlesClosed   *prometheus.CounterVec
	wicksDetected   *prometheus.CounterVec
	alertsSent      *prometheus.CounterVec
	eventsPersisted *prometheus.CounterVec
	errorsTotal     *prometheus.CounterVec
	lastPrice       *prometheus.GaugeVec
	latency         *prometheus.HistogramVec
	feedAge         *prometheus.GaugeVec
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		tradesIngested: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "wickengine_trades_ingested_total",
				Help: "Total number of validated trades ingested",
			},
			[]string{"symbol"},
		),
		candlesClosed: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "wickengine_candles_closed_total",
				Help: "Total number of closed candles",
			},
			[]string{"symbol"},
		),
		wicksDetected: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "wickengine_wicks_detected_total",
				Help: "Total number of wicks passing the capture threshold",
			},
			[]string{"symbol", "side"},
		),
		alertsSent: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "wickengine_alerts_sent_total",
				Help: "Total number of alerts delivered",
			},
			[]string{"symbol"},
		),
		eventsPersisted: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "wickengine_events_persisted_total",
				Help: "Total number of events written per backend",
			},
			[]string{"backend"},
		),
		errorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "wickengine_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		lastPrice: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "wickengine_last_price",
				Help: "Last recorded price for a symbol",
			},
			[]string{"symbol"},
		),
		latency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "wickengine_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		feedAge: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "wickengine_feed_age_seconds",
				Help: "Seconds since the last update per upstream feed",
			},
			[]string{"feed"},
		),
	}
}

// RecordTradeIngested counts one validated trade.
func (r *Recorder) RecordTradeIngested(symbol string) {
	r.tradesIngested.WithLabelValues(symbol).Inc()
}

// RecordCandleClosed counts one closed candle.
func (r *Recorder) RecordCandleClosed(symbol string) {
	r.candlesClosed.WithLabelValues(symbol).Inc()
}

// RecordWickDetected counts one captured wick.
func (r *Recorder) RecordWickDetected(symbol, side string) {
	r.wicksDetected.WithLabelValues(symbol, side).Inc()
}

// RecordAlertSent counts one delivered alert.
func (r *Recorder) RecordAlertSent(symbol string) {
	r.alertsSent.WithLabelValues(symbol).Inc()
}

// RecordEventPersisted counts one persisted event per backend.
func (r *Recorder) RecordEventPersisted(backend string) {
	r.eventsPersisted.WithLabelValues(backend).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLastPrice records the last price for a symbol.
func (r *Recorder) RecordLastPrice(symbol string, price float64) {
	r.lastPrice.WithLabelValues(symbol).Set(price)
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}

// RecordFeedAge records the staleness of an upstream feed.
func (r *Recorder) RecordFeedAge(feed string, seconds float64) {
	r.feedAge.WithLabelValues(feed).Set(seconds)
}
