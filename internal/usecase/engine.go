package usecase

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"wickengine/internal/domain/models"
	drepo "wickengine/internal/domain/repository"
	mid "wickengine/internal/middleware"
	"wickengine/internal/service/bookcache"
	"wickengine/internal/services/analytics"
	"wickengine/internal/services/candles"
	"wickengine/internal/services/detector"
	"wickengine/internal/services/features"
	"wickengine/pkg/logger"
)

const (
	// calibrationInterval paces the background void/wall scans that warm the
	// detector's percentile histories.
	calibrationInterval = 5 * time.Second

	// deadFeedAfter marks a feed dead in status output.
	deadFeedAfter = 120 * time.Second
)

// EngineConfig carries the tunables of the detection pipeline.
type EngineConfig struct {
	Symbols      []string
	BarInterval  time.Duration
	CaptureRatio float64 // minimum wick-to-body ratio to persist an event
	AlertRatio   float64 // minimum ratio to page the notifier
	DerivsPoll   time.Duration
}

// Engine is the orchestrator: it consumes both market streams, folds trades
// into candles, detects wicks, fuses features, scores, persists, and alerts.
type Engine struct {
	cfg EngineConfig

	trades   drepo.TradeStream
	booksIn  drepo.BookStream
	books    *bookcache.Cache
	fusion   *features.Fusion
	scorer   *analytics.Scorer
	voidwall *analytics.VoidWallDetector
	derivs   drepo.DerivativesProvider
	macro    drepo.MacroProvider
	notifier drepo.Notifier
	events   *EventProcessor
	metrics  drepo.Metrics
	log      *logger.Logger
	pipe     *mid.RealtimePipeline

	mu   sync.Mutex
	aggs map[string]*candles.Aggregator

	feedMu   sync.Mutex
	feedSeen map[string]time.Time
	feedDead map[string]bool

	snapMu sync.Mutex
	snaps  map[string]models.SymbolSnapshot

	startTime     time.Time
	wicksDetected atomic.Int64
	alertsSent    atomic.Int64
	lastAlertErr  atomic.Value // string
}

func NewEngine(
	cfg EngineConfig,
	trades drepo.TradeStream,
	booksIn drepo.BookStream,
	books *bookcache.Cache,
	fusion *features.Fusion,
	scorer *analytics.Scorer,
	voidwall *analytics.VoidWallDetector,
	derivs drepo.DerivativesProvider,
	macro drepo.MacroProvider,
	notifier drepo.Notifier,
	events *EventProcessor,
	metrics drepo.Metrics,
	log *logger.Logger,
) *Engine {
	e := &Engine{
		cfg:      cfg,
		trades:   trades,
		booksIn:  booksIn,
		books:    books,
		fusion:   fusion,
		scorer:   scorer,
		voidwall: voidwall,
		derivs:   derivs,
		macro:    macro,
		notifier: notifier,
		events:   events,
		metrics:  metrics,
		log:      log,
		aggs:     make(map[string]*candles.Aggregator),
		feedSeen: make(map[string]time.Time),
		feedDead: make(map[string]bool),
		snaps:    make(map[string]models.SymbolSnapshot),
	}
	e.lastAlertErr.Store("")
	for _, s := range cfg.Symbols {
		e.aggs[s] = candles.NewAggregator(cfg.BarInterval)
	}
	return e
}

// SetPipeline routes ingested trades through the validation pipeline. The
// pipeline calls back into Process, so it is attached after construction.
func (e *Engine) SetPipeline(p *mid.RealtimePipeline) { e.pipe = p }

// Run connects both streams and blocks until the context ends or a stream
// exhausts its reconnect budget.
func (e *Engine) Run(ctx context.Context) error {
	e.startTime = time.Now()

	if err := e.trades.Connect(ctx); err != nil {
		return fmt.Errorf("trade stream: %w", err)
	}
	if err := e.trades.Subscribe(ctx); err != nil {
		return fmt.Errorf("trade stream: %w", err)
	}
	if err := e.booksIn.Connect(ctx); err != nil {
		return fmt.Errorf("book stream: %w", err)
	}
	if err := e.booksIn.Subscribe(ctx); err != nil {
		return fmt.Errorf("book stream: %w", err)
	}

	tradeCh, tradeErrs := e.trades.Read(ctx)
	bookCh, bookErrs := e.booksIn.Read(ctx)

	go e.pollDerivatives(ctx)
	go e.consumeBooks(ctx, bookCh)
	if e.pipe != nil {
		e.pipe.Start(ctx)
		defer e.pipe.Stop()
	}

	e.log.Info("engine started",
		logger.Strings("symbols", e.cfg.Symbols),
		logger.Duration("bar_interval", e.cfg.BarInterval))

	for {
		select {
		case <-ctx.Done():
			return nil
		case err, ok := <-tradeErrs:
			if !ok {
				// A nil channel never fires; drop the closed arm from the select.
				tradeErrs = nil
				e.markFeedDead("trades")
				e.log.Warn("trade stream terminated")
				continue
			}
			if err != nil {
				e.metrics.RecordError("trade_stream")
				return fmt.Errorf("trade stream failed: %w", err)
			}
		case err, ok := <-bookErrs:
			if !ok {
				bookErrs = nil
				e.markFeedDead("orderbook")
				e.log.Warn("book stream terminated")
				continue
			}
			if err != nil {
				e.metrics.RecordError("book_stream")
				e.log.Error("book stream failed", logger.Error(err))
			}
		case t, ok := <-tradeCh:
			if !ok {
				return nil
			}
			if t == nil {
				continue
			}
			if err := e.ingest(ctx, t); err != nil {
				e.log.Warn("trade rejected", logger.Error(err))
			}
		}
	}
}

func (e *Engine) ingest(ctx context.Context, t *models.Trade) error {
	if e.pipe != nil {
		return e.pipe.Process(ctx, t)
	}
	return e.Process(ctx, t)
}

// Process implements middleware.Proc: it ingests one validated trade.
func (e *Engine) Process(ctx context.Context, t *models.Trade) error {
	e.markFeed("trades")
	e.metrics.RecordTradeIngested(t.Symbol)
	e.metrics.RecordLastPrice(t.Symbol, t.Price)

	e.mu.Lock()
	agg, ok := e.aggs[t.Symbol]
	if !ok {
		agg = candles.NewAggregator(e.cfg.BarInterval)
		e.aggs[t.Symbol] = agg
	}
	closed := agg.Process(t)
	e.mu.Unlock()

	if closed != nil {
		e.onCandleClosed(ctx, closed)
	}
	return nil
}

func (e *Engine) onCandleClosed(ctx context.Context, c *models.Candle) {
	e.metrics.RecordCandleClosed(c.Symbol)
	for _, w := range detector.DetectWicks(c, e.cfg.CaptureRatio) {
		wick := w
		e.onWick(ctx, &wick)
	}
}

func (e *Engine) onWick(ctx context.Context, w *models.WickOccurrence) {
	start := time.Now()
	c := w.Candle

	book := e.books.Get(c.Symbol)
	feats := e.fusion.Compute(w, book, e.macro.State())
	score := e.scorer.Score(&feats)

	ev := &models.WickEvent{
		TS:        c.EndTS,
		Symbol:    c.Symbol,
		Timeframe: timeframeLabel(e.cfg.BarInterval),
		WickSide:  w.Side,
		WickHigh:  w.High,
		WickLow:   w.Low,
		Features:  feats,
		Score:     score,
		OrderBook: models.EmbedBook(book),
	}

	e.wicksDetected.Add(1)
	e.metrics.RecordWickDetected(c.Symbol, string(w.Side))
	e.metrics.RecordLatency("wick_to_score", time.Since(start).Seconds())

	if err := e.events.Process(ctx, ev); err != nil {
		e.log.Error("event persist failed",
			logger.String("symbol", c.Symbol), logger.Error(err))
	}
	e.updateSnapshot(ev)

	if w.Ratio >= e.cfg.AlertRatio {
		sent, err := e.notifier.SendWickAlert(ctx, ev)
		if err != nil {
			e.lastAlertErr.Store(err.Error())
			e.metrics.RecordError("alert")
		}
		if sent {
			e.alertsSent.Add(1)
			e.metrics.RecordAlertSent(c.Symbol)
		}
	}
}

func (e *Engine) consumeBooks(ctx context.Context, bookCh <-chan *models.OrderBookSnapshot) {
	lastCalib := make(map[string]time.Time)
	for {
		select {
		case <-ctx.Done():
			return
		case ob, ok := <-bookCh:
			if !ok {
				return
			}
			if ob == nil {
				continue
			}
			e.books.Put(ob)
			e.markFeed("orderbook")

			// Warm the void/wall percentile histories off the hot path.
			if time.Since(lastCalib[ob.Symbol]) >= calibrationInterval {
				lastCalib[ob.Symbol] = time.Now()
				_ = e.voidwall.Analyze(ob)
			}
		}
	}
}

func (e *Engine) pollDerivatives(ctx context.Context) {
	interval := e.cfg.DerivsPoll
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.fetchDerivatives(ctx)
		}
	}
}

func (e *Engine) fetchDerivatives(ctx context.Context) {
	var updated bool
	for _, symbol := range e.cfg.Symbols {
		if oi, err := e.derivs.FetchOpenInterest(ctx, symbol); err == nil && oi != nil {
			e.fusion.Derivs.RegisterOI(*oi)
			updated = true
		}
		if fr, err := e.derivs.FetchFundingRate(ctx, symbol); err == nil && fr != nil {
			e.fusion.Derivs.RegisterFunding(*fr)
			updated = true
		}
		if liqs, err := e.derivs.FetchLiquidations(ctx, symbol); err == nil {
			for _, liq := range liqs {
				e.fusion.Derivs.RegisterLiquidation(liq)
			}
			if len(liqs) > 0 {
				updated = true
			}
		}
	}
	if updated {
		e.markFeed("derivs")
	}
}

func (e *Engine) markFeed(name string) {
	e.feedMu.Lock()
	e.feedSeen[name] = time.Now()
	delete(e.feedDead, name)
	e.feedMu.Unlock()
}

// markFeedDead flags a feed whose stream has terminated for good, so status
// output reports it dead immediately instead of waiting out the staleness age.
func (e *Engine) markFeedDead(name string) {
	e.feedMu.Lock()
	e.feedDead[name] = true
	e.feedMu.Unlock()
}

func (e *Engine) updateSnapshot(ev *models.WickEvent) {
	e.snapMu.Lock()
	e.snaps[ev.Symbol] = models.SymbolSnapshot{
		LastCandleTS: ev.TS,
		LastWickSide: ev.WickSide,
		LastScore:    ev.Score.MagnetScore,
	}
	e.snapMu.Unlock()
}

// Status assembles the current engine status snapshot.
func (e *Engine) Status() models.EngineStatus {
	now := time.Now()

	e.feedMu.Lock()
	ages := make(map[string]int64, len(e.feedSeen)+1)
	for feed, seen := range e.feedSeen {
		ages[feed] = int64(now.Sub(seen).Seconds())
	}
	deadSet := make(map[string]bool, len(e.feedDead))
	for feed := range e.feedDead {
		deadSet[feed] = true
	}
	e.feedMu.Unlock()
	if last := e.macro.LastUpdate(); !last.IsZero() {
		ages["macro"] = int64(now.Sub(last).Seconds())
	}

	for feed, age := range ages {
		e.metrics.RecordFeedAge(feed, float64(age))
		if age > int64(deadFeedAfter.Seconds()) {
			deadSet[feed] = true
		}
	}
	var dead []string
	for feed := range deadSet {
		dead = append(dead, feed)
	}
	sort.Strings(dead)

	e.mu.Lock()
	var dropped int64
	for _, agg := range e.aggs {
		dropped += agg.Dropped()
	}
	e.mu.Unlock()

	e.snapMu.Lock()
	snaps := make(map[string]models.SymbolSnapshot, len(e.snaps))
	for k, v := range e.snaps {
		snaps[k] = v
	}
	e.snapMu.Unlock()

	return models.EngineStatus{
		Timestamp:       now.UTC(),
		UptimeSeconds:   int64(now.Sub(e.startTime).Seconds()),
		Running:         e.trades.IsConnected(),
		WicksDetected:   e.wicksDetected.Load(),
		AlertsSent:      e.alertsSent.Load(),
		DroppedTrades:   dropped,
		USDTDominance:   e.macro.State().USDTDominance,
		AlertMinRatio:   e.cfg.AlertRatio,
		LastAlertError:  e.lastAlertErr.Load().(string),
		FeedAgeSeconds:  ages,
		DeadFeeds:       dead,
		SymbolSnapshots: snaps,
	}
}

// AnalyzeBook runs an on-demand void/wall scan against the cached book.
func (e *Engine) AnalyzeBook(symbol string) (models.BookAnalysis, error) {
	ob := e.books.Get(symbol)
	if ob == nil {
		return models.BookAnalysis{}, fmt.Errorf("no order book cached for %s", symbol)
	}
	return e.voidwall.Analyze(ob), nil
}

// Shutdown closes the streams and flushes the sinks.
func (e *Engine) Shutdown(ctx context.Context) error {
	_ = e.trades.Close()
	_ = e.booksIn.Close()
	_ = e.notifier.Close()
	_ = e.derivs.Close()
	e.events.Close()
	e.log.Info("engine stopped",
		logger.Int64("wicks_detected", e.wicksDetected.Load()),
		logger.Int64("alerts_sent", e.alertsSent.Load()))
	return nil
}

func timeframeLabel(d time.Duration) string {
	switch {
	case d >= time.Hour && d%time.Hour == 0:
		return fmt.Sprintf("%dh", int(d.Hours()))
	case d >= time.Minute && d%time.Minute == 0:
		return fmt.Sprintf("%dm", int(d.Minutes()))
	default:
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
}
