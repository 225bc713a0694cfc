package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"wickengine/internal/domain/models"
	"wickengine/internal/service/bookcache"
	"wickengine/internal/services/analytics"
	"wickengine/internal/services/features"
	"wickengine/pkg/logger"
)

type stubMetrics struct{}

func (stubMetrics) RecordTradeIngested(string)        {}
func (stubMetrics) RecordCandleClosed(string)         {}
func (stubMetrics) RecordWickDetected(string, string) {}
func (stubMetrics) RecordAlertSent(string)            {}
func (stubMetrics) RecordEventPersisted(string)       {}
func (stubMetrics) RecordError(string)                {}
func (stubMetrics) RecordLastPrice(string, float64)   {}
func (stubMetrics) RecordLatency(string, float64)     {}
func (stubMetrics) RecordFeedAge(string, float64)     {}

type stubEventLog struct {
	mu     sync.Mutex
	events []*models.WickEvent
	err    error
}

func (s *stubEventLog) Append(ev *models.WickEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.events = append(s.events, ev)
	return nil
}

func (s *stubEventLog) Close() error { return nil }

func (s *stubEventLog) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events)
}

type stubNotifier struct {
	mu    sync.Mutex
	sends int
	err   error
}

func (s *stubNotifier) SendWickAlert(ctx context.Context, ev *models.WickEvent) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return false, s.err
	}
	s.sends++
	return true, nil
}

func (s *stubNotifier) Close() error { return nil }

type stubMacro struct{ state models.MacroState }

func (s *stubMacro) State() models.MacroState { return s.state }
func (s *stubMacro) LastUpdate() time.Time    { return s.state.LastUpdate }

type stubTradeStream struct {
	connected bool
	trades    <-chan *models.Trade
	errs      <-chan error
}

func (s *stubTradeStream) Connect(context.Context) error   { return nil }
func (s *stubTradeStream) Subscribe(context.Context) error { return nil }
func (s *stubTradeStream) Read(context.Context) (<-chan *models.Trade, <-chan error) {
	return s.trades, s.errs
}
func (s *stubTradeStream) Close() error      { return nil }
func (s *stubTradeStream) IsConnected() bool { return s.connected }

type stubBookStream struct {
	books <-chan *models.OrderBookSnapshot
	errs  <-chan error
}

func (s *stubBookStream) Connect(context.Context) error   { return nil }
func (s *stubBookStream) Subscribe(context.Context) error { return nil }
func (s *stubBookStream) Read(context.Context) (<-chan *models.OrderBookSnapshot, <-chan error) {
	return s.books, s.errs
}
func (s *stubBookStream) Close() error      { return nil }
func (s *stubBookStream) IsConnected() bool { return false }

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New(&logger.Config{Level: "error", Format: "json", Output: "stderr"})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return log
}

func testEngine(t *testing.T, cfg EngineConfig, elog *stubEventLog, notifier *stubNotifier) *Engine {
	t.Helper()
	events := NewEventProcessor(elog, nil, nil, stubMetrics{}, "jsonl")
	return NewEngine(cfg,
		&stubTradeStream{connected: true}, nil,
		bookcache.New(),
		features.NewFusion(),
		analytics.NewScorer(),
		analytics.NewVoidWallDetector(),
		nil,
		&stubMacro{state: models.MacroState{USDTDominance: 5, USDTTrend: "NEUTRAL"}},
		notifier,
		events, stubMetrics{}, testLogger(t))
}

func testEngineStreams(t *testing.T, trades *stubTradeStream, books *stubBookStream) *Engine {
	t.Helper()
	events := NewEventProcessor(&stubEventLog{}, nil, nil, stubMetrics{}, "jsonl")
	return NewEngine(EngineConfig{
		Symbols: []string{"BTC-USDT"}, BarInterval: time.Minute,
		CaptureRatio: 0.05, AlertRatio: 1.5,
	},
		trades, books,
		bookcache.New(),
		features.NewFusion(),
		analytics.NewScorer(),
		analytics.NewVoidWallDetector(),
		nil,
		&stubMacro{},
		&stubNotifier{},
		events, stubMetrics{}, testLogger(t))
}

func feedWickCandle(t *testing.T, e *Engine) {
	t.Helper()
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	ctx := context.Background()
	// Open 100, spike to 104, close 101: upper wick 3, body 1.
	trades := []*models.Trade{
		{TS: base, Symbol: "BTC-USDT", Price: 100, Size: 1, Side: models.SideBuy},
		{TS: base.Add(20 * time.Second), Symbol: "BTC-USDT", Price: 104, Size: 1, Side: models.SideBuy},
		{TS: base.Add(40 * time.Second), Symbol: "BTC-USDT", Price: 101, Size: 1, Side: models.SideSell},
		// Next bucket closes the candle.
		{TS: base.Add(61 * time.Second), Symbol: "BTC-USDT", Price: 101, Size: 1, Side: models.SideBuy},
	}
	for _, tr := range trades {
		if err := e.Process(ctx, tr); err != nil {
			t.Fatalf("process: %v", err)
		}
	}
}

func TestEngineDetectsScoresAndAlerts(t *testing.T) {
	elog := &stubEventLog{}
	notifier := &stubNotifier{}
	e := testEngine(t, EngineConfig{
		Symbols: []string{"BTC-USDT"}, BarInterval: time.Minute,
		CaptureRatio: 0.05, AlertRatio: 1.5,
	}, elog, notifier)

	feedWickCandle(t, e)

	if elog.count() != 1 {
		t.Fatalf("expected 1 persisted event, got %d", elog.count())
	}
	ev := elog.events[0]
	if ev.Symbol != "BTC-USDT" || ev.WickSide != models.WickUpper || ev.Timeframe != "1m" {
		t.Fatalf("unexpected event %+v", ev)
	}
	if ev.Score.MagnetScore <= 0 || ev.Score.Confidence < 50 {
		t.Fatalf("event must be scored, got %+v", ev.Score)
	}
	if ev.Features.WickToBodyRatio != 3 {
		t.Fatalf("expected fused geometry ratio 3, got %v", ev.Features.WickToBodyRatio)
	}
	// Ratio 3 clears the 1.5 alert floor.
	if notifier.sends != 1 {
		t.Fatalf("expected 1 alert, got %d", notifier.sends)
	}
}

func TestEngineCapturesWithoutAlerting(t *testing.T) {
	elog := &stubEventLog{}
	notifier := &stubNotifier{}
	e := testEngine(t, EngineConfig{
		Symbols: []string{"BTC-USDT"}, BarInterval: time.Minute,
		CaptureRatio: 0.05, AlertRatio: 100,
	}, elog, notifier)

	feedWickCandle(t, e)

	if elog.count() != 1 {
		t.Fatalf("capture ratio must still persist the event")
	}
	if notifier.sends != 0 {
		t.Fatalf("ratio below alert floor must not page")
	}
}

func TestEngineRecordsAlertFailure(t *testing.T) {
	elog := &stubEventLog{}
	notifier := &stubNotifier{err: errors.New("webhook down")}
	e := testEngine(t, EngineConfig{
		Symbols: []string{"BTC-USDT"}, BarInterval: time.Minute,
		CaptureRatio: 0.05, AlertRatio: 1.5,
	}, elog, notifier)

	feedWickCandle(t, e)

	st := e.Status()
	if st.LastAlertError != "webhook down" {
		t.Fatalf("alert failure must surface in status, got %q", st.LastAlertError)
	}
	if st.AlertsSent != 0 || st.WicksDetected != 1 {
		t.Fatalf("unexpected counters %+v", st)
	}
}

func TestEngineStatus(t *testing.T) {
	elog := &stubEventLog{}
	e := testEngine(t, EngineConfig{
		Symbols: []string{"BTC-USDT"}, BarInterval: time.Minute,
		CaptureRatio: 0.05, AlertRatio: 1.5,
	}, elog, &stubNotifier{})

	feedWickCandle(t, e)

	st := e.Status()
	if !st.Running {
		t.Fatalf("connected stream must report running")
	}
	if st.WicksDetected != 1 {
		t.Fatalf("expected 1 wick, got %d", st.WicksDetected)
	}
	if _, ok := st.FeedAgeSeconds["trades"]; !ok {
		t.Fatalf("trades feed age must be tracked")
	}
	snap, ok := st.SymbolSnapshots["BTC-USDT"]
	if !ok || snap.LastWickSide != models.WickUpper {
		t.Fatalf("unexpected snapshot %+v", st.SymbolSnapshots)
	}
	if st.USDTDominance != 5 {
		t.Fatalf("macro dominance must flow into status")
	}
}

func TestAnalyzeBookRequiresCachedSnapshot(t *testing.T) {
	e := testEngine(t, EngineConfig{Symbols: []string{"BTC-USDT"}, BarInterval: time.Minute}, &stubEventLog{}, &stubNotifier{})
	if _, err := e.AnalyzeBook("BTC-USDT"); err == nil {
		t.Fatalf("missing book must error")
	}
}

func TestRunMarksFeedsDeadWhenStreamsTerminate(t *testing.T) {
	tradeErrs := make(chan error)
	close(tradeErrs)
	bookErrs := make(chan error, 1)
	bookErrs <- errors.New("reconnect budget exhausted")
	close(bookErrs)

	trades := &stubTradeStream{connected: true, trades: make(chan *models.Trade), errs: tradeErrs}
	books := &stubBookStream{books: make(chan *models.OrderBookSnapshot), errs: bookErrs}
	e := testEngineStreams(t, trades, books)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- e.Run(ctx) }()

	// Dead feeds must show up in status well before the staleness age trips.
	deadline := time.After(2 * time.Second)
	for {
		st := e.Status()
		if containsFeed(st.DeadFeeds, "orderbook") && containsFeed(st.DeadFeeds, "trades") {
			break
		}
		select {
		case <-deadline:
			t.Fatalf("terminated feeds not reported dead, got %v", st.DeadFeeds)
		case <-time.After(10 * time.Millisecond):
		}
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("run: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatalf("run did not stop on cancel")
	}
}

func containsFeed(feeds []string, want string) bool {
	for _, f := range feeds {
		if f == want {
			return true
		}
	}
	return false
}

func TestTimeframeLabel(t *testing.T) {
	cases := map[time.Duration]string{
		time.Minute:      "1m",
		5 * time.Minute:  "5m",
		time.Hour:        "1h",
		30 * time.Second: "30s",
	}
	for d, want := range cases {
		if got := timeframeLabel(d); got != want {
			t.Fatalf("timeframeLabel(%v) = %s, want %s", d, got, want)
		}
	}
}
