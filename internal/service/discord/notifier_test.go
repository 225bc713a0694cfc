package discord

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"wickengine/internal/domain/models"
	"wickengine/pkg/logger"
)

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New(&logger.Config{Level: "error", Format: "json", Output: "stderr"})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return log
}

func wickEvent(symbol string, side models.WickSide) *models.WickEvent {
	return &models.WickEvent{
		TS: time.Now(), Symbol: symbol, Timeframe: "1m", WickSide: side,
		WickHigh: 101, WickLow: 99,
	}
}

func TestSendWickAlert(t *testing.T) {
	var hits int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&hits, 1)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	n := New(Config{Webhooks: map[string]string{"general": srv.URL}}, testLogger(t)).(*Notifier)
	sent, err := n.SendWickAlert(context.Background(), wickEvent("BTC-USDT", models.WickUpper))
	if err != nil || !sent {
		t.Fatalf("expected sent, got sent=%v err=%v", sent, err)
	}
	if atomic.LoadInt64(&hits) != 1 {
		t.Fatalf("expected 1 webhook hit, got %d", hits)
	}
}

func TestCooldownSuppressesRepeats(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	n := New(Config{Webhooks: map[string]string{"general": srv.URL}, Cooldown: 300 * time.Second}, testLogger(t)).(*Notifier)
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	n.now = func() time.Time { return now }

	if sent, _ := n.SendWickAlert(context.Background(), wickEvent("BTC-USDT", models.WickUpper)); !sent {
		t.Fatalf("first alert must send")
	}
	if sent, err := n.SendWickAlert(context.Background(), wickEvent("BTC-USDT", models.WickUpper)); sent || err != nil {
		t.Fatalf("repeat inside cooldown must suppress, got sent=%v err=%v", sent, err)
	}

	// The other wick side cools down independently.
	if sent, _ := n.SendWickAlert(context.Background(), wickEvent("BTC-USDT", models.WickLower)); !sent {
		t.Fatalf("other side must have its own cooldown")
	}

	now = now.Add(301 * time.Second)
	if sent, _ := n.SendWickAlert(context.Background(), wickEvent("BTC-USDT", models.WickUpper)); !sent {
		t.Fatalf("alert after cooldown must send")
	}
}

func TestChannelRouting(t *testing.T) {
	var btcHits, ethHits int64
	btcSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&btcHits, 1)
	}))
	defer btcSrv.Close()
	ethSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&ethHits, 1)
	}))
	defer ethSrv.Close()

	n := New(Config{Webhooks: map[string]string{"btc": btcSrv.URL, "eth": ethSrv.URL}}, testLogger(t)).(*Notifier)
	if _, err := n.SendWickAlert(context.Background(), wickEvent("BTC-USDT", models.WickUpper)); err != nil {
		t.Fatalf("send: %v", err)
	}
	if atomic.LoadInt64(&btcHits) != 1 || atomic.LoadInt64(&ethHits) != 0 {
		t.Fatalf("symbol must route only to matching channels, btc=%d eth=%d", btcHits, ethHits)
	}
}

func TestSendFailureReturnsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	n := New(Config{Webhooks: map[string]string{"general": srv.URL}}, testLogger(t)).(*Notifier)
	sent, err := n.SendWickAlert(context.Background(), wickEvent("BTC-USDT", models.WickUpper))
	if sent || err == nil {
		t.Fatalf("expected failure, got sent=%v err=%v", sent, err)
	}
}
