package coinalyze

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"wickengine/internal/domain/models"
	"wickengine/internal/service/ratelimit"
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

func TestConvertSymbol(t *testing.T) {
	cases := map[string]string{
		"BTC-USDT":      "BTCUSDT_PERP.A",
		"ETH-USDT-SWAP": "ETHUSDT_PERP.A",
		"DOGE-USDT":     "DOGEUSDT_PERP.A", // fallback guess
	}
	for in, want := range cases {
		if got := convertSymbol(in); got != want {
			t.Fatalf("convertSymbol(%s) = %s, want %s", in, got, want)
		}
	}
}

func TestNextFundingTime(t *testing.T) {
	cases := []struct {
		now  time.Time
		want time.Time
	}{
		{time.Date(2025, 6, 1, 3, 30, 0, 0, time.UTC), time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)},
		{time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC), time.Date(2025, 6, 1, 16, 0, 0, 0, time.UTC)},
		{time.Date(2025, 6, 1, 22, 0, 0, 0, time.UTC), time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)},
	}
	for _, c := range cases {
		if got := nextFundingTime(c.now); !got.Equal(c.want) {
			t.Fatalf("nextFundingTime(%v) = %v, want %v", c.now, got, c.want)
		}
	}
}

func TestFetchOpenInterestDelta(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/open-interest-history" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte(`[{"symbol":"BTCUSDT_PERP.A","history":[
			{"t":1750000000000,"o":100,"h":106,"l":99,"c":105},
			{"t":1750000300000,"o":105,"h":111,"l":104,"c":110}
		]}]`))
	}))
	defer srv.Close()

	c := New(srv.URL, "k", ratelimit.New(), testLogger(t))
	snap, err := c.FetchOpenInterest(context.Background(), "BTC-USDT")
	if err != nil || snap == nil {
		t.Fatalf("fetch: snap=%v err=%v", snap, err)
	}
	// Delta uses the last two candles' closes.
	if snap.OIOpen != 105 || snap.OIClose != 110 || snap.DeltaOI != 5 {
		t.Fatalf("unexpected snapshot %+v", snap)
	}
}

func TestFetchOpenInterestSingleCandleFallback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"symbol":"BTCUSDT_PERP.A","history":[{"t":1750000000000,"o":100,"h":106,"l":99,"c":104}]}]`))
	}))
	defer srv.Close()

	c := New(srv.URL, "k", ratelimit.New(), testLogger(t))
	snap, _ := c.FetchOpenInterest(context.Background(), "BTC-USDT")
	if snap == nil || snap.OIOpen != 100 || snap.OIClose != 104 {
		t.Fatalf("single candle must use its own open/close, got %+v", snap)
	}
}

func TestFetchFundingRatePercentToDecimal(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("api_key"); got != "secret" {
			t.Errorf("expected api_key header, got %q", got)
		}
		w.Write([]byte(`[{"symbol":"BTCUSDT_PERP.A","value":0.01,"predicted":0.02,"update":1750000000}]`))
	}))
	defer srv.Close()

	c := New(srv.URL, "secret", ratelimit.New(), testLogger(t))
	snap, err := c.FetchFundingRate(context.Background(), "BTC-USDT")
	if err != nil || snap == nil {
		t.Fatalf("fetch: snap=%v err=%v", snap, err)
	}
	if snap.FundingRateNow != 0.0001 || snap.FundingRateNext != 0.0002 {
		t.Fatalf("percent must convert to decimal, got %+v", snap)
	}
	if !snap.NextFundingTS.After(snap.TS) {
		t.Fatalf("next funding must be in the future")
	}
}

func TestFetchLiquidationsPerSide(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"symbol":"BTCUSDT_PERP.A","history":[{"t":1750000000000,"l":3.5,"s":0},{"t":1750000300000,"l":1,"s":2}]}]`))
	}))
	defer srv.Close()

	c := New(srv.URL, "k", ratelimit.New(), testLogger(t))
	events, err := c.FetchLiquidations(context.Background(), "BTC-USDT")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(events) != 3 {
		t.Fatalf("expected 3 per-side events, got %d", len(events))
	}
	if events[0].Side != models.LiqLong || events[0].Volume != 3.5 {
		t.Fatalf("unexpected first event %+v", events[0])
	}
}

func TestFetchSoftFailsOnUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := New(srv.URL, "k", ratelimit.New(), testLogger(t))
	if snap, err := c.FetchOpenInterest(context.Background(), "BTC-USDT"); snap != nil || err != nil {
		t.Fatalf("upstream failure must soft-fail, got snap=%v err=%v", snap, err)
	}
	if snap, err := c.FetchFundingRate(context.Background(), "BTC-USDT"); snap != nil || err != nil {
		t.Fatalf("upstream failure must soft-fail, got snap=%v err=%v", snap, err)
	}
	if ev, err := c.FetchLiquidations(context.Background(), "BTC-USDT"); ev != nil || err != nil {
		t.Fatalf("upstream failure must soft-fail, got ev=%v err=%v", ev, err)
	}
}
