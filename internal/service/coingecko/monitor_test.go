package coingecko

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

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

func TestTrendClassification(t *testing.T) {
	m := NewMonitor("", "", time.Minute, testLogger(t))
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	if trend := m.updateTrend(base, 5.0); trend != "NEUTRAL" {
		t.Fatalf("single observation must be neutral, got %s", trend)
	}
	// +2% over the window.
	if trend := m.updateTrend(base.Add(10*time.Minute), 5.1); trend != "UP" {
		t.Fatalf("expected UP, got %s", trend)
	}
	// Back below the start by more than 1%.
	if trend := m.updateTrend(base.Add(20*time.Minute), 4.9); trend != "DOWN" {
		t.Fatalf("expected DOWN, got %s", trend)
	}
}

func TestTrendPrunesOldObservations(t *testing.T) {
	m := NewMonitor("", "", time.Minute, testLogger(t))
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	m.updateTrend(base, 4.0)
	// Two hours later the old point is gone; only one survivor means neutral.
	if trend := m.updateTrend(base.Add(2*time.Hour), 5.0); trend != "NEUTRAL" {
		t.Fatalf("stale observations must not drive the trend, got %s", trend)
	}
}

func TestPollUpdatesState(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/global" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte(`{"data":{"market_cap_percentage":{"usdt":5.2,"btc":52.8}}}`))
	}))
	defer srv.Close()

	m := NewMonitor(srv.URL, "", time.Minute, testLogger(t))
	m.poll(context.Background())

	st := m.State()
	if st.USDTDominance != 5.2 || st.BTCDominance != 52.8 {
		t.Fatalf("unexpected state %+v", st)
	}
	if st.LastUpdate.IsZero() {
		t.Fatalf("last update must be set after a successful poll")
	}
}

func TestPollFailureKeepsState(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	m := NewMonitor(srv.URL, "", time.Minute, testLogger(t))
	m.poll(context.Background())
	if st := m.State(); st.USDTTrend != "NEUTRAL" || !st.LastUpdate.IsZero() {
		t.Fatalf("failed poll must keep previous state, got %+v", st)
	}
}
