package repository

import (
	"bufio"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"wickengine/internal/domain/models"
)

func testEvent(symbol string) *models.WickEvent {
	return &models.WickEvent{
		TS:        time.Date(2025, 6, 1, 12, 1, 0, 0, time.UTC),
		Symbol:    symbol,
		Timeframe: "1m",
		WickSide:  models.WickUpper,
		WickHigh:  104,
		WickLow:   100,
		Score:     models.ScoreResult{MagnetScore: 60, Confidence: 70, Integrity: 1},
	}
}

func TestAppendWritesOneLinePerEvent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.jsonl")
	log := NewJSONLEventLog(JSONLConfig{Path: path})
	defer log.Close()

	if err := log.Append(testEvent("BTC-USDT")); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := log.Append(testEvent("ETH-USDT")); err != nil {
		t.Fatalf("append: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()

	var lines int
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var ev models.WickEvent
		if err := json.Unmarshal(sc.Bytes(), &ev); err != nil {
			t.Fatalf("line %d not valid JSON: %v", lines, err)
		}
		lines++
	}
	if lines != 2 {
		t.Fatalf("expected 2 lines, got %d", lines)
	}
}

func TestAppendAfterClose(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.jsonl")
	log := NewJSONLEventLog(JSONLConfig{Path: path})
	if err := log.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := log.Append(testEvent("BTC-USDT")); !errors.Is(err, ErrLogClosed) {
		t.Fatalf("expected ErrLogClosed, got %v", err)
	}
	// Close is idempotent.
	if err := log.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
}

func TestEncodeErrorCarriesSymbol(t *testing.T) {
	ev := testEvent("BTC-USDT")
	ev.Score.MagnetScore = inf()
	path := filepath.Join(t.TempDir(), "events.jsonl")
	log := NewJSONLEventLog(JSONLConfig{Path: path})
	defer log.Close()

	err := log.Append(ev)
	var encErr *EventEncodeError
	if !errors.As(err, &encErr) {
		t.Fatalf("expected EventEncodeError, got %v", err)
	}
	if encErr.Symbol != "BTC-USDT" {
		t.Fatalf("expected symbol on error, got %q", encErr.Symbol)
	}
}

// inf returns a value encoding/json rejects.
func inf() float64 {
	zero := 0.0
	return 1 / zero
}
