package okx

import (
	"encoding/json"
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

func TestParseTrade(t *testing.T) {
	s := NewTradeStream("wss://example", []string{"BTC-USDT"}, testLogger(t)).(*TradeStream)

	raw := json.RawMessage(`{"instId":"BTC-USDT","px":"42000.5","sz":"0.25","side":"buy","ts":"1750000000000"}`)
	tr, ok := s.parseTrade(raw)
	if !ok {
		t.Fatalf("expected parse to succeed")
	}
	if tr.Symbol != "BTC-USDT" || tr.Price != 42000.5 || tr.Size != 0.25 || tr.Side != models.SideBuy {
		t.Fatalf("unexpected trade %+v", tr)
	}
	if !tr.TS.Equal(time.UnixMilli(1750000000000).UTC()) {
		t.Fatalf("unexpected ts %v", tr.TS)
	}
}

func TestParseTradeRejectsInvalid(t *testing.T) {
	s := NewTradeStream("wss://example", []string{"BTC-USDT"}, testLogger(t)).(*TradeStream)

	cases := []string{
		`{"instId":"BTC-USDT","px":"0","sz":"1","side":"buy","ts":"1750000000000"}`,
		`{"instId":"BTC-USDT","px":"100","sz":"-1","side":"buy","ts":"1750000000000"}`,
		`{"instId":"BTC-USDT","px":"100","sz":"1","side":"long","ts":"1750000000000"}`,
		`{"instId":"BTC-USDT","px":"100","sz":"1","side":"sell","ts":"abc"}`,
		`{"instId":"BTC-USDT","px":"nan?","sz":"1","side":"sell","ts":"1750000000000"}`,
	}
	for i, c := range cases {
		if _, ok := s.parseTrade(json.RawMessage(c)); ok {
			t.Fatalf("case %d should be rejected: %s", i, c)
		}
	}
}

func TestParseBook(t *testing.T) {
	s := NewBookStream("wss://example", []string{"BTC-USDT"}, testLogger(t)).(*BookStream)

	raw := json.RawMessage(`{
		"instId":"BTC-USDT",
		"bids":[["42000","1.5","0","3"],["41999","2","0","1"]],
		"asks":[["42001","0.5","0","2"]],
		"ts":"1750000000000"
	}`)
	ob, ok := s.parseBook(raw, "")
	if !ok {
		t.Fatalf("expected parse to succeed")
	}
	if ob.BestBid != 42000 || ob.BestAsk != 42001 {
		t.Fatalf("unexpected best levels %v/%v", ob.BestBid, ob.BestAsk)
	}
	if len(ob.Bids) != 2 || len(ob.Asks) != 1 {
		t.Fatalf("unexpected level counts %d/%d", len(ob.Bids), len(ob.Asks))
	}
}

func TestParseBookSkipsBadLevelsAndEmptySides(t *testing.T) {
	s := NewBookStream("wss://example", []string{"BTC-USDT"}, testLogger(t)).(*BookStream)

	// One malformed bid level is skipped, the snapshot survives.
	raw := json.RawMessage(`{
		"instId":"BTC-USDT",
		"bids":[["bad","1","0","1"],["41999","2","0","1"]],
		"asks":[["42001","0.5","0","2"]],
		"ts":"1750000000000"
	}`)
	ob, ok := s.parseBook(raw, "")
	if !ok || len(ob.Bids) != 1 {
		t.Fatalf("expected snapshot with 1 valid bid, got ok=%v %+v", ok, ob)
	}

	// A fully empty side drops the snapshot.
	empty := json.RawMessage(`{"instId":"BTC-USDT","bids":[],"asks":[["42001","0.5","0","2"]],"ts":"1750000000000"}`)
	if _, ok := s.parseBook(empty, ""); ok {
		t.Fatalf("snapshot with empty side must be dropped")
	}
}

func TestParseBookSymbolFallback(t *testing.T) {
	s := NewBookStream("wss://example", []string{"ETH-USDT"}, testLogger(t)).(*BookStream)

	raw := json.RawMessage(`{"bids":[["3000","1","0","1"]],"asks":[["3001","1","0","1"]],"ts":"1750000000000"}`)
	ob, ok := s.parseBook(raw, "ETH-USDT")
	if !ok || ob.Symbol != "ETH-USDT" {
		t.Fatalf("expected subscription symbol fallback, got ok=%v %+v", ok, ob)
	}
}
