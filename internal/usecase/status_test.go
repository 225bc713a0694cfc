package usecase

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"wickengine/internal/domain/models"
)

func TestStatusWriterWritesValidJSON(t *testing.T) {
	e := testEngine(t, EngineConfig{
		Symbols: []string{"BTC-USDT"}, BarInterval: time.Minute,
		CaptureRatio: 0.05, AlertRatio: 1.5,
	}, &stubEventLog{}, &stubNotifier{})
	feedWickCandle(t, e)

	path := filepath.Join(t.TempDir(), "status", "engine.json")
	w := NewStatusWriter(e, path, time.Second, testLogger(t))
	if err := w.write(); err != nil {
		t.Fatalf("write: %v", err)
	}

	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read status: %v", err)
	}
	var st models.EngineStatus
	if err := json.Unmarshal(b, &st); err != nil {
		t.Fatalf("status not valid JSON: %v", err)
	}
	if st.WicksDetected != 1 {
		t.Fatalf("unexpected status %+v", st)
	}

	// No temp residue after the rename.
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Fatalf("temp file must not survive the write")
	}
}
