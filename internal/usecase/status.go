package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"wickengine/pkg/logger"
)

const defaultStatusInterval = 5 * time.Second

// StatusWriter periodically serializes the engine status to a JSON file.
// Writes go through a temp file and rename, so readers never observe a
// partial document.
type StatusWriter struct {
	engine   *Engine
	path     string
	interval time.Duration
	log      *logger.Logger
}

func NewStatusWriter(engine *Engine, path string, interval time.Duration, log *logger.Logger) *StatusWriter {
	if interval <= 0 {
		interval = defaultStatusInterval
	}
	return &StatusWriter{engine: engine, path: path, interval: interval, log: log}
}

// Run writes the status file until the context ends, then writes one final
// snapshot so the file reflects the shutdown.
func (w *StatusWriter) Run(ctx context.Context) {
	if w.path == "" {
		return
	}
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			if err := w.write(); err != nil {
				w.log.Warn("final status write failed", logger.Error(err))
			}
			return
		case <-ticker.C:
			if err := w.write(); err != nil {
				w.log.Warn("status write failed", logger.Error(err))
			}
		}
	}
}

func (w *StatusWriter) write() error {
	status := w.engine.Status()
	b, err := json.MarshalIndent(status, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal status: %w", err)
	}

	dir := filepath.Dir(w.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("status dir: %w", err)
	}
	tmp := w.path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return fmt.Errorf("write status tmp: %w", err)
	}
	if err := os.Rename(tmp, w.path); err != nil {
		return fmt.Errorf("rename status: %w", err)
	}
	return nil
}
