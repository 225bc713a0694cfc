package repository

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"wickengine/internal/domain/models"
	drepo "wickengine/internal/domain/repository"

	"gopkg.in/natefinch/lumberjack.v2"
)

// ErrLogClosed is returned by Append after Close.
var ErrLogClosed = errors.New("event log closed")

// EventEncodeError wraps a serialization failure for one event.
type EventEncodeError struct {
	Symbol string
	Err    error
}

func (e *EventEncodeError) Error() string {
	return fmt.Sprintf("encode event for %s: %v", e.Symbol, e.Err)
}

func (e *EventEncodeError) Unwrap() error { return e.Err }

// EventWriteError wraps an I/O failure on the underlying log file.
type EventWriteError struct {
	Path string
	Err  error
}

func (e *EventWriteError) Error() string {
	return fmt.Sprintf("write event log %s: %v", e.Path, e.Err)
}

func (e *EventWriteError) Unwrap() error { return e.Err }

// JSONLEventLog appends scored events to an NDJSON file, one JSON object per
// line, with size-based rotation. This is the primary audit trail; downstream
// consumers tail it.
type JSONLEventLog struct {
	mu     sync.Mutex
	out    *lumberjack.Logger
	closed bool
}

// JSONLConfig controls the log location and rotation policy.
type JSONLConfig struct {
	Path       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

func NewJSONLEventLog(cfg JSONLConfig) drepo.EventLog {
	if cfg.MaxSizeMB <= 0 {
		cfg.MaxSizeMB = 100
	}
	return &JSONLEventLog{
		out: &lumberjack.Logger{
			Filename:   cfg.Path,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
			Compress:   cfg.Compress,
		},
	}
}

// Append writes one event as a single line. Failures surface as typed errors;
// a partially written line is possible only on hard I/O failure, and readers
// must skip lines that do not parse.
func (l *JSONLEventLog) Append(ev *models.WickEvent) error {
	b, err := json.Marshal(ev)
	if err != nil {
		return &EventEncodeError{Symbol: ev.Symbol, Err: err}
	}
	b = append(b, '\n')

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return ErrLogClosed
	}
	if _, err := l.out.Write(b); err != nil {
		return &EventWriteError{Path: l.out.Filename, Err: err}
	}
	return nil
}

func (l *JSONLEventLog) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil
	}
	l.closed = true
	return l.out.Close()
}
