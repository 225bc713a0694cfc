package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"wickengine/internal/domain/models"
	drepo "wickengine/internal/domain/repository"
)

// ClickHouseEventStore archives scored wick events in ClickHouse. The feature
// vector and embedded book are stored as JSON strings so schema evolution on
// the producer side never requires a migration.
type ClickHouseEventStore struct {
	db    *sql.DB
	table string
}

func NewClickHouseEventStore(db *sql.DB, table string) drepo.EventStore {
	return &ClickHouseEventStore{db: db, table: table}
}

// Init creates the events table if it does not exist.
func (s *ClickHouseEventStore) Init(ctx context.Context) error {
	q := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			ts            DateTime64(3, 'UTC'),
			symbol        LowCardinality(String),
			timeframe     LowCardinality(String),
			wick_side     LowCardinality(String),
			wick_high     Float64,
			wick_low      Float64,
			magnet_score  Float64,
			confidence    Float64,
			features      String,
			orderbook     String
		)
		ENGINE = MergeTree()
		PARTITION BY toYYYYMM(ts)
		ORDER BY (symbol, ts)
		TTL toDateTime(ts) + INTERVAL 90 DAY`, s.table)
	if _, err := s.db.ExecContext(ctx, q); err != nil {
		return fmt.Errorf("create events table: %w", err)
	}
	return nil
}

func (s *ClickHouseEventStore) Store(ctx context.Context, ev *models.WickEvent) error {
	features, err := json.Marshal(ev.Features)
	if err != nil {
		return &EventEncodeError{Symbol: ev.Symbol, Err: err}
	}
	var book []byte
	if ev.OrderBook != nil {
		book, err = json.Marshal(ev.OrderBook)
		if err != nil {
			return &EventEncodeError{Symbol: ev.Symbol, Err: err}
		}
	}

	q := fmt.Sprintf(`INSERT INTO %s
		(ts, symbol, timeframe, wick_side, wick_high, wick_low, magnet_score, confidence, features, orderbook)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, s.table)
	_, err = s.db.ExecContext(ctx, q,
		ev.TS,
		ev.Symbol,
		ev.Timeframe,
		string(ev.WickSide),
		ev.WickHigh,
		ev.WickLow,
		ev.Score.MagnetScore,
		ev.Score.Confidence,
		string(features),
		string(book),
	)
	return err
}

// QueryRecent returns the newest events for a symbol, newest first.
func (s *ClickHouseEventStore) QueryRecent(ctx context.Context, symbol string, limit int) ([]*models.WickEvent, error) {
	if limit <= 0 {
		limit = 50
	}
	q := fmt.Sprintf(`SELECT ts, symbol, timeframe, wick_side, wick_high, wick_low,
		magnet_score, confidence, features, orderbook
		FROM %s WHERE symbol = ? ORDER BY ts DESC LIMIT ?`, s.table)
	rows, err := s.db.QueryContext(ctx, q, symbol, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []*models.WickEvent
	for rows.Next() {
		var (
			ev       models.WickEvent
			ts       time.Time
			side     string
			features string
			book     string
		)
		if err := rows.Scan(&ts, &ev.Symbol, &ev.Timeframe, &side,
			&ev.WickHigh, &ev.WickLow,
			&ev.Score.MagnetScore, &ev.Score.Confidence,
			&features, &book); err != nil {
			return nil, err
		}
		ev.TS = ts
		ev.WickSide = models.WickSide(side)
		if features != "" {
			if err := json.Unmarshal([]byte(features), &ev.Features); err != nil {
				return nil, fmt.Errorf("decode features for %s: %w", ev.Symbol, err)
			}
		}
		if book != "" {
			eb := &models.EmbeddedBook{}
			if err := json.Unmarshal([]byte(book), eb); err == nil {
				ev.OrderBook = eb
			}
		}
		events = append(events, &ev)
	}
	return events, rows.Err()
}

func (s *ClickHouseEventStore) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *ClickHouseEventStore) Close() error {
	return nil // pool owned by pkg client
}
