package usecase

import (
	"context"
	"fmt"
	"time"

	"wickengine/internal/domain/models"
	drepo "wickengine/internal/domain/repository"
)

// EventProcessor persists scored wick events. The NDJSON log is the primary
// sink and always written; the configured backend adds a secondary sink.
type EventProcessor struct {
	log     drepo.EventLog
	pub     drepo.EventPublisher
	store   drepo.EventStore
	metrics drepo.Metrics
	backend string
}

// NewEventProcessor wires the sinks. pub and store may be nil when the
// backend does not use them.
func NewEventProcessor(
	log drepo.EventLog,
	pub drepo.EventPublisher,
	store drepo.EventStore,
	metrics drepo.Metrics,
	backend string,
) *EventProcessor {
	return &EventProcessor{
		log:     log,
		pub:     pub,
		store:   store,
		metrics: metrics,
		backend: backend,
	}
}

// Process writes the event to every configured sink. A primary-log failure is
// returned; a secondary-sink failure is counted but does not fail the event,
// since the audit trail already holds it.
func (p *EventProcessor) Process(ctx context.Context, ev *models.WickEvent) error {
	start := time.Now()
	if err := p.log.Append(ev); err != nil {
		p.metrics.RecordError("event_log_append")
		return fmt.Errorf("append event: %w", err)
	}
	p.metrics.RecordEventPersisted("jsonl")

	switch p.backend {
	case "kafka":
		if p.pub == nil {
			break
		}
		if err := p.pub.Publish(ctx, ev); err != nil {
			p.metrics.RecordError("event_publish")
		} else {
			p.metrics.RecordEventPersisted("kafka")
		}
	case "clickhouse":
		if p.store == nil {
			break
		}
		if err := p.store.Store(ctx, ev); err != nil {
			p.metrics.RecordError("event_store")
		} else {
			p.metrics.RecordEventPersisted("clickhouse")
		}
	}

	p.metrics.RecordLatency("persist_event", time.Since(start).Seconds())
	return nil
}

// Close closes the owned sinks.
func (p *EventProcessor) Close() {
	if p.log != nil {
		_ = p.log.Close()
	}
	if p.pub != nil {
		_ = p.pub.Close()
	}
	if p.store != nil {
		_ = p.store.Close()
	}
}
