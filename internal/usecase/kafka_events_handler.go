package usecase

import (
	"context"
	"encoding/json"
	"time"

	"wickengine/internal/domain/models"
	domrepo "wickengine/internal/domain/repository"
	pkgkafka "wickengine/pkg/kafka"
)

// KafkaEventsHandler consumes scored wick events from the events topic and
// archives them in the event store. It runs in a separate consumer process so
// archival lag never backpressures the detection pipeline.
type KafkaEventsHandler struct {
	topic   string
	store   domrepo.EventStore
	metrics domrepo.Metrics
}

func NewKafkaEventsHandler(topic string, store domrepo.EventStore, metrics domrepo.Metrics) *KafkaEventsHandler {
	return &KafkaEventsHandler{topic: topic, store: store, metrics: metrics}
}

func (h *KafkaEventsHandler) Topic() string { return h.topic }

func (h *KafkaEventsHandler) Handle(ctx context.Context, b []byte) error {
	var ev models.WickEvent
	if err := json.Unmarshal(b, &ev); err != nil {
		h.metrics.RecordError("consumer_unmarshal")
		return err
	}
	// E2E latency from wick close to archival.
	h.metrics.RecordLatency("archive_e2e_seconds", time.Since(ev.TS).Seconds())

	start := time.Now()
	err := h.store.Store(ctx, &ev)
	h.metrics.RecordLatency("ch_insert_seconds", time.Since(start).Seconds())
	if err != nil {
		h.metrics.RecordError("consumer_store")
		return err
	}
	h.metrics.RecordEventPersisted("clickhouse")
	return nil
}

var _ pkgkafka.MessageHandler = (*KafkaEventsHandler)(nil)
