package repository

import (
	"context"

	"wickengine/internal/domain/models"
	drepo "wickengine/internal/domain/repository"
	pkgkafka "wickengine/pkg/kafka"
)

// KafkaEventPublisher pushes scored wick events to a Kafka topic, keyed by
// symbol so per-symbol ordering survives partitioning.
type KafkaEventPublisher struct {
	producer *pkgkafka.Producer
	topic    string
}

func NewKafkaEventPublisher(producer *pkgkafka.Producer, topic string) drepo.EventPublisher {
	return &KafkaEventPublisher{producer: producer, topic: topic}
}

func (p *KafkaEventPublisher) Publish(ctx context.Context, ev *models.WickEvent) error {
	return p.producer.Publish(ctx, p.topic, []byte(ev.Symbol), ev)
}

func (p *KafkaEventPublisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}
