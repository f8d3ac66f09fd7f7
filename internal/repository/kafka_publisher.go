package repository

import (
	"context"
	"fmt"

	"GlassLens/internal/domain/models"
	"GlassLens/internal/domain/repository"
	pkgkafka "GlassLens/pkg/kafka"
)

// batchPublisher is the part of *pkgkafka.Producer the publisher needs.
type batchPublisher interface {
	PublishBatch(ctx context.Context, topic string, messages []pkgkafka.Message) error
	Close() error
}

// KafkaDecisionPublisher implements DecisionPublisher for Kafka. Events are
// keyed by decision so each routing outcome stays ordered on one partition.
type KafkaDecisionPublisher struct {
	producer batchPublisher
	topic    string
}

func NewKafkaDecisionPublisher(producer *pkgkafka.Producer, topic string) repository.DecisionPublisher {
	return &KafkaDecisionPublisher{producer: producer, topic: topic}
}

func (p *KafkaDecisionPublisher) PublishDecision(ctx context.Context, ev *models.DecisionEvent) error {
	return p.PublishBatch(ctx, []*models.DecisionEvent{ev})
}

func (p *KafkaDecisionPublisher) PublishBatch(ctx context.Context, events []*models.DecisionEvent) error {
	if len(events) == 0 {
		return nil
	}
	msgs := make([]pkgkafka.Message, len(events))
	for i, ev := range events {
		msgs[i] = pkgkafka.Message{
			Key:   []byte(ev.Result.Decision),
			Value: ev,
			Headers: map[string]string{
				pkgkafka.TraceHeader: ev.ID,
				"source":             string(ev.Source),
			},
		}
	}
	if err := p.producer.PublishBatch(ctx, p.topic, msgs); err != nil {
		return fmt.Errorf("publish decisions: %w", err)
	}
	return nil
}

func (p *KafkaDecisionPublisher) Close() error {
	return p.producer.Close()
}
