package repository

import (
	"context"

	"SigRoute/internal/domain/models"
	"SigRoute/internal/domain/repository"
	pkgkafka "SigRoute/pkg/kafka"
)

// KafkaNotifier forwards chain transitions to a Kafka topic, keyed by
// chain id so a consumer sees one chain's transitions in order.
type KafkaNotifier struct {
	producer *pkgkafka.Producer
	topic    string
}

// NewKafkaNotifier creates a Kafka transition notifier.
func NewKafkaNotifier(producer *pkgkafka.Producer, topic string) repository.Notifier {
	return &KafkaNotifier{producer: producer, topic: topic}
}

func (n *KafkaNotifier) Notify(ctx context.Context, tr models.ChainTransition) error {
	return n.producer.Publish(ctx, n.topic, []byte(tr.ChainID), tr)
}

func (n *KafkaNotifier) Close() error {
	if n.producer != nil {
		return n.producer.Close()
	}
	return nil
}

// LogPublisher adapts the Kafka producer to the logger's aggregated-log
// Publisher interface.
type LogPublisher struct {
	producer *pkgkafka.Producer
}

func NewLogPublisher(producer *pkgkafka.Producer) *LogPublisher {
	return &LogPublisher{producer: producer}
}

func (p *LogPublisher) PublishMessage(ctx context.Context, topic string, payload interface{}) error {
	return p.producer.Publish(ctx, topic, nil, payload)
}
