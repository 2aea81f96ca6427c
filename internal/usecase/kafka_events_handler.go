package usecase

import (
	"context"
	"encoding/json"
	"time"

	"SigRoute/internal/domain/models"
	domrepo "SigRoute/internal/domain/repository"
	pkgkafka "SigRoute/pkg/kafka"
)

// EventSink accepts validated raw events, typically the ingest pipeline.
type EventSink interface {
	Process(ctx context.Context, ev *models.RawEvent) error
}

// KafkaEventsHandler consumes raw classified events from Kafka and feeds
// them into the routing pipeline.
type KafkaEventsHandler struct {
	topic   string
	sink    EventSink
	metrics domrepo.Metrics
}

func NewKafkaEventsHandler(topic string, sink EventSink, metrics domrepo.Metrics) *KafkaEventsHandler {
	return &KafkaEventsHandler{topic: topic, sink: sink, metrics: metrics}
}

func (h *KafkaEventsHandler) Topic() string { return h.topic }

// incoming message schema: {category, origin_id, t}
func (h *KafkaEventsHandler) Handle(ctx context.Context, b []byte) error {
	var m models.RawEvent
	if err := json.Unmarshal(b, &m); err != nil {
		h.metrics.RecordError("consumer_unmarshal")
		return err
	}
	if m.Timestamp > 1e11 { // ms
		m.Timestamp = m.Timestamp / 1000
	}
	if m.Timestamp > 0 {
		h.metrics.RecordLatency("ingest_e2e_seconds", time.Since(time.Unix(m.Timestamp, 0)).Seconds())
	}
	return h.sink.Process(ctx, &m)
}

var _ pkgkafka.MessageHandler = (*KafkaEventsHandler)(nil)

// KafkaChainEventsHandler consumes chain telemetry (bot responses,
// external execution confirmations) and records it on the ledger.
// Events for unknown chains are dropped by the ledger.
type KafkaChainEventsHandler struct {
	topic   string
	ledger  AttributionWriter
	metrics domrepo.Metrics
}

func NewKafkaChainEventsHandler(topic string, ledger AttributionWriter, metrics domrepo.Metrics) *KafkaChainEventsHandler {
	return &KafkaChainEventsHandler{topic: topic, ledger: ledger, metrics: metrics}
}

func (h *KafkaChainEventsHandler) Topic() string { return h.topic }

// incoming message schema: {chain_id, kind, execution_ref, t}
func (h *KafkaChainEventsHandler) Handle(ctx context.Context, b []byte) error {
	var m struct {
		ChainID      string `json:"chain_id"`
		Kind         string `json:"kind"`
		ExecutionRef string `json:"execution_ref"`
		T            int64  `json:"t"`
	}
	if err := json.Unmarshal(b, &m); err != nil {
		h.metrics.RecordError("consumer_unmarshal")
		return err
	}
	ts := time.Now()
	if m.T > 0 {
		if m.T > 1e11 {
			m.T = m.T / 1000
		}
		ts = time.Unix(m.T, 0)
	}
	h.ledger.RecordEvent(m.ChainID, models.ChainEvent{
		Kind:         models.ChainEventKind(m.Kind),
		Timestamp:    ts,
		ExecutionRef: m.ExecutionRef,
	})
	return nil
}

var _ pkgkafka.MessageHandler = (*KafkaChainEventsHandler)(nil)
