package producers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/segmentio/kafka-go"

	"github.com/dinero-ledger/internal/config"
)

// TopicProducer writes JSON messages to a single Kafka topic.
type TopicProducer struct {
	logger *slog.Logger
	writer KafkaWriter
	topic  string
}

// NewEntryRequestProducer publishes candidate entries for the entry
// processor. Writes are async; the API only needs the hand-off.
func NewEntryRequestProducer(ctx context.Context, logger *slog.Logger, cfg *config.KafkaConfig) (*TopicProducer, error) {
	return newTopicProducer(logger, cfg, cfg.EntryRequestTopic, true)
}

// NewLedgerEventProducer publishes outbox events. Writes are synchronous
// and acknowledged by every replica so the poller only marks a message
// processed once Kafka holds it.
func NewLedgerEventProducer(ctx context.Context, logger *slog.Logger, cfg *config.KafkaConfig) (*TopicProducer, error) {
	return newTopicProducer(logger, cfg, cfg.LedgerEventTopic, false)
}

func newTopicProducer(logger *slog.Logger, cfg *config.KafkaConfig, topic string, async bool) (*TopicProducer, error) {
	if topic == "" {
		return nil, fmt.Errorf("kafka topic is not configured")
	}

	conn, err := kafka.Dial("tcp", cfg.Brokers)
	if err != nil {
		return nil, fmt.Errorf("failed to dial kafka for topic %s: %w", topic, err)
	}
	defer conn.Close()

	if err := createKafkaTopicIfNotExists(conn, topic, cfg.NumPartitions, cfg.ReplicationFactor, logger); err != nil {
		return nil, fmt.Errorf("failed to ensure topic %s exists: %w", topic, err)
	}

	acks := kafka.RequireAll
	if async {
		acks = kafka.RequireOne
	}
	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers),
		Topic:        topic,
		Balancer:     &kafka.Hash{}, // same key, same partition
		RequiredAcks: acks,
		Async:        async,
		WriteTimeout: cfg.MaxWait,
		Completion: func(messages []kafka.Message, err error) {
			if err != nil {
				logger.Error("Failed to write messages", "topic", topic, "error", err, "count", len(messages))
			} else {
				logger.Debug("Wrote messages", "topic", topic, "count", len(messages))
			}
		},
	}

	return &TopicProducer{logger: logger, writer: writer, topic: topic}, nil
}

// Publish marshals value to JSON and writes it under key. A json.RawMessage
// value is written as is.
func (p *TopicProducer) Publish(ctx context.Context, key string, value any, headers ...kafka.Header) error {
	jsonValue, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal message value for topic %s: %w", p.topic, err)
	}

	msg := kafka.Message{
		Key:     []byte(key),
		Value:   jsonValue,
		Headers: headers,
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.Error("Failed to publish message", "topic", p.topic, "key", key, "error", err)
		return fmt.Errorf("failed to publish message to %s: %w", p.topic, err)
	}

	p.logger.Debug("Published message", "topic", p.topic, "key", key)
	return nil
}

func (p *TopicProducer) Topic() string {
	return p.topic
}

func (p *TopicProducer) Close() error {
	p.logger.Info("Closing Kafka producer", "topic", p.topic)
	if err := p.writer.Close(); err != nil {
		return fmt.Errorf("failed to close kafka writer for topic %s: %w", p.topic, err)
	}
	return nil
}
