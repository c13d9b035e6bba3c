package consumers

import (
	"context"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/dinero-ledger/internal/config"
)

// MessageHandler processes one message. A non-nil error means the message
// could not be handled yet and must be delivered again.
type MessageHandler func(ctx context.Context, key []byte, value []byte) error

// Consumer defines the message queue consumer interface
type Consumer interface {
	Subscribe(ctx context.Context, handler MessageHandler) error
	Close() error
}

// kafkaReader is the part of *kafka.Reader the consumer uses.
type kafkaReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

const (
	retryBaseDelay = time.Second
	retryMaxDelay  = 30 * time.Second
)

// KafkaConsumer reads the entry request topic in a consumer group. Offsets
// are committed only after the handler succeeds; a failing message is
// retried with backoff so later messages never overtake it.
type KafkaConsumer struct {
	reader     kafkaReader
	topic      string
	groupID    string
	logger     *slog.Logger
	retryDelay time.Duration
}

func NewKafkaConsumer(_ context.Context, logger *slog.Logger, cfg *config.KafkaConfig) *KafkaConsumer {
	return &KafkaConsumer{
		logger:     logger,
		topic:      cfg.EntryRequestTopic,
		groupID:    cfg.ConsumerGroup,
		retryDelay: retryBaseDelay,
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers:     []string{cfg.Brokers},
			Topic:       cfg.EntryRequestTopic,
			GroupID:     cfg.ConsumerGroup,
			MinBytes:    cfg.MinBytes,
			MaxBytes:    cfg.MaxBytes,
			MaxWait:     cfg.MaxWait,
			StartOffset: kafka.FirstOffset,
		}),
	}
}

// Subscribe starts consuming in the background until ctx is cancelled.
func (c *KafkaConsumer) Subscribe(ctx context.Context, handler MessageHandler) error {
	c.logger.Info("Subscribed to Kafka topic", "topic", c.topic, "group_id", c.groupID)
	go c.consume(ctx, handler)
	return nil
}

func (c *KafkaConsumer) consume(ctx context.Context, handler MessageHandler) {
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				c.logger.Info("Context canceled, stopping consumer", "topic", c.topic, "group_id", c.groupID)
				return
			}
			c.logger.Error("Failed to fetch message from Kafka", "topic", c.topic, "error", err)
			if !sleep(ctx, time.Second) {
				return
			}
			continue
		}

		c.logger.Debug("Received message from Kafka",
			"topic", msg.Topic,
			"partition", msg.Partition,
			"offset", msg.Offset,
			"key", string(msg.Key),
		)

		if !c.handle(ctx, msg, handler) {
			return
		}

		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			c.logger.Error("Failed to commit message after successful processing",
				"topic", msg.Topic,
				"partition", msg.Partition,
				"offset", msg.Offset,
				"error", err,
			)
		}
	}
}

// handle runs handler until it succeeds. It returns false if ctx ended first.
func (c *KafkaConsumer) handle(ctx context.Context, msg kafka.Message, handler MessageHandler) bool {
	delay := c.retryDelay
	for attempt := 1; ; attempt++ {
		err := handler(ctx, msg.Key, msg.Value)
		if err == nil {
			return true
		}
		c.logger.Error("Failed to process message, retrying",
			"topic", msg.Topic,
			"partition", msg.Partition,
			"offset", msg.Offset,
			"key", string(msg.Key),
			"attempt", attempt,
			"error", err,
		)
		if !sleep(ctx, delay) {
			return false
		}
		delay = min(delay*2, retryMaxDelay)
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

func (c *KafkaConsumer) Close() error {
	if c.reader != nil {
		return c.reader.Close()
	}
	return nil
}
