package kafka

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"
)

// DLQTopicPrefix is the prefix for all dead-letter queue topics.
const DLQTopicPrefix = "pharma.dlq"

// DLQProducer publishes failed messages to a dead-letter queue topic.
type DLQProducer struct {
	writer *kafka.Writer
	logger *slog.Logger
}

// NewDLQProducer creates a producer that writes each source topic's failed
// messages to its DLQTopic counterpart. Writes are synchronous and require
// acknowledgement from all replicas so a poison message is never lost twice.
func NewDLQProducer(brokers []string, logger *slog.Logger) *DLQProducer {
	w := &kafka.Writer{
		Addr: kafka.TCP(brokers...),
		// Hash keeps the original key-to-partition affinity so a DLQ replay
		// preserves per-key ordering.
		Balancer:     &kafka.Hash{},
		BatchSize:    1,
		BatchTimeout: 100 * time.Millisecond,
		Async:        false,
		RequiredAcks: kafka.RequireAll,
		// DLQ topics are created lazily; the first poison message must not
		// fail because its topic does not exist yet.
		AllowAutoTopicCreation: true,
	}

	return &DLQProducer{
		writer: w,
		logger: logger,
	}
}

// DLQTopic constructs the DLQ topic name for a given source topic.
func DLQTopic(originalTopic string) string {
	return DLQTopicPrefix + "." + originalTopic
}

// dlqHeaders copies the original message headers and appends the dlq.*
// diagnostics recording where the message came from, which consumer group
// gave up on it, after how many attempts, when, and why.
func dlqHeaders(originalMsg kafka.Message, lastErr error, consumerGroup string, attempts int) []kafka.Header {
	headers := make([]kafka.Header, 0, len(originalMsg.Headers)+7)
	headers = append(headers, originalMsg.Headers...)
	headers = append(headers,
		kafka.Header{Key: "dlq.original_topic", Value: []byte(originalMsg.Topic)},
		kafka.Header{Key: "dlq.original_partition", Value: []byte(strconv.Itoa(originalMsg.Partition))},
		kafka.Header{Key: "dlq.original_offset", Value: []byte(strconv.FormatInt(originalMsg.Offset, 10))},
		kafka.Header{Key: "dlq.consumer_group", Value: []byte(consumerGroup)},
		kafka.Header{Key: "dlq.attempts", Value: []byte(strconv.Itoa(attempts))},
		kafka.Header{Key: "dlq.failed_at", Value: []byte(time.Now().UTC().Format(time.RFC3339))},
	)
	if lastErr != nil {
		headers = append(headers, kafka.Header{Key: "dlq.error", Value: []byte(lastErr.Error())})
	}
	return headers
}

// Publish sends a failed message to the corresponding DLQ topic with dlq.*
// diagnostic headers attached.
func (d *DLQProducer) Publish(ctx context.Context, originalMsg kafka.Message, lastErr error, consumerGroup string, attempts int) error {
	dlqTopic := DLQTopic(originalMsg.Topic)

	dlqMsg := kafka.Message{
		Topic:   dlqTopic,
		Key:     originalMsg.Key,
		Value:   originalMsg.Value,
		Headers: dlqHeaders(originalMsg, lastErr, consumerGroup, attempts),
	}

	if err := d.writer.WriteMessages(ctx, dlqMsg); err != nil {
		d.logger.Error("failed to publish message to DLQ",
			slog.String("dlq_topic", dlqTopic),
			slog.String("original_topic", originalMsg.Topic),
			slog.Int("partition", originalMsg.Partition),
			slog.Int64("offset", originalMsg.Offset),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("publish to DLQ %s: %w", dlqTopic, err)
	}

	d.logger.Warn("message sent to DLQ",
		slog.String("dlq_topic", dlqTopic),
		slog.String("original_topic", originalMsg.Topic),
		slog.Int("partition", originalMsg.Partition),
		slog.Int64("offset", originalMsg.Offset),
		slog.String("consumer_group", consumerGroup),
		slog.Int("attempts", attempts),
	)

	return nil
}

// Close closes the DLQ producer.
func (d *DLQProducer) Close() error {
	return d.writer.Close()
}
