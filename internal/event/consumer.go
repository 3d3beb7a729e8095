package event

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Sagar7057/pharma-backend/internal/mailer"
	pkgkafka "github.com/Sagar7057/pharma-backend/pkg/kafka"
)

// ConsumerGroupID is the consumer group shared by all backend instances.
const ConsumerGroupID = "pharma-backend"

// IdempotencyTTL bounds how long processed event IDs are remembered for
// deduplication.
const IdempotencyTTL = 24 * time.Hour

// ConsumerHandler routes incoming Kafka events to the appropriate handler.
type ConsumerHandler struct {
	mailer mailer.Mailer
	logger *slog.Logger
}

// NewConsumerHandler creates a new event consumer handler.
func NewConsumerHandler(m mailer.Mailer, logger *slog.Logger) *ConsumerHandler {
	return &ConsumerHandler{
		mailer: m,
		logger: logger,
	}
}

// Handle processes an incoming Kafka event based on its event type.
func (h *ConsumerHandler) Handle(ctx context.Context, event *pkgkafka.Event) error {
	switch event.EventType {
	case TopicUserRegistered:
		return h.handleUserRegistered(ctx, event)
	case TopicQuoteSent:
		return h.handleQuoteSent(ctx, event)
	default:
		h.logger.WarnContext(ctx, "unknown event type received",
			slog.String("event_type", event.EventType),
			slog.String("event_id", event.EventID),
		)
		return nil
	}
}

// handleUserRegistered sends the onboarding email to a newly registered user.
func (h *ConsumerHandler) handleUserRegistered(ctx context.Context, event *pkgkafka.Event) error {
	var data UserRegisteredData
	if err := event.UnmarshalData(&data); err != nil {
		return fmt.Errorf("unmarshal user.registered payload: %w", err)
	}

	msg := &mailer.Message{
		To:      data.Email,
		ToName:  data.FullName,
		Subject: "Welcome to your pricing workspace",
		Body: fmt.Sprintf(
			"Hi %s,\n\nYour account for %s is ready. Add your brand catalog, set customer type margins and start sending quotes.\n",
			data.FullName, data.CompanyName,
		),
	}

	if err := h.mailer.Send(ctx, msg); err != nil {
		return fmt.Errorf("send welcome mail: %w", err)
	}

	h.logger.InfoContext(ctx, "welcome mail dispatched",
		slog.String("event_id", event.EventID),
		slog.String("user_id", data.ID),
		slog.String("mailer", h.mailer.Name()),
	)

	return nil
}

// handleQuoteSent records a quote dispatch. The customer email goes out in the
// request path; the event is the audit trail for it.
func (h *ConsumerHandler) handleQuoteSent(ctx context.Context, event *pkgkafka.Event) error {
	var data QuoteSentData
	if err := event.UnmarshalData(&data); err != nil {
		return fmt.Errorf("unmarshal quote.sent payload: %w", err)
	}

	h.logger.InfoContext(ctx, "quote dispatched to customer",
		slog.String("event_id", event.EventID),
		slog.String("quote_id", data.QuoteID),
		slog.String("quote_number", data.QuoteNumber),
		slog.String("customer_email", data.CustomerEmail),
		slog.Float64("total_amount", data.TotalAmount),
	)

	return nil
}

// NewConsumers creates Kafka consumers for all topics the backend subscribes
// to. Redelivered events are deduplicated against the given store before they
// reach the handlers, and events that exhaust their retries land on the DLQ.
func NewConsumers(brokers []string, store pkgkafka.IdempotencyStore, handler *ConsumerHandler, logger *slog.Logger) []*pkgkafka.Consumer {
	topics := []string{
		TopicUserRegistered,
		TopicQuoteSent,
	}

	idempotent := pkgkafka.IdempotentHandler(store, handler.Handle, logger)

	consumers := make([]*pkgkafka.Consumer, 0, len(topics))

	for _, topic := range topics {
		cfg := pkgkafka.ConsumerConfig{
			Brokers:   brokers,
			GroupID:   ConsumerGroupID,
			Topic:     topic,
			MinBytes:  1,
			MaxBytes:  10e6,
			EnableDLQ: true,
		}

		consumers = append(consumers, pkgkafka.NewConsumer(cfg, idempotent, logger))
	}

	return consumers
}
