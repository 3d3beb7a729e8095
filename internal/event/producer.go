package event

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Sagar7057/pharma-backend/internal/domain"
	pkgkafka "github.com/Sagar7057/pharma-backend/pkg/kafka"
)

// Kafka topics for account and quote lifecycle events.
const (
	TopicUserRegistered = "pharma.user.registered"
	TopicUserLoggedIn   = "pharma.user.logged-in"
	TopicQuoteCreated   = "pharma.quote.created"
	TopicQuoteSent      = "pharma.quote.sent"
)

// Aggregate type constants.
const (
	AggregateTypeUser  = "user"
	AggregateTypeQuote = "quote"
)

// Source identifier for events originating from this backend.
const SourceBackend = "pharma-backend"

// UserRegisteredData is the payload for a user.registered event.
type UserRegisteredData struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	FullName    string `json:"full_name"`
	CompanyName string `json:"company_name"`
}

// UserLoggedInData is the payload for a user.logged-in event.
type UserLoggedInData struct {
	UserID   string    `json:"user_id"`
	Email    string    `json:"email"`
	LoggedAt time.Time `json:"logged_at"`
}

// QuoteCreatedData is the payload for a quote.created event.
type QuoteCreatedData struct {
	QuoteID      string  `json:"quote_id"`
	UserID       string  `json:"user_id"`
	QuoteNumber  string  `json:"quote_number"`
	CustomerName string  `json:"customer_name"`
	TotalAmount  float64 `json:"total_amount"`
	TotalMargin  float64 `json:"total_margin"`
	ItemCount    int     `json:"item_count"`
}

// QuoteSentData is the payload for a quote.sent event. It is denormalized so
// consumers can act on the dispatch without reading the database.
type QuoteSentData struct {
	QuoteID       string     `json:"quote_id"`
	UserID        string     `json:"user_id"`
	QuoteNumber   string     `json:"quote_number"`
	CustomerName  string     `json:"customer_name"`
	CustomerEmail string     `json:"customer_email"`
	SenderName    string     `json:"sender_name"`
	SenderCompany string     `json:"sender_company"`
	TotalAmount   float64    `json:"total_amount"`
	ItemCount     int        `json:"item_count"`
	ExpiryDate    *time.Time `json:"expiry_date,omitempty"`
}

// Producer publishes account and quote events to Kafka.
type Producer struct {
	kafka  *pkgkafka.Producer
	logger *slog.Logger
}

// NewProducer creates a new event producer.
func NewProducer(kafka *pkgkafka.Producer, logger *slog.Logger) *Producer {
	return &Producer{
		kafka:  kafka,
		logger: logger,
	}
}

// PublishUserRegistered publishes a user.registered event.
func (p *Producer) PublishUserRegistered(ctx context.Context, user *domain.User) error {
	data := UserRegisteredData{
		ID:          user.ID,
		Email:       user.Email,
		FullName:    user.FullName,
		CompanyName: user.CompanyName,
	}

	event, err := pkgkafka.NewEvent(TopicUserRegistered, user.ID, AggregateTypeUser, SourceBackend, data)
	if err != nil {
		return fmt.Errorf("create user.registered event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicUserRegistered, event); err != nil {
		return fmt.Errorf("publish user.registered event: %w", err)
	}

	p.logger.DebugContext(ctx, "published user.registered event",
		slog.String("user_id", user.ID),
		slog.String("email", user.Email),
	)

	return nil
}

// PublishUserLoggedIn publishes a user.logged-in event.
func (p *Producer) PublishUserLoggedIn(ctx context.Context, user *domain.User) error {
	data := UserLoggedInData{
		UserID:   user.ID,
		Email:    user.Email,
		LoggedAt: time.Now().UTC(),
	}

	event, err := pkgkafka.NewEvent(TopicUserLoggedIn, user.ID, AggregateTypeUser, SourceBackend, data)
	if err != nil {
		return fmt.Errorf("create user.logged-in event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicUserLoggedIn, event); err != nil {
		return fmt.Errorf("publish user.logged-in event: %w", err)
	}

	p.logger.DebugContext(ctx, "published user.logged-in event",
		slog.String("user_id", user.ID),
	)

	return nil
}

// PublishQuoteCreated publishes a quote.created event.
func (p *Producer) PublishQuoteCreated(ctx context.Context, quote *domain.Quote) error {
	data := QuoteCreatedData{
		QuoteID:      quote.ID,
		UserID:       quote.UserID,
		QuoteNumber:  quote.QuoteNumber,
		CustomerName: quote.CustomerName,
		TotalAmount:  quote.TotalAmount,
		TotalMargin:  quote.TotalMargin,
		ItemCount:    len(quote.Items),
	}

	event, err := pkgkafka.NewEvent(TopicQuoteCreated, quote.ID, AggregateTypeQuote, SourceBackend, data)
	if err != nil {
		return fmt.Errorf("create quote.created event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicQuoteCreated, event); err != nil {
		return fmt.Errorf("publish quote.created event: %w", err)
	}

	p.logger.DebugContext(ctx, "published quote.created event",
		slog.String("quote_id", quote.ID),
		slog.String("quote_number", quote.QuoteNumber),
	)

	return nil
}

// PublishQuoteSent publishes a quote.sent event after the quote email has been
// dispatched to the customer.
func (p *Producer) PublishQuoteSent(ctx context.Context, quote *domain.Quote, sender *domain.User) error {
	data := QuoteSentData{
		QuoteID:       quote.ID,
		UserID:        quote.UserID,
		QuoteNumber:   quote.QuoteNumber,
		CustomerName:  quote.CustomerName,
		CustomerEmail: quote.CustomerEmail,
		SenderName:    sender.FullName,
		SenderCompany: sender.CompanyName,
		TotalAmount:   quote.TotalAmount,
		ItemCount:     len(quote.Items),
		ExpiryDate:    quote.ExpiryDate,
	}

	event, err := pkgkafka.NewEvent(TopicQuoteSent, quote.ID, AggregateTypeQuote, SourceBackend, data)
	if err != nil {
		return fmt.Errorf("create quote.sent event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicQuoteSent, event); err != nil {
		return fmt.Errorf("publish quote.sent event: %w", err)
	}

	p.logger.DebugContext(ctx, "published quote.sent event",
		slog.String("quote_id", quote.ID),
		slog.String("quote_number", quote.QuoteNumber),
		slog.String("customer_email", quote.CustomerEmail),
	)

	return nil
}
