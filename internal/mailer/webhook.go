package mailer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/Sagar7057/pharma-backend/pkg/httpclient"
)

// webhookPayload is the JSON body posted to the mail gateway.
type webhookPayload struct {
	From    string `json:"from"`
	To      string `json:"to"`
	ToName  string `json:"to_name"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// WebhookMailer delivers messages by POSTing them to an HTTP mail gateway
// through a circuit breaker.
type WebhookMailer struct {
	client *httpclient.CircuitBreakerClient
	url    string
	from   string
	logger *slog.Logger
}

// NewWebhookMailer creates a mailer that posts messages to the given webhook URL.
// Messages are sent from the given address.
func NewWebhookMailer(client *httpclient.CircuitBreakerClient, url, from string, logger *slog.Logger) *WebhookMailer {
	return &WebhookMailer{
		client: client,
		url:    url,
		from:   from,
		logger: logger,
	}
}

// Name returns the name of this mailer.
func (m *WebhookMailer) Name() string {
	return "webhook"
}

// Send posts the message to the mail gateway. Gateway rejections (4xx) are
// translated into AppErrors; rate limiting, 5xx and open-circuit rejections
// surface as errors from the circuit breaker client.
func (m *WebhookMailer) Send(ctx context.Context, msg *Message) error {
	payload := webhookPayload{
		From:    m.from,
		To:      msg.To,
		ToName:  msg.ToName,
		Subject: msg.Subject,
		Body:    msg.Body,
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal mail payload: %w", err)
	}

	resp, err := m.client.Post(ctx, m.url, "application/json", bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("post to mail gateway: %w", err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		// ParseResponseError consumes and closes the body.
		return httpclient.ParseResponseError(resp, "mail-gateway")
	}

	// Drain so the connection can be reused.
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()

	m.logger.InfoContext(ctx, "mail delivered",
		slog.String("to", msg.To),
		slog.String("subject", msg.Subject),
	)

	return nil
}
