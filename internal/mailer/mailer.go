// Package mailer delivers quote emails to customers. The concrete
// implementation is chosen at startup: a webhook-backed mailer when a
// mail gateway URL is configured, a logging mailer otherwise.
package mailer

import "context"

// Message is a single outbound email.
type Message struct {
	To      string
	ToName  string
	Subject string
	Body    string
}

// Mailer defines the interface for delivering messages through a specific channel.
type Mailer interface {
	Name() string
	Send(ctx context.Context, msg *Message) error
}
