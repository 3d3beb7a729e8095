package mailer

import (
	"context"
	"log/slog"
)

// LogMailer is a mailer implementation that logs messages and always succeeds.
// It is used when no mail gateway URL is configured.
type LogMailer struct {
	logger *slog.Logger
}

// NewLogMailer creates a new logging mailer.
func NewLogMailer(logger *slog.Logger) *LogMailer {
	return &LogMailer{logger: logger}
}

// Name returns the name of this mailer.
func (m *LogMailer) Name() string {
	return "log"
}

// Send logs the message details instead of delivering it.
func (m *LogMailer) Send(ctx context.Context, msg *Message) error {
	m.logger.InfoContext(ctx, "log mailer: message sent",
		slog.String("to", msg.To),
		slog.String("to_name", msg.ToName),
		slog.String("subject", msg.Subject),
		slog.Int("body_bytes", len(msg.Body)),
	)

	return nil
}
