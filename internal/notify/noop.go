package notify

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// NoopSender logs messages instead of delivering them. Used when e-mail is
// disabled and in development.
type NoopSender struct{}

// NewNoopSender creates a NoopSender
func NewNoopSender() *NoopSender {
	return &NoopSender{}
}

// Send logs msg and returns a synthetic receipt
func (s *NoopSender) Send(_ context.Context, msg Message) (Receipt, error) {
	if len(msg.To) == 0 {
		return Receipt{}, ErrNoRecipients
	}
	slog.Info("noop_email_send", "recipients", len(msg.To), "subject", msg.Subject)
	return Receipt{
		MessageID: "noop-" + uuid.NewString(),
		SentAt:    time.Now(),
	}, nil
}
