package notify

import (
	"context"
	"time"
)

// Message is one outgoing e-mail
type Message struct {
	To      []string
	From    string // Overrides the sender default when set
	Subject string
	HTML    string
}

// Receipt is what the provider reports for an accepted message
type Receipt struct {
	MessageID string
	SentAt    time.Time
}

// Sender delivers e-mail through an external provider
type Sender interface {
	Send(ctx context.Context, msg Message) (Receipt, error)
}
