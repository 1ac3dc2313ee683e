// Package events announces finalized bills to other systems.
package events

import (
	"context"
	"log/slog"
	"time"
)

// TypeBillFinalized is the event type for BillFinalized.
const TypeBillFinalized = "bill_finalized"

// Share is one participant's part of a finalized bill.
type Share struct {
	ParticipantID int    `json:"participant_id"`
	DisplayName   string `json:"display_name"`
	Total         string `json:"total"`
}

// BillFinalized is published after a bill has been saved.
// Amounts are decimal strings in major units.
type BillFinalized struct {
	Type       string    `json:"type"`
	BillID     string    `json:"bill_id"`
	OwnerID    string    `json:"owner_id,omitempty"`
	Title      string    `json:"title"`
	Subtotal   string    `json:"subtotal"`
	Shares     []Share   `json:"shares"`
	PayerID    int       `json:"payer_id,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Publisher delivers events. Implementations must be safe for concurrent use.
type Publisher interface {
	Publish(ctx context.Context, event BillFinalized) error
	Close() error
}

// LogPublisher writes events to the log instead of a broker.
type LogPublisher struct{}

func (LogPublisher) Publish(_ context.Context, event BillFinalized) error {
	slog.Info("Bill finalized",
		"bill_id", event.BillID,
		"owner_id", event.OwnerID,
		"subtotal", event.Subtotal,
		"participants", len(event.Shares),
	)
	return nil
}

func (LogPublisher) Close() error { return nil }
