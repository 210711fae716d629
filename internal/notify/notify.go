package notify

import (
	"context"
	"errors"
	"time"
)

// Message is the order confirmation handed to notifiers after commit.
type Message struct {
	OrderID      uint      `json:"order_id"`
	TrackingCode string    `json:"tracking_code"`
	Email        string    `json:"email"`
	Address      string    `json:"address"`
	Total        string    `json:"total"`
	TrackingURL  string    `json:"tracking_url"`
	PlacedAt     time.Time `json:"placed_at"`
}

type Notifier interface {
	Send(ctx context.Context, msg Message) error
}

// Multi fans a message out to every notifier. All are attempted; the
// returned error joins the individual failures.
type Multi []Notifier

func (m Multi) Send(ctx context.Context, msg Message) error {
	var errs []error
	for _, n := range m {
		if err := n.Send(ctx, msg); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Noop is used when no transport is configured.
type Noop struct{}

func (Noop) Send(context.Context, Message) error { return nil }
