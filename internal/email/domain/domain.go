package domain

import (
	"context"
	"fmt"
)

// Message is a fully rendered email. HTML carries the shop's rich-text template output.
type Message struct {
	To      string
	Subject string
	HTML    string
}

// Sender is a pluggable email sending interface supporting per-shop overrides.
// Implementations resolve transport settings per shop with config defaults.
// On success it returns the provider's message id (may be empty).
type Sender interface {
	Send(ctx context.Context, shopID string, msg Message) (string, error)
}

// DeliveryError reports that the transport did not accept a message.
type DeliveryError struct {
	Provider string
	Err      error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("email sending failed (%s): %v", e.Provider, e.Err)
}

func (e *DeliveryError) Unwrap() error { return e.Err }
