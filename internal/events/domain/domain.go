package domain

import (
	"context"
	"time"
)

// Event types published by the dispatcher.
const (
	TypeReviewEmailSent   = "review.email.sent"
	TypeReviewEmailFailed = "review.email.failed"
)

// Event represents a dispatch event worth keeping outside the run report.
// Meta may contain message_id, provider, error, etc.
type Event struct {
	Type    string
	ShopID  string
	OrderID string
	Meta    map[string]string
	Time    time.Time
}

// Publisher publishes events to an external system (log, queue, etc.).
type Publisher interface {
	Publish(ctx context.Context, e Event) error
}
