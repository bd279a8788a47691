package domain

import (
	"context"
	"errors"
	"fmt"
	"time"

	cdomain "github.com/itsmeasadali/follow-up-for-review-shopify-app/internal/commerce/domain"
	sessdomain "github.com/itsmeasadali/follow-up-for-review-shopify-app/internal/sessions/domain"
	sdomain "github.com/itsmeasadali/follow-up-for-review-shopify-app/internal/settings/domain"
)

var (
	// ErrUnauthorized is returned when the trigger secret is missing or wrong.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrDuplicateRecord means a sent record for (shop, order) already exists.
	// It is expected when two runs race on the same order.
	ErrDuplicateRecord = errors.New("review email already recorded")
)

// RecordError means an email went out but its sent record could not be
// written, so a later run may send it again.
type RecordError struct {
	ShopID  string
	OrderID string
	Err     error
}

func (e *RecordError) Error() string {
	return fmt.Sprintf("email sent for order %s but not recorded: %v", e.OrderID, e.Err)
}

func (e *RecordError) Unwrap() error { return e.Err }

// SentRecord is the durable proof that a review email went out for an order.
type SentRecord struct {
	ShopID    string    `json:"shopId"`
	OrderID   string    `json:"orderId"`
	MessageID string    `json:"messageId,omitempty"`
	SentAt    time.Time `json:"sentAt"`
}

// SentStore is the dedup store. Record must fail with ErrDuplicateRecord when
// (shop, order) already exists; uniqueness is enforced by the store itself.
type SentStore interface {
	Exists(ctx context.Context, shopID, orderID string) (bool, error)
	Record(ctx context.Context, rec SentRecord) error
}

// SentHistory lists what has been sent for a shop, newest first.
type SentHistory interface {
	ListSent(ctx context.Context, shopID string, limit int) ([]SentRecord, error)
}

// TenantSource yields the shops with review emails enabled.
type TenantSource interface {
	EnabledShops(ctx context.Context) ([]sdomain.ReviewSettings, error)
}

// Collaborators of the dispatcher, re-exported for wiring.
type (
	CredentialResolver = sessdomain.Resolver
	OrderFetcher       = cdomain.Fetcher
)

// Outcome describes what happened to one fetched order.
type Outcome string

const (
	OutcomeSent           Outcome = "sent"
	OutcomeAlreadySent    Outcome = "already_sent"
	OutcomeNotDue         Outcome = "not_due"
	OutcomeNoEmail        Outcome = "no_email"
	OutcomeDeliveryFailed Outcome = "delivery_failed"
	OutcomeRecordFailed   Outcome = "record_failed"
	OutcomeDuplicate      Outcome = "duplicate"
)

// OrderFailure is an order-scoped problem that did not stop the shop.
type OrderFailure struct {
	OrderID string  `json:"orderId"`
	Outcome Outcome `json:"outcome"`
	Error   string  `json:"error"`
}
