package domain

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a shop has no review settings row.
var ErrNotFound = errors.New("review settings not found")

// ErrInvalidSetting is returned alongside the default when a stored override
// cannot be parsed as the requested type.
var ErrInvalidSetting = errors.New("invalid setting override")

// ReviewSettings is a shop's follow-up email configuration. It is edited by
// the admin app and read-only to the dispatcher.
type ReviewSettings struct {
	ShopID        string `validate:"required"`
	Enabled       bool
	DaysToWait    int    `validate:"gte=1"`
	EmailTemplate string `validate:"required"`
	SubjectLine   string `validate:"required"`
	UpdatedAt     time.Time
}

// Defaults mirrors what the admin app shows for a shop that has never saved settings.
func Defaults(shopID string) ReviewSettings {
	return ReviewSettings{
		ShopID:        shopID,
		Enabled:       false,
		DaysToWait:    7,
		EmailTemplate: "Dear customer, please leave a review...",
		SubjectLine:   "We'd love your feedback!",
	}
}

// Service provides typed access to per-shop key/value overrides with a
// global fallback, and the list of shops with the feature enabled.
type Service interface {
	GetString(ctx context.Context, key string, shopID *string, def string) (string, error)
	GetDuration(ctx context.Context, key string, shopID *string, def time.Duration) (time.Duration, error)
	GetInt(ctx context.Context, key string, shopID *string, def int) (int, error)
}

// Repository abstracts storage of review settings and app settings.
type Repository interface {
	ListEnabled(ctx context.Context) ([]ReviewSettings, error)
	GetReview(ctx context.Context, shopID string) (ReviewSettings, error)
	UpsertReview(ctx context.Context, s ReviewSettings) error

	// Get returns (value, found, err) for an exact key and optional shop.
	Get(ctx context.Context, key string, shopID *string) (string, bool, error)
	// Upsert stores a key for an optional shop.
	Upsert(ctx context.Context, key string, shopID *string, value string, secret bool) error
}

// Transport override keys. All support per-shop values.
const (
	KeyEmailProvider = "email.provider"
	KeySMTPHost      = "email.smtp.host"
	KeySMTPPort      = "email.smtp.port"
	KeySMTPUsername  = "email.smtp.username"
	KeySMTPPassword  = "email.smtp.password"
	KeySMTPFrom      = "email.smtp.from"
	KeyBrevoAPIKey   = "email.brevo.api_key"
	KeyBrevoSender   = "email.brevo.sender"
)
