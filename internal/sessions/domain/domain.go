package domain

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrCredentialNotFound means the shop has no usable offline session.
	ErrCredentialNotFound = errors.New("no offline session found")
	// ErrAmbiguousCredential means more than one offline session exists for the shop.
	ErrAmbiguousCredential = errors.New("multiple offline sessions found")
)

// Credential is a stored Shopify session. Background work uses only offline
// sessions, which are not bound to a user and do not expire.
type Credential struct {
	ID          string
	ShopID      string
	State       string
	IsOnline    bool
	Scope       string
	Expires     *time.Time
	AccessToken string
}

// Repository reads and writes stored sessions.
type Repository interface {
	// ListOffline returns at most two offline sessions for shop; two is
	// enough to detect ambiguity.
	ListOffline(ctx context.Context, shopID string) ([]Credential, error)
	Upsert(ctx context.Context, c Credential) error
}

// Resolver yields the one offline credential for a shop.
type Resolver interface {
	Offline(ctx context.Context, shopID string) (Credential, error)
}
