package domain

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Customer is the buyer attached to an order. Any field may be empty.
type Customer struct {
	FirstName string
	LastName  string
	Email     string
}

// FullName joins first and last name the way the merge tag expects.
func (c Customer) FullName() string {
	return strings.TrimSpace(c.FirstName + " " + c.LastName)
}

type LineItem struct {
	Title string
}

// Order is a read-only snapshot fetched fresh on every run.
type Order struct {
	ID        string
	Name      string
	CreatedAt time.Time
	Customer  Customer
	LineItems []LineItem
}

// ProductTitle returns the first line item's title, or fallback when the
// order has none.
func (o Order) ProductTitle(fallback string) string {
	if len(o.LineItems) == 0 || strings.TrimSpace(o.LineItems[0].Title) == "" {
		return fallback
	}
	return o.LineItems[0].Title
}

// Fetcher returns a shop's most recent orders, newest first.
type Fetcher interface {
	RecentOrders(ctx context.Context, shopID, accessToken string, limit int) ([]Order, error)
}

// FetchError wraps any failure talking to the commerce platform.
type FetchError struct {
	ShopID string
	Status int
	Err    error
}

func (e *FetchError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("fetch orders for %s: status %d: %v", e.ShopID, e.Status, e.Err)
	}
	return fmt.Sprintf("fetch orders for %s: %v", e.ShopID, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }
