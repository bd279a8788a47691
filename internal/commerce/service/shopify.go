package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/itsmeasadali/follow-up-for-review-shopify-app/internal/commerce/domain"
	"github.com/itsmeasadali/follow-up-for-review-shopify-app/internal/config"
)

// Ensure Shopify implements domain.Fetcher
var _ domain.Fetcher = (*Shopify)(nil)

const maxResponseBytes = 8 << 20

const recentOrdersQuery = `query RecentOrders($first: Int!) {
  orders(first: $first, sortKey: CREATED_AT, reverse: true) {
    edges {
      node {
        id
        name
        createdAt
        customer { firstName lastName email }
        lineItems(first: 1) { edges { node { title } } }
      }
    }
  }
}`

// Shopify queries the Admin GraphQL API with a shop's offline access token.
type Shopify struct {
	apiVersion string
	http       *http.Client
}

func NewShopify(cfg config.Config) *Shopify {
	return &Shopify{apiVersion: cfg.ShopifyAPIVersion, http: &http.Client{Timeout: cfg.ReviewCallTimeout}}
}

type graphQLRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

type graphQLError struct {
	Message string `json:"message"`
}

// Every nested level is a pointer: Shopify returns null for deleted
// customers and for orders without line items.
type ordersResponse struct {
	Data *struct {
		Orders *struct {
			Edges []struct {
				Node *orderNode `json:"node"`
			} `json:"edges"`
		} `json:"orders"`
	} `json:"data"`
	Errors []graphQLError `json:"errors"`
}

type orderNode struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
	Customer  *struct {
		FirstName *string `json:"firstName"`
		LastName  *string `json:"lastName"`
		Email     *string `json:"email"`
	} `json:"customer"`
	LineItems *struct {
		Edges []struct {
			Node *struct {
				Title string `json:"title"`
			} `json:"node"`
		} `json:"edges"`
	} `json:"lineItems"`
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func (n orderNode) toDomain() domain.Order {
	o := domain.Order{ID: n.ID, Name: n.Name, CreatedAt: n.CreatedAt}
	if n.Customer != nil {
		o.Customer = domain.Customer{
			FirstName: deref(n.Customer.FirstName),
			LastName:  deref(n.Customer.LastName),
			Email:     deref(n.Customer.Email),
		}
	}
	if n.LineItems != nil {
		for _, e := range n.LineItems.Edges {
			if e.Node != nil {
				o.LineItems = append(o.LineItems, domain.LineItem{Title: e.Node.Title})
			}
		}
	}
	return o
}

func (s *Shopify) endpoint(shopID string) (string, error) {
	if shopID == "" || strings.ContainsAny(shopID, "/?#@: ") {
		return "", fmt.Errorf("invalid shop domain %q", shopID)
	}
	return fmt.Sprintf("https://%s/admin/api/%s/graphql.json", shopID, s.apiVersion), nil
}

func (s *Shopify) RecentOrders(ctx context.Context, shopID, accessToken string, limit int) ([]domain.Order, error) {
	fail := func(status int, err error) ([]domain.Order, error) {
		return nil, &domain.FetchError{ShopID: shopID, Status: status, Err: err}
	}
	url, err := s.endpoint(shopID)
	if err != nil {
		return fail(0, err)
	}
	buf, err := json.Marshal(graphQLRequest{Query: recentOrdersQuery, Variables: map[string]any{"first": limit}})
	if err != nil {
		return fail(0, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(buf))
	if err != nil {
		return fail(0, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Shopify-Access-Token", accessToken)

	resp, err := s.http.Do(req)
	if err != nil {
		return fail(0, err)
	}
	defer func() { _ = resp.Body.Close() }()
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fail(resp.StatusCode, err)
	}
	if resp.StatusCode >= 300 {
		return fail(resp.StatusCode, errors.New(http.StatusText(resp.StatusCode)))
	}

	var out ordersResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return fail(resp.StatusCode, fmt.Errorf("decode response: %w", err))
	}
	if len(out.Errors) > 0 {
		msgs := make([]string, 0, len(out.Errors))
		for _, e := range out.Errors {
			msgs = append(msgs, e.Message)
		}
		return fail(resp.StatusCode, fmt.Errorf("graphql: %s", strings.Join(msgs, "; ")))
	}
	if out.Data == nil || out.Data.Orders == nil {
		return []domain.Order{}, nil
	}

	orders := make([]domain.Order, 0, len(out.Data.Orders.Edges))
	for _, e := range out.Data.Orders.Edges {
		if e.Node == nil || e.Node.ID == "" {
			continue
		}
		orders = append(orders, e.Node.toDomain())
	}
	sort.SliceStable(orders, func(i, j int) bool { return orders[i].CreatedAt.After(orders[j].CreatedAt) })
	if limit > 0 && len(orders) > limit {
		orders = orders[:limit]
	}
	return orders, nil
}
