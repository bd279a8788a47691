package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// API response structures
type OrderFailure struct {
	OrderID string `json:"orderId"`
	Outcome string `json:"outcome"`
	Error   string `json:"error"`
}

type ShopResult struct {
	ShopID     string         `json:"shopId"`
	EmailsSent []string       `json:"emailsSent,omitempty"`
	Skipped    []string       `json:"skipped,omitempty"`
	Failures   []OrderFailure `json:"failures,omitempty"`
	Error      string         `json:"error,omitempty"`
}

type RunReport struct {
	RunID      string       `json:"runId"`
	StartedAt  time.Time    `json:"startedAt"`
	FinishedAt time.Time    `json:"finishedAt"`
	Results    []ShopResult `json:"results"`
}

type SentRecord struct {
	ShopID    string    `json:"shopId"`
	OrderID   string    `json:"orderId"`
	MessageID string    `json:"messageId,omitempty"`
	SentAt    time.Time `json:"sentAt"`
}

type HealthResponse struct {
	Status  string `json:"status"`
	DB      string `json:"db"`
	Cache   string `json:"cache"`
	Version string `json:"version"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// ReviewClient calls the review mailer API.
type ReviewClient struct {
	BaseURL string
	Secret  string
	HTTP    *http.Client
}

func newClient(baseURL, secret string, timeout time.Duration) *ReviewClient {
	return &ReviewClient{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Secret:  secret,
		HTTP:    &http.Client{Timeout: timeout},
	}
}

func (c *ReviewClient) get(ctx context.Context, path string, q url.Values, target any) error {
	u := c.BaseURL + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	logVerbose(os.Stderr, "Making GET request to %s", c.BaseURL+path)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if c.Secret != "" {
		req.Header.Set("Authorization", "Bearer "+c.Secret)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	return handleResponse(resp, target)
}

func handleResponse(resp *http.Response, target any) error {
	body, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode >= 400 {
		var er ErrorResponse
		if json.Unmarshal(body, &er) == nil && er.Error != "" {
			if er.Details != "" {
				return fmt.Errorf("API error (%d): %s: %s", resp.StatusCode, er.Error, er.Details)
			}
			return fmt.Errorf("API error (%d): %s", resp.StatusCode, er.Error)
		}
		return fmt.Errorf("API error (%d): %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	if target == nil {
		return nil
	}
	if err := json.Unmarshal(body, target); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// Trigger runs the dispatcher once on the server.
func (c *ReviewClient) Trigger(ctx context.Context) (RunReport, error) {
	var r RunReport
	err := c.get(ctx, "/api/send-review-emails", nil, &r)
	return r, err
}

// History lists sent review emails for a shop.
func (c *ReviewClient) History(ctx context.Context, shop string, limit int) ([]SentRecord, error) {
	q := url.Values{"shop": {shop}}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	var out struct {
		Items []SentRecord `json:"items"`
	}
	err := c.get(ctx, "/api/review-emails/sent", q, &out)
	return out.Items, err
}

// Health reads /healthz. A 503 still carries a body worth printing.
func (c *ReviewClient) Health(ctx context.Context) (HealthResponse, error) {
	var h HealthResponse
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/healthz", nil)
	if err != nil {
		return h, err
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return h, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(&h); err != nil {
		return h, fmt.Errorf("failed to decode response: %w", err)
	}
	return h, nil
}
