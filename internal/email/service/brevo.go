package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/itsmeasadali/follow-up-for-review-shopify-app/internal/config"
	edomain "github.com/itsmeasadali/follow-up-for-review-shopify-app/internal/email/domain"
	sdomain "github.com/itsmeasadali/follow-up-for-review-shopify-app/internal/settings/domain"
)

// Ensure Brevo implements domain.Sender
var _ edomain.Sender = (*Brevo)(nil)

const brevoURL = "https://api.brevo.com/v3/smtp/email"

type Brevo struct {
	cfg      config.Config
	settings sdomain.Service
	http     *http.Client
}

func NewBrevo(settings sdomain.Service, cfg config.Config) *Brevo {
	timeout := cfg.ReviewCallTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Brevo{settings: settings, cfg: cfg, http: &http.Client{Timeout: timeout}}
}

type brevoEmail struct {
	To          []map[string]string `json:"to"`
	Sender      map[string]string   `json:"sender"`
	Subject     string              `json:"subject"`
	HTMLContent string              `json:"htmlContent"`
}

type brevoResponse struct {
	MessageID string `json:"messageId"`
	Message   string `json:"message"`
}

func (b *Brevo) Send(ctx context.Context, shopID string, msg edomain.Message) (string, error) {
	fail := func(err error) (string, error) { return "", &edomain.DeliveryError{Provider: "brevo", Err: err} }

	apiKey, _ := b.settings.GetString(ctx, sdomain.KeyBrevoAPIKey, &shopID, b.cfg.BrevoAPIKey)
	sender, _ := b.settings.GetString(ctx, sdomain.KeyBrevoSender, &shopID, b.cfg.BrevoSender)
	if apiKey == "" || sender == "" {
		return fail(errors.New("brevo not configured"))
	}
	payload := brevoEmail{
		To:          []map[string]string{{"email": msg.To}},
		Sender:      map[string]string{"email": sender},
		Subject:     msg.Subject,
		HTMLContent: msg.HTML,
	}
	buf, err := json.Marshal(payload)
	if err != nil {
		return fail(err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, brevoURL, bytes.NewReader(buf))
	if err != nil {
		return fail(err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("api-key", apiKey)
	resp, err := b.http.Do(req)
	if err != nil {
		return fail(err)
	}
	defer func() { _ = resp.Body.Close() }()

	var out brevoResponse
	_ = json.NewDecoder(resp.Body).Decode(&out)
	if resp.StatusCode >= 300 {
		if out.Message != "" {
			return fail(fmt.Errorf("%s: %s", resp.Status, out.Message))
		}
		return fail(fmt.Errorf("%s", resp.Status))
	}
	return out.MessageID, nil
}
