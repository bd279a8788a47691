package service

import (
	"context"
	"strings"

	"github.com/itsmeasadali/follow-up-for-review-shopify-app/internal/config"
	edomain "github.com/itsmeasadali/follow-up-for-review-shopify-app/internal/email/domain"
	sdomain "github.com/itsmeasadali/follow-up-for-review-shopify-app/internal/settings/domain"
)

// Ensure Router implements domain.Sender
var _ edomain.Sender = (*Router)(nil)

// Router picks the transport per shop from the email.provider override.
type Router struct {
	cfg      config.Config
	settings sdomain.Service
	smtp     edomain.Sender
	brevo    edomain.Sender
}

func NewRouter(settings sdomain.Service, cfg config.Config) *Router {
	return &Router{cfg: cfg, settings: settings, smtp: NewSMTP(settings, cfg), brevo: NewBrevo(settings, cfg)}
}

func (r *Router) Send(ctx context.Context, shopID string, msg edomain.Message) (string, error) {
	prov, _ := r.settings.GetString(ctx, sdomain.KeyEmailProvider, &shopID, r.cfg.EmailProvider)
	switch strings.ToLower(prov) {
	case "brevo":
		return r.brevo.Send(ctx, shopID, msg)
	default:
		return r.smtp.Send(ctx, shopID, msg)
	}
}
