package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/itsmeasadali/follow-up-for-review-shopify-app/internal/sessions/domain"
)

type resolver struct{ repo domain.Repository }

func New(repo domain.Repository) domain.Resolver {
	return &resolver{repo: repo}
}

func (r *resolver) Offline(ctx context.Context, shopID string) (domain.Credential, error) {
	sessions, err := r.repo.ListOffline(ctx, shopID)
	if err != nil {
		return domain.Credential{}, fmt.Errorf("load sessions for %s: %w", shopID, err)
	}
	var usable []domain.Credential
	for _, s := range sessions {
		if s.IsOnline || strings.TrimSpace(s.AccessToken) == "" {
			continue
		}
		usable = append(usable, s)
	}
	switch len(usable) {
	case 0:
		return domain.Credential{}, fmt.Errorf("%w for %s", domain.ErrCredentialNotFound, shopID)
	case 1:
		return usable[0], nil
	default:
		return domain.Credential{}, fmt.Errorf("%w for %s", domain.ErrAmbiguousCredential, shopID)
	}
}
