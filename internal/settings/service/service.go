package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	sdomain "github.com/itsmeasadali/follow-up-for-review-shopify-app/internal/settings/domain"
)

type Service struct{ repo sdomain.Repository }

func New(repo sdomain.Repository) *Service { return &Service{repo: repo} }

var _ sdomain.Service = (*Service)(nil)

// EnabledShops returns every shop with review emails switched on. Rows are
// returned as stored; the dispatcher validates each one so a bad row fails
// only its own shop.
func (s *Service) EnabledShops(ctx context.Context) ([]sdomain.ReviewSettings, error) {
	all, err := s.repo.ListEnabled(ctx)
	if err != nil {
		return nil, err
	}
	out := all[:0]
	for _, rs := range all {
		if rs.Enabled {
			out = append(out, rs)
		}
	}
	return out, nil
}

// Review returns a shop's settings, or the admin defaults if none are stored.
func (s *Service) Review(ctx context.Context, shopID string) (sdomain.ReviewSettings, error) {
	rs, err := s.repo.GetReview(ctx, shopID)
	if errors.Is(err, sdomain.ErrNotFound) {
		return sdomain.Defaults(shopID), nil
	}
	return rs, err
}

func (s *Service) lookup(ctx context.Context, key string, shopID *string) (string, bool, error) {
	v, ok, err := s.repo.Get(ctx, key, shopID)
	if err != nil || !ok {
		return "", false, err
	}
	v = strings.TrimSpace(v)
	return v, v != "", nil
}

func (s *Service) GetString(ctx context.Context, key string, shopID *string, def string) (string, error) {
	v, ok, err := s.lookup(ctx, key, shopID)
	if err != nil {
		return def, err
	}
	if !ok {
		return def, nil
	}
	return v, nil
}

// invalid wraps a parse failure so callers can tell a malformed override from
// a store error. The getters still return the default with it.
func invalid(key, v string, err error) error {
	return fmt.Errorf("%w: %s=%q: %v", sdomain.ErrInvalidSetting, key, v, err)
}

func (s *Service) GetDuration(ctx context.Context, key string, shopID *string, def time.Duration) (time.Duration, error) {
	v, ok, err := s.lookup(ctx, key, shopID)
	if err != nil {
		return def, err
	}
	if !ok {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def, invalid(key, v, err)
	}
	return d, nil
}

func (s *Service) GetInt(ctx context.Context, key string, shopID *string, def int) (int, error) {
	v, ok, err := s.lookup(ctx, key, shopID)
	if err != nil {
		return def, err
	}
	if !ok {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def, invalid(key, v, err)
	}
	return n, nil
}
