package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	db "github.com/itsmeasadali/follow-up-for-review-shopify-app/internal/db/sqlc"
	"github.com/itsmeasadali/follow-up-for-review-shopify-app/internal/sessions/domain"
)

type SQLCRepository struct{ q *db.Queries }

func New(pg *pgxpool.Pool) *SQLCRepository { return &SQLCRepository{q: db.New(pg)} }

var _ domain.Repository = (*SQLCRepository)(nil)

func (r *SQLCRepository) ListOffline(ctx context.Context, shopID string) ([]domain.Credential, error) {
	rows, err := r.q.ListOfflineSessionsByShop(ctx, shopID)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Credential, 0, len(rows))
	for _, row := range rows {
		c := domain.Credential{
			ID:          row.ID,
			ShopID:      row.Shop,
			State:       row.State,
			IsOnline:    row.IsOnline,
			Scope:       row.Scope.String,
			AccessToken: row.AccessToken,
		}
		if row.Expires.Valid {
			t := row.Expires.Time
			c.Expires = &t
		}
		out = append(out, c)
	}
	return out, nil
}

func (r *SQLCRepository) Upsert(ctx context.Context, c domain.Credential) error {
	p := db.UpsertSessionParams{
		ID:          c.ID,
		Shop:        c.ShopID,
		State:       c.State,
		IsOnline:    c.IsOnline,
		Scope:       pgtype.Text{String: c.Scope, Valid: c.Scope != ""},
		AccessToken: c.AccessToken,
	}
	if c.Expires != nil {
		p.Expires = pgtype.Timestamptz{Time: *c.Expires, Valid: true}
	}
	return r.q.UpsertSession(ctx, p)
}
