package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	db "github.com/itsmeasadali/follow-up-for-review-shopify-app/internal/db/sqlc"
	sdomain "github.com/itsmeasadali/follow-up-for-review-shopify-app/internal/settings/domain"
)

type SQLCRepository struct{ q *db.Queries }

func New(pg *pgxpool.Pool) *SQLCRepository { return &SQLCRepository{q: db.New(pg)} }

var _ sdomain.Repository = (*SQLCRepository)(nil)

func toPgTextPtr(s *string) pgtype.Text {
	if s == nil {
		return pgtype.Text{}
	}
	return pgtype.Text{String: *s, Valid: true}
}

func toDomain(row db.ReviewEmailSetting) sdomain.ReviewSettings {
	return sdomain.ReviewSettings{
		ShopID:        row.ShopID,
		Enabled:       row.Enabled,
		DaysToWait:    int(row.DaysToWait),
		EmailTemplate: row.EmailTemplate,
		SubjectLine:   row.SubjectLine,
		UpdatedAt:     row.UpdatedAt.Time,
	}
}

func (r *SQLCRepository) ListEnabled(ctx context.Context) ([]sdomain.ReviewSettings, error) {
	rows, err := r.q.ListEnabledReviewEmailSettings(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]sdomain.ReviewSettings, 0, len(rows))
	for _, row := range rows {
		out = append(out, toDomain(row))
	}
	return out, nil
}

func (r *SQLCRepository) GetReview(ctx context.Context, shopID string) (sdomain.ReviewSettings, error) {
	row, err := r.q.GetReviewEmailSetting(ctx, shopID)
	if errors.Is(err, pgx.ErrNoRows) {
		return sdomain.ReviewSettings{}, sdomain.ErrNotFound
	}
	if err != nil {
		return sdomain.ReviewSettings{}, err
	}
	return toDomain(row), nil
}

func (r *SQLCRepository) UpsertReview(ctx context.Context, s sdomain.ReviewSettings) error {
	return r.q.UpsertReviewEmailSetting(ctx, db.UpsertReviewEmailSettingParams{
		ShopID:        s.ShopID,
		Enabled:       s.Enabled,
		DaysToWait:    int32(s.DaysToWait),
		EmailTemplate: s.EmailTemplate,
		SubjectLine:   s.SubjectLine,
	})
}

func (r *SQLCRepository) Get(ctx context.Context, key string, shopID *string) (string, bool, error) {
	if shopID != nil {
		row, err := r.q.GetAppSettingByKeyShop(ctx, db.GetAppSettingByKeyShopParams{Key: key, ShopID: toPgTextPtr(shopID)})
		if err == nil {
			return row.Value, true, nil
		}
		if !errors.Is(err, pgx.ErrNoRows) {
			return "", false, err
		}
	}
	row, err := r.q.GetAppSettingGlobal(ctx, key)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return row.Value, true, nil
}

func (r *SQLCRepository) Upsert(ctx context.Context, key string, shopID *string, value string, secret bool) error {
	return r.q.UpsertAppSetting(ctx, db.UpsertAppSettingParams{
		ID:       pgtype.UUID{Bytes: uuid.New(), Valid: true},
		ShopID:   toPgTextPtr(shopID),
		Key:      key,
		Value:    value,
		IsSecret: secret,
	})
}
