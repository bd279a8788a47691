package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	db "github.com/itsmeasadali/follow-up-for-review-shopify-app/internal/db/sqlc"
	"github.com/itsmeasadali/follow-up-for-review-shopify-app/internal/reviews/domain"
)

const uniqueViolation = "23505"

type SQLCRepository struct{ q *db.Queries }

func New(pg *pgxpool.Pool) *SQLCRepository { return &SQLCRepository{q: db.New(pg)} }

var (
	_ domain.SentStore   = (*SQLCRepository)(nil)
	_ domain.SentHistory = (*SQLCRepository)(nil)
)

func (r *SQLCRepository) Exists(ctx context.Context, shopID, orderID string) (bool, error) {
	_, err := r.q.GetSentReviewEmail(ctx, db.GetSentReviewEmailParams{ShopID: shopID, OrderID: orderID})
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Record inserts the sent row. The (shop_id, order_id) unique constraint
// turns a racing second insert into domain.ErrDuplicateRecord.
func (r *SQLCRepository) Record(ctx context.Context, rec domain.SentRecord) error {
	_, err := r.q.CreateSentReviewEmail(ctx, db.CreateSentReviewEmailParams{
		ID:        pgtype.UUID{Bytes: uuid.New(), Valid: true},
		ShopID:    rec.ShopID,
		OrderID:   rec.OrderID,
		MessageID: pgtype.Text{String: rec.MessageID, Valid: rec.MessageID != ""},
	})
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return domain.ErrDuplicateRecord
	}
	return err
}

func (r *SQLCRepository) ListSent(ctx context.Context, shopID string, limit int) ([]domain.SentRecord, error) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	rows, err := r.q.ListSentReviewEmailsByShop(ctx, db.ListSentReviewEmailsByShopParams{ShopID: shopID, Limit: int32(limit)})
	if err != nil {
		return nil, err
	}
	out := make([]domain.SentRecord, 0, len(rows))
	for _, row := range rows {
		out = append(out, domain.SentRecord{
			ShopID:    row.ShopID,
			OrderID:   row.OrderID,
			MessageID: row.MessageID.String,
			SentAt:    row.SentAt.Time,
		})
	}
	return out, nil
}
