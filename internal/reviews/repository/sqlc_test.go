package repository

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itsmeasadali/follow-up-for-review-shopify-app/internal/reviews/domain"
)

func setupRepo(t *testing.T) *SQLCRepository {
	if os.Getenv("DATABASE_URL") == "" {
		t.Skip("skipping integration test: DATABASE_URL not set")
	}
	pool, err := pgxpool.New(context.Background(), os.Getenv("DATABASE_URL"))
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	return New(pool)
}

func TestSQLCRepository_RecordAndExists(t *testing.T) {
	r := setupRepo(t)
	ctx := context.Background()
	shop := "repo-" + uuid.NewString() + ".myshopify.com"

	ok, err := r.Exists(ctx, shop, "o1")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, r.Record(ctx, domain.SentRecord{ShopID: shop, OrderID: "o1", MessageID: "<m1@x>"}))

	ok, err = r.Exists(ctx, shop, "o1")
	require.NoError(t, err)
	assert.True(t, ok)

	err = r.Record(ctx, domain.SentRecord{ShopID: shop, OrderID: "o1"})
	assert.ErrorIs(t, err, domain.ErrDuplicateRecord)

	// same order id under another shop is a different key
	require.NoError(t, r.Record(ctx, domain.SentRecord{ShopID: "other-" + shop, OrderID: "o1"}))

	hist, err := r.ListSent(ctx, shop, 10)
	require.NoError(t, err)
	require.Len(t, hist, 1)
	assert.Equal(t, "<m1@x>", hist[0].MessageID)
}

func TestSQLCRepository_ConcurrentRecordsYieldOneRow(t *testing.T) {
	r := setupRepo(t)
	ctx := context.Background()
	shop := "race-" + uuid.NewString() + ".myshopify.com"

	const n = 10
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = r.Record(ctx, domain.SentRecord{ShopID: shop, OrderID: "o1"})
		}(i)
	}
	wg.Wait()

	ok, dup := 0, 0
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, domain.ErrDuplicateRecord):
			dup++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, n-1, dup)
}
