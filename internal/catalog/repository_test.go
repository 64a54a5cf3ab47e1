package catalog

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	shirtID = "5b0c8e58-4f39-4f6c-9d26-7a4f1c3b2a10"
	shoeID  = "9d1f7a22-8c4e-4a57-b0f3-2e6d5c4b3a21"
)

var fixedTime = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func productRows() *pgxmock.Rows {
	return pgxmock.NewRows([]string{
		"id", "title", "description", "category", "price_in_paisa", "stock",
		"rating_total", "rating_count", "image", "owner_id", "created_at", "updated_at",
	})
}

func addProductRow(rows *pgxmock.Rows, id, title string, price int64, stock int) *pgxmock.Rows {
	return rows.AddRow(id, title, "desc", "Men", price, stock, int64(9), 2, "https://cdn/img.png", "seller-1", fixedTime, fixedTime)
}

func newMock(t *testing.T) (pgxmock.PgxPoolIface, *PostgresRepository) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return mock, NewPostgresRepository(mock)
}

func TestPostgresRepository_Get(t *testing.T) {
	ctx := context.Background()
	mock, repo := newMock(t)

	mock.ExpectQuery(regexp.QuoteMeta("FROM products WHERE id = $1")).
		WithArgs(shirtID).
		WillReturnRows(addProductRow(productRows(), shirtID, "Shirt", 5000, 3))

	p, err := repo.Get(ctx, shirtID)
	require.NoError(t, err)
	assert.Equal(t, "Shirt", p.Title)
	assert.Equal(t, CategoryMen, p.Category)
	assert.Equal(t, int64(5000), p.PriceInPaisa)
	assert.Equal(t, 4.5, p.AvgRating)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_GetMissing(t *testing.T) {
	ctx := context.Background()
	mock, repo := newMock(t)

	mock.ExpectQuery(regexp.QuoteMeta("FROM products WHERE id = $1")).
		WithArgs(shirtID).
		WillReturnError(pgx.ErrNoRows)

	_, err := repo.Get(ctx, shirtID)
	assert.True(t, errors.Is(err, ErrNotFound), "got %v", err)

	_, err = repo.Get(ctx, "not-a-uuid")
	assert.ErrorIs(t, err, ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_GetMany(t *testing.T) {
	ctx := context.Background()
	mock, repo := newMock(t)

	rows := productRows()
	addProductRow(rows, shirtID, "Shirt", 5000, 3)
	addProductRow(rows, shoeID, "Shoe", 12000, 1)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE id = ANY($1::uuid[])")).
		WithArgs([]string{shirtID, shoeID}).
		WillReturnRows(rows)

	got, err := repo.GetMany(ctx, []string{shirtID, "garbage", shoeID})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, int64(12000), got[shoeID].PriceInPaisa)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_GetMany_NoValidIDs(t *testing.T) {
	mock, repo := newMock(t)

	got, err := repo.GetMany(context.Background(), []string{"x"})
	require.NoError(t, err)
	assert.Empty(t, got)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_List(t *testing.T) {
	ctx := context.Background()
	mock, repo := newMock(t)

	min := int64(10000)
	filter := Filter{
		Categories: []Category{CategoryMen, CategoryKids},
		MinPrice:   &min,
		Search:     "shi_rt",
		Sort:       SortPriceAsc,
		Page:       2,
		Limit:      1,
	}

	mock.ExpectQuery(regexp.QuoteMeta("SELECT count(*) FROM products WHERE category = ANY($1) AND price_in_paisa >= $2 AND title ILIKE $3")).
		WithArgs([]string{"Men", "Kids"}, int64(10000), `%shi\_rt%`).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(3))

	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY price_in_paisa ASC, created_at DESC LIMIT $4 OFFSET $5")).
		WithArgs([]string{"Men", "Kids"}, int64(10000), `%shi\_rt%`, 1, 1).
		WillReturnRows(addProductRow(productRows(), shirtID, "Shirt", 15000, 3))

	page, err := repo.List(ctx, filter)
	require.NoError(t, err)
	assert.Len(t, page.Products, 1)
	assert.Equal(t, 2, page.CurrentPage)
	assert.Equal(t, 3, page.TotalPages)
	assert.Equal(t, 3, page.TotalProducts)
	assert.True(t, page.HasMore)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_List_DefaultsAndEmpty(t *testing.T) {
	ctx := context.Background()
	mock, repo := newMock(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT count(*) FROM products")).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY created_at DESC LIMIT $1 OFFSET $2")).
		WithArgs(DefaultPageSize, 0).
		WillReturnRows(productRows())

	page, err := repo.List(ctx, Filter{Sort: "bogus"})
	require.NoError(t, err)
	assert.NotNil(t, page.Products)
	assert.Empty(t, page.Products)
	assert.Equal(t, 1, page.CurrentPage)
	assert.Equal(t, 0, page.TotalPages)
	assert.False(t, page.HasMore)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_Create(t *testing.T) {
	ctx := context.Background()
	mock, repo := newMock(t)

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO products")).
		WithArgs(pgxmock.AnyArg(), "Shirt", "", "Men", int64(49900), 4, "", "seller-1").
		WillReturnRows(pgxmock.NewRows([]string{"created_at", "updated_at"}).AddRow(fixedTime, fixedTime))

	p := Product{Title: "Shirt", Category: CategoryMen, PriceInPaisa: 49900, Stock: 4, OwnerID: "seller-1"}
	require.NoError(t, repo.Create(ctx, &p))
	assert.NotEmpty(t, p.ID)
	assert.Equal(t, fixedTime, p.CreatedAt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_UpdateNotOwned(t *testing.T) {
	ctx := context.Background()
	mock, repo := newMock(t)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE id = $1 AND owner_id = $2")).
		WithArgs(shirtID, "seller-2", "Shirt", "", "Men", int64(100), 1, "").
		WillReturnError(pgx.ErrNoRows)

	p := Product{ID: shirtID, OwnerID: "seller-2", Title: "Shirt", Category: CategoryMen, PriceInPaisa: 100, Stock: 1}
	err := repo.Update(ctx, &p)
	assert.ErrorIs(t, err, ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_Delete(t *testing.T) {
	ctx := context.Background()

	tests := map[string]struct {
		affected int64
		wantErr  error
	}{
		"deleted":   {affected: 1},
		"not owned": {affected: 0, wantErr: ErrNotFound},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			mock, repo := newMock(t)
			mock.ExpectExec(regexp.QuoteMeta("DELETE FROM products WHERE id = $1 AND owner_id = $2")).
				WithArgs(shirtID, "seller-1").
				WillReturnResult(pgxmock.NewResult("DELETE", tc.affected))

			err := repo.Delete(ctx, shirtID, "seller-1")
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
			} else {
				assert.NoError(t, err)
			}
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestPostgresRepository_Rate(t *testing.T) {
	ctx := context.Background()
	mock, repo := newMock(t)

	mock.ExpectQuery(regexp.QuoteMeta("SET rating_total = rating_total + $2, rating_count = rating_count + 1")).
		WithArgs(shirtID, 4).
		WillReturnRows(addProductRow(productRows(), shirtID, "Shirt", 5000, 3))

	p, err := repo.Rate(ctx, shirtID, 4)
	require.NoError(t, err)
	assert.Equal(t, 2, p.RatingCount)
	require.NoError(t, mock.ExpectationsWereMet())
}
