package cart

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const cartID = "0e5f0a77-3d0a-4b7e-8f41-6c2d9b1a0f33"

var now = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func newMock(t *testing.T) (pgxmock.PgxPoolIface, *PostgresRepository) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return mock, NewPostgresRepository(mock)
}

func cartRows() *pgxmock.Rows {
	return pgxmock.NewRows([]string{
		"id", "user_id", "items", "total_quantity", "total_price_in_paisa", "version", "created_at", "updated_at",
	})
}

func TestPostgresRepository_GetByUser(t *testing.T) {
	mock, repo := newMock(t)

	mock.ExpectQuery(regexp.QuoteMeta("FROM carts WHERE user_id = $1")).
		WithArgs("user-1").
		WillReturnRows(cartRows().AddRow(cartID, "user-1", []byte(`[{"productId":"p","quantity":2}]`), 2, int64(10000), int64(4), now, now))

	c, err := repo.GetByUser(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, []Item{{ProductID: "p", Quantity: 2}}, c.Items)
	assert.Equal(t, int64(4), c.Version)
	assert.Equal(t, int64(10000), c.TotalPriceInPaisa)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_GetByIDMissing(t *testing.T) {
	mock, repo := newMock(t)

	mock.ExpectQuery(regexp.QuoteMeta("FROM carts WHERE id = $1")).
		WithArgs(cartID).
		WillReturnError(pgx.ErrNoRows)

	_, err := repo.GetByID(context.Background(), cartID)
	assert.ErrorIs(t, err, ErrCartNotFound)

	_, err = repo.GetByID(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrCartNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_InsertRace(t *testing.T) {
	mock, repo := newMock(t)

	mock.ExpectQuery(regexp.QuoteMeta("ON CONFLICT (user_id) DO NOTHING")).
		WithArgs(cartID, "user-1", []byte(`[]`), 0, int64(0)).
		WillReturnError(pgx.ErrNoRows)

	err := repo.Insert(context.Background(), &Cart{ID: cartID, UserID: "user-1", Items: []Item{}})
	assert.ErrorIs(t, err, ErrConflict)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_UpdateVersioned(t *testing.T) {
	tests := map[string]struct {
		setup   func(e *pgxmock.ExpectedQuery)
		wantErr error
		wantVer int64
	}{
		"version matches": {
			setup: func(e *pgxmock.ExpectedQuery) {
				e.WillReturnRows(pgxmock.NewRows([]string{"version", "updated_at"}).AddRow(int64(4), now))
			},
			wantVer: 4,
		},
		"stale version": {
			setup: func(e *pgxmock.ExpectedQuery) {
				e.WillReturnError(pgx.ErrNoRows)
			},
			wantErr: ErrConflict,
			wantVer: 3,
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			mock, repo := newMock(t)

			e := mock.ExpectQuery(regexp.QuoteMeta("WHERE id = $1 AND version = $2")).
				WithArgs(cartID, int64(3), []byte(`[{"productId":"p","quantity":1}]`), 1, int64(5000))
			tc.setup(e)

			c := &Cart{ID: cartID, UserID: "u", Items: []Item{{ProductID: "p", Quantity: 1}}, TotalQuantity: 1, TotalPriceInPaisa: 5000, Version: 3}
			err := repo.Update(context.Background(), c)
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tc.wantVer, c.Version)
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}
