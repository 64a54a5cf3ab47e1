package order

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

const (
	orderID = "3f6c2a1e-9b7d-4e8a-a1c2-5d4e3f2a1b0c"
	cartID  = "0e5f0a77-3d0a-4b7e-8f41-6c2d9b1a0f33"
)

var created = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func newMock(t *testing.T) (pgxmock.PgxPoolIface, *PostgresRepository) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return mock, NewPostgresRepository(mock)
}

var columns = []string{
	"id", "user_id", "cart_id", "items", "total_amount", "currency", "delivery_details",
	"gateway_order_id", "gateway_payment_id", "receipt", "payment_status", "delivery_status",
	"failure_reason", "paid_at", "created_at", "updated_at",
}

func orderValues(status PaymentStatus, paidAt *time.Time) []any {
	return []any{
		orderID, "user-1", cartID, []byte(`[{"productId":"p","quantity":2}]`), int64(10000), "INR",
		[]byte(`{"fullName":"Asha Rao","city":"Pune"}`), "order_GW1", "", "rcpt-1", string(status), "Pending",
		"", paidAt, created, created,
	}
}

func transitionRows(status, prev PaymentStatus) *pgxmock.Rows {
	paidAt := (*time.Time)(nil)
	if status == PaymentPaid {
		paidAt = &created
	}
	vals := append(orderValues(status, paidAt), string(prev))
	return pgxmock.NewRows(append(append([]string{}, columns...), "payment_status")).AddRow(vals...)
}

func TestPostgresRepository_Create(t *testing.T) {
	mock, repo := newMock(t)

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO orders")).
		WithArgs(pgxmock.AnyArg(), "user-1", cartID, []byte(`[{"productId":"p","quantity":2}]`), int64(10000), "INR",
			pgxmock.AnyArg(), "order_GW1", "rcpt-1", "Pending", "Pending").
		WillReturnRows(pgxmock.NewRows([]string{"created_at", "updated_at"}).AddRow(created, created))

	o := &Order{
		UserID:         "user-1",
		CartID:         cartID,
		Items:          []Item{{ProductID: "p", Quantity: 2}},
		TotalAmount:    10000,
		Currency:       "INR",
		GatewayOrderID: "order_GW1",
		Receipt:        "rcpt-1",
	}
	require.NoError(t, repo.Create(context.Background(), o))
	assert.NotEmpty(t, o.ID)
	assert.Equal(t, PaymentPending, o.PaymentStatus)
	assert.Equal(t, DeliveryPending, o.DeliveryStatus)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_GetByID(t *testing.T) {
	mock, repo := newMock(t)

	mock.ExpectQuery(regexp.QuoteMeta("FROM orders WHERE id = $1")).
		WithArgs(orderID).
		WillReturnRows(pgxmock.NewRows(columns).AddRow(orderValues(PaymentPending, nil)...))

	o, err := repo.GetByID(context.Background(), orderID)
	require.NoError(t, err)
	assert.Equal(t, "Asha Rao", o.DeliveryDetails.FullName)
	assert.Equal(t, []Item{{ProductID: "p", Quantity: 2}}, o.Items)
	assert.Nil(t, o.PaidAt)

	_, err = repo.GetByID(context.Background(), "bogus")
	assert.ErrorIs(t, err, ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_ListByUserNewestFirst(t *testing.T) {
	mock, repo := newMock(t)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE user_id = $1 ORDER BY created_at DESC")).
		WithArgs("user-1").
		WillReturnRows(pgxmock.NewRows(columns).
			AddRow(orderValues(PaymentPaid, &created)...).
			AddRow(orderValues(PaymentPending, nil)...))

	orders, err := repo.ListByUser(context.Background(), "user-1")
	require.NoError(t, err)
	require.Len(t, orders, 2)
	assert.Equal(t, PaymentPaid, orders[0].PaymentStatus)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_MarkPaid(t *testing.T) {
	ctx := context.Background()
	markPaid := regexp.QuoteMeta("SET payment_status = 'Paid'")
	lookup := regexp.QuoteMeta("FROM orders WHERE gateway_order_id = $1")

	t.Run("pending becomes paid", func(t *testing.T) {
		mock, repo := newMock(t)
		mock.ExpectQuery(markPaid).
			WithArgs("order_GW1", "pay_1").
			WillReturnRows(transitionRows(PaymentPaid, PaymentPending))

		o, changed, err := repo.MarkPaid(ctx, "order_GW1", "pay_1")
		require.NoError(t, err)
		assert.True(t, changed)
		assert.Equal(t, PaymentPaid, o.PaymentStatus)
		assert.NotNil(t, o.PaidAt)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("already paid is a no-op", func(t *testing.T) {
		mock, repo := newMock(t)
		mock.ExpectQuery(markPaid).
			WithArgs("order_GW1", "pay_1").
			WillReturnRows(transitionRows(PaymentPaid, PaymentPaid))

		_, changed, err := repo.MarkPaid(ctx, "order_GW1", "pay_1")
		require.NoError(t, err)
		assert.False(t, changed)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unknown order", func(t *testing.T) {
		mock, repo := newMock(t)
		mock.ExpectQuery(markPaid).WithArgs("order_X", "pay_1").WillReturnError(pgx.ErrNoRows)
		mock.ExpectQuery(lookup).WithArgs("order_X").WillReturnError(pgx.ErrNoRows)

		_, _, err := repo.MarkPaid(ctx, "order_X", "pay_1")
		assert.ErrorIs(t, err, ErrNotFound)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("failed order cannot be paid", func(t *testing.T) {
		mock, repo := newMock(t)
		mock.ExpectQuery(markPaid).WithArgs("order_GW1", "pay_1").WillReturnError(pgx.ErrNoRows)
		mock.ExpectQuery(lookup).
			WithArgs("order_GW1").
			WillReturnRows(pgxmock.NewRows(columns).AddRow(orderValues(PaymentFailed, nil)...))

		_, changed, err := repo.MarkPaid(ctx, "order_GW1", "pay_1")
		assert.ErrorIs(t, err, ErrInvalidTransition)
		assert.False(t, changed)
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPostgresRepository_MarkFailed(t *testing.T) {
	mock, repo := newMock(t)
	mock.ExpectQuery(regexp.QuoteMeta("SET payment_status = 'Failed'")).
		WithArgs("order_GW1", "card declined").
		WillReturnRows(transitionRows(PaymentFailed, PaymentPending))

	o, changed, err := repo.MarkFailed(context.Background(), "order_GW1", "card declined")
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, PaymentFailed, o.PaymentStatus)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_UpdateDeliveryStatusLostRace(t *testing.T) {
	mock, repo := newMock(t)
	mock.ExpectQuery(regexp.QuoteMeta("WHERE id = $1 AND delivery_status = $2")).
		WithArgs(orderID, "Pending", "Dispatched").
		WillReturnError(pgx.ErrNoRows)

	_, err := repo.UpdateDeliveryStatus(context.Background(), orderID, DeliveryPending, DeliveryDispatched)
	assert.ErrorIs(t, err, ErrInvalidTransition)
	require.NoError(t, mock.ExpectationsWereMet())
}
