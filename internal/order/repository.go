package order

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// DBPool matches the methods from *pgxpool.Pool that we use.
type DBPool interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

type Repository interface {
	Create(ctx context.Context, o *Order) error
	GetByID(ctx context.Context, orderID string) (*Order, error)
	GetByGatewayOrderID(ctx context.Context, gatewayOrderID string) (*Order, error)
	ListByUser(ctx context.Context, userID string) ([]Order, error)
	// MarkPaid moves Pending to Paid. Paid stays Paid and reports changed=false.
	MarkPaid(ctx context.Context, gatewayOrderID, paymentID string) (o *Order, changed bool, err error)
	// MarkFailed moves Pending to Failed. Failed stays Failed and reports changed=false.
	MarkFailed(ctx context.Context, gatewayOrderID, reason string) (o *Order, changed bool, err error)
	UpdateDeliveryStatus(ctx context.Context, orderID string, from, to DeliveryStatus) (*Order, error)
}

var orderColumnNames = []string{
	"id::text", "user_id", "cart_id::text", "items", "total_amount", "currency", "delivery_details",
	"gateway_order_id", "gateway_payment_id", "receipt", "payment_status", "delivery_status",
	"failure_reason", "paid_at", "created_at", "updated_at",
}

func orderColumns(alias string) string {
	if alias == "" {
		return strings.Join(orderColumnNames, ", ")
	}
	prefixed := make([]string, len(orderColumnNames))
	for i, c := range orderColumnNames {
		prefixed[i] = alias + "." + c
	}
	return strings.Join(prefixed, ", ")
}

type PostgresRepository struct {
	pool DBPool
}

func NewPostgresRepository(pool DBPool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

func (r *PostgresRepository) Create(ctx context.Context, o *Order) error {
	items, err := json.Marshal(o.Items)
	if err != nil {
		return fmt.Errorf("marshal order items: %w", err)
	}
	delivery, err := json.Marshal(o.DeliveryDetails)
	if err != nil {
		return fmt.Errorf("marshal delivery details: %w", err)
	}
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	if o.PaymentStatus == "" {
		o.PaymentStatus = PaymentPending
	}
	if o.DeliveryStatus == "" {
		o.DeliveryStatus = DeliveryPending
	}

	err = r.pool.QueryRow(ctx, `
		INSERT INTO orders (id, user_id, cart_id, items, total_amount, currency, delivery_details,
			gateway_order_id, receipt, payment_status, delivery_status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING created_at, updated_at
	`, o.ID, o.UserID, o.CartID, items, o.TotalAmount, o.Currency, delivery,
		o.GatewayOrderID, o.Receipt, string(o.PaymentStatus), string(o.DeliveryStatus),
	).Scan(&o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}
	return nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, orderID string) (*Order, error) {
	if _, err := uuid.Parse(orderID); err != nil {
		return nil, ErrNotFound
	}
	row := r.pool.QueryRow(ctx, `SELECT `+orderColumns("")+` FROM orders WHERE id = $1`, orderID)
	return scanOrder(row)
}

func (r *PostgresRepository) GetByGatewayOrderID(ctx context.Context, gatewayOrderID string) (*Order, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+orderColumns("")+` FROM orders WHERE gateway_order_id = $1`, gatewayOrderID)
	return scanOrder(row)
}

func (r *PostgresRepository) ListByUser(ctx context.Context, userID string) ([]Order, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+orderColumns("")+`
		FROM orders
		WHERE user_id = $1
		ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("query orders: %w", err)
	}
	defer rows.Close()

	orders := []Order{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, *o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate orders: %w", err)
	}
	return orders, nil
}

func (r *PostgresRepository) MarkPaid(ctx context.Context, gatewayOrderID, paymentID string) (*Order, bool, error) {
	// The locked subquery sees the committed status of any racing writer, so
	// exactly one caller observes prev = 'Pending'.
	row := r.pool.QueryRow(ctx, `
		UPDATE orders o
		SET payment_status = 'Paid',
			gateway_payment_id = CASE WHEN prev.payment_status = 'Pending' THEN $2 ELSE o.gateway_payment_id END,
			paid_at = COALESCE(o.paid_at, now()),
			updated_at = CASE WHEN prev.payment_status = 'Pending' THEN now() ELSE o.updated_at END
		FROM (
			SELECT id, payment_status FROM orders WHERE gateway_order_id = $1 FOR UPDATE
		) prev
		WHERE o.id = prev.id AND prev.payment_status IN ('Pending', 'Paid')
		RETURNING `+orderColumns("o")+`, prev.payment_status
	`, gatewayOrderID, paymentID)
	return r.transition(ctx, row, gatewayOrderID)
}

func (r *PostgresRepository) MarkFailed(ctx context.Context, gatewayOrderID, reason string) (*Order, bool, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE orders o
		SET payment_status = 'Failed',
			failure_reason = CASE WHEN prev.payment_status = 'Pending' THEN $2 ELSE o.failure_reason END,
			updated_at = CASE WHEN prev.payment_status = 'Pending' THEN now() ELSE o.updated_at END
		FROM (
			SELECT id, payment_status FROM orders WHERE gateway_order_id = $1 FOR UPDATE
		) prev
		WHERE o.id = prev.id AND prev.payment_status IN ('Pending', 'Failed')
		RETURNING `+orderColumns("o")+`, prev.payment_status
	`, gatewayOrderID, reason)
	return r.transition(ctx, row, gatewayOrderID)
}

// transition scans the result of a guarded payment update. No row means the
// order is missing or sits in a status the update may not leave.
func (r *PostgresRepository) transition(ctx context.Context, row pgx.Row, gatewayOrderID string) (*Order, bool, error) {
	var prev string
	o, err := scanOrderWith(row, &prev)
	if err == nil {
		return o, PaymentStatus(prev) == PaymentPending, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, false, err
	}

	if _, err := r.GetByGatewayOrderID(ctx, gatewayOrderID); err != nil {
		return nil, false, err
	}
	return nil, false, ErrInvalidTransition
}

func (r *PostgresRepository) UpdateDeliveryStatus(ctx context.Context, orderID string, from, to DeliveryStatus) (*Order, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE orders
		SET delivery_status = $3, updated_at = now()
		WHERE id = $1 AND delivery_status = $2
		RETURNING `+orderColumns(""),
		orderID, string(from), string(to))
	o, err := scanOrder(row)
	if errors.Is(err, ErrNotFound) {
		// Someone else moved the order since it was read.
		return nil, ErrInvalidTransition
	}
	return o, err
}

func scanOrder(row pgx.Row) (*Order, error) {
	return scanOrderWith(row)
}

func scanOrderWith(row pgx.Row, extra ...any) (*Order, error) {
	var (
		o                   Order
		items, delivery     []byte
		payment, deliverySt string
	)
	dest := []any{
		&o.ID, &o.UserID, &o.CartID, &items, &o.TotalAmount, &o.Currency, &delivery,
		&o.GatewayOrderID, &o.GatewayPaymentID, &o.Receipt, &payment, &deliverySt,
		&o.FailureReason, &o.PaidAt, &o.CreatedAt, &o.UpdatedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan order: %w", err)
	}
	if err := json.Unmarshal(items, &o.Items); err != nil {
		return nil, fmt.Errorf("decode order items: %w", err)
	}
	if err := json.Unmarshal(delivery, &o.DeliveryDetails); err != nil {
		return nil, fmt.Errorf("decode delivery details: %w", err)
	}
	o.PaymentStatus = PaymentStatus(payment)
	o.DeliveryStatus = DeliveryStatus(deliverySt)
	return &o, nil
}
