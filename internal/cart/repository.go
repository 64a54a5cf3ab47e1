package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// DBPool matches the methods from *pgxpool.Pool that we use.
type DBPool interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type Repository interface {
	GetByUser(ctx context.Context, userID string) (*Cart, error)
	GetByID(ctx context.Context, cartID string) (*Cart, error)
	// Insert creates the user's first cart. ErrConflict if one already exists.
	Insert(ctx context.Context, c *Cart) error
	// Update writes c only if the stored version still equals c.Version,
	// then advances c.Version. ErrConflict otherwise.
	Update(ctx context.Context, c *Cart) error
}

const cartColumns = `id::text, user_id, items, total_quantity, total_price_in_paisa, version, created_at, updated_at`

type PostgresRepository struct {
	pool DBPool
}

func NewPostgresRepository(pool DBPool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

func (r *PostgresRepository) GetByUser(ctx context.Context, userID string) (*Cart, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+cartColumns+` FROM carts WHERE user_id = $1`, userID)
	return scanCart(row)
}

func (r *PostgresRepository) GetByID(ctx context.Context, cartID string) (*Cart, error) {
	if _, err := uuid.Parse(cartID); err != nil {
		return nil, ErrCartNotFound
	}
	row := r.pool.QueryRow(ctx, `SELECT `+cartColumns+` FROM carts WHERE id = $1`, cartID)
	return scanCart(row)
}

func (r *PostgresRepository) Insert(ctx context.Context, c *Cart) error {
	items, err := json.Marshal(c.Items)
	if err != nil {
		return fmt.Errorf("marshal cart items: %w", err)
	}
	if c.ID == "" {
		c.ID = uuid.NewString()
	}

	err = r.pool.QueryRow(ctx, `
		INSERT INTO carts (id, user_id, items, total_quantity, total_price_in_paisa, version)
		VALUES ($1, $2, $3, $4, $5, 1)
		ON CONFLICT (user_id) DO NOTHING
		RETURNING version, created_at, updated_at
	`, c.ID, c.UserID, items, c.TotalQuantity, c.TotalPriceInPaisa).Scan(&c.Version, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrConflict
		}
		return fmt.Errorf("insert cart: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Update(ctx context.Context, c *Cart) error {
	items, err := json.Marshal(c.Items)
	if err != nil {
		return fmt.Errorf("marshal cart items: %w", err)
	}

	err = r.pool.QueryRow(ctx, `
		UPDATE carts
		SET items = $3, total_quantity = $4, total_price_in_paisa = $5, version = version + 1, updated_at = now()
		WHERE id = $1 AND version = $2
		RETURNING version, updated_at
	`, c.ID, c.Version, items, c.TotalQuantity, c.TotalPriceInPaisa).Scan(&c.Version, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrConflict
		}
		return fmt.Errorf("update cart: %w", err)
	}
	return nil
}

func scanCart(row pgx.Row) (*Cart, error) {
	var (
		c     Cart
		items []byte
	)
	err := row.Scan(&c.ID, &c.UserID, &items, &c.TotalQuantity, &c.TotalPriceInPaisa, &c.Version, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCartNotFound
		}
		return nil, fmt.Errorf("scan cart: %w", err)
	}
	if err := json.Unmarshal(items, &c.Items); err != nil {
		return nil, fmt.Errorf("decode cart items: %w", err)
	}
	if c.Items == nil {
		c.Items = []Item{}
	}
	return &c, nil
}
