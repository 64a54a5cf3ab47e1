package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var ErrNotFound = errors.New("product not found")

// DBPool matches the methods from *pgxpool.Pool that we use.
// This allows us to mock the database in tests.
type DBPool interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

type Repository interface {
	Get(ctx context.Context, id string) (Product, error)
	GetMany(ctx context.Context, ids []string) (map[string]Product, error)
	List(ctx context.Context, f Filter) (Page, error)
	Create(ctx context.Context, p *Product) error
	Update(ctx context.Context, p *Product) error
	Delete(ctx context.Context, id, ownerID string) error
	Rate(ctx context.Context, id string, rating int) (Product, error)
}

const productColumns = `id::text, title, description, category, price_in_paisa, stock,
	rating_total, rating_count, image, owner_id, created_at, updated_at`

type PostgresRepository struct {
	pool DBPool
}

func NewPostgresRepository(pool DBPool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

func (r *PostgresRepository) Get(ctx context.Context, id string) (Product, error) {
	if !validID(id) {
		return Product{}, ErrNotFound
	}
	row := r.pool.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id)
	return scanProduct(row)
}

// GetMany returns the products that still exist, keyed by id. Missing ids are simply absent.
func (r *PostgresRepository) GetMany(ctx context.Context, ids []string) (map[string]Product, error) {
	out := make(map[string]Product, len(ids))

	valid := make([]string, 0, len(ids))
	for _, id := range ids {
		if validID(id) {
			valid = append(valid, id)
		}
	}
	if len(valid) == 0 {
		return out, nil
	}

	rows, err := r.pool.Query(ctx, `SELECT `+productColumns+` FROM products WHERE id = ANY($1::uuid[])`, valid)
	if err != nil {
		return nil, fmt.Errorf("query products: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out[p.ID] = p
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate products: %w", err)
	}
	return out, nil
}

func (r *PostgresRepository) List(ctx context.Context, f Filter) (Page, error) {
	f = f.normalized()
	where, args := f.whereClause()

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT count(*) FROM products`+where, args...).Scan(&total); err != nil {
		return Page{}, fmt.Errorf("count products: %w", err)
	}

	query := fmt.Sprintf(`SELECT %s FROM products%s ORDER BY %s LIMIT $%d OFFSET $%d`,
		productColumns, where, f.orderBy(), len(args)+1, len(args)+2)
	args = append(args, f.Limit, (f.Page-1)*f.Limit)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return Page{}, fmt.Errorf("query products: %w", err)
	}
	defer rows.Close()

	var products []Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return Page{}, err
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return Page{}, fmt.Errorf("iterate products: %w", err)
	}

	return newPage(products, total, f.Page, f.Limit), nil
}

func (r *PostgresRepository) Create(ctx context.Context, p *Product) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	row := r.pool.QueryRow(ctx, `
		INSERT INTO products (id, title, description, category, price_in_paisa, stock, image, owner_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at, updated_at
	`, p.ID, p.Title, p.Description, string(p.Category), p.PriceInPaisa, p.Stock, p.Image, p.OwnerID)
	if err := row.Scan(&p.CreatedAt, &p.UpdatedAt); err != nil {
		return fmt.Errorf("insert product: %w", err)
	}
	return nil
}

// Update overwrites the editable fields of a product owned by p.OwnerID.
// A product owned by someone else is reported as ErrNotFound.
func (r *PostgresRepository) Update(ctx context.Context, p *Product) error {
	if !validID(p.ID) {
		return ErrNotFound
	}
	row := r.pool.QueryRow(ctx, `
		UPDATE products
		SET title = $3, description = $4, category = $5, price_in_paisa = $6, stock = $7, image = $8, updated_at = now()
		WHERE id = $1 AND owner_id = $2
		RETURNING `+productColumns,
		p.ID, p.OwnerID, p.Title, p.Description, string(p.Category), p.PriceInPaisa, p.Stock, p.Image)
	updated, err := scanProduct(row)
	if err != nil {
		return err
	}
	*p = updated
	return nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id, ownerID string) error {
	if !validID(id) {
		return ErrNotFound
	}
	tag, err := r.pool.Exec(ctx, `DELETE FROM products WHERE id = $1 AND owner_id = $2`, id, ownerID)
	if err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Rate folds a single rating into the running aggregate in one statement.
func (r *PostgresRepository) Rate(ctx context.Context, id string, rating int) (Product, error) {
	if !validID(id) {
		return Product{}, ErrNotFound
	}
	row := r.pool.QueryRow(ctx, `
		UPDATE products
		SET rating_total = rating_total + $2, rating_count = rating_count + 1, updated_at = now()
		WHERE id = $1
		RETURNING `+productColumns, id, rating)
	return scanProduct(row)
}

func scanProduct(row pgx.Row) (Product, error) {
	var (
		p        Product
		category string
	)
	err := row.Scan(&p.ID, &p.Title, &p.Description, &category, &p.PriceInPaisa, &p.Stock,
		&p.RatingTotal, &p.RatingCount, &p.Image, &p.OwnerID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Product{}, ErrNotFound
		}
		return Product{}, fmt.Errorf("scan product: %w", err)
	}
	p.Category = Category(category)
	p.AvgRating = averageRating(p.RatingTotal, p.RatingCount)
	return p, nil
}

func (f Filter) whereClause() (string, []any) {
	var (
		conds []string
		args  []any
	)
	add := func(cond string, arg any) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if len(f.Categories) > 0 {
		cats := make([]string, 0, len(f.Categories))
		for _, c := range f.Categories {
			cats = append(cats, string(c))
		}
		add("category = ANY($%d)", cats)
	}
	if f.MinPrice != nil {
		add("price_in_paisa >= $%d", *f.MinPrice)
	}
	if f.MaxPrice != nil {
		add("price_in_paisa <= $%d", *f.MaxPrice)
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		add("title ILIKE $%d", "%"+escapeLike(s)+"%")
	}
	if f.OwnerID != "" {
		add("owner_id = $%d", f.OwnerID)
	}

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func (f Filter) orderBy() string {
	switch f.Sort {
	case SortPriceAsc:
		return "price_in_paisa ASC, created_at DESC"
	case SortPriceDesc:
		return "price_in_paisa DESC, created_at DESC"
	default:
		return "created_at DESC"
	}
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
