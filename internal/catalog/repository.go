package catalog

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/db"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/errs"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/paging"
)

const productColumns = `id, name, description, image, price, stock_quantity, created_at, updated_at`

type Repository interface {
	Get(ctx context.Context, id string) (Product, error)
	List(ctx context.Context, search string, req paging.Request) (paging.Page[Product], error)
	Related(ctx context.Context, id string, limit int) ([]Product, error)
	Bestsellers(ctx context.Context, limit int) ([]Product, error)
	NewArrivals(ctx context.Context, limit int) ([]Product, error)
	Create(ctx context.Context, p *Product) error
}

type PostgresRepository struct {
	pool db.Querier
}

func NewPostgresRepository(pool db.Querier) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

func (r *PostgresRepository) Get(ctx context.Context, id string) (Product, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id)
	return scanOne(row)
}

func (r *PostgresRepository) List(ctx context.Context, search string, req paging.Request) (paging.Page[Product], error) {
	where := ""
	args := []any{}
	if s := strings.TrimSpace(search); s != "" {
		where = ` WHERE name ILIKE $1 OR description ILIKE $1`
		args = append(args, "%"+escapeLike(s)+"%")
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT count(*) FROM products`+where, args...).Scan(&total); err != nil {
		return paging.Page[Product]{}, fmt.Errorf("count products: %w", err)
	}

	n := len(args)
	q := fmt.Sprintf(`SELECT %s FROM products%s ORDER BY created_at DESC, id LIMIT $%d OFFSET $%d`, productColumns, where, n+1, n+2)
	products, err := r.query(ctx, q, append(args, req.PerPage, req.Offset())...)
	if err != nil {
		return paging.Page[Product]{}, fmt.Errorf("list products: %w", err)
	}
	return paging.New(products, req, total), nil
}

func (r *PostgresRepository) Related(ctx context.Context, id string, limit int) ([]Product, error) {
	return r.query(ctx, `SELECT `+productColumns+` FROM products WHERE id <> $1 ORDER BY random() LIMIT $2`, id, limit)
}

// Bestsellers lists the longest-standing products first.
func (r *PostgresRepository) Bestsellers(ctx context.Context, limit int) ([]Product, error) {
	return r.query(ctx, `SELECT `+productColumns+` FROM products ORDER BY created_at ASC, id LIMIT $1`, limit)
}

func (r *PostgresRepository) NewArrivals(ctx context.Context, limit int) ([]Product, error) {
	return r.query(ctx, `SELECT `+productColumns+` FROM products ORDER BY created_at DESC, id LIMIT $1`, limit)
}

func (r *PostgresRepository) Create(ctx context.Context, p *Product) error {
	if p.Price.IsNegative() {
		return errs.Invalid("price must not be negative")
	}
	if p.StockQuantity < 0 {
		return errs.Invalid("stock quantity must not be negative")
	}
	if strings.TrimSpace(p.Name) == "" {
		return errs.Invalid("name is required")
	}
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	p.CreatedAt, p.UpdatedAt = now, now

	_, err := r.pool.Exec(ctx, `
		INSERT INTO products (id, name, description, image, price, stock_quantity, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, p.ID, p.Name, p.Description, p.Image, p.Price, p.StockQuantity, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert product: %w", err)
	}
	return nil
}

// LockForUpdate reads a product and holds its row lock until q's
// transaction ends.
func LockForUpdate(ctx context.Context, q db.Querier, id string) (Product, error) {
	row := q.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1 FOR UPDATE`, id)
	return scanOne(row)
}

// LockManyForUpdate locks the given products in ascending id order so that
// concurrent callers with overlapping sets cannot deadlock. Missing ids are
// absent from the result.
func LockManyForUpdate(ctx context.Context, q db.Querier, ids []string) (map[string]Product, error) {
	sorted := append([]string(nil), ids...)
	sort.Strings(sorted)

	rows, err := q.Query(ctx, `SELECT `+productColumns+` FROM products WHERE id = ANY($1) ORDER BY id FOR UPDATE`, sorted)
	if err != nil {
		return nil, fmt.Errorf("lock products: %w", err)
	}
	products, err := collect(rows)
	if err != nil {
		return nil, fmt.Errorf("lock products: %w", err)
	}

	out := make(map[string]Product, len(products))
	for _, p := range products {
		out[p.ID] = p
	}
	return out, nil
}

func (r *PostgresRepository) query(ctx context.Context, sql string, args ...any) ([]Product, error) {
	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	return collect(rows)
}

func collect(rows pgx.Rows) ([]Product, error) {
	defer rows.Close()

	products := []Product{}
	for rows.Next() {
		p, err := scanOne(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

func scanOne(row pgx.Row) (Product, error) {
	var p Product
	err := row.Scan(&p.ID, &p.Name, &p.Description, &p.Image, &p.Price, &p.StockQuantity, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Product{}, errs.ErrNotFound
		}
		return Product{}, err
	}
	return p, nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
