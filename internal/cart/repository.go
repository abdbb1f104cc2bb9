package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/catalog"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/db"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/errs"
)

// Store is the persistence the cart service needs. All mutations go through
// InTx so the stock check and the write share one transaction.
type Store interface {
	InTx(ctx context.Context, fn func(tx Tx) error) error
	Load(ctx context.Context, userID string) (*Cart, error)
}

type Tx interface {
	// LockProduct reads the product and holds its row lock until the
	// transaction ends.
	LockProduct(ctx context.Context, productID string) (catalog.Product, error)
	// EnsureCart returns the user's cart id, creating the cart if needed.
	EnsureCart(ctx context.Context, userID string) (string, error)
	ItemByProduct(ctx context.Context, cartID, productID string) (Item, bool, error)
	// ItemForUser returns errs.ErrNotFound unless the item is in userID's cart.
	ItemForUser(ctx context.Context, userID, itemID string) (Item, error)
	SaveItem(ctx context.Context, it *Item) error
	DeleteItem(ctx context.Context, itemID string) error
	DeleteItemsForUser(ctx context.Context, userID string) error
}

type PostgresStore struct {
	pool db.Pool
}

func NewPostgresStore(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) InTx(ctx context.Context, fn func(tx Tx) error) error {
	return db.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		return fn(&pgTx{tx: tx})
	})
}

// Load returns nil when the user has no cart.
func (s *PostgresStore) Load(ctx context.Context, userID string) (*Cart, error) {
	c := &Cart{UserID: userID}
	err := s.pool.QueryRow(ctx, `SELECT id, updated_at FROM carts WHERE user_id = $1`, userID).Scan(&c.ID, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("select cart: %w", err)
	}

	rows, err := s.pool.Query(ctx, `
		SELECT ci.id, ci.product_id, ci.quantity,
		       p.name, p.description, p.image, p.price, p.stock_quantity, p.created_at, p.updated_at
		FROM cart_items ci
		JOIN products p ON p.id = ci.product_id
		WHERE ci.cart_id = $1
		ORDER BY ci.created_at, ci.id
	`, c.ID)
	if err != nil {
		return nil, fmt.Errorf("select cart items: %w", err)
	}
	defer rows.Close()

	c.Items = []Line{}
	for rows.Next() {
		l := Line{Item: Item{CartID: c.ID}}
		p := &l.Product
		if err := rows.Scan(&l.ID, &l.ProductID, &l.Quantity,
			&p.Name, &p.Description, &p.Image, &p.Price, &p.StockQuantity, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan cart item: %w", err)
		}
		p.ID = l.ProductID
		c.Items = append(c.Items, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return c, nil
}

type pgTx struct {
	tx pgx.Tx
}

func (t *pgTx) LockProduct(ctx context.Context, productID string) (catalog.Product, error) {
	return catalog.LockForUpdate(ctx, t.tx, productID)
}

func (t *pgTx) EnsureCart(ctx context.Context, userID string) (string, error) {
	var id string
	err := t.tx.QueryRow(ctx, `
		INSERT INTO carts (id, user_id, created_at, updated_at)
		VALUES ($1, $2, now(), now())
		ON CONFLICT (user_id) DO UPDATE SET updated_at = now()
		RETURNING id
	`, uuid.NewString(), userID).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("upsert cart: %w", err)
	}
	return id, nil
}

func (t *pgTx) ItemByProduct(ctx context.Context, cartID, productID string) (Item, bool, error) {
	it := Item{CartID: cartID, ProductID: productID}
	err := t.tx.QueryRow(ctx, `
		SELECT id, quantity FROM cart_items WHERE cart_id = $1 AND product_id = $2
	`, cartID, productID).Scan(&it.ID, &it.Quantity)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Item{}, false, nil
		}
		return Item{}, false, fmt.Errorf("select cart item: %w", err)
	}
	return it, true, nil
}

func (t *pgTx) ItemForUser(ctx context.Context, userID, itemID string) (Item, error) {
	var it Item
	err := t.tx.QueryRow(ctx, `
		SELECT ci.id, ci.cart_id, ci.product_id, ci.quantity
		FROM cart_items ci
		JOIN carts c ON c.id = ci.cart_id
		WHERE ci.id = $1 AND c.user_id = $2
	`, itemID, userID).Scan(&it.ID, &it.CartID, &it.ProductID, &it.Quantity)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Item{}, errs.ErrNotFound
		}
		return Item{}, fmt.Errorf("select cart item: %w", err)
	}
	return it, nil
}

func (t *pgTx) SaveItem(ctx context.Context, it *Item) error {
	if it.ID == "" {
		it.ID = uuid.NewString()
	}
	_, err := t.tx.Exec(ctx, `
		INSERT INTO cart_items (id, cart_id, product_id, quantity, created_at, updated_at)
		VALUES ($1, $2, $3, $4, now(), now())
		ON CONFLICT (id) DO UPDATE SET quantity = EXCLUDED.quantity, updated_at = now()
	`, it.ID, it.CartID, it.ProductID, it.Quantity)
	if err != nil {
		return fmt.Errorf("save cart item: %w", err)
	}
	_, err = t.tx.Exec(ctx, `UPDATE carts SET updated_at = now() WHERE id = $1`, it.CartID)
	if err != nil {
		return fmt.Errorf("touch cart: %w", err)
	}
	return nil
}

func (t *pgTx) DeleteItem(ctx context.Context, itemID string) error {
	if _, err := t.tx.Exec(ctx, `DELETE FROM cart_items WHERE id = $1`, itemID); err != nil {
		return fmt.Errorf("delete cart item: %w", err)
	}
	return nil
}

func (t *pgTx) DeleteItemsForUser(ctx context.Context, userID string) error {
	_, err := t.tx.Exec(ctx, `
		DELETE FROM cart_items WHERE cart_id IN (SELECT id FROM carts WHERE user_id = $1)
	`, userID)
	if err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}
	return nil
}
