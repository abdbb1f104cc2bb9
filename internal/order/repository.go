package order

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/catalog"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/db"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/errs"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/inventory"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/paging"
)

// ErrDuplicatePayment is returned by InsertOrder when an order with the same
// payment reference already exists.
var ErrDuplicatePayment = errors.New("order already exists for payment reference")

const paymentReferenceKey = "orders_payment_reference_key"

const orderColumns = `id, user_id, payment_reference, status, subtotal, tax, total, created_at`

type Store interface {
	InTx(ctx context.Context, fn func(tx Tx) error) error
	FindByPaymentReference(ctx context.Context, ref string) (*Order, error)
	GetForUser(ctx context.Context, userID, orderID string) (*Order, error)
	ListForUser(ctx context.Context, userID string, req paging.Request) (paging.Page[Order], error)
}

type Tx interface {
	CartLines(ctx context.Context, userID string) ([]CartLine, error)
	LockProducts(ctx context.Context, ids []string) (map[string]catalog.Product, error)
	InsertOrder(ctx context.Context, o *Order) error
	InsertItem(ctx context.Context, it *Item) error
	DecreaseStock(ctx context.Context, productID string, quantity int) (inventory.Movement, error)
	// ClearCart deletes the lines that were turned into the order.
	ClearCart(ctx context.Context, userID string) error
}

type PostgresStore struct {
	pool   db.Pool
	ledger *inventory.Ledger
}

func NewPostgresStore(pool db.Pool, ledger *inventory.Ledger) *PostgresStore {
	return &PostgresStore{pool: pool, ledger: ledger}
}

func (s *PostgresStore) InTx(ctx context.Context, fn func(tx Tx) error) error {
	return db.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		return fn(&pgTx{tx: tx, ledger: s.ledger})
	})
}

func (s *PostgresStore) FindByPaymentReference(ctx context.Context, ref string) (*Order, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE payment_reference = $1`, ref)
	return s.loadOne(ctx, row)
}

func (s *PostgresStore) GetForUser(ctx context.Context, userID, orderID string) (*Order, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1 AND user_id = $2`, orderID, userID)
	return s.loadOne(ctx, row)
}

func (s *PostgresStore) ListForUser(ctx context.Context, userID string, req paging.Request) (paging.Page[Order], error) {
	var total int
	if err := s.pool.QueryRow(ctx, `SELECT count(*) FROM orders WHERE user_id = $1`, userID).Scan(&total); err != nil {
		return paging.Page[Order]{}, fmt.Errorf("count orders: %w", err)
	}

	rows, err := s.pool.Query(ctx, `
		SELECT `+orderColumns+`
		FROM orders WHERE user_id = $1
		ORDER BY created_at DESC, id
		LIMIT $2 OFFSET $3
	`, userID, req.PerPage, req.Offset())
	if err != nil {
		return paging.Page[Order]{}, fmt.Errorf("select orders: %w", err)
	}
	defer rows.Close()

	orders := []Order{}
	index := map[string]int{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return paging.Page[Order]{}, fmt.Errorf("scan order: %w", err)
		}
		index[o.ID] = len(orders)
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return paging.Page[Order]{}, fmt.Errorf("rows: %w", err)
	}
	rows.Close()

	if len(orders) > 0 {
		ids := make([]string, 0, len(orders))
		for _, o := range orders {
			ids = append(ids, o.ID)
		}
		items, err := s.items(ctx, ids)
		if err != nil {
			return paging.Page[Order]{}, err
		}
		for _, it := range items {
			i := index[it.OrderID]
			orders[i].Items = append(orders[i].Items, it)
		}
	}
	return paging.New(orders, req, total), nil
}

func (s *PostgresStore) loadOne(ctx context.Context, row pgx.Row) (*Order, error) {
	o, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.ErrNotFound
		}
		return nil, fmt.Errorf("select order: %w", err)
	}
	o.Items, err = s.items(ctx, []string{o.ID})
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func (s *PostgresStore) items(ctx context.Context, orderIDs []string) ([]Item, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT oi.id, oi.order_id, oi.product_id, oi.quantity, oi.price, p.name, p.image
		FROM order_items oi
		JOIN products p ON p.id = oi.product_id
		WHERE oi.order_id = ANY($1)
		ORDER BY oi.order_id, p.name, oi.id
	`, orderIDs)
	if err != nil {
		return nil, fmt.Errorf("select order items: %w", err)
	}
	defer rows.Close()

	items := []Item{}
	for rows.Next() {
		var it Item
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.Quantity, &it.Price, &it.ProductName, &it.ProductImage); err != nil {
			return nil, fmt.Errorf("scan order item: %w", err)
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return items, nil
}

func scanOrder(row pgx.Row) (Order, error) {
	var o Order
	err := row.Scan(&o.ID, &o.UserID, &o.PaymentReference, &o.Status, &o.Subtotal, &o.Tax, &o.Total, &o.CreatedAt)
	if err != nil {
		return Order{}, err
	}
	if !o.Status.Valid() {
		return Order{}, fmt.Errorf("order %s: unknown status %q", o.ID, o.Status)
	}
	o.Items = []Item{}
	return o, nil
}

type pgTx struct {
	tx     pgx.Tx
	ledger *inventory.Ledger
}

// CartLines also locks the cart's rows so the cart cannot change while it is
// being turned into an order.
func (t *pgTx) CartLines(ctx context.Context, userID string) ([]CartLine, error) {
	rows, err := t.tx.Query(ctx, `
		SELECT ci.product_id, ci.quantity
		FROM cart_items ci
		JOIN carts c ON c.id = ci.cart_id
		WHERE c.user_id = $1
		ORDER BY ci.product_id
		FOR UPDATE OF ci
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("select cart lines: %w", err)
	}
	defer rows.Close()

	var lines []CartLine
	for rows.Next() {
		var l CartLine
		if err := rows.Scan(&l.ProductID, &l.Quantity); err != nil {
			return nil, fmt.Errorf("scan cart line: %w", err)
		}
		lines = append(lines, l)
	}
	return lines, rows.Err()
}

func (t *pgTx) LockProducts(ctx context.Context, ids []string) (map[string]catalog.Product, error) {
	return catalog.LockManyForUpdate(ctx, t.tx, ids)
}

func (t *pgTx) InsertOrder(ctx context.Context, o *Order) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO orders (id, user_id, payment_reference, status, subtotal, tax, total, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, o.ID, o.UserID, o.PaymentReference, o.Status, o.Subtotal, o.Tax, o.Total, o.CreatedAt)
	if err != nil {
		if db.IsUniqueViolation(err, paymentReferenceKey) {
			return ErrDuplicatePayment
		}
		return fmt.Errorf("insert order: %w", err)
	}
	return nil
}

func (t *pgTx) InsertItem(ctx context.Context, it *Item) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO order_items (id, order_id, product_id, quantity, price)
		VALUES ($1, $2, $3, $4, $5)
	`, it.ID, it.OrderID, it.ProductID, it.Quantity, it.Price)
	if err != nil {
		return fmt.Errorf("insert order_item: %w", err)
	}
	return nil
}

func (t *pgTx) DecreaseStock(ctx context.Context, productID string, quantity int) (inventory.Movement, error) {
	return t.ledger.Decrease(ctx, t.tx, productID, quantity)
}

func (t *pgTx) ClearCart(ctx context.Context, userID string) error {
	_, err := t.tx.Exec(ctx, `
		DELETE FROM cart_items
		WHERE cart_id IN (SELECT id FROM carts WHERE user_id = $1)
	`, userID)
	if err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}
	return nil
}
