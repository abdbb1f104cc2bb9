package inventory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/db"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/errs"
)

// Notifier receives low-stock signals. Implementations must not block.
type Notifier interface {
	NotifyLowStock(ctx context.Context, m Movement)
}

// Ledger owns the stock_quantity column of products.
type Ledger struct {
	pool      db.Pool
	threshold int
	notifier  Notifier
	logger    *slog.Logger
}

func NewLedger(pool db.Pool, threshold int, notifier Notifier, logger *slog.Logger) *Ledger {
	return &Ledger{pool: pool, threshold: threshold, notifier: notifier, logger: logger}
}

func (l *Ledger) Threshold() int { return l.threshold }

// Decrease subtracts quantity inside the caller's transaction. The update is
// conditional on enough stock, so stock never goes negative even when the
// caller skipped its own check. Signals are not emitted here; call Emit
// after the transaction commits.
func (l *Ledger) Decrease(ctx context.Context, q db.Querier, productID string, quantity int) (Movement, error) {
	if quantity < 1 {
		return Movement{}, errs.ErrInvalidQuantity
	}

	var (
		name      string
		price     decimal.Decimal
		remaining int
	)
	err := q.QueryRow(ctx, `
		UPDATE products
		SET stock_quantity = stock_quantity - $2, updated_at = now()
		WHERE id = $1 AND stock_quantity >= $2
		RETURNING name, price, stock_quantity
	`, productID, quantity).Scan(&name, &price, &remaining)
	if err == nil {
		return NewMovement(productID, name, price, quantity, remaining, l.threshold), nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return Movement{}, fmt.Errorf("decrease stock %s: %w", productID, err)
	}

	var available int
	err = q.QueryRow(ctx, `SELECT name, stock_quantity FROM products WHERE id = $1`, productID).Scan(&name, &available)
	if errors.Is(err, pgx.ErrNoRows) {
		return Movement{}, fmt.Errorf("product %s: %w", productID, errs.ErrNotFound)
	}
	if err != nil {
		return Movement{}, fmt.Errorf("read stock %s: %w", productID, err)
	}
	return Movement{}, &errs.StockError{ProductID: productID, Name: name, Requested: quantity, Available: available}
}

// DecreaseStock runs Decrease in its own transaction and emits the signal
// once committed.
func (l *Ledger) DecreaseStock(ctx context.Context, productID string, quantity int) (Movement, error) {
	if err := errs.CheckID("product", productID); err != nil {
		return Movement{}, err
	}
	var m Movement
	err := db.WithTx(ctx, l.pool, func(tx pgx.Tx) error {
		var err error
		m, err = l.Decrease(ctx, tx, productID, quantity)
		return err
	})
	if err != nil {
		return Movement{}, err
	}
	l.Emit(ctx, m)
	return m, nil
}

// Emit hands low-stock movements to the notifier. It never fails.
func (l *Ledger) Emit(ctx context.Context, movements ...Movement) {
	for _, m := range movements {
		if !m.LowStock {
			continue
		}
		l.logger.Info("low stock", "productId", m.ProductID, "remaining", m.Remaining, "threshold", l.threshold)
		if l.notifier != nil {
			l.notifier.NotifyLowStock(ctx, m)
		}
	}
}

func (l *Ledger) Get(ctx context.Context, productID string) (StockItem, error) {
	if err := errs.CheckID("product", productID); err != nil {
		return StockItem{}, err
	}
	item := StockItem{ProductID: productID}
	err := l.pool.QueryRow(ctx, `SELECT stock_quantity FROM products WHERE id = $1`, productID).Scan(&item.Available)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return StockItem{}, errs.ErrNotFound
		}
		return StockItem{}, err
	}
	return item, nil
}

// SetAvailable overwrites the stock count. Manual adjustments do not emit
// low-stock signals.
func (l *Ledger) SetAvailable(ctx context.Context, productID string, available int) error {
	if err := errs.CheckID("product", productID); err != nil {
		return err
	}
	if available < 0 {
		return errs.Invalid("available must not be negative")
	}
	tag, err := l.pool.Exec(ctx, `
		UPDATE products SET stock_quantity = $2, updated_at = now() WHERE id = $1
	`, productID, available)
	if err != nil {
		return fmt.Errorf("set stock %s: %w", productID, err)
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}
