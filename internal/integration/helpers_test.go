//go:build integration

package integration

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/catalog"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/db"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/inventory"
)

type recordingNotifier struct {
	mu    sync.Mutex
	moves []inventory.Movement
}

func (n *recordingNotifier) NotifyLowStock(ctx context.Context, m inventory.Movement) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.moves = append(n.moves, m)
}

func (n *recordingNotifier) products() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	var ids []string
	for _, m := range n.moves {
		ids = append(ids, m.ProductID)
	}
	return ids
}

func seedProduct(t *testing.T, pool db.Querier, name, price string, stock int) catalog.Product {
	t.Helper()
	p := catalog.Product{Name: name, Price: decimal.RequireFromString(price), StockQuantity: stock}
	require.NoError(t, catalog.NewPostgresRepository(pool).Create(context.Background(), &p))
	return p
}

func stockOf(t *testing.T, pool db.Querier, productID string) int {
	t.Helper()
	var n int
	require.NoError(t, pool.QueryRow(context.Background(),
		`SELECT stock_quantity FROM products WHERE id = $1`, productID).Scan(&n))
	return n
}

// refuseStockUpdates installs a trigger that fails any stock decrement of
// productID until the test ends.
func refuseStockUpdates(t *testing.T, pool db.Querier, productID string) {
	t.Helper()
	ctx := context.Background()

	_, err := pool.Exec(ctx, `
		CREATE OR REPLACE FUNCTION refuse_stock_update() RETURNS trigger AS $$
		BEGIN
			IF NEW.id = TG_ARGV[0]::uuid AND NEW.stock_quantity < OLD.stock_quantity THEN
				RAISE EXCEPTION 'stock update refused';
			END IF;
			RETURN NEW;
		END
		$$ LANGUAGE plpgsql`)
	require.NoError(t, err)

	_, err = pool.Exec(ctx, fmt.Sprintf(`
		CREATE TRIGGER refuse_stock_update BEFORE UPDATE ON products
		FOR EACH ROW EXECUTE FUNCTION refuse_stock_update('%s')`, productID))
	require.NoError(t, err)

	t.Cleanup(func() {
		_, err := pool.Exec(context.Background(), `DROP TRIGGER IF EXISTS refuse_stock_update ON products`)
		require.NoError(t, err)
	})
}
