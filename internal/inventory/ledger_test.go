package inventory

import (
	"context"
	"errors"
	"regexp"
	"sync"
	"testing"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/errs"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/logger"
)

const (
	decreaseSQL = `UPDATE products SET stock_quantity = stock_quantity - $2`

	lampID  = "9e4d2b1a-6c3f-4e87-a5d0-3b7f1c2e8d61"
	ghostID = "9e4d2b1a-6c3f-4e87-a5d0-3b7f1c2e8dff"
)

type recordingNotifier struct {
	mu   sync.Mutex
	seen []Movement
}

func (n *recordingNotifier) NotifyLowStock(ctx context.Context, m Movement) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.seen = append(n.seen, m)
}

func newLedger(t *testing.T) (*Ledger, pgxmock.PgxPoolIface, *recordingNotifier) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	n := &recordingNotifier{}
	return NewLedger(mock, 10, n, logger.Discard()), mock, n
}

func TestDecreaseLowStockBoundary(t *testing.T) {
	tests := map[string]struct {
		before, quantity int
		wantLow          bool
	}{
		"10 to 9 fires":        {before: 10, quantity: 1, wantLow: true},
		"12 to 9 fires":        {before: 12, quantity: 3, wantLow: true},
		"15 to 12 stays quiet": {before: 15, quantity: 3, wantLow: false},
		"11 to 10 fires":       {before: 11, quantity: 1, wantLow: true},
		"11 to 0 fires":        {before: 11, quantity: 11, wantLow: true},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			ledger, mock, _ := newLedger(t)
			remaining := tc.before - tc.quantity
			mock.ExpectQuery(regexp.QuoteMeta(decreaseSQL)).
				WithArgs(lampID, tc.quantity).
				WillReturnRows(mock.NewRows([]string{"name", "price", "stock_quantity"}).
					AddRow("Lamp", decimal.RequireFromString("10.00"), remaining))

			m, err := ledger.Decrease(context.Background(), mock, lampID, tc.quantity)
			require.NoError(t, err)
			require.Equal(t, remaining, m.Remaining)
			require.Equal(t, tc.wantLow, m.LowStock)
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestDecreaseInsufficientStock(t *testing.T) {
	ledger, mock, _ := newLedger(t)
	mock.ExpectQuery(regexp.QuoteMeta(decreaseSQL)).
		WithArgs(lampID, 5).
		WillReturnRows(mock.NewRows([]string{"name", "price", "stock_quantity"}))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT name, stock_quantity FROM products WHERE id = $1`)).
		WithArgs(lampID).
		WillReturnRows(mock.NewRows([]string{"name", "stock_quantity"}).AddRow("Lamp", 3))

	_, err := ledger.Decrease(context.Background(), mock, lampID, 5)
	require.ErrorIs(t, err, errs.ErrInsufficientStock)

	var se *errs.StockError
	require.True(t, errors.As(err, &se))
	require.Equal(t, 3, se.Available)
	require.Equal(t, 5, se.Requested)
}

func TestDecreaseUnknownProduct(t *testing.T) {
	ledger, mock, _ := newLedger(t)
	mock.ExpectQuery(regexp.QuoteMeta(decreaseSQL)).
		WithArgs(ghostID, 1).
		WillReturnRows(mock.NewRows([]string{"name", "price", "stock_quantity"}))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT name, stock_quantity FROM products WHERE id = $1`)).
		WithArgs(ghostID).
		WillReturnRows(mock.NewRows([]string{"name", "stock_quantity"}))

	_, err := ledger.Decrease(context.Background(), mock, ghostID, 1)
	require.ErrorIs(t, err, errs.ErrNotFound)
}

func TestDecreaseRejectsNonPositiveQuantity(t *testing.T) {
	ledger, mock, _ := newLedger(t)

	_, err := ledger.Decrease(context.Background(), mock, lampID, 0)
	require.ErrorIs(t, err, errs.ErrInvalidQuantity)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDecreaseStockEmitsAfterCommit(t *testing.T) {
	ledger, mock, notifier := newLedger(t)
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(decreaseSQL)).
		WithArgs(lampID, 2).
		WillReturnRows(mock.NewRows([]string{"name", "price", "stock_quantity"}).
			AddRow("Lamp", decimal.RequireFromString("10.00"), 4))
	mock.ExpectCommit()

	m, err := ledger.DecreaseStock(context.Background(), lampID, 2)
	require.NoError(t, err)
	require.True(t, m.LowStock)
	require.Len(t, notifier.seen, 1)
	require.Equal(t, 4, notifier.seen[0].Remaining)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDecreaseStockFailedCommitDoesNotEmit(t *testing.T) {
	ledger, mock, notifier := newLedger(t)
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(decreaseSQL)).
		WithArgs(lampID, 2).
		WillReturnRows(mock.NewRows([]string{"name", "price", "stock_quantity"}).
			AddRow("Lamp", decimal.RequireFromString("10.00"), 4))
	mock.ExpectCommit().WillReturnError(errors.New("serialization failure"))

	_, err := ledger.DecreaseStock(context.Background(), lampID, 2)
	require.Error(t, err)
	require.Empty(t, notifier.seen)
}

func TestEmitSkipsHealthyStock(t *testing.T) {
	ledger, _, notifier := newLedger(t)

	ledger.Emit(context.Background(),
		NewMovement(lampID, "Lamp", decimal.NewFromInt(1), 1, 50, 10),
		NewMovement("p2", "Desk", decimal.NewFromInt(1), 1, 10, 10),
	)
	require.Len(t, notifier.seen, 1)
	require.Equal(t, "p2", notifier.seen[0].ProductID)
}

func TestSetAvailable(t *testing.T) {
	ledger, mock, notifier := newLedger(t)
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE products SET stock_quantity = $2`)).
		WithArgs(lampID, 3).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE products SET stock_quantity = $2`)).
		WithArgs(ghostID, 3).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	require.NoError(t, ledger.SetAvailable(context.Background(), lampID, 3))
	require.ErrorIs(t, ledger.SetAvailable(context.Background(), ghostID, 3), errs.ErrNotFound)
	require.ErrorIs(t, ledger.SetAvailable(context.Background(), lampID, -1), errs.ErrInvalidInput)
	require.Empty(t, notifier.seen)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGet(t *testing.T) {
	ledger, mock, _ := newLedger(t)
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT stock_quantity FROM products WHERE id = $1`)).
		WithArgs(lampID).
		WillReturnRows(mock.NewRows([]string{"stock_quantity"}).AddRow(7))

	item, err := ledger.Get(context.Background(), lampID)
	require.NoError(t, err)
	require.Equal(t, StockItem{ProductID: lampID, Available: 7}, item)
}

func TestMalformedProductIDIsNotFound(t *testing.T) {
	ledger, mock, notifier := newLedger(t)
	ctx := context.Background()

	_, err := ledger.Get(ctx, "abc")
	require.ErrorIs(t, err, errs.ErrNotFound)
	require.ErrorIs(t, ledger.SetAvailable(ctx, "abc", 3), errs.ErrNotFound)
	_, err = ledger.DecreaseStock(ctx, "abc", 1)
	require.ErrorIs(t, err, errs.ErrNotFound)

	require.Empty(t, notifier.seen)
	require.NoError(t, mock.ExpectationsWereMet())
}
