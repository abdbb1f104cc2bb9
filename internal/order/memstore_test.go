package order

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/catalog"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/errs"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/inventory"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/paging"
)

const testThreshold = 10

type memStore struct {
	mu       sync.Mutex
	products map[string]catalog.Product
	carts    map[string][]CartLine
	orders   []*Order

	failDecreaseOn string
	failClear      bool
}

func newMemStore(products ...catalog.Product) *memStore {
	s := &memStore{products: map[string]catalog.Product{}, carts: map[string][]CartLine{}}
	for _, p := range products {
		s.products[p.ID] = p
	}
	return s
}

func (s *memStore) InTx(ctx context.Context, fn func(tx Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	products := make(map[string]catalog.Product, len(s.products))
	for k, v := range s.products {
		products[k] = v
	}
	orders := append([]*Order(nil), s.orders...)
	carts := make(map[string][]CartLine, len(s.carts))
	for k, v := range s.carts {
		carts[k] = v
	}

	tx := &memTx{s: s}
	if err := fn(tx); err != nil {
		s.products, s.orders, s.carts = products, orders, carts
		return err
	}
	return nil
}

func (s *memStore) FindByPaymentReference(ctx context.Context, ref string) (*Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, o := range s.orders {
		if o.PaymentReference == ref {
			return o, nil
		}
	}
	return nil, errs.ErrNotFound
}

func (s *memStore) GetForUser(ctx context.Context, userID, orderID string) (*Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, o := range s.orders {
		if o.ID == orderID && o.UserID == userID {
			return o, nil
		}
	}
	return nil, errs.ErrNotFound
}

func (s *memStore) ListForUser(ctx context.Context, userID string, req paging.Request) (paging.Page[Order], error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var mine []Order
	for _, o := range s.orders {
		if o.UserID == userID {
			mine = append(mine, *o)
		}
	}
	sort.Slice(mine, func(i, j int) bool { return mine[i].CreatedAt.After(mine[j].CreatedAt) })
	total := len(mine)
	start := min(req.Offset(), total)
	end := min(start+req.PerPage, total)
	return paging.New(mine[start:end], req, total), nil
}

type memTx struct {
	s *memStore
}

func (t *memTx) CartLines(ctx context.Context, userID string) ([]CartLine, error) {
	return append([]CartLine(nil), t.s.carts[userID]...), nil
}

func (t *memTx) LockProducts(ctx context.Context, ids []string) (map[string]catalog.Product, error) {
	out := map[string]catalog.Product{}
	for _, id := range ids {
		if p, ok := t.s.products[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}

func (t *memTx) InsertOrder(ctx context.Context, o *Order) error {
	for _, existing := range t.s.orders {
		if existing.PaymentReference == o.PaymentReference {
			return ErrDuplicatePayment
		}
	}
	t.s.orders = append(t.s.orders, o)
	return nil
}

func (t *memTx) InsertItem(ctx context.Context, it *Item) error {
	return nil
}

func (t *memTx) DecreaseStock(ctx context.Context, productID string, quantity int) (inventory.Movement, error) {
	if productID == t.s.failDecreaseOn {
		return inventory.Movement{}, fmt.Errorf("decrease stock %s: connection reset", productID)
	}
	p := t.s.products[productID]
	if p.StockQuantity < quantity {
		return inventory.Movement{}, &errs.StockError{ProductID: productID, Requested: quantity, Available: p.StockQuantity}
	}
	p.StockQuantity -= quantity
	t.s.products[productID] = p
	return inventory.NewMovement(p.ID, p.Name, p.Price, quantity, p.StockQuantity, testThreshold), nil
}

func (t *memTx) ClearCart(ctx context.Context, userID string) error {
	if t.s.failClear {
		return fmt.Errorf("clear cart: connection reset")
	}
	delete(t.s.carts, userID)
	return nil
}

func (s *memStore) cartLines(userID string) []CartLine {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.carts[userID]
}
