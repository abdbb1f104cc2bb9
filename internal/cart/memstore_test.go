package cart

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/catalog"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/errs"
)

// memStore serializes transactions with one mutex, which is at least as
// strict as row locks on products, and restores its state when fn fails.
type memStore struct {
	mu       sync.Mutex
	products map[string]catalog.Product
	carts    map[string]string // user -> cart id
	items    map[string]Item
}

func newMemStore(products ...catalog.Product) *memStore {
	s := &memStore{
		products: map[string]catalog.Product{},
		carts:    map[string]string{},
		items:    map[string]Item{},
	}
	for _, p := range products {
		s.products[p.ID] = p
	}
	return s
}

func (s *memStore) InTx(ctx context.Context, fn func(tx Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	carts := make(map[string]string, len(s.carts))
	for k, v := range s.carts {
		carts[k] = v
	}
	items := make(map[string]Item, len(s.items))
	for k, v := range s.items {
		items[k] = v
	}

	if err := fn(&memTx{s: s}); err != nil {
		s.carts, s.items = carts, items
		return err
	}
	return nil
}

func (s *memStore) Load(ctx context.Context, userID string) (*Cart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.carts[userID]
	if !ok {
		return nil, nil
	}
	c := &Cart{ID: id, UserID: userID, Items: []Line{}}
	for _, it := range s.items {
		if it.CartID == id {
			c.Items = append(c.Items, Line{Item: it, Product: s.products[it.ProductID]})
		}
	}
	sort.Slice(c.Items, func(i, j int) bool { return c.Items[i].ProductID < c.Items[j].ProductID })
	return c, nil
}

func (s *memStore) lineCount(userID string) int {
	c, _ := s.Load(context.Background(), userID)
	if c == nil {
		return 0
	}
	return len(c.Items)
}

type memTx struct{ s *memStore }

func (t *memTx) LockProduct(ctx context.Context, productID string) (catalog.Product, error) {
	p, ok := t.s.products[productID]
	if !ok {
		return catalog.Product{}, errs.ErrNotFound
	}
	return p, nil
}

func (t *memTx) EnsureCart(ctx context.Context, userID string) (string, error) {
	if id, ok := t.s.carts[userID]; ok {
		return id, nil
	}
	id := uuid.NewString()
	t.s.carts[userID] = id
	return id, nil
}

func (t *memTx) ItemByProduct(ctx context.Context, cartID, productID string) (Item, bool, error) {
	for _, it := range t.s.items {
		if it.CartID == cartID && it.ProductID == productID {
			return it, true, nil
		}
	}
	return Item{}, false, nil
}

func (t *memTx) ItemForUser(ctx context.Context, userID, itemID string) (Item, error) {
	it, ok := t.s.items[itemID]
	if !ok || t.s.carts[userID] != it.CartID {
		return Item{}, errs.ErrNotFound
	}
	return it, nil
}

func (t *memTx) SaveItem(ctx context.Context, it *Item) error {
	if it.ID == "" {
		it.ID = uuid.NewString()
	}
	t.s.items[it.ID] = *it
	return nil
}

func (t *memTx) DeleteItem(ctx context.Context, itemID string) error {
	delete(t.s.items, itemID)
	return nil
}

func (t *memTx) DeleteItemsForUser(ctx context.Context, userID string) error {
	id, ok := t.s.carts[userID]
	if !ok {
		return nil
	}
	for k, it := range t.s.items {
		if it.CartID == id {
			delete(t.s.items, k)
		}
	}
	return nil
}
