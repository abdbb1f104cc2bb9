package cart

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/errs"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/pricing"
)

type Service struct {
	store  Store
	calc   *pricing.Calculator
	logger *slog.Logger
}

func NewService(store Store, calc *pricing.Calculator, logger *slog.Logger) *Service {
	return &Service{store: store, calc: calc, logger: logger}
}

// AddItem adds quantity units of a product, summing into an existing line.
// The product row stays locked from the stock check until the write commits.
func (s *Service) AddItem(ctx context.Context, userID, productID string, quantity int) (Item, error) {
	if err := requireUser(userID); err != nil {
		return Item{}, err
	}
	if err := errs.CheckID("product", productID); err != nil {
		return Item{}, err
	}
	if quantity < 1 {
		return Item{}, errs.ErrInvalidQuantity
	}

	var saved Item
	err := s.store.InTx(ctx, func(tx Tx) error {
		p, err := tx.LockProduct(ctx, productID)
		if err != nil {
			return fmt.Errorf("product %s: %w", productID, err)
		}
		cartID, err := tx.EnsureCart(ctx, userID)
		if err != nil {
			return err
		}
		it, found, err := tx.ItemByProduct(ctx, cartID, productID)
		if err != nil {
			return err
		}
		if !found {
			it = Item{CartID: cartID, ProductID: productID}
		}

		want := it.Quantity + quantity
		if want > p.StockQuantity {
			return &errs.StockError{ProductID: p.ID, Name: p.Name, Requested: want, Available: p.StockQuantity}
		}
		it.Quantity = want
		if err := tx.SaveItem(ctx, &it); err != nil {
			return err
		}
		saved = it
		return nil
	})
	if err != nil {
		return Item{}, err
	}

	s.logger.Debug("cart item added", "userId", userID, "productId", productID, "quantity", saved.Quantity)
	return saved, nil
}

// UpdateItem overwrites a line's quantity. An item outside the caller's cart
// is not found, whether or not it exists.
func (s *Service) UpdateItem(ctx context.Context, userID, itemID string, quantity int) (Item, error) {
	if err := requireUser(userID); err != nil {
		return Item{}, err
	}
	if err := errs.CheckID("cart item", itemID); err != nil {
		return Item{}, err
	}
	if quantity < 1 {
		return Item{}, errs.ErrInvalidQuantity
	}

	var saved Item
	err := s.store.InTx(ctx, func(tx Tx) error {
		it, err := tx.ItemForUser(ctx, userID, itemID)
		if err != nil {
			return err
		}
		p, err := tx.LockProduct(ctx, it.ProductID)
		if err != nil {
			return fmt.Errorf("product %s: %w", it.ProductID, err)
		}
		if quantity > p.StockQuantity {
			return &errs.StockError{ProductID: p.ID, Name: p.Name, Requested: quantity, Available: p.StockQuantity}
		}
		it.Quantity = quantity
		if err := tx.SaveItem(ctx, &it); err != nil {
			return err
		}
		saved = it
		return nil
	})
	if err != nil {
		return Item{}, err
	}
	return saved, nil
}

func (s *Service) RemoveItem(ctx context.Context, userID, itemID string) error {
	if err := requireUser(userID); err != nil {
		return err
	}
	if err := errs.CheckID("cart item", itemID); err != nil {
		return err
	}
	return s.store.InTx(ctx, func(tx Tx) error {
		it, err := tx.ItemForUser(ctx, userID, itemID)
		if err != nil {
			return err
		}
		return tx.DeleteItem(ctx, it.ID)
	})
}

// Clear empties the user's cart. A user without a cart is not an error.
func (s *Service) Clear(ctx context.Context, userID string) error {
	if err := requireUser(userID); err != nil {
		return err
	}
	return s.store.InTx(ctx, func(tx Tx) error {
		return tx.DeleteItemsForUser(ctx, userID)
	})
}

// GetWithTotals returns nil when the user has no cart.
func (s *Service) GetWithTotals(ctx context.Context, userID string) (*WithTotals, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	c, err := s.store.Load(ctx, userID)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, nil
	}

	totals, err := s.calc.Calculate(Lines(c.Items))
	if err != nil {
		return nil, fmt.Errorf("price cart %s: %w", c.ID, err)
	}
	return &WithTotals{Cart: *c, Totals: totals}, nil
}

// Lines converts cart lines to pricing input at current product prices.
func Lines(items []Line) []pricing.Line {
	out := make([]pricing.Line, 0, len(items))
	for _, it := range items {
		out = append(out, pricing.Line{UnitPrice: it.Product.Price, Quantity: it.Quantity})
	}
	return out
}

func requireUser(userID string) error {
	if strings.TrimSpace(userID) == "" {
		return errs.Invalid("user id is required")
	}
	return nil
}
