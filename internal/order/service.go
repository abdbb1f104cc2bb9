package order

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/errs"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/inventory"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/paging"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/pricing"
)

const DefaultPerPage = 10

// Emitter receives stock movements once the order transaction has committed.
type Emitter interface {
	Emit(ctx context.Context, movements ...inventory.Movement)
}

type Publisher interface {
	PublishOrderPlaced(ctx context.Context, o *Order) error
}

type Service struct {
	store     Store
	calc      *pricing.Calculator
	emitter   Emitter
	publisher Publisher
	logger    *slog.Logger
	now       func() time.Time
}

func NewService(store Store, calc *pricing.Calculator, emitter Emitter, publisher Publisher, logger *slog.Logger) *Service {
	return &Service{
		store:     store,
		calc:      calc,
		emitter:   emitter,
		publisher: publisher,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// CreateFromCart turns the user's cart into a placed order for a confirmed
// payment. Stock is re-checked under row locks, prices are frozen into the
// order items, stock is decremented and the cart is emptied, all in one
// transaction. Calling it again with the same payment reference returns the
// existing order and leaves the cart alone.
func (s *Service) CreateFromCart(ctx context.Context, userID, paymentReference string) (*Order, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, errs.Invalid("user id is required")
	}
	if strings.TrimSpace(paymentReference) == "" {
		return nil, errs.ErrPaymentNotConfirmed
	}

	existing, err := s.existing(ctx, userID, paymentReference)
	if err != nil || existing != nil {
		return existing, err
	}

	var (
		placed    *Order
		movements []inventory.Movement
	)
	err = s.store.InTx(ctx, func(tx Tx) error {
		placed, movements = nil, nil

		lines, err := tx.CartLines(ctx, userID)
		if err != nil {
			return err
		}
		if len(lines) == 0 {
			return errs.ErrEmptyCart
		}

		ids := make([]string, 0, len(lines))
		for _, l := range lines {
			ids = append(ids, l.ProductID)
		}
		products, err := tx.LockProducts(ctx, ids)
		if err != nil {
			return err
		}

		priced := make([]pricing.Line, 0, len(lines))
		for _, l := range lines {
			p, ok := products[l.ProductID]
			if !ok {
				return fmt.Errorf("product %s: %w", l.ProductID, errs.ErrNotFound)
			}
			if l.Quantity > p.StockQuantity {
				return &errs.StockError{ProductID: p.ID, Name: p.Name, Requested: l.Quantity, Available: p.StockQuantity}
			}
			priced = append(priced, pricing.Line{UnitPrice: p.Price, Quantity: l.Quantity})
		}

		totals, err := s.calc.Calculate(priced)
		if err != nil {
			return err
		}

		o := &Order{
			ID:               uuid.NewString(),
			UserID:           userID,
			PaymentReference: paymentReference,
			Status:           StatusPlaced,
			Subtotal:         totals.Subtotal,
			Tax:              totals.Tax,
			Total:            totals.Total,
			CreatedAt:        s.now(),
			Items:            make([]Item, 0, len(lines)),
		}
		if err := tx.InsertOrder(ctx, o); err != nil {
			return err
		}

		for _, l := range lines {
			p := products[l.ProductID]
			it := Item{
				ID:           uuid.NewString(),
				OrderID:      o.ID,
				ProductID:    p.ID,
				Quantity:     l.Quantity,
				Price:        p.Price,
				ProductName:  p.Name,
				ProductImage: p.Image,
			}
			if err := tx.InsertItem(ctx, &it); err != nil {
				return err
			}
			o.Items = append(o.Items, it)

			m, err := tx.DecreaseStock(ctx, p.ID, l.Quantity)
			if err != nil {
				return err
			}
			movements = append(movements, m)
		}

		if err := tx.ClearCart(ctx, userID); err != nil {
			return err
		}
		placed = o
		return nil
	})
	if errors.Is(err, ErrDuplicatePayment) || errors.Is(err, errs.ErrEmptyCart) {
		// A concurrent confirmation of the same payment may have committed
		// first, taking the cart with it.
		o, ferr := s.existing(ctx, userID, paymentReference)
		if ferr != nil || o != nil {
			return o, ferr
		}
		return nil, err
	}
	if err != nil {
		return nil, err
	}

	s.logger.Info("order placed", "orderId", placed.ID, "userId", userID, "total", placed.Total.StringFixed(2))
	if s.emitter != nil {
		s.emitter.Emit(ctx, movements...)
	}
	if s.publisher != nil {
		if err := s.publisher.PublishOrderPlaced(ctx, placed); err != nil {
			s.logger.Warn("publish order placed", "orderId", placed.ID, "err", err)
		}
	}
	return placed, nil
}

// existing returns the order already created for ref, or nil. An order for
// ref that belongs to another user is reported as not found.
func (s *Service) existing(ctx context.Context, userID, ref string) (*Order, error) {
	o, err := s.store.FindByPaymentReference(ctx, ref)
	if errors.Is(err, errs.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find order by payment: %w", err)
	}
	if o.UserID != userID {
		return nil, errs.ErrNotFound
	}
	s.logger.Info("order already placed for payment", "orderId", o.ID, "paymentReference", ref)
	return o, nil
}

func (s *Service) Get(ctx context.Context, userID, orderID string) (*Order, error) {
	if err := errs.CheckID("order", orderID); err != nil {
		return nil, err
	}
	return s.store.GetForUser(ctx, userID, orderID)
}

func (s *Service) List(ctx context.Context, userID string, req paging.Request) (paging.Page[Order], error) {
	return s.store.ListForUser(ctx, userID, req.Normalize(DefaultPerPage))
}
