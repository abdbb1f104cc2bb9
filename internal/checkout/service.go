package checkout

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/cart"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/errs"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/order"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/pricing"
)

const (
	metaUserID = "user_id"
	metaCartID = "cart_id"
)

type Carts interface {
	GetWithTotals(ctx context.Context, userID string) (*cart.WithTotals, error)
}

// Orders materializes a paid cart. The cart is emptied in the same
// transaction, and a repeated payment reference returns the existing order
// without touching the cart.
type Orders interface {
	CreateFromCart(ctx context.Context, userID, paymentReference string) (*order.Order, error)
}

type Options struct {
	Currency      string
	PublicBaseURL string
}

// Service is the payment-confirmation boundary and the only caller of order
// creation.
type Service struct {
	carts   Carts
	orders  Orders
	gateway Gateway
	opts    Options
	logger  *slog.Logger
}

func NewService(carts Carts, orders Orders, gateway Gateway, opts Options, logger *slog.Logger) *Service {
	if opts.Currency == "" {
		opts.Currency = "usd"
	}
	return &Service{carts: carts, orders: orders, gateway: gateway, opts: opts, logger: logger}
}

// Validate checks that the cart exists, is not empty and that every line is
// covered by current stock.
func (s *Service) Validate(ctx context.Context, userID string) (*cart.WithTotals, error) {
	c, err := s.carts.GetWithTotals(ctx, userID)
	if err != nil {
		return nil, err
	}
	if c == nil || len(c.Items) == 0 {
		return nil, errs.ErrEmptyCart
	}
	for _, l := range c.Items {
		if l.Quantity > l.Product.StockQuantity {
			return nil, &errs.StockError{
				ProductID: l.ProductID,
				Name:      l.Product.Name,
				Requested: l.Quantity,
				Available: l.Product.StockQuantity,
			}
		}
	}
	return c, nil
}

// Begin validates the cart and opens a hosted payment session for it.
func (s *Service) Begin(ctx context.Context, userID string) (Session, error) {
	c, err := s.Validate(ctx, userID)
	if err != nil {
		return Session{}, err
	}

	req := SessionRequest{
		Currency:   s.opts.Currency,
		SuccessURL: s.opts.PublicBaseURL + "/checkout/success?session_id={CHECKOUT_SESSION_ID}",
		CancelURL:  s.opts.PublicBaseURL + "/cart",
		Metadata:   map[string]string{metaUserID: userID, metaCartID: c.ID},
	}
	for _, l := range c.Items {
		req.Lines = append(req.Lines, LineItem{
			Name:       l.Product.Name,
			UnitAmount: pricing.ToMinorUnits(l.Product.Price),
			Quantity:   int64(l.Quantity),
		})
	}
	if c.Tax.IsPositive() {
		req.Lines = append(req.Lines, LineItem{Name: "Tax", UnitAmount: pricing.ToMinorUnits(c.Tax), Quantity: 1})
	}

	sess, err := s.gateway.CreateSession(ctx, req)
	if err != nil {
		return Session{}, err
	}
	s.logger.Info("checkout session created", "userId", userID, "sessionId", sess.ID, "total", c.Total.StringFixed(2))
	return sess, nil
}

// Confirm handles the success redirect. The session must be paid and must
// belong to the caller.
func (s *Service) Confirm(ctx context.Context, userID, sessionID string) (*order.Order, error) {
	if strings.TrimSpace(sessionID) == "" {
		return nil, errs.Invalid("session_id is required")
	}
	sess, err := s.gateway.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if sess.Metadata[metaUserID] != userID {
		return nil, errs.ErrNotFound
	}
	return s.complete(ctx, userID, sess)
}

// HandleWebhook processes a signed gateway event. Events other than a paid
// checkout completion are acknowledged and ignored.
func (s *Service) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	ev, err := s.gateway.ParseWebhook(payload, signature)
	if err != nil {
		return errs.Invalid("%v", err)
	}
	if ev.Type != EventCheckoutCompleted || ev.Session == nil || !ev.Session.Paid {
		s.logger.Debug("webhook ignored", "type", ev.Type)
		return nil
	}

	userID := ev.Session.Metadata[metaUserID]
	if userID == "" {
		return errs.Invalid("session %s has no user", ev.Session.ID)
	}
	_, err = s.complete(ctx, userID, *ev.Session)
	return err
}

func (s *Service) complete(ctx context.Context, userID string, sess Session) (*order.Order, error) {
	if !sess.Paid {
		return nil, errs.ErrPaymentNotConfirmed
	}

	o, err := s.orders.CreateFromCart(ctx, userID, sess.PaymentReference)
	if err != nil {
		return nil, fmt.Errorf("create order for session %s: %w", sess.ID, err)
	}
	// The order is priced from the cart at confirmation time, which can
	// differ from what was charged if the cart changed after Begin.
	if total := pricing.ToMinorUnits(o.Total); sess.AmountTotal > 0 && total != sess.AmountTotal {
		s.logger.Warn("paid amount differs from order total",
			"sessionId", sess.ID,
			"orderId", o.ID,
			"cartId", sess.Metadata[metaCartID],
			"paid", sess.AmountTotal,
			"orderTotal", total,
		)
	}
	return o, nil
}
