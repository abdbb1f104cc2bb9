package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/cart"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/catalog"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/checkout"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/errs"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/inventory"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/middleware"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/order"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/paging"
)

type Catalog interface {
	List(ctx context.Context, search string, req paging.Request) (paging.Page[catalog.Product], error)
	Show(ctx context.Context, id string) (catalog.Detail, error)
	Home(ctx context.Context) (catalog.Home, error)
	Create(ctx context.Context, p *catalog.Product) error
}

type Carts interface {
	AddItem(ctx context.Context, userID, productID string, quantity int) (cart.Item, error)
	UpdateItem(ctx context.Context, userID, itemID string, quantity int) (cart.Item, error)
	RemoveItem(ctx context.Context, userID, itemID string) error
	Clear(ctx context.Context, userID string) error
	GetWithTotals(ctx context.Context, userID string) (*cart.WithTotals, error)
}

type Checkout interface {
	Begin(ctx context.Context, userID string) (checkout.Session, error)
	Confirm(ctx context.Context, userID, sessionID string) (*order.Order, error)
	HandleWebhook(ctx context.Context, payload []byte, signature string) error
}

type Orders interface {
	Get(ctx context.Context, userID, orderID string) (*order.Order, error)
	List(ctx context.Context, userID string, req paging.Request) (paging.Page[order.Order], error)
}

type Inventory interface {
	Get(ctx context.Context, productID string) (inventory.StockItem, error)
	SetAvailable(ctx context.Context, productID string, available int) error
	DecreaseStock(ctx context.Context, productID string, quantity int) (inventory.Movement, error)
}

type Handler struct {
	catalog   Catalog
	carts     Carts
	checkout  Checkout
	orders    Orders
	inventory Inventory
	logger    *slog.Logger
}

type Deps struct {
	Catalog   Catalog
	Carts     Carts
	Checkout  Checkout
	Orders    Orders
	Inventory Inventory
	Logger    *slog.Logger
}

func NewHandler(d Deps) *Handler {
	return &Handler{
		catalog:   d.Catalog,
		carts:     d.Carts,
		checkout:  d.Checkout,
		orders:    d.Orders,
		inventory: d.Inventory,
		logger:    d.Logger,
	}
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, errs.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, errs.ErrInvalidQuantity):
		return http.StatusUnprocessableEntity
	case errors.Is(err, errs.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, errs.ErrInsufficientStock), errors.Is(err, errs.ErrEmptyCart):
		return http.StatusConflict
	case errors.Is(err, errs.ErrPaymentNotConfirmed):
		return http.StatusPaymentRequired
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		h.logger.Error("request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"correlationId", middleware.GetCorrelationID(r.Context()),
			"error", err,
		)
		msg = "internal server error"
	}
	middleware.WriteError(w, r, status, msg)
}

const maxBodyBytes = 1 << 20

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		return errs.Invalid("malformed request body")
	}
	return nil
}

// quantity converts a JSON number to a whole quantity. Fractions and
// values below one are quantity errors, not malformed input.
func quantity(n json.Number) (int, error) {
	if n == "" {
		return 0, errs.ErrInvalidQuantity
	}
	q, err := strconv.Atoi(n.String())
	if err != nil {
		if _, ferr := n.Float64(); ferr == nil {
			return 0, errs.ErrInvalidQuantity
		}
		return 0, errs.Invalid("quantity must be a number")
	}
	if q < 1 {
		return 0, errs.ErrInvalidQuantity
	}
	return q, nil
}

func pageRequest(r *http.Request) (paging.Request, error) {
	q := r.URL.Query()
	var req paging.Request
	for _, f := range []struct {
		name string
		dst  *int
	}{{"page", &req.Page}, {"per_page", &req.PerPage}} {
		v := q.Get(f.name)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return paging.Request{}, errs.Invalid("%s must be an integer", f.name)
		}
		*f.dst = n
	}
	return req, nil
}
