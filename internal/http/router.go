package httpapi

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/middleware"
)

type RouterOptions struct {
	CORSAllowOrigins []string
	Logger           *slog.Logger
	// RequestLogging turns on chi's access log.
	RequestLogging bool
}

func NewRouter(h *Handler, opts RouterOptions) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.CorrelationID)
	r.Use(middleware.Recover(opts.Logger))
	if opts.RequestLogging {
		r.Use(chimw.Logger)
	}
	r.Use(middleware.CORS(opts.CORSAllowOrigins))

	r.Get("/health", h.Health)

	r.Route("/api", func(r chi.Router) {
		r.Get("/home", h.Home)

		r.Route("/products", func(r chi.Router) {
			r.Get("/", h.ListProducts)
			r.Post("/", h.CreateProduct)
			r.Get("/{productId}", h.GetProduct)
		})

		r.Route("/inventory", func(r chi.Router) {
			r.Post("/adjust", h.AdjustAvailability)
			r.Post("/decrease", h.DecreaseStock)
			r.Get("/{productId}", h.GetAvailability)
		})

		// Stripe calls this one, so no user header.
		r.Post("/checkout/webhook", h.CheckoutWebhook)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireUserID)

			r.Route("/cart", func(r chi.Router) {
				r.Get("/", h.GetCart)
				r.Delete("/", h.ClearCart)
				r.Post("/items", h.AddCartItem)
				r.Put("/items/{itemId}", h.UpdateCartItem)
				r.Delete("/items/{itemId}", h.RemoveCartItem)
			})

			r.Post("/checkout", h.BeginCheckout)
			r.Get("/checkout/success", h.CheckoutSuccess)

			r.Route("/orders", func(r chi.Router) {
				r.Get("/", h.ListOrders)
				r.Get("/{orderId}", h.GetOrder)
			})
		})
	})

	return r
}
