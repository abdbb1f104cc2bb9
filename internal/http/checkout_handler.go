package httpapi

import (
	"io"
	"net/http"

	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/errs"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/middleware"
)

const maxWebhookBytes = 64 << 10

type beginCheckoutResponse struct {
	CheckoutURL string `json:"checkoutUrl"`
	SessionID   string `json:"sessionId"`
}

func (h *Handler) BeginCheckout(w http.ResponseWriter, r *http.Request) {
	sess, err := h.checkout.Begin(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, beginCheckoutResponse{CheckoutURL: sess.URL, SessionID: sess.ID})
}

func (h *Handler) CheckoutSuccess(w http.ResponseWriter, r *http.Request) {
	o, err := h.checkout.Confirm(r.Context(), middleware.GetUserID(r.Context()), r.URL.Query().Get("session_id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

// CheckoutWebhook needs the raw body for signature verification.
func (h *Handler) CheckoutWebhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBytes))
	if err != nil {
		h.writeError(w, r, errs.Invalid("unreadable webhook body"))
		return
	}
	if err := h.checkout.HandleWebhook(r.Context(), payload, r.Header.Get("Stripe-Signature")); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"received": true})
}
