package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/example/slick-storefront/internal/api/middleware"
	"github.com/example/slick-storefront/internal/checkout"
)

// QuoteCheckout prices the caller's cart without placing an order.
func (h *Handlers) QuoteCheckout(w http.ResponseWriter, r *http.Request) {
	scope := h.openScope(r)
	defer scope.Close()

	if err := scope.cart.Err(); err != nil {
		h.respondError(w, r, err)
		return
	}
	q, err := h.checkout.Quote(r.Context(), scope.cart.Items())
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, q)
}

// PlaceOrder submits the checkout form against the signed-in user's cart.
func (h *Handlers) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	var form checkout.Form
	if err := json.NewDecoder(r.Body).Decode(&form); err != nil {
		respondJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	scope := h.openScope(r)
	defer scope.Close()

	if err := scope.cart.Err(); err != nil {
		h.respondError(w, r, err)
		return
	}
	o, err := h.checkout.Submit(r.Context(), scope.sess, scope.cart, form)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	rm, err := h.orders.GetOrder(r.Context(), o.OwnerID, o.ID)
	if err != nil {
		// The order exists; only the read back failed.
		h.logger.Warn("placed order not readable", "order_id", o.ID, "error", err)
		respondJSON(w, http.StatusCreated, map[string]string{"id": o.ID})
		return
	}
	respondJSON(w, http.StatusCreated, rm)
}

func (h *Handlers) ListOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.orders.ListOrders(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, orders)
}

func (h *Handlers) GetOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.orders.GetOrder(r.Context(), middleware.GetUserID(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, o)
}
