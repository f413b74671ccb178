package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/example/slick-storefront/internal/domain/cart"
	"github.com/example/slick-storefront/internal/notification"
)

const sizeRequiredMessage = "Vui lòng chọn size trước khi thêm vào giỏ."

// CartItemRequest is the body of POST and PUT /api/cart/items.
type CartItemRequest struct {
	ProductID string `json:"product_id"`
	Size      string `json:"size"`
	Color     string `json:"color"`
	Quantity  int    `json:"quantity"`
}

type CartResponse struct {
	Items      []cart.Line `json:"items"`
	TotalCount int         `json:"total_count"`
}

func cartResponse(s *cart.Store) CartResponse {
	return CartResponse{Items: s.Items(), TotalCount: s.TotalCount()}
}

// GetCart returns the caller's cart. A cart that failed to load is a 503 so
// clients do not mistake it for an empty one.
func (h *Handlers) GetCart(w http.ResponseWriter, r *http.Request) {
	scope := h.openScope(r)
	defer scope.Close()

	if err := scope.cart.Err(); err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, cartResponse(scope.cart))
}

// AddToCart adds a product selection and toasts the result.
func (h *Handlers) AddToCart(w http.ResponseWriter, r *http.Request) {
	var req CartItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	scope := h.openScope(r)
	defer scope.Close()

	p, err := h.catalog.GetByID(r.Context(), req.ProductID)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	if p == nil {
		respondJSONError(w, "Không tìm thấy sản phẩm", http.StatusNotFound)
		return
	}
	if len(p.Sizes) > 0 && req.Size == "" {
		h.notify(scope.owner, notification.KindError, sizeRequiredMessage)
		respondJSONError(w, sizeRequiredMessage, http.StatusBadRequest)
		return
	}

	line := cart.Line{ProductID: p.ID, Size: req.Size, Color: req.Color, Quantity: req.Quantity}
	if err := scope.cart.AddItem(r.Context(), line); err != nil {
		h.respondError(w, r, err)
		return
	}

	h.notify(scope.owner, notification.KindSuccess,
		fmt.Sprintf("Đã thêm %d x %s (Size: %s) vào giỏ hàng.", req.Quantity, p.Name, req.Size))
	respondJSON(w, http.StatusOK, cartResponse(scope.cart))
}

// UpdateCartItem sets a line's quantity. Zero removes the line.
func (h *Handlers) UpdateCartItem(w http.ResponseWriter, r *http.Request) {
	var req CartItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	scope := h.openScope(r)
	defer scope.Close()

	if err := scope.cart.UpdateItem(r.Context(), req.ProductID, req.Size, req.Color, req.Quantity); err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, cartResponse(scope.cart))
}

// RemoveCartItem handles DELETE /api/cart/items?product_id=&size=&color=
func (h *Handlers) RemoveCartItem(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	scope := h.openScope(r)
	defer scope.Close()

	if err := scope.cart.RemoveItem(r.Context(), q.Get("product_id"), q.Get("size"), q.Get("color")); err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, cartResponse(scope.cart))
}

func (h *Handlers) ClearCart(w http.ResponseWriter, r *http.Request) {
	scope := h.openScope(r)
	defer scope.Close()

	if err := scope.cart.ClearCart(r.Context()); err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, cartResponse(scope.cart))
}
