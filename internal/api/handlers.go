package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/example/slick-storefront/internal/api/middleware"
	"github.com/example/slick-storefront/internal/auth"
	"github.com/example/slick-storefront/internal/checkout"
	"github.com/example/slick-storefront/internal/domain"
	"github.com/example/slick-storefront/internal/domain/cart"
	"github.com/example/slick-storefront/internal/domain/catalog"
	"github.com/example/slick-storefront/internal/domain/order"
	"github.com/example/slick-storefront/internal/domain/user"
	"github.com/example/slick-storefront/internal/logger"
	"github.com/example/slick-storefront/internal/notification"
	"github.com/example/slick-storefront/internal/query"
	"github.com/example/slick-storefront/internal/session"
)

// Handlers serves the catalog, cart, checkout and order endpoints.
type Handlers struct {
	catalog  *catalog.Reader
	accounts cart.Repository
	devices  cart.Repository
	checkout *checkout.Assembler
	orders   *query.Handler
	toasts   *notification.Hub
	logger   *slog.Logger
}

// Deps wires Handlers. Devices may be nil, in which case guests cannot
// keep a cart.
type Deps struct {
	Catalog  *catalog.Reader
	Accounts cart.Repository
	Devices  cart.Repository
	Checkout *checkout.Assembler
	Orders   *query.Handler
	Toasts   *notification.Hub
	Logger   *slog.Logger
}

func NewHandlers(d Deps) *Handlers {
	return &Handlers{
		catalog:  d.Catalog,
		accounts: d.Accounts,
		devices:  d.Devices,
		checkout: d.Checkout,
		orders:   d.Orders,
		toasts:   d.Toasts,
		logger:   logger.Component(d.Logger, "API"),
	}
}

// requestScope is the session and cart view for one request.
type requestScope struct {
	sess  *session.Store
	cart  *cart.Store
	owner string
}

func (s *requestScope) Close() {
	s.cart.Close()
}

// openScope builds the cart view for the caller: the account cart when a
// token was presented, otherwise the device cart named by X-Device-ID.
func (h *Handlers) openScope(r *http.Request) *requestScope {
	ctx := r.Context()
	sess := session.NewStore()
	repo := h.accounts
	var opts []cart.Option
	owner := ""

	if claims, ok := middleware.GetUserFromContext(ctx); ok {
		sess.Set(ctx, claims.Identity())
		owner = claims.UserID
	} else if device := middleware.GetDeviceID(ctx); device != "" && h.devices != nil {
		repo = h.devices
		opts = append(opts, cart.WithGuestOwner(device))
		owner = device
	}

	return &requestScope{
		sess:  sess,
		cart:  cart.NewStore(ctx, repo, sess, h.logger, opts...),
		owner: owner,
	}
}

func (h *Handlers) notify(owner string, kind notification.Kind, message string) {
	if h.toasts != nil && owner != "" {
		h.toasts.Notify(owner, kind, message)
	}
}

// Notifications lists the caller's visible toasts.
func (h *Handlers) Notifications(w http.ResponseWriter, r *http.Request) {
	owner := middleware.GetUserID(r.Context())
	if owner == "" {
		owner = middleware.GetDeviceID(r.Context())
	}
	if owner == "" || h.toasts == nil {
		respondJSON(w, http.StatusOK, []notification.Toast{})
		return
	}
	respondJSON(w, http.StatusOK, h.toasts.Visible(owner))
}

// Helper functions

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func respondJSONError(w http.ResponseWriter, message string, status int) {
	respondJSON(w, status, map[string]string{"error": message})
}

// respondError maps domain errors onto HTTP statuses.
func (h *Handlers) respondError(w http.ResponseWriter, r *http.Request, err error) {
	status, message := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	}
	respondJSONError(w, message, status)
}

func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, session.ErrNotAuthenticated):
		return http.StatusUnauthorized, "Vui lòng đăng nhập"
	case errors.Is(err, user.ErrInvalidCredentials):
		return http.StatusUnauthorized, "Email hoặc mật khẩu không đúng"
	case errors.Is(err, user.ErrEmailTaken):
		return http.StatusConflict, "Email đã được đăng ký"
	case errors.Is(err, checkout.ErrEmptyCart):
		return http.StatusBadRequest, "Giỏ hàng trống"
	case errors.Is(err, auth.ErrPasswordTooShort):
		return http.StatusBadRequest, "Mật khẩu phải có ít nhất 8 ký tự"
	case errors.Is(err, checkout.ErrInvalidContact),
		errors.Is(err, checkout.ErrInvalidPaymentMethod),
		errors.Is(err, cart.ErrInvalidQuantity),
		errors.Is(err, cart.ErrInvalidProduct),
		errors.Is(err, user.ErrInvalidEmail),
		errors.Is(err, user.ErrInvalidName):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, order.ErrOrderNotFound), errors.Is(err, user.ErrUserNotFound):
		return http.StatusNotFound, err.Error()
	case errors.Is(err, domain.ErrBackendUnavailable):
		return http.StatusServiceUnavailable, "Dịch vụ tạm thời không khả dụng"
	}
	return http.StatusInternalServerError, "Internal server error"
}
