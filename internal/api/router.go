package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/example/slick-storefront/internal/api/middleware"
	"github.com/example/slick-storefront/internal/auth"
)

// RouterConfig holds the router's collaborators.
type RouterConfig struct {
	Handlers       *Handlers
	Auth           *AuthHandlers
	JWT            *auth.JWTService
	RequestTimeout time.Duration
	// WebDir serves a static storefront build at / when set.
	WebDir string
}

func NewRouter(cfg RouterConfig) http.Handler {
	h := cfg.Handlers
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Timeout(timeout))
	r.Use(chimiddleware.Compress(5))
	r.Use(middleware.OptionalAuthMiddleware(cfg.JWT))
	r.Use(middleware.DeviceMiddleware)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", cfg.Auth.Register)
			r.Post("/login", cfg.Auth.Login)
			r.Post("/logout", cfg.Auth.Logout)
			r.Post("/refresh", cfg.Auth.Refresh)
			r.With(middleware.AuthMiddleware(cfg.JWT)).Get("/me", cfg.Auth.Me)
		})

		r.Route("/products", func(r chi.Router) {
			r.Get("/", h.ListProducts)
			r.Get("/trending", h.TrendingProducts)
			r.Get("/{id}", h.GetProduct)
		})
		r.Get("/categories", h.ListCategories)
		r.Get("/testimonials", h.ListTestimonials)

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", h.GetCart)
			r.Delete("/", h.ClearCart)
			r.Post("/items", h.AddToCart)
			r.Put("/items", h.UpdateCartItem)
			r.Delete("/items", h.RemoveCartItem)
		})

		r.Post("/checkout/quote", h.QuoteCheckout)
		r.With(middleware.AuthMiddleware(cfg.JWT)).Post("/checkout", h.PlaceOrder)

		r.Group(func(r chi.Router) {
			r.Use(middleware.AuthMiddleware(cfg.JWT))
			r.Get("/orders", h.ListOrders)
			r.Get("/orders/{id}", h.GetOrder)
		})

		r.Get("/notifications", h.Notifications)
	})

	// Static files (web UI)
	if cfg.WebDir != "" {
		r.Handle("/*", http.FileServer(http.Dir(cfg.WebDir)))
	}

	return otelhttp.NewHandler(r, "storefront-api")
}
