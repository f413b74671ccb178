package query

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/example/slick-storefront/internal/domain/catalog"
	"github.com/example/slick-storefront/internal/domain/order"
	"github.com/example/slick-storefront/internal/logger"
)

const maxConcurrentLookups = 8

type ProductLookup interface {
	GetByID(ctx context.Context, id string) (*catalog.Product, error)
}

// Handler serves the order history views.
type Handler struct {
	orders   order.Repository
	products ProductLookup
	logger   *slog.Logger
}

func NewHandler(orders order.Repository, products ProductLookup, log *slog.Logger) *Handler {
	return &Handler{
		orders:   orders,
		products: products,
		logger:   logger.Component(log, "Query"),
	}
}

// ListOrders returns the owner's orders newest first.
func (h *Handler) ListOrders(ctx context.Context, ownerID string) ([]OrderReadModel, error) {
	orders, err := h.orders.ListByOwner(ctx, ownerID)
	if err != nil {
		h.logger.Error("failed to list orders", "owner_id", ownerID, "error", err)
		return []OrderReadModel{}, fmt.Errorf("list orders: %w", err)
	}

	names := h.productNames(ctx, orders...)
	out := make([]OrderReadModel, len(orders))
	for i, o := range orders {
		out[i] = newOrderReadModel(o, names)
	}
	return out, nil
}

// GetOrder returns order.ErrOrderNotFound for an unknown id or an order
// owned by someone else.
func (h *Handler) GetOrder(ctx context.Context, ownerID, id string) (*OrderReadModel, error) {
	o, err := h.orders.Get(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}
	rm := newOrderReadModel(*o, h.productNames(ctx, *o))
	return &rm, nil
}

// productNames looks up each distinct product once. Lookups that fail or
// find nothing are left out so the item falls back to its product id.
func (h *Handler) productNames(ctx context.Context, orders ...order.Order) map[string]string {
	names := make(map[string]string)
	if h.products == nil {
		return names
	}

	seen := make(map[string]bool)
	var ids []string
	for _, o := range orders {
		for _, it := range o.Items {
			if !seen[it.ProductID] {
				seen[it.ProductID] = true
				ids = append(ids, it.ProductID)
			}
		}
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentLookups)
	for _, id := range ids {
		g.Go(func() error {
			p, err := h.products.GetByID(gctx, id)
			if err != nil {
				h.logger.Warn("product lookup failed", "product_id", id, "error", err)
				return nil
			}
			if p == nil {
				return nil
			}
			mu.Lock()
			names[id] = p.Name
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return names
}
