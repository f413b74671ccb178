package store

import (
	"errors"
	"fmt"

	"github.com/example/slick-storefront/internal/domain"
	"github.com/example/slick-storefront/internal/domain/cart"
	"github.com/example/slick-storefront/internal/domain/catalog"
	"github.com/example/slick-storefront/internal/domain/order"
	"github.com/example/slick-storefront/internal/domain/user"
)

// Backend bundles one adapter per repository contract for a single storage
// engine. cmd/api picks one with STORE_BACKEND.
type Backend struct {
	Name         string
	Carts        cart.Repository
	Products     catalog.Source
	Testimonials catalog.TestimonialSource
	Orders       order.Repository
	Users        user.Repository

	closers []func() error
}

// Close releases the backend's connections.
func (b *Backend) Close() error {
	var errs []error
	for i := len(b.closers) - 1; i >= 0; i-- {
		if err := b.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (b *Backend) onClose(fn func() error) {
	b.closers = append(b.closers, fn)
}

// unavailable marks a driver error as a backend outage.
func unavailable(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, domain.ErrBackendUnavailable) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return domain.Unavailable(op, err)
}
