package catalog

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/example/slick-storefront/internal/domain"
	"github.com/example/slick-storefront/internal/logger"
)

type BreakerSettings struct {
	// ConsecutiveFailures trips the breaker.
	ConsecutiveFailures uint32
	// OpenTimeout is how long the breaker stays open before probing again.
	OpenTimeout time.Duration
}

// BreakerSource fails fast with domain.ErrBackendUnavailable while the
// backend behind it keeps failing. It never retries.
type BreakerSource struct {
	next    Source
	list    *gobreaker.CircuitBreaker[[]Product]
	product *gobreaker.CircuitBreaker[*Product]
}

func NewBreakerSource(next Source, settings BreakerSettings, log *slog.Logger) *BreakerSource {
	if settings.ConsecutiveFailures == 0 {
		settings.ConsecutiveFailures = 5
	}
	if settings.OpenTimeout <= 0 {
		settings.OpenTimeout = 30 * time.Second
	}
	l := logger.Component(log, "CatalogBreaker")

	st := func(name string) gobreaker.Settings {
		return gobreaker.Settings{
			Name:        name,
			MaxRequests: 1,
			Timeout:     settings.OpenTimeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= settings.ConsecutiveFailures
			},
			IsSuccessful: func(err error) bool {
				return err == nil || errors.Is(err, context.Canceled)
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				l.Warn("circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
			},
		}
	}

	return &BreakerSource{
		next:    next,
		list:    gobreaker.NewCircuitBreaker[[]Product](st("catalog-list")),
		product: gobreaker.NewCircuitBreaker[*Product](st("catalog-product")),
	}
}

func (b *BreakerSource) ListProducts(ctx context.Context) ([]Product, error) {
	products, err := b.list.Execute(func() ([]Product, error) {
		return b.next.ListProducts(ctx)
	})
	return products, breakerErr("list products", err)
}

func (b *BreakerSource) GetProduct(ctx context.Context, id string) (*Product, error) {
	p, err := b.product.Execute(func() (*Product, error) {
		return b.next.GetProduct(ctx, id)
	})
	return p, breakerErr("get product", err)
}

func breakerErr(op string, err error) error {
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return domain.Unavailable(op, err)
	}
	return err
}
