package catalog

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/example/slick-storefront/internal/domain"
	"github.com/example/slick-storefront/internal/logger"
)

// TrendingLimit caps GetTrending.
const TrendingLimit = 3

type SortOrder string

const (
	SortDefault   SortOrder = ""
	SortName      SortOrder = "name"
	SortPriceAsc  SortOrder = "price-asc"
	SortPriceDesc SortOrder = "price-desc"
)

// Reader answers the storefront's read-only product queries.
//
// List queries never fail outright: on a backend failure they return an empty
// slice together with an error matching domain.ErrBackendUnavailable, so
// callers can tell an outage from an empty catalog or ignore the difference.
type Reader struct {
	source       Source
	testimonials TestimonialSource
	logger       *slog.Logger
}

func NewReader(source Source, testimonials TestimonialSource, log *slog.Logger) *Reader {
	return &Reader{
		source:       source,
		testimonials: testimonials,
		logger:       logger.Component(log, "Catalog"),
	}
}

func (r *Reader) GetAll(ctx context.Context) ([]Product, error) {
	products, err := r.source.ListProducts(ctx)
	if err != nil {
		r.logger.Error("failed to list products", "error", err)
		return []Product{}, unavailable("list products", err)
	}
	out := make([]Product, len(products))
	for i, p := range products {
		p.Normalize()
		out[i] = p
	}
	return out, nil
}

// GetByID returns nil, nil for an unknown id.
func (r *Reader) GetByID(ctx context.Context, id string) (*Product, error) {
	if id == "" {
		return nil, nil
	}
	p, err := r.source.GetProduct(ctx, id)
	if err != nil {
		r.logger.Error("failed to get product", "product_id", id, "error", err)
		return nil, unavailable("get product", err)
	}
	if p != nil {
		p.Normalize()
	}
	return p, nil
}

// GetTrending returns up to TrendingLimit trending products in GetAll order.
func (r *Reader) GetTrending(ctx context.Context) ([]Product, error) {
	all, err := r.GetAll(ctx)
	out := make([]Product, 0, TrendingLimit)
	for _, p := range all {
		if len(out) == TrendingLimit {
			break
		}
		if p.IsTrending {
			out = append(out, p)
		}
	}
	return out, err
}

// Search matches text case-insensitively against name and description. A
// blank query returns GetAll unchanged.
func (r *Reader) Search(ctx context.Context, text string) ([]Product, error) {
	all, err := r.GetAll(ctx)
	q := strings.ToLower(strings.TrimSpace(text))
	if q == "" {
		return all, err
	}

	out := make([]Product, 0)
	for _, p := range all {
		if strings.Contains(strings.ToLower(p.Name), q) || strings.Contains(strings.ToLower(p.Description), q) {
			out = append(out, p)
		}
	}
	return out, err
}

// ByCategory filters GetAll to one category. An empty category means all.
func (r *Reader) ByCategory(ctx context.Context, category string) ([]Product, error) {
	all, err := r.GetAll(ctx)
	return FilterCategory(all, category), err
}

// Testimonials lists approved testimonials with defaults applied.
func (r *Reader) Testimonials(ctx context.Context) ([]Testimonial, error) {
	if r.testimonials == nil {
		return []Testimonial{}, nil
	}
	records, err := r.testimonials.ListTestimonials(ctx)
	if err != nil {
		r.logger.Error("failed to list testimonials", "error", err)
		return []Testimonial{}, unavailable("list testimonials", err)
	}
	return publish(records), nil
}

func FilterCategory(products []Product, category string) []Product {
	if category == "" {
		return products
	}
	out := make([]Product, 0, len(products))
	for _, p := range products {
		if p.Category == category {
			out = append(out, p)
		}
	}
	return out
}

// Sorted returns a sorted copy. Names compare with Vietnamese collation;
// SortDefault keeps the input order.
func Sorted(products []Product, order SortOrder) []Product {
	out := make([]Product, len(products))
	copy(out, products)

	switch order {
	case SortName:
		c := collate.New(language.Vietnamese)
		sort.SliceStable(out, func(i, j int) bool {
			return c.CompareString(out[i].Name, out[j].Name) < 0
		})
	case SortPriceAsc:
		sort.SliceStable(out, func(i, j int) bool { return out[i].Price < out[j].Price })
	case SortPriceDesc:
		sort.SliceStable(out, func(i, j int) bool { return out[i].Price > out[j].Price })
	}
	return out
}

func unavailable(op string, err error) error {
	if errors.Is(err, domain.ErrBackendUnavailable) {
		return err
	}
	return domain.Unavailable(op, err)
}
