package catalog

import (
	"context"
	"time"
)

// Categories lists the storefront's product categories in display order.
var Categories = []string{"Unisex", "Nữ", "Nam", "Trẻ em"}

// Product is a catalog entry. Prices are whole VND.
type Product struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Price       int64     `json:"price"`
	OldPrice    *int64    `json:"old_price,omitempty"`
	Category    string    `json:"category"`
	Image       string    `json:"image"`
	Description string    `json:"description"`
	IsNew       bool      `json:"is_new"`
	IsTrending  bool      `json:"is_trending"`
	Sizes       []string  `json:"sizes"`
	Colors      []string  `json:"colors"`
	BestForWear string    `json:"best_for_wear,omitempty"`
	Gender      string    `json:"gender,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Normalize fills list fields that documents may omit.
func (p *Product) Normalize() {
	if p.Sizes == nil {
		p.Sizes = []string{}
	}
	if p.Colors == nil {
		p.Colors = []string{}
	}
}

// Source is the backend contract behind the catalog. Implementations wrap
// driver failures with domain.ErrBackendUnavailable.
type Source interface {
	// ListProducts returns every product, newest first (insertion order for
	// the in-memory backend).
	ListProducts(ctx context.Context) ([]Product, error)
	// GetProduct returns nil, nil when the id is unknown.
	GetProduct(ctx context.Context, id string) (*Product, error)
}
