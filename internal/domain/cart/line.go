package cart

import (
	"context"
	"errors"
)

// MaxQuantity caps a single line, merged totals included.
const MaxQuantity = 999

var (
	ErrInvalidQuantity = errors.New("quantity must be between 1 and 999")
	ErrInvalidProduct  = errors.New("product id is required")
)

// Key identifies a cart line within one owner's cart.
type Key struct {
	ProductID string `json:"product_id"`
	Size      string `json:"size"`
	Color     string `json:"color"`
}

// Line is one (product, size, color) selection with a quantity.
type Line struct {
	ProductID string `json:"product_id"`
	Size      string `json:"size"`
	Color     string `json:"color"`
	Quantity  int    `json:"quantity"`
}

func (l Line) Key() Key {
	return Key{ProductID: l.ProductID, Size: l.Size, Color: l.Color}
}

// String renders the key as "product#size#color", the form document backends
// use as a sort key.
func (k Key) String() string {
	return k.ProductID + "#" + k.Size + "#" + k.Color
}

// Repository persists cart lines per owner. Implementations wrap driver
// failures with domain.ErrBackendUnavailable.
type Repository interface {
	// ListLines returns every line of owner in insertion order.
	ListLines(ctx context.Context, owner string) ([]Line, error)
	GetLine(ctx context.Context, owner string, key Key) (Line, bool, error)
	// SaveLine inserts the line or overwrites the quantity stored for its key.
	SaveLine(ctx context.Context, owner string, line Line) error
	// DeleteLine succeeds when the key is absent.
	DeleteLine(ctx context.Context, owner string, key Key) error
	DeleteLines(ctx context.Context, owner string) error
}

// TotalCount sums quantities across lines.
func TotalCount(lines []Line) int {
	total := 0
	for _, l := range lines {
		total += l.Quantity
	}
	return total
}
