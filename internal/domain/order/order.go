package order

import (
	"context"
	"errors"
	"time"
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusShipped    Status = "shipped"
	StatusDelivered  Status = "delivered"
	StatusCancelled  Status = "cancelled"
)

var statusLabels = map[Status]string{
	StatusPending:    "Chờ xử lý",
	StatusProcessing: "Đang xử lý",
	StatusShipped:    "Đang giao",
	StatusDelivered:  "Đã giao",
	StatusCancelled:  "Đã hủy",
}

// Label is the customer-facing (Vietnamese) status name. Unknown statuses
// are shown as-is.
func (s Status) Label() string {
	if l, ok := statusLabels[s]; ok {
		return l
	}
	return string(s)
}

type PaymentMethod string

const (
	PaymentCard PaymentMethod = "card"
	PaymentCOD  PaymentMethod = "cod"
)

func (m PaymentMethod) Valid() bool {
	return m == PaymentCard || m == PaymentCOD
}

var (
	ErrOrderNotFound = errors.New("order not found")
	ErrEmptyOrder    = errors.New("order must have at least one item")
)

// Contact is the shipping form captured at checkout.
type Contact struct {
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Address   string `json:"address"`
	City      string `json:"city"`
	ZipCode   string `json:"zip_code"`
	Phone     string `json:"phone"`
}

func (c Contact) FullName() string {
	switch {
	case c.FirstName == "":
		return c.LastName
	case c.LastName == "":
		return c.FirstName
	}
	return c.FirstName + " " + c.LastName
}

// Item snapshots one purchased line, including the price paid.
type Item struct {
	ProductID string `json:"product_id"`
	Size      string `json:"size"`
	Color     string `json:"color"`
	Quantity  int    `json:"quantity"`
	UnitPrice int64  `json:"unit_price"`
}

func (i Item) LineTotal() int64 {
	return i.UnitPrice * int64(i.Quantity)
}

// Order is immutable once written, apart from Status which belongs to
// fulfillment.
type Order struct {
	ID            string        `json:"id"`
	OwnerID       string        `json:"owner_id"`
	Contact       Contact       `json:"contact"`
	Subtotal      int64         `json:"subtotal"`
	ShippingFee   int64         `json:"shipping_fee"`
	Total         int64         `json:"total"`
	PaymentMethod PaymentMethod `json:"payment_method"`
	Status        Status        `json:"status"`
	CreatedAt     time.Time     `json:"created_at"`
	Items         []Item        `json:"items"`
}

// Repository persists orders. Create must write the order and its items
// atomically.
type Repository interface {
	Create(ctx context.Context, o *Order) error
	// ListByOwner returns the owner's orders newest first.
	ListByOwner(ctx context.Context, ownerID string) ([]Order, error)
	// Get returns ErrOrderNotFound when the id is unknown or belongs to
	// another owner.
	Get(ctx context.Context, ownerID, id string) (*Order, error)
}
