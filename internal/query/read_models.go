package query

import (
	"time"

	"github.com/example/slick-storefront/internal/domain/order"
)

// OrderItemReadModel is an order line with its product name resolved
type OrderItemReadModel struct {
	ProductID string `json:"product_id"`
	Name      string `json:"name"`
	Size      string `json:"size"`
	Color     string `json:"color"`
	Quantity  int    `json:"quantity"`
	UnitPrice int64  `json:"unit_price"`
	LineTotal int64  `json:"line_total"`
}

// OrderReadModel is the order history view of an order
type OrderReadModel struct {
	ID            string               `json:"id"`
	Contact       order.Contact        `json:"contact"`
	Items         []OrderItemReadModel `json:"items"`
	Subtotal      int64                `json:"subtotal"`
	ShippingFee   int64                `json:"shipping_fee"`
	Total         int64                `json:"total"`
	PaymentMethod order.PaymentMethod  `json:"payment_method"`
	Status        order.Status         `json:"status"`
	StatusLabel   string               `json:"status_label"`
	CreatedAt     time.Time            `json:"created_at"`
}

func newOrderReadModel(o order.Order, names map[string]string) OrderReadModel {
	items := make([]OrderItemReadModel, len(o.Items))
	for i, it := range o.Items {
		name := names[it.ProductID]
		if name == "" {
			name = it.ProductID
		}
		items[i] = OrderItemReadModel{
			ProductID: it.ProductID,
			Name:      name,
			Size:      it.Size,
			Color:     it.Color,
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPrice,
			LineTotal: it.LineTotal(),
		}
	}
	return OrderReadModel{
		ID:            o.ID,
		Contact:       o.Contact,
		Items:         items,
		Subtotal:      o.Subtotal,
		ShippingFee:   o.ShippingFee,
		Total:         o.Total,
		PaymentMethod: o.PaymentMethod,
		Status:        o.Status,
		StatusLabel:   o.Status.Label(),
		CreatedAt:     o.CreatedAt,
	}
}
