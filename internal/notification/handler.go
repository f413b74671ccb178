package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/example/slick-storefront/internal/domain/catalog"
	"github.com/example/slick-storefront/internal/domain/order"
	"github.com/example/slick-storefront/internal/email"
	"github.com/example/slick-storefront/internal/logger"
)

type ConfirmationSender interface {
	SendOrderConfirmation(to string, c email.Confirmation) error
}

type ProductLookup interface {
	GetByID(ctx context.Context, id string) (*catalog.Product, error)
}

// OrderMailer sends the order confirmation email for placed orders, whether
// they arrive as Kafka events or as DynamoDB stream records.
type OrderMailer struct {
	sender   ConfirmationSender
	products ProductLookup
	logger   *slog.Logger
}

// NewOrderMailer creates a mailer. products may be nil, in which case items
// are listed by product id.
func NewOrderMailer(sender ConfirmationSender, products ProductLookup, log *slog.Logger) *OrderMailer {
	return &OrderMailer{
		sender:   sender,
		products: products,
		logger:   logger.Component(log, "Notifier"),
	}
}

// HandleEvent processes an event from Kafka
func (m *OrderMailer) HandleEvent(ctx context.Context, key, value []byte) error {
	var event order.OrderPlaced
	if err := json.Unmarshal(value, &event); err != nil {
		m.logger.Error("failed to unmarshal event", "key", string(key), "error", err)
		return fmt.Errorf("decode event: %w", err)
	}

	if event.EventType != order.EventOrderPlaced {
		return nil
	}
	return m.SendConfirmation(ctx, event.Order)
}

// SendConfirmation emails the order's contact address.
func (m *OrderMailer) SendConfirmation(ctx context.Context, o order.Order) error {
	to := o.Contact.Email
	if to == "" {
		m.logger.Warn("order has no contact email, skipping", "order_id", o.ID)
		return nil
	}

	m.logger.Info("processing placed order", "order_id", o.ID, "owner_id", o.OwnerID)

	items := make([]email.OrderItem, len(o.Items))
	for i, item := range o.Items {
		items[i] = email.OrderItem{
			ProductID: item.ProductID,
			Name:      m.productName(ctx, item.ProductID),
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
		}
	}

	c := email.Confirmation{
		OrderID:      o.ID,
		CustomerName: o.Contact.FullName(),
		Items:        items,
		Subtotal:     o.Subtotal,
		ShippingFee:  o.ShippingFee,
		Total:        o.Total,
	}
	if err := m.sender.SendOrderConfirmation(to, c); err != nil {
		m.logger.Error("failed to send email", "to", to, "order_id", o.ID, "error", err)
		return err
	}

	m.logger.Info("order confirmation email sent", "to", to, "order_id", o.ID)
	return nil
}

func (m *OrderMailer) productName(ctx context.Context, id string) string {
	if m.products == nil {
		return id
	}
	p, err := m.products.GetByID(ctx, id)
	if err != nil {
		m.logger.Warn("product lookup failed, using id", "product_id", id, "error", err)
		return id
	}
	if p == nil || p.Name == "" {
		return id
	}
	return p.Name
}
