// Package checkout turns the current cart into an order.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/example/slick-storefront/internal/domain/cart"
	"github.com/example/slick-storefront/internal/domain/catalog"
	"github.com/example/slick-storefront/internal/domain/order"
	"github.com/example/slick-storefront/internal/logger"
	"github.com/example/slick-storefront/internal/notification"
	"github.com/example/slick-storefront/internal/session"
)

// ShippingFee is the flat fee in VND charged on any non-empty order.
const ShippingFee int64 = 199000

const (
	defaultMaxConcurrent = 8
	successMessage       = "Đặt hàng thành công! Cảm ơn bạn đã mua sắm."
)

var (
	ErrEmptyCart            = errors.New("cart is empty")
	ErrInvalidContact       = errors.New("invalid contact details")
	ErrInvalidPaymentMethod = errors.New("invalid payment method")
	ErrAmountOverflow       = errors.New("order amount out of range")
)

type ProductLookup interface {
	GetByID(ctx context.Context, id string) (*catalog.Product, error)
}

// Publisher sends events keyed by aggregate id.
type Publisher interface {
	Publish(ctx context.Context, key string, event any) error
}

type Toaster interface {
	Notify(owner string, kind notification.Kind, message string) notification.Toast
}

// Cart is the part of cart.Store checkout needs.
type Cart interface {
	Items() []cart.Line
	ClearCart(ctx context.Context) error
}

// Form is the submitted checkout form.
type Form struct {
	Contact       order.Contact       `json:"contact"`
	PaymentMethod order.PaymentMethod `json:"payment_method"`
}

// QuoteLine is a cart line priced against the catalog.
type QuoteLine struct {
	ProductID string `json:"product_id"`
	Name      string `json:"name"`
	Image     string `json:"image"`
	Size      string `json:"size"`
	Color     string `json:"color"`
	Quantity  int    `json:"quantity"`
	UnitPrice int64  `json:"unit_price"`
	LineTotal int64  `json:"line_total"`
}

type Quote struct {
	Lines       []QuoteLine `json:"lines"`
	Subtotal    int64       `json:"subtotal"`
	ShippingFee int64       `json:"shipping_fee"`
	Total       int64       `json:"total"`
}

type Option func(*Assembler)

func WithPublisher(p Publisher) Option {
	return func(a *Assembler) { a.publisher = p }
}

func WithToaster(t Toaster) Option {
	return func(a *Assembler) { a.toaster = t }
}

// WithMaxConcurrent bounds the product lookups Quote runs at once.
func WithMaxConcurrent(n int) Option {
	return func(a *Assembler) {
		if n > 0 {
			a.maxConcurrent = n
		}
	}
}

// Assembler prices carts and places orders.
type Assembler struct {
	products      ProductLookup
	orders        order.Repository
	publisher     Publisher
	toaster       Toaster
	logger        *slog.Logger
	maxConcurrent int
	now           func() time.Time
}

func NewAssembler(products ProductLookup, orders order.Repository, log *slog.Logger, opts ...Option) *Assembler {
	a := &Assembler{
		products:      products,
		orders:        orders,
		logger:        logger.Component(log, "Checkout"),
		maxConcurrent: defaultMaxConcurrent,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Quote prices lines against the catalog. Lines whose product no longer
// exists are dropped; a failing lookup aborts the quote.
func (a *Assembler) Quote(ctx context.Context, lines []cart.Line) (Quote, error) {
	priced := make([]*QuoteLine, len(lines))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.maxConcurrent)
	for i, line := range lines {
		g.Go(func() error {
			p, err := a.products.GetByID(gctx, line.ProductID)
			if err != nil {
				return fmt.Errorf("price %s: %w", line.ProductID, err)
			}
			if p == nil {
				return nil
			}
			total, ok := mulAmount(p.Price, line.Quantity)
			if !ok {
				return fmt.Errorf("price %s: %w", line.ProductID, ErrAmountOverflow)
			}
			priced[i] = &QuoteLine{
				ProductID: line.ProductID,
				Name:      p.Name,
				Image:     p.Image,
				Size:      line.Size,
				Color:     line.Color,
				Quantity:  line.Quantity,
				UnitPrice: p.Price,
				LineTotal: total,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Quote{Lines: []QuoteLine{}}, err
	}

	q := Quote{Lines: make([]QuoteLine, 0, len(lines))}
	for _, l := range priced {
		if l == nil {
			continue
		}
		if q.Subtotal > math.MaxInt64-l.LineTotal {
			return Quote{Lines: []QuoteLine{}}, ErrAmountOverflow
		}
		q.Lines = append(q.Lines, *l)
		q.Subtotal += l.LineTotal
	}
	if len(q.Lines) > 0 {
		q.ShippingFee = ShippingFee
	}
	if q.Subtotal > math.MaxInt64-q.ShippingFee {
		return Quote{Lines: []QuoteLine{}}, ErrAmountOverflow
	}
	q.Total = q.Subtotal + q.ShippingFee
	return q, nil
}

// mulAmount multiplies a non-negative price by a quantity, reporting false
// when the product does not fit in int64 or either operand is negative.
func mulAmount(price int64, qty int) (int64, bool) {
	if price < 0 || qty < 0 {
		return 0, false
	}
	if qty != 0 && price > math.MaxInt64/int64(qty) {
		return 0, false
	}
	return price * int64(qty), true
}

// Submit places an order for the signed-in identity from the contents of
// carts, then empties the cart. Publishing the OrderPlaced event and the
// success toast are best effort.
func (a *Assembler) Submit(ctx context.Context, sess *session.Store, carts Cart, form Form) (*order.Order, error) {
	id, ok := sess.Current()
	if !ok {
		return nil, session.ErrNotAuthenticated
	}

	contact, err := validate(form)
	if err != nil {
		return nil, err
	}

	q, err := a.Quote(ctx, carts.Items())
	if err != nil {
		return nil, err
	}
	if len(q.Lines) == 0 {
		return nil, ErrEmptyCart
	}

	o := &order.Order{
		ID:            uuid.New().String(),
		OwnerID:       id.ID,
		Contact:       contact,
		Subtotal:      q.Subtotal,
		ShippingFee:   q.ShippingFee,
		Total:         q.Total,
		PaymentMethod: form.PaymentMethod,
		Status:        order.StatusPending,
		CreatedAt:     a.now().UTC(),
		Items:         make([]order.Item, len(q.Lines)),
	}
	for i, l := range q.Lines {
		o.Items[i] = order.Item{
			ProductID: l.ProductID,
			Size:      l.Size,
			Color:     l.Color,
			Quantity:  l.Quantity,
			UnitPrice: l.UnitPrice,
		}
	}

	if err := a.orders.Create(ctx, o); err != nil {
		a.logger.Error("failed to create order", "owner_id", id.ID, "error", err)
		return nil, fmt.Errorf("create order: %w", err)
	}
	a.logger.Info("order placed", "order_id", o.ID, "owner_id", id.ID, "total", o.Total)

	if err := carts.ClearCart(ctx); err != nil {
		a.logger.Warn("order placed but cart not cleared", "order_id", o.ID, "error", err)
	}

	a.publish(ctx, o)
	if a.toaster != nil {
		a.toaster.Notify(id.ID, notification.KindSuccess, successMessage)
	}
	return o, nil
}

func (a *Assembler) publish(ctx context.Context, o *order.Order) {
	if a.publisher == nil {
		return
	}
	event := order.OrderPlaced{
		EventID:   uuid.New().String(),
		EventType: order.EventOrderPlaced,
		Order:     *o,
		PlacedAt:  o.CreatedAt,
	}
	if err := a.publisher.Publish(ctx, o.ID, event); err != nil {
		a.logger.Error("failed to publish order placed", "order_id", o.ID, "error", err)
	}
}

// validate trims the contact fields and requires every one of them.
func validate(form Form) (order.Contact, error) {
	c := form.Contact
	fields := []*string{&c.Email, &c.FirstName, &c.LastName, &c.Address, &c.City, &c.ZipCode, &c.Phone}
	for _, f := range fields {
		*f = strings.TrimSpace(*f)
		if *f == "" {
			return order.Contact{}, ErrInvalidContact
		}
	}
	if _, err := mail.ParseAddress(c.Email); err != nil {
		return order.Contact{}, fmt.Errorf("%w: email: %v", ErrInvalidContact, err)
	}
	if !form.PaymentMethod.Valid() {
		return order.Contact{}, ErrInvalidPaymentMethod
	}
	return c, nil
}
