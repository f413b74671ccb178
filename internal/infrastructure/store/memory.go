package store

import (
	"context"
	"sort"
	"sync"

	"github.com/example/slick-storefront/internal/domain/cart"
	"github.com/example/slick-storefront/internal/domain/catalog"
	"github.com/example/slick-storefront/internal/domain/order"
	"github.com/example/slick-storefront/internal/domain/user"
)

// NewMemory returns a process-local backend with the demo catalog loaded.
// Data is lost on restart.
func NewMemory() *Backend {
	products := NewMemoryCatalog(SeedProducts(), SeedTestimonials())
	return &Backend{
		Name:         "memory",
		Carts:        NewMemoryCarts(),
		Products:     products,
		Testimonials: products,
		Orders:       NewMemoryOrders(),
		Users:        NewMemoryUsers(),
	}
}

// ============================================
// Carts
// ============================================

type MemoryCarts struct {
	mu    sync.RWMutex
	lines map[string][]cart.Line
}

func NewMemoryCarts() *MemoryCarts {
	return &MemoryCarts{lines: make(map[string][]cart.Line)}
}

func (m *MemoryCarts) ListLines(ctx context.Context, owner string) ([]cart.Line, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]cart.Line{}, m.lines[owner]...), nil
}

func (m *MemoryCarts) GetLine(ctx context.Context, owner string, key cart.Key) (cart.Line, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, l := range m.lines[owner] {
		if l.Key() == key {
			return l, true, nil
		}
	}
	return cart.Line{}, false, nil
}

func (m *MemoryCarts) SaveLine(ctx context.Context, owner string, line cart.Line) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	lines := m.lines[owner]
	for i, l := range lines {
		if l.Key() == line.Key() {
			lines[i].Quantity = line.Quantity
			return nil
		}
	}
	m.lines[owner] = append(lines, line)
	return nil
}

func (m *MemoryCarts) DeleteLine(ctx context.Context, owner string, key cart.Key) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	lines := m.lines[owner]
	for i, l := range lines {
		if l.Key() == key {
			m.lines[owner] = append(lines[:i:i], lines[i+1:]...)
			return nil
		}
	}
	return nil
}

func (m *MemoryCarts) DeleteLines(ctx context.Context, owner string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.lines, owner)
	return nil
}

// ============================================
// Catalog
// ============================================

// MemoryCatalog serves products in insertion order.
type MemoryCatalog struct {
	mu           sync.RWMutex
	products     []catalog.Product
	testimonials []catalog.TestimonialRecord
}

func NewMemoryCatalog(products []catalog.Product, testimonials []catalog.TestimonialRecord) *MemoryCatalog {
	return &MemoryCatalog{products: products, testimonials: testimonials}
}

func (m *MemoryCatalog) ListProducts(ctx context.Context) ([]catalog.Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]catalog.Product{}, m.products...), nil
}

func (m *MemoryCatalog) GetProduct(ctx context.Context, id string) (*catalog.Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, p := range m.products {
		if p.ID == id {
			cp := p
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *MemoryCatalog) ListTestimonials(ctx context.Context) ([]catalog.TestimonialRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]catalog.TestimonialRecord{}, m.testimonials...), nil
}

// ============================================
// Orders
// ============================================

type MemoryOrders struct {
	mu     sync.RWMutex
	orders []order.Order
}

func NewMemoryOrders() *MemoryOrders {
	return &MemoryOrders{}
}

func (m *MemoryOrders) Create(ctx context.Context, o *order.Order) error {
	if len(o.Items) == 0 {
		return order.ErrEmptyOrder
	}
	cp := *o
	cp.Items = append([]order.Item(nil), o.Items...)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.orders = append(m.orders, cp)
	return nil
}

func (m *MemoryOrders) ListByOwner(ctx context.Context, ownerID string) ([]order.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]order.Order, 0)
	for i := len(m.orders) - 1; i >= 0; i-- {
		if m.orders[i].OwnerID == ownerID {
			out = append(out, m.orders[i])
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *MemoryOrders) Get(ctx context.Context, ownerID, id string) (*order.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, o := range m.orders {
		if o.ID == id && o.OwnerID == ownerID {
			cp := o
			return &cp, nil
		}
	}
	return nil, order.ErrOrderNotFound
}

// ============================================
// Users
// ============================================

type MemoryUsers struct {
	mu      sync.RWMutex
	byID    map[string]*user.User
	byEmail map[string]string
}

func NewMemoryUsers() *MemoryUsers {
	return &MemoryUsers{byID: make(map[string]*user.User), byEmail: make(map[string]string)}
}

func (m *MemoryUsers) CreateUser(ctx context.Context, u *user.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, taken := m.byEmail[u.Email]; taken {
		return user.ErrEmailTaken
	}
	cp := *u
	m.byID[u.ID] = &cp
	m.byEmail[u.Email] = u.ID
	return nil
}

func (m *MemoryUsers) GetUserByEmail(ctx context.Context, email string) (*user.User, error) {
	m.mu.RLock()
	id, ok := m.byEmail[email]
	m.mu.RUnlock()
	if !ok {
		return nil, user.ErrUserNotFound
	}
	return m.GetUserByID(ctx, id)
}

func (m *MemoryUsers) GetUserByID(ctx context.Context, id string) (*user.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.byID[id]
	if !ok {
		return nil, user.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}
