package mocks

import (
	"context"
	"sort"
	"sync"

	"github.com/example/slick-storefront/internal/domain/order"
)

type MockOrderRepository struct {
	mu     sync.Mutex
	orders map[string]order.Order

	CreateCalls []order.Order
	CreateErr   error
	ListErr     error
	GetErr      error
}

func NewMockOrderRepository() *MockOrderRepository {
	return &MockOrderRepository{orders: make(map[string]order.Order)}
}

func (m *MockOrderRepository) Create(ctx context.Context, o *order.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CreateCalls = append(m.CreateCalls, *o)
	if m.CreateErr != nil {
		return m.CreateErr
	}
	m.orders[o.ID] = *o
	return nil
}

func (m *MockOrderRepository) ListByOwner(ctx context.Context, ownerID string) ([]order.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ListErr != nil {
		return nil, m.ListErr
	}
	out := make([]order.Order, 0)
	for _, o := range m.orders {
		if o.OwnerID == ownerID {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *MockOrderRepository) Get(ctx context.Context, ownerID, id string) (*order.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	o, ok := m.orders[id]
	if !ok || o.OwnerID != ownerID {
		return nil, order.ErrOrderNotFound
	}
	return &o, nil
}

// SetOrder stores an order directly for testing
func (m *MockOrderRepository) SetOrder(o order.Order) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.orders[o.ID] = o
}
