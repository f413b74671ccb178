package mocks

import (
	"context"
	"sync"

	"github.com/example/slick-storefront/internal/domain/catalog"
)

// MockProductSource serves products in the order they were added
type MockProductSource struct {
	mu           sync.Mutex
	products     []catalog.Product
	testimonials []catalog.TestimonialRecord

	ListCalls int
	GetCalls  []string
	ListErr   error
	GetErr    error
	// GetErrFor fails GetProduct for specific ids only.
	GetErrFor map[string]error
}

func NewMockProductSource(products ...catalog.Product) *MockProductSource {
	return &MockProductSource{products: products, GetErrFor: make(map[string]error)}
}

func (m *MockProductSource) ListProducts(ctx context.Context) ([]catalog.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ListCalls++
	if m.ListErr != nil {
		return nil, m.ListErr
	}
	return append([]catalog.Product(nil), m.products...), nil
}

func (m *MockProductSource) GetProduct(ctx context.Context, id string) (*catalog.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.GetCalls = append(m.GetCalls, id)
	if err := m.GetErrFor[id]; err != nil {
		return nil, err
	}
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	for _, p := range m.products {
		if p.ID == id {
			cp := p
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *MockProductSource) ListTestimonials(ctx context.Context) ([]catalog.TestimonialRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ListErr != nil {
		return nil, m.ListErr
	}
	return append([]catalog.TestimonialRecord(nil), m.testimonials...), nil
}

func (m *MockProductSource) AddProduct(p catalog.Product) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.products = append(m.products, p)
}

func (m *MockProductSource) AddTestimonial(t catalog.TestimonialRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.testimonials = append(m.testimonials, t)
}

// GetCallCount is safe to read while goroutines are still calling in.
func (m *MockProductSource) GetCallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.GetCalls)
}
