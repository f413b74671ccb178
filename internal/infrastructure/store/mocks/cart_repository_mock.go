package mocks

import (
	"context"
	"sync"

	"github.com/example/slick-storefront/internal/domain/cart"
)

// MockCartRepository is an in-memory cart.Repository that records calls
type MockCartRepository struct {
	mu    sync.Mutex
	lines map[string][]cart.Line

	ListCalls      []string
	GetCalls       []cart.Key
	SaveCalls      []cart.Line
	DeleteCalls    []cart.Key
	DeleteAllCalls []string
	ListErr        error
	GetErr         error
	SaveErr        error
	DeleteErr      error
	DeleteAllErr   error
	// BeforeSave runs before each save, e.g. to simulate another device.
	BeforeSave     func(owner string, line cart.Line)
}

func NewMockCartRepository() *MockCartRepository {
	return &MockCartRepository{lines: make(map[string][]cart.Line)}
}

func (m *MockCartRepository) ListLines(ctx context.Context, owner string) ([]cart.Line, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ListCalls = append(m.ListCalls, owner)
	if m.ListErr != nil {
		return nil, m.ListErr
	}
	out := make([]cart.Line, len(m.lines[owner]))
	copy(out, m.lines[owner])
	return out, nil
}

func (m *MockCartRepository) GetLine(ctx context.Context, owner string, key cart.Key) (cart.Line, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.GetCalls = append(m.GetCalls, key)
	if m.GetErr != nil {
		return cart.Line{}, false, m.GetErr
	}
	for _, l := range m.lines[owner] {
		if l.Key() == key {
			return l, true, nil
		}
	}
	return cart.Line{}, false, nil
}

func (m *MockCartRepository) SaveLine(ctx context.Context, owner string, line cart.Line) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SaveCalls = append(m.SaveCalls, line)
	if m.BeforeSave != nil {
		m.BeforeSave(owner, line)
	}
	if m.SaveErr != nil {
		return m.SaveErr
	}
	m.put(owner, line)
	return nil
}

func (m *MockCartRepository) DeleteLine(ctx context.Context, owner string, key cart.Key) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.DeleteCalls = append(m.DeleteCalls, key)
	if m.DeleteErr != nil {
		return m.DeleteErr
	}
	kept := m.lines[owner][:0:0]
	for _, l := range m.lines[owner] {
		if l.Key() != key {
			kept = append(kept, l)
		}
	}
	m.lines[owner] = kept
	return nil
}

func (m *MockCartRepository) DeleteLines(ctx context.Context, owner string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.DeleteAllCalls = append(m.DeleteAllCalls, owner)
	if m.DeleteAllErr != nil {
		return m.DeleteAllErr
	}
	delete(m.lines, owner)
	return nil
}

// SetLines replaces an owner's stored lines directly, bypassing call
// recording. Safe to call from BeforeSave.
func (m *MockCartRepository) SetLines(owner string, lines ...cart.Line) {
	m.lines[owner] = append([]cart.Line(nil), lines...)
}

// Lines returns the stored lines of owner.
func (m *MockCartRepository) Lines(owner string) []cart.Line {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]cart.Line(nil), m.lines[owner]...)
}

// Reset clears data, recorded calls and injected errors
func (m *MockCartRepository) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lines = make(map[string][]cart.Line)
	m.ListCalls, m.GetCalls, m.SaveCalls, m.DeleteCalls, m.DeleteAllCalls = nil, nil, nil, nil, nil
	m.ListErr, m.GetErr, m.SaveErr, m.DeleteErr, m.DeleteAllErr = nil, nil, nil, nil, nil
	m.BeforeSave = nil
}

func (m *MockCartRepository) put(owner string, line cart.Line) {
	for i, l := range m.lines[owner] {
		if l.Key() == line.Key() {
			m.lines[owner][i] = line
			return
		}
	}
	m.lines[owner] = append(m.lines[owner], line)
}
