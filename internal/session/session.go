package session

import (
	"context"
	"errors"
	"sync"
)

var ErrNotAuthenticated = errors.New("not authenticated")

// Identity is the authenticated principal carts and orders belong to.
type Identity struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name,omitempty"`
}

// Listener is called after every identity change. A nil identity means logout.
type Listener func(ctx context.Context, id *Identity)

// Store holds the current identity and notifies subscribers when it changes.
type Store struct {
	mu        sync.RWMutex
	current   *Identity
	listeners map[int]Listener
	order     []int
	nextID    int
}

// NewStore creates an empty (logged out) session store
func NewStore() *Store {
	return &Store{listeners: make(map[int]Listener)}
}

// Current returns the active identity, if any.
func (s *Store) Current() (Identity, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return Identity{}, false
	}
	return *s.current, true
}

// Set makes id the active identity and notifies subscribers.
func (s *Store) Set(ctx context.Context, id Identity) {
	s.mu.Lock()
	s.current = &id
	snapshot := id
	s.mu.Unlock()

	s.notify(ctx, &snapshot)
}

// Clear logs the identity out and notifies subscribers.
func (s *Store) Clear(ctx context.Context) {
	s.mu.Lock()
	s.current = nil
	s.mu.Unlock()

	s.notify(ctx, nil)
}

// Subscribe registers fn for identity changes and returns a function that
// removes it again.
func (s *Store) Subscribe(fn Listener) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.order = append(s.order, id)
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			delete(s.listeners, id)
			for i, v := range s.order {
				if v == id {
					s.order = append(s.order[:i], s.order[i+1:]...)
					break
				}
			}
		})
	}
}

// notify runs listeners in subscription order, outside the lock
func (s *Store) notify(ctx context.Context, id *Identity) {
	s.mu.RLock()
	fns := make([]Listener, 0, len(s.order))
	for _, k := range s.order {
		fns = append(fns, s.listeners[k])
	}
	s.mu.RUnlock()

	for _, fn := range fns {
		var arg *Identity
		if id != nil {
			cp := *id
			arg = &cp
		}
		fn(ctx, arg)
	}
}
