package notification

import (
	"sync"
	"time"
)

// Hub keeps one Emitter per owner so toasts raised while handling one
// request can be read back by the next. An owner's emitter lives only while
// it has visible toasts.
type Hub struct {
	ttl time.Duration

	mu       sync.Mutex
	emitters map[string]*Emitter
}

func NewHub(ttl time.Duration) *Hub {
	return &Hub{ttl: ttl, emitters: make(map[string]*Emitter)}
}

// Notify shows a toast to owner. h.mu is held across the emitter call so an
// emitter being released cannot receive the toast.
func (h *Hub) Notify(owner string, kind Kind, message string) Toast {
	h.mu.Lock()
	defer h.mu.Unlock()
	e, ok := h.emitters[owner]
	if !ok {
		e = NewEmitter(h.ttl)
		e.onEmpty = func() { h.release(owner, e) }
		h.emitters[owner] = e
	}
	return e.Notify(kind, message)
}

// release forgets owner's emitter once its last toast is gone.
func (h *Hub) release(owner string, e *Emitter) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.emitters[owner] != e || e.Len() > 0 {
		return
	}
	delete(h.emitters, owner)
	e.Close()
}

// Len is the number of owners with an emitter.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.emitters)
}

func (h *Hub) Visible(owner string) []Toast {
	h.mu.Lock()
	e, ok := h.emitters[owner]
	h.mu.Unlock()
	if !ok {
		return []Toast{}
	}
	return e.Visible()
}

// Drop closes and forgets the owner's emitter.
func (h *Hub) Drop(owner string) {
	h.mu.Lock()
	e, ok := h.emitters[owner]
	delete(h.emitters, owner)
	h.mu.Unlock()
	if ok {
		e.Close()
	}
}

func (h *Hub) Close() {
	h.mu.Lock()
	emitters := h.emitters
	h.emitters = make(map[string]*Emitter)
	h.mu.Unlock()
	for _, e := range emitters {
		e.Close()
	}
}
