package notification

import (
	"sync"
	"time"
)

// DefaultTTL is how long a toast stays visible.
const DefaultTTL = 2500 * time.Millisecond

type Kind string

const (
	KindSuccess Kind = "success"
	KindError   Kind = "error"
	KindInfo    Kind = "info"
)

// Toast is a short-lived message shown to one viewer.
type Toast struct {
	ID        int64     `json:"id"`
	Kind      Kind      `json:"kind"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

// Emitter holds the visible toasts of a single viewer. Each toast removes
// itself after the TTL.
type Emitter struct {
	ttl time.Duration
	now func() time.Time

	mu     sync.Mutex
	lastID int64
	toasts []Toast
	timers map[int64]*time.Timer
	closed bool

	// called without mu held once an expiry or dismissal leaves no toasts
	onEmpty func()
}

func NewEmitter(ttl time.Duration) *Emitter {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Emitter{
		ttl:    ttl,
		now:    time.Now,
		timers: make(map[int64]*time.Timer),
	}
}

// Notify shows a toast. Ids are Unix milliseconds, bumped when two toasts
// land in the same millisecond so they stay strictly increasing.
func (e *Emitter) Notify(kind Kind, message string) Toast {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.now()
	id := now.UnixMilli()
	if id <= e.lastID {
		id = e.lastID + 1
	}
	e.lastID = id

	t := Toast{ID: id, Kind: kind, Message: message, CreatedAt: now}
	if e.closed {
		return t
	}

	e.toasts = append(e.toasts, t)
	e.timers[id] = time.AfterFunc(e.ttl, func() { e.Dismiss(id) })
	return t
}

// Visible returns the toasts that have not expired yet, oldest first.
func (e *Emitter) Visible() []Toast {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append(make([]Toast, 0, len(e.toasts)), e.toasts...)
}

// Dismiss removes a toast early. Unknown ids are ignored.
func (e *Emitter) Dismiss(id int64) {
	e.mu.Lock()
	if timer, ok := e.timers[id]; ok {
		timer.Stop()
		delete(e.timers, id)
	}
	removed := false
	for i, t := range e.toasts {
		if t.ID == id {
			e.toasts = append(e.toasts[:i], e.toasts[i+1:]...)
			removed = true
			break
		}
	}
	emptied := removed && len(e.toasts) == 0 && !e.closed
	onEmpty := e.onEmpty
	e.mu.Unlock()

	if emptied && onEmpty != nil {
		onEmpty()
	}
}

// Len is the number of visible toasts.
func (e *Emitter) Len() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.toasts)
}

// Close stops every pending timer and discards all toasts. Later toasts are
// not retained.
func (e *Emitter) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()

	for id, timer := range e.timers {
		timer.Stop()
		delete(e.timers, id)
	}
	e.toasts = nil
	e.closed = true
}
