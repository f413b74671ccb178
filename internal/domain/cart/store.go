package cart

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/example/slick-storefront/internal/logger"
	"github.com/example/slick-storefront/internal/session"
)

type State int

const (
	StateLoading State = iota
	StateLoaded
)

func (s State) String() string {
	if s == StateLoading {
		return "loading"
	}
	return "loaded"
}

type Option func(*Store)

// WithGuestOwner lets an unauthenticated device own the cart. The repository
// passed to NewStore should then be the device-local one.
func WithGuestOwner(deviceID string) Option {
	return func(s *Store) { s.guestOwner = deviceID }
}

// Store keeps the cart lines of the current owner in sync with a Repository.
// Writes are applied to the local view once the backend confirms them; the
// view is only re-fetched when the backend disagreed with it beforehand.
type Store struct {
	repo       Repository
	sess       *session.Store
	logger     *slog.Logger
	guestOwner string

	opMu sync.Mutex // sequences operations

	mu      sync.RWMutex
	state   State
	owner   string
	lines   []Line
	lastErr error

	unsubscribe func()
}

// NewStore loads the lines of whoever owns the cart right now and follows
// identity changes on sess until Close.
func NewStore(ctx context.Context, repo Repository, sess *session.Store, log *slog.Logger, opts ...Option) *Store {
	s := &Store{
		repo:   repo,
		sess:   sess,
		logger: logger.Component(log, "Cart"),
		state:  StateLoaded,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.opMu.Lock()
	if id, ok := sess.Current(); ok {
		s.load(ctx, id.ID)
	} else if s.guestOwner != "" {
		s.load(ctx, s.guestOwner)
	}
	s.opMu.Unlock()

	s.unsubscribe = sess.Subscribe(s.onIdentity)
	return s
}

// Close stops following the session.
func (s *Store) Close() {
	if s.unsubscribe != nil {
		s.unsubscribe()
	}
}

func (s *Store) onIdentity(ctx context.Context, id *session.Identity) {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	if id != nil {
		s.load(ctx, id.ID)
		return
	}

	// logout: empty view, no backend read
	s.mu.Lock()
	s.owner = s.guestOwner
	s.lines = nil
	s.lastErr = nil
	s.state = StateLoaded
	s.mu.Unlock()
}

// Reload re-fetches the current owner's lines.
func (s *Store) Reload(ctx context.Context) error {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	owner, ok := s.ownerID()
	if !ok {
		return nil
	}
	return s.load(ctx, owner)
}

// load must be called with opMu held. Failures leave an empty view.
func (s *Store) load(ctx context.Context, owner string) error {
	s.mu.Lock()
	s.state = StateLoading
	s.owner = owner
	s.mu.Unlock()

	lines, err := s.repo.ListLines(ctx, owner)
	if err != nil {
		s.logger.Warn("failed to load cart", "owner", owner, "error", err)
		lines = nil
	}

	s.mu.Lock()
	s.lines = lines
	s.lastErr = err
	s.state = StateLoaded
	s.mu.Unlock()
	return err
}

// AddItem merges line into the cart, adding to the quantity of an existing
// line with the same key.
func (s *Store) AddItem(ctx context.Context, line Line) error {
	if line.ProductID == "" {
		return ErrInvalidProduct
	}
	if line.Quantity < 1 || line.Quantity > MaxQuantity {
		return ErrInvalidQuantity
	}

	s.opMu.Lock()
	defer s.opMu.Unlock()

	owner, ok := s.ownerID()
	if !ok {
		return session.ErrNotAuthenticated
	}

	key := line.Key()
	existing, found, err := s.repo.GetLine(ctx, owner, key)
	if err != nil {
		return fmt.Errorf("add item: %w", err)
	}

	next := line
	if found {
		if existing.Quantity > MaxQuantity-line.Quantity {
			return ErrInvalidQuantity
		}
		next.Quantity = existing.Quantity + line.Quantity
	}
	if err := s.repo.SaveLine(ctx, owner, next); err != nil {
		return fmt.Errorf("add item: %w", err)
	}

	s.commit(ctx, owner, key, existing, found, &next)
	return nil
}

// UpdateItem overwrites the quantity of an existing line. A quantity of zero
// or less removes the line. Without an owner it does nothing.
func (s *Store) UpdateItem(ctx context.Context, productID, size, color string, quantity int) error {
	if quantity <= 0 {
		return s.RemoveItem(ctx, productID, size, color)
	}
	if quantity > MaxQuantity {
		return ErrInvalidQuantity
	}

	s.opMu.Lock()
	defer s.opMu.Unlock()

	owner, ok := s.ownerID()
	if !ok {
		return nil
	}

	key := Key{ProductID: productID, Size: size, Color: color}
	existing, found, err := s.repo.GetLine(ctx, owner, key)
	if err != nil {
		return fmt.Errorf("update item: %w", err)
	}
	if !found {
		s.commit(ctx, owner, key, existing, false, nil)
		return nil
	}

	next := existing
	next.Quantity = quantity
	if err := s.repo.SaveLine(ctx, owner, next); err != nil {
		return fmt.Errorf("update item: %w", err)
	}

	s.commit(ctx, owner, key, existing, true, &next)
	return nil
}

// RemoveItem deletes the line for the key. Removing an absent key succeeds.
func (s *Store) RemoveItem(ctx context.Context, productID, size, color string) error {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	owner, ok := s.ownerID()
	if !ok {
		return nil
	}

	key := Key{ProductID: productID, Size: size, Color: color}
	if err := s.repo.DeleteLine(ctx, owner, key); err != nil {
		return fmt.Errorf("remove item: %w", err)
	}

	s.mu.Lock()
	if s.owner == owner {
		s.lines = withoutKey(s.lines, key)
	}
	s.mu.Unlock()
	return nil
}

// ClearCart deletes every line of the current owner.
func (s *Store) ClearCart(ctx context.Context) error {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	owner, ok := s.ownerID()
	if !ok {
		return nil
	}

	if err := s.repo.DeleteLines(ctx, owner); err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}

	s.mu.Lock()
	s.owner = owner
	s.lines = nil
	s.state = StateLoaded
	s.mu.Unlock()
	return nil
}

// commit applies a confirmed write to the local view. before/found describe
// what the backend held for key prior to the write; next is the stored line,
// or nil when nothing was written. When the view did not match the backend
// the whole cart is fetched again.
func (s *Store) commit(ctx context.Context, owner string, key Key, before Line, found bool, next *Line) {
	s.mu.Lock()
	agrees := s.owner == owner && s.state == StateLoaded
	if agrees {
		local, localFound := findLine(s.lines, key)
		agrees = localFound == found && (!found || local.Quantity == before.Quantity)
	}
	if agrees && next != nil {
		s.lines = upsertLine(s.lines, *next)
	}
	s.mu.Unlock()

	if !agrees {
		s.logger.Debug("cart view out of date, reloading", "owner", owner, "key", key.String())
		_ = s.load(ctx, owner)
	}
}

func (s *Store) ownerID() (string, bool) {
	if id, ok := s.sess.Current(); ok {
		return id.ID, true
	}
	if s.guestOwner != "" {
		return s.guestOwner, true
	}
	return "", false
}

// Items returns a copy of the current view.
func (s *Store) Items() []Line {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Line, len(s.lines))
	copy(out, s.lines)
	return out
}

// TotalCount is the sum of all line quantities in the view.
func (s *Store) TotalCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return TotalCount(s.lines)
}

func (s *Store) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Err reports the last failed load, so callers can tell "unavailable" from
// "empty".
func (s *Store) Err() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastErr
}

// Owner returns whose cart the view holds.
func (s *Store) Owner() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.owner
}

func findLine(lines []Line, key Key) (Line, bool) {
	for _, l := range lines {
		if l.Key() == key {
			return l, true
		}
	}
	return Line{}, false
}

func upsertLine(lines []Line, line Line) []Line {
	for i, l := range lines {
		if l.Key() == line.Key() {
			out := make([]Line, len(lines))
			copy(out, lines)
			out[i] = line
			return out
		}
	}
	out := make([]Line, 0, len(lines)+1)
	out = append(out, lines...)
	return append(out, line)
}

func withoutKey(lines []Line, key Key) []Line {
	out := make([]Line, 0, len(lines))
	for _, l := range lines {
		if l.Key() != key {
			out = append(out, l)
		}
	}
	return out
}
