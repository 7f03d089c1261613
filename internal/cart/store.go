// Package cart owns the in-memory cart state. The store performs no I/O and
// cannot fail; persistence and timers hang off its change notifications.
package cart

import (
	"sync"
	"time"

	"github.com/avelinehq/cartside/pkg/types"
)

// Origin says what caused a change notification.
type Origin string

const (
	// OriginMutation is a user-driven edit (add, quantity change, remove, clear).
	OriginMutation Origin = "mutation"
	// OriginSeed is a replacement of the whole cart from persisted state, at
	// app start or after a migration reload. Seeds must not trigger an
	// autosave of the state that was just loaded.
	OriginSeed Origin = "seed"
)

// Change describes one store transition. Lines is a snapshot taken after the
// change applied; subscribers may retain it.
type Change struct {
	Origin   Origin
	Revision int64
	At       time.Time
	Lines    []types.CartLine
}

func (c Change) Empty() bool {
	return len(c.Lines) == 0
}

// Subscriber receives every effective store change exactly once, in
// subscription order. Handlers run on the mutating goroutine and must not
// call back into mutating store methods.
type Subscriber interface {
	OnCartChange(Change)
}

// Store is the single mutable resource of the cart core. All access goes
// through its methods; a mutex enforces the single-writer discipline.
type Store struct {
	mu            sync.Mutex
	lines         []types.CartLine
	revision      int64
	lastMutatedAt time.Time
	subs          []Subscriber
	now           func() time.Time
}

func NewStore() *Store {
	return &Store{now: time.Now}
}

// Subscribe registers a change listener. Subscription order defines delivery
// order. Not safe to call concurrently with mutations; wire subscribers
// during startup.
func (s *Store) Subscribe(sub Subscriber) {
	if sub == nil {
		return
	}
	s.subs = append(s.subs, sub)
}

// Add puts a product into the cart. Re-adding an existing product increments
// its quantity by one and leaves the captured price snapshot untouched.
func (s *Store) Add(productID string, snapshot types.PriceSnapshot) {
	if productID == "" {
		return
	}
	s.mu.Lock()
	if idx := s.indexOf(productID); idx >= 0 {
		s.lines[idx].Quantity++
	} else {
		s.lines = append(s.lines, types.CartLine{
			ProductID:       productID,
			UnitListPrice:   snapshot.UnitListPrice,
			DiscountPercent: copyIntPtr(snapshot.DiscountPercent),
			Quantity:        1,
		})
	}
	change := s.bumpLocked(OriginMutation)
	s.mu.Unlock()

	s.notify(change)
}

// SetQuantity sets the quantity for an existing line. A quantity of zero or
// less removes the line. Unknown product ids are ignored.
func (s *Store) SetQuantity(productID string, qty int) {
	s.mu.Lock()
	idx := s.indexOf(productID)
	if idx < 0 {
		s.mu.Unlock()
		return
	}
	if qty <= 0 {
		s.lines = append(s.lines[:idx], s.lines[idx+1:]...)
	} else {
		s.lines[idx].Quantity = qty
	}
	change := s.bumpLocked(OriginMutation)
	s.mu.Unlock()

	s.notify(change)
}

// Remove drops the line for the given product. Removing an absent product is
// a no-op and emits no change.
func (s *Store) Remove(productID string) {
	s.mu.Lock()
	idx := s.indexOf(productID)
	if idx < 0 {
		s.mu.Unlock()
		return
	}
	s.lines = append(s.lines[:idx], s.lines[idx+1:]...)
	change := s.bumpLocked(OriginMutation)
	s.mu.Unlock()

	s.notify(change)
}

// Clear empties the cart. Clearing an already-empty cart emits no change.
func (s *Store) Clear() {
	s.mu.Lock()
	if len(s.lines) == 0 {
		s.mu.Unlock()
		return
	}
	s.lines = nil
	change := s.bumpLocked(OriginMutation)
	s.mu.Unlock()

	s.notify(change)
}

// Replace seeds the store from persisted state, replacing the current lines
// wholesale. The resulting notification carries OriginSeed.
func (s *Store) Replace(lines []types.CartLine) {
	s.mu.Lock()
	s.lines = types.CloneLines(lines)
	change := s.bumpLocked(OriginSeed)
	s.mu.Unlock()

	s.notify(change)
}

// Lines returns an ordered snapshot of the current cart lines.
func (s *Store) Lines() []types.CartLine {
	s.mu.Lock()
	defer s.mu.Unlock()
	return types.CloneLines(s.lines)
}

// Snapshot returns the current state as a Change without emitting anything.
func (s *Store) Snapshot() Change {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Change{
		Origin:   OriginSeed,
		Revision: s.revision,
		At:       s.lastMutatedAt,
		Lines:    types.CloneLines(s.lines),
	}
}

func (s *Store) IsEmpty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.lines) == 0
}

// LastMutatedAt reports when the store last changed. Zero until the first change.
func (s *Store) LastMutatedAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastMutatedAt
}

// Revision is a logical clock bumped on every effective change.
func (s *Store) Revision() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.revision
}

func (s *Store) indexOf(productID string) int {
	for i, line := range s.lines {
		if line.ProductID == productID {
			return i
		}
	}
	return -1
}

func (s *Store) bumpLocked(origin Origin) Change {
	s.revision++
	s.lastMutatedAt = s.now()
	return Change{
		Origin:   origin,
		Revision: s.revision,
		At:       s.lastMutatedAt,
		Lines:    types.CloneLines(s.lines),
	}
}

func (s *Store) notify(change Change) {
	for _, sub := range s.subs {
		sub.OnCartChange(change)
	}
}

func copyIntPtr(src *int) *int {
	if src == nil {
		return nil
	}
	val := *src
	return &val
}
