package page

import (
	"container/list"
	"sync"
	"time"
)

const (
	// DefaultIdleTTL is how long an untouched visitor state is kept.
	DefaultIdleTTL = 2 * time.Hour
	// DefaultLimit caps the number of states kept at once.
	DefaultLimit = 10000
)

type entry struct {
	id    string
	state *State
	route string
	seen  time.Time
}

// Store keeps one State per visitor session in memory. Transitions run under
// the store lock so concurrent requests from one visitor apply in order.
// States idle past the TTL are evicted, and the least recently used state is
// evicted when the store is full.
type Store struct {
	mu        sync.Mutex
	ttl       time.Duration
	limit     int
	now       func() time.Time
	entries   map[string]*list.Element
	order     *list.List // front is most recently used
	lastSweep time.Time
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithLimit caps the number of states kept; n <= 0 keeps DefaultLimit.
func WithLimit(n int) StoreOption {
	return func(s *Store) {
		if n > 0 {
			s.limit = n
		}
	}
}

// NewStore returns an empty store evicting states idle for longer than ttl.
func NewStore(ttl time.Duration, opts ...StoreOption) *Store {
	if ttl <= 0 {
		ttl = DefaultIdleTTL
	}
	s := &Store{
		ttl:     ttl,
		limit:   DefaultLimit,
		now:     time.Now,
		entries: map[string]*list.Element{},
		order:   list.New(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Update runs fn on the session's state for route. routeChanged is true for
// a new session or when the visitor moved to another route since the last
// call. It returns a copy of the resulting state.
func (s *Store) Update(sessionID, route string, fn func(st *State, routeChanged bool)) State {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.sweepLocked(now)

	el, ok := s.entries[sessionID]
	if ok {
		s.order.MoveToFront(el)
	} else {
		for s.order.Len() >= s.limit {
			s.removeLocked(s.order.Back())
		}
		el = s.order.PushFront(&entry{id: sessionID, state: NewState()})
		s.entries[sessionID] = el
	}
	e := el.Value.(*entry)
	routeChanged := !ok || e.route != route
	e.route = route
	e.seen = now
	if fn != nil {
		fn(e.state, routeChanged)
	}
	return e.state.Clone()
}

// Get returns a copy of the session's state, if any.
func (s *Store) Get(sessionID string) (State, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	el, ok := s.entries[sessionID]
	if !ok {
		return State{}, false
	}
	return el.Value.(*entry).state.Clone(), true
}

// Len returns the number of tracked sessions.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Sweep evicts idle sessions now.
func (s *Store) Sweep() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastSweep = time.Time{}
	s.sweepLocked(s.now())
}

func (s *Store) sweepLocked(now time.Time) {
	if now.Sub(s.lastSweep) < s.ttl/4 {
		return
	}
	s.lastSweep = now
	for el := s.order.Back(); el != nil; el = s.order.Back() {
		if now.Sub(el.Value.(*entry).seen) <= s.ttl {
			return
		}
		s.removeLocked(el)
	}
}

func (s *Store) removeLocked(el *list.Element) {
	s.order.Remove(el)
	delete(s.entries, el.Value.(*entry).id)
}
