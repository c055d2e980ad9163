package bus

import (
	"container/list"
	"sync"
)

// SeenSet is a bounded LRU of bus messageIds, used to deduplicate
// federation delivery. The bound matters: an unbounded seen-id set grows
// for the lifetime of a long-running room. Oldest entries are forgotten,
// which is acceptable because the bus does not replay.
type SeenSet struct {
	mu    sync.Mutex
	limit int
	order *list.List
	index map[string]*list.Element
}

// NewSeenSet returns a SeenSet bounded to limit entries (default 10,000).
func NewSeenSet(limit int) *SeenSet {
	if limit <= 0 {
		limit = 10_000
	}
	return &SeenSet{
		limit: limit,
		order: list.New(),
		index: make(map[string]*list.Element),
	}
}

// SeenOrAdd reports whether id was already present; if not, it is inserted
// as the most-recently-seen entry, evicting the oldest entry if the set is
// at capacity.
func (s *SeenSet) SeenOrAdd(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if el, ok := s.index[id]; ok {
		s.order.MoveToFront(el)
		return true
	}

	el := s.order.PushFront(id)
	s.index[id] = el

	if s.order.Len() > s.limit {
		oldest := s.order.Back()
		if oldest != nil {
			s.order.Remove(oldest)
			delete(s.index, oldest.Value.(string))
		}
	}
	return false
}

// Contains reports whether id is present without inserting it if absent.
func (s *SeenSet) Contains(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.index[id]
	return ok
}

// Len returns the current number of tracked ids.
func (s *SeenSet) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.order.Len()
}
