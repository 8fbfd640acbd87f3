// Package idempotency guards mutating endpoints against double submits:
// a form posted twice before the page reloads must not record the
// transaction twice.
package idempotency

import (
	"sync"
	"time"
)

// Store is an in-memory set of seen idempotency keys.
// It is safe for concurrent use. Keys are lost on service restart, which
// matches the threat model: the double submit it guards against happens
// seconds apart within one session.
type Store struct {
	mu   sync.Mutex
	seen map[string]time.Time
	ttl  time.Duration
	now  func() time.Time
}

// NewStore creates a store that remembers keys for ttl.
func NewStore(ttl time.Duration) *Store {
	return &Store{
		seen: make(map[string]time.Time),
		ttl:  ttl,
		now:  time.Now,
	}
}

// Claim records the key and reports whether this call was the first to
// claim it. A second claim within the TTL returns false.
func (s *Store) Claim(key string) bool {
	if key == "" {
		return true // no key supplied; nothing to deduplicate on
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if at, exists := s.seen[key]; exists && now.Sub(at) < s.ttl {
		return false
	}

	// Opportunistic sweep so the map does not grow unbounded.
	for k, at := range s.seen {
		if now.Sub(at) >= s.ttl {
			delete(s.seen, k)
		}
	}

	s.seen[key] = now
	return true
}
