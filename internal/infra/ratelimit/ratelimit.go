// Package ratelimit keeps one token bucket per client, keyed by an opaque
// string such as a remote IP. Both network front ends share it.
package ratelimit

import (
	"math"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	// IdleTTL is how long a bucket may go unused before it can be pruned.
	IdleTTL = 3 * time.Minute
	// PruneAt is the set size at which idle buckets are pruned.
	PruneAt = 4096
)

// Set holds one token bucket per key. Buckets idle for longer than IdleTTL
// are pruned once the set grows past PruneAt.
type Set struct {
	limit rate.Limit
	burst int

	mu      sync.Mutex
	entries map[string]*entry
}

type entry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// New returns a Set allowing perSecond events per key, with a burst of
// perSecond rounded up. A non-positive perSecond returns nil, and a nil
// *Set allows everything.
func New(perSecond float64) *Set {
	if perSecond <= 0 {
		return nil
	}
	return &Set{
		limit:   rate.Limit(perSecond),
		burst:   max(1, int(math.Ceil(perSecond))),
		entries: make(map[string]*entry),
	}
}

// Allow reports whether key may proceed now.
func (s *Set) Allow(key string) bool {
	return s.AllowAt(key, time.Now())
}

// AllowAt is Allow at a given instant.
func (s *Set) AllowAt(key string, now time.Time) bool {
	if s == nil {
		return true
	}

	s.mu.Lock()
	e, ok := s.entries[key]
	if !ok {
		if len(s.entries) >= PruneAt {
			s.pruneLocked(now)
		}
		e = &entry{limiter: rate.NewLimiter(s.limit, s.burst)}
		s.entries[key] = e
	}
	e.lastSeen = now
	s.mu.Unlock()

	return e.limiter.AllowN(now, 1)
}

func (s *Set) pruneLocked(now time.Time) {
	for key, e := range s.entries {
		if now.Sub(e.lastSeen) > IdleTTL {
			delete(s.entries, key)
		}
	}
}

// Len returns the number of tracked keys.
func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
