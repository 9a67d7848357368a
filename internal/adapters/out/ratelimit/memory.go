// Package ratelimit provides the per-client limiter store of the admin API.
package ratelimit

import (
	"sync"
	"time"

	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"
)

// Ensure MemoryStore satisfies echo's limiter store.
var _ middleware.RateLimiterStore = (*MemoryStore)(nil)

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// MemoryStore is an in-memory rate limiter implementation using golang.org/x/time/rate.
// Each identifier gets its own independent limiter; identifiers idle for longer
// than expiresIn are dropped on the next sweep.
type MemoryStore struct {
	visitors  map[string]*visitor
	mu        sync.Mutex
	rps       float64
	burst     int
	expiresIn time.Duration
	lastSweep time.Time
	now       func() time.Time
}

// NewMemoryStore creates a store allowing rps requests per second with the given burst.
func NewMemoryStore(rps float64, burst int, expiresIn time.Duration) *MemoryStore {
	if expiresIn <= 0 {
		expiresIn = 3 * time.Minute
	}
	return &MemoryStore{
		visitors:  make(map[string]*visitor),
		rps:       rps,
		burst:     burst,
		expiresIn: expiresIn,
		now:       time.Now,
	}
}

// Allow reports whether a request from identifier may proceed.
func (s *MemoryStore) Allow(identifier string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	v, ok := s.visitors[identifier]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(rate.Limit(s.rps), s.burst)}
		s.visitors[identifier] = v
	}
	v.lastSeen = now

	if now.Sub(s.lastSweep) > s.expiresIn {
		for id, other := range s.visitors {
			if now.Sub(other.lastSeen) > s.expiresIn {
				delete(s.visitors, id)
			}
		}
		s.lastSweep = now
	}

	return v.limiter.AllowN(now, 1), nil
}

// Len returns the number of tracked identifiers.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.visitors)
}
