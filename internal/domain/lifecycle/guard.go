package lifecycle

import (
	"context"
	"sync"
	"sync/atomic"
)

// Guard tracks applied references across concurrent callers.
// Entries are never evicted: forgetting one would allow a second execution.
type Guard struct {
	mu      sync.RWMutex
	applied Set
	size    atomic.Int64
}

// NewGuard creates a guard with configuration options.
func NewGuard(opts ...Option) *Guard {
	g := &Guard{applied: make(Set)}
	for _, opt := range opts {
		opt(g)
	}
	g.size.Store(int64(len(g.applied)))
	return g
}

// ShouldSkip reports whether r has already been recorded.
func (g *Guard) ShouldSkip(_ context.Context, r Reference) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.applied.Contains(r.String())
}

// Record atomically checks r and records it if new.
// Returns true if r was already recorded, false if it was newly recorded.
func (g *Guard) Record(_ context.Context, r Reference) bool {
	key := r.String()

	g.mu.Lock()
	defer g.mu.Unlock()

	if g.applied.Contains(key) {
		return true
	}
	g.applied[key] = struct{}{}
	g.size.Add(1)
	return false
}

// Unrecord releases r so it can be retried after a failed execution.
func (g *Guard) Unrecord(_ context.Context, r Reference) {
	key := r.String()

	g.mu.Lock()
	defer g.mu.Unlock()

	if g.applied.Contains(key) {
		delete(g.applied, key)
		g.size.Add(-1)
	}
}

// Merge records every reference in s.
func (g *Guard) Merge(s Set) {
	g.mu.Lock()
	defer g.mu.Unlock()

	for key := range s {
		if !g.applied.Contains(key) {
			g.applied[key] = struct{}{}
			g.size.Add(1)
		}
	}
}

// Size returns the number of recorded references.
func (g *Guard) Size() int64 {
	return g.size.Load()
}
